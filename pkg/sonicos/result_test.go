package sonicos

import (
	"bytes"
	"testing"
)

func TestParseResultEnvelopeSuccess(t *testing.T) {
	body := []byte(`{"status":{"success":true,"info":[{"level":"info","code":"E_OK","message":"Changes made."}]}}`)

	res, err := ParseResult(body)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Message != "Changes made." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if res.Data != nil {
		t.Fatalf("envelope result should carry no data, got %s", res.Data)
	}
}

func TestParseResultEnvelopeFailureUsesFirstInfoMessage(t *testing.T) {
	body := []byte(`{"status":{"success":false,"info":[{"level":"error","code":"E_NOT_FOUND","message":"No such object."},{"level":"error","message":"second"}]}}`)

	res, err := ParseResult(body)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if res.Success {
		t.Fatalf("expected failure result")
	}
	if res.Message != "No such object." {
		t.Fatalf("expected first info message, got %q", res.Message)
	}
	if res.Data != nil {
		t.Fatalf("failure result should carry no data")
	}
}

func TestParseResultEnvelopeDefaults(t *testing.T) {
	// Empty info list falls back to the generic message.
	res, err := ParseResult([]byte(`{"status":{"success":false,"info":[]}}`))
	if err != nil {
		t.Fatalf("ParseResult empty info: %v", err)
	}
	if res.Success || res.Message != "Unknown error" {
		t.Fatalf("unexpected result %+v", res)
	}

	// A first entry without a message falls back too.
	res, err = ParseResult([]byte(`{"status":{"success":false,"info":[{"level":"error","code":"E_FAIL"}]}}`))
	if err != nil {
		t.Fatalf("ParseResult messageless info: %v", err)
	}
	if res.Message != "Unknown error" {
		t.Fatalf("expected fallback message, got %q", res.Message)
	}

	// A missing success flag defaults to failure.
	res, err = ParseResult([]byte(`{"status":{}}`))
	if err != nil {
		t.Fatalf("ParseResult bare status: %v", err)
	}
	if res.Success || res.Message != "Unknown error" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestParseResultPayloadPassthrough(t *testing.T) {
	body := []byte(`{"address_objects":[{"ipv4":{"name":"lan-host"}}]}`)

	res, err := ParseResult(body)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success result")
	}
	if res.Message != "Success." {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if !bytes.Equal(res.Data, body) {
		t.Fatalf("data should equal the full body, got %s", res.Data)
	}
}

func TestParseResultNonObjectBody(t *testing.T) {
	body := []byte(`[{"name":"one"},{"name":"two"}]`)

	res, err := ParseResult(body)
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if !res.Success || res.Message != "Success." {
		t.Fatalf("unexpected result %+v", res)
	}
	if !bytes.Equal(res.Data, body) {
		t.Fatalf("data should equal the full body")
	}
}

func TestParseResultInvalidJSON(t *testing.T) {
	if _, err := ParseResult([]byte("<html>login page</html>")); err == nil {
		t.Fatalf("expected error for non-JSON body")
	}
}

func TestParseResultMalformedStatus(t *testing.T) {
	if _, err := ParseResult([]byte(`{"status":"broken"}`)); err == nil {
		t.Fatalf("expected error when the status block cannot be decoded")
	}
}

func TestParseResultNullStatus(t *testing.T) {
	res, err := ParseResult([]byte(`{"status":null}`))
	if err != nil {
		t.Fatalf("ParseResult: %v", err)
	}
	if res.Success || res.Message != "Unknown error" {
		t.Fatalf("null status should fail with the fallback message, got %+v", res)
	}
}
