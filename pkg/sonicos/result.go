package sonicos

import (
	"encoding/json"
	"fmt"
)

const (
	successMessage      = "Success."
	unknownErrorMessage = "Unknown error"
)

// Result is the uniform outcome of every API operation. Success mirrors the
// firewall's own verdict and Message its first human-readable info line.
// Data carries the response payload; it is always nil when the firewall
// answered with a status envelope, since the envelope supersedes any
// payload.
type Result struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// statusBlock is the envelope SonicOS wraps around most config-changing
// responses. Plain reads come back without it.
type statusBlock struct {
	Success bool         `json:"success"`
	Info    []statusInfo `json:"info"`
}

type statusInfo struct {
	Level   string `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ParseResult normalizes a raw response body into a Result. Bodies carrying
// a status envelope yield the envelope's verdict and first info message,
// with "Unknown error" standing in when the envelope has no message to
// offer. Any other valid JSON body is a success and is returned whole as
// the Result data. Bodies that do not decode produce an error, not a
// Result.
func ParseResult(body []byte) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		if !json.Valid(body) {
			return Result{}, fmt.Errorf("decode response body: %w", err)
		}
		// Valid JSON that is not an object (an array, say) cannot carry a
		// status envelope; the body itself is the payload.
		return payloadResult(body), nil
	}

	rawStatus, ok := fields["status"]
	if !ok {
		return payloadResult(body), nil
	}

	var status statusBlock
	if err := json.Unmarshal(rawStatus, &status); err != nil {
		return Result{}, fmt.Errorf("decode status envelope: %w", err)
	}

	message := unknownErrorMessage
	if len(status.Info) > 0 && status.Info[0].Message != "" {
		message = status.Info[0].Message
	}
	return Result{Success: status.Success, Message: message}, nil
}

// payloadResult wraps a bare JSON body as a successful result. The body is
// copied so the Result stays valid after the transport reuses its buffers.
func payloadResult(body []byte) Result {
	data := make(json.RawMessage, len(body))
	copy(data, body)
	return Result{Success: true, Message: successMessage, Data: data}
}
