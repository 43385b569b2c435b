package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/edgewall-hq/go-sonicos/pkg/httpclient"
)

// Package probe classifies what answers on a firewall management endpoint.
// The API module replies with JSON even for unauthenticated requests, while
// a management portal or captive error page replies with HTML. The
// distinction tells an operator whether the API module is enabled at all.

const (
	KindAPI     = "api"
	KindPortal  = "portal"
	KindUnknown = "unknown"

	maxProbeBodyBytes = 1 << 20 // 1 MiB

	defaultProbeTimeout = 10 * time.Second
)

// Finding is the outcome of one endpoint check.
type Finding struct {
	Reachable  bool   `json:"reachable"`
	Kind       string `json:"kind,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	PageTitle  string `json:"page_title,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// Prober runs endpoint checks with the provided HTTP client.
type Prober struct {
	client httpclient.Client
}

// New constructs a prober. A nil client falls back to an insecure transport
// that accepts the self-signed certificates appliances commonly present.
func New(client httpclient.Client) *Prober {
	if client == nil {
		client = httpclient.NewInsecureRestyClient(defaultProbeTimeout)
	}
	return &Prober{client: client}
}

// Check fetches the URL and classifies the response.
func (p *Prober) Check(ctx context.Context, url string) Finding {
	resp, err := p.client.Get(ctx, url, map[string]string{"Accept": "application/json"})
	if err != nil {
		return Finding{Detail: fmt.Sprintf("fetch: %v", err)}
	}
	return classify(resp)
}

func classify(resp httpclient.Response) Finding {
	body := resp.Body()
	if len(body) > maxProbeBodyBytes {
		body = body[:maxProbeBodyBytes]
	}

	finding := Finding{
		Reachable:  true,
		StatusCode: resp.StatusCode(),
	}

	contentType := strings.ToLower(resp.ContentType())
	if strings.Contains(contentType, "json") || json.Valid(bytes.TrimSpace(body)) {
		finding.Kind = KindAPI
		return finding
	}

	title := pageTitle(body)
	if title != "" || strings.Contains(contentType, "html") {
		finding.Kind = KindPortal
		finding.PageTitle = title
		return finding
	}

	finding.Kind = KindUnknown
	return finding
}

// pageTitle extracts the document title from an HTML body. A body that does
// not parse as HTML yields an empty title.
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
