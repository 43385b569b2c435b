// Package sonicos is a thin client for the SonicOS management API exposed
// by SonicWall firewalls. It holds one authenticated session per appliance
// and normalizes every response into the uniform Result shape; everything
// beyond session handling and normalization (object types, pagination,
// retries) is left to callers via the generic Do passthrough.
package sonicos

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	apiPrefix = "/api/sonicos"

	// badMethodMessage is returned by Do for verbs outside the allowed set.
	badMethodMessage = "Bad method"
)

// Config carries the connection parameters for one firewall.
type Config struct {
	// Host is the address of the firewall management interface.
	Host string
	// Port is the management API port. Zero selects 443.
	Port int
	// Username and Password are the admin credentials presented via HTTP
	// Digest Authentication on every request.
	Username string
	Password string
	// InsecureSkipVerify disables TLS certificate validation for this
	// session. Appliances commonly ship with self-signed certificates;
	// opting in here trusts whatever certificate the firewall presents.
	InsecureSkipVerify bool
	// Timeout bounds each request through the underlying transport.
	// Zero means no timeout.
	Timeout time.Duration
}

// Client is an authenticated session against one SonicOS appliance. The
// session (cookies, digest handshake state) persists across calls, so a
// Client is meant to be built once and reused. It is not safe for
// concurrent use.
type Client struct {
	api      string
	username string
	session  *resty.Client
}

// loginRequest asks the firewall to take over any session already held by
// the same credentials.
type loginRequest struct {
	Override bool `json:"override"`
}

// New builds a client for the firewall described by cfg. No network traffic
// happens until the first operation; call Login to authenticate the
// session.
func New(cfg Config) *Client {
	port := cfg.Port
	if port == 0 {
		port = 443
	}
	api := "https://" + net.JoinHostPort(cfg.Host, strconv.Itoa(port)) + apiPrefix

	session := resty.New().
		SetHeader("Accept", "application/json").
		SetAllowGetMethodPayload(true)
	if cfg.Timeout > 0 {
		session.SetTimeout(cfg.Timeout)
	}
	if cfg.InsecureSkipVerify {
		session.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) //nolint:gosec // explicit opt-in for self-signed appliances
	}
	session.SetDigestAuth(cfg.Username, cfg.Password)

	return &Client{
		api:      api,
		username: cfg.Username,
		session:  session,
	}
}

// Login authenticates the session. The override flag forces takeover of any
// existing session held by the same credentials.
func (c *Client) Login(ctx context.Context) (Result, error) {
	return c.call(ctx, http.MethodPost, "/auth", loginRequest{Override: true})
}

// Logout ends the current session on the firewall.
func (c *Client) Logout(ctx context.Context) (Result, error) {
	return c.call(ctx, http.MethodDelete, "/auth", nil)
}

// PendingConfigurations reports whether unsaved configuration changes are
// staged on the firewall. When changes exist the result data holds them.
func (c *Client) PendingConfigurations(ctx context.Context) (Result, error) {
	return c.call(ctx, http.MethodGet, "/config/pending", nil)
}

// Commit persists all pending configuration changes.
func (c *Client) Commit(ctx context.Context) (Result, error) {
	return c.call(ctx, http.MethodPost, "/config/pending", struct{}{})
}

// DeletePendingConfigurations discards all pending configuration changes.
func (c *Client) DeletePendingConfigurations(ctx context.Context) (Result, error) {
	return c.call(ctx, http.MethodDelete, "/config/pending", struct{}{})
}

// Do issues a generic request: method is case-insensitive and must be one
// of GET, POST, PUT, PATCH or DELETE; path is appended to the API base URL;
// payload is any JSON-marshalable value, or nil for no body. Unrecognized
// methods yield a failed Result without any network call. The session lapse
// behavior of the named operations applies here too: there is no automatic
// re-login.
func (c *Client) Do(ctx context.Context, method, path string, payload any) (Result, error) {
	verb := strings.ToUpper(strings.TrimSpace(method))
	switch verb {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return c.call(ctx, verb, path, payload)
	default:
		return Result{Message: badMethodMessage}, nil
	}
}

// call performs one HTTP exchange and normalizes the response. HTTP status
// codes are not inspected: the firewall reports failures in its status
// envelope, which rides on 4xx responses as well.
func (c *Client) call(ctx context.Context, method, path string, payload any) (Result, error) {
	req := c.session.R().SetContext(ctx)
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, c.api+path)
	if err != nil {
		return Result{}, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return ParseResult(resp.Body())
}

// BaseURL returns the fixed API base URL the client was built with.
func (c *Client) BaseURL() string { return c.api }

// Session exposes the underlying resty client so callers can tune the
// transport (proxy, timeouts, TLS) beyond what Config covers.
func (c *Client) Session() *resty.Client { return c.session }

// Close releases idle connections held by the session. It does not log out
// of the firewall; use Logout for that.
func (c *Client) Close() {
	if c == nil || c.session == nil {
		return
	}
	c.session.GetClient().CloseIdleConnections()
}

// String identifies the client target for logging. Credentials are never
// included.
func (c *Client) String() string {
	return fmt.Sprintf("sonicos.Client{url: %s, user: %s}", c.api, c.username)
}
