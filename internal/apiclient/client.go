package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"evoting/portal-service/internal/session"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Audience is who an endpoint serves. The bearer token is picked from the
// session kind, never from the URL.
type Audience int

const (
	Public Audience = iota
	AdminOnly
	VoterOnly
)

const maxResponseBytes = 8 << 20

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, transport http.RoundTripper) *Client {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Transport: otelhttp.NewTransport(transport)},
	}
}

type call struct {
	method   string
	path     string
	audience Audience
	query    url.Values
	body     any
	form     *Multipart
}

func (c *Client) send(ctx context.Context, sess session.Session, cl call) ([]byte, error) {
	var body io.Reader
	contentType := ""
	switch {
	case cl.form != nil:
		buf, ct, err := cl.form.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case cl.body != nil:
		payload, err := json.Marshal(cl.body)
		if err != nil {
			return nil, err
		}
		body, contentType = bytes.NewReader(payload), "application/json"
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if err := authorize(req, cl.audience, sess); err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrUnavailable, cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, decodeError(resp.StatusCode, data)
	}
	return data, nil
}

func authorize(req *http.Request, audience Audience, sess session.Session) error {
	switch audience {
	case Public:
		return nil
	case AdminOnly:
		if sess.Kind != session.KindAdmin {
			return ErrWrongAudience
		}
	case VoterOnly:
		if sess.Kind != session.KindVoter {
			return ErrWrongAudience
		}
	default:
		return ErrWrongAudience
	}
	if sess.Token == "" {
		return ErrUnauthorized
	}
	req.Header.Set("Authorization", "Bearer "+sess.Token)
	return nil
}

func (c *Client) fetch(ctx context.Context, sess session.Session, cl call, out any, keys ...string) error {
	data, err := c.send(ctx, sess, cl)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	raw := unwrap(data, keys...)
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err)
	}
	return nil
}

// unwrap digs a payload out of {"data": ...}-style envelopes. Bare arrays and
// objects without a matching key are returned as is.
func unwrap(data []byte, keys ...string) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || len(keys) == 0 {
		return trimmed
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return trimmed
	}
	for _, key := range keys {
		for name, value := range obj {
			if strings.EqualFold(name, key) {
				return value
			}
		}
	}
	return trimmed
}

func escapePath(id string) string {
	return url.PathEscape(strings.TrimSpace(id))
}
