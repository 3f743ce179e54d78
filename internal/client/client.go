// Package client is the learner-side REST client. Every call goes through
// one request path that injects the bearer token, signs the session out on
// 401 and maps failures onto apperr kinds.
package client

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mind-engage/classwork/internal/apperr"
	"github.com/mind-engage/classwork/internal/logger"
	"github.com/mind-engage/classwork/internal/wire"
)

type Client struct {
	http    *resty.Client
	session *Session
	log     *logger.Logger
}

type Option func(*Client)

func WithLogger(l *logger.Logger) Option { return func(c *Client) { c.log = l } }

func WithTimeout(d time.Duration) Option { return func(c *Client) { c.http.SetTimeout(d) } }

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		base := c.http.BaseURL
		c.http = resty.NewWithClient(hc).SetBaseURL(base).SetHeader("Accept", "application/json")
	}
}

func New(baseURL string, session *Session, opts ...Option) *Client {
	c := &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Accept", "application/json").
			SetTimeout(30 * time.Second),
		session: session,
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) Session() *Session { return c.session }

var fallbackMessages = map[apperr.Kind]string{
	apperr.KindUnauthorized: "Your session has expired. Please sign in again.",
	apperr.KindForbidden:    "You do not have access to this.",
	apperr.KindValidation:   "The request was not valid.",
	apperr.KindConflict:     "That already exists.",
	apperr.KindNotFound:     "Not found.",
	apperr.KindTransport:    "The server could not complete the request.",
}

// do sends one request and returns the response body of a 2xx reply.
func (c *Client) do(ctx context.Context, method, path string, body any, query map[string]string) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	sent := c.session.Token()
	if sent != "" {
		req.SetAuthToken(sent)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for k, v := range query {
		if v != "" {
			req.SetQueryParam(k, v)
		}
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.Debug("request failed", "method", method, "path", path, "error", err)
		return nil, apperr.Wrap(apperr.KindTransport, "Could not reach the server.", err)
	}
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode())
	if resp.IsSuccess() {
		return resp.Body(), nil
	}
	if resp.StatusCode() == http.StatusUnauthorized && sent != "" {
		if err := c.session.expire(sent); err != nil {
			c.log.Warn("clearing rejected token failed", "error", err)
		}
	}
	return nil, statusError(resp.StatusCode(), resp.Body())
}

func statusError(code int, body []byte) error {
	kind := apperr.FromStatus(code)
	d, err := wire.DecodeDoc(body)
	if err != nil {
		d = wire.Doc{}
	}
	msg := d.Get("message", "error").String("")
	if msg == "" {
		msg = fallbackMessages[kind]
	}
	e := apperr.New(kind, msg)
	if fields, ok := d.Get("errors").Doc(); ok && len(fields) > 0 {
		e.Fields = make(map[string]string, len(fields))
		for k := range fields {
			e.Fields[k] = fields.Get(k).String("")
		}
	}
	return e
}

func (c *Client) getDoc(ctx context.Context, path string, query map[string]string) (wire.Doc, error) {
	b, err := c.do(ctx, http.MethodGet, path, nil, query)
	if err != nil {
		return nil, err
	}
	return decodeDoc(b)
}

func (c *Client) sendDoc(ctx context.Context, method, path string, body any) (wire.Doc, error) {
	b, err := c.do(ctx, method, path, body, nil)
	if err != nil {
		return nil, err
	}
	return decodeDoc(b)
}

func (c *Client) getList(ctx context.Context, path, envelope string, query map[string]string) ([]wire.Doc, error) {
	b, err := c.do(ctx, http.MethodGet, path, nil, query)
	if err != nil {
		return nil, err
	}
	docs, err := wire.DecodeList(b, envelope)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "The server sent an unreadable response.", err)
	}
	return docs, nil
}

func decodeDoc(b []byte) (wire.Doc, error) {
	d, err := wire.DecodeDoc(b)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransport, "The server sent an unreadable response.", err)
	}
	return d, nil
}
