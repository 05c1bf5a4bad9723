// Package client is the HTTP client for the note service. Error responses
// are turned back into *errs.Error values carrying the server's code.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smartnotes/internal/enrich"
	"smartnotes/internal/errs"
	"smartnotes/internal/notes"
	"smartnotes/internal/respond"
)

// Client talks to one note service as one user.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]*notes.Note, error) {
	var out []*notes.Note
	if err := c.do(ctx, http.MethodGet, "/notes", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Search(ctx context.Context, q notes.SearchQuery) ([]*notes.Note, error) {
	params := url.Values{}
	if q.Query != "" {
		params.Set("q", q.Query)
	}
	if q.Tag != "" {
		params.Set("tag", q.Tag)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	var out []*notes.Note
	if err := c.do(ctx, http.MethodGet, "/notes/search?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, in notes.CreateNoteInput) (*notes.Note, error) {
	var out notes.Note
	if err := c.do(ctx, http.MethodPost, "/notes", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, in notes.UpdateNoteInput) (*notes.Note, error) {
	var out notes.Note
	if err := c.do(ctx, http.MethodPut, "/notes", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	var out notes.DeleteResult
	return c.do(ctx, http.MethodDelete, "/notes?id="+url.QueryEscape(id), nil, &out)
}

func (c *Client) Summarize(ctx context.Context, content string) (string, error) {
	var out enrich.SummaryResponse
	if err := c.do(ctx, http.MethodPost, "/ai/summarize", enrich.ContentRequest{Content: content}, &out); err != nil {
		return "", err
	}
	return out.Summary, nil
}

func (c *Client) Improve(ctx context.Context, content string) (string, error) {
	var out enrich.ImproveResponse
	if err := c.do(ctx, http.MethodPost, "/ai/improve", enrich.ContentRequest{Content: content}, &out); err != nil {
		return "", err
	}
	return out.Improved, nil
}

func (c *Client) ExtractTags(ctx context.Context, title, content string) ([]string, error) {
	var out enrich.TagsResponse
	if err := c.do(ctx, http.MethodPost, "/ai/tags", enrich.TagsRequest{Title: title, Content: content}, &out); err != nil {
		return nil, err
	}
	return out.Tags, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// decodeError rebuilds the server's coded error. Bodies that are not an
// error envelope get a code derived from the status.
func decodeError(status int, data []byte) error {
	var body respond.ErrorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Code != "" {
		return errs.New(errs.Code(body.Code), body.Error)
	}

	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return errs.New(codeForStatus(status), msg)
}

func codeForStatus(status int) errs.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return errs.Unauthenticated
	case http.StatusNotFound:
		return errs.NotFound
	case http.StatusBadRequest:
		return errs.InvalidArgument
	default:
		return errs.Internal
	}
}
