// Package slack provides a thin client for the Slack Web API methods used to
// page through conversations and delete messages.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	slackapi "github.com/rusq/slack"
)

const (
	// DefaultBaseURL is the base URL for Slack's Web API.
	DefaultBaseURL = "https://slack.com/api"

	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultPageSize is the number of messages requested per history page.
	DefaultPageSize = 1000
)

// Client performs authenticated calls against the Slack Web API.
// It does not retry; callers decide what to do with a failed Response.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a new Web API client authenticating with the given
// bearer token.
func NewClient(token string) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL:    DefaultBaseURL,
	}
}

// WithBaseURL returns a new Client with the specified base URL.
// Useful for testing with mock servers.
func (c *Client) WithBaseURL(baseURL string) *Client {
	return &Client{
		token:      c.token,
		httpClient: c.httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// WithHTTPClient returns a new Client with the specified HTTP client.
// Useful for testing with custom transports.
func (c *Client) WithHTTPClient(client *http.Client) *Client {
	return &Client{
		token:      c.token,
		httpClient: client,
		baseURL:    c.baseURL,
	}
}

// ConversationHistory fetches one page of top-level channel history.
func (c *Client) ConversationHistory(ctx context.Context, channel, cursor string, limit int) (*Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := url.Values{}
	query.Set("channel", channel)
	query.Set("count", strconv.Itoa(limit))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("cursor", cursor)

	var resp pageResponse
	meta, err := c.call(ctx, "conversations.history", query, nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.page(meta), nil
}

// ConversationReplies fetches one page of the thread rooted at threadTS.
// The root message is included in the first page.
func (c *Client) ConversationReplies(ctx context.Context, channel, threadTS, cursor string) (*Page, error) {
	query := url.Values{}
	query.Set("channel", channel)
	query.Set("ts", threadTS)
	query.Set("cursor", cursor)

	var resp pageResponse
	meta, err := c.call(ctx, "conversations.replies", query, nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.page(meta), nil
}

// DeleteMessage deletes the message with timestamp ts from channel.
func (c *Client) DeleteMessage(ctx context.Context, channel, ts string) (*Response, error) {
	var resp slackapi.SlackResponse
	meta, err := c.call(ctx, "chat.delete", nil, deleteRequest{Channel: channel, TS: ts}, &resp)
	if err != nil {
		return nil, err
	}
	r := meta.response(resp)
	return &r, nil
}

// callMeta carries transport details that are not part of the JSON body.
type callMeta struct {
	statusCode int
	retryAfter time.Duration
}

// response merges the decoded body with transport details. A 429 is always
// reported as rate limited, whatever the body said.
func (m callMeta) response(body slackapi.SlackResponse) Response {
	r := Response{OK: body.Ok, Error: body.Error}
	if m.statusCode == http.StatusTooManyRequests {
		r.OK = false
		r.Error = ErrRateLimited
		r.RetryAfter = m.retryAfter
	}
	return r
}

// call issues a GET when payload is nil and a JSON POST otherwise, then
// decodes the response body into out.
func (c *Client) call(ctx context.Context, method string, query url.Values, payload any, out any) (callMeta, error) {
	endpoint := c.baseURL + "/" + method
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	httpMethod := http.MethodGet
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return callMeta{}, errors.Wrapf(err, "encoding %s request", method)
		}
		httpMethod = http.MethodPost
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, httpMethod, endpoint, body)
	if err != nil {
		return callMeta{}, errors.Wrapf(err, "creating %s request", method)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return callMeta{}, errors.Wrapf(err, "calling %s", method)
	}
	defer resp.Body.Close()

	meta := callMeta{statusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusTooManyRequests {
		meta.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return callMeta{}, errors.Wrapf(err, "reading %s response", method)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// A throttled response carries everything we need in its status.
		if resp.StatusCode == http.StatusTooManyRequests {
			return meta, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return callMeta{}, errors.Errorf("%s: unexpected status %d", method, resp.StatusCode)
		}
		return callMeta{}, errors.Wrapf(err, "decoding %s response", method)
	}
	return meta, nil
}

// parseRetryAfter reads a Retry-After header expressed in whole seconds.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
