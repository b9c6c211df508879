package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	client := NewClient("xoxp-123")

	assert.Equal(t, "xoxp-123", client.token)
	require.NotNil(t, client.httpClient)
	assert.Equal(t, DefaultHTTPTimeout, client.httpClient.Timeout)
	assert.Equal(t, DefaultBaseURL, client.baseURL)
}

func TestClient_WithBaseURL(t *testing.T) {
	original := NewClient("xoxp-123")

	modified := original.WithBaseURL("http://localhost:8080/api/")

	assert.Equal(t, "http://localhost:8080/api", modified.baseURL)
	assert.Equal(t, DefaultBaseURL, original.baseURL, "original must not change")
	assert.Same(t, original.httpClient, modified.httpClient)
	assert.Equal(t, original.token, modified.token)
}

func TestClient_WithHTTPClient(t *testing.T) {
	original := NewClient("xoxp-123")
	custom := &http.Client{Timeout: 5 * time.Second}

	modified := original.WithHTTPClient(custom)

	assert.Same(t, custom, modified.httpClient)
	assert.Equal(t, DefaultHTTPTimeout, original.httpClient.Timeout)
	assert.Equal(t, original.baseURL, modified.baseURL)
}

func TestConversationHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/conversations.history", r.URL.Path)
		assert.Equal(t, "Bearer xoxp-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		q := r.URL.Query()
		assert.Equal(t, "C123", q.Get("channel"))
		assert.Equal(t, "1000", q.Get("count"))
		assert.Equal(t, "dXNlcjpVMEc5V0ZYTlo=", q.Get("cursor"))

		_, _ = w.Write([]byte(`{
			"ok": true,
			"messages": [
				{"type": "message", "ts": "1700000001.000100", "text": "hello"},
				{"type": "message", "ts": "1700000002.000200", "thread_ts": "1700000002.000200", "reply_count": 2}
			],
			"has_more": true,
			"response_metadata": {"next_cursor": "bmV4dF90czoxNzAw"}
		}`))
	}))
	defer server.Close()

	client := NewClient("xoxp-test").WithBaseURL(server.URL)

	page, err := client.ConversationHistory(context.Background(), "C123", "dXNlcjpVMEc5V0ZYTlo=", 0)
	require.NoError(t, err)

	assert.True(t, page.OK)
	assert.True(t, page.HasMore)
	assert.Equal(t, "bmV4dF90czoxNzAw", page.NextCursor)
	assert.Equal(t, []Message{
		{TS: "1700000001.000100"},
		{TS: "1700000002.000200", ThreadTS: "1700000002.000200"},
	}, page.Messages)
}

func TestConversationHistory_IgnoresUnusualMessageFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"ok": true,
			"messages": [
				{"ts": "1.1", "attachments": [{"actions": [{"confirm": "yes"}]}]},
				{"ts": "2.2", "thread_ts": "2.2", "edited": false},
				{"ts": "3.3", "blocks": [{"type": "not_a_real_block", "x": 1}]}
			],
			"has_more": false
		}`))
	}))
	defer server.Close()

	page, err := NewClient("t").WithBaseURL(server.URL).ConversationHistory(context.Background(), "C1", "", 0)
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.True(t, page.OK)
	assert.Equal(t, []Message{
		{TS: "1.1"},
		{TS: "2.2", ThreadTS: "2.2"},
		{TS: "3.3"},
	}, page.Messages)
}

func TestConversationHistory_EmptyCursorIsSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["cursor"]
		assert.True(t, present, "cursor parameter should always be present")
		_, _ = w.Write([]byte(`{"ok": true, "messages": []}`))
	}))
	defer server.Close()

	page, err := NewClient("t").WithBaseURL(server.URL).ConversationHistory(context.Background(), "C1", "", 200)
	require.NoError(t, err)
	assert.Empty(t, page.Messages)
	assert.False(t, page.HasMore)
}

func TestConversationReplies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/conversations.replies", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "C123", q.Get("channel"))
		assert.Equal(t, "1700000002.000200", q.Get("ts"))
		assert.Equal(t, "", q.Get("cursor"))

		_, _ = w.Write([]byte(`{
			"ok": true,
			"messages": [
				{"ts": "1700000002.000200", "thread_ts": "1700000002.000200"},
				{"ts": "1700000003.000300", "thread_ts": "1700000002.000200"}
			],
			"has_more": false
		}`))
	}))
	defer server.Close()

	client := NewClient("xoxp-test").WithBaseURL(server.URL)

	page, err := client.ConversationReplies(context.Background(), "C123", "1700000002.000200", "")
	require.NoError(t, err)

	require.Len(t, page.Messages, 2)
	for _, m := range page.Messages {
		assert.Equal(t, ThreadScope("1700000002.000200"), m.Scope())
	}
}

func TestConversationReplies_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error": "thread_not_found"}`))
	}))
	defer server.Close()

	page, err := NewClient("t").WithBaseURL(server.URL).ConversationReplies(context.Background(), "C1", "1.2", "")
	require.NoError(t, err, "API failures are reported in the response, not as errors")
	assert.False(t, page.OK)
	assert.Equal(t, "thread_not_found", page.Error)
	assert.False(t, page.RateLimited())
}

func TestDeleteMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat.delete", r.URL.Path)
		assert.Equal(t, "application/json; charset=utf-8", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer xoxp-test", r.Header.Get("Authorization"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"channel": "C123", "ts": "1700000001.000100"}, body)

		_, _ = w.Write([]byte(`{"ok": true, "channel": "C123", "ts": "1700000001.000100"}`))
	}))
	defer server.Close()

	resp, err := NewClient("xoxp-test").WithBaseURL(server.URL).DeleteMessage(context.Background(), "C123", "1700000001.000100")
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Empty(t, resp.Error)
}

func TestDeleteMessage_RateLimitedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": false, "error": "ratelimited"}`))
	}))
	defer server.Close()

	resp, err := NewClient("t").WithBaseURL(server.URL).DeleteMessage(context.Background(), "C1", "1.1")
	require.NoError(t, err)
	assert.True(t, resp.RateLimited())
	assert.Zero(t, resp.RetryAfter)
}

func TestDeleteMessage_TooManyRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	resp, err := NewClient("t").WithBaseURL(server.URL).DeleteMessage(context.Background(), "C1", "1.1")
	require.NoError(t, err)
	assert.False(t, resp.OK)
	assert.Equal(t, ErrRateLimited, resp.Error)
	assert.Equal(t, 3*time.Second, resp.RetryAfter)
}

func TestCall_UnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	_, err := NewClient("t").WithBaseURL(server.URL).DeleteMessage(context.Background(), "C1", "1.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
}

func TestCall_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": tru`))
	}))
	defer server.Close()

	_, err := NewClient("t").WithBaseURL(server.URL).ConversationHistory(context.Background(), "C1", "", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding conversations.history response")
}

func TestCall_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient("t").WithBaseURL(url).DeleteMessage(context.Background(), "C1", "1.1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "calling chat.delete")
}

func TestCall_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient("t").WithBaseURL(server.URL).DeleteMessage(ctx, "C1", "1.1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"1", time.Second},
		{" 30 ", 30 * time.Second},
		{"-4", 0},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.in))
		})
	}
}

func TestDefaultConstants(t *testing.T) {
	assert.Equal(t, "https://slack.com/api", DefaultBaseURL)
	assert.Equal(t, 30*time.Second, DefaultHTTPTimeout)
	assert.Equal(t, 1000, DefaultPageSize)
}
