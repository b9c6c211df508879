package slack

import (
	"time"

	slackapi "github.com/rusq/slack"
)

// ErrRateLimited is the API error code returned when the caller must slow down.
const ErrRateLimited = "ratelimited"

// Scope identifies where a message lives: the channel itself or a thread
// within it. The zero value is the channel scope.
type Scope struct {
	threadTS string
	inThread bool
}

// ChannelScope returns the scope of top-level channel history.
func ChannelScope() Scope {
	return Scope{}
}

// ThreadScope returns the scope of the thread rooted at threadTS.
func ThreadScope(threadTS string) Scope {
	return Scope{threadTS: threadTS, inThread: true}
}

// ThreadTS returns the thread root timestamp and whether the scope is a thread.
func (s Scope) ThreadTS() (string, bool) {
	return s.threadTS, s.inThread
}

// IsThread reports whether the scope is a thread.
func (s Scope) IsThread() bool {
	return s.inThread
}

func (s Scope) String() string {
	if !s.inThread {
		return "channel"
	}
	return "thread " + s.threadTS
}

// Message is the subset of a Slack message needed to delete it.
type Message struct {
	TS       string // Message timestamp, unique within a channel
	ThreadTS string // Root timestamp of the message's thread, empty if none
}

// Scope returns the scope the message belongs to. Messages without a
// thread_ts belong to the channel; thread roots and replies belong to
// their thread.
func (m Message) Scope() Scope {
	if m.ThreadTS == "" {
		return ChannelScope()
	}
	return ThreadScope(m.ThreadTS)
}

// Response is the outcome of an API call as reported by the remote service.
type Response struct {
	OK         bool          // Call succeeded
	Error      string        // API error code when OK is false
	RetryAfter time.Duration // Server-requested wait, set on HTTP 429
}

// RateLimited reports whether the call was rejected by rate limiting.
func (r Response) RateLimited() bool {
	return !r.OK && r.Error == ErrRateLimited
}

// Page is one page of channel history or thread replies.
type Page struct {
	Response
	Messages   []Message
	HasMore    bool
	NextCursor string
}

// pageResponse is the wire shape shared by conversations.history and
// conversations.replies.
type pageResponse struct {
	slackapi.SlackResponse
	HasMore  bool          `json:"has_more"`
	Messages []wireMessage `json:"messages"`
}

// wireMessage decodes only the fields needed to delete a message, so
// unusual attachment or block payloads never fail a page.
type wireMessage struct {
	TS       string `json:"ts"`
	ThreadTS string `json:"thread_ts"`
}

func (r *pageResponse) page(meta callMeta) *Page {
	p := &Page{
		Response:   meta.response(r.SlackResponse),
		HasMore:    r.HasMore,
		NextCursor: r.ResponseMetadata.Cursor,
	}
	if len(r.Messages) > 0 {
		p.Messages = make([]Message, 0, len(r.Messages))
		for _, m := range r.Messages {
			p.Messages = append(p.Messages, Message{
				TS:       m.TS,
				ThreadTS: m.ThreadTS,
			})
		}
	}
	return p
}

// deleteRequest is the chat.delete payload.
type deleteRequest struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}
