package purge

import "github.com/chrisedwards/slack-purge/internal/slack"

// queue holds the messages of one scope still waiting to be processed.
// Items leave from the front; a rate-limited item goes back to the front.
type queue struct {
	items []slack.Message
	head  int
}

func newQueue(messages []slack.Message) *queue {
	items := make([]slack.Message, len(messages))
	copy(items, messages)
	return &queue{items: items}
}

func (q *queue) len() int {
	return len(q.items) - q.head
}

func (q *queue) popFront() (slack.Message, bool) {
	if q.len() == 0 {
		return slack.Message{}, false
	}
	m := q.items[q.head]
	q.items[q.head] = slack.Message{}
	q.head++
	return m, true
}

func (q *queue) pushFront(m slack.Message) {
	if q.head > 0 {
		q.head--
		q.items[q.head] = m
		return
	}
	q.items = append([]slack.Message{m}, q.items...)
}
