package purge

import "time"

// Stats summarises a purge run.
type Stats struct {
	Deleted        int           // Top-level messages deleted
	RepliesDeleted int           // Messages deleted inside threads, roots included
	Failed         int           // Deletes rejected for a reason other than rate limiting
	RateLimited    int           // Deletes rejected by rate limiting and retried
	FetchFailures  int           // History or replies pages the API refused
	FinalDelay     time.Duration // Pause between messages when the run ended
}

// Total returns the number of messages deleted.
func (s Stats) Total() int {
	return s.Deleted + s.RepliesDeleted
}
