// Package purge deletes every message of a Slack channel, thread by thread,
// pacing calls so the Web API's rate limits are respected.
package purge

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/chrisedwards/slack-purge/internal/slack"
)

// Defaults for pacing. The delay grows by DefaultDelayStep on every
// rate-limited delete and never shrinks during a run.
const (
	DefaultDelay          = 300 * time.Millisecond
	DefaultRateLimitPause = 1000 * time.Millisecond
	DefaultDelayStep      = 100 * time.Millisecond
)

// API is the subset of the Slack Web API the driver needs.
type API interface {
	ConversationHistory(ctx context.Context, channel, cursor string, limit int) (*slack.Page, error)
	ConversationReplies(ctx context.Context, channel, threadTS, cursor string) (*slack.Page, error)
	DeleteMessage(ctx context.Context, channel, ts string) (*slack.Response, error)
}

// Options configures a Driver. Zero values select the defaults.
type Options struct {
	Delay          time.Duration // Initial pause after every processed message
	RateLimitPause time.Duration // Extra pause after a rate-limited delete
	DelayStep      time.Duration // Delay increase per rate-limited delete
	PageSize       int           // Messages requested per history page

	Out     io.Writer // Per-message results, defaults to os.Stdout
	ErrOut  io.Writer // Fetch failures, defaults to os.Stderr
	Sleeper Sleeper   // Defaults to RealSleeper
	Logger  *zerolog.Logger
}

// Driver walks a channel's history and deletes every message in it,
// recursing into threads. A Driver is not safe for concurrent use: calls
// are strictly sequential so at most one request is in flight.
type Driver struct {
	api     API
	channel string

	delay          time.Duration
	rateLimitPause time.Duration
	delayStep      time.Duration
	pageSize       int

	out     io.Writer
	errOut  io.Writer
	sleeper Sleeper
	log     zerolog.Logger

	stats Stats
}

// New creates a Driver that deletes messages from channel through api.
func New(api API, channel string, opts Options) *Driver {
	d := &Driver{
		api:            api,
		channel:        channel,
		delay:          opts.Delay,
		rateLimitPause: opts.RateLimitPause,
		delayStep:      opts.DelayStep,
		pageSize:       opts.PageSize,
		out:            opts.Out,
		errOut:         opts.ErrOut,
		sleeper:        opts.Sleeper,
		log:            zerolog.Nop(),
	}
	if d.delay == 0 {
		d.delay = DefaultDelay
	}
	if d.rateLimitPause == 0 {
		d.rateLimitPause = DefaultRateLimitPause
	}
	if d.delayStep == 0 {
		d.delayStep = DefaultDelayStep
	}
	if d.pageSize <= 0 {
		d.pageSize = slack.DefaultPageSize
	}
	if d.out == nil {
		d.out = os.Stdout
	}
	if d.errOut == nil {
		d.errOut = os.Stderr
	}
	if d.sleeper == nil {
		d.sleeper = RealSleeper{}
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	return d
}

// Delay returns the current pause applied after every processed message.
func (d *Driver) Delay() time.Duration {
	return d.delay
}

// Stats returns the counters accumulated so far.
func (d *Driver) Stats() Stats {
	s := d.stats
	s.FinalDelay = d.delay
	return s
}

// Run deletes the whole channel, starting from the newest history page.
// Individual delete failures do not fail the run; transport errors and
// cancellation do.
func (d *Driver) Run(ctx context.Context) (Stats, error) {
	d.log.Info().Str("channel", d.channel).Dur("delay", d.delay).Msg("starting purge")
	err := d.FetchAndDelete(ctx, slack.ChannelScope(), "")
	stats := d.Stats()
	d.log.Info().
		Int("deleted", stats.Deleted).
		Int("replies_deleted", stats.RepliesDeleted).
		Int("failed", stats.Failed).
		Int("rate_limited", stats.RateLimited).
		Int("fetch_failures", stats.FetchFailures).
		Dur("final_delay", stats.FinalDelay).
		Msg("purge finished")
	return stats, err
}

// FetchAndDelete pages through scope starting at cursor and deletes every
// message found. A failed fetch is reported and ends this scope without
// an error.
func (d *Driver) FetchAndDelete(ctx context.Context, scope slack.Scope, cursor string) error {
	for {
		page, err := d.fetch(ctx, scope, cursor)
		if err != nil {
			return err
		}
		if !page.OK {
			d.stats.FetchFailures++
			fmt.Fprintln(d.errOut, page.Error)
			return nil
		}
		if len(page.Messages) == 0 {
			return nil
		}

		if err := d.DeleteAll(ctx, scope, page.Messages); err != nil {
			return err
		}

		if !page.HasMore {
			return nil
		}
		cursor = page.NextCursor
	}
}

func (d *Driver) fetch(ctx context.Context, scope slack.Scope, cursor string) (*slack.Page, error) {
	d.log.Debug().Stringer("scope", scope).Str("cursor", cursor).Msg("fetching page")
	if threadTS, ok := scope.ThreadTS(); ok {
		return d.api.ConversationReplies(ctx, d.channel, threadTS, cursor)
	}
	return d.api.ConversationHistory(ctx, d.channel, cursor, d.pageSize)
}

// DeleteAll deletes messages one at a time, in order. A thread root met
// while scanning the channel is not deleted directly; its whole thread is
// fetched and deleted instead, which removes the root as well. Inside a
// thread every message is deleted directly, so recursion is one level deep.
func (d *Driver) DeleteAll(ctx context.Context, scope slack.Scope, messages []slack.Message) error {
	q := newQueue(messages)
	for {
		msg, ok := q.popFront()
		if !ok {
			return nil
		}

		if msgScope := msg.Scope(); !scope.IsThread() && msgScope.IsThread() {
			if err := d.FetchAndDelete(ctx, msgScope, ""); err != nil {
				return err
			}
		} else {
			retry, err := d.delete(ctx, scope, msg)
			if err != nil {
				return err
			}
			if retry {
				q.pushFront(msg)
			}
		}

		if err := d.sleeper.Sleep(ctx, d.delay); err != nil {
			return err
		}
	}
}

// delete issues one chat.delete call and reports whether msg must be
// retried before moving on.
func (d *Driver) delete(ctx context.Context, scope slack.Scope, msg slack.Message) (bool, error) {
	resp, err := d.api.DeleteMessage(ctx, d.channel, msg.TS)
	if err != nil {
		return false, err
	}

	if resp.OK {
		if scope.IsThread() {
			d.stats.RepliesDeleted++
			fmt.Fprintf(d.out, "%s reply deleted!\n", msg.TS)
		} else {
			d.stats.Deleted++
			fmt.Fprintf(d.out, "%s deleted!\n", msg.TS)
		}
		return false, nil
	}

	fmt.Fprintf(d.out, "%s could not be deleted! (%s)\n", msg.TS, resp.Error)
	if !resp.RateLimited() {
		d.stats.Failed++
		return false, nil
	}

	d.stats.RateLimited++
	pause := d.rateLimitPause
	if resp.RetryAfter > pause {
		pause = resp.RetryAfter
	}
	if err := d.sleeper.Sleep(ctx, pause); err != nil {
		return false, err
	}
	d.delay += d.delayStep
	d.log.Warn().Str("ts", msg.TS).Dur("pause", pause).Dur("delay", d.delay).Msg("rate limited, slowing down")
	return true, nil
}
