package reddit

import (
	"context"
	"time"
)

// FetchFunc returns one page of a listing, newest first.
type FetchFunc[T any] func(ctx context.Context) ([]*T, error)

type StreamOpts struct {
	// PauseAfter is the number of consecutive empty polls before Next
	// yields a nil item, giving the caller a chance to check for shutdown
	// or reconfigure. The counter resets after the pause is delivered.
	PauseAfter int

	// SkipExisting marks everything in the first fetch as already seen, so
	// only items arriving after the stream starts are delivered.
	SkipExisting bool

	// Interval between polls. Defaults to 5 seconds.
	Interval time.Duration
}

// Stream turns a poll-only listing endpoint into an ordered item stream:
// items are de-duplicated against a bounded seen-set and delivered oldest
// first. It is not safe for concurrent use; each watcher owns its stream.
type Stream[T any] struct {
	fetch    FetchFunc[T]
	fullname func(*T) string
	opts     StreamOpts

	seen       *boundedSet
	pending    []*T
	emptyPolls int
	primed     bool
	lastPoll   time.Time
}

func NewStream[T any](fetch FetchFunc[T], fullname func(*T) string, opts StreamOpts) *Stream[T] {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.PauseAfter <= 0 {
		opts.PauseAfter = 10
	}
	return &Stream[T]{
		fetch:    fetch,
		fullname: fullname,
		opts:     opts,
		seen:     newBoundedSet(301),
	}
}

// Next blocks until a new item arrives, the idle-pause threshold is reached
// (returned as a nil item with nil error), the fetch fails, or ctx is done.
func (s *Stream[T]) Next(ctx context.Context) (*T, error) {
	for {
		if len(s.pending) > 0 {
			item := s.pending[0]
			s.pending = s.pending[1:]
			return item, nil
		}
		if s.emptyPolls >= s.opts.PauseAfter {
			s.emptyPolls = 0
			return nil, nil
		}

		if s.primed {
			wait := s.opts.Interval - time.Since(s.lastPoll)
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-ctx.Done():
					timer.Stop()
					return nil, ctx.Err()
				}
			}
		}

		items, err := s.fetch(ctx)
		s.lastPoll = time.Now()
		if err != nil {
			return nil, err
		}

		firstPoll := !s.primed
		s.primed = true
		if firstPoll && s.opts.SkipExisting {
			for _, item := range items {
				s.seen.add(s.fullname(item))
			}
			continue
		}

		// listings are newest first; deliver oldest first
		for i := len(items) - 1; i >= 0; i-- {
			item := items[i]
			if s.seen.add(s.fullname(item)) {
				s.pending = append(s.pending, item)
			}
		}
		if len(s.pending) == 0 {
			s.emptyPolls++
		} else {
			s.emptyPolls = 0
		}
	}
}

// boundedSet is a FIFO set: once full, remembering a new member forgets the
// oldest. Sized to exceed the largest listing page so re-fetched items stay
// de-duplicated.
type boundedSet struct {
	max     int
	members map[string]struct{}
	order   []string
}

func newBoundedSet(max int) *boundedSet {
	return &boundedSet{
		max:     max,
		members: make(map[string]struct{}, max),
	}
}

// add returns true if the member was not already present.
func (b *boundedSet) add(member string) bool {
	if _, ok := b.members[member]; ok {
		return false
	}
	b.members[member] = struct{}{}
	b.order = append(b.order, member)
	if len(b.order) > b.max {
		oldest := b.order[0]
		b.order = b.order[1:]
		delete(b.members, oldest)
	}
	return true
}
