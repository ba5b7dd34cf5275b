package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rflying-tower/towerbot/automod/engine"
	"github.com/rflying-tower/towerbot/reddit"
)

// saveAction is the ledger action key for posterity comments.
const saveAction = "save_post_body"

// PostWatcher follows new submissions and preserves a copy of each self-post
// body in a stickied, locked bot comment, so the text survives author edits
// and deletions. The history ledger keeps the comment from being posted
// twice across restarts.
type PostWatcher struct {
	Engine   *engine.Engine
	Logger   *slog.Logger
	Shutdown context.CancelFunc

	// PollInterval overrides the stream poll cadence (tests).
	PollInterval time.Duration

	// RateLimitBackoff is how long to hold off after the platform reports a
	// rate limit. Defaults to 15 minutes.
	RateLimitBackoff time.Duration
}

func (w *PostWatcher) Run(ctx context.Context) error {
	logger := w.Logger.With("watcher", "posts")
	logger.Info("starting watch of incoming posts", "subreddit", w.Engine.Subreddit)

	// The first pass replays the current /new listing so posts made while the
	// bot was down get their posterity comment (the ledger suppresses ones
	// already handled). Once the stream goes idle the backlog is done, and the
	// stream is rebuilt in skip-existing mode to follow fresh posts only.
	skipExisting := false
	for {
		stream := reddit.NewStream(
			func(ctx context.Context) ([]*reddit.Submission, error) {
				return w.Engine.Client.NewSubmissions(ctx, w.Engine.Subreddit, defaultPageSize)
			},
			func(s *reddit.Submission) string { return s.Name },
			reddit.StreamOpts{PauseAfter: 6, SkipExisting: skipExisting, Interval: w.PollInterval},
		)

		for {
			post, err := stream.Next(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("post watcher cancelled, exiting")
					w.Shutdown()
					return nil
				}
				watcherFailures.WithLabelValues("posts").Inc()
				logger.Error("server error in post watcher, exiting", "err", err)
				w.Shutdown()
				return err
			}
			if post == nil {
				logger.Debug("pausing post stream")
				skipExisting = true
				break
			}

			postsReceived.Inc()
			if err := w.handlePost(ctx, logger, post); err != nil {
				watcherFailures.WithLabelValues("posts").Inc()
				logger.Error("error in post watcher, exiting", "err", err)
				w.Shutdown()
				return err
			}
		}
	}
}

func (w *PostWatcher) handlePost(ctx context.Context, logger *slog.Logger, post *reddit.Submission) error {
	logger.Info("found new post", "author", post.Author, "post", post.Permalink)

	rs := w.Engine.Rules()
	if rs == nil || !rs.GeneralSettings.EnableCreatePosterityComments {
		logger.Debug("posterity comments are disabled")
		return nil
	}
	if rs.PosterityCommentSettings.Ignored(post.Author) {
		logger.Debug("author is on the posterity comment ignore list", "author", post.Author)
		return nil
	}
	if post.SelfText == "" {
		return nil
	}

	n, err := w.Engine.History.Count(ctx, post.Permalink, saveAction)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Debug("post body already saved", "post", post.Permalink)
		return nil
	}

	body := "This is a copy of the original post body for posterity:\n\n --- \n" +
		engine.TruncateBody(post.SelfText) +
		" \n\n --- \n Please downvote this comment until it collapses.\n\n"

	c, err := w.Engine.Client.Reply(ctx, post.Name, w.Engine.FormatComment(body))
	if err != nil {
		if reddit.IsRateLimit(err) {
			// back off without recording, so the post is retried once the
			// quota recovers
			logger.Warn("hit the rate limit, sleeping", "backoff", w.backoff(), "err", err)
			timer := time.NewTimer(w.backoff())
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			return nil
		}
		if reddit.IsAPIError(err) {
			logger.Error("API error making posterity comment, marking post as processed and moving on",
				"post", post.Permalink, "err", err)
			return w.Engine.History.Record(ctx, post.Permalink, saveAction)
		}
		return err
	}
	if c == nil {
		logger.Error("making posterity comment seems to have failed", "post", post.Permalink)
		return nil
	}

	if err := w.Engine.Client.Distinguish(ctx, c.Name, false); err != nil {
		return err
	}
	if err := w.Engine.Client.Lock(ctx, c.Name); err != nil {
		return err
	}
	postsArchived.Inc()
	return w.Engine.History.Record(ctx, post.Permalink, saveAction)
}

func (w *PostWatcher) backoff() time.Duration {
	if w.RateLimitBackoff > 0 {
		return w.RateLimitBackoff
	}
	return 15 * time.Minute
}
