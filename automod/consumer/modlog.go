// Package consumer holds the three long-running watchers that pull event
// streams from the platform and feed the engine. All three share a failure
// policy: transport errors, cancellation, and unhandled processing errors
// are fatal to the watcher, which triggers the shared shutdown before its
// task ends; restart is the deployment layer's job.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rflying-tower/towerbot/automod/engine"
	"github.com/rflying-tower/towerbot/reddit"
)

const defaultPageSize = 100

// ModlogWatcher reacts to moderation log entries: flair edits trigger flair
// rules, edits of the rules wiki page trigger a config reload, and platform
// ban-evasion reports trigger remove-and-ban.
type ModlogWatcher struct {
	Engine   *engine.Engine
	Logger   *slog.Logger
	Shutdown context.CancelFunc

	// PollInterval overrides the stream poll cadence (tests).
	PollInterval time.Duration
}

func (w *ModlogWatcher) Run(ctx context.Context) error {
	logger := w.Logger.With("watcher", "modlog")
	logger.Info("starting watch of mod log", "subreddit", w.Engine.Subreddit)

	stream := reddit.NewStream(
		func(ctx context.Context) ([]*reddit.ModAction, error) {
			return w.Engine.Client.ModLog(ctx, w.Engine.Subreddit, defaultPageSize)
		},
		func(a *reddit.ModAction) string { return a.ID },
		reddit.StreamOpts{PauseAfter: 10, SkipExisting: true, Interval: w.PollInterval},
	)

	for {
		entry, err := stream.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("modlog watcher cancelled, exiting")
				w.Shutdown()
				return nil
			}
			watcherFailures.WithLabelValues("modlog").Inc()
			logger.Error("server error in modlog watcher, exiting", "err", err)
			w.Shutdown()
			return err
		}
		if entry == nil {
			logger.Debug("pausing modlog stream")
			continue
		}

		modlogEntriesReceived.Inc()
		if err := w.handleEntry(ctx, logger, entry); err != nil {
			watcherFailures.WithLabelValues("modlog").Inc()
			logger.Error("error in modlog watcher, exiting", "err", err)
			w.Shutdown()
			return err
		}
	}
}

func (w *ModlogWatcher) handleEntry(ctx context.Context, logger *slog.Logger, entry *reddit.ModAction) (err error) {
	// recover panics from rule execution, same as an HTTP server would
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("modlog event processing panicked: %v", r)
		}
	}()

	logger.Info("found new modlog entry",
		"mod", entry.Mod, "action", entry.Action, "details", entry.Details, "target", entry.TargetPermalink)

	if entry.Action == "editflair" && strings.HasPrefix(entry.TargetFullname, reddit.KindSubmission+"_") {
		id := strings.TrimPrefix(entry.TargetFullname, reddit.KindSubmission+"_")
		post, err := w.Engine.Client.Submission(ctx, id)
		if err != nil {
			return err
		}
		if err := w.Engine.CheckPostFlair(ctx, post); err != nil {
			return err
		}
	}

	if entry.Action == "wikirevise" && entry.Details == fmt.Sprintf("Page %s edited", w.Engine.RulesWikiPage) {
		if err := w.Engine.ReloadRules(ctx); err != nil {
			return err
		}
	}

	if entry.Details == "Ban Evasion" && entry.Mod == "reddit" {
		rs := w.Engine.Rules()
		if rs == nil || !rs.GeneralSettings.EnableFlairActions {
			logger.Debug("handling ban evaders is disabled")
			return nil
		}
		return w.handleBanEvasionEntry(ctx, logger, entry)
	}
	return nil
}

func (w *ModlogWatcher) handleBanEvasionEntry(ctx context.Context, logger *slog.Logger, entry *reddit.ModAction) error {
	var fullname, author, permalink string
	switch {
	case strings.HasPrefix(entry.TargetFullname, reddit.KindComment+"_"):
		c, err := w.Engine.Client.Comment(ctx, strings.TrimPrefix(entry.TargetFullname, reddit.KindComment+"_"))
		if err != nil {
			return err
		}
		fullname, author, permalink = c.Name, c.Author, c.Permalink
	case strings.HasPrefix(entry.TargetFullname, reddit.KindSubmission+"_"):
		s, err := w.Engine.Client.Submission(ctx, strings.TrimPrefix(entry.TargetFullname, reddit.KindSubmission+"_"))
		if err != nil {
			return err
		}
		fullname, author, permalink = s.Name, s.Author, s.Permalink
	default:
		logger.Warn("unexpected target type for ban evasion", "target_fullname", entry.TargetFullname)
		return nil
	}
	if author == "" {
		return nil
	}
	return w.Engine.HandleBanEvasion(ctx, fullname, author, permalink)
}
