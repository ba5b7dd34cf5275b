package consumer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/rflying-tower/towerbot/automod/engine"
	"github.com/rflying-tower/towerbot/reddit"
)

// InboxWatcher takes operator commands over private message. Only messages
// from current subreddit moderators are honored; the moderator list is
// refreshed whenever the stream goes idle so mod roster changes are picked up
// without a restart.
type InboxWatcher struct {
	Engine   *engine.Engine
	Logger   *slog.Logger
	Shutdown context.CancelFunc

	// PollInterval overrides the stream poll cadence (tests).
	PollInterval time.Duration
}

func (w *InboxWatcher) Run(ctx context.Context) error {
	logger := w.Logger.With("watcher", "inbox")
	logger.Info("starting watch of bot inbox")

	for {
		mods, err := w.Engine.Client.Moderators(ctx, w.Engine.Subreddit)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				logger.Info("inbox watcher cancelled, exiting")
				w.Shutdown()
				return nil
			}
			watcherFailures.WithLabelValues("inbox").Inc()
			logger.Error("error fetching moderator list, exiting", "err", err)
			w.Shutdown()
			return err
		}

		// unread messages predating this start are left alone: an "exit" sent
		// to a bot that was down should not kill the next run
		stream := reddit.NewStream(
			func(ctx context.Context) ([]*reddit.Message, error) {
				return w.Engine.Client.UnreadMessages(ctx, defaultPageSize)
			},
			func(m *reddit.Message) string { return m.Name },
			reddit.StreamOpts{PauseAfter: 10, SkipExisting: true, Interval: w.PollInterval},
		)

		for {
			msg, err := stream.Next(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					logger.Info("inbox watcher cancelled, exiting")
					w.Shutdown()
					return nil
				}
				watcherFailures.WithLabelValues("inbox").Inc()
				logger.Error("server error in inbox watcher, exiting", "err", err)
				w.Shutdown()
				return err
			}
			if msg == nil {
				logger.Debug("pausing inbox stream, refreshing moderator list")
				break
			}

			inboxMessagesReceived.Inc()
			stop, err := w.handleMessage(ctx, logger, mods, msg)
			if err != nil {
				watcherFailures.WithLabelValues("inbox").Inc()
				logger.Error("error in inbox watcher, exiting", "err", err)
				w.Shutdown()
				return err
			}
			if stop {
				return nil
			}
		}
	}
}

// handleMessage dispatches one inbox message. stop reports that an exit
// command was accepted and the watcher should end cleanly.
func (w *InboxWatcher) handleMessage(ctx context.Context, logger *slog.Logger, mods []string, msg *reddit.Message) (stop bool, err error) {
	logger.Info("found new inbox message", "author", msg.Author, "subject", msg.Subject)

	rs := w.Engine.Rules()
	if rs == nil || !rs.GeneralSettings.EnableInboxActions {
		logger.Debug("inbox actions are disabled")
		return false, nil
	}
	if !slices.Contains(mods, msg.Author) {
		logger.Warn("ignoring inbox message from non-moderator", "author", msg.Author, "subject", msg.Subject)
		return false, nil
	}

	switch msg.Subject {
	case "dump_current_config":
		inboxCommands.WithLabelValues(msg.Subject).Inc()
		logger.Info("dumping current settings on operator request", "path", msg.Body)
		if err := w.Engine.DumpCurrentSettings(ctx, msg.Body); err != nil {
			logger.Error("failed to dump current settings", "err", err)
		}
		return false, w.Engine.Client.MarkRead(ctx, msg.Name)

	case "reload_config":
		inboxCommands.WithLabelValues(msg.Subject).Inc()
		logger.Info("reloading rules on operator request")
		if err := w.Engine.ReloadRules(ctx); err != nil {
			return false, err
		}
		return false, w.Engine.Client.MarkRead(ctx, msg.Name)

	case "exit":
		inboxCommands.WithLabelValues(msg.Subject).Inc()
		logger.Info("exit requested, shutting down", "author", msg.Author)
		if err := w.Engine.Client.MarkRead(ctx, msg.Name); err != nil {
			logger.Error("failed to mark exit message read", "err", err)
		}
		w.Shutdown()
		return true, nil

	default:
		logger.Warn("unknown inbox command", "subject", msg.Subject, "author", msg.Author)
		return false, nil
	}
}
