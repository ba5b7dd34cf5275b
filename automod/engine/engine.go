// Package engine is the runtime core of the bot: it owns the active ruleset
// snapshot, reconciles configuration with the platform, and dispatches
// flair-triggered moderation actions.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/rflying-tower/towerbot/automod/history"
	"github.com/rflying-tower/towerbot/automod/ruleset"
	"github.com/rflying-tower/towerbot/reddit"
)

// RedditClient is the slice of the Reddit API the engine and watchers use.
// Implemented by *reddit.Client; faked in tests.
type RedditClient interface {
	WikiPage(ctx context.Context, subreddit, page string) (*reddit.WikiPage, error)
	Submission(ctx context.Context, id string) (*reddit.Submission, error)
	Comment(ctx context.Context, id string) (*reddit.Comment, error)
	NewSubmissions(ctx context.Context, subreddit string, limit int) ([]*reddit.Submission, error)
	Reply(ctx context.Context, parentFullname, body string) (*reddit.Comment, error)
	Distinguish(ctx context.Context, fullname string, sticky bool) error
	Approve(ctx context.Context, fullname string) error
	Lock(ctx context.Context, fullname string) error
	Remove(ctx context.Context, fullname, reasonID string) error
	SendRemovalMessage(ctx context.Context, fullname, title, message string) error
	BanUser(ctx context.Context, subreddit, username, reason, message string) error
	FlairTemplates(ctx context.Context, subreddit string) ([]reddit.FlairTemplate, error)
	CreateFlairTemplate(ctx context.Context, subreddit string, tmpl reddit.FlairTemplate) error
	UpdateFlairTemplate(ctx context.Context, subreddit string, tmpl reddit.FlairTemplate) error
	RemovalReasons(ctx context.Context, subreddit string) ([]reddit.RemovalReason, error)
	CreateRemovalReason(ctx context.Context, subreddit, title, message string) error
	UpdateRemovalReason(ctx context.Context, subreddit string, reason reddit.RemovalReason) error
	Moderators(ctx context.Context, subreddit string) ([]string, error)
	ModLog(ctx context.Context, subreddit string, limit int) ([]*reddit.ModAction, error)
	UnreadMessages(ctx context.Context, limit int) ([]*reddit.Message, error)
	MarkRead(ctx context.Context, messageFullname string) error
	ComposeModmail(ctx context.Context, subreddit, subject, body string) error
}

// Engine executes rules and manages configuration state for one subreddit.
//
// The active Ruleset is an immutable snapshot behind an atomic pointer:
// reloads build the complete candidate first and publish it in one store, so
// no reader ever observes a partially-applied configuration.
type Engine struct {
	Logger        *slog.Logger
	Client        RedditClient
	History       history.Store
	Subreddit     string
	RulesWikiPage string
	Notifier      Notifier

	rules atomic.Pointer[ruleset.Ruleset]
}

// Rules returns the active ruleset snapshot, or nil before the first
// successful reload.
func (e *Engine) Rules() *ruleset.Ruleset {
	return e.rules.Load()
}

// notifyOperator delivers an error report through the platform's messaging
// channel (and slack, if configured). Notification failures are logged, not
// propagated: a broken reporting channel must not take the bot down.
func (e *Engine) notifyOperator(ctx context.Context, subject, body string) {
	operatorReports.Inc()
	if e.Notifier == nil {
		e.Logger.Warn("no operator notifier configured, dropping report", "subject", subject)
		return
	}
	if err := e.Notifier.SendOperatorReport(ctx, subject, body); err != nil {
		e.Logger.Error("failed to send operator report", "subject", subject, "err", err)
	}
}
