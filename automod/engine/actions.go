package engine

import (
	"context"
	"fmt"

	"github.com/rflying-tower/towerbot/automod/ruleset"
	"github.com/rflying-tower/towerbot/reddit"
)

// BanEvasionReason is the fixed ban reason/message used for platform-flagged
// ban evaders; it is not configurable through the ruleset.
const BanEvasionReason = "Ban evasion"

// CheckPostFlair evaluates the flair-action rules against a submission's
// current flair, executing each configured action in order.
//
// An action kind the dispatcher does not implement is returned as an error:
// a bad rule already live in the active ruleset is a deployment bug worth
// stopping the watcher for, unlike a bad candidate ruleset at parse time.
func (e *Engine) CheckPostFlair(ctx context.Context, post *reddit.Submission) error {
	rs := e.Rules()
	if rs == nil || !rs.GeneralSettings.EnableFlairActions {
		e.Logger.Debug("flair actions are disabled")
		return nil
	}
	if len(rs.FlairActions) == 0 {
		e.Logger.Warn("no flair actions defined in the ruleset")
		return nil
	}

	actions, ok := rs.FlairActions[post.LinkFlairText]
	if !ok {
		return nil
	}
	e.Logger.Info("found post with actionable flair", "flair", post.LinkFlairText, "post", post.Permalink)

	for _, action := range actions {
		actionsExecuted.WithLabelValues(string(action.Action)).Inc()
		switch action.Action {
		case ruleset.ActionComment:
			if err := e.ActionComment(ctx, post, action.Argument); err != nil {
				return err
			}
		case ruleset.ActionRemove:
			if err := e.ActionRemoveWithReason(ctx, post.Name, post.Permalink, ""); err != nil {
				return err
			}
		case ruleset.ActionRemoveWithReason:
			if err := e.ActionRemoveWithReason(ctx, post.Name, post.Permalink, action.Argument); err != nil {
				return err
			}
		default:
			return fmt.Errorf("flair action %q not implemented", action.Action)
		}
	}
	return nil
}

// ActionComment replies to a post with body plus the bot disclaimer footer,
// then distinguishes the reply as a stickied mod comment and approves it.
func (e *Engine) ActionComment(ctx context.Context, post *reddit.Submission, body string) error {
	e.Logger.Info("commenting on post", "author", post.Author, "post", post.Permalink)
	c, err := e.Client.Reply(ctx, post.Name, e.FormatComment(body))
	if err != nil {
		return err
	}
	if c == nil {
		e.Logger.Error("making comment seems to have failed", "post", post.Permalink)
		return nil
	}
	if err := e.Client.Distinguish(ctx, c.Name, true); err != nil {
		return err
	}
	return e.Client.Approve(ctx, c.Name)
}

// ActionRemove removes a thing without citing a pre-canned reason.
func (e *Engine) ActionRemove(ctx context.Context, fullname, permalink string) error {
	return e.ActionRemoveWithReason(ctx, fullname, permalink, "")
}

// ActionRemoveWithReason removes a thing. With a reason title, the title is
// resolved against the subreddit's live removal reasons (exact match): if it
// resolves, the removal cites the reason's id and the reason text is sent to
// the author as a private removal notice; if it does not, nothing is removed
// and the operators get an error report instead.
func (e *Engine) ActionRemoveWithReason(ctx context.Context, fullname, permalink, reasonTitle string) error {
	if reasonTitle == "" {
		e.Logger.Info("removing post", "post", permalink)
		return e.Client.Remove(ctx, fullname, "")
	}

	reasons, err := e.Client.RemovalReasons(ctx, e.Subreddit)
	if err != nil {
		return err
	}
	var found *reddit.RemovalReason
	for i := range reasons {
		if reasons[i].Title == reasonTitle {
			found = &reasons[i]
			break
		}
	}
	if found == nil {
		e.Logger.Error("invalid removal reason", "title", reasonTitle)
		e.notifyOperator(ctx, "towerbot config error",
			fmt.Sprintf("While trying to remove the post %s, the reason %q was given.\n\nHowever, no removal reason with the title %q could be found.",
				permalink, reasonTitle, reasonTitle))
		return nil
	}

	e.Logger.Info("removing post", "post", permalink, "reason", reasonTitle)
	if err := e.Client.Remove(ctx, fullname, found.ID); err != nil {
		return err
	}
	return e.Client.SendRemovalMessage(ctx, fullname, found.Title, found.Message)
}

// ActionBan adds a user to the subreddit's ban list. reason shows in the mod
// log; message, if any, is delivered to the banned user.
func (e *Engine) ActionBan(ctx context.Context, username, reason, message string) error {
	e.Logger.Info("banning user", "user", username, "reason", reason)
	return e.Client.BanUser(ctx, e.Subreddit, username, reason, message)
}

// HandleBanEvasion is the combined remediation for a platform-detected ban
// evader: remove the offending content and ban its author.
func (e *Engine) HandleBanEvasion(ctx context.Context, fullname, author, permalink string) error {
	e.Logger.Warn("detected ban evasion, removing and banning", "user", author, "target", permalink)
	if err := e.ActionRemove(ctx, fullname, permalink); err != nil {
		return err
	}
	return e.ActionBan(ctx, author, BanEvasionReason, BanEvasionReason)
}
