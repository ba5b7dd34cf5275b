package engine

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rflying-tower/towerbot/automod/ruleset"
	"github.com/rflying-tower/towerbot/reddit"
)

// ReloadRules fetches the rules wiki page, parses and validates it, and on
// success publishes the new snapshot and reconciles flair and removal-reason
// definitions with the platform.
//
// A parse or validation failure is non-fatal: the previous ruleset stays
// active and the operators get a report naming the error and the page's last
// editor. A wiki fetch or sync failure is returned to the caller.
func (e *Engine) ReloadRules(ctx context.Context) error {
	e.Logger.Info("updating rules from wiki", "page", e.RulesWikiPage)
	page, err := e.Client.WikiPage(ctx, e.Subreddit, e.RulesWikiPage)
	if err != nil {
		return fmt.Errorf("fetching rules wiki page: %w", err)
	}

	rs, err := ruleset.Parse([]byte(page.ContentMD))
	if err != nil {
		configReloadErrors.Inc()
		e.Logger.Error("error loading rules from wiki", "err", err)
		e.notifyOperator(ctx, "towerbot config error",
			fmt.Sprintf("While trying to reload the config wiki page %q an error occurred:\n\n```\n%s\n```\n\nThe page was last modified by: %s",
				e.RulesWikiPage, err, page.RevisionBy))
		return nil
	}

	e.rules.Store(rs)
	configReloads.Inc()

	if rs.GeneralSettings.EnablePostFlairSync && len(rs.PostFlair) > 0 {
		e.Logger.Info("syncing post flair")
		if err := e.SyncPostFlair(ctx, rs.PostFlair); err != nil {
			return fmt.Errorf("syncing post flair: %w", err)
		}
	}
	if rs.GeneralSettings.EnableRemovalReasonSync && len(rs.RemovalReasons) > 0 {
		e.Logger.Info("syncing removal reasons")
		if err := e.SyncRemovalReasons(ctx, rs.RemovalReasons); err != nil {
			return fmt.Errorf("syncing removal reasons: %w", err)
		}
	}
	return nil
}

// SyncPostFlair reconciles the subreddit's link flair templates with the
// ruleset: missing flair is created, differing flair is updated in place,
// matching flair is untouched. Flair not named in the ruleset is never
// deleted. Running twice with no changes performs zero mutations.
func (e *Engine) SyncPostFlair(ctx context.Context, rules map[string]ruleset.PostFlairSettings) error {
	existing, err := e.Client.FlairTemplates(ctx, e.Subreddit)
	if err != nil {
		return err
	}
	byText := make(map[string]reddit.FlairTemplate, len(existing))
	for _, tmpl := range existing {
		byText[tmpl.Text] = tmpl
	}

	for text, want := range rules {
		cur, ok := byText[text]
		if !ok {
			e.Logger.Info("adding post flair", "flair", text)
			if err := e.Client.CreateFlairTemplate(ctx, e.Subreddit, reddit.FlairTemplate{
				Text:            text,
				CSSClass:        want.CSSClass,
				BackgroundColor: want.BackgroundColor,
				TextColor:       want.TextColor,
				ModOnly:         want.ModOnly,
			}); err != nil {
				return err
			}
			continue
		}
		if cur.CSSClass == want.CSSClass && cur.BackgroundColor == want.BackgroundColor &&
			cur.TextColor == want.TextColor && cur.ModOnly == want.ModOnly {
			e.Logger.Debug("post flair matches existing definition, skipping", "flair", text)
			continue
		}
		e.Logger.Info("updating post flair", "flair", text)
		if err := e.Client.UpdateFlairTemplate(ctx, e.Subreddit, reddit.FlairTemplate{
			ID:              cur.ID,
			Text:            text,
			CSSClass:        want.CSSClass,
			BackgroundColor: want.BackgroundColor,
			TextColor:       want.TextColor,
			ModOnly:         want.ModOnly,
		}); err != nil {
			return err
		}
	}
	return nil
}

// SyncRemovalReasons reconciles removal reasons with the ruleset, keyed by
// title. Same add-or-update-never-delete policy as SyncPostFlair.
func (e *Engine) SyncRemovalReasons(ctx context.Context, rules map[string]ruleset.RemovalReasonSettings) error {
	existing, err := e.Client.RemovalReasons(ctx, e.Subreddit)
	if err != nil {
		return err
	}
	byTitle := make(map[string]reddit.RemovalReason, len(existing))
	for _, reason := range existing {
		byTitle[reason.Title] = reason
	}

	for title, want := range rules {
		cur, ok := byTitle[title]
		if !ok {
			e.Logger.Info("adding removal reason", "title", title)
			if err := e.Client.CreateRemovalReason(ctx, e.Subreddit, title, want.Message); err != nil {
				return err
			}
			continue
		}
		if cur.Message == want.Message {
			e.Logger.Debug("removal reason matches existing definition, skipping", "title", title)
			continue
		}
		e.Logger.Info("updating removal reason", "title", title)
		if err := e.Client.UpdateRemovalReason(ctx, e.Subreddit, reddit.RemovalReason{
			ID:      cur.ID,
			Title:   title,
			Message: want.Message,
		}); err != nil {
			return err
		}
	}
	return nil
}

// DumpCurrentSettings writes the subreddit's live post flair and removal
// reason definitions, fetched fresh from the platform, to path in the same
// YAML schema the rules wiki page uses.
func (e *Engine) DumpCurrentSettings(ctx context.Context, path string) error {
	flairs, err := e.Client.FlairTemplates(ctx, e.Subreddit)
	if err != nil {
		return err
	}
	reasons, err := e.Client.RemovalReasons(ctx, e.Subreddit)
	if err != nil {
		return err
	}

	var rs ruleset.Ruleset
	rs.PostFlair = make(map[string]ruleset.PostFlairSettings, len(flairs))
	for _, tmpl := range flairs {
		rs.PostFlair[tmpl.Text] = ruleset.PostFlairSettings{
			CSSClass:        tmpl.CSSClass,
			BackgroundColor: tmpl.BackgroundColor,
			TextColor:       tmpl.TextColor,
			ModOnly:         tmpl.ModOnly,
		}
	}
	rs.RemovalReasons = make(map[string]ruleset.RemovalReasonSettings, len(reasons))
	for _, reason := range reasons {
		rs.RemovalReasons[reason.Title] = ruleset.RemovalReasonSettings{Message: reason.Message}
	}

	out, err := yaml.Marshal(&rs)
	if err != nil {
		return fmt.Errorf("serializing current settings: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("writing settings dump: %w", err)
	}
	e.Logger.Info("dumped current settings", "path", path, "post_flair", len(flairs), "removal_reasons", len(reasons))
	return nil
}
