package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflying-tower/towerbot/reddit"
)

const goodRules = `
flair_actions:
  "Spam":
    - action: remove
post_flair:
  "Meme Monday":
    css_class: meme
    background_color: "#ff4500"
    text_color: light
    mod_only: false
removal_reasons:
  "Be excellent to each other":
    message: "Your post was removed for incivility."
`

func TestReloadRulesPublishesSnapshot(t *testing.T) {
	fake := NewFakeRedditClient()
	eng := NewTestEngine(fake)

	assert.Nil(t, eng.Rules())
	require.NoError(t, SetWikiRules(eng, fake, goodRules))

	rs := eng.Rules()
	require.NotNil(t, rs)
	assert.Contains(t, rs.FlairActions, "Spam")
}

func TestReloadRulesKeepsOldSnapshotOnParseError(t *testing.T) {
	fake := NewFakeRedditClient()
	eng := NewTestEngine(fake)
	require.NoError(t, SetWikiRules(eng, fake, goodRules))
	active := eng.Rules()

	// a broken document is reported, not applied, and not fatal
	require.NoError(t, SetWikiRules(eng, fake, "flair_actions:\n  \"Spam\":\n    - action: bogus\n"))

	assert.Same(t, active, eng.Rules())
	require.Len(t, fake.Modmails, 1)
	assert.Equal(t, "towerbot config error", fake.Modmails[0].Subject)
	assert.Contains(t, fake.Modmails[0].Body, "not a valid action")
	assert.Contains(t, fake.Modmails[0].Body, "testmod")
}

func TestReloadRulesWikiFetchErrorIsFatal(t *testing.T) {
	fake := NewFakeRedditClient()
	eng := NewTestEngine(fake)
	fake.WikiErr = assert.AnError

	err := eng.ReloadRules(context.Background())
	require.Error(t, err)
	assert.Nil(t, eng.Rules())
	assert.Empty(t, fake.Modmails)
}

func TestSyncCreatesThenLeavesAlone(t *testing.T) {
	fake := NewFakeRedditClient()
	eng := NewTestEngine(fake)

	require.NoError(t, SetWikiRules(eng, fake, goodRules))
	assert.Equal(t, 1, fake.FlairCreates)
	assert.Equal(t, 1, fake.ReasonCreates)

	// second reload with an unchanged document performs zero mutations
	before := fake.SyncMutations()
	require.NoError(t, eng.ReloadRules(context.Background()))
	assert.Equal(t, before, fake.SyncMutations())
}

func TestSyncUpdatesChangedDefinitions(t *testing.T) {
	fake := NewFakeRedditClient()
	eng := NewTestEngine(fake)
	require.NoError(t, SetWikiRules(eng, fake, goodRules))

	changed := `
post_flair:
  "Meme Monday":
    css_class: meme2
    background_color: "#ff4500"
    text_color: light
    mod_only: false
removal_reasons:
  "Be excellent to each other":
    message: "Updated message."
`
	require.NoError(t, SetWikiRules(eng, fake, changed))

	assert.Equal(t, 1, fake.FlairUpdates)
	assert.Equal(t, 1, fake.ReasonUpdates)
	// updated in place, never deleted and re-created
	assert.Equal(t, 1, fake.FlairCreates)
	assert.Equal(t, 1, fake.ReasonCreates)
	assert.Equal(t, "meme2", fake.Flairs[0].CSSClass)
	assert.Equal(t, "Updated message.", fake.Reasons[0].Message)
}

func TestSyncNeverDeletes(t *testing.T) {
	fake := NewFakeRedditClient()
	fake.Flairs = []reddit.FlairTemplate{{ID: "keep-1", Text: "Hand Made"}}
	fake.Reasons = []reddit.RemovalReason{{ID: "keep-2", Title: "Hand Made", Message: "kept"}}
	eng := NewTestEngine(fake)

	require.NoError(t, SetWikiRules(eng, fake, goodRules))

	texts := []string{}
	for _, f := range fake.Flairs {
		texts = append(texts, f.Text)
	}
	assert.Contains(t, texts, "Hand Made")

	titles := []string{}
	for _, r := range fake.Reasons {
		titles = append(titles, r.Title)
	}
	assert.Contains(t, titles, "Hand Made")
}

func TestSyncTogglesDisableReconciliation(t *testing.T) {
	fake := NewFakeRedditClient()
	eng := NewTestEngine(fake)

	doc := `
general_settings:
  enable_post_flair_sync: false
  enable_removal_reason_sync: false
` + goodRules
	require.NoError(t, SetWikiRules(eng, fake, doc))

	assert.Equal(t, 0, fake.SyncMutations())
	require.NotNil(t, eng.Rules())
}

func TestDumpCurrentSettings(t *testing.T) {
	fake := NewFakeRedditClient()
	fake.Flairs = []reddit.FlairTemplate{{ID: "f1", Text: "Meme Monday", CSSClass: "meme", BackgroundColor: "#ff4500", TextColor: "light"}}
	fake.Reasons = []reddit.RemovalReason{{ID: "r1", Title: "Be excellent to each other", Message: "Your post was removed."}}
	eng := NewTestEngine(fake)

	path := filepath.Join(t.TempDir(), "dump.yaml")
	require.NoError(t, eng.DumpCurrentSettings(context.Background(), path))

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Meme Monday")
	assert.Contains(t, string(out), "Be excellent to each other")
	assert.Contains(t, string(out), "Your post was removed.")
}
