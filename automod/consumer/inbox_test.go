package consumer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rflying-tower/towerbot/automod/engine"
	"github.com/rflying-tower/towerbot/reddit"
)

func inboxMsg(id, author, subject, body string) *reddit.Message {
	return &reddit.Message{
		ID:      id,
		Name:    reddit.KindMessage + "_" + id,
		Author:  author,
		Subject: subject,
		Body:    body,
		New:     true,
	}
}

func newInboxEnv(t *testing.T, rules string) (*engine.FakeRedditClient, *engine.Engine, context.Context, context.CancelFunc) {
	t.Helper()
	fake := engine.NewFakeRedditClient()
	eng := engine.NewTestEngine(fake)
	require.NoError(t, engine.SetWikiRules(eng, fake, rules))
	fake.Mods = []string{"a_mod", "another_mod"}
	fake.DrainedErr = errDrained
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return fake, eng, ctx, cancel
}

func runInboxWatcher(t *testing.T, eng *engine.Engine, ctx context.Context, cancel context.CancelFunc) error {
	t.Helper()
	w := &InboxWatcher{Engine: eng, Logger: testLogger(), Shutdown: cancel, PollInterval: time.Millisecond}
	return w.Run(ctx)
}

func TestInboxWatcherExitCommand(t *testing.T) {
	fake, eng, ctx, cancel := newInboxEnv(t, "")
	// messages present at startup are skipped; only the later exit counts
	fake.InboxQueue = [][]*reddit.Message{
		{inboxMsg("old1", "a_mod", "exit", "")},
		{inboxMsg("msg1", "a_mod", "exit", "")},
	}

	err := runInboxWatcher(t, eng, ctx, cancel)
	assert.NoError(t, err)

	assert.Equal(t, []string{"t4_msg1"}, fake.ReadMessages)
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestInboxWatcherReloadCommand(t *testing.T) {
	fake, eng, ctx, cancel := newInboxEnv(t, "")
	fetchesAfterSetup := fake.WikiFetches
	fake.InboxQueue = [][]*reddit.Message{
		{},
		{inboxMsg("msg1", "a_mod", "reload_config", "")},
	}

	err := runInboxWatcher(t, eng, ctx, cancel)
	assert.ErrorIs(t, err, errDrained)

	assert.Equal(t, fetchesAfterSetup+1, fake.WikiFetches)
	assert.Equal(t, []string{"t4_msg1"}, fake.ReadMessages)
}

func TestInboxWatcherDumpCommand(t *testing.T) {
	fake, eng, ctx, cancel := newInboxEnv(t, "")
	fake.Flairs = []reddit.FlairTemplate{{ID: "f1", Text: "Meme Monday"}}
	path := filepath.Join(t.TempDir(), "dump.yaml")
	fake.InboxQueue = [][]*reddit.Message{
		{},
		{inboxMsg("msg1", "a_mod", "dump_current_config", path)},
	}

	err := runInboxWatcher(t, eng, ctx, cancel)
	assert.ErrorIs(t, err, errDrained)

	out, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Meme Monday")
	assert.Equal(t, []string{"t4_msg1"}, fake.ReadMessages)
}

func TestInboxWatcherIgnoresNonModerators(t *testing.T) {
	fake, eng, ctx, cancel := newInboxEnv(t, "")
	fetchesAfterSetup := fake.WikiFetches
	fake.InboxQueue = [][]*reddit.Message{
		{},
		{
			inboxMsg("msg1", "random_user", "reload_config", ""),
			inboxMsg("msg2", "random_user", "exit", ""),
		},
	}

	err := runInboxWatcher(t, eng, ctx, cancel)
	assert.ErrorIs(t, err, errDrained)

	assert.Equal(t, fetchesAfterSetup, fake.WikiFetches)
	assert.Empty(t, fake.ReadMessages)
}

func TestInboxWatcherDisabledByToggle(t *testing.T) {
	fake, eng, ctx, cancel := newInboxEnv(t, `
general_settings:
  enable_inbox_actions: false
`)
	fake.InboxQueue = [][]*reddit.Message{
		{},
		{inboxMsg("msg1", "a_mod", "exit", "")},
	}

	err := runInboxWatcher(t, eng, ctx, cancel)
	assert.ErrorIs(t, err, errDrained)
	assert.Empty(t, fake.ReadMessages)
}

func TestInboxWatcherUnknownCommandLeftUnread(t *testing.T) {
	fake, eng, ctx, cancel := newInboxEnv(t, "")
	fake.InboxQueue = [][]*reddit.Message{
		{},
		{inboxMsg("msg1", "a_mod", "make_me_a_sandwich", "")},
	}

	err := runInboxWatcher(t, eng, ctx, cancel)
	assert.ErrorIs(t, err, errDrained)
	assert.Empty(t, fake.ReadMessages)
}
