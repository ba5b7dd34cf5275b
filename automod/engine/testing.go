package engine

// test helpers and fakes: in a non-test file so that consumer packages can
// use them in their own tests.

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rflying-tower/towerbot/automod/history"
	"github.com/rflying-tower/towerbot/reddit"
)

type FakeReply struct {
	Parent string
	Body   string
}

type FakeRemoval struct {
	Fullname string
	ReasonID string
}

type FakeRemovalMessage struct {
	Fullname string
	Title    string
	Message  string
}

type FakeBan struct {
	Username string
	Reason   string
	Message  string
}

type FakeDistinguish struct {
	Fullname string
	Sticky   bool
}

type FakeModmail struct {
	Subject string
	Body    string
}

// FakeRedditClient implements RedditClient against in-memory state,
// recording every mutation. Listing endpoints pop batches off queues; when a
// queue runs dry the fetch returns DrainedErr (or empty results if unset),
// which lets watcher tests drive the stream to a pause or a fatal error.
type FakeRedditClient struct {
	mu sync.Mutex

	WikiPages   map[string]*reddit.WikiPage
	WikiErr     error
	WikiFetches int

	Submissions map[string]*reddit.Submission
	CommentsByID map[string]*reddit.Comment

	Flairs  []reddit.FlairTemplate
	Reasons []reddit.RemovalReason
	Mods    []string

	ModLogQueue [][]*reddit.ModAction
	PostQueue   [][]*reddit.Submission
	InboxQueue  [][]*reddit.Message
	DrainedErr  error

	ReplyErr error
	ReplyNil bool

	Replies         []FakeReply
	Removals        []FakeRemoval
	RemovalMessages []FakeRemovalMessage
	Bans            []FakeBan
	Distinguished   []FakeDistinguish
	Approved        []string
	Locked          []string
	ReadMessages    []string
	Modmails        []FakeModmail

	FlairCreates  int
	FlairUpdates  int
	ReasonCreates int
	ReasonUpdates int

	replySeq int
}

var _ RedditClient = (*FakeRedditClient)(nil)

func NewFakeRedditClient() *FakeRedditClient {
	return &FakeRedditClient{
		WikiPages:    make(map[string]*reddit.WikiPage),
		Submissions:  make(map[string]*reddit.Submission),
		CommentsByID: make(map[string]*reddit.Comment),
	}
}

// SyncMutations returns how many flair/removal-reason mutations have been
// performed, for idempotency assertions.
func (f *FakeRedditClient) SyncMutations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.FlairCreates + f.FlairUpdates + f.ReasonCreates + f.ReasonUpdates
}

func (f *FakeRedditClient) WikiPage(ctx context.Context, subreddit, page string) (*reddit.WikiPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.WikiFetches++
	if f.WikiErr != nil {
		return nil, f.WikiErr
	}
	p, ok := f.WikiPages[page]
	if !ok {
		return nil, fmt.Errorf("wiki page %s not found", page)
	}
	return p, nil
}

func (f *FakeRedditClient) Submission(ctx context.Context, id string) (*reddit.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Submissions[id]
	if !ok {
		return nil, fmt.Errorf("submission %s not found", id)
	}
	return s, nil
}

func (f *FakeRedditClient) Comment(ctx context.Context, id string) (*reddit.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.CommentsByID[id]
	if !ok {
		return nil, fmt.Errorf("comment %s not found", id)
	}
	return c, nil
}

func (f *FakeRedditClient) NewSubmissions(ctx context.Context, subreddit string, limit int) ([]*reddit.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.PostQueue) == 0 {
		return nil, f.DrainedErr
	}
	batch := f.PostQueue[0]
	f.PostQueue = f.PostQueue[1:]
	return batch, nil
}

func (f *FakeRedditClient) ModLog(ctx context.Context, subreddit string, limit int) ([]*reddit.ModAction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ModLogQueue) == 0 {
		return nil, f.DrainedErr
	}
	batch := f.ModLogQueue[0]
	f.ModLogQueue = f.ModLogQueue[1:]
	return batch, nil
}

func (f *FakeRedditClient) UnreadMessages(ctx context.Context, limit int) ([]*reddit.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.InboxQueue) == 0 {
		return nil, f.DrainedErr
	}
	batch := f.InboxQueue[0]
	f.InboxQueue = f.InboxQueue[1:]
	return batch, nil
}

func (f *FakeRedditClient) Reply(ctx context.Context, parentFullname, body string) (*reddit.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ReplyErr != nil {
		return nil, f.ReplyErr
	}
	f.Replies = append(f.Replies, FakeReply{Parent: parentFullname, Body: body})
	if f.ReplyNil {
		return nil, nil
	}
	f.replySeq++
	id := fmt.Sprintf("fake%d", f.replySeq)
	c := &reddit.Comment{
		ID:   id,
		Name: reddit.KindComment + "_" + id,
		Body: body,
	}
	f.CommentsByID[id] = c
	return c, nil
}

func (f *FakeRedditClient) Distinguish(ctx context.Context, fullname string, sticky bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Distinguished = append(f.Distinguished, FakeDistinguish{Fullname: fullname, Sticky: sticky})
	return nil
}

func (f *FakeRedditClient) Approve(ctx context.Context, fullname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Approved = append(f.Approved, fullname)
	return nil
}

func (f *FakeRedditClient) Lock(ctx context.Context, fullname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Locked = append(f.Locked, fullname)
	return nil
}

func (f *FakeRedditClient) Remove(ctx context.Context, fullname, reasonID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Removals = append(f.Removals, FakeRemoval{Fullname: fullname, ReasonID: reasonID})
	return nil
}

func (f *FakeRedditClient) SendRemovalMessage(ctx context.Context, fullname, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RemovalMessages = append(f.RemovalMessages, FakeRemovalMessage{Fullname: fullname, Title: title, Message: message})
	return nil
}

func (f *FakeRedditClient) BanUser(ctx context.Context, subreddit, username, reason, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Bans = append(f.Bans, FakeBan{Username: username, Reason: reason, Message: message})
	return nil
}

func (f *FakeRedditClient) FlairTemplates(ctx context.Context, subreddit string) ([]reddit.FlairTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reddit.FlairTemplate, len(f.Flairs))
	copy(out, f.Flairs)
	return out, nil
}

func (f *FakeRedditClient) CreateFlairTemplate(ctx context.Context, subreddit string, tmpl reddit.FlairTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FlairCreates++
	tmpl.ID = fmt.Sprintf("flair-%d", len(f.Flairs)+1)
	f.Flairs = append(f.Flairs, tmpl)
	return nil
}

func (f *FakeRedditClient) UpdateFlairTemplate(ctx context.Context, subreddit string, tmpl reddit.FlairTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.FlairUpdates++
	for i := range f.Flairs {
		if f.Flairs[i].ID == tmpl.ID {
			f.Flairs[i] = tmpl
			return nil
		}
	}
	return fmt.Errorf("flair template %s not found", tmpl.ID)
}

func (f *FakeRedditClient) RemovalReasons(ctx context.Context, subreddit string) ([]reddit.RemovalReason, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]reddit.RemovalReason, len(f.Reasons))
	copy(out, f.Reasons)
	return out, nil
}

func (f *FakeRedditClient) CreateRemovalReason(ctx context.Context, subreddit, title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReasonCreates++
	f.Reasons = append(f.Reasons, reddit.RemovalReason{
		ID:      fmt.Sprintf("reason-%d", len(f.Reasons)+1),
		Title:   title,
		Message: message,
	})
	return nil
}

func (f *FakeRedditClient) UpdateRemovalReason(ctx context.Context, subreddit string, reason reddit.RemovalReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReasonUpdates++
	for i := range f.Reasons {
		if f.Reasons[i].ID == reason.ID {
			f.Reasons[i] = reason
			return nil
		}
	}
	return fmt.Errorf("removal reason %s not found", reason.ID)
}

func (f *FakeRedditClient) Moderators(ctx context.Context, subreddit string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Mods))
	copy(out, f.Mods)
	return out, nil
}

func (f *FakeRedditClient) MarkRead(ctx context.Context, messageFullname string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadMessages = append(f.ReadMessages, messageFullname)
	return nil
}

func (f *FakeRedditClient) ComposeModmail(ctx context.Context, subreddit, subject, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Modmails = append(f.Modmails, FakeModmail{Subject: subject, Body: body})
	return nil
}

// TestWikiPage is the page name NewTestEngine wires up.
const TestWikiPage = "botconfig/towerbot"

// NewTestEngine builds an Engine around a fake client with a discard logger,
// an in-memory history store, and a modmail notifier.
func NewTestEngine(fake *FakeRedditClient) *Engine {
	eng := &Engine{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Client:        fake,
		History:       history.NewMemStore(),
		Subreddit:     "testsub",
		RulesWikiPage: TestWikiPage,
	}
	eng.Notifier = &ModmailNotifier{Client: fake, Subreddit: eng.Subreddit}
	return eng
}

// SetWikiRules installs a rules document in the fake wiki and loads it into
// the engine, failing the fake's invariants loudly if it does not parse.
func SetWikiRules(eng *Engine, fake *FakeRedditClient, content string) error {
	fake.mu.Lock()
	fake.WikiPages[eng.RulesWikiPage] = &reddit.WikiPage{ContentMD: content, RevisionBy: "testmod"}
	fake.mu.Unlock()
	return eng.ReloadRules(context.Background())
}
