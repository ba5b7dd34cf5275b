package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Notifier delivers error reports to the subreddit's operators. Logs are not
// assumed to be watched in real time, so anything an operator must act on
// (config parse failures, bad removal-reason references) goes through here.
type Notifier interface {
	SendOperatorReport(ctx context.Context, subject, body string) error
}

// ModmailNotifier reports via a private message to the subreddit's moderator
// team, matching where the bot's other operator interactions happen.
type ModmailNotifier struct {
	Client    RedditClient
	Subreddit string
}

func (n *ModmailNotifier) SendOperatorReport(ctx context.Context, subject, body string) error {
	return n.Client.ComposeModmail(ctx, n.Subreddit, subject, body)
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

// SlackNotifier mirrors operator reports to a slack channel via "incoming
// webhook". Optional; configured alongside modmail, never instead of it.
type SlackNotifier struct {
	SlackWebhookURL string
}

// Sends a simple slack message to a channel via "incoming webhook".
//
// The slack incoming webhook must be already configured in the slack workplace.
func (n *SlackNotifier) SendOperatorReport(ctx context.Context, subject, body string) error {
	msg := fmt.Sprintf("⚠️ %s ⚠️\n%s", subject, body)
	payload, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.SlackWebhookURL, bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

// MultiNotifier fans a report out to every configured channel; the first
// failure is returned but does not stop the remaining deliveries.
type MultiNotifier []Notifier

func (m MultiNotifier) SendOperatorReport(ctx context.Context, subject, body string) error {
	var firstErr error
	for _, n := range m {
		if err := n.SendOperatorReport(ctx, subject, body); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
