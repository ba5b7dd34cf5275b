package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// UnreadMessages returns unread private messages, newest first.
func (c *Client) UnreadMessages(ctx context.Context, limit int) ([]*Message, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	var l listing
	if err := c.do(ctx, http.MethodGet, "/message/unread", params, &l); err != nil {
		return nil, err
	}
	return decodeChildren[Message](&l, KindMessage)
}

// MarkRead acknowledges a message on the platform side.
func (c *Client) MarkRead(ctx context.Context, messageFullname string) error {
	params := url.Values{}
	params.Set("id", messageFullname)
	return c.do(ctx, http.MethodPost, "/api/read_message", params, nil)
}

// ComposeModmail sends a private message to the subreddit's moderator team.
// Config parse failures and bad removal-reason references are reported this
// way so operators see them without watching logs.
func (c *Client) ComposeModmail(ctx context.Context, subreddit, subject, body string) error {
	params := url.Values{}
	params.Set("to", "/r/"+subreddit)
	params.Set("subject", subject)
	params.Set("text", body)
	_, err := c.postForm(ctx, "/api/compose", params)
	return err
}
