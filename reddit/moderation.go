package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// ModLog returns recent moderation log entries for a subreddit, newest first.
func (c *Client) ModLog(ctx context.Context, subreddit string, limit int) ([]*ModAction, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	var l listing
	if err := c.do(ctx, http.MethodGet, "/r/"+subreddit+"/about/log", params, &l); err != nil {
		return nil, err
	}
	return decodeChildren[ModAction](&l, "modaction")
}

// Moderators returns the usernames of a subreddit's current moderators.
func (c *Client) Moderators(ctx context.Context, subreddit string) ([]string, error) {
	var resp struct {
		Data struct {
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/r/"+subreddit+"/about/moderators", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Data.Children))
	for _, ch := range resp.Data.Children {
		names = append(names, ch.Name)
	}
	return names, nil
}

// Remove removes a thing as a moderator. If reasonID is non-empty the
// removal is recorded against that pre-canned removal reason.
func (c *Client) Remove(ctx context.Context, fullname, reasonID string) error {
	params := url.Values{}
	params.Set("id", fullname)
	params.Set("spam", "false")
	if reasonID != "" {
		params.Set("reason_id", reasonID)
	}
	return c.do(ctx, http.MethodPost, "/api/remove", params, nil)
}

// SendRemovalMessage sends the pre-canned removal reason text to the author
// of a removed thing as a private message.
func (c *Client) SendRemovalMessage(ctx context.Context, fullname, title, message string) error {
	payload, err := json.Marshal(map[string]string{
		"item_id": fullname,
		"title":   title,
		"message": message,
		"type":    "private",
	})
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("json", string(payload))
	path := "/api/v1/modactions/removal_link_message"
	if len(fullname) >= 2 && fullname[:2] == KindComment {
		path = "/api/v1/modactions/removal_comment_message"
	}
	return c.do(ctx, http.MethodPost, path, params, nil)
}

// Approve approves a thing as a moderator.
func (c *Client) Approve(ctx context.Context, fullname string) error {
	params := url.Values{}
	params.Set("id", fullname)
	return c.do(ctx, http.MethodPost, "/api/approve", params, nil)
}

// Distinguish marks a comment as moderator-distinguished, optionally
// stickied to the top of the thread.
func (c *Client) Distinguish(ctx context.Context, fullname string, sticky bool) error {
	params := url.Values{}
	params.Set("id", fullname)
	params.Set("how", "yes")
	params.Set("sticky", fmt.Sprintf("%t", sticky))
	_, err := c.postForm(ctx, "/api/distinguish", params)
	return err
}

// Lock prevents further replies to a thing.
func (c *Client) Lock(ctx context.Context, fullname string) error {
	params := url.Values{}
	params.Set("id", fullname)
	return c.do(ctx, http.MethodPost, "/api/lock", params, nil)
}

// BanUser adds a user to a subreddit's ban list. reason shows in the modlog,
// message is delivered to the banned user.
func (c *Client) BanUser(ctx context.Context, subreddit, username, reason, message string) error {
	params := url.Values{}
	params.Set("type", "banned")
	params.Set("name", username)
	params.Set("ban_reason", reason)
	params.Set("ban_message", message)
	_, err := c.postForm(ctx, "/r/"+subreddit+"/api/friend", params)
	return err
}

// RemovalReasons lists a subreddit's removal reasons in display order.
func (c *Client) RemovalReasons(ctx context.Context, subreddit string) ([]RemovalReason, error) {
	var resp struct {
		Data  map[string]RemovalReason `json:"data"`
		Order []string                 `json:"order"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/"+subreddit+"/removal_reasons", nil, &resp); err != nil {
		return nil, err
	}
	out := make([]RemovalReason, 0, len(resp.Order))
	for _, id := range resp.Order {
		if r, ok := resp.Data[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateRemovalReason adds a new removal reason.
func (c *Client) CreateRemovalReason(ctx context.Context, subreddit, title, message string) error {
	params := url.Values{}
	params.Set("title", title)
	params.Set("message", message)
	return c.do(ctx, http.MethodPost, "/api/v1/"+subreddit+"/removal_reasons", params, nil)
}

// UpdateRemovalReason updates an existing removal reason in place, keyed by
// its remote id.
func (c *Client) UpdateRemovalReason(ctx context.Context, subreddit string, reason RemovalReason) error {
	params := url.Values{}
	params.Set("title", reason.Title)
	params.Set("message", reason.Message)
	return c.do(ctx, http.MethodPut, "/api/v1/"+subreddit+"/removal_reasons/"+reason.ID, params, nil)
}
