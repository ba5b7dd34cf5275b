package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Submission fetches a single submission by base-36 id (no kind prefix).
func (c *Client) Submission(ctx context.Context, id string) (*Submission, error) {
	params := url.Values{}
	params.Set("id", KindSubmission+"_"+id)
	var l listing
	if err := c.do(ctx, http.MethodGet, "/api/info", params, &l); err != nil {
		return nil, err
	}
	subs, err := decodeChildren[Submission](&l, KindSubmission)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("submission %s not found", id)
	}
	return subs[0], nil
}

// Comment fetches a single comment by base-36 id (no kind prefix).
func (c *Client) Comment(ctx context.Context, id string) (*Comment, error) {
	params := url.Values{}
	params.Set("id", KindComment+"_"+id)
	var l listing
	if err := c.do(ctx, http.MethodGet, "/api/info", params, &l); err != nil {
		return nil, err
	}
	comments, err := decodeChildren[Comment](&l, KindComment)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, fmt.Errorf("comment %s not found", id)
	}
	return comments[0], nil
}

// NewSubmissions returns the newest submissions in a subreddit, newest first.
func (c *Client) NewSubmissions(ctx context.Context, subreddit string, limit int) ([]*Submission, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprintf("%d", limit))
	var l listing
	if err := c.do(ctx, http.MethodGet, "/r/"+subreddit+"/new", params, &l); err != nil {
		return nil, err
	}
	return decodeChildren[Submission](&l, KindSubmission)
}

// Reply posts a comment in reply to the thing named by parentFullname and
// returns the created comment.
func (c *Client) Reply(ctx context.Context, parentFullname, body string) (*Comment, error) {
	params := url.Values{}
	params.Set("thing_id", parentFullname)
	params.Set("text", body)
	env, err := c.postForm(ctx, "/api/comment", params)
	if err != nil {
		return nil, err
	}
	comments, err := decodeChildren[Comment](&listing{Data: listingData{Children: env.JSON.Data.Things}}, KindComment)
	if err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return nil, nil
	}
	return comments[0], nil
}
