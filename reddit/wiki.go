package reddit

import (
	"context"
	"net/http"
)

// WikiPage fetches a wiki page's markdown content plus the author of its
// latest revision.
func (c *Client) WikiPage(ctx context.Context, subreddit, page string) (*WikiPage, error) {
	var resp struct {
		Data struct {
			ContentMD  string `json:"content_md"`
			RevisionBy struct {
				Data struct {
					Name string `json:"name"`
				} `json:"data"`
			} `json:"revision_by"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/r/"+subreddit+"/wiki/"+page, nil, &resp); err != nil {
		return nil, err
	}
	return &WikiPage{
		ContentMD:  resp.Data.ContentMD,
		RevisionBy: resp.Data.RevisionBy.Data.Name,
	}, nil
}
