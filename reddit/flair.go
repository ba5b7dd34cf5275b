package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// FlairTemplates lists a subreddit's link flair templates.
func (c *Client) FlairTemplates(ctx context.Context, subreddit string) ([]FlairTemplate, error) {
	var templates []FlairTemplate
	if err := c.do(ctx, http.MethodGet, "/r/"+subreddit+"/api/link_flair_v2", nil, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func flairParams(tmpl FlairTemplate) url.Values {
	params := url.Values{}
	params.Set("flair_type", "LINK_FLAIR")
	params.Set("text", tmpl.Text)
	params.Set("css_class", tmpl.CSSClass)
	params.Set("background_color", tmpl.BackgroundColor)
	params.Set("text_color", tmpl.TextColor)
	params.Set("mod_only", fmt.Sprintf("%t", tmpl.ModOnly))
	return params
}

// CreateFlairTemplate adds a new link flair template.
func (c *Client) CreateFlairTemplate(ctx context.Context, subreddit string, tmpl FlairTemplate) error {
	return c.do(ctx, http.MethodPost, "/r/"+subreddit+"/api/flairtemplate_v2", flairParams(tmpl), nil)
}

// UpdateFlairTemplate updates an existing link flair template, keyed by its
// remote template id.
func (c *Client) UpdateFlairTemplate(ctx context.Context, subreddit string, tmpl FlairTemplate) error {
	params := flairParams(tmpl)
	params.Set("flair_template_id", tmpl.ID)
	return c.do(ctx, http.MethodPost, "/r/"+subreddit+"/api/flairtemplate_v2", params, nil)
}
