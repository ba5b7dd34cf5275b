package reddit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient stands up an httptest server playing both the token host and
// the API host, and returns a client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int64) {
	t.Helper()
	var tokenRequests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/access_token" {
			tokenRequests.Add(1)
			user, pass, ok := r.BasicAuth()
			if !ok || user != "test-client-id" || pass != "test-client-secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{"access_token": "test-token", "token_type": "bearer", "expires_in": 3600}`)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing or wrong bearer token: %q", got)
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		ClientID:          "test-client-id",
		ClientSecret:      "test-client-secret",
		Username:          "towerbot",
		Password:          "hunter2",
		UserAgent:         "towerbot test",
		Host:              srv.URL,
		TokenHost:         srv.URL,
		RequestsPerMinute: 6000,
		Client:            srv.Client(),
	})
	return client, &tokenRequests
}

func TestClientReusesToken(t *testing.T) {
	client, tokenRequests := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"kind": "Listing", "data": {"children": [
			{"kind": "t3", "data": {"id": "abc", "name": "t3_abc", "title": "first"}},
			{"kind": "t3", "data": {"id": "def", "name": "t3_def", "title": "second"}}
		]}}`)
	})

	ctx := context.Background()
	posts, err := client.NewSubmissions(ctx, "testsub", 100)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "t3_abc", posts[0].Name)
	assert.Equal(t, "first", posts[0].Title)

	_, err = client.NewSubmissions(ctx, "testsub", 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), tokenRequests.Load())
}

func TestClientSurfacesHTTPErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Forbidden", http.StatusForbidden)
	})

	_, err := client.NewSubmissions(context.Background(), "testsub", 100)
	require.Error(t, err)
	assert.True(t, IsAPIError(err))
	assert.False(t, IsRateLimit(err))

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)
}

func TestClientSurfacesInBandErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/comment", r.URL.Path)
		fmt.Fprint(w, `{"json": {"errors": [["RATELIMIT", "you are doing that too much. try again in 9 minutes.", "ratelimit"]]}}`)
	})

	_, err := client.Reply(context.Background(), "t3_abc", "hello")
	require.Error(t, err)
	assert.True(t, IsRateLimit(err))

	var ae *APIError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "RATELIMIT", ae.ErrorType)
	assert.Equal(t, "ratelimit", ae.Field)
}

func TestClientReplyDecodesCreatedComment(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_abc", r.PostForm.Get("thing_id"))
		assert.Equal(t, "json", r.PostForm.Get("api_type"))
		fmt.Fprint(w, `{"json": {"errors": [], "data": {"things": [
			{"kind": "t1", "data": {"id": "xyz", "name": "t1_xyz", "body": "hello"}}
		]}}}`)
	})

	c, err := client.Reply(context.Background(), "t3_abc", "hello")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "t1_xyz", c.Name)
}

func TestClientReplyWithNoCommentBack(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"json": {"errors": [], "data": {"things": []}}}`)
	})

	c, err := client.Reply(context.Background(), "t3_abc", "hello")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestClientWikiPage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/testsub/wiki/botconfig/towerbot", r.URL.Path)
		fmt.Fprint(w, `{"kind": "wikipage", "data": {"content_md": "flair_actions: {}", "revision_by": {"kind": "t2", "data": {"name": "testmod"}}}}`)
	})

	page, err := client.WikiPage(context.Background(), "testsub", "botconfig/towerbot")
	require.NoError(t, err)
	assert.Equal(t, "flair_actions: {}", page.ContentMD)
	assert.Equal(t, "testmod", page.RevisionBy)
}
