package ruleset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFullDocument(t *testing.T) {
	assert := assert.New(t)

	doc := `
general_settings:
  enable_flair_actions: true
  enable_create_posterity_comments: false
posterity_comment_settings:
  ignore_users:
    - AutoModerator
    - some_other_bot
flair_actions:
  "Spam":
    - action: remove
  "Rule 1":
    - action: remove_with_reason
      argument: "Be excellent to each other"
    - action: comment
      argument: "Removed under rule 1."
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
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)

	assert.True(rs.GeneralSettings.EnableFlairActions)
	assert.False(rs.GeneralSettings.EnableCreatePosterityComments)
	// toggles absent from the document keep their enabled default
	assert.True(rs.GeneralSettings.EnableInboxActions)
	assert.True(rs.GeneralSettings.EnablePostFlairSync)

	assert.True(rs.PosterityCommentSettings.Ignored("AutoModerator"))
	assert.False(rs.PosterityCommentSettings.Ignored("regular_user"))

	require.Len(t, rs.FlairActions["Rule 1"], 2)
	assert.Equal(ActionRemoveWithReason, rs.FlairActions["Rule 1"][0].Action)
	assert.Equal("Be excellent to each other", rs.FlairActions["Rule 1"][0].Argument)
	assert.Equal(ActionRemove, rs.FlairActions["Spam"][0].Action)

	flair := rs.PostFlair["Meme Monday"]
	assert.Equal("meme", flair.CSSClass)
	assert.Equal("#ff4500", flair.BackgroundColor)
	assert.Equal("light", flair.TextColor)
	assert.False(flair.ModOnly)

	assert.Equal("Your post was removed for incivility.", rs.RemovalReasons["Be excellent to each other"].Message)
}

func TestParseEmptyDocument(t *testing.T) {
	rs, err := Parse([]byte(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultGeneralSettings(), rs.GeneralSettings)
	assert.Empty(t, rs.FlairActions)
}

func TestParsePostFlairDefaults(t *testing.T) {
	doc := `
post_flair:
  "Partial":
    css_class: partial
`
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)
	flair := rs.PostFlair["Partial"]
	assert.Equal(t, "partial", flair.CSSClass)
	assert.Equal(t, "#dadada", flair.BackgroundColor)
	assert.Equal(t, "dark", flair.TextColor)
	assert.True(t, flair.ModOnly)
}

func TestParseIntegerArgument(t *testing.T) {
	doc := `
flair_actions:
  "Countdown":
    - action: comment
      argument: 42
`
	rs, err := Parse([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "42", rs.FlairActions["Countdown"][0].Argument)
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown action",
			doc: `
flair_actions:
  "Spam":
    - action: nuke_from_orbit
`,
			want: "not a valid action",
		},
		{
			name: "comment without argument",
			doc: `
flair_actions:
  "Spam":
    - action: comment
`,
			want: "requires an argument",
		},
		{
			name: "remove_with_reason without argument",
			doc: `
flair_actions:
  "Spam":
    - action: remove_with_reason
`,
			want: "requires an argument",
		},
		{
			name: "removal reason without message",
			doc: `
removal_reasons:
  "Empty":
    message: ""
`,
			want: "message must not be empty",
		},
		{
			name: "argument of the wrong type",
			doc: `
flair_actions:
  "Spam":
    - action: comment
      argument: [a, list]
`,
			want: "argument must be a string or integer",
		},
		{
			name: "not yaml at all",
			doc:  "{{{{",
			want: "parsing rules document",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rs, err := Parse([]byte(tc.doc))
			require.Error(t, err)
			assert.Nil(t, rs)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseRemoveNeedsNoArgument(t *testing.T) {
	doc := `
flair_actions:
  "Spam":
    - action: remove
`
	_, err := Parse([]byte(doc))
	assert.NoError(t, err)
}

func TestActionKindValid(t *testing.T) {
	assert.True(t, ActionComment.Valid())
	assert.True(t, ActionRemove.Valid())
	assert.True(t, ActionRemoveWithReason.Valid())
	assert.False(t, ActionKind("ban_everyone").Valid())
	assert.False(t, ActionKind("").Valid())
}
