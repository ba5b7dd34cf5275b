package engine

import (
	"fmt"
	"unicode/utf8"
)

// MaxCommentLength is the platform's ceiling on comment bodies.
const MaxCommentLength = 10_000

// truncateAt leaves room for the bot header and footer under MaxCommentLength.
const truncateAt = 9_500

// FormatComment appends the standard "I'm a bot" disclaimer to a comment
// body, pointing readers at the subreddit's modmail.
func (e *Engine) FormatComment(body string) string {
	return body +
		"\n\n --- \nI am a bot, and this action was performed automatically.  " +
		fmt.Sprintf("If you have any questions, please [contact the mods of this subreddit](https://www.reddit.com/message/compose?to=/r/%s).", e.Subreddit)
}

// TruncateBody caps a post body for inclusion in a comment, marking the cut
// with an ellipsis. The platform counts characters, not bytes, so the cut is
// made on a rune boundary.
func TruncateBody(body string) string {
	if utf8.RuneCountInString(body) <= truncateAt {
		return body
	}
	return string([]rune(body)[:truncateAt]) + "..."
}
