package reddit

// Fullname type prefixes. Reddit "things" are identified by a two-character
// kind prefix plus a base-36 id, eg "t3_abc123".
const (
	KindComment    = "t1"
	KindRedditor   = "t2"
	KindSubmission = "t3"
	KindMessage    = "t4"
)

type Submission struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Author        string  `json:"author"`
	Permalink     string  `json:"permalink"`
	Title         string  `json:"title"`
	SelfText      string  `json:"selftext"`
	LinkFlairText string  `json:"link_flair_text"`
	Subreddit     string  `json:"subreddit"`
	CreatedUTC    float64 `json:"created_utc"`
}

type Comment struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Permalink  string  `json:"permalink"`
	Body       string  `json:"body"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
}

// A single entry from a subreddit's moderation log.
type ModAction struct {
	ID              string  `json:"id"`
	Mod             string  `json:"mod"`
	Action          string  `json:"action"`
	Details         string  `json:"details"`
	TargetFullname  string  `json:"target_fullname"`
	TargetPermalink string  `json:"target_permalink"`
	TargetAuthor    string  `json:"target_author"`
	CreatedUTC      float64 `json:"created_utc"`
}

type Message struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Author     string  `json:"author"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	New        bool    `json:"new"`
	CreatedUTC float64 `json:"created_utc"`
}

// A link flair template, as returned by the v2 flair endpoints.
type FlairTemplate struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	CSSClass        string `json:"css_class"`
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
	ModOnly         bool   `json:"mod_only"`
}

type RemovalReason struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// A wiki page revision, including who last touched it (surfaced in operator
// error reports when the page fails to parse).
type WikiPage struct {
	ContentMD  string
	RevisionBy string
}
