// Package ruleset defines the bot's declarative configuration schema, as
// stored on the subreddit's rules wiki page in YAML. A Ruleset is parsed and
// validated as a whole: either every rule in the document is valid, or the
// document is rejected and the caller keeps whatever ruleset was active.
package ruleset

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type ActionKind string

const (
	ActionComment          ActionKind = "comment"
	ActionRemove           ActionKind = "remove"
	ActionRemoveWithReason ActionKind = "remove_with_reason"
)

// actionsRequiringArgument lists the kinds that are meaningless without one:
// comment needs a body, remove_with_reason needs a reason title.
var actionsRequiringArgument = map[ActionKind]bool{
	ActionComment:          true,
	ActionRemoveWithReason: true,
}

func (k ActionKind) Valid() bool {
	switch k {
	case ActionComment, ActionRemove, ActionRemoveWithReason:
		return true
	}
	return false
}

// FlairAction is one step of a flair-triggered rule. Argument accepts YAML
// string or integer scalars; integers are normalized to their decimal form.
type FlairAction struct {
	Action   ActionKind `yaml:"action"`
	Argument string     `yaml:"argument,omitempty"`
}

func (a *FlairAction) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Action   ActionKind `yaml:"action"`
		Argument yaml.Node  `yaml:"argument"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	a.Action = raw.Action
	a.Argument = ""
	if raw.Argument.Kind != 0 {
		var s string
		if err := raw.Argument.Decode(&s); err != nil {
			var n int
			if err := raw.Argument.Decode(&n); err != nil {
				return fmt.Errorf("argument must be a string or integer, got %q", raw.Argument.Value)
			}
			s = fmt.Sprintf("%d", n)
		}
		a.Argument = s
	}
	return nil
}

func (a *FlairAction) validate() error {
	if !a.Action.Valid() {
		return fmt.Errorf("%q is not a valid action", a.Action)
	}
	if actionsRequiringArgument[a.Action] && a.Argument == "" {
		return fmt.Errorf("action %s requires an argument", a.Action)
	}
	return nil
}

type PostFlairSettings struct {
	CSSClass        string `yaml:"css_class"`
	BackgroundColor string `yaml:"background_color"`
	TextColor       string `yaml:"text_color"`
	ModOnly         bool   `yaml:"mod_only"`

	// ID is the platform-assigned template id; never read from the rules
	// document, only populated when mirroring live settings.
	ID string `yaml:"-"`
}

func DefaultPostFlairSettings() PostFlairSettings {
	return PostFlairSettings{
		BackgroundColor: "#dadada",
		TextColor:       "dark",
		ModOnly:         true,
	}
}

func (s *PostFlairSettings) UnmarshalYAML(value *yaml.Node) error {
	type raw PostFlairSettings
	out := raw(DefaultPostFlairSettings())
	if err := value.Decode(&out); err != nil {
		return err
	}
	*s = PostFlairSettings(out)
	return nil
}

type RemovalReasonSettings struct {
	Message string `yaml:"message"`

	// ID is the platform-assigned reason id, populated only when mirroring
	// live settings.
	ID string `yaml:"-"`
}

// GeneralSettings are the feature toggles. Every toggle defaults to enabled;
// an absent general_settings section changes nothing.
type GeneralSettings struct {
	EnableRemovalReasonSync       bool `yaml:"enable_removal_reason_sync"`
	EnablePostFlairSync           bool `yaml:"enable_post_flair_sync"`
	EnableFlairActions            bool `yaml:"enable_flair_actions"`
	EnableCreatePosterityComments bool `yaml:"enable_create_posterity_comments"`
	EnableInboxActions            bool `yaml:"enable_inbox_actions"`
}

func DefaultGeneralSettings() GeneralSettings {
	return GeneralSettings{
		EnableRemovalReasonSync:       true,
		EnablePostFlairSync:           true,
		EnableFlairActions:            true,
		EnableCreatePosterityComments: true,
		EnableInboxActions:            true,
	}
}

func (s *GeneralSettings) UnmarshalYAML(value *yaml.Node) error {
	type raw GeneralSettings
	out := raw(DefaultGeneralSettings())
	if err := value.Decode(&out); err != nil {
		return err
	}
	*s = GeneralSettings(out)
	return nil
}

type PosterityCommentSettings struct {
	IgnoreUsers []string `yaml:"ignore_users"`
}

func (s *PosterityCommentSettings) Ignored(username string) bool {
	for _, u := range s.IgnoreUsers {
		if u == username {
			return true
		}
	}
	return false
}

// Ruleset is an immutable configuration snapshot. It is replaced wholesale
// on reload and must never be mutated after Parse returns it.
type Ruleset struct {
	GeneralSettings          GeneralSettings                  `yaml:"general_settings,omitempty"`
	PosterityCommentSettings PosterityCommentSettings         `yaml:"posterity_comment_settings,omitempty"`
	FlairActions             map[string][]FlairAction         `yaml:"flair_actions,omitempty"`
	PostFlair                map[string]PostFlairSettings     `yaml:"post_flair,omitempty"`
	RemovalReasons           map[string]RemovalReasonSettings `yaml:"removal_reasons,omitempty"`
}

// Parse decodes and validates a rules document. The returned Ruleset is
// fully valid; any schema violation rejects the whole document with an
// error naming the offending field.
func Parse(content []byte) (*Ruleset, error) {
	rs := Ruleset{
		GeneralSettings: DefaultGeneralSettings(),
	}
	if err := yaml.Unmarshal(content, &rs); err != nil {
		return nil, fmt.Errorf("parsing rules document: %w", err)
	}
	if err := rs.validate(); err != nil {
		return nil, err
	}
	return &rs, nil
}

func (rs *Ruleset) validate() error {
	for flair, actions := range rs.FlairActions {
		for i, action := range actions {
			if err := action.validate(); err != nil {
				return fmt.Errorf("flair_actions[%q][%d]: %w", flair, i, err)
			}
		}
	}
	for title, reason := range rs.RemovalReasons {
		if reason.Message == "" {
			return fmt.Errorf("removal_reasons[%q]: message must not be empty", title)
		}
	}
	return nil
}
