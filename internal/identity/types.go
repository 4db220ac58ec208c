package identity

import (
	"fmt"
	"strings"
)

// choice maps the persisted token of a small enum to its display value.
type choice struct {
	kind   string
	tokens []string
	values []string
}

func (c choice) parse(s string) (int, error) {
	s = strings.TrimSpace(s)
	for i := range c.tokens {
		if c.tokens[i] == s || c.values[i] == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", c.kind, s)
}

func (c choice) token(i int) string {
	if i < 0 || i >= len(c.tokens) {
		return ""
	}
	return c.tokens[i]
}

func (c choice) value(i int) string {
	if i < 0 || i >= len(c.values) {
		return ""
	}
	return c.values[i]
}

func (c choice) marshal(i int) ([]byte, error) {
	if t := c.token(i); t != "" {
		return []byte(t), nil
	}
	return nil, fmt.Errorf("invalid %s %d", c.kind, i)
}

type Gender int

const (
	Male Gender = iota
	Female
	GenderUnspecified
)

var genderChoice = choice{"gender", []string{"male", "female", "unspecified"}, []string{"男", "女", "不透露"}}

func ParseGender(s string) (Gender, error) {
	i, err := genderChoice.parse(s)
	return Gender(i), err
}

func (g Gender) String() string                 { return genderChoice.value(int(g)) }
func (g Gender) MarshalText() ([]byte, error)   { return genderChoice.marshal(int(g)) }
func (g *Gender) UnmarshalText(b []byte) error { return unmarshalChoice(genderChoice, b, (*int)(g)) }

type RelationshipGoal int

const (
	Friendship RelationshipGoal = iota
	Dating
	Romance
	Professional
)

var goalChoice = choice{"relationship goal", []string{"friendship", "dating", "romance", "professional"}, []string{"交友", "相亲", "恋爱", "职场"}}

func ParseRelationshipGoal(s string) (RelationshipGoal, error) {
	i, err := goalChoice.parse(s)
	return RelationshipGoal(i), err
}

func (r RelationshipGoal) String() string               { return goalChoice.value(int(r)) }
func (r RelationshipGoal) MarshalText() ([]byte, error) { return goalChoice.marshal(int(r)) }
func (r *RelationshipGoal) UnmarshalText(b []byte) error {
	return unmarshalChoice(goalChoice, b, (*int)(r))
}

type Persona int

const (
	Student Persona = iota
	Engineer
	Sales
	Boss
	Mother
	Freelancer
	CustomPersona
)

var personaChoice = choice{"persona", []string{"student", "engineer", "sales", "boss", "mother", "freelancer", "custom"}, []string{"学生", "工程师", "销售", "老板", "宝妈", "自由职业", "自定义"}}

func ParsePersona(s string) (Persona, error) {
	i, err := personaChoice.parse(s)
	return Persona(i), err
}

func (p Persona) String() string                 { return personaChoice.value(int(p)) }
func (p Persona) MarshalText() ([]byte, error)   { return personaChoice.marshal(int(p)) }
func (p *Persona) UnmarshalText(b []byte) error { return unmarshalChoice(personaChoice, b, (*int)(p)) }

type SpeakingStyle int

const (
	Brief SpeakingStyle = iota
	EmojiLover
	Restrained
	Outgoing
)

var speakingChoice = choice{"speaking style", []string{"brief", "emojiLover", "restrained", "outgoing"}, []string{"简短", "爱表情", "克制", "外向"}}

func ParseSpeakingStyle(s string) (SpeakingStyle, error) {
	i, err := speakingChoice.parse(s)
	return SpeakingStyle(i), err
}

func (s SpeakingStyle) String() string               { return speakingChoice.value(int(s)) }
func (s SpeakingStyle) MarshalText() ([]byte, error) { return speakingChoice.marshal(int(s)) }
func (s *SpeakingStyle) UnmarshalText(b []byte) error {
	return unmarshalChoice(speakingChoice, b, (*int)(s))
}

type Language int

const (
	Chinese Language = iota
	English
	Mixed
)

var languageChoice = choice{"language", []string{"chinese", "english", "mixed"}, []string{"中文", "英文", "中英混"}}

func ParseLanguage(s string) (Language, error) {
	i, err := languageChoice.parse(s)
	return Language(i), err
}

func (l Language) String() string                 { return languageChoice.value(int(l)) }
func (l Language) MarshalText() ([]byte, error)   { return languageChoice.marshal(int(l)) }
func (l *Language) UnmarshalText(b []byte) error { return unmarshalChoice(languageChoice, b, (*int)(l)) }

func unmarshalChoice(c choice, b []byte, dst *int) error {
	i, err := c.parse(string(b))
	if err != nil {
		return err
	}
	*dst = i
	return nil
}

// UserIdentity is who the user says they are. It personalises every
// generation request.
type UserIdentity struct {
	DisplayName      string           `json:"displayName"`
	Gender           Gender           `json:"gender"`
	RelationshipGoal RelationshipGoal `json:"relationshipGoal"`
	Persona          Persona          `json:"persona"`
	CustomPersona    string           `json:"customPersona,omitempty"`
	SpeakingStyle    SpeakingStyle    `json:"speakingStyle"`
	TabooList        []string         `json:"tabooList"`
	Language         Language         `json:"language"`
}

// Default returns the identity used before the user configures anything.
func Default() UserIdentity {
	return UserIdentity{
		Gender:           GenderUnspecified,
		RelationshipGoal: Friendship,
		Persona:          Student,
		SpeakingStyle:    Restrained,
		TabooList:        []string{},
		Language:         Chinese,
	}
}

// PersonaDescription is the custom persona text when one is set, otherwise
// the preset's display name.
func (u UserIdentity) PersonaDescription() string {
	if u.Persona == CustomPersona && strings.TrimSpace(u.CustomPersona) != "" {
		return u.CustomPersona
	}
	return u.Persona.String()
}

// TabooDescription joins the taboo topics for prompts, or "无" when empty.
func (u UserIdentity) TabooDescription() string {
	if len(u.TabooList) == 0 {
		return "无"
	}
	return strings.Join(u.TabooList, "、")
}

func (u UserIdentity) clone() UserIdentity {
	cp := u
	cp.TabooList = append([]string{}, u.TabooList...)
	return cp
}
