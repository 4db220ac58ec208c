package catalog

import (
	"encoding/json"
	"fmt"
)

// enumText is the shared text codec for the small style enums. tokens are
// the persisted form, values the display form carried on the wire.
type enumText struct {
	kind   string
	tokens []string
	values []string
}

func (e enumText) marshal(i int) ([]byte, error) {
	if i < 0 || i >= len(e.tokens) {
		return nil, fmt.Errorf("invalid %s %d", e.kind, i)
	}
	return []byte(e.tokens[i]), nil
}

func (e enumText) parse(s string) (int, error) {
	for i, t := range e.tokens {
		if t == s {
			return i, nil
		}
	}
	for i, v := range e.values {
		if v == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q", e.kind, s)
}

func (e enumText) value(i int) string {
	if i < 0 || i >= len(e.values) {
		return ""
	}
	return e.values[i]
}

// EmojiDensity controls how many emoji a generated text may carry.
type EmojiDensity int

const (
	EmojiNone EmojiDensity = iota
	EmojiLow
	EmojiMedium
	EmojiHigh
)

var emojiText = enumText{"emoji density", []string{"none", "low", "medium", "high"}, []string{"无", "少", "适中", "多"}}

// PromptValue is the form sent as style_params.emoji_density.
func (e EmojiDensity) PromptValue() string { return emojiText.value(int(e)) }
func (e EmojiDensity) MarshalText() ([]byte, error) { return emojiText.marshal(int(e)) }
func (e *EmojiDensity) UnmarshalText(text []byte) error {
	i, err := emojiText.parse(string(text))
	*e = EmojiDensity(i)
	return err
}

// ContentLength is the target length of a generated text.
type ContentLength int

const (
	LengthShort ContentLength = iota
	LengthMedium
	LengthLong
)

var lengthText = enumText{"content length", []string{"short", "medium", "long"}, []string{"短", "中", "长"}}

func (l ContentLength) PromptValue() string { return lengthText.value(int(l)) }
func (l ContentLength) MarshalText() ([]byte, error) { return lengthText.marshal(int(l)) }
func (l *ContentLength) UnmarshalText(text []byte) error {
	i, err := lengthText.parse(string(text))
	*l = ContentLength(i)
	return err
}

// MaxSentences is the sentence budget for the length.
func (l ContentLength) MaxSentences() int {
	switch l {
	case LengthShort:
		return 1
	case LengthLong:
		return 3
	default:
		return 2
	}
}

const maxAmbiguity = 5

// StyleParams is the tone profile of a sub-category. Ambiguity is always in
// [0, 5].
type StyleParams struct {
	Ambiguity    int           `json:"ambiguity"`
	EmojiDensity EmojiDensity  `json:"emojiDensity"`
	Length       ContentLength `json:"length"`
}

// NewStyleParams clamps ambiguity into range.
func NewStyleParams(ambiguity int, emoji EmojiDensity, length ContentLength) StyleParams {
	return StyleParams{
		Ambiguity:    min(maxAmbiguity, max(0, ambiguity)),
		EmojiDensity: emoji,
		Length:       length,
	}
}

func DefaultStyleParams() StyleParams {
	return NewStyleParams(2, EmojiMedium, LengthMedium)
}

func (p *StyleParams) UnmarshalJSON(data []byte) error {
	type raw StyleParams
	v := raw(DefaultStyleParams())
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = NewStyleParams(v.Ambiguity, v.EmojiDensity, v.Length)
	return nil
}

// WordCount is the user's length preference for a slot.
type WordCount int

const (
	WordCountFew WordCount = iota
	WordCountMedium
	WordCountMany
)

var wordCountText = enumText{"word count", []string{"few", "medium", "many"}, []string{"短", "中", "长"}}

// Value is the form sent as config_v2.word_count.
func (w WordCount) Value() string { return wordCountText.value(int(w)) }
func (w WordCount) MarshalText() ([]byte, error) { return wordCountText.marshal(int(w)) }
func (w *WordCount) UnmarshalText(text []byte) error {
	i, err := wordCountText.parse(string(text))
	*w = WordCount(i)
	return err
}

func (w WordCount) PromptValue() string {
	switch w {
	case WordCountFew:
		return "简短精炼，1-2句话"
	case WordCountMany:
		return "详细充分，3-5句话"
	default:
		return "适中篇幅，2-3句话"
	}
}

// ParseWordCount accepts a token or a wire value. "少" and "多" are accepted
// as aliases of the short and long values.
func ParseWordCount(s string) (WordCount, error) {
	switch s {
	case "少":
		return WordCountFew, nil
	case "多":
		return WordCountMany, nil
	}
	i, err := wordCountText.parse(s)
	return WordCount(i), err
}

// AggressionLevel is how bold a slot's output may be.
type AggressionLevel int

const (
	AggressionLow AggressionLevel = iota
	AggressionMedium
	AggressionHigh
)

var aggressionText = enumText{"aggression level", []string{"low", "medium", "high"}, []string{"低", "中", "高"}}

func (a AggressionLevel) Value() string { return aggressionText.value(int(a)) }
func (a AggressionLevel) MarshalText() ([]byte, error) { return aggressionText.marshal(int(a)) }
func (a *AggressionLevel) UnmarshalText(text []byte) error {
	i, err := aggressionText.parse(string(text))
	*a = AggressionLevel(i)
	return err
}

func (a AggressionLevel) PromptValue() string {
	switch a {
	case AggressionLow:
		return "非常保守的回复，措辞谨慎，绝对安全"
	case AggressionHigh:
		return "前卫激进敢说，不怕犯错，大胆表达"
	default:
		return "保守与前沿平衡，适度表达"
	}
}

func ParseAggressionLevel(s string) (AggressionLevel, error) {
	i, err := aggressionText.parse(s)
	return AggressionLevel(i), err
}

// AdultStyle is the allowed intensity of adult innuendo.
type AdultStyle int

const (
	AdultNone AdultStyle = iota
	AdultLight
	AdultHeavy
)

var adultText = enumText{"adult style", []string{"none", "light", "heavy"}, []string{"无", "轻", "重"}}

func (a AdultStyle) Value() string { return adultText.value(int(a)) }
func (a AdultStyle) MarshalText() ([]byte, error) { return adultText.marshal(int(a)) }
func (a *AdultStyle) UnmarshalText(text []byte) error {
	i, err := adultText.parse(string(text))
	*a = AdultStyle(i)
	return err
}

func (a AdultStyle) PromptValue() string {
	switch a {
	case AdultLight:
		return "可以加入成人暗示，轻微挑逗"
	case AdultHeavy:
		return "可以放开成人话题，但不要色情"
	default:
		return "不涉及成人话题，保持纯净"
	}
}

func ParseAdultStyle(s string) (AdultStyle, error) {
	i, err := adultText.parse(s)
	return AdultStyle(i), err
}

// SlotConfigV2 is the per-slot tuning overlay.
type SlotConfigV2 struct {
	WordCount       WordCount       `json:"wordCount"`
	AggressionLevel AggressionLevel `json:"aggressionLevel"`
	AdultStyle      AdultStyle      `json:"adultStyle"`
}

func DefaultSlotConfigV2() SlotConfigV2 {
	return SlotConfigV2{
		WordCount:       WordCountMedium,
		AggressionLevel: AggressionMedium,
		AdultStyle:      AdultNone,
	}
}
