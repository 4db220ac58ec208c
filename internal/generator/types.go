package generator

import (
	"github.com/kalambet/forlove/internal/catalog"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/slots"
)

// CandidateCount is the number of candidates every request asks for.
const CandidateCount = 3

// targetGenderUnknown is sent until the user can describe the other party.
const targetGenderUnknown = "未知"

// Request is the JSON body POSTed to the generation service.
type Request struct {
	MainCategory catalog.MainCategory `json:"main_category"`
	SubCategory  catalog.SubCategory  `json:"sub_category"`
	Count        int                  `json:"count"`
	Context      Context              `json:"context"`
	StyleParams  StyleParams          `json:"style_params"`
	ConfigV2     ConfigV2             `json:"config_v2"`
}

// Context carries the identity and input of a request. Optional fields are
// omitted when empty.
type Context struct {
	DisplayName      string `json:"display_name"`
	Persona          string `json:"persona"`
	RelationshipGoal string `json:"relationship_goal"`
	SpeakingStyle    string `json:"speaking_style"`
	Language         string `json:"language"`
	UserGender       string `json:"user_gender"`
	TargetGender     string `json:"target_gender"`
	Stage            string `json:"stage"`
	Style            string `json:"style"`
	MainCategory     string `json:"main_category"`
	SubCategory      string `json:"sub_category"`
	Ambiguity        int    `json:"ambiguity"`
	EmojiDensity     string `json:"emoji_density"`
	Length           string `json:"length"`
	TabooList        string `json:"taboo_list,omitempty"`
	ChatContext      string `json:"chat_context,omitempty"`
	LastMessage      string `json:"last_message,omitempty"`
	RawText          string `json:"raw_text,omitempty"`
	Question         string `json:"question,omitempty"`
}

// StyleParams is the wire form of catalog.StyleParams.
type StyleParams struct {
	Ambiguity    int    `json:"ambiguity"`
	EmojiDensity string `json:"emoji_density"`
	Length       string `json:"length"`
}

// ConfigV2 is the wire form of catalog.SlotConfigV2.
type ConfigV2 struct {
	WordCount       string `json:"word_count"`
	AggressionLevel string `json:"aggression_level"`
	AdultStyle      string `json:"adult_style"`
}

// Response is the generation service's reply.
type Response struct {
	Success    bool            `json:"success"`
	Candidates []WireCandidate `json:"candidates,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// WireCandidate is one generated text as sent by the service.
type WireCandidate struct {
	Text    string `json:"text"`
	Tone    string `json:"tone,omitempty"`
	Preview string `json:"preview,omitempty"`
}

// NewRequest builds the request for generating with slot. content is routed
// by main category: reply, role-play and life-wiki send it as last_message,
// polish as raw_text, opener not at all.
func NewRequest(slot slots.CategorySlot, content string, id identity.UserIdentity, chatContext string) Request {
	sp := slot.EffectiveStyleParams()
	style := StyleParams{
		Ambiguity:    sp.Ambiguity,
		EmojiDensity: sp.EmojiDensity.PromptValue(),
		Length:       sp.Length.PromptValue(),
	}

	ctx := Context{
		DisplayName:      id.DisplayName,
		Persona:          id.PersonaDescription(),
		RelationshipGoal: id.RelationshipGoal.String(),
		SpeakingStyle:    id.SpeakingStyle.String(),
		Language:         id.Language.String(),
		UserGender:       id.Gender.String(),
		TargetGender:     targetGenderUnknown,
		Stage:            id.RelationshipGoal.String(),
		Style:            id.SpeakingStyle.String(),
		MainCategory:     slot.MainCategory.Token(),
		SubCategory:      slot.SelectedSubCategory.Token(),
		Ambiguity:        style.Ambiguity,
		EmojiDensity:     style.EmojiDensity,
		Length:           style.Length,
		ChatContext:      chatContext,
	}
	if len(id.TabooList) > 0 {
		ctx.TabooList = id.TabooDescription()
	}
	switch slot.MainCategory {
	case catalog.Reply, catalog.RolePlay, catalog.LifeWiki:
		ctx.LastMessage = content
	case catalog.Polish:
		ctx.RawText = content
	}

	return Request{
		MainCategory: slot.MainCategory,
		SubCategory:  slot.SelectedSubCategory,
		Count:        CandidateCount,
		Context:      ctx,
		StyleParams:  style,
		ConfigV2: ConfigV2{
			WordCount:       slot.ConfigV2.WordCount.Value(),
			AggressionLevel: slot.ConfigV2.AggressionLevel.Value(),
			AdultStyle:      slot.ConfigV2.AdultStyle.Value(),
		},
	}
}

// Content returns the user input carried by the request: last_message, then
// raw_text, then question.
func (r Request) Content() string {
	switch {
	case r.Context.LastMessage != "":
		return r.Context.LastMessage
	case r.Context.RawText != "":
		return r.Context.RawText
	default:
		return r.Context.Question
	}
}
