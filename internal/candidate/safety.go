package candidate

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxSafeLength is the longest text, in characters, not flagged for length.
const maxSafeLength = 200

var bannedPatterns = []string{
	"油腻", "亲爱的", "宝贝儿",
	"一定", "保证", "承诺",
	"AI", "人工智能", "模型",
}

var contactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{11}`),
	regexp.MustCompile(`\d{5,}@`),
}

// Risk reasons reported by Check.
const (
	ReasonBannedPhrase = "包含不推荐用语"
	ReasonTooLong      = "内容过长"
	ReasonContactInfo  = "包含联系方式"
)

// Check returns the reasons text is considered risky. An empty result means
// the text is safe. The text itself is never rewritten.
func Check(text string) []string {
	var reasons []string
	for _, p := range bannedPatterns {
		if strings.Contains(text, p) {
			reasons = append(reasons, ReasonBannedPhrase)
			break
		}
	}
	if utf8.RuneCountInString(text) > maxSafeLength {
		reasons = append(reasons, ReasonTooLong)
	}
	for _, re := range contactPatterns {
		if re.MatchString(text) {
			reasons = append(reasons, ReasonContactInfo)
			break
		}
	}
	return reasons
}

// Filter returns a copy of cs with RiskFlagged set on risky entries.
func Filter(cs []Candidate) []Candidate {
	out := make([]Candidate, len(cs))
	for i, c := range cs {
		c.RiskFlagged = len(Check(c.Text)) > 0
		out[i] = c
	}
	return out
}
