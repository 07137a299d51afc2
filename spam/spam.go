// spam/spam.go
// Package spam scores contact-form submissions with a small set of additive,
// independent heuristics. Scores are bounded to [0, MaxScore].
package spam

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxScore is the upper bound of every score.
const MaxScore = 10

// Policy thresholds consumed by callers.
const (
	BlockThreshold = 8
	FlagThreshold  = 5
)

// Verdict is the delivery decision derived from a score.
type Verdict string

const (
	Clean   Verdict = "clean"
	Flagged Verdict = "flagged"
	Blocked Verdict = "blocked"
)

// Classify maps a score onto the delivery policy.
func Classify(score int) Verdict {
	switch {
	case score >= BlockThreshold:
		return Blocked
	case score >= FlagThreshold:
		return Flagged
	default:
		return Clean
	}
}

// Rule names reported in an Assessment.
const (
	RuleNameLength   = "name_length"
	RuleSpecialChars = "special_chars"
	RuleShortMessage = "message_short"
	RuleLongMessage  = "message_long"
	RuleURLs         = "urls"
	RuleRepeatedRun  = "repeated_chars"
	RuleSpamWord     = "spam_word"
	RuleTempEmail    = "temp_email"
	RuleNameInEmail  = "name_in_email"
)

// Hit is one triggered rule and the points it contributed.
type Hit struct {
	Rule   string `json:"rule"`
	Detail string `json:"detail,omitempty"`
	Points int    `json:"points"`
}

// Assessment is the full result of scoring a submission.
type Assessment struct {
	Score   int     `json:"score"`
	Verdict Verdict `json:"verdict"`
	Hits    []Hit   `json:"hits,omitempty"`
}

// Raw returns the unclamped sum of all hits.
func (a Assessment) Raw() int {
	n := 0
	for _, h := range a.Hits {
		n += h.Points
	}
	return n
}

var (
	// SpamWords are matched as case-insensitive substrings of the message.
	SpamWords = []string{
		"viagra", "casino", "lottery", "winner", "congratulations",
		"urgent", "act now", "click here", "free money",
	}

	// TempEmailMarkers are matched as substrings of the email domain.
	TempEmailMarkers = []string{
		"tempmail", "10minutemail", "guerrillamail", "mailinator", "throwaway",
	}

	urlPattern = regexp.MustCompile(`https?://\S+`)
)

const specialChars = `<>{}[]\/`

// repeatRun is the run length (same character, consecutive) that counts as noise.
const repeatRun = 11

// Score returns the bounded spam score for a submission.
func Score(name, email, message string) int {
	return Assess(name, email, message).Score
}

// Assess scores a submission and reports which rules fired.
func Assess(name, email, message string) Assessment {
	var hits []Hit
	add := func(rule, detail string, points int) {
		hits = append(hits, Hit{Rule: rule, Detail: detail, Points: points})
	}

	if n := utf8.RuneCountInString(name); n < 2 || n > 100 {
		add(RuleNameLength, "", 2)
	}

	if strings.ContainsAny(name, specialChars) || strings.ContainsAny(message, specialChars) {
		add(RuleSpecialChars, "", 3)
	}

	switch n := utf8.RuneCountInString(message); {
	case n < 10:
		add(RuleShortMessage, "", 2)
	case n > 2000:
		add(RuleLongMessage, "", 3)
	}

	if urls := len(urlPattern.FindAllString(message, -1)); urls > 2 {
		add(RuleURLs, "", urls*2)
	}

	if hasRepeatedRun(message, repeatRun) {
		add(RuleRepeatedRun, "", 3)
	}

	lower := strings.ToLower(message)
	for _, w := range SpamWords {
		if strings.Contains(lower, w) {
			add(RuleSpamWord, w, 2)
		}
	}

	local, domain := splitAddress(email)
	domain = strings.ToLower(domain)
	for _, m := range TempEmailMarkers {
		if strings.Contains(domain, m) {
			add(RuleTempEmail, m, 5)
		}
	}

	local = strings.ToLower(local)
	for _, part := range strings.Fields(strings.ToLower(name)) {
		if utf8.RuneCountInString(part) > 3 && strings.Contains(local, part) {
			add(RuleNameInEmail, part, 1)
			break
		}
	}

	a := Assessment{Hits: hits}
	a.Score = min(a.Raw(), MaxScore)
	a.Verdict = Classify(a.Score)
	return a
}

// hasRepeatedRun reports whether s holds n or more consecutive copies of the
// same character. Line terminators never start or extend a run.
func hasRepeatedRun(s string, n int) bool {
	var prev rune = -1
	run := 0
	for _, r := range s {
		if isLineTerminator(r) {
			prev, run = -1, 0
			continue
		}
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

func isLineTerminator(r rune) bool {
	return r == '\n' || r == '\r' || r == '\u2028' || r == '\u2029'
}

// splitAddress splits at the first '@'. An address without '@' is all local part.
func splitAddress(email string) (local, domain string) {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i], email[i+1:]
	}
	return email, ""
}
