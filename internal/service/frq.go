package service

import (
	"regexp"
	"strconv"
	"strings"
)

// Multi-part free-response questions are encoded inside PromptMd:
// the shared stem, then a ---FRQ_PARTS--- line, then one [PART:<label>:<points>]
// header per part followed by that part's prompt. Student answers to a
// multi-part question are stored as one string with parts joined by " | ".
const (
	frqPartsDelimiter    = "---FRQ_PARTS---"
	partAnswerDelimiter  = " | "
	blankAnswerDelimiter = " | "
)

var (
	partHeaderRe  = regexp.MustCompile(`\[PART:([^:\]]+):([0-9]+(?:\.[0-9]+)?)\]`)
	blankMarkerRe = regexp.MustCompile(`\[blank[0-9]*\]`)
)

// FRQPart is one declared sub-question of a multi-part free response.
type FRQPart struct {
	Label  string
	Points float64
	Prompt string
}

// ParseFRQParts extracts the declared parts from a prompt, or nil when the
// prompt is not multi-part.
func ParseFRQParts(promptMd string) []FRQPart {
	idx := strings.Index(promptMd, frqPartsDelimiter)
	if idx < 0 {
		return nil
	}
	body := promptMd[idx+len(frqPartsDelimiter):]

	headers := partHeaderRe.FindAllStringSubmatchIndex(body, -1)
	if len(headers) == 0 {
		return nil
	}

	parts := make([]FRQPart, 0, len(headers))
	for i, h := range headers {
		label := body[h[2]:h[3]]
		points, err := strconv.ParseFloat(body[h[4]:h[5]], 64)
		if err != nil {
			continue
		}
		end := len(body)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		parts = append(parts, FRQPart{
			Label:  label,
			Points: points,
			Prompt: strings.TrimSpace(body[h[1]:end]),
		})
	}
	if len(parts) == 0 {
		return nil
	}
	return parts
}

// SplitPartAnswers splits a stored answer into exactly n segments, padding
// with empty strings when the student answered fewer parts.
func SplitPartAnswers(answerText string, n int) []string {
	segments := strings.Split(answerText, partAnswerDelimiter)
	out := make([]string, n)
	for i := 0; i < n && i < len(segments); i++ {
		out[i] = strings.TrimSpace(segments[i])
	}
	return out
}

// CountBlanks returns the number of [blank]/[blankN] markers in a prompt.
// Zero means the prompt is not a fill-in-the-blank variant.
func CountBlanks(promptMd string) int {
	return len(blankMarkerRe.FindAllString(promptMd, -1))
}

// PartSuggestion is the per-part breakdown stored in a suggestion's raw
// payload. Graded distinguishes a real zero from an unscored placeholder.
type PartSuggestion struct {
	Label     string   `json:"label"`
	MaxPoints float64  `json:"max_points"`
	Points    *float64 `json:"points,omitempty"`
	Rationale string   `json:"rationale,omitempty"`
	Graded    bool     `json:"graded"`
}

// NewPartPlaceholders builds an unscored breakdown matching the declared parts.
func NewPartPlaceholders(parts []FRQPart) []PartSuggestion {
	out := make([]PartSuggestion, len(parts))
	for i, p := range parts {
		out[i] = PartSuggestion{Label: p.Label, MaxPoints: p.Points}
	}
	return out
}

// MergePartSuggestions folds freshly graded parts into an existing breakdown.
// Only entries graded in update replace their slot; everything else keeps its
// previous score. Grading one part must never reset the others.
func MergePartSuggestions(existing, update []PartSuggestion) []PartSuggestion {
	if len(existing) == 0 {
		return update
	}
	merged := make([]PartSuggestion, len(existing))
	copy(merged, existing)
	for i := 0; i < len(update) && i < len(merged); i++ {
		if update[i].Graded {
			merged[i] = update[i]
		}
	}
	return merged
}

// TotalSuggestedPoints sums the graded parts of a breakdown. The bool is
// false when no part has been graded yet.
func TotalSuggestedPoints(parts []PartSuggestion) (float64, bool) {
	total := 0.0
	any := false
	for _, p := range parts {
		if p.Graded && p.Points != nil {
			total += *p.Points
			any = true
		}
	}
	return total, any
}
