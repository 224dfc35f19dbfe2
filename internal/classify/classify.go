// Package classify decides whether a model response asks the user for more
// input or answers the question.
//
// The check is a plain string match. Responses are never validated against
// the structured record, so malformed answers still end the turn as a
// FinalAnswer and are shown to the user as they are.
package classify

import (
	"strings"

	"tradelaw/internal/domain"
)

const (
	FollowUpMarker = "Follow-up Question:"
	OptionsMarker  = "Options:"
)

// Classify maps a response to a clarifying question or a final answer.
// The response text is carried through unchanged.
func Classify(text string) domain.Action {
	if IsClarifying(text) {
		return domain.Action{Kind: domain.ClarifyingQuestion, Text: text}
	}
	return domain.Action{Kind: domain.FinalAnswer, Text: text}
}

// IsClarifying reports whether text starts with the follow-up marker after
// trimming, or mentions the options marker anywhere.
func IsClarifying(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), FollowUpMarker) ||
		strings.Contains(text, OptionsMarker)
}
