package prompt

import (
	"fmt"
	"strings"

	"tradelaw/internal/domain"
)

// NoContextMarker is rendered in place of the context block when retrieval
// returned nothing.
const NoContextMarker = "No relevant source documents were retrieved for this question."

// Composer merges instructions, history, the current question and retrieved
// passages into one generation request. It holds no mutable state.
type Composer struct {
	instructions string
	sampling     domain.SamplingParams
}

// NewComposer creates a composer for the given origin and destination.
func NewComposer(origin, destination string) *Composer {
	return &Composer{
		instructions: Instructions(origin, destination),
		sampling:     domain.DefaultSampling,
	}
}

// Compose builds the request for one turn.
func (c *Composer) Compose(history []domain.Turn, question string, passages []domain.Passage) domain.GenerationRequest {
	return domain.GenerationRequest{
		SystemInstructions: c.instructions,
		HistoryBlock:       RenderHistory(history),
		CurrentQuestion:    question,
		ContextBlock:       RenderContext(passages),
		Sampling:           c.sampling,
	}
}

// RenderHistory formats prior turns as numbered Q/A pairs, oldest first.
// It returns "" for an empty history.
func RenderHistory(history []domain.Turn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Previous conversation:\n")
	for i, t := range history {
		n := i + 1
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n\n", n, t.Question, n, t.Answer)
	}
	return b.String()
}

// RenderContext joins passages as "[Source: uri]\ntext" blocks separated by
// blank lines.
func RenderContext(passages []domain.Passage) string {
	if len(passages) == 0 {
		return NoContextMarker
	}
	blocks := make([]string, 0, len(passages))
	for _, p := range passages {
		src := p.Source
		if strings.TrimSpace(src) == "" {
			src = domain.UnknownSource
		}
		blocks = append(blocks, "[Source: "+src+"]\n"+p.Text)
	}
	return strings.Join(blocks, "\n\n")
}
