package domain

import "strings"

// UnknownSource is the provenance rendered for passages without a source location.
const UnknownSource = "Unknown Source"

// Passage is a retrieved unit of text together with where it came from.
type Passage struct {
	Text   string
	Source string
}

// NewPassage builds a passage, substituting UnknownSource for a blank source.
func NewPassage(text, source string) Passage {
	if strings.TrimSpace(source) == "" {
		source = UnknownSource
	}
	return Passage{Text: text, Source: source}
}

// Turn is one question and the model's answer to it.
type Turn struct {
	Question string
	Answer   string
}

// SamplingParams controls generation.
type SamplingParams struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// DefaultSampling is the fixed sampling policy for every turn.
var DefaultSampling = SamplingParams{Temperature: 0.2, MaxTokens: 1200, TopP: 0.9}

// GenerationRequest is everything the generator needs for one turn.
// It is built once per turn and discarded afterwards.
type GenerationRequest struct {
	SystemInstructions string
	HistoryBlock       string
	CurrentQuestion    string
	ContextBlock       string
	Sampling           SamplingParams
}

// Prompt renders the request as the single text prompt sent to the model.
func (r GenerationRequest) Prompt() string {
	var b strings.Builder
	b.WriteString("System Instructions:\n")
	b.WriteString(r.SystemInstructions)
	b.WriteString("\n\n")
	if r.HistoryBlock != "" {
		b.WriteString(r.HistoryBlock)
	}
	b.WriteString("Current Question:\n")
	b.WriteString(r.CurrentQuestion)
	b.WriteString("\n\nRetrieved Context:\n")
	b.WriteString(r.ContextBlock)
	b.WriteString("\n")
	return b.String()
}

// ModelResponse is the raw completion returned by a Generator.
type ModelResponse struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// ActionKind tells whether the assistant needs more input or has answered.
type ActionKind int

const (
	FinalAnswer ActionKind = iota
	ClarifyingQuestion
)

func (k ActionKind) String() string {
	switch k {
	case ClarifyingQuestion:
		return "clarifying_question"
	default:
		return "final_answer"
	}
}

// Action is the classified form of a model response.
type Action struct {
	Kind ActionKind
	Text string
}
