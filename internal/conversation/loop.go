package conversation

import (
	"context"
	"errors"
	"io"
	"strings"

	"tradelaw/internal/domain"
)

// Input obtains one line from the user. io.EOF is treated as an empty line.
type Input interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// Output shows classified actions and progress notices to the user.
type Output interface {
	Notice(msg string)
	Present(action domain.Action) error
}

const (
	PromptQuestion      = "Your question: "
	PromptClarification = "Your answer: "
	PromptNextTopic     = "Any other questions? (Press Enter to exit): "

	NoticeSearching = "Searching legal documents and processing..."
	NoticeGoodbye   = "Chat ended. Goodbye!"
)

// PromptFor returns the input prompt shown in state st.
func PromptFor(st State) string {
	switch st {
	case AwaitingClarificationInput:
		return PromptClarification
	case AwaitingNextTopic:
		return PromptNextTopic
	default:
		return PromptQuestion
	}
}

// Run reads input and presents answers until the session ends. It returns
// nil when the user ends the conversation and a wrapped ErrRetrieval or
// ErrGeneration when a collaborator fails.
func (s *Session) Run(ctx context.Context, in Input, out Output) error {
	for !s.Done() {
		line, err := in.ReadLine(ctx, PromptFor(s.state))
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			line = ""
		}

		if strings.TrimSpace(line) != "" {
			out.Notice(NoticeSearching)
		}
		action, err := s.Submit(ctx, line)
		if err != nil {
			return err
		}
		if s.Done() {
			out.Notice(NoticeGoodbye)
			return nil
		}
		if err := out.Present(action); err != nil {
			return err
		}
	}
	return nil
}
