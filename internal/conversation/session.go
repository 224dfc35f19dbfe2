// Package conversation drives the question/answer exchange: it retrieves
// grounding for each question, asks the model, classifies the reply and
// keeps the ordered history that every later prompt is built from.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tradelaw/internal/classify"
	"tradelaw/internal/domain"
	"tradelaw/internal/prompt"
)

// RetrievalLimit is the number of passages requested for every turn.
const RetrievalLimit = 5

var (
	// ErrRetrieval wraps failures of the Retriever. The session ends.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration wraps failures of the Generator. The session ends.
	ErrGeneration = errors.New("generation failed")
	// ErrEnded is returned when input is submitted to an ended session.
	ErrEnded = errors.New("conversation ended")
)

// State is a position in the conversation state machine.
type State int

const (
	AwaitingInitialQuestion State = iota
	ProcessingTurn
	AwaitingClarificationInput
	AwaitingNextTopic
	Ended
)

func (s State) String() string {
	switch s {
	case AwaitingInitialQuestion:
		return "awaiting_initial_question"
	case ProcessingTurn:
		return "processing_turn"
	case AwaitingClarificationInput:
		return "awaiting_clarification_input"
	case AwaitingNextTopic:
		return "awaiting_next_topic"
	case Ended:
		return "ended"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Policy holds the switches that change conversation behaviour.
type Policy struct {
	// RetainHistoryAcrossTopics keeps earlier turns in the prompt after a
	// final answer when the user moves on to a new question.
	RetainHistoryAcrossTopics bool
}

// DefaultPolicy retains history across topics.
func DefaultPolicy() Policy {
	return Policy{RetainHistoryAcrossTopics: true}
}

// Recorder receives every completed turn. Failures are logged and ignored.
type Recorder interface {
	RecordTurn(ctx context.Context, rec TurnRecord) error
}

// TurnRecord describes one completed turn for a Recorder.
type TurnRecord struct {
	SessionID string
	Index     int
	Turn      domain.Turn
	Kind      domain.ActionKind
	Passages  int
	Duration  time.Duration
}

// Config wires a Session to its collaborators.
type Config struct {
	Retriever domain.Retriever
	Generator domain.Generator
	Composer  *prompt.Composer
	Policy    Policy
	Logger    zerolog.Logger
	Recorder  Recorder
}

// Session is a single conversation. It is not safe for concurrent use:
// turns run strictly one after another.
type Session struct {
	id        string
	retriever domain.Retriever
	generator domain.Generator
	composer  *prompt.Composer
	policy    Policy
	logger    zerolog.Logger
	recorder  Recorder

	state   State
	history []domain.Turn
	turns   int
}

// New creates a session in AwaitingInitialQuestion.
func New(cfg Config) (*Session, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("conversation: retriever is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("conversation: generator is required")
	}
	if cfg.Composer == nil {
		return nil, errors.New("conversation: composer is required")
	}
	id := uuid.NewString()
	return &Session{
		id:        id,
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		composer:  cfg.Composer,
		policy:    cfg.Policy,
		logger:    cfg.Logger.With().Str("session", id).Logger(),
		recorder:  cfg.Recorder,
		state:     AwaitingInitialQuestion,
	}, nil
}

// ID returns the session identifier used in logs and transcripts.
func (s *Session) ID() string { return s.id }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Done reports whether the session has ended.
func (s *Session) Done() bool { return s.state == Ended }

// Turns returns how many turns have been processed.
func (s *Session) Turns() int { return s.turns }

// History returns a copy of the accumulated turns, oldest first.
func (s *Session) History() []domain.Turn {
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Submit feeds one line of user input to the session. Blank input ends the
// session and returns a zero Action. Otherwise a turn is processed and its
// classified action returned; the caller presents it.
//
// A retrieval or generation failure ends the session and is returned wrapped
// in ErrRetrieval or ErrGeneration. No action is produced in that case.
func (s *Session) Submit(ctx context.Context, input string) (domain.Action, error) {
	switch s.state {
	case Ended:
		return domain.Action{}, ErrEnded
	case ProcessingTurn:
		return domain.Action{}, errors.New("conversation: turn already in progress")
	}

	question := strings.TrimSpace(input)
	if question == "" {
		s.logger.Debug().Str("from", s.state.String()).Msg("empty input, ending conversation")
		s.state = Ended
		return domain.Action{}, nil
	}

	if s.state == AwaitingNextTopic && !s.policy.RetainHistoryAcrossTopics {
		s.logger.Debug().Int("dropped_turns", len(s.history)).Msg("new topic, history reset")
		s.history = nil
	}

	s.state = ProcessingTurn
	action, err := s.process(ctx, question)
	if err != nil {
		s.state = Ended
		return domain.Action{}, err
	}

	if action.Kind == domain.ClarifyingQuestion {
		s.state = AwaitingClarificationInput
	} else {
		s.state = AwaitingNextTopic
	}
	return action, nil
}

func (s *Session) process(ctx context.Context, question string) (domain.Action, error) {
	start := time.Now()
	index := s.turns + 1
	log := s.logger.With().Int("turn", index).Logger()
	log.Info().Int("history", len(s.history)).Msg("turn started")

	passages, err := s.retriever.Retrieve(ctx, question, RetrievalLimit)
	if err != nil {
		log.Error().Err(err).Msg("retrieval failed")
		return domain.Action{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}
	log.Debug().Int("passages", len(passages)).Msg("retrieved")

	req := s.composer.Compose(s.History(), question, passages)
	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		log.Error().Err(err).Msg("generation failed")
		return domain.Action{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	action := classify.Classify(resp.Text)
	turn := domain.Turn{Question: question, Answer: resp.Text}
	s.history = append(s.history, turn)
	s.turns = index

	elapsed := time.Since(start)
	log.Info().
		Str("kind", action.Kind.String()).
		Str("model", resp.Model).
		Int("prompt_tokens", resp.PromptTokens).
		Int("completion_tokens", resp.CompletionTokens).
		Dur("duration", elapsed).
		Msg("turn completed")

	if s.recorder != nil {
		rec := TurnRecord{
			SessionID: s.id,
			Index:     index,
			Turn:      turn,
			Kind:      action.Kind,
			Passages:  len(passages),
			Duration:  elapsed,
		}
		if err := s.recorder.RecordTurn(ctx, rec); err != nil {
			log.Warn().Err(err).Msg("failed to record turn")
		}
	}
	return action, nil
}
