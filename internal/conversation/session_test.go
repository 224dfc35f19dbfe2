package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradelaw/internal/domain"
	"tradelaw/internal/prompt"
)

type fakeRetriever struct {
	passages []domain.Passage
	err      error
	queries  []string
	limits   []int
}

func (f *fakeRetriever) Retrieve(_ context.Context, query string, limit int) ([]domain.Passage, error) {
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	if f.err != nil {
		return nil, f.err
	}
	return f.passages, nil
}

type scriptedGenerator struct {
	replies  []string
	err      error
	requests []domain.GenerationRequest
}

func (g *scriptedGenerator) Generate(_ context.Context, req domain.GenerationRequest) (domain.ModelResponse, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return domain.ModelResponse{}, g.err
	}
	if len(g.requests) > len(g.replies) {
		return domain.ModelResponse{}, errors.New("no scripted reply available")
	}
	return domain.ModelResponse{Text: g.replies[len(g.requests)-1], Model: "scripted"}, nil
}

type lineInput struct {
	lines   []string
	prompts []string
}

func (in *lineInput) ReadLine(_ context.Context, p string) (string, error) {
	in.prompts = append(in.prompts, p)
	if len(in.lines) == 0 {
		return "", io.EOF
	}
	line := in.lines[0]
	in.lines = in.lines[1:]
	return line, nil
}

type recordingOutput struct {
	notices   []string
	presented []domain.Action
}

func (o *recordingOutput) Notice(msg string) { o.notices = append(o.notices, msg) }

func (o *recordingOutput) Present(a domain.Action) error {
	o.presented = append(o.presented, a)
	return nil
}

type memRecorder struct{ records []TurnRecord }

func (m *memRecorder) RecordTurn(_ context.Context, rec TurnRecord) error {
	m.records = append(m.records, rec)
	return nil
}

const (
	durianRecord = `{"Item":"Durian","ShipFrom":"Malaysia","ShipTo":"Singapore","Result":"With Condition","ExportTax":"0%","ImportTax":"0%","Source":"Plant Quarantine Act 1976"}`
	whatItem     = "Follow-up Question: What item are you exporting? Options: A) Food B) Electronics C) Other"
)

func newSession(t *testing.T, r domain.Retriever, g domain.Generator, policy Policy) *Session {
	t.Helper()
	s, err := New(Config{
		Retriever: r,
		Generator: g,
		Composer:  prompt.NewComposer("Malaysia", "Singapore"),
		Policy:    policy,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return s
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{Generator: &scriptedGenerator{}, Composer: prompt.NewComposer("a", "b")})
	assert.Error(t, err)
	_, err = New(Config{Retriever: &fakeRetriever{}, Composer: prompt.NewComposer("a", "b")})
	assert.Error(t, err)
	_, err = New(Config{Retriever: &fakeRetriever{}, Generator: &scriptedGenerator{}})
	assert.Error(t, err)
}

func TestFinalAnswerThenEmptyInputEnds(t *testing.T) {
	r := &fakeRetriever{passages: []domain.Passage{
		{Text: "Durian exports need a permit.", Source: "s3://kb/my.pdf"},
		{Text: "Fresh fruit imports need an SFA licence.", Source: "s3://kb/sg.pdf"},
	}}
	g := &scriptedGenerator{replies: []string{durianRecord}}
	s := newSession(t, r, g, DefaultPolicy())
	in := &lineInput{lines: []string{"Can I export durian to Singapore?", ""}}
	out := &recordingOutput{}

	require.NoError(t, s.Run(context.Background(), in, out))

	assert.Equal(t, Ended, s.State())
	assert.Equal(t, 1, s.Turns())
	require.Len(t, out.presented, 1)
	assert.Equal(t, domain.FinalAnswer, out.presented[0].Kind)
	assert.Equal(t, durianRecord, out.presented[0].Text)
	assert.Equal(t, []string{"Can I export durian to Singapore?"}, r.queries)
	assert.Equal(t, []int{RetrievalLimit}, r.limits)
	assert.Len(t, g.requests, 1)
	assert.Equal(t, []string{PromptQuestion, PromptNextTopic}, in.prompts)
	assert.Equal(t, []string{NoticeSearching, NoticeGoodbye}, out.notices)
	assert.Contains(t, g.requests[0].ContextBlock, "[Source: s3://kb/my.pdf]\nDurian exports need a permit.")
}

func TestClarificationCarriesHistory(t *testing.T) {
	r := &fakeRetriever{}
	g := &scriptedGenerator{replies: []string{whatItem, durianRecord}}
	s := newSession(t, r, g, DefaultPolicy())
	ctx := context.Background()

	action, err := s.Submit(ctx, "I want to export something")
	require.NoError(t, err)
	assert.Equal(t, domain.ClarifyingQuestion, action.Kind)
	assert.Equal(t, AwaitingClarificationInput, s.State())
	assert.Equal(t, PromptClarification, PromptFor(s.State()))

	action, err = s.Submit(ctx, "Food")
	require.NoError(t, err)
	assert.Equal(t, domain.FinalAnswer, action.Kind)

	require.Len(t, g.requests, 2)
	assert.Empty(t, g.requests[0].HistoryBlock)
	second := g.requests[1]
	assert.Equal(t, "Food", second.CurrentQuestion)
	assert.Equal(t, "Previous conversation:\nQ1: I want to export something\nA1: "+whatItem+"\n\n", second.HistoryBlock)
	assert.NotContains(t, second.HistoryBlock, "Q2:")
	assert.Equal(t, []string{"I want to export something", "Food"}, r.queries)
}

func TestEmptyRetrievalStillProducesTurn(t *testing.T) {
	r := &fakeRetriever{}
	g := &scriptedGenerator{replies: []string{`{"Item":"widget","Source":"No relevant legal documents found"}`}}
	s := newSession(t, r, g, DefaultPolicy())

	action, err := s.Submit(context.Background(), "Can I export widgets?")
	require.NoError(t, err)
	assert.Equal(t, domain.FinalAnswer, action.Kind)
	require.Len(t, g.requests, 1)
	assert.Equal(t, prompt.NoContextMarker, g.requests[0].ContextBlock)
	assert.Equal(t, AwaitingNextTopic, s.State())
}

func TestEmptyInitialInputEndsWithoutCalls(t *testing.T) {
	for _, line := range []string{"", "   ", "\t\n"} {
		r := &fakeRetriever{}
		g := &scriptedGenerator{}
		s := newSession(t, r, g, DefaultPolicy())

		action, err := s.Submit(context.Background(), line)
		require.NoError(t, err)
		assert.Equal(t, domain.Action{}, action)
		assert.True(t, s.Done())
		assert.Empty(t, r.queries)
		assert.Empty(t, g.requests)
	}
}

func TestEmptyInputEndsFromEveryAwaitingState(t *testing.T) {
	tests := []struct {
		name    string
		replies []string
		want    State
	}{
		{"after clarification", []string{whatItem}, AwaitingClarificationInput},
		{"after final answer", []string{durianRecord}, AwaitingNextTopic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &fakeRetriever{}
			g := &scriptedGenerator{replies: tt.replies}
			s := newSession(t, r, g, DefaultPolicy())
			ctx := context.Background()

			_, err := s.Submit(ctx, "question")
			require.NoError(t, err)
			require.Equal(t, tt.want, s.State())

			_, err = s.Submit(ctx, "  ")
			require.NoError(t, err)
			assert.Equal(t, Ended, s.State())
			assert.Len(t, r.queries, 1)
			assert.Len(t, g.requests, 1)

			_, err = s.Submit(ctx, "more")
			assert.ErrorIs(t, err, ErrEnded)
			assert.Len(t, g.requests, 1)
		})
	}
}

func TestHistoryRetainedAcrossTopicsByDefault(t *testing.T) {
	g := &scriptedGenerator{replies: []string{durianRecord, durianRecord}}
	s := newSession(t, &fakeRetriever{}, g, DefaultPolicy())
	ctx := context.Background()

	_, err := s.Submit(ctx, "Can I export durian?")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "What about rice?")
	require.NoError(t, err)

	assert.Len(t, s.History(), 2)
	assert.Contains(t, g.requests[1].HistoryBlock, "Q1: Can I export durian?")
}

func TestHistoryResetAcrossTopicsWhenDisabled(t *testing.T) {
	g := &scriptedGenerator{replies: []string{whatItem, durianRecord, durianRecord}}
	s := newSession(t, &fakeRetriever{}, g, Policy{RetainHistoryAcrossTopics: false})
	ctx := context.Background()

	_, err := s.Submit(ctx, "I want to export something")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "Durian")
	require.NoError(t, err)
	assert.Contains(t, g.requests[1].HistoryBlock, "Q1: I want to export something")

	_, err = s.Submit(ctx, "What about rice?")
	require.NoError(t, err)
	assert.Empty(t, g.requests[2].HistoryBlock)
	assert.Equal(t, []domain.Turn{{Question: "What about rice?", Answer: durianRecord}}, s.History())
}

func TestRetrievalFailureEndsSession(t *testing.T) {
	boom := errors.New("knowledge base unavailable")
	r := &fakeRetriever{err: boom}
	g := &scriptedGenerator{}
	s := newSession(t, r, g, DefaultPolicy())
	out := &recordingOutput{}

	err := s.Run(context.Background(), &lineInput{lines: []string{"Can I export durian?"}}, out)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRetrieval)
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.Done())
	assert.Empty(t, g.requests)
	assert.Empty(t, out.presented)
	assert.Empty(t, s.History())
}

func TestGenerationFailureEndsSession(t *testing.T) {
	boom := errors.New("throttled")
	g := &scriptedGenerator{err: boom}
	s := newSession(t, &fakeRetriever{}, g, DefaultPolicy())
	out := &recordingOutput{}

	err := s.Run(context.Background(), &lineInput{lines: []string{"Can I export durian?", "never read"}}, out)

	assert.ErrorIs(t, err, ErrGeneration)
	assert.ErrorIs(t, err, boom)
	assert.True(t, s.Done())
	assert.Empty(t, out.presented)
	assert.Empty(t, s.History())
}

func TestMalformedAnswerIsPassedThrough(t *testing.T) {
	reply := "Sure! {\"Item\": \"rice\", oops"
	g := &scriptedGenerator{replies: []string{reply}}
	s := newSession(t, &fakeRetriever{}, g, DefaultPolicy())
	out := &recordingOutput{}

	require.NoError(t, s.Run(context.Background(), &lineInput{lines: []string{"rice?"}}, out))

	require.Len(t, out.presented, 1)
	assert.Equal(t, domain.Action{Kind: domain.FinalAnswer, Text: reply}, out.presented[0])
}

func TestEmptyModelResponseIsFinalAnswer(t *testing.T) {
	g := &scriptedGenerator{replies: []string{""}}
	s := newSession(t, &fakeRetriever{}, g, DefaultPolicy())

	action, err := s.Submit(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, domain.Action{Kind: domain.FinalAnswer}, action)
	assert.Equal(t, []domain.Turn{{Question: "anything", Answer: ""}}, s.History())
}

func TestHistoryReturnsCopy(t *testing.T) {
	g := &scriptedGenerator{replies: []string{durianRecord}}
	s := newSession(t, &fakeRetriever{}, g, DefaultPolicy())
	_, err := s.Submit(context.Background(), "durian")
	require.NoError(t, err)

	h := s.History()
	h[0].Question = "mutated"
	assert.Equal(t, "durian", s.History()[0].Question)
}

func TestQuestionIsTrimmed(t *testing.T) {
	r := &fakeRetriever{}
	g := &scriptedGenerator{replies: []string{durianRecord}}
	s := newSession(t, r, g, DefaultPolicy())

	_, err := s.Submit(context.Background(), "  Can I export durian?\n")
	require.NoError(t, err)
	assert.Equal(t, "Can I export durian?", r.queries[0])
	assert.Equal(t, "Can I export durian?", g.requests[0].CurrentQuestion)
}

func TestRecorderReceivesTurns(t *testing.T) {
	rec := &memRecorder{}
	s, err := New(Config{
		Retriever: &fakeRetriever{passages: []domain.Passage{{Text: "t", Source: "s"}}},
		Generator: &scriptedGenerator{replies: []string{whatItem, durianRecord}},
		Composer:  prompt.NewComposer("Malaysia", "Singapore"),
		Policy:    DefaultPolicy(),
		Logger:    zerolog.Nop(),
		Recorder:  rec,
	})
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Submit(ctx, "export something")
	require.NoError(t, err)
	_, err = s.Submit(ctx, "A")
	require.NoError(t, err)

	require.Len(t, rec.records, 2)
	assert.Equal(t, s.ID(), rec.records[0].SessionID)
	assert.Equal(t, 1, rec.records[0].Index)
	assert.Equal(t, domain.ClarifyingQuestion, rec.records[0].Kind)
	assert.Equal(t, 2, rec.records[1].Index)
	assert.Equal(t, domain.FinalAnswer, rec.records[1].Kind)
	assert.Equal(t, 1, rec.records[1].Passages)
}

func TestRunStopsOnEOF(t *testing.T) {
	g := &scriptedGenerator{replies: []string{whatItem}}
	s := newSession(t, &fakeRetriever{}, g, DefaultPolicy())
	out := &recordingOutput{}

	require.NoError(t, s.Run(context.Background(), &lineInput{lines: []string{"export"}}, out))
	assert.True(t, s.Done())
	require.Len(t, out.presented, 1)
	assert.True(t, strings.HasPrefix(out.presented[0].Text, "Follow-up Question:"))
}
