package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tradelaw/internal/classify"
	"tradelaw/internal/conversation"
	"tradelaw/internal/domain"
	"tradelaw/internal/textutil"
)

// Conversation is the TUI-facing subset of a conversation session.
type Conversation interface {
	Submit(ctx context.Context, input string) (domain.Action, error)
	State() conversation.State
	Done() bool
}

type exchange struct {
	question string
	action   domain.Action
}

type turnMsg struct {
	question string
	action   domain.Action
	err      error
}

// Model is the Bubble Tea model for the chat TUI.
type Model struct {
	ctx       context.Context
	cancel    context.CancelFunc
	conv      Conversation
	title     string
	input     textinput.Model
	viewport  viewport.Model
	exchanges []exchange
	pending   string
	status    string
	busy      bool
	ready     bool
	err       error
}

// New creates a new TUI model over conv. ctx bounds every turn; quitting
// cancels a turn still in flight.
func New(ctx context.Context, conv Conversation, origin, destination string) Model {
	ctx, cancel := context.WithCancel(ctx)
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = strings.TrimSuffix(conversation.PromptFor(conv.State()), " ")
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		cancel:   cancel,
		conv:     conv,
		title:    fmt.Sprintf("Trade Law Assistant: %s to %s", origin, destination),
		input:    ti,
		viewport: vp,
		status:   "Ask about importing or exporting an item. Empty line exits.",
	}
}

// Err returns the failure that ended the conversation, if any.
func (m Model) Err() error { return m.err }

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key, window and turn events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := transcriptBoxStyle.GetFrameSize()
		_, qh := inputBoxStyle.GetFrameSize()
		reserved := 1 + 1 + qh + 1 // header, status, input box, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case turnMsg:
		m.busy = false
		m.pending = ""
		if msg.err != nil {
			m.err = msg.err
			m.status = "Error: " + msg.err.Error()
			return m.quit()
		}
		m.exchanges = append(m.exchanges, exchange{question: msg.question, action: msg.action})
		m.input.Placeholder = strings.TrimSuffix(conversation.PromptFor(m.conv.State()), " ")
		if msg.action.Kind == domain.ClarifyingQuestion {
			m.status = "The assistant needs more detail."
		} else {
			m.status = "Answered. Ask another question or press Enter to exit."
		}
		m.viewport.SetContent(m.renderTranscript())
		m.viewport.GotoBottom()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m.quit()
		}
		switch msg.String() {
		case "enter":
			if m.busy {
				m.status = "Still working on the previous question..."
				return m, nil
			}
			q := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			if q == "" {
				if _, err := m.conv.Submit(m.ctx, ""); err != nil {
					m.err = err
				}
				m.status = conversation.NoticeGoodbye
				return m.quit()
			}
			m.busy = true
			m.pending = q
			m.status = conversation.NoticeSearching
			m.viewport.SetContent(m.renderTranscript())
			m.viewport.GotoBottom()
			return m, m.submit(q)
		case "up", "down", "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.cancel()
	return m, tea.Quit
}

func (m Model) submit(q string) tea.Cmd {
	conv, ctx := m.conv, m.ctx
	return func() tea.Msg {
		action, err := conv.Submit(ctx, q)
		return turnMsg{question: q, action: action, err: err}
	}
}

// View renders the TUI layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render(m.title)
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	input := inputBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	return header + "\n" + transcript + "\n" + input + "\n" + status
}

func (m Model) renderTranscript() string {
	if len(m.exchanges) == 0 && m.pending == "" {
		return "No questions yet."
	}
	var b strings.Builder
	for _, ex := range m.exchanges {
		b.WriteString(questionStyle.Render("You: " + ex.question))
		b.WriteString("\n")
		b.WriteString(renderAnswer(ex))
		b.WriteString("\n\n")
	}
	if m.pending != "" {
		b.WriteString(questionStyle.Render("You: " + m.pending))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(conversation.NoticeSearching))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAnswer(ex exchange) string {
	if ex.action.Kind == domain.ClarifyingQuestion {
		return styleLines(clarifyStyle, ex.action.Text)
	}
	rec, ok := classify.ParseRecord(ex.action.Text)
	if !ok {
		return highlightBestLine(ex.action.Text, ex.question)
	}
	return recordSummary(rec) + "\n" + ex.action.Text
}

func recordSummary(r classify.Record) string {
	var parts []string
	if r.Item != "" {
		parts = append(parts, r.Item)
	}
	if r.ShipFrom != "" || r.ShipTo != "" {
		parts = append(parts, r.ShipFrom+" to "+r.ShipTo)
	}
	if r.Result != "" {
		parts = append(parts, resultStyle(r.Result).Render(r.Result))
	}
	if r.ExportTax != "" {
		parts = append(parts, "export tax "+r.ExportTax)
	}
	if r.ImportTax != "" {
		parts = append(parts, "import tax "+r.ImportTax)
	}
	return lipgloss.NewStyle().Bold(true).Render(strings.Join(parts, " | "))
}

func resultStyle(result string) lipgloss.Style {
	switch result {
	case classify.ResultAllow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case classify.ResultNotAllow:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	}
}

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	inputBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true).TabWidth(lipgloss.NoTabConversion)
	questionStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	clarifyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).TabWidth(lipgloss.NoTabConversion)
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// highlightBestLine styles the line sharing the most terms with query. Line
// breaks, tabs and punctuation of text are left exactly as they are.
func highlightBestLine(text, query string) string {
	lines := strings.Split(text, "\n")
	best := bestLine(lines, query)
	if best < 0 {
		return text
	}
	lines[best] = highlightStyle.Render(lines[best])
	return strings.Join(lines, "\n")
}

// bestLine returns the index of the line with the most query terms, or -1
// when no line shares a term with query.
func bestLine(lines []string, query string) int {
	qTerms := textutil.TermSet(query)
	if len(qTerms) == 0 {
		return -1
	}
	bestIdx, bestScore := -1, 0
	for i, line := range lines {
		score := 0
		for t := range textutil.TermSet(line) {
			if _, ok := qTerms[t]; ok {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	return bestIdx
}

// styleLines renders each line separately so multi-line answers are not
// padded to a common width.
func styleLines(style lipgloss.Style, text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = style.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}
