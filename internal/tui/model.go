package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"medrag/internal/domain"
	"medrag/internal/service"
	"medrag/internal/summarizer"
	"medrag/internal/textutil"
)

// Assistant is the TUI-facing subset of the assistant service.
type Assistant interface {
	Ask(ctx context.Context, query string) service.Response
	Seed(ctx context.Context) (bool, error)
	Ingest(ctx context.Context, dir string) (int, bool, error)
	Build(ctx context.Context) (bool, error)
	SetCredential(key string)
	Ready(ctx context.Context) bool
}

type answerMsg struct {
	resp service.Response
}

type actionMsg struct {
	status string
	err    error
}

// Model is the Bubble Tea model of the chat shell.
type Model struct {
	ctx       context.Context
	assistant Assistant
	excerpter *summarizer.Excerpter
	sessionID string

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	turns     []domain.ConversationTurn
	sources   []domain.Candidate
	lastQuery string
	cursor    int
	notice    string
	status    string
	busy      bool
	ready     bool
	width     int
}

// New creates the chat model. ctx bounds every call made on behalf of the user.
func New(ctx context.Context, assistant Assistant, excerpter *summarizer.Excerpter) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What are the symptoms of flu?"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	status := "Index not built yet. Try /seed then /build, or /help."
	if assistant.Ready(ctx) {
		status = "Index loaded. Ask a medical question."
	}
	return Model{
		ctx:       ctx,
		assistant: assistant,
		excerpter: excerpter,
		sessionID: uuid.NewString(),
		input:     ti,
		viewport:  viewport.New(0, 0),
		spinner:   sp,
		status:    status,
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Transcript returns the conversation so far.
func (m Model) Transcript() []domain.ConversationTurn { return m.turns }

// Update handles key, window and async result events.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		_, th := transcriptBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + sourcesHeight + 1 + qh + 1 // header, sources, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-th)
		m.refresh()
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case answerMsg:
		m.busy = false
		m.turns = append(m.turns, domain.ConversationTurn{Role: domain.RoleAssistant, Content: msg.resp.Answer.Display()})
		m.sources = msg.resp.Sources
		m.cursor = 0
		m.status = statusLine(msg.resp)
		m.refresh()
		return m, nil
	case actionMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
		} else {
			m.status = msg.status
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.Reset()
			if strings.HasPrefix(line, "/") {
				return m.command(line)
			}
			m.notice = ""
			m.turns = append(m.turns, domain.ConversationTurn{Role: domain.RoleUser, Content: line})
			m.lastQuery = line
			m.busy = true
			m.status = "Searching medical records..."
			m.refresh()
			return m, tea.Batch(m.spinner.Tick, m.ask(line))
		case "down":
			if len(m.sources) > 0 {
				m.cursor = (m.cursor + 1) % len(m.sources)
				return m, nil
			}
		case "up":
			if len(m.sources) > 0 {
				m.cursor = (m.cursor - 1 + len(m.sources)) % len(m.sources)
				return m, nil
			}
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(query string) tea.Cmd {
	return func() tea.Msg {
		return answerMsg{resp: m.assistant.Ask(m.ctx, query)}
	}
}

func statusLine(resp service.Response) string {
	switch resp.Status {
	case service.StatusAnswered:
		return fmt.Sprintf("Answered from %d sources.", len(resp.Sources))
	case service.StatusNoResults:
		return "No matching records. Build the index with /build."
	case service.StatusConfigError:
		return "Set an API key with /key <key>."
	default:
		return "Request failed."
	}
}

// View renders the chat layout.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := headerStyle.Render("AI Healthcare Assistant") + "  " +
		mutedStyle.Render("Ask medical questions and get answers from the MedQuAD knowledge base.")
	transcript := transcriptBoxStyle.Render(m.viewport.View())
	sources := lipgloss.NewStyle().Height(sourcesHeight).MaxHeight(sourcesHeight).Render(m.renderSources())
	input := queryBoxStyle.Render(m.input.View())
	status := statusStyle.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " " + status
	}
	return header + "\n" + transcript + "\n" + sources + "\n" + input + "\n" + status
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m Model) renderTranscript() string {
	width := max(10, m.viewport.Width-4)
	wrap := lipgloss.NewStyle().Width(width)
	var b strings.Builder
	for _, t := range m.turns {
		if t.Role == domain.RoleUser {
			b.WriteString(userStyle.Render("You") + "\n")
		} else {
			b.WriteString(botStyle.Render("Assistant") + "\n")
		}
		b.WriteString(wrap.Render(t.Content) + "\n\n")
	}
	if m.notice != "" {
		b.WriteString(mutedStyle.Render(wrap.Render(m.notice)))
	}
	if b.Len() == 0 {
		return mutedStyle.Render("No messages yet.")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderSources() string {
	if len(m.sources) == 0 {
		return mutedStyle.Render("Trusted sources appear here after an answer.")
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render("Trusted Sources") + mutedStyle.Render("  (up/down to browse)") + "\n")
	for i, s := range m.sources {
		line := fmt.Sprintf("Source %d: %s (Score: %.4f)  Q: %s  From: %s", i+1, s.Focus, s.RerankScore, s.Question, s.Source)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	cur := m.sources[m.cursor]
	excerpt := cur.Answer
	if m.excerpter != nil {
		excerpt = m.excerpter.Excerpt(m.lastQuery, cur.Answer)
	}
	width := max(10, m.width-4)
	b.WriteString(lipgloss.NewStyle().Width(width).PaddingLeft(2).Render(highlightBestSentence(excerpt, m.lastQuery)))
	return b.String()
}

const sourcesHeight = 8

var (
	transcriptBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	headerStyle        = lipgloss.NewStyle().Bold(true)
	mutedStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	userStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	botStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("13")).Bold(true)
	selectedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	highlightStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// highlightBestSentence emphasises the sentence sharing the most words with the query.
func highlightBestSentence(text, query string) string {
	sentences := textutil.Sentences(text)
	if len(sentences) == 0 {
		return text
	}
	qTokens := textutil.ContentSet(query, textutil.Stopwords())
	if len(qTokens) == 0 {
		return strings.Join(sentences, " ")
	}
	bestIdx, bestScore := 0, -1
	for i, s := range sentences {
		score := 0
		for t := range textutil.ContentSet(s, nil) {
			if _, ok := qTokens[t]; ok {
				score++
			}
		}
		if score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	sentences[bestIdx] = highlightStyle.Render(sentences[bestIdx])
	return strings.Join(sentences, " ")
}
