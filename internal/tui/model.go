package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"eidrag/internal/domain"
	"eidrag/internal/summarizer"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Search(ctx context.Context, query, userID string) (domain.SearchResult, error)
	RelatedQuestions(ctx context.Context, topic string) []string
}

type resultMsg struct {
	query  string
	result domain.SearchResult
	err    error
}

type relatedMsg struct {
	topic     string
	questions []string
}

// Model is the Bubble Tea model for the TUI application. Page 0 is the
// answer; pages 1..n are its sources.
type Model struct {
	service   RAGPort
	ctx       context.Context
	input     textinput.Model
	viewport  viewport.Model
	result    *domain.SearchResult
	related   []string
	subtitle  string
	status    string
	cursor    int
	ready     bool
	busy      bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(ctx context.Context, service RAGPort, subtitle string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (ctrl+r: related questions)"
	ti.Focus()
	ti.CharLimit = 500
	vp := viewport.New(0, 0)
	return Model{service: service, ctx: ctx, input: ti, viewport: vp, subtitle: subtitle, status: "Ready."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

func (m Model) search(q string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.service.Search(m.ctx, q, "")
		return resultMsg{query: q, result: res, err: err}
	}
}

func (m Model) relatedQuestions(topic string) tea.Cmd {
	return func() tea.Msg {
		return relatedMsg{topic: topic, questions: m.service.RelatedQuestions(m.ctx, topic)}
	}
}

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header+subtitle, status, spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderPage())
		return m, nil
	case resultMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.result = nil
		} else {
			res := msg.result
			m.result = &res
			m.cursor = 0
			m.lastQuery = msg.query
			m.status = fmt.Sprintf("%d sources, confidence %.2f, %dms (%s)", len(res.Sources), res.Confidence, res.ResponseTime, res.Model)
		}
		m.related = nil
		m.viewport.SetContent(m.renderPage())
		return m, nil
	case relatedMsg:
		m.busy = false
		m.related = msg.questions
		m.status = fmt.Sprintf("%d related questions for %q", len(msg.questions), msg.topic)
		m.viewport.SetContent(m.renderPage())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Searching %q...", q)
				return m, m.search(q)
			}
		case "ctrl+r":
			topic := strings.TrimSpace(m.input.Value())
			if topic == "" {
				topic = m.lastQuery
			}
			if topic != "" && !m.busy {
				m.busy = true
				m.status = fmt.Sprintf("Finding questions related to %q...", topic)
				return m, m.relatedQuestions(topic)
			}
		case "down":
			if n := m.pages(); n > 1 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderPage())
				return m, nil
			}
		case "up":
			if n := m.pages(); n > 1 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderPage())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the TUI layout and current page.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Eid RAG")
	subtitle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.subtitle)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + subtitle + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) pages() int {
	if m.result == nil {
		return 0
	}
	return 1 + len(m.result.Sources)
}

func (m Model) renderPage() string {
	if len(m.related) > 0 {
		return "Related questions:\n\n- " + strings.Join(m.related, "\n- ")
	}
	if m.result == nil {
		return "No results yet."
	}
	if m.cursor == 0 {
		return fmt.Sprintf("Answer (1/%d)\n\n%s", m.pages(), m.result.Answer)
	}
	s := m.result.Sources[m.cursor-1]
	title := fmt.Sprintf("Source %d/%d  %s=%.3f\n%s\n%s", m.cursor, len(m.result.Sources), s.ScoreKind, s.Relevance, s.Title, s.URL)
	body := s.Content
	if body == "" {
		body = s.Excerpt
	}
	return title + "\n\n" + markBestSentence(body, m.lastQuery)
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

// markBestSentence renders the sentence sharing the most content words with
// query in the highlight style. Text with no overlap is returned unchanged.
func markBestSentence(text, query string) string {
	sentences := summarizer.Sentences(text)
	if len(sentences) == 0 {
		return strings.TrimSpace(text)
	}
	want := summarizer.Words(query)
	best, bestHits := -1, 0
	for i, s := range sentences {
		if hits := overlap(want, summarizer.Words(s)); hits > bestHits {
			best, bestHits = i, hits
		}
	}
	if best >= 0 {
		sentences[best] = highlightStyle.Render(sentences[best])
	}
	return strings.Join(sentences, " ")
}

// overlap counts the distinct words of a that also appear in b.
func overlap(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	in := make(map[string]bool, len(b))
	for _, w := range b {
		in[w] = true
	}
	n := 0
	for _, w := range a {
		if in[w] {
			n++
			in[w] = false
		}
	}
	return n
}
