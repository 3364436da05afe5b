package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			PaddingLeft(2)

	matchGutter   = lipgloss.NewStyle().Foreground(lipgloss.Color("228")).Render("▌ ")
	currentGutter = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("▌ ")
)

type searchState struct {
	active  bool
	input   textinput.Model
	matches []int // line numbers
	current int
}

// pagerModel shows a rendered predictor card
type pagerModel struct {
	title    string
	lines    []string
	viewport viewport.Model
	ready    bool
	search   searchState
}

// newPager creates a pager over already rendered content
func newPager(title, content string) *pagerModel {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	return &pagerModel{
		title:  title,
		lines:  strings.Split(strings.TrimRight(content, "\n"), "\n"),
		search: searchState{input: ti},
	}
}

func (m *pagerModel) Init() tea.Cmd {
	return nil
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.search.active {
			return m.updateSearch(msg)
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			m.search.matches = nil
			m.refresh()
		case "g", "home":
			m.viewport.GotoTop()
		case "G", "end":
			m.viewport.GotoBottom()
		case "/":
			m.search.active = true
			m.search.input.Reset()
			m.search.input.Focus()
			return m, textinput.Blink
		case "n":
			m.jump(1)
		case "N":
			m.jump(-1)
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 2
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.ready = true
			m.refresh()
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *pagerModel) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.active = false
		m.search.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.search.active = false
		m.search.input.Blur()
		m.search.matches = matchLines(m.lines, m.search.input.Value())
		m.search.current = firstMatchFrom(m.search.matches, m.viewport.YOffset)
		m.refresh()
		m.scrollTo(m.search.current)
		return m, nil
	}

	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	return m, cmd
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\nInitializing..."
	}

	var footer string
	switch {
	case m.search.active:
		footer = m.search.input.View()
	case len(m.search.matches) > 0:
		footer = helpStyle.Render(fmt.Sprintf("match %d/%d • n next • N previous • esc clear • q quit",
			m.search.current+1, len(m.search.matches)))
	default:
		footer = helpStyle.Render("↑/k up • ↓/j down • g top • G bottom • / search • q quit")
	}
	return titleStyle.Render(m.title) + "\n" + m.viewport.View() + "\n" + footer
}

// refresh redraws the content with a gutter marking matched lines
func (m *pagerModel) refresh() {
	marks := make(map[int]string, len(m.search.matches))
	for i, line := range m.search.matches {
		marks[line] = matchGutter
		if i == m.search.current {
			marks[line] = currentGutter
		}
	}

	var b strings.Builder
	for i, line := range m.lines {
		if g, ok := marks[i]; ok {
			b.WriteString(g)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
}

func (m *pagerModel) jump(dir int) {
	n := len(m.search.matches)
	if n == 0 {
		return
	}
	m.search.current = (m.search.current + dir + n) % n
	m.refresh()
	m.scrollTo(m.search.current)
}

func (m *pagerModel) scrollTo(match int) {
	if match < 0 || match >= len(m.search.matches) {
		return
	}
	line := m.search.matches[match]
	if line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height {
		m.viewport.SetYOffset(line)
	}
}

// matchLines returns the lines containing query, ignoring ANSI styling.
// The match is case-insensitive unless query has an upper case letter.
func matchLines(lines []string, query string) []int {
	if query == "" {
		return nil
	}
	caseSensitive := strings.ToLower(query) != query
	if !caseSensitive {
		query = strings.ToLower(query)
	}

	var matches []int
	for i, line := range lines {
		text := ansi.Strip(line)
		if !caseSensitive {
			text = strings.ToLower(text)
		}
		if strings.Contains(text, query) {
			matches = append(matches, i)
		}
	}
	return matches
}

// firstMatchFrom returns the first match at or below line, wrapping to the top
func firstMatchFrom(matches []int, line int) int {
	for i, l := range matches {
		if l >= line {
			return i
		}
	}
	return 0
}

// runPager pages content in the alternate screen until the user quits
func runPager(title, content string) error {
	p := tea.NewProgram(
		newPager(title, content),
		tea.WithAltScreen(),
	)

	_, err := p.Run()
	return err
}
