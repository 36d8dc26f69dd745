package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/LukasParke/treeviewer/document"
	"github.com/LukasParke/treeviewer/inspector"
	"github.com/LukasParke/treeviewer/projection"
	"github.com/LukasParke/treeviewer/protocol"
	"github.com/LukasParke/treeviewer/treesitter"
)

func newBrowseCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "browse FILE",
		Short: "Browse the syntax tree of a file interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()
			doc, err := s.open(args[0], lang)
			if err != nil {
				return err
			}
			var cb inspector.Clipboard
			if sys := (inspector.SystemClipboard{}); sys.Available() {
				cb = sys
			}
			model, err := newBrowseModel(cmd.Context(), s, doc, cb)
			if err != nil {
				return err
			}
			program := tea.NewProgram(model,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
				tea.WithAltScreen(),
			)
			_, err = program.Run()
			return err
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "Language ID (default: from the file extension)")
	return cmd
}

type browseMode int

const (
	modeBrowse browseMode = iota
	modeQuery
	modeStep
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	terminalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

type browseRow struct {
	node  projection.Node
	depth int
}

// browseModel shows the projected tree of one document. Only expanded
// nodes have their children computed.
type browseModel struct {
	ctx       context.Context
	sess      *session
	doc       *document.Document
	clipboard inspector.Clipboard

	tree      *treesitter.Tree
	projector projection.Projector
	expanded  map[uintptr]bool
	rows      []browseRow
	cursor    int
	offset    int
	height    int

	mode     browseMode
	input    textinput.Model
	matches  []treesitter.Match
	matchIdx int

	status string
	failed bool
}

func newBrowseModel(ctx context.Context, s *session, doc *document.Document, cb inspector.Clipboard) (*browseModel, error) {
	tree, err := s.manager.GetCurrentTree(ctx, false)
	if err != nil {
		return nil, err
	}
	input := textinput.New()
	input.Placeholder = "(identifier) @name"
	input.Prompt = "query> "
	input.CharLimit = 1024

	m := &browseModel{
		ctx:       ctx,
		sess:      s,
		doc:       doc,
		clipboard: cb,
		projector: projection.Projector{ShowPositions: s.settings.ShowPositions},
		input:     input,
	}
	m.setTree(tree)
	return m, nil
}

func (m *browseModel) setTree(tree *treesitter.Tree) {
	m.tree = tree
	m.expanded = map[uintptr]bool{tree.Root().ID(): true}
	m.cursor, m.offset = 0, 0
	m.rebuild()
}

// rebuild recomputes the visible rows from the expansion state.
func (m *browseModel) rebuild() {
	m.rows = m.rows[:0]
	var walk func(n projection.Node, depth int)
	walk = func(n projection.Node, depth int) {
		m.rows = append(m.rows, browseRow{node: n, depth: depth})
		if !m.isExpanded(n) {
			return
		}
		for _, c := range m.projector.Children(n) {
			walk(c, depth+1)
		}
	}
	walk(m.projector.Root(m.tree), 0)
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
}

func (m *browseModel) isExpanded(n projection.Node) bool {
	return projection.Expandable(n) && m.expanded[n.Syntax().ID()]
}

func (m *browseModel) selected() browseRow {
	return m.rows[m.cursor]
}

func (m *browseModel) Init() tea.Cmd {
	return nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		m.scroll()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		switch m.mode {
		case modeQuery:
			cmd = m.updateQuery(msg)
		case modeStep:
			m.updateStep(msg)
		default:
			cmd = m.updateBrowse(msg)
		}
		m.scroll()
		return m, cmd
	}
	return m, nil
}

func (m *browseModel) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "enter", "right":
		if n := m.selected().node; projection.Expandable(n) {
			m.expanded[n.Syntax().ID()] = true
			m.rebuild()
		}
	case "left":
		m.collapse()
	case "l":
		m.projector.ShowPositions = !m.projector.ShowPositions
	case "t":
		m.copy(inspector.CopyType)
	case "s":
		m.copy(inspector.CopySexp)
	case "r":
		m.reload()
	case "/":
		m.mode = modeQuery
		m.input.SetValue("")
		return m.input.Focus()
	}
	return nil
}

// collapse closes the selected node, or moves to its parent when it is
// already closed.
func (m *browseModel) collapse() {
	row := m.selected()
	if m.isExpanded(row.node) {
		delete(m.expanded, row.node.Syntax().ID())
		m.rebuild()
		return
	}
	for i := m.cursor - 1; i >= 0; i-- {
		if m.rows[i].depth < row.depth {
			m.cursor = i
			return
		}
	}
}

func (m *browseModel) copy(format inspector.CopyFormat) {
	text, err := inspector.NodeText(m.selected().node.Syntax(), format)
	if err != nil {
		m.setError(err)
		return
	}
	if m.clipboard == nil {
		m.setStatus(fmt.Sprintf("no clipboard; %s: %s", format, text))
		return
	}
	if err := m.clipboard.WriteText(text); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(fmt.Sprintf("copied %s: %s", format, text))
}

// reload re-reads the file and forces a rebuild of its tree.
func (m *browseModel) reload() {
	data, err := os.ReadFile(m.doc.Path())
	if err != nil {
		m.setError(err)
		return
	}
	m.doc.ApplyChanges(m.doc.Version()+1, []protocol.TextDocumentContentChangeEvent{{Text: string(data)}})
	tree, err := m.sess.manager.GetCurrentTree(m.ctx, true)
	if err != nil {
		m.setError(err)
		return
	}
	m.setTree(tree)
	m.setStatus("reloaded")
}

func (m *browseModel) updateQuery(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		m.input.Blur()
		return nil
	case "enter":
		m.mode = modeBrowse
		m.input.Blur()
		m.runQuery(m.input.Value())
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *browseModel) runQuery(pattern string) {
	if strings.TrimSpace(pattern) == "" {
		return
	}
	matches, err := m.sess.manager.QueryTree(m.tree, pattern)
	if err != nil {
		m.setError(err)
		return
	}
	if len(matches) == 0 {
		m.setStatus("no matches")
		return
	}
	m.matches, m.matchIdx = matches, 0
	m.mode = modeStep
	m.showMatch()
}

// updateStep advances to the next match on n; any other key stops.
func (m *browseModel) updateStep(msg tea.KeyMsg) {
	if msg.String() != "n" || m.matchIdx == len(m.matches)-1 {
		m.mode = modeBrowse
		m.setStatus(fmt.Sprintf("%d of %d matches shown", m.matchIdx+1, len(m.matches)))
		m.matches = nil
		return
	}
	m.matchIdx++
	m.showMatch()
}

func (m *browseModel) showMatch() {
	match := m.matches[m.matchIdx]
	m.reveal(match.Node)
	hint := "n: next, any other key: stop"
	if m.matchIdx == len(m.matches)-1 {
		hint = "last match, any key to finish"
	}
	m.setStatus(fmt.Sprintf("Match %d of %d (@%s). %s", m.matchIdx+1, len(m.matches), match.CaptureName, hint))
}

// reveal expands every ancestor of target and moves the cursor onto it.
// Ancestors are found by descending into the child whose byte range
// contains the target's.
func (m *browseModel) reveal(target treesitter.Node) {
	cur := m.tree.Root()
	for cur.ID() != target.ID() {
		m.expanded[cur.ID()] = true
		next, ok := containingChild(cur, target)
		if !ok {
			break
		}
		cur = next
	}
	m.rebuild()
	for i, r := range m.rows {
		if _, ok := r.node.(*projection.Internal); ok && r.node.Syntax().ID() == cur.ID() {
			m.cursor = i
			return
		}
	}
}

func containingChild(n, target treesitter.Node) (treesitter.Node, bool) {
	for _, c := range n.Children() {
		if c.ID() == target.ID() {
			return c, true
		}
	}
	for _, c := range n.Children() {
		if c.StartIndex() <= target.StartIndex() && target.EndIndex() <= c.EndIndex() {
			return c, true
		}
	}
	return treesitter.Node{}, false
}

func (m *browseModel) setStatus(s string) {
	m.status, m.failed = s, false
}

func (m *browseModel) setError(err error) {
	m.status, m.failed = err.Error(), true
}

// visibleRows is how many tree rows fit above the input and status lines.
func (m *browseModel) visibleRows() int {
	if m.height <= 0 {
		return len(m.rows)
	}
	return max(m.height-4, 1)
}

func (m *browseModel) scroll() {
	n := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+n {
		m.offset = m.cursor - n + 1
	}
}

func (m *browseModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s (%s)", m.doc.Path(), m.tree.LanguageID())))
	b.WriteString("\n")

	end := min(m.offset+m.visibleRows(), len(m.rows))
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		marker := "  "
		switch {
		case m.isExpanded(r.node):
			marker = "▾ "
		case projection.Expandable(r.node):
			marker = "▸ "
		}
		label := m.projector.Label(r.node)
		if !projection.Expandable(r.node) {
			label = terminalStyle.Render(label)
		}
		line := strings.Repeat("  ", r.depth) + marker + label
		if i == m.cursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.mode == modeQuery {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	if m.status != "" {
		if m.failed {
			b.WriteString(errorStyle.Render(m.status))
		} else {
			b.WriteString(m.status)
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move  →/enter expand  ← collapse  l positions  t/s copy  / query  r reload  q quit"))
	return b.String()
}
