package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zuo-Peng/ai-session-analyzer/internal/index"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/metadata"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/search"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/session"
	"github.com/Zuo-Peng/ai-session-analyzer/internal/transcript"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const debounceDelay = 200 * time.Millisecond

type tuiMode int

const (
	modeView tuiMode = iota
	modeSearch
)

// message types

type searchResultMsg struct {
	query   string
	results []search.Result
	err     error
}

type debounceTickMsg struct {
	query string
}

// model

type model struct {
	parser     *session.Parser
	extractor  *metadata.Extractor
	db         *index.DB
	searchOpts search.Options
	mode       tuiMode

	path     string               // view mode: the session being browsed
	messages []transcript.Message // view mode: content-filtered full transcript
	level    transcript.Level

	query       string
	entries     []entry
	cursor      int
	listOffset  int
	filterInput textinput.Model
	preview     viewport.Model
	previewKey  string // entry cache key, to avoid duplicate renders
	width       int
	height      int
	ready       bool
	quitting    bool
	chosen      *entry
}

func newInput(placeholder, value string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	ti.SetValue(value)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 256
	return ti
}

func newViewModel(p *session.Parser, path string, msgs []transcript.Message, level transcript.Level) model {
	return model{
		parser:      p,
		extractor:   metadata.New(),
		mode:        modeView,
		path:        path,
		messages:    msgs,
		level:       level,
		entries:     viewEntries(path, msgs, level, ""),
		filterInput: newInput("Filter...", ""),
		preview:     viewport.New(0, 0),
	}
}

// RunView browses one session at the given level. Typing filters the
// message list, Tab cycles levels and Enter copies the selected message id.
func RunView(p *session.Parser, path string, level transcript.Level) error {
	tr, err := p.ParseTranscript(path, transcript.Full)
	if err != nil {
		return err
	}
	m := newViewModel(p, path, tr.Messages, level)
	return run(m)
}

// RunSearch browses full-text search hits over the index. Enter copies the
// hit's message id.
func RunSearch(db *index.DB, p *session.Parser, query string, opts search.Options) error {
	m := model{
		parser:      p,
		extractor:   metadata.New(),
		db:          db,
		searchOpts:  opts,
		mode:        modeSearch,
		query:       query,
		filterInput: newInput("Search...", query),
		preview:     viewport.New(0, 0),
	}
	return run(m)
}

func run(m model) error {
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	finalModel, err := prog.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.chosen != nil {
		return copyID(fm.chosen.id())
	}
	return nil
}

// copyID puts a message id on the clipboard, printing it when no clipboard
// is available.
func copyID(id string) error {
	if err := clipboard.WriteAll(id); err != nil {
		fmt.Printf("%s\n", id)
		return nil
	}
	fmt.Printf("Copied to clipboard: %s\n", id)
	return nil
}

// Init triggers the initial search or preview load.
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.mode == modeSearch && m.query != "" {
		cmds = append(cmds, m.doSearch(m.query))
	}
	return tea.Batch(cmds...)
}

// Update handles messages.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.preview = newViewport(m.previewWidth(), m.panelHeight())
		m.previewKey = ""
		cmds = append(cmds, m.loadCurrentPreview())
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if len(m.entries) > 0 && m.cursor < len(m.entries) {
				e := m.entries[m.cursor]
				m.chosen = &e
				m.quitting = true
				return m, tea.Quit
			}

		case key.Matches(msg, keys.Level):
			if m.mode == modeView {
				m.level = (m.level + 1) % 3
				m.refilter()
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case key.Matches(msg, keys.PreviewUp):
			m.preview.LineUp(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PreviewDn):
			m.preview.LineDown(m.panelHeight() / 2)
			return m, nil

		case key.Matches(msg, keys.PageUp):
			m.preview.LineUp(m.panelHeight())
			return m, nil

		case key.Matches(msg, keys.PageDown):
			m.preview.LineDown(m.panelHeight())
			return m, nil
		}

		// Pass remaining keys to text input
		var tiCmd tea.Cmd
		m.filterInput, tiCmd = m.filterInput.Update(msg)
		cmds = append(cmds, tiCmd)

		// Check if query changed
		newQuery := m.filterInput.Value()
		if newQuery != m.query {
			m.query = newQuery
			cmds = append(cmds, m.scheduleDebouncedSearch(newQuery))
		}
		return m, tea.Batch(cmds...)

	case tea.MouseMsg:
		if !m.ready || len(m.entries) == 0 {
			return m, nil
		}

		region, itemIdx := m.hitTest(msg.X, msg.Y)

		switch {
		case region == regionList && msg.Button == tea.MouseButtonWheelUp:
			if m.listOffset > 0 {
				m.listOffset--
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonWheelDown:
			visibleItems := m.panelHeight() / linesPerItem
			maxOffset := len(m.entries) - visibleItems
			if maxOffset < 0 {
				maxOffset = 0
			}
			if m.listOffset < maxOffset {
				m.listOffset++
			}
			return m, nil

		case region == regionList && msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if itemIdx >= 0 && itemIdx < len(m.entries) && m.cursor != itemIdx {
				m.cursor = itemIdx
				m.adjustListScroll(m.panelHeight())
				cmds = append(cmds, m.loadCurrentPreview())
			}
			return m, tea.Batch(cmds...)

		case region == regionPreview && (msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown):
			var vpCmd tea.Cmd
			m.preview, vpCmd = m.preview.Update(msg)
			if vpCmd != nil {
				cmds = append(cmds, vpCmd)
			}
			return m, tea.Batch(cmds...)
		}

		return m, nil

	case debounceTickMsg:
		// Only act if the query hasn't changed since the tick was scheduled
		if msg.query != m.query {
			return m, nil
		}
		if m.mode == modeView {
			m.refilter()
			return m, m.loadCurrentPreview()
		}
		return m, m.doSearch(msg.query)

	case searchResultMsg:
		// Only apply if this result matches current query
		if msg.query != m.query {
			return m, nil
		}
		m.cursor = 0
		m.listOffset = 0
		if msg.err != nil {
			m.entries = nil
			m.preview.SetContent("Error: " + msg.err.Error())
			m.previewKey = ""
			return m, nil
		}
		m.entries = searchEntries(msg.results)
		if len(m.entries) == 0 {
			m.preview.SetContent("")
			m.previewKey = ""
			return m, nil
		}
		return m, m.loadCurrentPreview()

	case previewRenderedMsg:
		if msg.key == m.previewKey {
			// Already showing this preview, skip
			return m, nil
		}
		// Check if this preview is still the one we want
		if len(m.entries) > 0 && m.cursor < len(m.entries) && m.entries[m.cursor].cacheKey() != msg.key {
			return m, nil // stale preview
		}
		if msg.err != nil {
			m.preview.SetContent("Preview error: " + msg.err.Error())
		} else {
			m.preview.SetContent(msg.content)
			if msg.hitLine > 0 {
				m.preview.SetYOffset(msg.hitLine)
			} else {
				m.preview.GotoTop()
			}
		}
		m.previewKey = msg.key
		return m, nil
	}

	return m, tea.Batch(cmds...)
}

// refilter rebuilds the view-mode list for the current level and filter,
// keeping the selected message when it survives.
func (m *model) refilter() {
	selected := ""
	if m.cursor < len(m.entries) {
		selected = m.entries[m.cursor].id()
	}
	m.entries = viewEntries(m.path, m.messages, m.level, m.query)
	m.cursor = 0
	for i, e := range m.entries {
		if e.id() == selected {
			m.cursor = i
			break
		}
	}
	m.listOffset = 0
	m.adjustListScroll(m.panelHeight())
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	listW := m.listWidth()
	previewW := m.previewWidth()
	panelH := m.panelHeight()

	inputRow := m.filterInput.View()

	listPanel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	m.preview.Width = previewW
	m.preview.Height = panelH
	previewPanel := styleActiveBorder.
		Width(previewW).
		Height(panelH).
		Render(m.preview.View())

	panels := lipgloss.JoinHorizontal(lipgloss.Top, listPanel, previewPanel)

	return lipgloss.JoinVertical(lipgloss.Left, inputRow, panels, m.statusBar())
}

// helper methods

func (m model) listWidth() int {
	if m.width <= 0 {
		return 40
	}
	// 40% for list, minus border padding
	w := m.width*40/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) previewWidth() int {
	if m.width <= 0 {
		return 60
	}
	// 60% for preview, minus border padding
	w := m.width*60/100 - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 20
	}
	// Subtract input row (1) + status bar (1) + borders (4)
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	return h
}

type mouseRegion int

const (
	regionNone mouseRegion = iota
	regionList
	regionPreview
)

// hitTest maps terminal coordinates to a panel region and list item index.
func (m model) hitTest(x, y int) (mouseRegion, int) {
	pH := m.panelHeight()
	contentYStart := 2 // input row (1) + top border (1)
	contentYEnd := contentYStart + pH - 1

	if y < contentYStart || y > contentYEnd {
		return regionNone, -1
	}
	relY := y - contentYStart

	lw := m.listWidth()
	listBoxRight := lw + 1 // col 0=border, 1..lw=content, lw+1=border

	if x >= 1 && x <= lw {
		return regionList, m.listOffset + (relY / linesPerItem)
	}
	if x > listBoxRight+1 {
		return regionPreview, -1
	}
	return regionNone, -1
}

func (m model) statusBar() string {
	var parts []string
	if m.mode == modeView {
		parts = append(parts, fmt.Sprintf("%d messages", len(m.entries)))
		parts = append(parts, "level "+m.level.String())
		parts = append(parts, "Tab level")
	} else {
		parts = append(parts, fmt.Sprintf("%d results", len(m.entries)))
	}
	parts = append(parts, "click/up/dn navigate")
	parts = append(parts, "scroll/C-u/C-d preview")
	parts = append(parts, "Enter copy id")
	parts = append(parts, "Esc quit")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}

func (m model) doSearch(query string) tea.Cmd {
	db := m.db
	opts := m.searchOpts
	opts.Query = query
	return func() tea.Msg {
		if query == "" {
			return searchResultMsg{query: query}
		}
		results, err := search.Search(db, opts)
		return searchResultMsg{query: query, results: results, err: err}
	}
}

func (m model) scheduleDebouncedSearch(query string) tea.Cmd {
	return tea.Tick(debounceDelay, func(time.Time) tea.Msg {
		return debounceTickMsg{query: query}
	})
}

func (m model) loadCurrentPreview() tea.Cmd {
	if !m.ready || len(m.entries) == 0 || m.cursor >= len(m.entries) {
		return nil
	}
	e := m.entries[m.cursor]
	if e.cacheKey() == m.previewKey {
		return nil // already showing this preview
	}
	return loadPreviewCmd(m.parser, m.extractor, e, m.query, m.previewWidth())
}
