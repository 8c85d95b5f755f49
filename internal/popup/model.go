// Package popup is the terminal view over the tab history. It talks to the
// tracking daemon through the message contract and never opens the store
// itself.
package popup

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runnerr0/tabtrail/internal/activity"
	"github.com/runnerr0/tabtrail/internal/present"
	"github.com/runnerr0/tabtrail/internal/settings"
)

// Source is what the popup needs from the daemon. *messaging.Client
// satisfies it.
type Source interface {
	TabData(ctx context.Context) ([]activity.Record, error)
	DeleteEntry(ctx context.Context, tabID int) error
	ClearAll(ctx context.Context) error
	OpenTab(ctx context.Context, tabID int, url string) error
	Settings(ctx context.Context) (settings.Settings, error)
	SaveSettings(ctx context.Context, st settings.Settings) error
}

type recordsLoadedMsg struct {
	records []activity.Record
	err     error
}

type settingsLoadedMsg struct {
	settings settings.Settings
	err      error
}

// actionDoneMsg reports a finished mutation; reload asks for fresh data.
type actionDoneMsg struct {
	status string
	err    error
	reload bool
}

// Model is the bubbletea model for the popup.
type Model struct {
	ctx            context.Context
	src            Source
	now            func() time.Time
	writeClipboard func(string) error

	records  []activity.Record
	visible  []activity.Record
	settings settings.Settings
	cursor   int

	search       textinput.Model
	searching    bool
	confirmClear bool
	loading      bool

	keys   keyMap
	help   help.Model
	status string
	err    error
	width  int
	height int
}

// Option customizes a Model.
type Option func(*Model)

// WithClock overrides the clock used for relative times.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.now = now }
}

// WithClipboard overrides the clipboard writer.
func WithClipboard(fn func(string) error) Option {
	return func(m *Model) { m.writeClipboard = fn }
}

// New builds a popup model over src.
func New(ctx context.Context, src Source, opts ...Option) Model {
	ti := textinput.New()
	ti.Placeholder = "Search title, url or domain"
	ti.Prompt = "/ "
	ti.CharLimit = 256
	ti.Width = 40

	m := Model{
		ctx:            ctx,
		src:            src,
		now:            time.Now,
		writeClipboard: clipboard.WriteAll,
		settings:       settings.Default(),
		search:         ti,
		loading:        true,
		keys:           keys,
		help:           help.New(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Run starts the popup program and blocks until the user quits.
func Run(ctx context.Context, src Source, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(New(ctx, src), opts...).Run(); err != nil {
		return fmt.Errorf("run popup: %w", err)
	}
	return nil
}

// Init loads settings and records.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSettings(), m.loadRecords())
}

func (m Model) loadRecords() tea.Cmd {
	return func() tea.Msg {
		records, err := m.src.TabData(m.ctx)
		return recordsLoadedMsg{records: records, err: err}
	}
}

func (m Model) loadSettings() tea.Cmd {
	return func() tea.Msg {
		st, err := m.src.Settings(m.ctx)
		return settingsLoadedMsg{settings: st, err: err}
	}
}

func (m Model) saveSettings() tea.Cmd {
	st := m.settings
	return func() tea.Msg {
		if err := m.src.SaveSettings(m.ctx, st); err != nil {
			return actionDoneMsg{err: fmt.Errorf("save settings: %w", err)}
		}
		return nil
	}
}

func (m Model) deleteEntry(rec activity.Record) tea.Cmd {
	return func() tea.Msg {
		if err := m.src.DeleteEntry(m.ctx, rec.TabID); err != nil {
			return actionDoneMsg{err: fmt.Errorf("delete entry: %w", err)}
		}
		return actionDoneMsg{status: "Deleted " + present.Truncate(rec.Title, 40), reload: true}
	}
}

func (m Model) clearAll() tea.Cmd {
	return func() tea.Msg {
		if err := m.src.ClearAll(m.ctx); err != nil {
			return actionDoneMsg{err: fmt.Errorf("clear history: %w", err)}
		}
		return actionDoneMsg{status: "History cleared", reload: true}
	}
}

func (m Model) openURL(rec activity.Record) tea.Cmd {
	return func() tea.Msg {
		if err := m.src.OpenTab(m.ctx, rec.TabID, rec.URL); err != nil {
			return actionDoneMsg{err: fmt.Errorf("open url: %w", err)}
		}
		return actionDoneMsg{status: "Opened " + present.CleanURL(rec.URL)}
	}
}

func (m Model) copyURL(rec activity.Record) tea.Cmd {
	return func() tea.Msg {
		if err := m.writeClipboard(rec.URL); err != nil {
			return actionDoneMsg{err: fmt.Errorf("copy url: %w", err)}
		}
		return actionDoneMsg{status: "Copied " + present.CleanURL(rec.URL)}
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case recordsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.records = msg.records
		m.refilter()
		return m, nil

	case settingsLoadedMsg:
		if msg.err != nil {
			m.status = "Using default settings"
			return m, nil
		}
		m.settings = msg.settings
		m.refilter()
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		if msg.reload {
			return m, m.loadRecords()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.Type {
		case tea.KeyEsc:
			m.searching = false
			m.search.Blur()
			m.search.SetValue("")
			m.refilter()
			return m, nil
		case tea.KeyEnter:
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.refilter()
		return m, cmd
	}

	if m.confirmClear {
		m.confirmClear = false
		if msg.String() == "y" {
			return m, m.clearAll()
		}
		m.status = "Clear cancelled"
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Filter):
		m.settings.Filter = present.NextView(m.settings.Filter)
		m.refilter()
		return m, m.saveSettings()
	case key.Matches(msg, m.keys.Group):
		m.settings.GroupByDomain = !m.settings.GroupByDomain
		m.refilter()
		return m, m.saveSettings()
	case key.Matches(msg, m.keys.ShowClosed):
		m.settings.ShowClosed = !m.settings.ShowClosed
		m.refilter()
		return m, m.saveSettings()
	case key.Matches(msg, m.keys.Refresh):
		m.status = ""
		return m, m.loadRecords()
	case key.Matches(msg, m.keys.Clear):
		if len(m.records) > 0 {
			m.confirmClear = true
		}
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Open):
		if rec, ok := m.selected(); ok {
			return m, m.openURL(rec)
		}
	case key.Matches(msg, m.keys.Copy):
		if rec, ok := m.selected(); ok {
			return m, m.copyURL(rec)
		}
	case key.Matches(msg, m.keys.Delete):
		if rec, ok := m.selected(); ok {
			return m, m.deleteEntry(rec)
		}
	}
	return m, nil
}

func (m Model) selected() (activity.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return activity.Record{}, false
	}
	return m.visible[m.cursor], true
}

// refilter rebuilds the visible rows in display order.
func (m *Model) refilter() {
	records := m.records
	if !m.settings.ShowClosed && m.settings.Filter != present.ViewClosed {
		records = present.ApplyView(records, present.ViewOpen, m.now())
	}
	records = present.ApplyView(records, m.settings.Filter, m.now())
	records = present.Search(records, m.search.Value())

	if m.settings.GroupByDomain {
		var flat []activity.Record
		for _, g := range present.GroupByDomain(records) {
			flat = append(flat, g.Records...)
		}
		records = flat
	}
	m.visible = records
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}
