package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/i18n"
	"github.com/nzaccagnino/notedeck/internal/listing"
	"github.com/nzaccagnino/notedeck/internal/notes"
	"github.com/nzaccagnino/notedeck/internal/profile"
	"github.com/nzaccagnino/notedeck/internal/query"
	"github.com/nzaccagnino/notedeck/internal/ratelimit"
)

// Lister renders pages of notes.
type Lister interface {
	Page(ctx context.Context, overrides query.Filter, page *int) (*listing.Result, error)
	Next(ctx context.Context, overrides query.Filter) (*listing.Result, error)
	Previous(ctx context.Context, overrides query.Filter) (*listing.Result, error)
	Goto(ctx context.Context, n int, overrides query.Filter) (*listing.Result, error)
}

type NoteService interface {
	Get(ctx context.Context, id int64) (*db.Note, error)
	Visit(ctx context.Context, id int64) (int64, error)
	GenerateTags(ctx context.Context) (notes.TagReport, error)
}

type Settings interface {
	Set(ctx context.Context, key string, value any) error
	HomeSelectOption(ctx context.Context) (string, error)
}

type Mode int

const (
	ModeList Mode = iota
	ModeSearch
	ModeDetail
	ModeHelp
)

type Model struct {
	ctx      context.Context
	lister   Lister
	notes    NoteService
	settings Settings
	cooldown *ratelimit.Cooldown

	page   *listing.Result
	cursor int
	note   *db.Note

	mode     Mode
	input    textinput.Model
	viewport viewport.Model
	help     help.Model
	keys     KeyMap

	width  int
	height int

	status string
	err    error
}

type pageLoadedMsg struct{ result *listing.Result }
type noteOpenedMsg struct{ note *db.Note }
type statusMsg string
type errMsg struct{ err error }

// NewModel builds the list view. cooldown throttles search submissions.
func NewModel(ctx context.Context, lister Lister, svc NoteService, settings Settings, cooldown *ratelimit.Cooldown) Model {
	t := i18n.T()

	ti := textinput.New()
	ti.Placeholder = t.SearchPlaceholder
	ti.CharLimit = 256
	ti.Cursor.SetMode(cursor.CursorStatic)

	return Model{
		ctx:      ctx,
		lister:   lister,
		notes:    svc,
		settings: settings,
		cooldown: cooldown,
		input:    ti,
		viewport: viewport.New(0, 0),
		help:     help.New(),
		keys:     NewKeyMap(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadPage(nil)
}

func (m Model) loadPage(page *int) tea.Cmd {
	return func() tea.Msg {
		result, err := m.lister.Page(m.ctx, query.Filter{}, page)
		if err != nil {
			return errMsg{err}
		}
		return pageLoadedMsg{result}
	}
}

func (m Model) navigate(fn func(ctx context.Context, overrides query.Filter) (*listing.Result, error)) tea.Cmd {
	return func() tea.Msg {
		result, err := fn(m.ctx, query.Filter{})
		if err != nil {
			return errMsg{err}
		}
		return pageLoadedMsg{result}
	}
}

// firstPage persists page 1, used after the filter changed.
func (m Model) firstPage() (*listing.Result, error) {
	return m.lister.Goto(m.ctx, 1, query.Filter{})
}

func (m Model) openNote(id int64) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.notes.Visit(m.ctx, id); err != nil {
			return errMsg{err}
		}
		note, err := m.notes.Get(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return noteOpenedMsg{note}
	}
}

func (m Model) submitSearch(value string) tea.Cmd {
	return func() tea.Msg {
		t := i18n.T()
		ok, wait, err := m.cooldown.Allow(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		if !ok {
			return statusMsg(fmt.Sprintf(t.SearchCooldown, wait.Seconds()))
		}
		if err := m.settings.Set(m.ctx, query.KeySearchContent, value); err != nil {
			return errMsg{err}
		}
		result, err := m.firstPage()
		if err != nil {
			return errMsg{err}
		}
		return pageLoadedMsg{result}
	}
}

// cycleNoteType moves home_select_option to the next note type.
func (m Model) cycleNoteType() tea.Cmd {
	return func() tea.Msg {
		current, err := m.settings.HomeSelectOption(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		next := NextNoteType(db.NoteType(current))
		if err := m.settings.Set(m.ctx, profile.KeyHomeSelect, string(next)); err != nil {
			return errMsg{err}
		}
		result, err := m.firstPage()
		if err != nil {
			return errMsg{err}
		}
		return pageLoadedMsg{result}
	}
}

func (m Model) generateTags() tea.Cmd {
	return func() tea.Msg {
		report, err := m.notes.GenerateTags(m.ctx)
		if err != nil {
			return errMsg{err}
		}
		return statusMsg(fmt.Sprintf(i18n.T().TagsGenerated, len(report.Created), len(report.Existing), len(report.Invalid)))
	}
}

// NextNoteType cycles through db.NoteTypes; unknown values restart the cycle.
func NextNoteType(current db.NoteType) db.NoteType {
	for i, nt := range db.NoteTypes {
		if nt == current {
			return db.NoteTypes[(i+1)%len(db.NoteTypes)]
		}
	}
	return db.NoteTypes[0]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = m.bodyHeight() - 2

	case pageLoadedMsg:
		m.page = msg.result
		m.err = nil
		if m.cursor >= len(m.page.Notes) {
			m.cursor = 0
		}

	case noteOpenedMsg:
		m.note = msg.note
		m.err = nil
		m.mode = ModeDetail
		m.viewport.SetContent(msg.note.Content)
		m.viewport.GotoTop()

	case statusMsg:
		m.status = string(msg)
		m.err = nil

	case errMsg:
		// The previous page stays on screen.
		m.err = msg.err

	case tea.KeyMsg:
		switch m.mode {
		case ModeSearch:
			return m.handleSearchKeys(msg)
		case ModeDetail:
			return m.handleDetailKeys(msg)
		case ModeHelp:
			if key.Matches(msg, m.keys.Escape) || key.Matches(msg, m.keys.Help) {
				m.mode = ModeList
			}
			return m, nil
		}
		return m.handleListKeys(msg)
	}

	return m, nil
}

func (m Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.mode = ModeHelp

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.page != nil && m.cursor < len(m.page.Notes)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Next):
		return m, m.navigate(m.lister.Next)

	case key.Matches(msg, m.keys.Prev):
		return m, m.navigate(m.lister.Previous)

	case key.Matches(msg, m.keys.Search):
		m.mode = ModeSearch
		current := ""
		if m.page != nil && m.page.Filter.SearchContent != nil {
			current = *m.page.Filter.SearchContent
		}
		m.input.SetValue(current)
		m.input.Focus()

	case key.Matches(msg, m.keys.CycleType):
		return m, m.cycleNoteType()

	case key.Matches(msg, m.keys.Generate):
		return m, m.generateTags()

	case key.Matches(msg, m.keys.Enter):
		if selected := m.selected(); selected != nil {
			return m, m.openNote(selected.ID)
		}
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = ModeList
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.mode = ModeList
		m.input.Blur()
		return m, m.submitSearch(strings.TrimSpace(m.input.Value()))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.mode = ModeList
		m.note = nil
		// Visit counts changed; refresh the stored page.
		return m, m.loadPage(nil)
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) selected() *db.Note {
	if m.page == nil || m.cursor < 0 || m.cursor >= len(m.page.Notes) {
		return nil
	}
	return &m.page.Notes[m.cursor]
}

func (m Model) bodyHeight() int {
	return m.height - 7
}

func (m Model) View() string {
	t := i18n.T()

	if m.width == 0 {
		return t.Loading
	}

	switch m.mode {
	case ModeHelp:
		return m.renderHelp()
	case ModeSearch:
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.renderSearchDialog())
	case ModeDetail:
		return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderDetail(), m.renderStatus())
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), m.renderList(), m.renderStatus())
}

func (m Model) renderHeader() string {
	t := i18n.T()

	if m.mode == ModeDetail && m.note != nil {
		return HeaderStyle.Width(m.width - 2).Render(TitleStyle.Render(m.note.Title))
	}

	var parts []string
	if m.page != nil {
		f := m.page.Filter
		if f.NoteType != nil {
			parts = append(parts, LabelStyle.Render(t.NoteType)+" "+*f.NoteType)
		}
		if f.SearchContent != nil && *f.SearchContent != "" {
			parts = append(parts, LabelStyle.Render(t.SearchLabel)+" "+*f.SearchContent)
		}
		if f.TagSelect != nil && *f.TagSelect != "" && *f.TagSelect != query.TagUnset {
			parts = append(parts, LabelStyle.Render(t.TagLabel)+" "+TagStyle.Render(*f.TagSelect))
		}
	}
	if len(parts) == 0 {
		parts = append(parts, TitleStyle.Render("notedeck"))
	}
	return HeaderStyle.Width(m.width - 2).Render(strings.Join(parts, "  "))
}

func (m Model) renderList() string {
	t := i18n.T()
	height := m.bodyHeight()

	var items []string
	if m.page == nil || len(m.page.Notes) == 0 {
		items = append(items, MutedStyle.Render(t.NoNotes))
	} else {
		maxLen := m.width - 30
		for i, n := range m.page.Notes {
			title := truncate(n.Title, maxLen)
			meta := n.UpdatedAt.Format("2006-01-02 15:04")
			if n.Attachments > 0 {
				meta = fmt.Sprintf("%s %d  %s", AttachmentIcon, n.Attachments, meta)
			}
			line := fmt.Sprintf("%s %-*s %s", NoteIcon, maxLen, title, MutedStyle.Render(meta))
			if i == m.cursor {
				items = append(items, SelectedListItemStyle.Render(line))
			} else {
				items = append(items, ListItemStyle.Render(line))
			}
		}
	}

	for len(items) < height-2 {
		items = append(items, "")
	}
	return ActivePanelStyle.Width(m.width - 2).Height(height).Render(strings.Join(items, "\n"))
}

func (m Model) renderDetail() string {
	t := i18n.T()
	meta := ""
	if m.note != nil {
		meta = MutedStyle.Render(fmt.Sprintf("%s %s  %s %s  %s %d  %s",
			t.CreatedAt, m.note.CreatedAt.Format(time.DateTime),
			t.ModifiedAt, m.note.UpdatedAt.Format(time.DateTime),
			t.Visits, m.note.VisitCount,
			fmt.Sprintf(t.AttachmentsFmt, m.note.Attachments)))
	}
	return PanelStyle.Width(m.width - 2).Height(m.bodyHeight()).Render(meta + "\n\n" + m.viewport.View())
}

func (m Model) renderStatus() string {
	t := i18n.T()

	modeStr := t.ModeList
	if m.mode == ModeDetail {
		modeStr = t.ModeDetail
	}

	left := " " + modeStr
	if m.page != nil {
		left += fmt.Sprintf(" | %s %d/%d | %d %s", t.Page, m.page.Page, m.page.TotalPages, m.page.Count, t.Notes)
	}
	switch {
	case m.err != nil:
		left += " | " + ErrorStyle.Render(t.Error+": "+m.err.Error())
	case m.status != "":
		left += " | " + m.status
	}

	return StatusBarStyle.Render(left) + "\n" + m.help.View(m.keys)
}

func (m Model) renderSearchDialog() string {
	t := i18n.T()
	content := lipgloss.JoinVertical(lipgloss.Left,
		LabelStyle.Render(t.ModeSearch),
		"",
		m.input.View(),
		"",
		MutedStyle.Render(t.EnterConfirm+" | "+t.EscCancel),
	)
	return ActivePanelStyle.Padding(1, 2).Width(min(60, m.width-4)).Render(content)
}

func (m Model) renderHelp() string {
	t := i18n.T()
	full := help.New()
	full.ShowAll = true
	content := LabelStyle.Render(t.ModeHelp) + "\n\n" + full.View(m.keys)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
		ActivePanelStyle.Padding(1, 2).Render(content))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
