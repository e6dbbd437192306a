package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nzaccagnino/notedeck/internal/db"
	"github.com/nzaccagnino/notedeck/internal/listing"
	"github.com/nzaccagnino/notedeck/internal/notes"
	"github.com/nzaccagnino/notedeck/internal/query"
	"github.com/nzaccagnino/notedeck/internal/ratelimit"
)

type fakeLister struct {
	page    int
	total   int
	err     error
	gotoArg int
}

func (f *fakeLister) result() (*listing.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &listing.Result{
		Notes:      []db.Note{{ID: int64(f.page*10 + 1), Title: "first"}, {ID: int64(f.page*10 + 2), Title: "second"}},
		Page:       f.page,
		TotalPages: f.total,
		Count:      f.total * 2,
		PageSize:   2,
	}, nil
}

func (f *fakeLister) Page(ctx context.Context, overrides query.Filter, page *int) (*listing.Result, error) {
	return f.result()
}

func (f *fakeLister) Next(ctx context.Context, overrides query.Filter) (*listing.Result, error) {
	if f.page < f.total {
		f.page++
	}
	return f.result()
}

func (f *fakeLister) Previous(ctx context.Context, overrides query.Filter) (*listing.Result, error) {
	if f.page > 1 {
		f.page--
	}
	return f.result()
}

func (f *fakeLister) Goto(ctx context.Context, n int, overrides query.Filter) (*listing.Result, error) {
	f.gotoArg = n
	f.page = n
	return f.result()
}

type fakeNotes struct {
	visits map[int64]int64
}

func (f *fakeNotes) Get(ctx context.Context, id int64) (*db.Note, error) {
	if id == 0 {
		return nil, db.ErrNotFound
	}
	return &db.Note{ID: id, Title: "opened", Content: "body text", VisitCount: f.visits[id]}, nil
}

func (f *fakeNotes) Visit(ctx context.Context, id int64) (int64, error) {
	f.visits[id]++
	return f.visits[id], nil
}

func (f *fakeNotes) GenerateTags(ctx context.Context) (notes.TagReport, error) {
	return notes.TagReport{Created: []string{"a", "b"}, Existing: []string{"c"}, Invalid: []string{}}, nil
}

type fakeSettings struct {
	values map[string]any
}

func (f *fakeSettings) Set(ctx context.Context, key string, value any) error {
	f.values[key] = value
	return nil
}

func (f *fakeSettings) HomeSelectOption(ctx context.Context) (string, error) {
	s, _ := f.values["home_select_option"].(string)
	return s, nil
}

type harness struct {
	lister   *fakeLister
	notes    *fakeNotes
	settings *fakeSettings
	model    Model
}

func newHarness(t *testing.T, cooldown time.Duration) *harness {
	t.Helper()
	h := &harness{
		lister:   &fakeLister{page: 1, total: 3},
		notes:    &fakeNotes{visits: map[int64]int64{}},
		settings: &fakeSettings{values: map[string]any{"home_select_option": "default"}},
	}
	h.model = NewModel(context.Background(), h.lister, h.notes, h.settings, ratelimit.NewCooldown(ratelimit.Fixed(cooldown)))
	h.send(t, tea.WindowSizeMsg{Width: 100, Height: 30})
	h.run(t, h.model.Init())
	return h
}

// send delivers msg and runs the resulting command to completion.
func (h *harness) send(t *testing.T, msg tea.Msg) {
	t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	h.run(t, cmd)
}

func (h *harness) run(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	switch msg := msg.(type) {
	case nil, tea.QuitMsg:
	case tea.BatchMsg:
		for _, c := range msg {
			h.run(t, c)
		}
	default:
		next, cmd := h.model.Update(msg)
		h.model = next.(Model)
		h.run(t, cmd)
	}
}

func (h *harness) key(t *testing.T, s string) {
	t.Helper()
	switch s {
	case "enter":
		h.send(t, tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(t, tea.KeyMsg{Type: tea.KeyEsc})
	default:
		h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func TestPaging(t *testing.T) {
	h := newHarness(t, 0)
	require.NotNil(t, h.model.page)
	assert.Equal(t, 1, h.model.page.Page)

	h.key(t, "n")
	h.key(t, "n")
	assert.Equal(t, 3, h.model.page.Page)
	h.key(t, "n")
	assert.Equal(t, 3, h.model.page.Page)

	h.key(t, "p")
	assert.Equal(t, 2, h.model.page.Page)
	assert.Contains(t, h.model.View(), "2/3")
}

func TestOpenNoteCountsVisit(t *testing.T) {
	h := newHarness(t, 0)

	h.key(t, "j")
	assert.Equal(t, 1, h.model.cursor)

	h.key(t, "enter")
	assert.Equal(t, ModeDetail, h.model.mode)
	require.NotNil(t, h.model.note)
	assert.Equal(t, int64(12), h.model.note.ID)
	assert.Equal(t, int64(1), h.notes.visits[12])
	assert.Contains(t, h.model.View(), "body text")

	h.key(t, "esc")
	assert.Equal(t, ModeList, h.model.mode)
	assert.Nil(t, h.model.note)
}

func TestSearchPersistsAndResetsPage(t *testing.T) {
	h := newHarness(t, 0)
	h.key(t, "n")

	h.key(t, "/")
	assert.Equal(t, ModeSearch, h.model.mode)
	for _, r := range "milk" {
		h.send(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	h.key(t, "enter")

	assert.Equal(t, ModeList, h.model.mode)
	assert.Equal(t, "milk", h.settings.values[query.KeySearchContent])
	assert.Equal(t, 1, h.lister.gotoArg)
	assert.Equal(t, 1, h.model.page.Page)
}

func TestSearchCooldown(t *testing.T) {
	h := newHarness(t, time.Hour)

	h.key(t, "/")
	h.key(t, "enter")
	assert.Equal(t, "", h.settings.values[query.KeySearchContent])

	h.settings.values[query.KeySearchContent] = "kept"
	h.key(t, "/")
	h.key(t, "enter")
	assert.Equal(t, "kept", h.settings.values[query.KeySearchContent])
	assert.True(t, strings.HasPrefix(h.model.status, "Wait"), h.model.status)
}

func TestSearchEscapeCancels(t *testing.T) {
	h := newHarness(t, 0)
	h.key(t, "/")
	h.key(t, "x")
	h.key(t, "esc")
	assert.Equal(t, ModeList, h.model.mode)
	assert.NotContains(t, h.settings.values, query.KeySearchContent)
}

func TestCycleNoteType(t *testing.T) {
	h := newHarness(t, 0)
	h.key(t, "t")
	assert.Equal(t, string(db.NoteTypes[1]), h.settings.values["home_select_option"])

	assert.Equal(t, db.NoteTypes[0], NextNoteType(db.NoteTypes[len(db.NoteTypes)-1]))
	assert.Equal(t, db.NoteTypes[0], NextNoteType("bogus"))
}

func TestGenerateTagsStatus(t *testing.T) {
	h := newHarness(t, 0)
	h.key(t, "g")
	assert.Equal(t, "Tags created: 2, existing: 1, invalid: 0", h.model.status)
}

func TestErrorKeepsPreviousPage(t *testing.T) {
	h := newHarness(t, 0)
	h.key(t, "n")
	before := h.model.page

	h.lister.err = errors.New("database is locked")
	h.key(t, "n")

	assert.Same(t, before, h.model.page)
	assert.EqualError(t, h.model.err, "database is locked")
	assert.Contains(t, h.model.View(), "database is locked")
}

func TestHelpToggle(t *testing.T) {
	h := newHarness(t, 0)
	h.key(t, "?")
	assert.Equal(t, ModeHelp, h.model.mode)
	h.key(t, "?")
	assert.Equal(t, ModeList, h.model.mode)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "straß...", truncate("straßenbahn", 8))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
