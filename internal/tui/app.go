// Package tui is the terminal front end: tabs over the derived views, with
// key bindings for the tracker's write actions.
package tui

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spiecc/animetrack/internal/domain"
	"github.com/spiecc/animetrack/internal/session"
	"github.com/spiecc/animetrack/internal/tracker"
	"github.com/spiecc/animetrack/internal/tui/styles"
	"github.com/spiecc/animetrack/internal/views"
)

// inputMode is what the text input is collecting
type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputNewList
	inputAddAnime
	inputRating
)

const (
	statusTimeout = 4 * time.Second
	dayTick       = time.Minute

	// Vertical chrome: tab bar, blank line, footer
	ChromeHeight = 3
)

// Channels carries the asynchronous feeds the model listens on
type Channels struct {
	Progress <-chan domain.SyncProgress
	Store    <-chan uint64
	Notices  <-chan Notice
}

// PageOpener shows the public page of an anime outside the terminal
type PageOpener interface {
	OpenSubject(animeID int) error
}

// Model is the main Bubble Tea model for the application
type Model struct {
	Tracker *tracker.Service
	Views   *views.Engine
	Session *session.Manager
	Browser PageOpener // optional

	channels Channels
	now      func() time.Time

	// Navigation
	tab      tab
	detailID int // anime whose episodes are shown; 0 for none
	rows     []row
	cursor   int
	offset   int

	// Input
	input        textinput.Model
	mode         inputMode
	filter       string
	target       row    // row an input or confirmation applies to
	confirmTitle string // watch list pending delete confirmation

	// Sync state
	spinner spinner.Model
	phase   domain.SyncPhase

	// Status line
	StatusMsg   string
	StatusIsErr bool

	Width  int
	Height int

	// LoggedOut is set when the user logged out; the caller restarts login
	LoggedOut bool
}

// NewModel creates a new application model
func NewModel(trk *tracker.Service, eng *views.Engine, sess *session.Manager, ch Channels) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = styles.SpinnerStyle

	in := textinput.New()
	in.CharLimit = 120

	return Model{
		Tracker:  trk,
		Views:    eng,
		Session:  sess,
		channels: ch,
		now:      time.Now,
		spinner:  sp,
		input:    in,
	}
}

// Init starts the first full fetch and the channel listeners
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		FetchAllCmd(m.Tracker),
		WaitForProgressCmd(m.channels.Progress),
		WaitForStoreCmd(m.channels.Store),
		WaitForNoticeCmd(m.channels.Notices),
		m.spinner.Tick,
		TickCmd(dayTick),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case SyncProgressMsg:
		m.phase = msg.Phase
		if msg.Phase == domain.PhaseFailed && msg.Error != nil {
			m.setStatus("Failed to load watch lists: "+msg.Error.Error(), true)
		}
		return m, WaitForProgressCmd(m.channels.Progress)

	case StoreChangedMsg:
		m.refreshRows()
		return m, WaitForStoreCmd(m.channels.Store)

	case NoticeMsg:
		m.setStatus(msg.Text, msg.IsErr)
		return m, tea.Batch(WaitForNoticeCmd(m.channels.Notices), ClearStatusCmd(statusTimeout))

	case ActionDoneMsg:
		if msg.Err != nil && !notified(msg.Err) {
			m.setStatus(msg.Action+": "+msg.Err.Error(), true)
			return m, ClearStatusCmd(statusTimeout)
		}
		return m, nil

	case EpisodesLoadedMsg:
		if msg.Err != nil {
			m.setStatus("Failed to load episodes: "+msg.Err.Error(), true)
			return m, ClearStatusCmd(statusTimeout)
		}
		m.refreshRows()
		return m, nil

	case ErrMsg:
		m.setStatus(msg.Error(), true)
		return m, ClearStatusCmd(statusTimeout)

	case TickMsg:
		// Calendar views change at midnight without any store change
		m.refreshRows()
		return m, TickCmd(dayTick)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}
	return m, nil
}

// notified reports whether the tracker already surfaced err as a notice
func notified(err error) bool {
	var addErr *domain.AddAnimeError
	if errors.As(err, &addErr) {
		return true
	}
	return errors.Is(err, domain.ErrServer) || errors.Is(err, domain.ErrUnauthorized)
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.StatusMsg = msg
	m.StatusIsErr = isErr
}

func (m *Model) refreshRows() {
	m.rows = buildRows(m.Views, m.tab, m.detailID, m.filter, m.now())
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	visible := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if visible > 0 && m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}
}

func (m Model) listHeight() int {
	h := m.Height - ChromeHeight
	if m.mode != inputNone || m.confirmTitle != "" {
		h--
	}
	return h
}

func (m Model) selected() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}
	return m.rows[m.cursor], true
}

// handleKeyMsg routes key presses by the current interaction state
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.mode != inputNone {
		return m.handleInputKey(msg)
	}
	if m.confirmTitle != "" {
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Up):
		m.cursor--
		m.clampCursor()
	case key.Matches(msg, Keys.Down):
		m.cursor++
		m.clampCursor()
	case key.Matches(msg, Keys.Home):
		m.cursor = 0
		m.clampCursor()
	case key.Matches(msg, Keys.End):
		m.cursor = len(m.rows) - 1
		m.clampCursor()

	case key.Matches(msg, Keys.NextTab):
		m.switchTab((m.tab + 1) % tabCount)
	case key.Matches(msg, Keys.PrevTab):
		m.switchTab((m.tab + tabCount - 1) % tabCount)

	case key.Matches(msg, Keys.Escape), key.Matches(msg, Keys.Back):
		if m.filter != "" {
			m.filter = ""
		} else {
			m.detailID = 0
		}
		m.refreshRows()

	case key.Matches(msg, Keys.Filter):
		return m.startInput(inputFilter, row{}, "filter: ", m.filter)

	case key.Matches(msg, Keys.Refresh):
		return m, FetchAllCmd(m.Tracker)

	case key.Matches(msg, Keys.Logout):
		if err := m.Session.Logout(); err != nil {
			m.setStatus("Logout failed: "+err.Error(), true)
			return m, nil
		}
		m.LoggedOut = true
		return m, tea.Quit

	case key.Matches(msg, Keys.NewList):
		return m.startInput(inputNewList, row{}, "new watch list: ", "")

	default:
		return m.handleRowKey(msg)
	}
	return m, nil
}

// handleRowKey applies actions to the selected row
func (m Model) handleRowKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r, ok := m.selected()
	if !ok {
		return m, nil
	}
	trk := m.Tracker

	switch {
	case key.Matches(msg, Keys.Enter):
		if r.kind == rowAnime && r.animeID != 0 {
			m.detailID = r.animeID
			m.cursor, m.offset, m.filter = 0, 0, ""
			m.refreshRows()
			return m, LoadEpisodesCmd(trk, r.animeID, false)
		}

	case key.Matches(msg, Keys.RefreshEpisodes):
		if r.animeID != 0 {
			return m, LoadEpisodesCmd(trk, r.animeID, true)
		}

	case key.Matches(msg, Keys.ToggleWatched):
		if r.kind == rowEpisode {
			return m, ActionCmd("Toggle watched", func(ctx context.Context) error {
				return trk.ToggleWatched(ctx, r.animeID, r.ep)
			})
		}

	case key.Matches(msg, Keys.ToggleVisible):
		if r.kind == rowAnime {
			return m, ActionCmd("Toggle visibility", func(ctx context.Context) error {
				return trk.ToggleVisibility(ctx, r.animeID, !r.visible)
			})
		}

	case key.Matches(msg, Keys.ToggleArchived):
		if r.kind == rowList {
			return m, ActionCmd("Toggle archived", func(ctx context.Context) error {
				return trk.ToggleArchived(ctx, r.listTitle)
			})
		}

	case key.Matches(msg, Keys.Rate):
		if r.kind == rowAnime {
			current := ""
			if r.rating != nil {
				current = strconv.FormatFloat(*r.rating, 'f', -1, 64)
			}
			return m.startInput(inputRating, r, "rating (0-10): ", current)
		}

	case key.Matches(msg, Keys.AddAnime):
		if r.listTitle != "" && !r.archived {
			return m.startInput(inputAddAnime, r, fmt.Sprintf("add to %s, bangumi id: ", r.listTitle), "")
		}

	case key.Matches(msg, Keys.OpenPage):
		if r.animeID != 0 && m.Browser != nil {
			browser := m.Browser
			return m, ActionCmd("Open page", func(context.Context) error {
				return browser.OpenSubject(r.animeID)
			})
		}

	case key.Matches(msg, Keys.Delete):
		if r.kind == rowList {
			m.confirmTitle = r.listTitle
			m.clampCursor()
		}

	case key.Matches(msg, Keys.MoveUp), key.Matches(msg, Keys.MoveDown):
		if r.kind == rowList && m.filter == "" {
			m.moveList(r.listTitle, key.Matches(msg, Keys.MoveUp))
		}
	}
	return m, nil
}

// moveList moves the list titled title past its nearest neighbour in the
// same group (active or archived), skipping lists of the other group
func (m *Model) moveList(title string, up bool) {
	lists := m.Views.Snapshot().WatchLists
	from := slices.IndexFunc(lists, func(l domain.WatchList) bool { return l.Title == title })
	if from < 0 {
		return
	}
	to := neighbourIndex(lists, from, up)
	if to < 0 {
		return
	}
	if m.Tracker.MoveWatchList(from, to) {
		m.refreshRows()
		for i, r := range m.rows {
			if r.kind == rowList && r.listTitle == title {
				m.cursor = i
				break
			}
		}
		m.clampCursor()
	}
}

// neighbourIndex returns the index of the nearest list before (up) or after
// lists[from] with the same archived flag, or -1 if there is none
func neighbourIndex(lists []domain.WatchList, from int, up bool) int {
	step := 1
	if up {
		step = -1
	}
	for i := from + step; i >= 0 && i < len(lists); i += step {
		if lists[i].Archived == lists[from].Archived {
			return i
		}
	}
	return -1
}

func (m *Model) switchTab(t tab) {
	m.tab = t
	m.detailID = 0
	m.cursor, m.offset = 0, 0
	m.filter = ""
	m.refreshRows()
}

func (m Model) startInput(mode inputMode, target row, prompt, value string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.target = target
	m.input.Prompt = prompt
	m.input.PromptStyle = styles.FilterPromptStyle
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.clampCursor()
	cmd := m.input.Focus()
	return m, cmd
}

func (m Model) endInput() Model {
	m.mode = inputNone
	m.input.Blur()
	m.input.SetValue("")
	m.clampCursor()
	return m
}

// handleInputKey drives the text input and submits it on enter
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		if m.mode == inputFilter {
			m.filter = ""
			m.refreshRows()
		}
		return m.endInput(), nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		mode, target := m.mode, m.target
		m = m.endInput()
		cmd := m.submitInput(mode, target, value)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == inputFilter {
		m.filter = m.input.Value()
		m.cursor, m.offset = 0, 0
		m.refreshRows()
	}
	return m, cmd
}

func (m *Model) submitInput(mode inputMode, target row, value string) tea.Cmd {
	trk := m.Tracker

	switch mode {
	case inputFilter:
		m.filter = value
		m.refreshRows()
		return nil

	case inputNewList:
		if value == "" {
			return nil
		}
		return ActionCmd("Create watch list", func(ctx context.Context) error {
			return trk.CreateWatchList(ctx, value)
		})

	case inputAddAnime:
		id, err := strconv.Atoi(value)
		if err != nil || id <= 0 {
			m.setStatus("Not a bangumi id: "+value, true)
			return ClearStatusCmd(statusTimeout)
		}
		return ActionCmd("Add anime", func(ctx context.Context) error {
			return trk.AddAnimeToWatchList(ctx, target.listTitle, id)
		})

	case inputRating:
		rating, err := strconv.ParseFloat(value, 64)
		if err != nil || rating < 0 || rating > 10 {
			m.setStatus("Rating must be between 0 and 10", true)
			return ClearStatusCmd(statusTimeout)
		}
		return ActionCmd("Update rating", func(ctx context.Context) error {
			return trk.UpdateRating(ctx, target.animeID, rating)
		})
	}
	return nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Confirm):
		title := m.confirmTitle
		m.confirmTitle = ""
		trk := m.Tracker
		return m, ActionCmd("Delete watch list", func(ctx context.Context) error {
			return trk.DeleteWatchList(ctx, title)
		})
	case key.Matches(msg, Keys.Deny):
		m.confirmTitle = ""
		m.clampCursor()
	}
	return m, nil
}
