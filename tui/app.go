// Package tui renders the project picker and the three-column task board
// on top of the sync controllers. It follows The Elm Architecture: state
// in the model, transitions in Update, rendering in View. All data comes
// from controller snapshots; the controllers keep converging in the
// background as push events arrive, and a periodic tick repaints.
package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/boardsync/boardsync/board"
	"github.com/boardsync/boardsync/entity"
)

type screen int

const (
	screenPicker screen = iota
	screenBoard
)

const refreshInterval = 2 * time.Second

// ProjectSource is the slice of the project controller the picker uses.
type ProjectSource interface {
	LoadAll(ctx context.Context) error
	Projects() []entity.Project
	Search(query string) []entity.Project
	Err(op string) error
}

// refreshMsg is the periodic tick; handling it re-arms the ticker.
type refreshMsg struct{}

// repaintMsg is a one-shot repaint after an action completes. Unlike
// refreshMsg it never reschedules the ticker, so action commands cannot
// stack extra tick chains.
type repaintMsg struct{}

// searchMsg fires after the debounce window. Only the newest sequence is
// applied; earlier keystrokes' timers arrive stale and are dropped.
type searchMsg struct {
	seq   int
	query string
}

type loadedMsg struct {
	err error
}

type boardOpenedMsg struct {
	err error
}

// App is the terminal UI model.
type App struct {
	projects ProjectSource
	tasks    *board.Controller
	drag     *board.DragEngine
	debounce time.Duration

	screen   screen
	search   textinput.Model
	query    string
	queueSeq int

	filtered  []entity.Project
	selection int

	columns    []entity.Status
	colIndex   int
	rowIndex   int
	dragTarget int

	statusMsg string
	width     int
	height    int
}

// NewApp creates the UI over a project controller and a board controller.
func NewApp(projects ProjectSource, tasks *board.Controller, debounce time.Duration) *App {
	search := textinput.New()
	search.Placeholder = "Search projects"
	search.Prompt = "/ "
	search.Focus()

	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	return &App{
		projects: projects,
		tasks:    tasks,
		drag:     board.NewDragEngine(tasks),
		debounce: debounce,
		screen:   screenPicker,
		search:   search,
		columns:  entity.Statuses(),
	}
}

// Init kicks off the initial project fetch and the repaint ticker.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.fetchProjects(), a.scheduleRefresh())
}

func (a *App) fetchProjects() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: a.projects.LoadAll(context.Background())}
	}
}

func (a *App) scheduleRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg {
		return refreshMsg{}
	})
}

// Update handles one message.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case refreshMsg:
		a.applyFilter()
		a.clampSelection()
		return a, a.scheduleRefresh()

	case repaintMsg:
		a.applyFilter()
		a.clampSelection()
		return a, nil

	case loadedMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Load failed: %v", msg.err)
		} else {
			a.statusMsg = ""
		}
		a.applyFilter()
		return a, nil

	case boardOpenedMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("Open failed: %v", msg.err)
			a.screen = screenPicker
		}
		return a, nil

	case searchMsg:
		if msg.seq != a.queueSeq {
			return a, nil
		}
		a.query = msg.query
		a.applyFilter()
		a.clampSelection()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}
	switch a.screen {
	case screenPicker:
		return a.handlePickerKey(msg)
	case screenBoard:
		return a.handleBoardKey(msg)
	}
	return a, nil
}

func (a *App) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return a, tea.Quit
	case "up":
		if a.selection > 0 {
			a.selection--
		}
		return a, nil
	case "down":
		if a.selection < len(a.filtered)-1 {
			a.selection++
		}
		return a, nil
	case "enter":
		return a.openSelectedProject()
	}

	// Everything else edits the search box. The query is applied only
	// after the debounce window so each keystroke does not refilter.
	var cmd tea.Cmd
	a.search, cmd = a.search.Update(msg)
	a.queueSeq++
	seq := a.queueSeq
	query := a.search.Value()
	debounced := tea.Tick(a.debounce, func(time.Time) tea.Msg {
		return searchMsg{seq: seq, query: query}
	})
	return a, tea.Batch(cmd, debounced)
}

func (a *App) openSelectedProject() (tea.Model, tea.Cmd) {
	if a.selection >= len(a.filtered) {
		return a, nil
	}
	project := a.filtered[a.selection]
	a.screen = screenBoard
	a.colIndex = 0
	a.rowIndex = 0
	a.statusMsg = ""
	return a, func() tea.Msg {
		return boardOpenedMsg{err: a.tasks.Open(context.Background(), project)}
	}
}

func (a *App) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	_, dragging := a.drag.Dragging()

	switch msg.String() {
	case "esc":
		if dragging {
			a.drag.Cancel()
			a.statusMsg = "Drag cancelled"
			return a, nil
		}
		a.tasks.Close()
		a.screen = screenPicker
		return a, nil

	case "q":
		if !dragging {
			return a, tea.Quit
		}
		return a, nil

	case "left", "h":
		if dragging {
			if a.dragTarget > 0 {
				a.dragTarget--
			}
		} else if a.colIndex > 0 {
			a.colIndex--
			a.clampRow()
		}
		return a, nil

	case "right", "l":
		if dragging {
			if a.dragTarget < len(a.columns)-1 {
				a.dragTarget++
			}
		} else if a.colIndex < len(a.columns)-1 {
			a.colIndex++
			a.clampRow()
		}
		return a, nil

	case "up", "k":
		if !dragging && a.rowIndex > 0 {
			a.rowIndex--
		}
		return a, nil

	case "down", "j":
		if !dragging && a.rowIndex < len(a.currentColumn())-1 {
			a.rowIndex++
		}
		return a, nil

	case " ":
		if dragging {
			return a.dropCard()
		}
		return a.grabCard()

	case "n":
		if !dragging {
			a.statusMsg = "Moved forward"
			return a, a.changeStatus(board.Forward)
		}
		return a, nil

	case "p":
		if !dragging {
			a.statusMsg = "Moved back"
			return a, a.changeStatus(board.Backward)
		}
		return a, nil

	case "x":
		if !dragging {
			return a, a.removeCard()
		}
		return a, nil

	case "r":
		return a, func() tea.Msg {
			return loadedMsg{err: a.tasks.LoadAll(context.Background())}
		}
	}

	return a, nil
}

func (a *App) grabCard() (tea.Model, tea.Cmd) {
	col := a.currentColumn()
	if a.rowIndex >= len(col) {
		return a, nil
	}
	if err := a.drag.Start(col[a.rowIndex].ID); err != nil {
		a.statusMsg = err.Error()
		return a, nil
	}
	a.dragTarget = a.colIndex
	a.statusMsg = "Moving card: h/l to aim, space to drop, esc to cancel"
	return a, nil
}

func (a *App) dropCard() (tea.Model, tea.Cmd) {
	target := a.columns[a.dragTarget]
	a.statusMsg = ""
	return a, func() tea.Msg {
		if err := a.drag.Drop(context.Background(), target); err != nil {
			return loadedMsg{err: err}
		}
		return repaintMsg{}
	}
}

func (a *App) changeStatus(direction board.Direction) tea.Cmd {
	col := a.currentColumn()
	if a.rowIndex >= len(col) {
		return nil
	}
	id := col[a.rowIndex].ID
	return func() tea.Msg {
		if _, err := a.tasks.ChangeStatus(context.Background(), id, direction); err != nil {
			return loadedMsg{err: err}
		}
		return repaintMsg{}
	}
}

func (a *App) removeCard() tea.Cmd {
	col := a.currentColumn()
	if a.rowIndex >= len(col) {
		return nil
	}
	id := col[a.rowIndex].ID
	return func() tea.Msg {
		if err := a.tasks.Remove(context.Background(), id); err != nil {
			return loadedMsg{err: err}
		}
		return repaintMsg{}
	}
}

func (a *App) currentColumn() []entity.Task {
	return a.tasks.Column(a.columns[a.colIndex])
}

func (a *App) applyFilter() {
	a.filtered = a.projects.Search(a.query)
}

func (a *App) clampSelection() {
	if a.selection >= len(a.filtered) {
		a.selection = max(0, len(a.filtered)-1)
	}
}

func (a *App) clampRow() {
	if n := len(a.currentColumn()); a.rowIndex >= n {
		a.rowIndex = max(0, n-1)
	}
}
