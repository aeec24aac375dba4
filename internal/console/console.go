// Package console implements the estimator TUI.
//
// The console is a single bubbletea model mirroring server state: the
// project list, the scope-config status, and one selected project's
// detail. Every user action maps to one REST call through the Backend
// interface; responses come back as messages and replace local state
// wholesale. Background refresh failures are logged, never alerted.
package console

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Advisory file filters for the modal pickers. The server validates
// uploads again on its side.
var (
	documentTypes = []string{".doc", ".docx", ".pdf", ".txt"}
	scopeTypes    = []string{".xlsx", ".xls", ".csv"}
)

// Backend is the slice of the REST client the console uses. pkg/client
// satisfies it; tests substitute a fake that counts calls.
type Backend interface {
	ListProjects(ctx context.Context) ([]api.Project, error)
	GetProject(ctx context.Context, id string) (api.Project, error)
	CreateProject(ctx context.Context, name, docPath string) (api.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ScopeConfigStatus(ctx context.Context) (api.ScopeConfigStatus, error)
	UploadScopeConfig(ctx context.Context, path string) (string, error)
	DeleteScopeConfig(ctx context.Context) error
	DownloadCSV(ctx context.Context, id, destDir string) (string, error)
}

// requestState tracks one operation's lifecycle so intermediate states
// are observable.
type requestState int

const (
	requestIdle requestState = iota
	requestPending
	requestSucceeded
	requestFailed
)

// requests holds the per-operation request states.
type requests struct {
	list          requestState
	scopeStatus   requestState
	detail        requestState
	create        requestState
	upload        requestState
	deleteProject requestState
	deleteScope   requestState
	download      requestState
}

func (r requests) anyPending() bool {
	for _, s := range []requestState{
		r.list, r.scopeStatus, r.detail, r.create,
		r.upload, r.deleteProject, r.deleteScope, r.download,
	} {
		if s == requestPending {
			return true
		}
	}
	return false
}

// modal identifies which modal form is open, if any.
type modal int

const (
	modalNone modal = iota
	modalCreate
	modalScope
)

// focusArea is the focused control inside an open modal.
type focusArea int

const (
	focusName focusArea = iota
	focusPicker
	focusSubmit
)

// menuTarget is the object a context menu acts on: a project card or
// the scope-config file.
type menuTarget interface {
	isMenuTarget()
}

type projectTarget struct {
	project api.Project
}

type scopeConfigTarget struct {
	filename string
}

func (projectTarget) isMenuTarget()     {}
func (scopeConfigTarget) isMenuTarget() {}

// contextMenu is the single transient right-click menu, anchored at
// the pointer position.
type contextMenu struct {
	x, y   int
	target menuTarget
}

// confirmDialog gates a delete behind an explicit yes or no.
type confirmDialog struct {
	question string
	target   menuTarget
}

// alertDialog is a blocking message with a single OK control.
type alertDialog struct {
	message string
}

// rect is a screen rectangle used for overlay placement and click
// hit-testing.
type rect struct {
	x, y, w, h int
}

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// Model is the console state.
type Model struct {
	backend     Backend
	logger      *logging.Logger
	zone        *zone.Manager
	downloadDir string

	width  int
	height int

	projects    []api.Project
	scopeStatus api.ScopeConfigStatus
	selected    *api.Project
	cursor      int

	requests requests

	modal      modal
	nameInput  textinput.Model
	filePicker filepicker.Model
	draftFile  string
	pickerErr  string
	focus      focusArea

	menu    *contextMenu
	confirm *confirmDialog
	alert   *alertDialog

	keys    keyMap
	help    help.Model
	spinner spinner.Model

	quitting bool
}

// New creates the console model. downloadDir is where CSV exports are
// written; it defaults to the current directory.
func New(backend Backend, logger *logging.Logger, downloadDir string) Model {
	if logger == nil {
		logger = logging.NewNop()
	}
	if downloadDir == "" {
		downloadDir = "."
	}

	name := textinput.New()
	name.Placeholder = "Project name"
	name.CharLimit = 120
	name.Width = 40

	picker := filepicker.New()
	picker.Height = pickerHeight
	if home, err := os.UserHomeDir(); err == nil {
		picker.CurrentDirectory = home
	}

	sp := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("51"))),
	)

	return Model{
		backend:     backend,
		logger:      logger,
		zone:        zone.New(),
		downloadDir: downloadDir,
		nameInput:   name,
		filePicker:  picker,
		keys:        newKeyMap(),
		help:        help.New(),
		spinner:     sp,
		requests: requests{
			list:        requestPending,
			scopeStatus: requestPending,
		},
	}
}

// Init starts the two mount-time fetches. They run independently and
// may complete in either order.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchProjects, m.fetchScopeStatus, m.spinner.Tick)
}

// overlayOpen reports whether any overlay covers the main view.
func (m Model) overlayOpen() bool {
	return m.modal != modalNone || m.menu != nil || m.confirm != nil || m.alert != nil
}

// cursorProject returns the project under the keyboard cursor.
func (m Model) cursorProject() (api.Project, bool) {
	if len(m.projects) == 0 || m.cursor < 0 || m.cursor >= len(m.projects) {
		return api.Project{}, false
	}
	return m.projects[m.cursor], true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
