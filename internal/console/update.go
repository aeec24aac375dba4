package console

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		if !m.requests.anyPending() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case projectsListedMsg:
		if msg.err != nil {
			// Background refreshes fail silently from the user's
			// perspective; prior state stays untouched.
			m.requests.list = requestFailed
			m.logger.Warn(context.Background(), "load projects failed", zap.Error(msg.err))
			return m, nil
		}
		m.requests.list = requestSucceeded
		m.projects = msg.projects
		m.cursor = clamp(m.cursor, 0, len(m.projects)-1)
		return m, nil

	case scopeStatusMsg:
		if msg.err != nil {
			m.requests.scopeStatus = requestFailed
			m.logger.Warn(context.Background(), "load scope config status failed", zap.Error(msg.err))
			return m, nil
		}
		m.requests.scopeStatus = requestSucceeded
		m.scopeStatus = msg.status
		return m, nil

	case projectDetailMsg:
		if msg.err != nil {
			// Logged only; the current selection stays.
			m.requests.detail = requestFailed
			m.logger.Warn(context.Background(), "load project detail failed", zap.Error(msg.err))
			return m, nil
		}
		m.requests.detail = requestSucceeded
		p := msg.project
		m.selected = &p
		return m, nil

	case projectCreatedMsg:
		if msg.err != nil {
			m.requests.create = requestFailed
			m.alert = &alertDialog{message: msg.err.Error()}
			return m, nil
		}
		m.requests.create = requestSucceeded
		m.projects = append(m.projects, msg.project)
		m = m.closeModal()
		m.alert = &alertDialog{message: fmt.Sprintf("Project %q created successfully", msg.project.Name)}
		return m, nil

	case scopeUploadedMsg:
		if msg.err != nil {
			m.requests.upload = requestFailed
			m.alert = &alertDialog{message: msg.err.Error()}
			return m, nil
		}
		m.requests.upload = requestSucceeded
		m = m.closeModal()
		m.alert = &alertDialog{message: "Scope config uploaded successfully"}
		// No optimistic update; the status fetch is authoritative.
		m.requests.scopeStatus = requestPending
		return m, tea.Batch(m.fetchScopeStatus, m.spinner.Tick)

	case projectDeletedMsg:
		m.menu = nil
		if msg.err != nil {
			m.requests.deleteProject = requestFailed
			m.alert = &alertDialog{message: msg.err.Error()}
			return m, nil
		}
		m.requests.deleteProject = requestSucceeded
		filtered := m.projects[:0:0]
		for _, p := range m.projects {
			if p.ID != msg.id {
				filtered = append(filtered, p)
			}
		}
		m.projects = filtered
		m.cursor = clamp(m.cursor, 0, len(m.projects)-1)
		if m.selected != nil && m.selected.ID == msg.id {
			m.selected = nil
		}
		m.alert = &alertDialog{message: "Project deleted successfully"}
		return m, nil

	case scopeDeletedMsg:
		m.menu = nil
		if msg.err != nil {
			m.requests.deleteScope = requestFailed
			m.alert = &alertDialog{message: msg.err.Error()}
			return m, nil
		}
		m.requests.deleteScope = requestSucceeded
		m.alert = &alertDialog{message: "Scope config deleted successfully"}
		m.requests.scopeStatus = requestPending
		return m, tea.Batch(m.fetchScopeStatus, m.spinner.Tick)

	case csvDownloadedMsg:
		if msg.err != nil {
			m.requests.download = requestFailed
			m.alert = &alertDialog{message: msg.err.Error()}
			return m, nil
		}
		m.requests.download = requestSucceeded
		m.alert = &alertDialog{message: "Results saved to " + msg.path}
		return m, nil
	}

	// Component-internal messages (picker directory reads, cursor
	// blinks) go to whichever modal is open.
	if m.modal != modalNone {
		return m.updateModalComponents(msg)
	}
	return m, nil
}

// updateModalComponents forwards non-key messages to the open modal's
// input components.
func (m Model) updateModalComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	if m.modal == modalCreate {
		m.nameInput, cmd = m.nameInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.filePicker, cmd = m.filePicker.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	switch {
	case m.alert != nil:
		return m.handleAlertKey(msg)
	case m.confirm != nil:
		return m.handleConfirmKey(msg)
	case m.modal == modalCreate:
		return m.handleCreateModalKey(msg)
	case m.modal == modalScope:
		return m.handleScopeModalKey(msg)
	case m.menu != nil:
		// Any key dismisses the menu; esc is the usual one.
		m.menu = nil
		return m, nil
	}
	return m.handleMainKey(msg)
}

func (m Model) handleAlertKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", " ":
		m.alert = nil
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		return m.confirmAccepted()
	case "n", "N", "esc":
		// Declining performs no request and closes the menu too.
		m.confirm = nil
		m.menu = nil
	}
	return m, nil
}

// confirmAccepted fires the delete the open confirm dialog was
// gating.
func (m Model) confirmAccepted() (tea.Model, tea.Cmd) {
	dialog := m.confirm
	m.confirm = nil
	if dialog == nil {
		return m, nil
	}

	switch target := dialog.target.(type) {
	case projectTarget:
		m.requests.deleteProject = requestPending
		return m, tea.Batch(m.deleteProject(target.project.ID), m.spinner.Tick)
	case scopeConfigTarget:
		m.requests.deleteScope = requestPending
		return m, tea.Batch(m.deleteScopeConfig(), m.spinner.Tick)
	}
	return m, nil
}

func (m Model) handleCreateModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeModal(), nil
	case "tab":
		switch m.focus {
		case focusName:
			m.nameInput.Blur()
			m.focus = focusPicker
		case focusPicker:
			m.focus = focusSubmit
		case focusSubmit:
			m.focus = focusName
			return m, m.nameInput.Focus()
		}
		return m, nil
	case "shift+tab":
		switch m.focus {
		case focusName:
			m.nameInput.Blur()
			m.focus = focusSubmit
		case focusPicker:
			m.nameInput.Blur()
			m.focus = focusName
			return m, m.nameInput.Focus()
		case focusSubmit:
			m.focus = focusPicker
		}
		return m, nil
	case "enter":
		switch m.focus {
		case focusName:
			m.nameInput.Blur()
			m.focus = focusPicker
			return m, nil
		case focusSubmit:
			return m.submitCreate()
		}
		// The picker handles enter itself below.
	}

	if m.focus == focusName {
		var cmd tea.Cmd
		m.nameInput, cmd = m.nameInput.Update(msg)
		return m, cmd
	}
	return m.updatePicker(msg)
}

func (m Model) handleScopeModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeModal(), nil
	case "tab", "shift+tab":
		if m.focus == focusPicker {
			m.focus = focusSubmit
		} else {
			m.focus = focusPicker
		}
		return m, nil
	case "enter":
		if m.focus == focusSubmit {
			return m.submitScope()
		}
	}
	return m.updatePicker(msg)
}

// updatePicker forwards a key to the file picker and records any
// selection it produced.
func (m Model) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if ok, path := m.filePicker.DidSelectFile(msg); ok {
		m.draftFile = path
		m.pickerErr = ""
		m.focus = focusSubmit
	}
	if ok, path := m.filePicker.DidSelectDisabledFile(msg); ok {
		m.pickerErr = "Type not allowed: " + filepath.Base(path)
	}
	return m, cmd
}

func (m Model) handleMainKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		m.cursor = clamp(m.cursor-1, 0, len(m.projects)-1)

	case key.Matches(msg, m.keys.Down):
		m.cursor = clamp(m.cursor+1, 0, len(m.projects)-1)

	case key.Matches(msg, m.keys.Select):
		if p, ok := m.cursorProject(); ok {
			m.requests.detail = requestPending
			return m, tea.Batch(m.fetchDetail(p.ID), m.spinner.Tick)
		}

	case key.Matches(msg, m.keys.New):
		// Disabled until a scope config exists.
		if m.scopeStatus.Exists {
			return m.openCreateModal()
		}

	case key.Matches(msg, m.keys.Upload):
		return m.openScopeModal()

	case key.Matches(msg, m.keys.Download):
		if p, ok := m.cursorProject(); ok {
			m.requests.download = requestPending
			return m, tea.Batch(m.downloadCSV(p.ID), m.spinner.Tick)
		}

	case key.Matches(msg, m.keys.Delete):
		if p, ok := m.cursorProject(); ok {
			m.confirm = &confirmDialog{
				question: fmt.Sprintf("Delete project %q?", p.Name),
				target:   projectTarget{project: p},
			}
		}

	case key.Matches(msg, m.keys.Refresh):
		m.requests.list = requestPending
		m.requests.scopeStatus = requestPending
		return m, tea.Batch(m.fetchProjects, m.fetchScopeStatus, m.spinner.Tick)
	}
	return m, nil
}

func (m Model) openCreateModal() (tea.Model, tea.Cmd) {
	m.modal = modalCreate
	m.draftFile = ""
	m.pickerErr = ""
	m.nameInput.SetValue("")
	m.focus = focusName
	m.filePicker.AllowedTypes = documentTypes
	return m, tea.Batch(m.nameInput.Focus(), m.filePicker.Init())
}

func (m Model) openScopeModal() (tea.Model, tea.Cmd) {
	m.modal = modalScope
	m.draftFile = ""
	m.pickerErr = ""
	m.focus = focusPicker
	m.filePicker.AllowedTypes = scopeTypes
	return m, m.filePicker.Init()
}

// closeModal resets the modal machinery and the pending draft.
func (m Model) closeModal() Model {
	m.modal = modalNone
	m.draftFile = ""
	m.pickerErr = ""
	m.nameInput.SetValue("")
	m.nameInput.Blur()
	m.focus = focusName
	return m
}

// submitCreate validates the draft and fires the create request. A
// violated precondition alerts and never reaches the backend.
func (m Model) submitCreate() (tea.Model, tea.Cmd) {
	if m.requests.create == requestPending {
		return m, nil
	}
	name := strings.TrimSpace(m.nameInput.Value())
	if name == "" || m.draftFile == "" {
		m.alert = &alertDialog{message: "Please provide a project name and select a document file"}
		return m, nil
	}
	m.requests.create = requestPending
	return m, tea.Batch(m.createProject(name, m.draftFile), m.spinner.Tick)
}

func (m Model) submitScope() (tea.Model, tea.Cmd) {
	if m.requests.upload == requestPending {
		return m, nil
	}
	if m.draftFile == "" {
		m.alert = &alertDialog{message: "Please select a scope config file"}
		return m, nil
	}
	m.requests.upload = requestPending
	return m, tea.Batch(m.uploadScopeConfig(m.draftFile), m.spinner.Tick)
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}

	switch {
	case m.alert != nil:
		if msg.Button == tea.MouseButtonLeft && m.zone.Get(zoneAlertOK).InBounds(msg) {
			m.alert = nil
		}
		return m, nil

	case m.confirm != nil:
		if msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		if m.zone.Get(zoneConfirmYes).InBounds(msg) {
			return m.confirmAccepted()
		}
		if m.zone.Get(zoneConfirmNo).InBounds(msg) {
			m.confirm = nil
			m.menu = nil
		}
		return m, nil

	case m.menu != nil:
		return m.handleMenuClick(msg)

	case m.modal != modalNone:
		return m.handleModalClick(msg)
	}
	return m.handleMainClick(msg)
}

func (m Model) handleMenuClick(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	_, box := m.menuOverlay()
	if box.contains(msg.X, msg.Y) {
		// Clicks on the menu itself never close it through the
		// outside-click path.
		if msg.Button == tea.MouseButtonLeft && m.zone.Get(zoneMenuDelete).InBounds(msg) {
			return m.menuDeleteChosen()
		}
		return m, nil
	}

	// Any click outside closes the menu unconditionally. A
	// right-click on another target reopens it there.
	m.menu = nil
	if msg.Button == tea.MouseButtonRight {
		return m.openMenuAt(msg)
	}
	return m, nil
}

// menuDeleteChosen opens the confirm dialog for the menu's target. The
// menu stays until the dialog resolves.
func (m Model) menuDeleteChosen() (tea.Model, tea.Cmd) {
	switch target := m.menu.target.(type) {
	case projectTarget:
		m.confirm = &confirmDialog{
			question: fmt.Sprintf("Delete project %q?", target.project.Name),
			target:   target,
		}
	case scopeConfigTarget:
		m.confirm = &confirmDialog{
			question: "Delete the scope config file?",
			target:   target,
		}
	}
	return m, nil
}

func (m Model) openMenuAt(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	for _, p := range m.projects {
		if m.zone.Get(zoneProject(p.ID)).InBounds(msg) {
			m.menu = &contextMenu{x: msg.X, y: msg.Y, target: projectTarget{project: p}}
			return m, nil
		}
	}
	if m.scopeStatus.Exists && m.zone.Get(zoneScopeFile).InBounds(msg) {
		m.menu = &contextMenu{
			x:      msg.X,
			y:      msg.Y,
			target: scopeConfigTarget{filename: m.scopeStatus.Filename},
		}
	}
	return m, nil
}

func (m Model) handleModalClick(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	_, box := m.modalOverlay()
	if !box.contains(msg.X, msg.Y) {
		return m.closeModal(), nil
	}
	if msg.Button != tea.MouseButtonLeft {
		return m, nil
	}

	if m.zone.Get(zoneModalCancel).InBounds(msg) {
		return m.closeModal(), nil
	}
	if m.zone.Get(zoneModalSubmit).InBounds(msg) {
		if m.modal == modalCreate {
			return m.submitCreate()
		}
		return m.submitScope()
	}
	if m.modal == modalCreate && m.zone.Get(zoneModalName).InBounds(msg) {
		m.focus = focusName
		return m, m.nameInput.Focus()
	}
	return m, nil
}

func (m Model) handleMainClick(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonLeft:
		for i, p := range m.projects {
			if m.zone.Get(zoneProject(p.ID)).InBounds(msg) {
				m.cursor = i
				m.requests.detail = requestPending
				return m, tea.Batch(m.fetchDetail(p.ID), m.spinner.Tick)
			}
		}
		if m.scopeStatus.Exists && m.zone.Get(zoneNewProject).InBounds(msg) {
			return m.openCreateModal()
		}
		if m.zone.Get(zoneUploadScope).InBounds(msg) {
			return m.openScopeModal()
		}

	case tea.MouseButtonRight:
		return m.openMenuAt(msg)
	}
	return m, nil
}
