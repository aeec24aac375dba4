package console

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Result messages. Each carries the operation's outcome; err is nil on
// success. Requests run without timeouts, matching the fire-and-await
// behavior of the rest of the client surface.
type (
	projectsListedMsg struct {
		projects []api.Project
		err      error
	}

	scopeStatusMsg struct {
		status api.ScopeConfigStatus
		err    error
	}

	projectDetailMsg struct {
		project api.Project
		err     error
	}

	projectCreatedMsg struct {
		project api.Project
		err     error
	}

	scopeUploadedMsg struct {
		filename string
		err      error
	}

	projectDeletedMsg struct {
		id  string
		err error
	}

	scopeDeletedMsg struct {
		err error
	}

	csvDownloadedMsg struct {
		path string
		err  error
	}
)

func (m Model) fetchProjects() tea.Msg {
	projects, err := m.backend.ListProjects(context.Background())
	return projectsListedMsg{projects: projects, err: err}
}

func (m Model) fetchScopeStatus() tea.Msg {
	status, err := m.backend.ScopeConfigStatus(context.Background())
	return scopeStatusMsg{status: status, err: err}
}

func (m Model) fetchDetail(id string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.backend.GetProject(context.Background(), id)
		return projectDetailMsg{project: p, err: err}
	}
}

func (m Model) createProject(name, docPath string) tea.Cmd {
	return func() tea.Msg {
		p, err := m.backend.CreateProject(context.Background(), name, docPath)
		return projectCreatedMsg{project: p, err: err}
	}
}

func (m Model) uploadScopeConfig(path string) tea.Cmd {
	return func() tea.Msg {
		filename, err := m.backend.UploadScopeConfig(context.Background(), path)
		return scopeUploadedMsg{filename: filename, err: err}
	}
}

func (m Model) deleteProject(id string) tea.Cmd {
	return func() tea.Msg {
		err := m.backend.DeleteProject(context.Background(), id)
		return projectDeletedMsg{id: id, err: err}
	}
}

func (m Model) deleteScopeConfig() tea.Cmd {
	return func() tea.Msg {
		return scopeDeletedMsg{err: m.backend.DeleteScopeConfig(context.Background())}
	}
}

func (m Model) downloadCSV(id string) tea.Cmd {
	return func() tea.Msg {
		path, err := m.backend.DownloadCSV(context.Background(), id, m.downloadDir)
		return csvDownloadedMsg{path: path, err: err}
	}
}
