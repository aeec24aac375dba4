package console

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/estimator/internal/logging"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

const (
	leftColumnWidth = 34
	sparkWidth      = 24
	pickerHeight    = 8
)

// Zone identifiers for mouse hit testing.
const (
	zoneNewProject  = "new-project"
	zoneUploadScope = "upload-scope"
	zoneScopeFile   = "scope-file"
	zoneMenuDelete  = "menu-delete"
	zoneModalName   = "modal-name"
	zoneModalSubmit = "modal-submit"
	zoneModalCancel = "modal-cancel"
	zoneConfirmYes  = "confirm-yes"
	zoneConfirmNo   = "confirm-no"
	zoneAlertOK     = "alert-ok"
)

// zoneProject returns the zone id for one project card.
func zoneProject(id string) string {
	return "project-" + id
}

// Lipgloss styles (k9s-inspired color scheme)
var (
	// Header style - bright cyan background, bold black text
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	// Section title style - bold bright cyan
	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	// Label style - dim cyan
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	// Value style - bright white
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	// Dim style - for hints and secondary info
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	// Status styles with unicode symbols
	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// Panel style - rounded border with dim gray
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)

	// Context menu - violet border, tight padding
	menuStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	// Modal form - cyan border
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("51")).
			Padding(1, 2)

	// Confirm and alert dialogs - orange border
	dialogStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(1, 2)

	// Button styles
	buttonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231"))

	buttonActiveStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("51")).
				Bold(true)

	buttonDisabledStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	// Footer style - bright keys on dim background
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	// Sparkline container
	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// Run starts the interactive console and blocks until the user quits.
func Run(backend Backend, logger *logging.Logger, downloadDir string) error {
	program := tea.NewProgram(
		New(backend, logger, downloadDir),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := program.Run()
	return err
}

// View renders the console: the main frame first, then any open
// overlays on top, scanned for mouse zones last.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	frame := m.renderMain()
	if box, r := m.menuOverlay(); box != "" {
		frame = overlay(frame, box, r.x, r.y)
	}
	if box, r := m.modalOverlay(); box != "" {
		frame = overlay(frame, box, r.x, r.y)
	}
	if box, r := m.confirmOverlay(); box != "" {
		frame = overlay(frame, box, r.x, r.y)
	}
	if box, r := m.alertOverlay(); box != "" {
		frame = overlay(frame, box, r.x, r.y)
	}
	return m.zone.Scan(frame)
}

// overlay lays box over base starting at column x, row y. Whole rows
// are replaced rather than spliced so styled base text is never cut
// mid-escape.
func overlay(base, box string, x, y int) string {
	baseLines := strings.Split(base, "\n")
	boxLines := strings.Split(lipgloss.NewStyle().MarginLeft(x).Render(box), "\n")
	for i, line := range boxLines {
		row := y + i
		if row < 0 || row >= len(baseLines) {
			continue
		}
		baseLines[row] = line
	}
	return strings.Join(baseLines, "\n")
}

// mark registers a clickable zone on the base view. Overlays suppress
// base zones so covered rows cannot be clicked through.
func (m Model) mark(id, content string) string {
	if m.overlayOpen() {
		return content
	}
	return m.zone.Mark(id, content)
}

func (m Model) renderMain() string {
	var content string
	content += m.renderHeader() + "\n"

	left := panelStyle.Width(leftColumnWidth).Render(
		m.renderScopeSection() + "\n" + m.renderProjects())
	detailWidth := max(44, m.width-leftColumnWidth-8)
	right := panelStyle.Width(detailWidth).Render(m.renderDetail())
	content += lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right) + "\n"

	content += footerStyle.Render(m.help.View(m.keys))
	return content
}

func (m Model) renderHeader() string {
	line := headerStyle.Render(" Project Estimator ")
	if m.requests.anyPending() {
		line += "  " + m.spinner.View() + dimStyle.Render(" working")
	}
	return line
}

func (m Model) renderScopeSection() string {
	var content string
	content += sectionStyle.Render("┃ Scope Config") + "\n"

	switch {
	case m.requests.scopeStatus == requestPending && !m.scopeStatus.Exists:
		content += dimStyle.Render("  checking...") + "\n"
	case m.scopeStatus.Exists:
		line := healthyStyle.Render("[✓] ") + valueStyle.Render(truncate(m.scopeStatus.Filename, 24))
		content += "  " + m.mark(zoneScopeFile, line) + "\n"
		content += dimStyle.Render("      right-click to manage") + "\n"
	default:
		content += "  " + warningStyle.Render("[⚠] ") + dimStyle.Render("not uploaded") + "\n"
	}

	content += "  " + m.mark(zoneUploadScope, buttonStyle.Render("[ Upload scope config ]"))
	return content
}

func (m Model) renderProjects() string {
	var content string
	content += sectionStyle.Render("┃ Projects") + "\n"

	switch {
	case m.requests.list == requestPending && len(m.projects) == 0:
		content += dimStyle.Render("  loading...") + "\n"
	case len(m.projects) == 0:
		content += dimStyle.Render("  No projects yet") + "\n"
	default:
		for i, p := range m.projects {
			content += m.mark(zoneProject(p.ID), m.renderProjectCard(p, i == m.cursor)) + "\n"
		}
	}

	content += "\n"
	button := buttonStyle.Render("[ New Project ]")
	if !m.scopeStatus.Exists {
		// Needs a scope config first; clicks on it are ignored.
		button = buttonDisabledStyle.Render("[ New Project ]")
	}
	content += "  " + m.mark(zoneNewProject, button)
	return content
}

// renderProjectCard renders one two-line card. Both lines live inside
// the card's zone so either is clickable.
func (m Model) renderProjectCard(p api.Project, selected bool) string {
	pointer := "  "
	name := labelStyle.Render(truncate(p.Name, 23))
	if selected {
		pointer = footerKeyStyle.Render("▸ ")
		name = valueStyle.Render(truncate(p.Name, 23))
	}
	first := pointer + statusBadge(p.Status) + " " + name
	second := "      " + dimStyle.Render(formatCreated(p.CreatedAt))
	return first + "\n" + second
}

func statusBadge(status string) string {
	switch status {
	case api.StatusCompleted:
		return healthyStyle.Render("[✓]")
	case api.StatusProcessing:
		return warningStyle.Render("[⚠]")
	default:
		return errorStyle.Render("[✗]")
	}
}

func (m Model) renderDetail() string {
	var content string
	content += sectionStyle.Render("┃ Estimate") + "\n"

	if m.requests.detail == requestPending {
		content += dimStyle.Render("  loading...")
		return content
	}
	if m.selected == nil {
		content += dimStyle.Render("  Select a project to see its estimate")
		return content
	}

	p := *m.selected
	content += "  " + valueStyle.Render(p.Name) + "  " + statusBadge(p.Status) + "\n"
	content += "  " + dimStyle.Render(p.ID) + "\n"
	content += "  " + labelStyle.Render("Created: ") + dimStyle.Render(formatCreated(p.CreatedAt)) + "\n"
	content += "  " + labelStyle.Render("Document: ") + dimStyle.Render(p.DocumentFile) + "\n"

	switch {
	case p.Status == api.StatusError:
		content += "\n  " + errorStyle.Render("✗ "+p.Error)
	case p.Status == api.StatusProcessing:
		content += "\n  " + dimStyle.Render("Still processing, press r to refresh")
	case len(p.Results) == 0:
		content += "\n  " + dimStyle.Render("No results available")
	default:
		content += "\n" + m.renderResults(p.Results)
	}
	return content
}

func (m Model) renderResults(rows []api.ResultRow) string {
	productWidth := len("Product")
	featureWidth := len("Features")
	for _, r := range rows {
		productWidth = max(productWidth, len(r.Product))
		featureWidth = max(featureWidth, len(r.Features))
	}
	productWidth = min(productWidth, 18)
	featureWidth = min(featureWidth, 28)

	rowFmt := fmt.Sprintf("  %%-%ds  %%-%ds  %%-8s  %%s", productWidth, featureWidth)

	var content string
	content += labelStyle.Render(fmt.Sprintf(rowFmt, "Product", "Features", "Size", "Hours")) + "\n"

	var total float64
	haveHours := false
	hours := make([]float64, 0, len(rows))
	for _, r := range rows {
		content += fmt.Sprintf(rowFmt,
			truncate(r.Product, productWidth),
			truncate(r.Features, featureWidth),
			r.Size,
			r.HoursLabel()) + "\n"
		if r.Hours != nil {
			total += *r.Hours
			haveHours = true
			hours = append(hours, *r.Hours)
		}
	}

	content += "\n"
	if haveHours {
		content += "  " + labelStyle.Render("Total: ") +
			valueStyle.Render(strconv.FormatFloat(total, 'f', -1, 64)+" hours") + "\n"
		if spark := hoursSparkline(hours); spark != "" {
			content += "  " + spark + dimStyle.Render(" hours by line item") + "\n"
		}
	} else {
		content += "  " + dimStyle.Render("No numeric estimates") + "\n"
	}
	content += "\n  " + dimStyle.Render("press d to download the results CSV")
	return content
}

// hoursSparkline draws one column per line item so relative effort is
// visible at a glance. All-zero data has no shape to show.
func hoursSparkline(values []float64) string {
	peak := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return ""
	}

	spark := sparkline.New(clamp(len(values), 3, sparkWidth), 1)
	for _, v := range values {
		spark.Push(v)
	}
	spark.Draw()
	return sparklineStyle.Render(spark.View())
}

func (m Model) menuOverlay() (string, rect) {
	if m.menu == nil {
		return "", rect{}
	}

	var title string
	switch target := m.menu.target.(type) {
	case projectTarget:
		title = target.project.Name
	case scopeConfigTarget:
		title = target.filename
	}

	item := m.zone.Mark(zoneMenuDelete, errorStyle.Render("Delete"))
	box := menuStyle.Render(dimStyle.Render(truncate(title, 18)) + "\n" + item)

	w := lipgloss.Width(box)
	h := lipgloss.Height(box)
	x := clamp(m.menu.x, 0, max(0, m.width-w))
	y := clamp(m.menu.y, 0, max(0, m.height-h))
	return box, rect{x: x, y: y, w: w, h: h}
}

func (m Model) modalOverlay() (string, rect) {
	if m.modal == modalNone {
		return "", rect{}
	}

	var content string
	if m.modal == modalCreate {
		content += sectionStyle.Render("┃ New Project") + "\n\n"
		content += m.focusLabel("Name", focusName) + "\n"
		content += m.zone.Mark(zoneModalName, m.nameInput.View()) + "\n\n"
		content += m.focusLabel("Document (.pdf, .docx, .txt, .md)", focusPicker) + "\n"
	} else {
		content += sectionStyle.Render("┃ Upload Scope Config") + "\n\n"
		content += m.focusLabel("Scope config (.csv, .xlsx)", focusPicker) + "\n"
	}

	content += m.filePicker.View() + "\n"
	if m.draftFile != "" {
		content += healthyStyle.Render("✓ ") + valueStyle.Render(filepath.Base(m.draftFile)) + "\n"
	}
	if m.pickerErr != "" {
		content += errorStyle.Render("✗ "+m.pickerErr) + "\n"
	}

	submitLabel := "[ Create ]"
	if m.modal == modalScope {
		submitLabel = "[ Upload ]"
	}
	submit := buttonStyle
	if m.focus == focusSubmit {
		submit = buttonActiveStyle
	}
	content += "\n"
	content += m.zone.Mark(zoneModalSubmit, submit.Render(submitLabel))
	content += "  "
	content += m.zone.Mark(zoneModalCancel, buttonStyle.Render("[ Cancel ]"))
	content += "\n" + footerStyle.Render("tab next field  esc cancel")

	box := modalStyle.Render(content)
	return box, centered(m.width, m.height, box)
}

// focusLabel highlights a form label when its field has focus.
func (m Model) focusLabel(label string, area focusArea) string {
	if m.focus == area {
		return footerKeyStyle.Render(label)
	}
	return labelStyle.Render(label)
}

func (m Model) confirmOverlay() (string, rect) {
	if m.confirm == nil {
		return "", rect{}
	}

	var content string
	content += warningStyle.Render("⚠ ") + valueStyle.Render(m.confirm.question) + "\n"
	content += dimStyle.Render("This cannot be undone.") + "\n\n"
	content += m.zone.Mark(zoneConfirmYes, buttonActiveStyle.Render("[ Yes ]"))
	content += "  "
	content += m.zone.Mark(zoneConfirmNo, buttonStyle.Render("[ No ]"))

	box := dialogStyle.Render(content)
	return box, centered(m.width, m.height, box)
}

func (m Model) alertOverlay() (string, rect) {
	if m.alert == nil {
		return "", rect{}
	}

	var content string
	content += lipgloss.NewStyle().Width(46).Render(m.alert.message) + "\n\n"
	content += m.zone.Mark(zoneAlertOK, buttonActiveStyle.Render("[ OK ]"))

	box := dialogStyle.Render(content)
	return box, centered(m.width, m.height, box)
}

// centered positions box in the middle of a width x height screen.
func centered(width, height int, box string) rect {
	w := lipgloss.Width(box)
	h := lipgloss.Height(box)
	return rect{
		x: max(0, (width-w)/2),
		y: max(0, (height-h)/2),
		w: w,
		h: h,
	}
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(runes[:limit-1]) + "…"
}

// formatCreated renders the server's RFC3339 timestamp for display.
func formatCreated(raw string) string {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02 15:04")
}
