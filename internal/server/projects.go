package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/estimator/internal/sanitize"
	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	"github.com/fyrsmithlabs/estimator/internal/store"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Upload extension allowlists. The server is authoritative; the console's
// file picker filters are advisory.
var (
	allowedDocumentExts = map[string]bool{".doc": true, ".docx": true, ".pdf": true, ".txt": true}
	allowedScopeExts    = map[string]bool{".xlsx": true, ".xls": true, ".csv": true}
)

func allowedExtension(filename string, exts map[string]bool) bool {
	return exts[strings.ToLower(filepath.Ext(filename))]
}

// handleListProjects answers GET /api/projects with all projects newest
// first, in the summary shape.
func (s *Server) handleListProjects(c echo.Context) error {
	projects, err := s.store.List(c.Request().Context())
	if err != nil {
		return s.internalError(c, err)
	}

	// Serialize the empty list as [], not null.
	resp := make([]api.Project, 0, len(projects))
	for _, p := range projects {
		resp = append(resp, projectResponse(p))
	}
	return c.JSON(http.StatusOK, resp)
}

// handleCreateProject answers POST /api/projects: validates the
// multipart form, stores the document, and runs the estimation pipeline
// synchronously.
func (s *Server) handleCreateProject(c echo.Context) error {
	ctx := c.Request().Context()

	name := strings.TrimSpace(c.FormValue("project_name"))
	if name == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Project name is required"})
	}

	scopePath, err := s.scope.Current()
	if errors.Is(err, scopecfg.ErrNoScopeConfig) {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Scope config file is required. Please upload it first."})
	}
	if err != nil {
		return s.internalError(c, err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		// A part named "file" with an empty filename parses as a form
		// value, which is how browsers submit an empty file input.
		if form := c.Request().MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No file selected"})
		}
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Document file is required"})
	}
	if file.Filename == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No file selected"})
	}
	if !allowedExtension(file.Filename, allowedDocumentExts) {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "File type not allowed"})
	}

	now := time.Now()
	id := fmt.Sprintf("project_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:6])

	docPath, storedName, err := s.saveDocument(id, file)
	if err != nil {
		return s.internalError(c, err)
	}

	project := store.Project{
		ID:           id,
		Name:         name,
		CreatedAt:    now.Format(time.RFC3339),
		DocumentFile: storedName,
		Status:       api.StatusProcessing,
		FilePath:     docPath,
	}
	if err := s.store.Create(ctx, project); err != nil {
		return s.internalError(c, err)
	}
	s.refreshProjectCount(ctx)

	s.logger.Info(ctx, "project created",
		zap.String("project_id", id),
		zap.String("name", name),
		zap.String("document", storedName))

	start := time.Now()
	rows, runErr := s.pipeline.Run(ctx, docPath, scopePath)

	// The client may give up mid-run; status writes must still land.
	bg := context.WithoutCancel(ctx)

	if runErr != nil {
		s.metrics.RecordEstimate(OutcomeFailed, time.Since(start))
		if err := s.store.SetFailed(bg, id, runErr.Error()); err != nil {
			s.logger.Error(ctx, "record failed project",
				zap.String("project_id", id), zap.Error(err))
		}
		s.logger.Error(ctx, "estimation pipeline failed",
			zap.String("project_id", id), zap.Error(runErr))
		return c.JSON(http.StatusInternalServerError,
			api.ErrorResponse{Error: "Processing failed: " + runErr.Error()})
	}
	s.metrics.RecordEstimate(OutcomeCompleted, time.Since(start))

	if err := s.store.Complete(bg, id, toStoreResults(rows)); err != nil {
		if ferr := s.store.SetFailed(bg, id, "store results: "+err.Error()); ferr != nil {
			s.logger.Error(ctx, "record failed project",
				zap.String("project_id", id), zap.Error(ferr))
		}
		return s.internalError(c, err)
	}

	s.logger.Info(ctx, "project completed",
		zap.String("project_id", id),
		zap.Int("results", len(rows)))

	resp := projectResponse(project)
	resp.Status = api.StatusCompleted
	resp.Results = rows
	return c.JSON(http.StatusCreated, resp)
}

// handleGetProject answers GET /api/projects/:id with the full project.
func (s *Server) handleGetProject(c echo.Context) error {
	id := c.Param("id")
	if err := sanitize.ValidateProjectID(id); err != nil {
		// Malformed IDs are indistinguishable from absent ones.
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
	}

	p, err := s.store.Get(c.Request().Context(), id)
	if errors.Is(err, store.ErrProjectNotFound) {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
	}
	if err != nil {
		return s.internalError(c, err)
	}

	return c.JSON(http.StatusOK, projectResponse(p))
}

// handleDeleteProject answers DELETE /api/projects/:id, removing the
// stored document best-effort.
func (s *Server) handleDeleteProject(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if err := sanitize.ValidateProjectID(id); err != nil {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
	}

	filePath, err := s.store.Delete(ctx, id)
	if errors.Is(err, store.ErrProjectNotFound) {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
	}
	if err != nil {
		return s.internalError(c, err)
	}

	if filePath != "" {
		// The stored path must stay inside the projects directory, no
		// matter what the database row says.
		abs, pathErr := sanitize.ValidatePath(filePath, s.config.ProjectsDir)
		if pathErr != nil {
			s.logger.Warn(ctx, "stored document path rejected",
				zap.String("path", filePath), zap.Error(pathErr))
		} else {
			if err := os.Remove(abs); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Warn(ctx, "remove project document",
					zap.String("path", abs), zap.Error(err))
			}
			// The per-project directory should be empty now; leave it if not.
			_ = os.Remove(filepath.Dir(abs))
		}
	}
	s.refreshProjectCount(ctx)

	s.logger.Info(ctx, "project deleted", zap.String("project_id", id))
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Project deleted successfully"})
}

// handleDownloadCSV answers GET /api/projects/:id/download-csv with the
// results as a CSV attachment.
func (s *Server) handleDownloadCSV(c echo.Context) error {
	id := c.Param("id")
	if err := sanitize.ValidateProjectID(id); err != nil {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
	}

	p, err := s.store.Get(c.Request().Context(), id)
	if errors.Is(err, store.ErrProjectNotFound) {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Project not found"})
	}
	if err != nil {
		return s.internalError(c, err)
	}
	if len(p.Results) == 0 {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No results available for this project"})
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"Product", "Features", "Size", "Hours"})
	for _, r := range p.Results {
		hours := ""
		if r.Hours != nil {
			hours = strconv.FormatFloat(*r.Hours, 'f', -1, 64)
		}
		_ = w.Write([]string{r.Product, r.Features, r.Size, hours})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return s.internalError(c, err)
	}

	filename := sanitize.Filename(p.Name + "_results.csv")
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}

// saveDocument writes the uploaded document under the project's own
// directory and returns its path and stored name.
func (s *Server) saveDocument(projectID string, file *multipart.FileHeader) (string, string, error) {
	dir := filepath.Join(s.config.ProjectsDir, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("create project dir: %w", err)
	}

	stored := sanitize.Filename(file.Filename)
	path := filepath.Join(dir, stored)

	src, err := file.Open()
	if err != nil {
		return "", "", fmt.Errorf("open uploaded document: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create document file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		_ = os.Remove(path)
		return "", "", fmt.Errorf("write document file: %w", err)
	}
	return path, stored, nil
}

// refreshProjectCount updates the projects gauge from the store.
func (s *Server) refreshProjectCount(ctx context.Context) {
	n, err := s.store.Count(context.WithoutCancel(ctx))
	if err != nil {
		s.logger.Warn(ctx, "count projects for gauge", zap.Error(err))
		return
	}
	s.metrics.SetProjectCount(n)
}

// projectResponse maps a stored project to its wire shape.
func projectResponse(p store.Project) api.Project {
	out := api.Project{
		ID:           p.ID,
		Name:         p.Name,
		CreatedAt:    p.CreatedAt,
		DocumentFile: p.DocumentFile,
		Status:       p.Status,
		Error:        p.Error,
	}
	if len(p.Results) > 0 {
		out.Results = make([]api.ResultRow, 0, len(p.Results))
		for _, r := range p.Results {
			out.Results = append(out.Results, api.ResultRow{
				Product:  r.Product,
				Features: r.Features,
				Size:     r.Size,
				Hours:    r.Hours,
			})
		}
	}
	return out
}

// toStoreResults maps pipeline rows to their stored shape.
func toStoreResults(rows []api.ResultRow) []store.Result {
	out := make([]store.Result, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Result{
			Product:  r.Product,
			Features: r.Features,
			Size:     r.Size,
			Hours:    r.Hours,
		})
	}
	return out
}
