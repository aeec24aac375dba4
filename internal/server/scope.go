package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/estimator/internal/scopecfg"
	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// handleScopeConfigStatus answers GET /api/scope-config with the
// presence of the scope config file.
func (s *Server) handleScopeConfigStatus(c echo.Context) error {
	filename, err := s.scope.CurrentFilename()
	if errors.Is(err, scopecfg.ErrNoScopeConfig) {
		s.metrics.SetScopeConfigPresent(false)
		return c.JSON(http.StatusOK, api.ScopeConfigStatus{Exists: false})
	}
	if err != nil {
		return s.internalError(c, err)
	}

	s.metrics.SetScopeConfigPresent(true)
	return c.JSON(http.StatusOK, api.ScopeConfigStatus{Exists: true, Filename: filename})
}

// handleUploadScopeConfig answers POST /api/scope-config, replacing the
// current scope config file.
func (s *Server) handleUploadScopeConfig(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		if form := c.Request().MultipartForm; form != nil && len(form.Value["file"]) > 0 {
			return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No file selected"})
		}
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No file provided"})
	}
	if file.Filename == "" {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "No file selected"})
	}
	if !allowedExtension(file.Filename, allowedScopeExts) {
		return c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "File type not allowed"})
	}

	src, err := file.Open()
	if err != nil {
		return s.internalError(c, err)
	}
	defer src.Close()

	stored, err := s.scope.Save(file.Filename, src)
	if err != nil {
		return s.internalError(c, err)
	}
	s.metrics.SetScopeConfigPresent(true)

	s.logger.Info(c.Request().Context(), "scope config uploaded",
		zap.String("filename", stored))
	return c.JSON(http.StatusOK, api.MessageResponse{
		Message:  "Scope config uploaded successfully",
		Filename: stored,
	})
}

// handleDeleteScopeConfig answers DELETE /api/scope-config.
func (s *Server) handleDeleteScopeConfig(c echo.Context) error {
	err := s.scope.Remove()
	if errors.Is(err, scopecfg.ErrNoScopeConfig) {
		return c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "No scope config file found"})
	}
	if err != nil {
		return s.internalError(c, err)
	}
	s.metrics.SetScopeConfigPresent(false)

	s.logger.Info(c.Request().Context(), "scope config deleted")
	return c.JSON(http.StatusOK, api.MessageResponse{Message: "Scope config deleted successfully"})
}
