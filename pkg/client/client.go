// Package client is the Go client for the estimator REST API.
//
// The console and the estid CLI both talk to estimatord through this
// client, so the request shapes and error handling live in one place.
// Methods surface server error messages verbatim: a failed request
// returns the {"error": ...} body as the error string.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/estimator/pkg/api"
)

// Client calls the estimator REST API.
//
// The underlying http.Client carries no timeout: project creation runs
// the estimation pipeline synchronously and can legitimately take
// minutes. Callers bound individual requests through ctx.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the daemon at baseURL, e.g.
// "http://localhost:8080".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// BaseURL returns the daemon address this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks that the daemon is reachable.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.getJSON(ctx, "/api/health", &resp)
	return resp, err
}

// Models fetches the estimation provider's model listing.
func (c *Client) Models(ctx context.Context) (api.ModelsResponse, error) {
	var resp api.ModelsResponse
	err := c.getJSON(ctx, "/api/models", &resp)
	return resp, err
}

// ListProjects fetches all projects, newest first, in the summary
// shape (no results).
func (c *Client) ListProjects(ctx context.Context) ([]api.Project, error) {
	var projects []api.Project
	if err := c.getJSON(ctx, "/api/projects", &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches one project including its results.
func (c *Client) GetProject(ctx context.Context, id string) (api.Project, error) {
	var p api.Project
	err := c.getJSON(ctx, "/api/projects/"+id, &p)
	return p, err
}

// CreateProject uploads the document at docPath and runs the
// estimation pipeline. It blocks until the pipeline finishes and
// returns the completed project with its results.
func (c *Client) CreateProject(ctx context.Context, name, docPath string) (api.Project, error) {
	var p api.Project

	doc, err := os.Open(docPath)
	if err != nil {
		return p, fmt.Errorf("open document: %w", err)
	}
	defer doc.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("project_name", name); err != nil {
		return p, fmt.Errorf("build form: %w", err)
	}
	part, err := form.CreateFormFile("file", filepath.Base(docPath))
	if err != nil {
		return p, fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, doc); err != nil {
		return p, fmt.Errorf("read document: %w", err)
	}
	if err := form.Close(); err != nil {
		return p, fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/projects", &buf)
	if err != nil {
		return p, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	err = c.doJSON(req, &p)
	return p, err
}

// DeleteProject removes a project and its stored document.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/projects/"+id, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doJSON(req, nil)
}

// ScopeConfigStatus reports whether a scope config file is uploaded.
func (c *Client) ScopeConfigStatus(ctx context.Context) (api.ScopeConfigStatus, error) {
	var status api.ScopeConfigStatus
	err := c.getJSON(ctx, "/api/scope-config", &status)
	return status, err
}

// UploadScopeConfig uploads the spreadsheet at path as the active
// scope config file, replacing any previous one. It returns the stored
// filename.
func (c *Client) UploadScopeConfig(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open scope config: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read scope config: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/scope-config", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	var resp api.MessageResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", err
	}
	return resp.Filename, nil
}

// DeleteScopeConfig removes the active scope config file.
func (c *Client) DeleteScopeConfig(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/api/scope-config", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doJSON(req, nil)
}

// DownloadCSV fetches a project's results as CSV into destDir and
// returns the written path. The filename comes from the server's
// Content-Disposition header, falling back to "project_results.csv".
//
// The file is written through a temp file in destDir and renamed into
// place, so a failed download leaves nothing behind.
func (c *Client) DownloadCSV(ctx context.Context, id, destDir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/projects/"+id+"/download-csv", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}

	filename := "project_results.csv"
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		if name := filepath.Base(params["filename"]); name != "" && name != "." && name != string(filepath.Separator) {
			filename = name
		}
	}

	tmp, err := os.CreateTemp(destDir, ".estimator-download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write csv: %w", err)
	}

	dest := filepath.Join(destDir, filename)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move csv into place: %w", err)
	}
	return dest, nil
}

// getJSON performs a GET and decodes the 200 body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.doJSON(req, out)
}

// doJSON executes req, maps non-2xx responses to errors, and decodes
// the body into out when out is non-nil.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError turns a non-2xx response into an error carrying the
// server's message when the body is the usual {"error": ...} shape.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return fmt.Errorf("%s", e.Error)
	}
	return fmt.Errorf("unexpected status %d", resp.StatusCode)
}
