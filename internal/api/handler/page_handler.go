package handler

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	IndexPage     = "index.html"
	DashboardPage = "dashboard.html"
)

// PageHandler serves the two HTML pages. Files are read per request, so a
// missing asset yields 404 rather than a startup failure.
type PageHandler struct {
	fsys fs.FS
}

func NewPageHandler(fsys fs.FS) *PageHandler {
	return &PageHandler{fsys: fsys}
}

func (h *PageHandler) Index(c echo.Context) error {
	return h.serve(c, IndexPage, "Frontend not found. Please ensure static/index.html exists.")
}

func (h *PageHandler) Dashboard(c echo.Context) error {
	return h.serve(c, DashboardPage, "Dashboard not found. Please ensure static/dashboard.html exists.")
}

func (h *PageHandler) serve(c echo.Context, name, missing string) error {
	data, err := fs.ReadFile(h.fsys, name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return echo.NewHTTPError(http.StatusNotFound, missing)
		}
		return err
	}
	return c.HTMLBlob(http.StatusOK, data)
}
