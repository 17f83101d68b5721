package exportapi

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// DefaultBasePath is where the export endpoints are mounted when Config.BasePath is empty.
const DefaultBasePath = "/reports/export"

// WarningHeader carries the reason a request produced no file.
const WarningHeader = "X-Export-Warning"

// Exporter runs a single export.
type Exporter interface {
	Export(ctx context.Context, req export.ExportRequest) (*export.ExportFile, error)
}

// Config configures the shared export API controller.
type Config struct {
	Exporter       Exporter
	Store          export.FileStore
	History        export.HistoryReader
	BasePath       string
	Logger         export.Logger
	RequestDecoder RequestDecoder
	MaxBodyBytes   int64
}

// Controller exposes export API handlers for multiple transports.
type Controller struct {
	exporter       Exporter
	store          export.FileStore
	history        export.HistoryReader
	basePath       string
	logger         export.Logger
	requestDecoder RequestDecoder
}

// NewController creates a shared export API controller.
func NewController(cfg Config) *Controller {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		basePath = DefaultBasePath
	}
	logger := cfg.Logger
	if logger == nil {
		logger = export.NopLogger{}
	}
	decoder := cfg.RequestDecoder
	if decoder == nil {
		decoder = JSONRequestDecoder{MaxBodyBytes: cfg.MaxBodyBytes}
	}
	return &Controller{
		exporter:       cfg.Exporter,
		store:          cfg.Store,
		history:        cfg.History,
		basePath:       basePath,
		logger:         logger,
		requestDecoder: decoder,
	}
}

// BasePath returns the configured base path.
func (c *Controller) BasePath() string {
	if c == nil {
		return ""
	}
	return c.basePath
}

// Serve routes export endpoints:
//
//	POST   {base}              run an export and stream the file
//	GET    {base}              list recorded export outcomes
//	GET    {base}/{id}         download a stored export
//	GET    {base}/{id}/status  latest recorded outcome of an export
//	DELETE {base}/{id}         drop a stored export
func (c *Controller) Serve(req Request, res Response) {
	if res == nil {
		return
	}
	if c == nil {
		WriteError(res, export.NewError(export.KindInternal, "handler is nil", nil))
		return
	}
	if req == nil {
		WriteError(res, export.NewError(export.KindInternal, "request is nil", nil))
		return
	}
	if !strings.HasPrefix(req.Path(), c.basePath) {
		writeNotFound(res)
		return
	}

	pathSuffix := strings.Trim(strings.TrimPrefix(req.Path(), c.basePath), "/")
	parts := []string{}
	if pathSuffix != "" {
		parts = strings.Split(pathSuffix, "/")
	}

	switch {
	case req.Method() == http.MethodPost && len(parts) == 0:
		c.handlePost(req, res)
	case req.Method() == http.MethodGet && len(parts) == 0:
		c.handleHistory(req, res)
	case req.Method() == http.MethodGet && len(parts) == 2 && parts[1] == "status":
		c.handleStatus(req, res, parts[0])
	case req.Method() == http.MethodGet && len(parts) == 1:
		c.handleDownload(req, res, parts[0])
	case req.Method() == http.MethodDelete && len(parts) == 1:
		c.handleDelete(req, res, parts[0])
	case len(parts) > 2 || (len(parts) == 2 && parts[1] != "status"):
		writeNotFound(res)
	default:
		switch len(parts) {
		case 0:
			res.SetHeader("Allow", "GET,POST")
		case 1:
			res.SetHeader("Allow", "GET,DELETE")
		default:
			res.SetHeader("Allow", "GET")
		}
		res.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (c *Controller) handlePost(req Request, res Response) {
	if c.exporter == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "exporter not configured", nil))
		return
	}
	if c.requestDecoder == nil {
		WriteError(res, export.NewError(export.KindInternal, "request decoder not configured", nil))
		return
	}
	decoded, err := c.requestDecoder.Decode(req)
	if err != nil {
		WriteError(res, err)
		return
	}

	metadataOnly := wantsJSON(req.Header("Accept"))
	if metadataOnly && c.store == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export store not configured", nil))
		return
	}

	file, err := c.exporter.Export(req.Context(), decoded)
	if err != nil {
		WriteError(res, err)
		return
	}
	if file == nil {
		res.SetHeader(WarningHeader, noOutputReason(decoded))
		res.WriteHeader(http.StatusNoContent)
		return
	}

	if c.store != nil {
		if err := c.store.Put(req.Context(), file); err != nil {
			c.logger.Errorf("export %s store failed: %v", file.ID, err)
			if metadataOnly {
				WriteError(res, err)
				return
			}
		}
	}

	if metadataOnly {
		writeJSON(res, http.StatusCreated, ExportResponse{
			ID:          file.ID,
			Format:      string(file.Format),
			Filename:    file.Filename,
			ContentType: file.ContentType,
			Rows:        file.Rows,
			Size:        humanize.Bytes(uint64(len(file.Data))),
			Bytes:       len(file.Data),
			DownloadURL: c.downloadURL(file.ID),
		})
		return
	}
	c.writeFile(res, file)
}

func (c *Controller) handleDownload(req Request, res Response, exportID string) {
	if c.store == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export store not configured", nil))
		return
	}
	file, err := c.store.Get(req.Context(), exportID)
	if err != nil {
		WriteError(res, err)
		return
	}
	c.writeFile(res, file)
}

func (c *Controller) handleHistory(req Request, res Response) {
	if c.history == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export history not configured", nil))
		return
	}
	filter, err := historyFilter(req)
	if err != nil {
		WriteError(res, err)
		return
	}
	entries, err := c.history.List(req.Context(), filter)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, HistoryResponse{Entries: entries})
}

func (c *Controller) handleStatus(req Request, res Response, exportID string) {
	if c.history == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export history not configured", nil))
		return
	}
	entry, err := c.history.Status(req.Context(), exportID)
	if err != nil {
		WriteError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, entry)
}

func historyFilter(req Request) (export.HistoryFilter, error) {
	filter := export.HistoryFilter{
		Format: export.Format(strings.TrimSpace(req.Query("format"))),
		Event:  strings.TrimSpace(req.Query("event")),
	}
	if raw := strings.TrimSpace(req.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return export.HistoryFilter{}, export.NewError(export.KindValidation, "limit must be a non-negative integer", err)
		}
		filter.Limit = limit
	}
	if raw := strings.TrimSpace(req.Query("since")); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return export.HistoryFilter{}, export.NewError(export.KindValidation, "since must be RFC3339", err)
		}
		filter.Since = since
	}
	return filter, nil
}

func (c *Controller) handleDelete(req Request, res Response, exportID string) {
	if c.store == nil {
		WriteError(res, export.NewError(export.KindNotImpl, "export store not configured", nil))
		return
	}
	if err := c.store.Delete(req.Context(), exportID); err != nil {
		WriteError(res, err)
		return
	}
	res.WriteHeader(http.StatusNoContent)
}

func (c *Controller) writeFile(res Response, file *export.ExportFile) {
	setDownloadHeaders(res, file.ID, file.Filename, file.ContentType)
	res.SetHeader("Content-Length", fmt.Sprintf("%d", len(file.Data)))
	res.WriteHeader(http.StatusOK)
	if _, err := res.Write(file.Data); err != nil {
		c.logger.Errorf("export %s write failed: %v", file.ID, err)
	}
}

func (c *Controller) downloadURL(exportID string) string {
	if c.store == nil {
		return ""
	}
	return c.basePath + "/" + exportID
}

func noOutputReason(req export.ExportRequest) string {
	if len(req.Records) == 0 {
		return "no records to export"
	}
	return fmt.Sprintf("unknown format %q", req.Format)
}

func wantsJSON(accept string) bool {
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "application/json" {
			return true
		}
	}
	return false
}

func writeNotFound(res Response) {
	writeJSON(res, http.StatusNotFound, ErrorResponse{
		Error: ErrorBody{Message: "not found", Code: "not_found"},
	})
}

// WriteError writes err as a JSON error body with a status derived from its
// go-errors category.
func WriteError(res Response, err error) {
	if err == nil {
		res.WriteHeader(http.StatusNoContent)
		return
	}
	ge := export.AsGoError(err)
	status := statusForError(ge)
	payload := ErrorResponse{
		Error: ErrorBody{
			Message: ge.Message,
			Code:    ge.TextCode,
		},
	}
	writeJSON(res, status, payload)
}

func writeJSON(res Response, status int, payload any) {
	_ = res.WriteJSON(status, payload)
}

func statusForError(err *errorslib.Error) int {
	if err == nil {
		return http.StatusInternalServerError
	}
	if err.TextCode == "not_implemented" {
		return http.StatusNotImplemented
	}
	switch err.Category {
	case errorslib.CategoryValidation:
		return http.StatusBadRequest
	case errorslib.CategoryNotFound:
		return http.StatusNotFound
	case errorslib.CategoryOperation:
		if err.TextCode == "canceled" {
			return http.StatusConflict
		}
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func setDownloadHeaders(res Response, exportID, filename, contentType string) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res.SetHeader("Content-Type", contentType)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	res.SetHeader("Content-Disposition", disposition)
	if exportID != "" {
		res.SetHeader("X-Export-Id", exportID)
	}
}
