package handler

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/histopathai/print-resize-service/internal/domain/model"
	"github.com/histopathai/print-resize-service/internal/domain/vobj"
	"github.com/histopathai/print-resize-service/internal/service"
	"github.com/histopathai/print-resize-service/pkg/errors"
)

const (
	DownloadArchive = "archive"
	DownloadLedger  = "ledger"
)

// BatchService is the part of the orchestrator the HTTP surface drives.
type BatchService interface {
	RunUploads(ctx context.Context, batchID string, cfg model.BatchConfig, uploads []service.Upload) (*service.BatchResult, error)
	Get(ctx context.Context, id string) (*model.Batch, error)
	OpenArtifact(ctx context.Context, key string) (io.ReadCloser, error)
}

// Defaults fill form fields the client left out.
type Defaults struct {
	Mode     string
	DPI      int
	MaxWidth int
	Format   string
	Prefix   string
}

type Limits struct {
	MaxUploadBytes int64
	MaxFiles       int
}

type Handler struct {
	batches  BatchService
	defaults Defaults
	limits   Limits
	logger   *slog.Logger
}

func NewHandler(batches BatchService, defaults Defaults, limits Limits, logger *slog.Logger) *Handler {
	return &Handler{
		batches:  batches,
		defaults: defaults,
		limits:   limits,
		logger:   logger,
	}
}

// CreateBatch converts the uploaded files in one request. With
// ?download=archive or ?download=ledger the artifact is streamed back
// instead of the batch summary.
func (h *Handler) CreateBatch(c *gin.Context) {
	download := c.Query("download")
	if download != "" && download != DownloadArchive && download != DownloadLedger {
		h.respondError(c, errors.NewInvalidInputError("download must be archive or ledger").
			WithContext("download", download))
		return
	}

	if h.limits.MaxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.limits.MaxUploadBytes)
	}

	if _, err := c.MultipartForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "request body too large",
				"type":  errors.ErrorTypeInvalidInput,
				"limit": tooLarge.Limit,
			})
			return
		}
		h.respondError(c, errors.WrapInvalidInputError(err, "failed to parse multipart form"))
		return
	}

	var form batchForm
	if err := c.ShouldBindWith(&form, binding.FormMultipart); err != nil {
		h.respondError(c, errors.WrapInvalidInputError(err, "failed to read batch form"))
		return
	}

	cfg, err := h.parseConfig(form)
	if err != nil {
		h.respondError(c, err)
		return
	}

	uploads, err := h.readUploads(form.Files)
	if err != nil {
		h.respondError(c, err)
		return
	}

	// Batch IDs are always minted server-side so a client cannot overwrite
	// another batch's artifacts.
	result, err := h.batches.RunUploads(c.Request.Context(), "", cfg, uploads)
	if err != nil {
		h.respondError(c, err)
		return
	}

	switch download {
	case DownloadArchive:
		attachment(c, path.Base(result.Batch.ArchiveKey), vobj.ContentTypeApplicationZip, result.Archive)
	case DownloadLedger:
		attachment(c, path.Base(result.Batch.LedgerKey), vobj.ContentTypeApplicationXLSX, result.Ledger)
	default:
		c.JSON(http.StatusCreated, gin.H{"batch": result.Batch})
	}
}

// GetBatch returns a persisted batch record or one of its artifacts.
func (h *Handler) GetBatch(c *gin.Context) {
	batch, err := h.batches.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	var key string
	var contentType vobj.ContentType
	switch c.Query("download") {
	case "":
		c.JSON(http.StatusOK, gin.H{"batch": batch})
		return
	case DownloadArchive:
		key, contentType = batch.ArchiveKey, vobj.ContentTypeApplicationZip
	case DownloadLedger:
		key, contentType = batch.LedgerKey, vobj.ContentTypeApplicationXLSX
	default:
		h.respondError(c, errors.NewInvalidInputError("download must be archive or ledger"))
		return
	}

	if key == "" {
		h.respondError(c, errors.NewNotFoundError("artifact").
			WithContext("batch_id", batch.ID).
			WithContext("status", batch.Status))
		return
	}

	reader, err := h.batches.OpenArtifact(c.Request.Context(), key)
	if err != nil {
		h.respondError(c, err)
		return
	}
	defer reader.Close()

	c.DataFromReader(http.StatusOK, -1, contentType.String(), reader, map[string]string{
		"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, path.Base(key)),
	})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// batchForm is the multipart body of POST /batches. Fields the client leaves
// out stay nil and take the configured defaults.
type batchForm struct {
	Mode     *string                 `form:"mode"`
	DPI      *int                    `form:"dpi"`
	WidthCm  *float64                `form:"width_cm"`
	HeightCm *float64                `form:"height_cm"`
	MaxWidth *int                    `form:"max_width"`
	Format   *string                 `form:"format"`
	Prefix   *string                 `form:"prefix"`
	Files    []*multipart.FileHeader `form:"files"`
}

func (h *Handler) parseConfig(form batchForm) (model.BatchConfig, error) {
	var cfg model.BatchConfig

	mode, err := model.ParseSizeMode(orDefault(form.Mode, h.defaults.Mode))
	if err != nil {
		return cfg, err
	}
	format, err := model.ParseOutputFormat(orDefault(form.Format, h.defaults.Format))
	if err != nil {
		return cfg, err
	}

	cfg.Mode = mode
	cfg.Inputs = model.OperatorInputs{
		DPI:            h.defaults.DPI,
		MaxOutputWidth: h.defaults.MaxWidth,
		Format:         format,
		Prefix:         h.defaults.Prefix,
	}
	if form.DPI != nil {
		cfg.Inputs.DPI = *form.DPI
	}
	if form.MaxWidth != nil {
		cfg.Inputs.MaxOutputWidth = *form.MaxWidth
	}
	if form.WidthCm != nil {
		cfg.Inputs.WidthCm = *form.WidthCm
	}
	if form.HeightCm != nil {
		cfg.Inputs.HeightCm = *form.HeightCm
	}
	// An explicitly empty prefix is rejected downstream rather than defaulted.
	if form.Prefix != nil {
		cfg.Inputs.Prefix = *form.Prefix
	}
	return cfg, nil
}

func orDefault(v *string, fallback string) string {
	if v != nil && strings.TrimSpace(*v) != "" {
		return *v
	}
	return fallback
}

func (h *Handler) readUploads(files []*multipart.FileHeader) ([]service.Upload, error) {
	if len(files) == 0 {
		return nil, errors.NewInvalidInputError("at least one file is required").
			WithContext("field", "files")
	}
	if h.limits.MaxFiles > 0 && len(files) > h.limits.MaxFiles {
		return nil, errors.NewInvalidInputError("too many files").
			WithContext("files", len(files)).
			WithContext("limit", h.limits.MaxFiles)
	}

	uploads := make([]service.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, errors.WrapInvalidInputError(err, "failed to open uploaded file").
				WithContext("filename", fh.Filename)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.WrapInvalidInputError(err, "failed to read uploaded file").
				WithContext("filename", fh.Filename)
		}
		uploads = append(uploads, service.Upload{Filename: fh.Filename, Data: data})
	}
	return uploads, nil
}

func attachment(c *gin.Context, filename string, contentType vobj.ContentType, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType.String(), data)
}

// StatusCode maps an error type onto the HTTP status returned to clients.
func StatusCode(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidInput, errors.ErrorTypeValidation:
		return http.StatusBadRequest
	case errors.ErrorTypeDecode, errors.ErrorTypeEncode:
		return http.StatusUnprocessableEntity
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeCancellation:
		return 499
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) respondError(c *gin.Context, err error) {
	status := StatusCode(err)
	body := gin.H{
		"error": err.Error(),
		"type":  errors.TypeOf(err),
	}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		body["error"] = appErr.Message
		if len(appErr.Context) > 0 {
			body["context"] = appErr.Context
		}
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.FullPath(), "status", status, "error", err)
		body["error"] = "internal error"
		delete(body, "context")
	} else {
		h.logger.Warn("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}

	c.JSON(status, body)
}
