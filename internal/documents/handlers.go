package documents

import (
	"context"
	"errors"
	"mime"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/jomosautsem/lex/internal/access"
	"github.com/jomosautsem/lex/internal/auth"
	"github.com/jomosautsem/lex/internal/storage"
	"github.com/jomosautsem/lex/pkg/logger"
	"github.com/jomosautsem/lex/pkg/models"
	"github.com/jomosautsem/lex/pkg/validation"
)

// CaseLookup resolves the case a document belongs to.
type CaseLookup interface {
	Get(ctx context.Context, id string) (models.Case, error)
}

type Handler struct {
	up      *Uploader
	rows    Rows
	cases   CaseLookup
	blobs   storage.BlobStore
	rep     logger.Reporter
	maxSize int64
}

func NewHandler(up *Uploader, rows Rows, cases CaseLookup, blobs storage.BlobStore, maxSize int64, rep logger.Reporter) *Handler {
	if rep == nil {
		rep = logger.Nop{}
	}
	return &Handler{up: up, rows: rows, cases: cases, blobs: blobs, rep: rep, maxSize: maxSize}
}

type uploadForm struct {
	Type string `form:"type" validate:"required,doctype"`
}

// ViewerResponse tells the client how to render a document.
type ViewerResponse struct {
	Document models.Document `json:"document"`
	Viewer   Viewer          `json:"viewer"`
}

// Upload Document godoc
// @Summary      Upload a case document
// @Description  Staff attach one file to a case; the blob is written before the row
// @Tags         documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id    path      string  true  "case id (uuid)"
// @Param        file  formData  file    true  "document (max 10MB)"
// @Param        type  formData  string  true  "document type"
// @Success      201   {object}  models.Document
// @Failure      400   {object}  models.ErrorResponse
// @Failure      404   {object}  models.ErrorResponse
// @Failure      413   {object}  models.ErrorResponse
// @Failure      502   {object}  models.ErrorResponse  "storage failure"
// @Router       /api/cases/{id}/documents [post]
func (h *Handler) Upload(c *fiber.Ctx) error {
	caseID := c.Params("id")
	if _, err := h.cases.Get(c.UserContext(), caseID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Expediente no encontrado")
		}
		return err
	}

	in := uploadForm{Type: c.FormValue("type")}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, ErrNoFile.Error())
	}
	if fh.Size <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "El archivo está vacío")
	}
	if h.maxSize > 0 && fh.Size > h.maxSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "El archivo excede el tamaño máximo")
	}

	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		if byExt := mime.TypeByExtension(filepath.Ext(fh.Filename)); byExt != "" {
			ct = byExt
		}
	}

	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No se pudo leer el archivo")
	}
	defer f.Close()

	doc, err := h.up.Upload(c.UserContext(), caseID, File{Name: fh.Filename, Size: fh.Size, ContentType: ct, Body: f}, models.DocType(in.Type))
	switch {
	case errors.Is(err, ErrStorage):
		return fiber.NewError(fiber.StatusBadGateway, ErrStorage.Error())
	case errors.Is(err, ErrDatabase):
		return fiber.NewError(fiber.StatusInternalServerError, ErrDatabase.Error())
	case errors.Is(err, ErrNoFile):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Expediente no encontrado")
	case err != nil:
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(doc)
}

// Viewer godoc
// @Summary      Document viewer
// @Description  Returns the document with a fresh link and how to render it
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "document id (uuid)"
// @Success      200  {object}  ViewerResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /api/documents/{id}/viewer [get]
func (h *Handler) Viewer(c *fiber.Ctx) error {
	row, err := h.rows.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Documento no encontrado")
		}
		return err
	}
	cs, err := h.cases.Get(c.UserContext(), row.CaseID.String())
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}
	// Not visible and not found look the same.
	if err != nil || !access.CanSeeCase(auth.MustUser(c), cs) {
		return fiber.NewError(fiber.StatusNotFound, "Documento no encontrado")
	}

	doc := row.ToDocument()
	if row.StorageKey != "" {
		if link, err := h.blobs.URL(c.UserContext(), row.StorageKey); err == nil {
			doc.URL = link
		} else {
			h.rep.Report("documents.viewer_url", err, zap.String("document_id", doc.ID))
		}
	}
	return c.JSON(ViewerResponse{Document: doc, Viewer: Classify(doc)})
}
