package cases

import (
	"errors"
	"mime"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/internal/auth"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
)

func validDocumentType(s string) bool {
	switch models.DocumentType(s) {
	case models.DocClaims, models.DocNafRental, models.DocCertisRental,
		models.DocAuthorityToAct, models.DocDirectionToPay,
		models.DocSignedAgreement, models.DocOther:
		return true
	}
	return false
}

// Upload Documents godoc
// @Summary      Upload case documents
// @Description  Up to 10 PDF/PNG/JPEG files per request; each becomes a typed document on the case
// @Tags         documents
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        id     path      string  true   "case id (uuid)"
// @Param        type   formData  string  false  "document type (defaults to other)"
// @Param        files  formData  []file  true   "PDF/PNG/JPEG (max 10)"
// @Success      201  {object}  map[string]any  "results: id, key, name, size per file"
// @Failure      400  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/documents [post]
func (h *Handler) UploadDocuments(c *fiber.Ctx) error {
	caseID := c.Params("id")
	actorID, _ := uuid.Parse(auth.MustUserID(c))

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", caseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	docType := c.FormValue("type", string(models.DocOther))
	if !validDocumentType(docType) {
		return fiber.NewError(fiber.StatusBadRequest, "invalid document type")
	}

	form, err := c.MultipartForm()
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "multipart form required; use files[]")
	}
	files := form.File["files[]"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	if len(files) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "files are required (use key: files[])")
	}
	if len(files) > 10 {
		return fiber.NewError(fiber.StatusBadRequest, "max 10 files allowed")
	}

	results := make([]fiber.Map, 0, len(files))

	for _, fh := range files {
		res := fiber.Map{
			"name": fh.Filename,
			"size": fh.Size,
		}

		if fh.Size <= 0 {
			res["error"] = "empty file"
			results = append(results, res)
			continue
		}
		if fh.Size > 10*1024*1024 {
			res["error"] = "max 10MB per file"
			results = append(results, res)
			continue
		}

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = mime.TypeByExtension(filepath.Ext(fh.Filename))
		}
		switch ct {
		case "application/pdf", "image/png", "image/jpeg":
			// ok
		default:
			res["error"] = "only PDF, PNG or JPEG are allowed"
			results = append(results, res)
			continue
		}

		f, err := fh.Open()
		if err != nil {
			res["error"] = "open failed"
			results = append(results, res)
			continue
		}
		defer f.Close()

		key := h.sb.MakeObjectKey(caseID, fh.Filename)

		if err := h.sb.Upload(key, f, ct, fh.Size); err != nil {
			res["error"] = "upload failed"
			results = append(results, res)
			continue
		}

		rec := models.Document{
			CaseID:     cs.ID,
			Name:       fh.Filename,
			Type:       models.DocumentType(docType),
			Key:        key,
			Mime:       ct,
			Size:       int(fh.Size),
			UploadedBy: actorID,
			UploadedAt: time.Now(),
		}
		if err := h.db.Create(&rec).Error; err != nil {
			res["error"] = "database error"
			results = append(results, res)
			continue
		}

		res["id"] = rec.ID
		res["key"] = rec.Key
		results = append(results, res)
	}

	// 201 even if some items failed; per-item "error" tells the caller which.
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"results": results})
}

// List Documents godoc
// @Summary      List case documents
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        id    path  string true  "case id (uuid)"
// @Param        type  query string false "document type filter"
// @Success      200  {array}  models.Document
// @Router       /cases/{id}/documents [get]
func (h *Handler) ListDocuments(c *fiber.Ctx) error {
	caseID := c.Params("id")
	if _, err := uuid.Parse(caseID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	dbq := h.db.Where("case_id = ?", caseID)
	if typ := c.Query("type"); typ != "" {
		if !validDocumentType(typ) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid document type")
		}
		dbq = dbq.Where("type = ?", typ)
	}

	var docs []models.Document
	if err := dbq.Order("uploaded_at DESC").Find(&docs).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if docs == nil {
		docs = []models.Document{}
	}
	return c.JSON(docs)
}

// Signed Document URL godoc
// @Summary      Get signed download URL
// @Description  Short-lived URL against object storage
// @Tags         documents
// @Security     BearerAuth
// @Produce      json
// @Param        docID  path string true "document id (uuid)"
// @Success      200  {object}  map[string]any  "url, expires_in, now"
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{docID}/signed-url [get]
func (h *Handler) SignedDocumentURL(c *fiber.Ctx) error {
	var doc models.Document
	if err := h.db.First(&doc, "id = ?", c.Params("docID")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	url, err := h.sb.SignedURL(doc.Key, 60)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"url": url, "expires_in": 60, "now": time.Now().UTC()})
}

// Delete Document godoc
// @Summary      Delete document
// @Description  Removes the database row and the stored object; storage failures do not block the row delete
// @Tags         documents
// @Security     BearerAuth
// @Param        docID  path string true "document id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Router       /documents/{docID} [delete]
func (h *Handler) DeleteDocument(c *fiber.Ctx) error {
	var doc models.Document
	if err := h.db.First(&doc, "id = ?", c.Params("docID")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	if err := h.db.Delete(&doc).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	// Storage delete is best effort.
	_ = h.sb.Delete(doc.Key)

	return c.JSON(fiber.Map{"ok": true})
}
