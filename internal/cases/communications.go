package cases

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/internal/auth"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
	"github.com/pbikerescue/bike-rescue-backend/pkg/validation"
)

type CreateCommunicationRequest struct {
	Type         string `json:"type" validate:"required,oneof=Email Phone SMS Letter Meeting Other"`
	Direction    string `json:"direction" validate:"required,oneof=Inbound Outbound"`
	Subject      string `json:"subject" validate:"max=200"`
	Content      string `json:"content" validate:"required,max=10000"`
	ContactName  string `json:"contact_name" validate:"max=120"`
	ContactEmail string `json:"contact_email" validate:"omitempty,email"`
	ContactPhone string `json:"contact_phone" validate:"max=30"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low normal high urgent"`
}

// Log Communication godoc
// @Summary      Record a communication on a case
// @Tags         communications
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                      true  "case id (uuid)"
// @Param        payload  body  CreateCommunicationRequest  true  "Communication payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/communications [post]
func (h *Handler) CreateCommunication(c *fiber.Ctx) error {
	caseID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	var in CreateCommunicationRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var cnt int64
	if err := h.db.Model(&models.Case{}).Where("id = ?", caseID).Count(&cnt).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if cnt == 0 {
		return fiber.ErrNotFound
	}

	actorID, _ := uuid.Parse(auth.MustUserID(c))

	priority := in.Priority
	if priority == "" {
		priority = "normal"
	}

	log := models.CommunicationLog{
		CaseID:       caseID,
		Type:         models.CommType(in.Type),
		Direction:    models.CommDirection(in.Direction),
		Subject:      in.Subject,
		Content:      in.Content,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Priority:     priority,
		CreatedBy:    actorID,
	}
	if err := h.db.Create(&log).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": log.ID})
}

// List Communications godoc
// @Summary      List communications on a case
// @Tags         communications
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {array}  models.CommunicationLog
// @Router       /cases/{id}/communications [get]
func (h *Handler) ListCommunications(c *fiber.Ctx) error {
	caseID := c.Params("id")
	if _, err := uuid.Parse(caseID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	var logs []models.CommunicationLog
	if err := h.db.Where("case_id = ?", caseID).
		Order("created_at DESC").Find(&logs).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if logs == nil {
		logs = []models.CommunicationLog{}
	}
	return c.JSON(logs)
}
