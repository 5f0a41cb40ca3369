package contacts

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
	"github.com/pbikerescue/bike-rescue-backend/pkg/validation"
)

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

type CreateContactRequest struct {
	Name     string  `json:"name" validate:"required,max=120"`
	Company  string  `json:"company" validate:"max=120"`
	Type     string  `json:"type" validate:"required,oneof=Client Lawyer Insurer Repairer 'Rental Company' 'Service Center' Other"`
	Phone    string  `json:"phone" validate:"max=30"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Address  string  `json:"address" validate:"max=200"`
	Suburb   string  `json:"suburb" validate:"max=60"`
	State    string  `json:"state" validate:"omitempty,austate"`
	Postcode string  `json:"postcode" validate:"max=4"`
	Notes    string  `json:"notes" validate:"max=2000"`
}

type UpdateContactRequest struct {
	Name     *string `json:"name" validate:"omitempty,max=120"`
	Company  *string `json:"company" validate:"omitempty,max=120"`
	Type     *string `json:"type" validate:"omitempty,oneof=Client Lawyer Insurer Repairer 'Rental Company' 'Service Center' Other"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Address  *string `json:"address" validate:"omitempty,max=200"`
	Suburb   *string `json:"suburb" validate:"omitempty,max=60"`
	State    *string `json:"state" validate:"omitempty,austate"`
	Postcode *string `json:"postcode" validate:"omitempty,max=4"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

// Create Contact godoc
// @Summary      Create contact
// @Tags         contacts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateContactRequest  true  "Contact payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "duplicate email"
// @Router       /contacts [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateContactRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	// Blank emails are stored as NULL so the unique index only bites
	// on filled values.
	if in.Email != nil && strings.TrimSpace(*in.Email) == "" {
		in.Email = nil
	}
	if in.Email != nil {
		var cnt int64
		if err := h.db.Model(&models.Contact{}).
			Where("email = ?", *in.Email).
			Count(&cnt).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		if cnt > 0 {
			return fiber.NewError(fiber.StatusConflict, "A contact with this email already exists")
		}
	}

	ct := models.Contact{
		Name:     in.Name,
		Company:  in.Company,
		Type:     models.ContactType(in.Type),
		Phone:    in.Phone,
		Email:    in.Email,
		Address:  in.Address,
		Suburb:   in.Suburb,
		State:    in.State,
		Postcode: in.Postcode,
		Notes:    in.Notes,
	}
	if err := h.db.Create(&ct).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "A contact with this email already exists")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": ct.ID})
}

// Update Contact godoc
// @Summary      Update contact
// @Tags         contacts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                true  "contact id (uuid)"
// @Param        payload  body  UpdateContactRequest  true  "Fields to change"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /contacts/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid contact id")
	}

	var in UpdateContactRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var ct models.Contact
	if err := h.db.First(&ct, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Company != nil {
		updates["company"] = *in.Company
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Email != nil {
		if strings.TrimSpace(*in.Email) == "" {
			updates["email"] = nil
		} else {
			var cnt int64
			if err := h.db.Model(&models.Contact{}).
				Where("email = ? AND id <> ?", *in.Email, id).
				Count(&cnt).Error; err != nil {
				return fiber.ErrInternalServerError
			}
			if cnt > 0 {
				return fiber.NewError(fiber.StatusConflict, "A contact with this email already exists")
			}
			updates["email"] = *in.Email
		}
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if in.Suburb != nil {
		updates["suburb"] = *in.Suburb
	}
	if in.State != nil {
		updates["state"] = *in.State
	}
	if in.Postcode != nil {
		updates["postcode"] = *in.Postcode
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}

	if err := h.db.Model(&ct).Updates(updates).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

// List Contacts godoc
// @Summary      List contacts
// @Description  Filter by type, free-text search over name/company/email/phone, sorted by name
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        type    query string false "contact type"
// @Param        search  query string false "search term"
// @Success      200  {array}  models.Contact
// @Router       /contacts [get]
func (h *Handler) List(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.Contact{})
	if typ := strings.TrimSpace(c.Query("type")); typ != "" {
		if !validContactType(typ) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid type filter")
		}
		dbq = dbq.Where("type = ?", typ)
	}

	var list []models.Contact
	if err := dbq.Order("name ASC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		filtered := list[:0]
		for _, ct := range list {
			email := ""
			if ct.Email != nil {
				email = *ct.Email
			}
			if strings.Contains(strings.ToLower(ct.Name), search) ||
				strings.Contains(strings.ToLower(ct.Company), search) ||
				strings.Contains(strings.ToLower(email), search) ||
				strings.Contains(strings.ToLower(ct.Phone), search) {
				filtered = append(filtered, ct)
			}
		}
		list = filtered
	}

	if list == nil {
		list = []models.Contact{}
	}
	return c.JSON(list)
}

func validContactType(s string) bool {
	switch models.ContactType(s) {
	case models.ContactClient, models.ContactLawyer, models.ContactInsurer,
		models.ContactRepairer, models.ContactRentalCompany,
		models.ContactServiceCenter, models.ContactOther:
		return true
	}
	return false
}

// Get Contact godoc
// @Summary      Contact detail
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "contact id (uuid)"
// @Success      200  {object}  models.Contact
// @Failure      404  {object}  models.ErrorResponse
// @Router       /contacts/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	var ct models.Contact
	if err := h.db.First(&ct, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(ct)
}

func (h *Handler) listByType(c *fiber.Ctx, typ models.ContactType) error {
	var list []models.Contact
	if err := h.db.Where("type = ?", typ).
		Order("name ASC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if list == nil {
		list = []models.Contact{}
	}
	return c.JSON(list)
}

// Lawyers godoc
// @Summary      List lawyer contacts
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Contact
// @Router       /contacts/lawyers [get]
func (h *Handler) Lawyers(c *fiber.Ctx) error {
	return h.listByType(c, models.ContactLawyer)
}

// RentalCompanies godoc
// @Summary      List rental company contacts
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Contact
// @Router       /contacts/rental-companies [get]
func (h *Handler) RentalCompanies(c *fiber.Ctx) error {
	return h.listByType(c, models.ContactRentalCompany)
}

// Insurers godoc
// @Summary      List insurer contacts
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Contact
// @Router       /contacts/insurers [get]
func (h *Handler) Insurers(c *fiber.Ctx) error {
	return h.listByType(c, models.ContactInsurer)
}

// Remove Contact godoc
// @Summary      Delete contact
// @Description  Admin/developer only; refused while workspaces or cases still reference the contact
// @Tags         contacts
// @Security     BearerAuth
// @Param        id   path string true "contact id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      403  {object}  models.ErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /contacts/{id} [delete]
func (h *Handler) Remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid contact id")
	}

	var ct models.Contact
	if err := h.db.First(&ct, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var wsCount int64
	if err := h.db.Model(&models.Workspace{}).
		Where("contact_id = ?", id).
		Count(&wsCount).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if wsCount > 0 {
		return fiber.NewError(fiber.StatusConflict, "Cannot delete contact that has associated workspaces")
	}

	var caseCount int64
	if err := h.db.Model(&models.Case{}).
		Where("assigned_lawyer_id = ? OR assigned_rental_company_id = ?", id, id).
		Count(&caseCount).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if caseCount > 0 {
		return fiber.NewError(fiber.StatusConflict, "Cannot delete contact that is assigned to cases")
	}

	if err := h.db.Delete(&ct).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

type ContactStats struct {
	Total           int            `json:"total"`
	ByType          map[string]int `json:"byType"`
	Lawyers         int            `json:"lawyers"`
	RentalCompanies int            `json:"rentalCompanies"`
	Insurers        int            `json:"insurers"`
	Repairers       int            `json:"repairers"`
	Others          int            `json:"others"`
}

// Contact Stats godoc
// @Summary      Contact statistics
// @Tags         contacts
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  ContactStats
// @Router       /contacts/stats [get]
func (h *Handler) Stats(c *fiber.Ctx) error {
	var list []models.Contact
	if err := h.db.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(ReduceContactStats(list))
}

// ReduceContactStats buckets contacts by type. Everything outside the four
// named buckets lands in Others, Client and Service Center included.
func ReduceContactStats(list []models.Contact) ContactStats {
	out := ContactStats{Total: len(list), ByType: map[string]int{}}
	for _, ct := range list {
		out.ByType[string(ct.Type)]++
		switch ct.Type {
		case models.ContactLawyer:
			out.Lawyers++
		case models.ContactRentalCompany:
			out.RentalCompanies++
		case models.ContactInsurer:
			out.Insurers++
		case models.ContactRepairer:
			out.Repairers++
		default:
			out.Others++
		}
	}
	return out
}
