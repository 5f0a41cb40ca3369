package workspaces

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/internal/auth"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
	"github.com/pbikerescue/bike-rescue-backend/pkg/validation"
)

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

type CreateWorkspaceRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	ContactID string `json:"contact_id" validate:"required,uuid"`
	Type      string `json:"type" validate:"max=40"`
	Active    *bool  `json:"active"`
}

type UpdateWorkspaceRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=120"`
	ContactID *string `json:"contact_id" validate:"omitempty,uuid"`
	Type      *string `json:"type" validate:"omitempty,max=40"`
	Active    *bool   `json:"active"`
}

// WorkspaceView is a workspace with its partner contact denormalized in.
type WorkspaceView struct {
	models.Workspace
	ContactName string `json:"contact_name"`
	ContactType string `json:"contact_type"`
}

// Create Workspace godoc
// @Summary      Create workspace
// @Description  Admin/developer only; the partner contact must already exist
// @Tags         workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateWorkspaceRequest  true  "Workspace payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse  "contact not found"
// @Router       /workspaces [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateWorkspaceRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	contactID, _ := uuid.Parse(in.ContactID)

	var contact models.Contact
	if err := h.db.First(&contact, "id = ?", contactID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Contact not found")
		}
		return fiber.ErrInternalServerError
	}

	actorID, _ := uuid.Parse(auth.MustUserID(c))

	active := true
	if in.Active != nil {
		active = *in.Active
	}

	ws := models.Workspace{
		Name:      in.Name,
		ContactID: contactID,
		Type:      in.Type,
		Active:    active,
		CreatedBy: actorID,
	}
	if err := h.db.Create(&ws).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": ws.ID})
}

// Update Workspace godoc
// @Summary      Update workspace
// @Tags         workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                  true  "workspace id (uuid)"
// @Param        payload  body  UpdateWorkspaceRequest  true  "Fields to change"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Router       /workspaces/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	var in UpdateWorkspaceRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var ws models.Workspace
	if err := h.db.First(&ws, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	updates := map[string]any{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.ContactID != nil {
		contactID, _ := uuid.Parse(*in.ContactID)
		var cnt int64
		if err := h.db.Model(&models.Contact{}).
			Where("id = ?", contactID).
			Count(&cnt).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		if cnt == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Contact not found")
		}
		updates["contact_id"] = contactID
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.Active != nil {
		updates["active"] = *in.Active
	}

	if err := h.db.Model(&ws).Updates(updates).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

// List Workspaces godoc
// @Summary      List workspaces
// @Description  Optional active filter; each row carries the partner contact's name and type, sorted by name
// @Tags         workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        active  query bool false "filter on active flag"
// @Success      200  {array}  WorkspaceView
// @Router       /workspaces [get]
func (h *Handler) List(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.Workspace{})
	if active := strings.TrimSpace(c.Query("active")); active != "" {
		switch active {
		case "true":
			dbq = dbq.Where("active = ?", true)
		case "false":
			dbq = dbq.Where("active = ?", false)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "invalid active filter")
		}
	}

	var list []models.Workspace
	if err := dbq.Order("name ASC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	views, err := h.enrich(list)
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(views)
}

func (h *Handler) enrich(list []models.Workspace) ([]WorkspaceView, error) {
	views := make([]WorkspaceView, 0, len(list))
	if len(list) == 0 {
		return views, nil
	}

	contactIDs := make([]uuid.UUID, 0, len(list))
	for _, ws := range list {
		contactIDs = append(contactIDs, ws.ContactID)
	}
	var contacts []models.Contact
	if err := h.db.Where("id IN ?", contactIDs).Find(&contacts).Error; err != nil {
		return nil, err
	}
	contactByID := map[uuid.UUID]models.Contact{}
	for _, ct := range contacts {
		contactByID[ct.ID] = ct
	}

	for _, ws := range list {
		view := WorkspaceView{Workspace: ws, ContactName: "Unknown", ContactType: "Unknown"}
		if ct, ok := contactByID[ws.ContactID]; ok {
			view.ContactName = ct.Name
			view.ContactType = string(ct.Type)
		}
		views = append(views, view)
	}
	return views, nil
}

// Get Workspace godoc
// @Summary      Workspace detail
// @Tags         workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "workspace id (uuid)"
// @Success      200  {object}  WorkspaceView
// @Failure      404  {object}  models.ErrorResponse
// @Router       /workspaces/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	var ws models.Workspace
	if err := h.db.First(&ws, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	views, err := h.enrich([]models.Workspace{ws})
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(views[0])
}

// Mine godoc
// @Summary      Workspaces visible to the caller
// @Description  Admin/developer see every active workspace; everyone else sees only their assigned one
// @Tags         workspaces
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Workspace
// @Router       /workspaces/mine [get]
func (h *Handler) Mine(c *fiber.Ctx) error {
	role := auth.MustRole(c)
	if role == string(models.RoleAdmin) || role == string(models.RoleDeveloper) {
		var list []models.Workspace
		if err := h.db.Where("active = ?", true).
			Order("name ASC").Find(&list).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		if list == nil {
			list = []models.Workspace{}
		}
		return c.JSON(list)
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", auth.MustUserID(c)).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if user.WorkspaceID == nil {
		return c.JSON([]models.Workspace{})
	}
	var ws models.Workspace
	if err := h.db.First(&ws, "id = ?", *user.WorkspaceID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON([]models.Workspace{})
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON([]models.Workspace{ws})
}

// Remove Workspace godoc
// @Summary      Delete workspace
// @Description  Admin/developer only; refused while cases or users are still attached
// @Tags         workspaces
// @Security     BearerAuth
// @Param        id   path string true "workspace id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /workspaces/{id} [delete]
func (h *Handler) Remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	var ws models.Workspace
	if err := h.db.First(&ws, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var caseCount int64
	if err := h.db.Model(&models.Case{}).
		Where("workspace_id = ?", id).
		Count(&caseCount).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if caseCount > 0 {
		return fiber.NewError(fiber.StatusConflict,
			fmt.Sprintf("Cannot delete workspace with %d associated cases", caseCount))
	}

	var userCount int64
	if err := h.db.Model(&models.User{}).
		Where("workspace_id = ?", id).
		Count(&userCount).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if userCount > 0 {
		return fiber.NewError(fiber.StatusConflict,
			fmt.Sprintf("Cannot delete workspace with %d associated users", userCount))
	}

	if err := h.db.Delete(&ws).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

type AssignUserRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

// AssignUser godoc
// @Summary      Attach a user to a workspace
// @Tags         workspaces
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "workspace id (uuid)"
// @Param        payload  body  AssignUserRequest  true  "User to attach"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Router       /workspaces/{id}/users [post]
func (h *Handler) AssignUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
	}

	var in AssignUserRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var cnt int64
	if err := h.db.Model(&models.Workspace{}).Where("id = ?", id).Count(&cnt).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if cnt == 0 {
		return fiber.ErrNotFound
	}

	res := h.db.Model(&models.User{}).
		Where("id = ?", in.UserID).
		Update("workspace_id", id)
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// RemoveUser godoc
// @Summary      Detach a user from their workspace
// @Tags         workspaces
// @Security     BearerAuth
// @Param        id      path string true "workspace id (uuid)"
// @Param        userId  path string true "user id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Router       /workspaces/{id}/users/{userId} [delete]
func (h *Handler) RemoveUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if _, err := uuid.Parse(userID); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid user id")
	}

	res := h.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("workspace_id", nil)
	if res.Error != nil {
		return fiber.ErrInternalServerError
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	return c.JSON(fiber.Map{"ok": true})
}

type WorkspaceStat struct {
	WorkspaceID      uuid.UUID `json:"workspaceId"`
	WorkspaceName    string    `json:"workspaceName,omitempty"`
	Active           bool      `json:"active"`
	TotalCases       int       `json:"totalCases"`
	TotalUsers       int       `json:"totalUsers"`
	TotalInvoiced    float64   `json:"totalInvoiced"`
	TotalPaid        float64   `json:"totalPaid"`
	TotalOutstanding float64   `json:"totalOutstanding"`
}

type OverallWorkspaceStats struct {
	TotalWorkspaces  int             `json:"totalWorkspaces"`
	ActiveWorkspaces int             `json:"activeWorkspaces"`
	WorkspaceStats   []WorkspaceStat `json:"workspaceStats"`
}

// Workspace Stats godoc
// @Summary      Workspace statistics
// @Description  With workspace_id: that workspace's case/user/financial rollup. Without: per-workspace rollups plus overall counts
// @Tags         workspaces
// @Security     BearerAuth
// @Produce      json
// @Param        workspace_id  query string false "workspace id (uuid)"
// @Success      200  {object}  OverallWorkspaceStats
// @Router       /workspaces/stats [get]
func (h *Handler) Stats(c *fiber.Ctx) error {
	if wsID := strings.TrimSpace(c.Query("workspace_id")); wsID != "" {
		id, err := uuid.Parse(wsID)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
		}
		var ws models.Workspace
		if err := h.db.First(&ws, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.ErrNotFound
			}
			return fiber.ErrInternalServerError
		}
		stat, err := h.statFor(ws)
		if err != nil {
			return fiber.ErrInternalServerError
		}
		return c.JSON(stat)
	}

	var list []models.Workspace
	if err := h.db.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	out := OverallWorkspaceStats{
		TotalWorkspaces: len(list),
		WorkspaceStats:  []WorkspaceStat{},
	}
	for _, ws := range list {
		if ws.Active {
			out.ActiveWorkspaces++
		}
		stat, err := h.statFor(ws)
		if err != nil {
			return fiber.ErrInternalServerError
		}
		out.WorkspaceStats = append(out.WorkspaceStats, stat)
	}
	return c.JSON(out)
}

func (h *Handler) statFor(ws models.Workspace) (WorkspaceStat, error) {
	stat := WorkspaceStat{
		WorkspaceID:   ws.ID,
		WorkspaceName: ws.Name,
		Active:        ws.Active,
	}

	var cases []models.Case
	if err := h.db.Where("workspace_id = ?", ws.ID).Find(&cases).Error; err != nil {
		return stat, err
	}
	stat.TotalCases = len(cases)
	for _, cs := range cases {
		stat.TotalInvoiced += cs.Invoiced
		stat.TotalPaid += cs.Paid
	}
	stat.TotalOutstanding = stat.TotalInvoiced - stat.TotalPaid

	var userCount int64
	if err := h.db.Model(&models.User{}).
		Where("workspace_id = ?", ws.ID).
		Count(&userCount).Error; err != nil {
		return stat, err
	}
	stat.TotalUsers = int(userCount)
	return stat, nil
}
