package bikes

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pbikerescue/bike-rescue-backend/internal/auth"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
	"github.com/pbikerescue/bike-rescue-backend/pkg/validation"
)

type Handler struct{ db *gorm.DB }

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

/* ================================ DTOs ================================= */

type CreateBikeRequest struct {
	Registration string  `json:"registration" validate:"required,rego"`
	Make         string  `json:"make" validate:"required,max=60"`
	Model        string  `json:"model" validate:"required,max=60"`
	Year         int     `json:"year" validate:"required,gte=1900,lte=2100"`
	Color        string  `json:"color" validate:"max=30"`
	Vin          string  `json:"vin" validate:"max=30"`
	EngineNumber string  `json:"engine_number" validate:"max=40"`
	Status       string  `json:"status" validate:"omitempty,oneof=Available 'On Hire' Service Repair Unavailable"`
	DailyRate    float64 `json:"daily_rate" validate:"gte=0"`
	WeeklyRate   float64 `json:"weekly_rate" validate:"gte=0"`
	MonthlyRate  float64 `json:"monthly_rate" validate:"gte=0"`

	PurchaseDate    *time.Time `json:"purchase_date"`
	PurchasePrice   *float64   `json:"purchase_price" validate:"omitempty,gte=0"`
	CurrentValue    *float64   `json:"current_value" validate:"omitempty,gte=0"`
	LastServiceDate *time.Time `json:"last_service_date"`
	NextServiceDue  *time.Time `json:"next_service_due"`
	Notes           string     `json:"notes" validate:"max=2000"`
}

type UpdateBikeRequest struct {
	Registration *string `json:"registration" validate:"omitempty,rego"`
	Make         *string `json:"make" validate:"omitempty,max=60"`
	Model        *string `json:"model" validate:"omitempty,max=60"`
	Year         *int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	Color        *string `json:"color"`
	Vin          *string `json:"vin"`
	EngineNumber *string `json:"engine_number"`
	// Direct status set bypasses the hire cycle; used for the maintenance
	// states (Service/Repair/Unavailable).
	Status      *string  `json:"status" validate:"omitempty,oneof=Available 'On Hire' Service Repair Unavailable"`
	DailyRate   *float64 `json:"daily_rate" validate:"omitempty,gte=0"`
	WeeklyRate  *float64 `json:"weekly_rate" validate:"omitempty,gte=0"`
	MonthlyRate *float64 `json:"monthly_rate" validate:"omitempty,gte=0"`

	PurchaseDate    *time.Time `json:"purchase_date"`
	PurchasePrice   *float64   `json:"purchase_price" validate:"omitempty,gte=0"`
	CurrentValue    *float64   `json:"current_value" validate:"omitempty,gte=0"`
	LastServiceDate *time.Time `json:"last_service_date"`
	NextServiceDue  *time.Time `json:"next_service_due"`
	Notes           *string    `json:"notes" validate:"omitempty,max=2000"`
}

/* =============================== Create ================================= */

// Create Bike godoc
// @Summary      Add a fleet bike
// @Tags         bikes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateBikeRequest  true  "Bike payload"
// @Success      201  {object}  map[string]string  "id"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "duplicate registration"
// @Router       /bikes [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateBikeRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	in.Registration = strings.ToUpper(strings.TrimSpace(in.Registration))

	var cnt int64
	if err := h.db.Model(&models.Bike{}).
		Where("registration = ?", in.Registration).
		Count(&cnt).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if cnt > 0 {
		return fiber.NewError(fiber.StatusConflict, "A bike with this registration already exists")
	}

	status := models.BikeAvailable
	if in.Status != "" {
		status = models.BikeStatus(in.Status)
	}

	b := models.Bike{
		Registration:    in.Registration,
		Make:            in.Make,
		Model:           in.Model,
		Year:            in.Year,
		Color:           in.Color,
		Vin:             in.Vin,
		EngineNumber:    in.EngineNumber,
		Status:          status,
		DailyRate:       in.DailyRate,
		WeeklyRate:      in.WeeklyRate,
		MonthlyRate:     in.MonthlyRate,
		PurchaseDate:    in.PurchaseDate,
		PurchasePrice:   in.PurchasePrice,
		CurrentValue:    in.CurrentValue,
		LastServiceDate: in.LastServiceDate,
		NextServiceDue:  in.NextServiceDue,
		Notes:           in.Notes,
	}
	if err := h.db.Create(&b).Error; err != nil {
		return fiber.NewError(fiber.StatusConflict, "A bike with this registration already exists")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": b.ID})
}

/* =============================== Update ================================= */

// Update Bike godoc
// @Summary      Update bike
// @Description  Merge-patch of bike fields, including direct status changes for maintenance states
// @Tags         bikes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "bike id (uuid)"
// @Param        payload  body  UpdateBikeRequest  true  "Fields to change"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /bikes/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid bike id")
	}

	var in UpdateBikeRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var b models.Bike
	if err := h.db.First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	updates := map[string]any{}
	if in.Registration != nil {
		rego := strings.ToUpper(strings.TrimSpace(*in.Registration))
		var cnt int64
		if err := h.db.Model(&models.Bike{}).
			Where("registration = ? AND id <> ?", rego, id).
			Count(&cnt).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		if cnt > 0 {
			return fiber.NewError(fiber.StatusConflict, "A bike with this registration already exists")
		}
		updates["registration"] = rego
	}
	if in.Make != nil {
		updates["make"] = *in.Make
	}
	if in.Model != nil {
		updates["model"] = *in.Model
	}
	if in.Year != nil {
		updates["year"] = *in.Year
	}
	if in.Color != nil {
		updates["color"] = *in.Color
	}
	if in.Vin != nil {
		updates["vin"] = *in.Vin
	}
	if in.EngineNumber != nil {
		updates["engine_number"] = *in.EngineNumber
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if in.DailyRate != nil {
		updates["daily_rate"] = *in.DailyRate
	}
	if in.WeeklyRate != nil {
		updates["weekly_rate"] = *in.WeeklyRate
	}
	if in.MonthlyRate != nil {
		updates["monthly_rate"] = *in.MonthlyRate
	}
	if in.PurchaseDate != nil {
		updates["purchase_date"] = *in.PurchaseDate
	}
	if in.PurchasePrice != nil {
		updates["purchase_price"] = *in.PurchasePrice
	}
	if in.CurrentValue != nil {
		updates["current_value"] = *in.CurrentValue
	}
	if in.LastServiceDate != nil {
		updates["last_service_date"] = *in.LastServiceDate
	}
	if in.NextServiceDue != nil {
		updates["next_service_due"] = *in.NextServiceDue
	}
	if in.Notes != nil {
		updates["notes"] = *in.Notes
	}

	if err := h.db.Model(&b).Updates(updates).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

/* ============================ List / Get ================================ */

// List Bikes godoc
// @Summary      List fleet
// @Description  Filter by status, free-text search over registration/make/model/vin, sorted by registration
// @Tags         bikes
// @Security     BearerAuth
// @Produce      json
// @Param        status  query string false "bike status"
// @Param        search  query string false "search term"
// @Success      200  {array}  models.Bike
// @Router       /bikes [get]
func (h *Handler) List(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.Bike{})
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !validBikeStatus(status) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
		dbq = dbq.Where("status = ?", status)
	}

	var list []models.Bike
	if err := dbq.Order("registration ASC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		filtered := list[:0]
		for _, b := range list {
			if strings.Contains(strings.ToLower(b.Registration), search) ||
				strings.Contains(strings.ToLower(b.Make), search) ||
				strings.Contains(strings.ToLower(b.Model), search) ||
				strings.Contains(strings.ToLower(b.Vin), search) {
				filtered = append(filtered, b)
			}
		}
		list = filtered
	}

	if list == nil {
		list = []models.Bike{}
	}
	return c.JSON(list)
}

func validBikeStatus(s string) bool {
	switch models.BikeStatus(s) {
	case models.BikeAvailable, models.BikeOnHire, models.BikeService,
		models.BikeRepair, models.BikeUnavailable:
		return true
	}
	return false
}

// Get Bike godoc
// @Summary      Bike detail
// @Tags         bikes
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "bike id (uuid)"
// @Success      200  {object}  models.Bike
// @Failure      404  {object}  models.ErrorResponse
// @Router       /bikes/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	var b models.Bike
	if err := h.db.First(&b, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(b)
}

// Available Bikes godoc
// @Summary      List available bikes
// @Tags         bikes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}  models.Bike
// @Router       /bikes/available [get]
func (h *Handler) Available(c *fiber.Ctx) error {
	var list []models.Bike
	if err := h.db.Where("status = ?", models.BikeAvailable).
		Order("registration ASC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if list == nil {
		list = []models.Bike{}
	}
	return c.JSON(list)
}

/* ======================= Assignment lifecycle =========================== */

type AssignRequest struct {
	CaseID string `json:"case_id" validate:"required,uuid"`
	// Pointer so an explicit zero rate passes required.
	DailyRate    *float64   `json:"daily_rate" validate:"required,gte=0"`
	AssignedDate *time.Time `json:"assigned_date"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

// Assign Bike godoc
// @Summary      Assign bike to case
// @Description  Puts an Available bike On Hire against a case; the daily rate is frozen on the assignment record
// @Tags         bikes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "bike id (uuid)"
// @Param        payload  body  AssignRequest  true  "Assignment payload"
// @Success      201  {object}  map[string]string  "assignment_id"
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "Bike is not available"
// @Router       /bikes/{id}/assign [post]
func (h *Handler) Assign(c *fiber.Ctx) error {
	bikeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid bike id")
	}

	var in AssignRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}
	caseID, _ := uuid.Parse(in.CaseID)

	actorID, _ := uuid.Parse(auth.MustUserID(c))

	assignedDate := time.Now()
	if in.AssignedDate != nil {
		assignedDate = *in.AssignedDate
	}

	var assignment models.BikeAssignment
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		// Lock the bike row so the availability check and the patch are one unit.
		var bike models.Bike
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&bike, "id = ?", bikeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		if bike.Status != models.BikeAvailable {
			return fiber.NewError(fiber.StatusConflict, "Bike is not available")
		}

		var cs models.Case
		if err := tx.First(&cs, "id = ?", caseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "case not found")
			}
			return err
		}

		if err := tx.Model(&bike).Updates(map[string]any{
			"status":           models.BikeOnHire,
			"assigned_case_id": caseID,
		}).Error; err != nil {
			return err
		}
		if err := tx.Model(&cs).Update("assigned_bike_id", bikeID).Error; err != nil {
			return err
		}

		assignment = models.BikeAssignment{
			BikeID:       bikeID,
			CaseID:       caseID,
			AssignedDate: assignedDate,
			DailyRate:    *in.DailyRate,
			Notes:        in.Notes,
			AssignedBy:   actorID,
		}
		return tx.Create(&assignment).Error
	})
	if txErr != nil {
		if fe, ok := txErr.(*fiber.Error); ok {
			return fe
		}
		return fiber.ErrInternalServerError
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"assignment_id": assignment.ID})
}

type ReturnRequest struct {
	ReturnedDate *time.Time `json:"returned_date"`
	Notes        string     `json:"notes" validate:"max=2000"`
}

type ReturnResult struct {
	TotalDays int     `json:"total_days"`
	TotalCost float64 `json:"total_cost"`
}

// rentalDays rounds the elapsed time up to whole days. A positive fraction of
// a day counts as one full day; a zero or negative interval is passed through
// unchanged rather than floored at 1.
func rentalDays(assigned, returned time.Time) int {
	return int(math.Ceil(returned.Sub(assigned).Hours() / 24))
}

// Return Bike godoc
// @Summary      Return bike from case
// @Description  Closes the active assignment, frees the bike and adds the rental cost to the case's invoiced total
// @Tags         bikes
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string         true  "bike id (uuid)"
// @Param        payload  body  ReturnRequest  true  "Return payload"
// @Success      200  {object}  ReturnResult
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse  "Bike is not assigned to a case / No active assignment found"
// @Router       /bikes/{id}/return [post]
func (h *Handler) Return(c *fiber.Ctx) error {
	bikeID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid bike id")
	}

	var in ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	returnedDate := time.Now()
	if in.ReturnedDate != nil {
		returnedDate = *in.ReturnedDate
	}

	var result ReturnResult
	txErr := h.db.Transaction(func(tx *gorm.DB) error {
		var bike models.Bike
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&bike, "id = ?", bikeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.ErrNotFound
			}
			return err
		}
		if bike.AssignedCaseID == nil {
			return fiber.NewError(fiber.StatusConflict, "Bike is not assigned to a case")
		}

		var assignment models.BikeAssignment
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("bike_id = ? AND returned_date IS NULL", bikeID).
			First(&assignment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusConflict, "No active assignment found")
			}
			return err
		}

		totalDays := rentalDays(assignment.AssignedDate, returnedDate)
		// The rate frozen at assignment time, not the bike's current rate.
		totalCost := float64(totalDays) * assignment.DailyRate

		if err := tx.Model(&assignment).Updates(map[string]any{
			"returned_date": returnedDate,
			"total_days":    totalDays,
			"total_cost":    totalCost,
			"notes":         in.Notes,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&bike).Updates(map[string]any{
			"status":           models.BikeAvailable,
			"assigned_case_id": nil,
		}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Case{}).
			Where("id = ?", *bike.AssignedCaseID).
			Updates(map[string]any{
				"invoiced":         gorm.Expr("invoiced + ?", totalCost),
				"assigned_bike_id": nil,
			}).Error; err != nil {
			return err
		}

		result = ReturnResult{TotalDays: totalDays, TotalCost: totalCost}
		return nil
	})
	if txErr != nil {
		if fe, ok := txErr.(*fiber.Error); ok {
			return fe
		}
		return fiber.ErrInternalServerError
	}

	return c.JSON(result)
}

/* =============================== Remove ================================= */

// Remove Bike godoc
// @Summary      Delete bike
// @Description  Refused while the bike is assigned to a case; assignment history goes with it
// @Tags         bikes
// @Security     BearerAuth
// @Param        id   path string true "bike id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /bikes/{id} [delete]
func (h *Handler) Remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid bike id")
	}

	var b models.Bike
	if err := h.db.First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	if b.AssignedCaseID != nil {
		return fiber.NewError(fiber.StatusConflict, "Cannot delete bike while assigned to a case")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bike_id = ?", id).Delete(&models.BikeAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&b).Error
	})
	if err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

/* ================================ Stats ================================= */

type ServiceDueItem struct {
	ID             uuid.UUID  `json:"id"`
	Registration   string     `json:"registration"`
	NextServiceDue *time.Time `json:"next_service_due"`
}

type BikeStats struct {
	Total                int              `json:"total"`
	Available            int              `json:"available"`
	OnHire               int              `json:"onHire"`
	InService            int              `json:"inService"`
	InRepair             int              `json:"inRepair"`
	Unavailable          int              `json:"unavailable"`
	UtilizationRate      float64          `json:"utilizationRate"`
	TotalValue           float64          `json:"totalValue"`
	AverageValue         float64          `json:"averageValue"`
	UpcomingServiceCount int              `json:"upcomingServiceCount"`
	UpcomingService      []ServiceDueItem `json:"upcomingService"`
}

// Bike Stats godoc
// @Summary      Fleet statistics
// @Description  Full-scan rollup: status counts, utilization, fleet value and bikes due for service within 30 days
// @Tags         bikes
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  BikeStats
// @Router       /bikes/stats [get]
func (h *Handler) Stats(c *fiber.Ctx) error {
	var list []models.Bike
	if err := h.db.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(ReduceBikeStats(list, time.Now()))
}

// ReduceBikeStats computes the fleet rollup over a snapshot of the bikes table.
func ReduceBikeStats(list []models.Bike, now time.Time) BikeStats {
	out := BikeStats{UpcomingService: []ServiceDueItem{}}
	out.Total = len(list)
	for _, b := range list {
		switch b.Status {
		case models.BikeAvailable:
			out.Available++
		case models.BikeOnHire:
			out.OnHire++
		case models.BikeService:
			out.InService++
		case models.BikeRepair:
			out.InRepair++
		case models.BikeUnavailable:
			out.Unavailable++
		}
		if b.CurrentValue != nil {
			out.TotalValue += *b.CurrentValue
		}
		if b.NextServiceDue != nil {
			days := int(math.Ceil(b.NextServiceDue.Sub(now).Hours() / 24))
			if days >= 0 && days <= 30 {
				out.UpcomingService = append(out.UpcomingService, ServiceDueItem{
					ID:             b.ID,
					Registration:   b.Registration,
					NextServiceDue: b.NextServiceDue,
				})
			}
		}
	}
	if out.Total > 0 {
		out.UtilizationRate = float64(out.OnHire) / float64(out.Total) * 100
		out.AverageValue = out.TotalValue / float64(out.Total)
	}
	out.UpcomingServiceCount = len(out.UpcomingService)
	return out
}

/* =========================== History ==================================== */

type HistoryItem struct {
	models.BikeAssignment
	BikeRegistration string `json:"bike_registration,omitempty"`
	BikeMake         string `json:"bike_make,omitempty"`
	BikeModel        string `json:"bike_model,omitempty"`
	CaseNumber       string `json:"case_number,omitempty"`
	NafName          string `json:"naf_name,omitempty"`
	AssignedByName   string `json:"assigned_by_name"`
}

// Assignment History godoc
// @Summary      Bike assignment history
// @Description  All rental periods, newest first, enriched with bike, case and assigner details
// @Tags         bikes
// @Security     BearerAuth
// @Produce      json
// @Param        bike_id  query string false "bike id (uuid)"
// @Param        case_id  query string false "case id (uuid)"
// @Success      200  {array}  HistoryItem
// @Router       /bikes/assignments [get]
func (h *Handler) AssignmentHistory(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.BikeAssignment{})
	if bikeID := strings.TrimSpace(c.Query("bike_id")); bikeID != "" {
		if _, err := uuid.Parse(bikeID); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid bike id")
		}
		dbq = dbq.Where("bike_id = ?", bikeID)
	}
	if caseID := strings.TrimSpace(c.Query("case_id")); caseID != "" {
		if _, err := uuid.Parse(caseID); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
		}
		dbq = dbq.Where("case_id = ?", caseID)
	}

	var assignments []models.BikeAssignment
	if err := dbq.Order("assigned_date DESC").Find(&assignments).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Collect referenced ids and load them in three IN queries to avoid N+1.
	bikeIDs := make([]uuid.UUID, 0, len(assignments))
	caseIDs := make([]uuid.UUID, 0, len(assignments))
	userIDs := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		bikeIDs = append(bikeIDs, a.BikeID)
		caseIDs = append(caseIDs, a.CaseID)
		userIDs = append(userIDs, a.AssignedBy)
	}

	bikeByID := map[uuid.UUID]models.Bike{}
	caseByID := map[uuid.UUID]models.Case{}
	userByID := map[uuid.UUID]models.User{}
	if len(assignments) > 0 {
		var bs []models.Bike
		if err := h.db.Where("id IN ?", bikeIDs).Find(&bs).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		for _, b := range bs {
			bikeByID[b.ID] = b
		}
		var cases []models.Case
		if err := h.db.Where("id IN ?", caseIDs).Find(&cases).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		for _, cs := range cases {
			caseByID[cs.ID] = cs
		}
		var users []models.User
		if err := h.db.Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return fiber.ErrInternalServerError
		}
		for _, u := range users {
			userByID[u.ID] = u
		}
	}

	items := make([]HistoryItem, 0, len(assignments))
	for _, a := range assignments {
		item := HistoryItem{BikeAssignment: a, AssignedByName: "Unknown"}
		if b, ok := bikeByID[a.BikeID]; ok {
			item.BikeRegistration = b.Registration
			item.BikeMake = b.Make
			item.BikeModel = b.Model
		}
		if cs, ok := caseByID[a.CaseID]; ok {
			item.CaseNumber = cs.CaseNumber
			item.NafName = cs.NafName
		}
		if u, ok := userByID[a.AssignedBy]; ok {
			item.AssignedByName = u.Name
		}
		items = append(items, item)
	}

	return c.JSON(items)
}
