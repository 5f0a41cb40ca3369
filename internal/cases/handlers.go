package cases

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/internal/auth"
	"github.com/pbikerescue/bike-rescue-backend/internal/storage"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
	"github.com/pbikerescue/bike-rescue-backend/pkg/utils"
	"github.com/pbikerescue/bike-rescue-backend/pkg/validation"
)

type Handler struct {
	db *gorm.DB
	sb *storage.Supabase
}

func NewHandler(db *gorm.DB, sb *storage.Supabase) *Handler {
	return &Handler{db: db, sb: sb}
}

/* ================================ DTOs ================================= */

type CreateCaseRequest struct {
	Status      string  `json:"status" validate:"omitempty,oneof='New Matter' 'Customer Contacted' 'Awaiting Approval' 'Bike Delivered' 'Bike Returned' 'Demands Sent' 'Awaiting Settlement' 'Settlement Agreed' 'Paid' 'Closed'"`
	WorkspaceID *string `json:"workspace_id" validate:"omitempty,uuid"`

	NafName             string `json:"naf_name" validate:"required,max=120"`
	NafPhone            string `json:"naf_phone" validate:"max=40"`
	NafEmail            string `json:"naf_email" validate:"omitempty,email,max=120"`
	NafAddress          string `json:"naf_address" validate:"max=200"`
	NafSuburb           string `json:"naf_suburb" validate:"max=80"`
	NafState            string `json:"naf_state" validate:"omitempty,austate"`
	NafPostcode         string `json:"naf_postcode" validate:"max=10"`
	NafDob              string `json:"naf_dob" validate:"max=20"`
	NafLicenceNo        string `json:"naf_licence_no" validate:"max=40"`
	NafLicenceState     string `json:"naf_licence_state" validate:"omitempty,austate"`
	NafLicenceExp       string `json:"naf_licence_exp" validate:"max=20"`
	NafClaimNumber      string `json:"naf_claim_number" validate:"max=60"`
	NafInsuranceCompany string `json:"naf_insurance_company" validate:"max=120"`
	NafInsurer          string `json:"naf_insurer" validate:"max=120"`
	NafVehicleRego      string `json:"naf_vehicle_rego" validate:"omitempty,rego"`
	NafVehicleMake      string `json:"naf_vehicle_make" validate:"max=60"`
	NafVehicleModel     string `json:"naf_vehicle_model" validate:"max=60"`
	NafVehicleYear      *int   `json:"naf_vehicle_year" validate:"omitempty,gte=1900,lte=2100"`

	AfName             string `json:"af_name" validate:"required,max=120"`
	AfPhone            string `json:"af_phone" validate:"max=40"`
	AfEmail            string `json:"af_email" validate:"omitempty,email,max=120"`
	AfAddress          string `json:"af_address" validate:"max=200"`
	AfSuburb           string `json:"af_suburb" validate:"max=80"`
	AfState            string `json:"af_state" validate:"omitempty,austate"`
	AfPostcode         string `json:"af_postcode" validate:"max=10"`
	AfClaimNumber      string `json:"af_claim_number" validate:"max=60"`
	AfInsuranceCompany string `json:"af_insurance_company" validate:"max=120"`
	AfInsurer          string `json:"af_insurer" validate:"max=120"`
	AfVehicleRego      string `json:"af_vehicle_rego" validate:"omitempty,rego"`
	AfVehicleMake      string `json:"af_vehicle_make" validate:"max=60"`
	AfVehicleModel     string `json:"af_vehicle_model" validate:"max=60"`
	AfVehicleYear      *int   `json:"af_vehicle_year" validate:"omitempty,gte=1900,lte=2100"`

	AssignedLawyerID        *string `json:"assigned_lawyer_id" validate:"omitempty,uuid"`
	AssignedRentalCompanyID *string `json:"assigned_rental_company_id" validate:"omitempty,uuid"`

	AccidentDate        string `json:"accident_date" validate:"max=20"`
	AccidentTime        string `json:"accident_time" validate:"max=20"`
	AccidentDescription string `json:"accident_description" validate:"max=2000"`
	AccidentLocation    string `json:"accident_location" validate:"max=200"`
}

func parseOptionalUUID(s *string) *uuid.UUID {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil
	}
	return &id
}

/* =============================== Create ================================= */

// Create Case godoc
// @Summary      Create case
// @Description  Open a new recovery matter; the case number is generated server-side
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  CreateCaseRequest  true  "Case payload"
// @Success      201  {object}  map[string]string  "id, case_number"
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      409  {object}  models.ErrorResponse
// @Router       /cases [post]
func (h *Handler) Create(c *fiber.Ctx) error {
	var in CreateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	actorID, _ := uuid.Parse(auth.MustUserID(c))

	number, err := uniqueCaseNumber(h.db)
	if err != nil {
		return fiber.NewError(fiber.StatusConflict, "could not allocate a unique case number")
	}

	status := models.CaseNewMatter
	if in.Status != "" {
		status = models.CaseStatus(in.Status)
	}

	cs := models.Case{
		CaseNumber:  number,
		WorkspaceID: parseOptionalUUID(in.WorkspaceID),
		Status:      status,

		NafName:             strings.TrimSpace(in.NafName),
		NafPhone:            in.NafPhone,
		NafEmail:            in.NafEmail,
		NafAddress:          in.NafAddress,
		NafSuburb:           in.NafSuburb,
		NafState:            in.NafState,
		NafPostcode:         in.NafPostcode,
		NafDob:              in.NafDob,
		NafLicenceNo:        in.NafLicenceNo,
		NafLicenceState:     in.NafLicenceState,
		NafLicenceExp:       in.NafLicenceExp,
		NafClaimNumber:      in.NafClaimNumber,
		NafInsuranceCompany: in.NafInsuranceCompany,
		NafInsurer:          in.NafInsurer,
		NafVehicleRego:      in.NafVehicleRego,
		NafVehicleMake:      in.NafVehicleMake,
		NafVehicleModel:     in.NafVehicleModel,
		NafVehicleYear:      in.NafVehicleYear,

		AfName:             strings.TrimSpace(in.AfName),
		AfPhone:            in.AfPhone,
		AfEmail:            in.AfEmail,
		AfAddress:          in.AfAddress,
		AfSuburb:           in.AfSuburb,
		AfState:            in.AfState,
		AfPostcode:         in.AfPostcode,
		AfClaimNumber:      in.AfClaimNumber,
		AfInsuranceCompany: in.AfInsuranceCompany,
		AfInsurer:          in.AfInsurer,
		AfVehicleRego:      in.AfVehicleRego,
		AfVehicleMake:      in.AfVehicleMake,
		AfVehicleModel:     in.AfVehicleModel,
		AfVehicleYear:      in.AfVehicleYear,

		AssignedLawyerID:        parseOptionalUUID(in.AssignedLawyerID),
		AssignedRentalCompanyID: parseOptionalUUID(in.AssignedRentalCompanyID),

		AccidentDate:        in.AccidentDate,
		AccidentTime:        in.AccidentTime,
		AccidentDescription: in.AccidentDescription,
		AccidentLocation:    in.AccidentLocation,

		CreatedBy: actorID,
	}
	if err := h.db.Create(&cs).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": cs.ID, "case_number": cs.CaseNumber})
}

/* =============================== Update ================================= */

// Merge-patch: only the supplied fields change, everything else stays.
type UpdateCaseRequest struct {
	Status *string `json:"status" validate:"omitempty,oneof='New Matter' 'Customer Contacted' 'Awaiting Approval' 'Bike Delivered' 'Bike Returned' 'Demands Sent' 'Awaiting Settlement' 'Settlement Agreed' 'Paid' 'Closed'"`

	NafName          *string `json:"naf_name" validate:"omitempty,max=120"`
	NafPhone         *string `json:"naf_phone"`
	NafEmail         *string `json:"naf_email" validate:"omitempty,email"`
	NafAddress       *string `json:"naf_address"`
	NafSuburb        *string `json:"naf_suburb"`
	NafState         *string `json:"naf_state" validate:"omitempty,austate"`
	NafPostcode      *string `json:"naf_postcode"`
	NafDob           *string `json:"naf_dob"`
	NafLicenceNo     *string `json:"naf_licence_no"`
	NafLicenceState  *string `json:"naf_licence_state" validate:"omitempty,austate"`
	NafLicenceExp    *string `json:"naf_licence_exp"`
	NafClaimNumber   *string `json:"naf_claim_number"`
	NafInsuranceCo   *string `json:"naf_insurance_company"`
	NafInsurer       *string `json:"naf_insurer"`
	NafVehicleRego   *string `json:"naf_vehicle_rego" validate:"omitempty,rego"`
	NafVehicleMake   *string `json:"naf_vehicle_make"`
	NafVehicleModel  *string `json:"naf_vehicle_model"`
	NafVehicleYear   *int    `json:"naf_vehicle_year" validate:"omitempty,gte=1900,lte=2100"`

	AfName          *string `json:"af_name" validate:"omitempty,max=120"`
	AfPhone         *string `json:"af_phone"`
	AfEmail         *string `json:"af_email" validate:"omitempty,email"`
	AfAddress       *string `json:"af_address"`
	AfSuburb        *string `json:"af_suburb"`
	AfState         *string `json:"af_state" validate:"omitempty,austate"`
	AfPostcode      *string `json:"af_postcode"`
	AfClaimNumber   *string `json:"af_claim_number"`
	AfInsuranceCo   *string `json:"af_insurance_company"`
	AfInsurer       *string `json:"af_insurer"`
	AfVehicleRego   *string `json:"af_vehicle_rego" validate:"omitempty,rego"`
	AfVehicleMake   *string `json:"af_vehicle_make"`
	AfVehicleModel  *string `json:"af_vehicle_model"`
	AfVehicleYear   *int    `json:"af_vehicle_year" validate:"omitempty,gte=1900,lte=2100"`

	AssignedLawyerID        *string `json:"assigned_lawyer_id" validate:"omitempty,uuid"`
	AssignedRentalCompanyID *string `json:"assigned_rental_company_id" validate:"omitempty,uuid"`

	AccidentDate        *string `json:"accident_date"`
	AccidentTime        *string `json:"accident_time"`
	AccidentDescription *string `json:"accident_description" validate:"omitempty,max=2000"`
	AccidentLocation    *string `json:"accident_location"`
}

// Update Case godoc
// @Summary      Update case
// @Description  Merge-patch any subset of case fields; status changes are explicit, never automatic
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string             true  "case id (uuid)"
// @Param        payload  body  UpdateCaseRequest  true  "Fields to change"
// @Success      200  {object}  map[string]bool
// @Failure      400  {object}  models.ValidationErrorResponse
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [patch]
func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	var in UpdateCaseRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}
	if errs, _ := validation.Validate(in); errs != nil {
		return validation.Respond(c, errs)
	}

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	updates := map[string]any{}
	setStr := func(col string, v *string) {
		if v != nil {
			updates[col] = *v
		}
	}
	setStr("status", in.Status)
	setStr("naf_name", in.NafName)
	setStr("naf_phone", in.NafPhone)
	setStr("naf_email", in.NafEmail)
	setStr("naf_address", in.NafAddress)
	setStr("naf_suburb", in.NafSuburb)
	setStr("naf_state", in.NafState)
	setStr("naf_postcode", in.NafPostcode)
	setStr("naf_dob", in.NafDob)
	setStr("naf_licence_no", in.NafLicenceNo)
	setStr("naf_licence_state", in.NafLicenceState)
	setStr("naf_licence_exp", in.NafLicenceExp)
	setStr("naf_claim_number", in.NafClaimNumber)
	setStr("naf_insurance_company", in.NafInsuranceCo)
	setStr("naf_insurer", in.NafInsurer)
	setStr("naf_vehicle_rego", in.NafVehicleRego)
	setStr("naf_vehicle_make", in.NafVehicleMake)
	setStr("naf_vehicle_model", in.NafVehicleModel)
	setStr("af_name", in.AfName)
	setStr("af_phone", in.AfPhone)
	setStr("af_email", in.AfEmail)
	setStr("af_address", in.AfAddress)
	setStr("af_suburb", in.AfSuburb)
	setStr("af_state", in.AfState)
	setStr("af_postcode", in.AfPostcode)
	setStr("af_claim_number", in.AfClaimNumber)
	setStr("af_insurance_company", in.AfInsuranceCo)
	setStr("af_insurer", in.AfInsurer)
	setStr("af_vehicle_rego", in.AfVehicleRego)
	setStr("af_vehicle_make", in.AfVehicleMake)
	setStr("af_vehicle_model", in.AfVehicleModel)
	setStr("accident_date", in.AccidentDate)
	setStr("accident_time", in.AccidentTime)
	setStr("accident_description", in.AccidentDescription)
	setStr("accident_location", in.AccidentLocation)
	if in.NafVehicleYear != nil {
		updates["naf_vehicle_year"] = *in.NafVehicleYear
	}
	if in.AfVehicleYear != nil {
		updates["af_vehicle_year"] = *in.AfVehicleYear
	}
	if v := parseOptionalUUID(in.AssignedLawyerID); v != nil {
		updates["assigned_lawyer_id"] = *v
	}
	if v := parseOptionalUUID(in.AssignedRentalCompanyID); v != nil {
		updates["assigned_rental_company_id"] = *v
	}

	actorID, _ := uuid.Parse(auth.MustUserID(c))
	updates["last_updated_by"] = actorID

	if err := h.db.Model(&cs).Updates(updates).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	return c.JSON(fiber.Map{"ok": true})
}

/* ============================ List / Get ================================ */

// List Cases godoc
// @Summary      List cases
// @Description  Filter by workspace/status, free-text search over number, party names and regos
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        workspace_id  query string false "workspace id (uuid)"
// @Param        status        query string false "case status"
// @Param        search        query string false "search term"
// @Param        limit         query int    false "max rows"
// @Success      200  {array}  models.Case
// @Router       /cases [get]
func (h *Handler) List(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.Case{})

	if ws := strings.TrimSpace(c.Query("workspace_id")); ws != "" {
		if _, err := uuid.Parse(ws); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
		}
		dbq = dbq.Where("workspace_id = ?", ws)
	}
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !validCaseStatus(status) {
			return fiber.NewError(fiber.StatusBadRequest, "invalid status filter")
		}
		dbq = dbq.Where("status = ?", status)
	}

	var list []models.Case
	if err := dbq.Order("created_at DESC").Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	// Free-text search is applied in memory over the snapshot.
	if search := strings.ToLower(strings.TrimSpace(c.Query("search"))); search != "" {
		filtered := list[:0]
		for _, cs := range list {
			if strings.Contains(strings.ToLower(cs.CaseNumber), search) ||
				strings.Contains(strings.ToLower(cs.NafName), search) ||
				strings.Contains(strings.ToLower(cs.AfName), search) ||
				strings.Contains(strings.ToLower(cs.NafVehicleRego), search) ||
				strings.Contains(strings.ToLower(cs.AfVehicleRego), search) {
				filtered = append(filtered, cs)
			}
		}
		list = filtered
	}

	if limit := c.QueryInt("limit"); limit > 0 && limit < len(list) {
		list = list[:limit]
	}

	if list == nil {
		list = []models.Case{}
	}
	return c.JSON(list)
}

func validCaseStatus(s string) bool {
	switch models.CaseStatus(s) {
	case models.CaseNewMatter, models.CaseCustomerContacted, models.CaseAwaitingApproval,
		models.CaseBikeDelivered, models.CaseBikeReturned, models.CaseDemandsSent,
		models.CaseAwaitingSettle, models.CaseSettlementAgreed, models.CasePaid, models.CaseClosed:
		return true
	}
	return false
}

// Get Case godoc
// @Summary      Case detail
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  models.Case
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [get]
func (h *Handler) Get(c *fiber.Ctx) error {
	var cs models.Case
	if err := h.db.First(&cs, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(cs)
}

// Get By Number godoc
// @Summary      Case detail by case number
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        number  path string true "case number (WWMM###)"
// @Success      200  {object}  models.Case
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/by-number/{number} [get]
func (h *Handler) GetByNumber(c *fiber.Ctx) error {
	var cs models.Case
	if err := h.db.First(&cs, "case_number = ?", c.Params("number")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}
	return c.JSON(cs)
}

/* =============================== Remove ================================= */

// Remove Case godoc
// @Summary      Delete case
// @Description  Cascades: documents, communication logs, financial records and bike assignments go first, then the case
// @Tags         cases
// @Security     BearerAuth
// @Param        id   path string true "case id (uuid)"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id} [delete]
func (h *Handler) Remove(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	var docs []models.Document
	if err := h.db.Where("case_id = ?", id).Find(&docs).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("case_id = ?", id).Delete(&models.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", id).Delete(&models.CommunicationLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", id).Delete(&models.FinancialRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("case_id = ?", id).Delete(&models.BikeAssignment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cs).Error
	})
	if err != nil {
		return fiber.ErrInternalServerError
	}

	// Storage cleanup is best effort.
	if len(docs) > 0 {
		keys := make([]string, 0, len(docs))
		for _, d := range docs {
			keys = append(keys, d.Key)
		}
		_ = h.sb.BulkDelete(keys)
	}

	return c.JSON(fiber.Map{"ok": true})
}

/* ========================= Financial sync =============================== */

type UpdateFinancialsRequest struct {
	Invoiced *float64 `json:"invoiced"`
	Reserve  *float64 `json:"reserve"`
	Agreed   *float64 `json:"agreed"`
	Paid     *float64 `json:"paid"`
}

// Update Financials godoc
// @Summary      Update case financials
// @Description  Merge-patch of the denormalized money fields; every applied change appends an Adjustment audit record
// @Tags         cases
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                   true  "case id (uuid)"
// @Param        payload  body  UpdateFinancialsRequest  true  "Fields to change"
// @Success      200  {object}  map[string]bool
// @Failure      404  {object}  models.ErrorResponse
// @Router       /cases/{id}/financials [patch]
func (h *Handler) UpdateFinancials(c *fiber.Ctx) error {
	id := c.Params("id")
	caseID, err := uuid.Parse(id)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}

	var in UpdateFinancialsRequest
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid json")
	}

	var cs models.Case
	if err := h.db.First(&cs, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.ErrNotFound
		}
		return fiber.ErrInternalServerError
	}

	updates := map[string]any{}
	changed := []string{}
	if in.Invoiced != nil {
		updates["invoiced"] = *in.Invoiced
		changed = append(changed, "invoiced")
	}
	if in.Reserve != nil {
		updates["reserve"] = *in.Reserve
		changed = append(changed, "reserve")
	}
	if in.Agreed != nil {
		updates["agreed"] = *in.Agreed
		changed = append(changed, "agreed")
	}
	if in.Paid != nil {
		updates["paid"] = *in.Paid
		changed = append(changed, "paid")
	}

	if len(updates) > 0 {
		if err := h.db.Model(&cs).Updates(updates).Error; err != nil {
			return fiber.ErrInternalServerError
		}

		// Audit amount: first supplied of paid, invoiced, agreed; else 0.
		// Fixed precedence, not a sum.
		amount := 0.0
		switch {
		case in.Paid != nil:
			amount = *in.Paid
		case in.Invoiced != nil:
			amount = *in.Invoiced
		case in.Agreed != nil:
			amount = *in.Agreed
		}

		actorID, _ := uuid.Parse(auth.MustUserID(c))
		utils.LogFinancialRecord(c.Context(), h.db, caseID, actorID,
			models.FinAdjustment, amount, "Financial update: "+strings.Join(changed, ", "))
	}

	return c.JSON(fiber.Map{"ok": true})
}

// List Financial Records godoc
// @Summary      Case financial audit trail
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        id   path string true "case id (uuid)"
// @Success      200  {array}  models.FinancialRecord
// @Router       /cases/{id}/financials [get]
func (h *Handler) ListFinancials(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid case id")
	}
	var rows []models.FinancialRecord
	if err := h.db.Where("case_id = ?", id).Order("date DESC").Find(&rows).Error; err != nil {
		return fiber.ErrInternalServerError
	}
	if rows == nil {
		rows = []models.FinancialRecord{}
	}
	return c.JSON(rows)
}

/* ================================ Stats ================================= */

type CaseStats struct {
	TotalCases       int            `json:"totalCases"`
	TotalInvoiced    float64        `json:"totalInvoiced"`
	TotalPaid        float64        `json:"totalPaid"`
	TotalOutstanding float64        `json:"totalOutstanding"`
	StatusCounts     map[string]int `json:"statusCounts"`
	AverageInvoiced  float64        `json:"averageInvoiced"`
	CollectionRate   float64        `json:"collectionRate"`
}

// Case Stats godoc
// @Summary      Case statistics
// @Description  Full-scan rollup: totals, status counts, average invoiced and collection rate
// @Tags         cases
// @Security     BearerAuth
// @Produce      json
// @Param        workspace_id  query string false "workspace id (uuid)"
// @Success      200  {object}  CaseStats
// @Router       /cases/stats [get]
func (h *Handler) Stats(c *fiber.Ctx) error {
	dbq := h.db.Model(&models.Case{})
	if ws := strings.TrimSpace(c.Query("workspace_id")); ws != "" {
		if _, err := uuid.Parse(ws); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid workspace id")
		}
		dbq = dbq.Where("workspace_id = ?", ws)
	}

	var list []models.Case
	if err := dbq.Find(&list).Error; err != nil {
		return fiber.ErrInternalServerError
	}

	return c.JSON(ReduceCaseStats(list))
}

// ReduceCaseStats computes the case rollup over a snapshot of the cases table.
func ReduceCaseStats(list []models.Case) CaseStats {
	out := CaseStats{StatusCounts: map[string]int{}}
	out.TotalCases = len(list)
	for _, cs := range list {
		out.TotalInvoiced += cs.Invoiced
		out.TotalPaid += cs.Paid
		out.StatusCounts[string(cs.Status)]++
	}
	out.TotalOutstanding = out.TotalInvoiced - out.TotalPaid
	if out.TotalCases > 0 {
		out.AverageInvoiced = out.TotalInvoiced / float64(out.TotalCases)
	}
	if out.TotalInvoiced > 0 {
		out.CollectionRate = out.TotalPaid / out.TotalInvoiced * 100
	}
	return out
}
