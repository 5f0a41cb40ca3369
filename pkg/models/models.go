package models

import (
	"time"

	"github.com/google/uuid"
)

/* =============================== Enums ================================== */

// Role defines the type of user in the system.
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleDeveloper     Role = "developer"
	RoleLawyer        Role = "lawyer"
	RoleRentalCompany Role = "rental_company"
	RoleWorkspaceUser Role = "workspace_user"
)

// UserStatus defines account states.
type UserStatus string

const (
	UserActive                UserStatus = "active"
	UserPendingPasswordChange UserStatus = "pending_password_change"
	UserDisabled              UserStatus = "disabled"
)

// CaseStatus defines the progression of a recovery matter. Statuses never
// transition automatically; every change is an explicit update.
type CaseStatus string

const (
	CaseNewMatter         CaseStatus = "New Matter"
	CaseCustomerContacted CaseStatus = "Customer Contacted"
	CaseAwaitingApproval  CaseStatus = "Awaiting Approval"
	CaseBikeDelivered     CaseStatus = "Bike Delivered"
	CaseBikeReturned      CaseStatus = "Bike Returned"
	CaseDemandsSent       CaseStatus = "Demands Sent"
	CaseAwaitingSettle    CaseStatus = "Awaiting Settlement"
	CaseSettlementAgreed  CaseStatus = "Settlement Agreed"
	CasePaid              CaseStatus = "Paid"
	CaseClosed            CaseStatus = "Closed"
)

// BikeStatus defines fleet states. Available and On Hire form the hire cycle;
// Service/Repair/Unavailable are maintenance states set directly via update.
type BikeStatus string

const (
	BikeAvailable   BikeStatus = "Available"
	BikeOnHire      BikeStatus = "On Hire"
	BikeService     BikeStatus = "Service"
	BikeRepair      BikeStatus = "Repair"
	BikeUnavailable BikeStatus = "Unavailable"
)

// ContactType classifies business parties.
type ContactType string

const (
	ContactClient        ContactType = "Client"
	ContactLawyer        ContactType = "Lawyer"
	ContactInsurer       ContactType = "Insurer"
	ContactRepairer      ContactType = "Repairer"
	ContactRentalCompany ContactType = "Rental Company"
	ContactServiceCenter ContactType = "Service Center"
	ContactOther         ContactType = "Other"
)

// FinancialType classifies audit-trail entries on a case.
type FinancialType string

const (
	FinInvoice    FinancialType = "Invoice"
	FinSettlement FinancialType = "Settlement"
	FinPayment    FinancialType = "Payment"
	FinAdjustment FinancialType = "Adjustment"
)

// DocumentType classifies uploaded case documents.
type DocumentType string

const (
	DocClaims          DocumentType = "claims"
	DocNafRental       DocumentType = "not-at-fault-rental"
	DocCertisRental    DocumentType = "certis-rental"
	DocAuthorityToAct  DocumentType = "authority-to-act"
	DocDirectionToPay  DocumentType = "direction-to-pay"
	DocSignedAgreement DocumentType = "signed-agreement"
	DocOther           DocumentType = "other"
)

// CommType and CommDirection classify communication log entries.
type CommType string

const (
	CommEmail   CommType = "Email"
	CommPhone   CommType = "Phone"
	CommSMS     CommType = "SMS"
	CommLetter  CommType = "Letter"
	CommMeeting CommType = "Meeting"
	CommOther   CommType = "Other"
)

type CommDirection string

const (
	CommInbound  CommDirection = "Inbound"
	CommOutbound CommDirection = "Outbound"
)

/* =============================== Entities =============================== */

// User represents a staff account (the explicit actor behind every mutation).
type User struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string     `gorm:"uniqueIndex;not null"`
	PasswordHash string     `gorm:"not null"`
	Name         string     `gorm:"not null"`
	Role         Role       `gorm:"type:varchar(20);not null"`
	Status       UserStatus `gorm:"type:varchar(30);default:'active'"`
	WorkspaceID  *uuid.UUID `gorm:"type:uuid;index"`
	ContactID    *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time
}

// Workspace groups cases and users for a partner (law firm, rental company).
type Workspace struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"not null"`
	ContactID uuid.UUID `gorm:"type:uuid;not null;index"`
	Type      string
	Active    bool      `gorm:"default:true"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// Contact represents a business party referenced by cases and workspaces.
type Contact struct {
	ID        uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string      `gorm:"not null"`
	Company   string
	Type      ContactType `gorm:"type:varchar(20);not null;index"`
	Phone     string
	Email     *string `gorm:"uniqueIndex:ux_contact_email_filled"`
	Address   string
	Suburb    string
	State     string `gorm:"type:varchar(3)"`
	Postcode  string
	Notes     string
	CreatedAt time.Time
}

// Case is one accident-recovery matter: the not-at-fault client the business
// represents, the at-fault party pursued for recovery, and the money between them.
type Case struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseNumber  string     `gorm:"uniqueIndex;not null"` // WWMM###
	WorkspaceID *uuid.UUID `gorm:"type:uuid;index"`
	Status      CaseStatus `gorm:"type:varchar(30);default:'New Matter';index"`

	// Not-at-fault (NAF) party
	NafName             string `gorm:"not null"`
	NafPhone            string
	NafEmail            string
	NafAddress          string
	NafSuburb           string
	NafState            string `gorm:"type:varchar(3)"`
	NafPostcode         string
	NafDob              string
	NafLicenceNo        string
	NafLicenceState     string `gorm:"type:varchar(3)"`
	NafLicenceExp       string
	NafClaimNumber      string
	NafInsuranceCompany string
	NafInsurer          string
	NafVehicleRego      string
	NafVehicleMake      string
	NafVehicleModel     string
	NafVehicleYear      *int

	// At-fault (AF) party
	AfName             string `gorm:"not null"`
	AfPhone            string
	AfEmail            string
	AfAddress          string
	AfSuburb           string
	AfState            string `gorm:"type:varchar(3)"`
	AfPostcode         string
	AfClaimNumber      string
	AfInsuranceCompany string
	AfInsurer          string
	AfVehicleRego      string
	AfVehicleMake      string
	AfVehicleModel     string
	AfVehicleYear      *int

	// Assignments (by reference only)
	AssignedLawyerID        *uuid.UUID `gorm:"type:uuid;index"`
	AssignedRentalCompanyID *uuid.UUID `gorm:"type:uuid;index"`
	AssignedBikeID          *uuid.UUID `gorm:"type:uuid;index"`

	// Denormalized financial summary. Independent fields; invoiced also grows
	// as a side effect of bike returns.
	Invoiced float64 `gorm:"not null;default:0"`
	Reserve  float64 `gorm:"not null;default:0"`
	Agreed   float64 `gorm:"not null;default:0"`
	Paid     float64 `gorm:"not null;default:0"`

	// Accident details
	AccidentDate        string
	AccidentTime        string
	AccidentDescription string
	AccidentLocation    string

	CreatedBy     uuid.UUID  `gorm:"type:uuid;not null"`
	LastUpdatedBy *uuid.UUID `gorm:"type:uuid"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Bike is a fleet vehicle. AssignedCaseID is set iff status is On Hire.
type Bike struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Registration   string     `gorm:"uniqueIndex;not null"`
	Make           string     `gorm:"not null"`
	Model          string     `gorm:"not null"`
	Year           int        `gorm:"not null"`
	Color          string
	Vin            string
	EngineNumber   string
	Status         BikeStatus `gorm:"type:varchar(20);default:'Available';index"`
	AssignedCaseID *uuid.UUID `gorm:"type:uuid;index"`

	DailyRate   float64 `gorm:"not null"`
	WeeklyRate  float64 `gorm:"not null"`
	MonthlyRate float64 `gorm:"not null"`

	PurchaseDate    *time.Time
	PurchasePrice   *float64
	CurrentValue    *float64
	LastServiceDate *time.Time
	NextServiceDue  *time.Time
	Notes           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BikeAssignment is the audit record of one rental period. The daily rate is
// captured at assignment time; later bike-rate changes never touch it.
type BikeAssignment struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BikeID       uuid.UUID `gorm:"type:uuid;not null;index"`
	CaseID       uuid.UUID `gorm:"type:uuid;not null;index"`
	AssignedDate time.Time `gorm:"not null;index"`
	ReturnedDate *time.Time
	DailyRate    float64 `gorm:"not null"`
	TotalDays    *int
	TotalCost    *float64
	Notes        string
	AssignedBy   uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}

// FinancialRecord is an append-only audit-trail row for a financial change.
type FinancialRecord struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID      uuid.UUID     `gorm:"type:uuid;not null;index"`
	Type        FinancialType `gorm:"type:varchar(20);not null;index"`
	Amount      float64       `gorm:"not null"`
	Date        time.Time     `gorm:"not null"`
	Description string
	Reference   string
	CreatedBy   uuid.UUID `gorm:"type:uuid;not null"`
}

// Document is a file attached to a case, stored in object storage by key.
type Document struct {
	ID         uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID     uuid.UUID    `gorm:"type:uuid;not null;index"`
	Name       string       `gorm:"not null"`
	Type       DocumentType `gorm:"type:varchar(30);not null;index"`
	Key        string       `gorm:"not null"`
	Mime       string
	Size       int
	UploadedBy uuid.UUID `gorm:"type:uuid;not null"`
	UploadedAt time.Time
}

// CommunicationLog records one interaction on a case.
type CommunicationLog struct {
	ID           uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CaseID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Type         CommType      `gorm:"type:varchar(10);not null;index"`
	Direction    CommDirection `gorm:"type:varchar(10);not null"`
	Subject      string
	Content      string `gorm:"not null"`
	ContactName  string
	ContactEmail string
	ContactPhone string
	Priority     string    `gorm:"type:varchar(10);default:'normal'"`
	CreatedBy    uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt    time.Time
}
