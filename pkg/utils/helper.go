package utils

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
)

// LogFinancialRecord appends an audit row to financial_records.
// Used to track financial changes on a case.
// Errors are ignored on purpose (best-effort logging).
func LogFinancialRecord(
	ctx context.Context,
	db *gorm.DB,
	caseID, actorID uuid.UUID,
	typ models.FinancialType,
	amount float64,
	description string,
) {
	_ = db.WithContext(ctx).Create(&models.FinancialRecord{
		CaseID:      caseID,
		Type:        typ,
		Amount:      amount,
		Date:        time.Now(),
		Description: description,
		CreatedBy:   actorID,
	}).Error
}
