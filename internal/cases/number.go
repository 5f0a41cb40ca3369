package cases

import (
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
)

// maxNumberAttempts caps the collision retry loop. The random space is only
// 900 values per week/month bucket, so exhaustion means the bucket is nearly
// full and we surface a conflict instead of spinning forever.
const maxNumberAttempts = 64

// caseNumberAt builds a WWMM### case number for the given moment:
// WW = zero-padded week-of-month indicator ceil((dayOfMonth + weekday)/7)
// with weekday numbered Sunday=0, MM = zero-padded month, ### = random
// integer in [100, 999].
func caseNumberAt(t time.Time) string {
	week := (t.Day() + int(t.Weekday()) + 6) / 7
	seq := rand.Intn(900) + 100
	return fmt.Sprintf("%02d%02d%03d", week, int(t.Month()), seq)
}

// uniqueCaseNumber generates a case number not yet present in the store,
// regenerating on collision up to maxNumberAttempts times.
func uniqueCaseNumber(db *gorm.DB) (string, error) {
	for i := 0; i < maxNumberAttempts; i++ {
		n := caseNumberAt(time.Now())
		var cnt int64
		if err := db.Model(&models.Case{}).Where("case_number = ?", n).Count(&cnt).Error; err != nil {
			return "", err
		}
		if cnt == 0 {
			return n, nil
		}
	}
	return "", fmt.Errorf("case number space exhausted after %d attempts", maxNumberAttempts)
}
