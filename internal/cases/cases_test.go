package cases

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/pbikerescue/bike-rescue-backend/internal/storage"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"
)

/* ============================================================================
   Helpers
   ============================================================================ */

// openTestDB loads TEST_DATABASE_URL, opens a real Postgres connection,
// runs migrations, and registers a cleanup that truncates test tables after run.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	_ = godotenv.Load()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Fatal("TEST_DATABASE_URL is empty")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Case{}, &models.BikeAssignment{},
		&models.FinancialRecord{}, &models.Document{}, &models.CommunicationLog{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	communication_logs,
	documents,
	financial_records,
	bike_assignments,
	cases,
	users
RESTART IDENTITY CASCADE`
		if err := db.Exec(sql).Error; err != nil {
			t.Logf("truncate failed (ignored): %v", err)
		}
	})

	return db
}

// withTx wraps a function in a DB transaction and commits it at the end.
func withTx(t *testing.T, db *gorm.DB, fn func(tx *gorm.DB)) {
	t.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		t.Fatalf("begin tx: %v", tx.Error)
	}
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	fn(tx)
	if err := tx.Commit().Error; err != nil {
		t.Fatalf("commit tx: %v", err)
	}
}

func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

func newTestApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(injectAuth(userID, role))

	// Static routes first so :id doesn't shadow them.
	app.Get("/api/cases/stats", h.Stats)
	app.Get("/api/cases/by-number/:number", h.GetByNumber)

	app.Post("/api/cases", h.Create)
	app.Get("/api/cases", h.List)
	app.Get("/api/cases/:id", h.Get)
	app.Patch("/api/cases/:id", h.Update)
	app.Delete("/api/cases/:id", h.Remove)
	app.Patch("/api/cases/:id/financials", h.UpdateFinancials)
	app.Get("/api/cases/:id/financials", h.ListFinancials)
	app.Post("/api/cases/:id/communications", h.CreateCommunication)
	app.Get("/api/cases/:id/communications", h.ListCommunications)

	return app
}

func seedUser(t *testing.T, tx *gorm.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := tx.Create(&models.User{
		ID:           id,
		Email:        "staff_" + id.String()[:8] + "@x.com",
		PasswordHash: "x",
		Name:         "Staff",
		Role:         models.RoleAdmin,
	}).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func seedCase(t *testing.T, tx *gorm.DB, createdBy uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := tx.Create(&models.Case{
		ID:         id,
		CaseNumber: "0101" + id.String()[:3],
		Status:     models.CaseNewMatter,
		NafName:    "Rider",
		AfName:     "Driver",
		CreatedBy:  createdBy,
		CreatedAt:  time.Now(),
	}).Error; err != nil {
		t.Fatal(err)
	}
	return id
}

func doJSON(t *testing.T, app *fiber.App, method, url string, payload any) (int, []byte) {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp.StatusCode, buf.Bytes()
}

/* ============================================================================
   Unit tests — stats reducer
   ============================================================================ */

func Test_ReduceCaseStats(t *testing.T) {
	list := []models.Case{
		{Status: models.CaseNewMatter, Invoiced: 1000, Paid: 250},
		{Status: models.CaseNewMatter, Invoiced: 500, Paid: 500},
		{Status: models.CasePaid, Invoiced: 2500, Paid: 2250},
		{Status: models.CaseClosed},
	}

	got := ReduceCaseStats(list)

	if got.TotalCases != 4 {
		t.Fatalf("total cases: want 4, got %d", got.TotalCases)
	}
	if got.TotalInvoiced != 4000 || got.TotalPaid != 3000 || got.TotalOutstanding != 1000 {
		t.Fatalf("money rollup wrong: %+v", got)
	}
	if got.AverageInvoiced != 1000 {
		t.Fatalf("average invoiced: want 1000, got %v", got.AverageInvoiced)
	}
	if got.CollectionRate != 75 {
		t.Fatalf("collection rate: want 75, got %v", got.CollectionRate)
	}
	if got.StatusCounts["New Matter"] != 2 || got.StatusCounts["Paid"] != 1 || got.StatusCounts["Closed"] != 1 {
		t.Fatalf("status counts wrong: %+v", got.StatusCounts)
	}
}

func Test_ReduceCaseStats_Empty(t *testing.T) {
	got := ReduceCaseStats(nil)
	if got.TotalCases != 0 || got.AverageInvoiced != 0 || got.CollectionRate != 0 {
		t.Fatalf("empty stats should be zeros: %+v", got)
	}
}

/* ============================================================================
   Integration tests
   ============================================================================ */

func Test_Create_AllocatesNumber_AndDefaults(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "POST", "/api/cases", fiber.Map{
			"naf_name": "Jane Rider",
			"af_name":  "John Driver",
		})
		if code != 201 {
			t.Fatalf("status %d: %s", code, body)
		}

		var out struct {
			ID         uuid.UUID `json:"id"`
			CaseNumber string    `json:"case_number"`
		}
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatal(err)
		}
		if len(out.CaseNumber) != 7 {
			t.Fatalf("case number: want 7 digits, got %q", out.CaseNumber)
		}

		var cs models.Case
		if err := tx.First(&cs, "id = ?", out.ID).Error; err != nil {
			t.Fatal(err)
		}
		if cs.Status != models.CaseNewMatter {
			t.Fatalf("default status: want New Matter, got %q", cs.Status)
		}
		if cs.CreatedBy != actorID {
			t.Fatalf("created_by: want actor, got %v", cs.CreatedBy)
		}
	})
}

// seedNumberBucket inserts cases holding the given sequences of the current
// WWMM bucket, so collision behavior can be driven deterministically.
func seedNumberBucket(t *testing.T, tx *gorm.DB, createdBy uuid.UUID, seqs []int) {
	t.Helper()
	prefix := caseNumberAt(time.Now())[:4]
	rows := make([]models.Case, 0, len(seqs))
	for _, seq := range seqs {
		rows = append(rows, models.Case{
			CaseNumber: prefix + strconv.Itoa(seq),
			Status:     models.CaseNewMatter,
			NafName:    "Rider",
			AfName:     "Driver",
			CreatedBy:  createdBy,
			CreatedAt:  time.Now(),
		})
	}
	if err := tx.CreateInBatches(rows, 200).Error; err != nil {
		t.Fatal(err)
	}
}

func Test_UniqueCaseNumber_RegeneratesOnCollision(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)

		// Occupy every sequence but one; the generator has to land on the gap.
		const free = 555
		seqs := make([]int, 0, 899)
		for seq := 100; seq <= 999; seq++ {
			if seq != free {
				seqs = append(seqs, seq)
			}
		}
		seedNumberBucket(t, tx, actorID, seqs)

		want := caseNumberAt(time.Now())[:4] + strconv.Itoa(free)
		n, err := uniqueCaseNumber(tx)
		if err != nil {
			t.Fatalf("generator gave up with one number free: %v", err)
		}
		if n != want {
			t.Fatalf("want the only free number %q, got %q", want, n)
		}
	})
}

func Test_UniqueCaseNumber_ExhaustedBucket(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)

		seqs := make([]int, 0, 900)
		for seq := 100; seq <= 999; seq++ {
			seqs = append(seqs, seq)
		}
		seedNumberBucket(t, tx, actorID, seqs)

		if _, err := uniqueCaseNumber(tx); err == nil {
			t.Fatal("want exhaustion error from a full bucket")
		}

		// And the create endpoint surfaces it as a conflict.
		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "POST", "/api/cases", fiber.Map{
			"naf_name": "Jane Rider",
			"af_name":  "John Driver",
		})
		if code != 409 {
			t.Fatalf("full bucket: want 409, got %d: %s", code, body)
		}
	})
}

func Test_GetByNumber(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)

		var cs models.Case
		if err := tx.First(&cs, "id = ?", caseID).Error; err != nil {
			t.Fatal(err)
		}

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "GET", "/api/cases/by-number/"+cs.CaseNumber, nil)
		if code != 200 {
			t.Fatalf("status %d: %s", code, body)
		}

		code, _ = doJSON(t, app, "GET", "/api/cases/by-number/9999999", nil)
		if code != 404 {
			t.Fatalf("unknown number: want 404, got %d", code)
		}
	})
}

func Test_UpdateFinancials_PatchAndAudit(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "PATCH", "/api/cases/"+caseID.String()+"/financials", fiber.Map{
			"invoiced": 1000,
			"paid":     250,
		})
		if code != 200 {
			t.Fatalf("status %d: %s", code, body)
		}

		var cs models.Case
		if err := tx.First(&cs, "id = ?", caseID).Error; err != nil {
			t.Fatal(err)
		}
		if cs.Invoiced != 1000 || cs.Paid != 250 {
			t.Fatalf("fields not patched: invoiced %v paid %v", cs.Invoiced, cs.Paid)
		}
		// Untouched fields stay put.
		if cs.Reserve != 0 || cs.Agreed != 0 {
			t.Fatalf("untouched fields changed: reserve %v agreed %v", cs.Reserve, cs.Agreed)
		}

		var rec models.FinancialRecord
		if err := tx.First(&rec, "case_id = ?", caseID).Error; err != nil {
			t.Fatal(err)
		}
		// Paid wins the audit-amount precedence over invoiced.
		if rec.Amount != 250 {
			t.Fatalf("audit amount: want 250, got %v", rec.Amount)
		}
		if rec.Type != models.FinAdjustment {
			t.Fatalf("audit type: want Adjustment, got %q", rec.Type)
		}
		if !strings.Contains(rec.Description, "invoiced") || !strings.Contains(rec.Description, "paid") {
			t.Fatalf("audit description missing fields: %q", rec.Description)
		}
		if rec.CreatedBy != actorID {
			t.Fatalf("audit created_by: want actor, got %v", rec.CreatedBy)
		}
	})
}

func Test_Remove_CascadesRelatedRows(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)

		if err := tx.Create(&models.FinancialRecord{
			CaseID: caseID, Type: models.FinInvoice, Amount: 100,
			Date: time.Now(), CreatedBy: actorID,
		}).Error; err != nil {
			t.Fatal(err)
		}
		if err := tx.Create(&models.CommunicationLog{
			CaseID: caseID, Type: models.CommPhone, Direction: models.CommOutbound,
			Content: "left a voicemail", CreatedBy: actorID,
		}).Error; err != nil {
			t.Fatal(err)
		}
		if err := tx.Create(&models.BikeAssignment{
			BikeID: uuid.New(), CaseID: caseID,
			AssignedDate: time.Now(), DailyRate: 50, AssignedBy: actorID,
		}).Error; err != nil {
			t.Fatal(err)
		}
		if err := tx.Create(&models.Document{
			CaseID: caseID, Name: "claim.pdf", Type: models.DocClaims,
			Key: "cases/x/claim.pdf", UploadedBy: actorID, UploadedAt: time.Now(),
		}).Error; err != nil {
			t.Fatal(err)
		}

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "DELETE", "/api/cases/"+caseID.String(), nil)
		if code != 200 {
			t.Fatalf("status %d: %s", code, body)
		}

		for _, m := range []any{
			&models.FinancialRecord{}, &models.CommunicationLog{},
			&models.BikeAssignment{}, &models.Document{},
		} {
			var cnt int64
			if err := tx.Model(m).Where("case_id = ?", caseID).Count(&cnt).Error; err != nil {
				t.Fatal(err)
			}
			if cnt != 0 {
				t.Fatalf("%T rows survived case delete", m)
			}
		}
		var cnt int64
		if err := tx.Model(&models.Case{}).Where("id = ?", caseID).Count(&cnt).Error; err != nil {
			t.Fatal(err)
		}
		if cnt != 0 {
			t.Fatal("case row survived delete")
		}
	})
}

func Test_List_StatusFilter_Validated(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		seedCase(t, tx, actorID)

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, _ := doJSON(t, app, "GET", "/api/cases?status=Bogus", nil)
		if code != 400 {
			t.Fatalf("bogus status: want 400, got %d", code)
		}

		code, body := doJSON(t, app, "GET", "/api/cases?status=New+Matter", nil)
		if code != 200 {
			t.Fatalf("status %d", code)
		}
		var list []models.Case
		if err := json.Unmarshal(body, &list); err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 {
			t.Fatalf("want 1 case, got %d", len(list))
		}
	})
}

func Test_Communications_CreateAndList(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "POST", "/api/cases/"+caseID.String()+"/communications", fiber.Map{
			"type":      "Phone",
			"direction": "Outbound",
			"content":   "called insurer about claim",
		})
		if code != 201 {
			t.Fatalf("status %d: %s", code, body)
		}

		code, body = doJSON(t, app, "GET", "/api/cases/"+caseID.String()+"/communications", nil)
		if code != 200 {
			t.Fatalf("status %d", code)
		}
		var logs []models.CommunicationLog
		if err := json.Unmarshal(body, &logs); err != nil {
			t.Fatal(err)
		}
		if len(logs) != 1 || logs[0].Priority != "normal" {
			t.Fatalf("want 1 log with normal priority, got %+v", logs)
		}
	})
}

func Test_Communications_PriorityEnum(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)

		h := NewHandler(tx, storage.NewSupabase())
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		// Every priority level is accepted, urgent included.
		for _, priority := range []string{"low", "normal", "high", "urgent"} {
			code, body := doJSON(t, app, "POST", "/api/cases/"+caseID.String()+"/communications", fiber.Map{
				"type":      "Email",
				"direction": "Inbound",
				"content":   "escalation from insurer",
				"priority":  priority,
			})
			if code != 201 {
				t.Fatalf("priority %q: want 201, got %d: %s", priority, code, body)
			}
		}

		code, _ := doJSON(t, app, "POST", "/api/cases/"+caseID.String()+"/communications", fiber.Map{
			"type":      "Email",
			"direction": "Inbound",
			"content":   "x",
			"priority":  "critical",
		})
		if code != 400 {
			t.Fatalf("unknown priority: want 400, got %d", code)
		}

		var cnt int64
		if err := tx.Model(&models.CommunicationLog{}).
			Where("case_id = ? AND priority = ?", caseID, "urgent").
			Count(&cnt).Error; err != nil {
			t.Fatal(err)
		}
		if cnt != 1 {
			t.Fatalf("urgent log not stored, count %d", cnt)
		}
	})
}
