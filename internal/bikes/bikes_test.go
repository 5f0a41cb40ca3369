package bikes

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

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
		&models.User{}, &models.Case{}, &models.Bike{}, &models.BikeAssignment{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	t.Cleanup(func() {
		sql := `
TRUNCATE TABLE
	bike_assignments,
	bikes,
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

// injectAuth sets the locals that MustUserID / MustRole read, so handlers
// can run without a real JWT.
func injectAuth(userID uuid.UUID, role string) fiber.Handler {
	id := userID.String()
	return func(c *fiber.Ctx) error {
		c.Locals("userID", id)
		c.Locals("role", role)
		return c.Next()
	}
}

// newTestApp registers routes in the same order as the server: static paths
// before :id so they don't get shadowed.
func newTestApp(h *Handler, userID uuid.UUID, role string) *fiber.App {
	app := fiber.New()
	app.Use(injectAuth(userID, role))

	app.Get("/api/bikes/stats", h.Stats)
	app.Get("/api/bikes/available", h.Available)
	app.Get("/api/bikes/assignments", h.AssignmentHistory)

	app.Post("/api/bikes", h.Create)
	app.Get("/api/bikes", h.List)
	app.Get("/api/bikes/:id", h.Get)
	app.Patch("/api/bikes/:id", h.Update)
	app.Delete("/api/bikes/:id", h.Remove)
	app.Post("/api/bikes/:id/assign", h.Assign)
	app.Post("/api/bikes/:id/return", h.Return)

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

func seedBike(t *testing.T, tx *gorm.DB, rego string, status models.BikeStatus, dailyRate float64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	if err := tx.Create(&models.Bike{
		ID:           id,
		Registration: rego,
		Make:         "Honda",
		Model:        "CB500",
		Year:         2022,
		Status:       status,
		DailyRate:    dailyRate,
		WeeklyRate:   dailyRate * 6,
		MonthlyRate:  dailyRate * 22,
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
   Unit tests — duration math and stats reducer
   ============================================================================ */

func Test_RentalDays_RoundsUp(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{72 * time.Hour, 3},      // exactly 3 days
		{73 * time.Hour, 4},      // a fraction counts as a full day
		{1 * time.Hour, 1},       // same-day return
		{0, 0},                   // instant return is zero days
		{-24 * time.Hour, -1},    // out-of-order dates pass through
		{24*time.Hour + 1, 2},    // one second over a day
		{7 * 24 * time.Hour, 7},  // a week
		{30 * 24 * time.Hour, 30},
	}
	for _, tc := range cases {
		if got := rentalDays(base, base.Add(tc.elapsed)); got != tc.want {
			t.Errorf("elapsed %v: want %d days, got %d", tc.elapsed, tc.want, got)
		}
	}
}

func Test_ReduceBikeStats(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	soon := now.Add(10 * 24 * time.Hour)
	far := now.Add(60 * 24 * time.Hour)
	past := now.Add(-5 * 24 * time.Hour)
	val1, val2 := 8000.0, 12000.0

	list := []models.Bike{
		{ID: uuid.New(), Registration: "AAA11", Status: models.BikeAvailable, CurrentValue: &val1, NextServiceDue: &soon},
		{ID: uuid.New(), Registration: "BBB22", Status: models.BikeOnHire, CurrentValue: &val2, NextServiceDue: &far},
		{ID: uuid.New(), Registration: "CCC33", Status: models.BikeOnHire, NextServiceDue: &past},
		{ID: uuid.New(), Registration: "DDD44", Status: models.BikeRepair},
	}

	got := ReduceBikeStats(list, now)

	if got.Total != 4 || got.Available != 1 || got.OnHire != 2 || got.InRepair != 1 {
		t.Fatalf("status counts wrong: %+v", got)
	}
	if got.UtilizationRate != 50 {
		t.Fatalf("utilization: want 50, got %v", got.UtilizationRate)
	}
	if got.TotalValue != 20000 || got.AverageValue != 5000 {
		t.Fatalf("value rollup wrong: total %v avg %v", got.TotalValue, got.AverageValue)
	}
	// Only the 10-day-out bike is due: the 60-day one is too far, the past
	// one is overdue rather than upcoming.
	if got.UpcomingServiceCount != 1 || got.UpcomingService[0].Registration != "AAA11" {
		t.Fatalf("upcoming service wrong: %+v", got.UpcomingService)
	}
}

func Test_ReduceBikeStats_EmptyFleet(t *testing.T) {
	got := ReduceBikeStats(nil, time.Now())
	if got.Total != 0 || got.UtilizationRate != 0 || got.AverageValue != 0 {
		t.Fatalf("empty fleet should be all zeros: %+v", got)
	}
}

/* ============================================================================
   Integration tests — assignment lifecycle
   ============================================================================ */

func Test_Assign_HappyPath_FreezesRate(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)
		bikeID := seedBike(t, tx, "XYZ12", models.BikeAvailable, 50)

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		assigned := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		code, body := doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/assign", fiber.Map{
			"case_id":       caseID.String(),
			"daily_rate":    50,
			"assigned_date": assigned,
		})
		if code != 201 {
			t.Fatalf("status %d: %s", code, body)
		}

		var bike models.Bike
		if err := tx.First(&bike, "id = ?", bikeID).Error; err != nil {
			t.Fatal(err)
		}
		if bike.Status != models.BikeOnHire {
			t.Fatalf("bike status: want On Hire, got %q", bike.Status)
		}
		if bike.AssignedCaseID == nil || *bike.AssignedCaseID != caseID {
			t.Fatalf("bike not linked to case")
		}

		var cs models.Case
		if err := tx.First(&cs, "id = ?", caseID).Error; err != nil {
			t.Fatal(err)
		}
		if cs.AssignedBikeID == nil || *cs.AssignedBikeID != bikeID {
			t.Fatalf("case not linked to bike")
		}

		var a models.BikeAssignment
		if err := tx.First(&a, "bike_id = ? AND returned_date IS NULL", bikeID).Error; err != nil {
			t.Fatal(err)
		}
		if a.DailyRate != 50 {
			t.Fatalf("frozen rate: want 50, got %v", a.DailyRate)
		}
		if a.AssignedBy != actorID {
			t.Fatalf("assigned_by: want actor, got %v", a.AssignedBy)
		}
	})
}

func Test_Assign_NonAvailableBike_Conflict(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)

		for _, status := range []models.BikeStatus{
			models.BikeOnHire, models.BikeService, models.BikeRepair, models.BikeUnavailable,
		} {
			bikeID := seedBike(t, tx, "B"+uuid.New().String()[:5], status, 40)

			h := NewHandler(tx)
			app := newTestApp(h, actorID, string(models.RoleAdmin))

			code, _ := doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/assign", fiber.Map{
				"case_id":    caseID.String(),
				"daily_rate": 40,
			})
			if code != 409 {
				t.Fatalf("status %q: want 409, got %d", status, code)
			}
		}
	})
}

func Test_Assign_MissingDailyRate_Rejected(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)
		bikeID := seedBike(t, tx, "NORAT", models.BikeAvailable, 50)

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		// Omitting the rate must not silently freeze $0/day.
		code, body := doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/assign", fiber.Map{
			"case_id": caseID.String(),
		})
		if code != 400 {
			t.Fatalf("missing rate: want 400, got %d: %s", code, body)
		}

		var cnt int64
		if err := tx.Model(&models.BikeAssignment{}).
			Where("bike_id = ?", bikeID).Count(&cnt).Error; err != nil {
			t.Fatal(err)
		}
		if cnt != 0 {
			t.Fatal("assignment created despite missing rate")
		}

		// An explicit zero rate is still a valid value.
		code, body = doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/assign", fiber.Map{
			"case_id":    caseID.String(),
			"daily_rate": 0,
		})
		if code != 201 {
			t.Fatalf("zero rate: want 201, got %d: %s", code, body)
		}

		var a models.BikeAssignment
		if err := tx.First(&a, "bike_id = ?", bikeID).Error; err != nil {
			t.Fatal(err)
		}
		if a.DailyRate != 0 {
			t.Fatalf("frozen rate: want 0, got %v", a.DailyRate)
		}
	})
}

func Test_Return_ComputesCost_AndGrowsInvoiced(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)
		bikeID := seedBike(t, tx, "RTN01", models.BikeAvailable, 50)

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		assigned := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		code, body := doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/assign", fiber.Map{
			"case_id":       caseID.String(),
			"daily_rate":    50,
			"assigned_date": assigned,
		})
		if code != 201 {
			t.Fatalf("assign failed: %d %s", code, body)
		}

		// The rate frozen on the assignment must survive a bike rate change.
		if err := tx.Model(&models.Bike{}).Where("id = ?", bikeID).
			Update("daily_rate", 999).Error; err != nil {
			t.Fatal(err)
		}

		returned := time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)
		code, body = doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/return", fiber.Map{
			"returned_date": returned,
		})
		if code != 200 {
			t.Fatalf("return failed: %d %s", code, body)
		}

		var result ReturnResult
		if err := json.Unmarshal(body, &result); err != nil {
			t.Fatal(err)
		}
		if result.TotalDays != 3 {
			t.Fatalf("total days: want 3, got %d", result.TotalDays)
		}
		if result.TotalCost != 150 {
			t.Fatalf("total cost: want 150, got %v", result.TotalCost)
		}

		var bike models.Bike
		if err := tx.First(&bike, "id = ?", bikeID).Error; err != nil {
			t.Fatal(err)
		}
		if bike.Status != models.BikeAvailable || bike.AssignedCaseID != nil {
			t.Fatalf("bike not freed: status %q, case %v", bike.Status, bike.AssignedCaseID)
		}

		var cs models.Case
		if err := tx.First(&cs, "id = ?", caseID).Error; err != nil {
			t.Fatal(err)
		}
		if cs.Invoiced != 150 {
			t.Fatalf("invoiced: want 150, got %v", cs.Invoiced)
		}
		if cs.AssignedBikeID != nil {
			t.Fatalf("case still linked to bike")
		}

		var a models.BikeAssignment
		if err := tx.First(&a, "bike_id = ?", bikeID).Error; err != nil {
			t.Fatal(err)
		}
		if a.ReturnedDate == nil || a.TotalDays == nil || *a.TotalDays != 3 ||
			a.TotalCost == nil || *a.TotalCost != 150 {
			t.Fatalf("assignment not closed out: %+v", a)
		}
	})
}

func Test_Return_InvoicedIsAdditive_AcrossRentals(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)
		bikeID := seedBike(t, tx, "ADD01", models.BikeAvailable, 100)

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		for i := 0; i < 2; i++ {
			assigned := time.Date(2024, 3, 1+i*10, 0, 0, 0, 0, time.UTC)
			code, _ := doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/assign", fiber.Map{
				"case_id":       caseID.String(),
				"daily_rate":    100,
				"assigned_date": assigned,
			})
			if code != 201 {
				t.Fatalf("assign %d failed: %d", i, code)
			}
			code, _ = doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/return", fiber.Map{
				"returned_date": assigned.Add(48 * time.Hour),
			})
			if code != 200 {
				t.Fatalf("return %d failed: %d", i, code)
			}
		}

		var cs models.Case
		if err := tx.First(&cs, "id = ?", caseID).Error; err != nil {
			t.Fatal(err)
		}
		// Two rentals of 2 days at $100 each.
		if cs.Invoiced != 400 {
			t.Fatalf("invoiced: want 400, got %v", cs.Invoiced)
		}
	})
}

func Test_Return_UnassignedBike_Conflict(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		bikeID := seedBike(t, tx, "FREE1", models.BikeAvailable, 50)

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, _ := doJSON(t, app, "POST", "/api/bikes/"+bikeID.String()+"/return", fiber.Map{})
		if code != 409 {
			t.Fatalf("want 409, got %d", code)
		}
	})
}

func Test_Remove_AssignedBike_Conflict(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)
		bikeID := seedBike(t, tx, "DEL01", models.BikeOnHire, 50)
		if err := tx.Model(&models.Bike{}).Where("id = ?", bikeID).
			Update("assigned_case_id", caseID).Error; err != nil {
			t.Fatal(err)
		}

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, _ := doJSON(t, app, "DELETE", "/api/bikes/"+bikeID.String(), nil)
		if code != 409 {
			t.Fatalf("want 409, got %d", code)
		}
	})
}

func Test_Create_DuplicateRegistration_Conflict(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		seedBike(t, tx, "DUP01", models.BikeAvailable, 50)

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "POST", "/api/bikes", fiber.Map{
			"registration": "dup01", // matching is case-insensitive via uppercasing
			"make":         "Honda",
			"model":        "CB500",
			"year":         2022,
			"daily_rate":   50,
		})
		if code != 409 {
			t.Fatalf("want 409, got %d: %s", code, body)
		}
	})
}

func Test_AssignmentHistory_FiltersAndEnriches(t *testing.T) {
	db := openTestDB(t)
	withTx(t, db, func(tx *gorm.DB) {
		actorID := seedUser(t, tx)
		caseID := seedCase(t, tx, actorID)
		otherCaseID := seedCase(t, tx, actorID)
		bikeID := seedBike(t, tx, "HIS01", models.BikeAvailable, 50)

		for i, cid := range []uuid.UUID{caseID, otherCaseID} {
			if err := tx.Create(&models.BikeAssignment{
				BikeID:       bikeID,
				CaseID:       cid,
				AssignedDate: time.Date(2024, 2, 1+i, 0, 0, 0, 0, time.UTC),
				DailyRate:    50,
				AssignedBy:   actorID,
			}).Error; err != nil {
				t.Fatal(err)
			}
		}

		h := NewHandler(tx)
		app := newTestApp(h, actorID, string(models.RoleAdmin))

		code, body := doJSON(t, app, "GET", "/api/bikes/assignments?case_id="+caseID.String(), nil)
		if code != 200 {
			t.Fatalf("status %d", code)
		}
		var items []HistoryItem
		if err := json.Unmarshal(body, &items); err != nil {
			t.Fatal(err)
		}
		if len(items) != 1 {
			t.Fatalf("want 1 item for case filter, got %d", len(items))
		}
		if items[0].BikeRegistration != "HIS01" {
			t.Fatalf("bike enrichment missing: %+v", items[0])
		}
		if items[0].AssignedByName != "Staff" {
			t.Fatalf("assigner enrichment missing: %+v", items[0])
		}
	})
}
