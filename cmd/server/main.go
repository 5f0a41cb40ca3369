// @title           Bike Rescue API
// @version         1.0
// @description     Backend for a motorbike accident-rental business: recovery cases, fleet bikes, business contacts, partner workspaces and case financials.
// @BasePath        /api
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
// @description     Format: Bearer <token>
package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"

	"github.com/pbikerescue/bike-rescue-backend/pkg/database"
	"github.com/pbikerescue/bike-rescue-backend/pkg/models"

	"github.com/pbikerescue/bike-rescue-backend/internal/auth"
	"github.com/pbikerescue/bike-rescue-backend/internal/bikes"
	"github.com/pbikerescue/bike-rescue-backend/internal/cases"
	"github.com/pbikerescue/bike-rescue-backend/internal/contacts"
	"github.com/pbikerescue/bike-rescue-backend/internal/storage"
	"github.com/pbikerescue/bike-rescue-backend/internal/workspaces"
)

func main() {
	_ = godotenv.Load()

	db := database.Init()
	if err := db.AutoMigrate(
		&models.User{}, &models.Workspace{}, &models.Contact{},
		&models.Case{}, &models.Bike{}, &models.BikeAssignment{},
		&models.FinancialRecord{}, &models.Document{}, &models.CommunicationLog{},
	); err != nil {
		log.Fatal("migration failed:", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: auth.ErrorHandler,
	})

	app.Get("/health", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"status": "ok"}) })

	api := app.Group("/api")

	// Auth
	authH := auth.NewHandler(db)
	api.Post("/signup", authH.Signup)
	api.Post("/login", authH.Login)
	api.Get("/me", auth.RequireAuth(), authH.Me)

	sb := storage.NewSupabase() // uses SUPABASE_URL / SUPABASE_SERVICE_KEY / SUPABASE_BUCKET

	adminOnly := auth.RequireRole("admin", "developer")

	// Cases. Static routes go before the :id wildcard.
	caseH := cases.NewHandler(db, sb)
	api.Post("/cases", auth.RequireAuth(), caseH.Create)
	api.Get("/cases", auth.RequireAuth(), caseH.List)
	api.Get("/cases/stats", auth.RequireAuth(), caseH.Stats)
	api.Get("/cases/by-number/:number", auth.RequireAuth(), caseH.GetByNumber)
	api.Get("/cases/:id", auth.RequireAuth(), caseH.Get)
	api.Patch("/cases/:id", auth.RequireAuth(), caseH.Update)
	api.Delete("/cases/:id", auth.RequireAuth(), caseH.Remove)
	api.Patch("/cases/:id/financials", auth.RequireAuth(), caseH.UpdateFinancials)
	api.Get("/cases/:id/financials", auth.RequireAuth(), caseH.ListFinancials)
	api.Post("/cases/:id/documents", auth.RequireAuth(), caseH.UploadDocuments)
	api.Get("/cases/:id/documents", auth.RequireAuth(), caseH.ListDocuments)
	api.Post("/cases/:id/communications", auth.RequireAuth(), caseH.CreateCommunication)
	api.Get("/cases/:id/communications", auth.RequireAuth(), caseH.ListCommunications)
	api.Get("/documents/:docID/signed-url", auth.RequireAuth(), caseH.SignedDocumentURL)
	api.Delete("/documents/:docID", auth.RequireAuth(), caseH.DeleteDocument)

	// Bikes
	bikeH := bikes.NewHandler(db)
	api.Post("/bikes", auth.RequireAuth(), bikeH.Create)
	api.Get("/bikes", auth.RequireAuth(), bikeH.List)
	api.Get("/bikes/stats", auth.RequireAuth(), bikeH.Stats)
	api.Get("/bikes/available", auth.RequireAuth(), bikeH.Available)
	api.Get("/bikes/assignments", auth.RequireAuth(), bikeH.AssignmentHistory)
	api.Get("/bikes/:id", auth.RequireAuth(), bikeH.Get)
	api.Patch("/bikes/:id", auth.RequireAuth(), bikeH.Update)
	api.Delete("/bikes/:id", auth.RequireAuth(), bikeH.Remove)
	api.Post("/bikes/:id/assign", auth.RequireAuth(), bikeH.Assign)
	api.Post("/bikes/:id/return", auth.RequireAuth(), bikeH.Return)

	// Contacts
	contactH := contacts.NewHandler(db)
	api.Post("/contacts", auth.RequireAuth(), contactH.Create)
	api.Get("/contacts", auth.RequireAuth(), contactH.List)
	api.Get("/contacts/stats", auth.RequireAuth(), contactH.Stats)
	api.Get("/contacts/lawyers", auth.RequireAuth(), contactH.Lawyers)
	api.Get("/contacts/rental-companies", auth.RequireAuth(), contactH.RentalCompanies)
	api.Get("/contacts/insurers", auth.RequireAuth(), contactH.Insurers)
	api.Get("/contacts/:id", auth.RequireAuth(), contactH.Get)
	api.Patch("/contacts/:id", auth.RequireAuth(), contactH.Update)
	api.Delete("/contacts/:id", auth.RequireAuth(), adminOnly, contactH.Remove)

	// Workspaces
	wsH := workspaces.NewHandler(db)
	api.Post("/workspaces", auth.RequireAuth(), adminOnly, wsH.Create)
	api.Get("/workspaces", auth.RequireAuth(), wsH.List)
	api.Get("/workspaces/stats", auth.RequireAuth(), wsH.Stats)
	api.Get("/workspaces/mine", auth.RequireAuth(), wsH.Mine)
	api.Get("/workspaces/:id", auth.RequireAuth(), wsH.Get)
	api.Patch("/workspaces/:id", auth.RequireAuth(), adminOnly, wsH.Update)
	api.Delete("/workspaces/:id", auth.RequireAuth(), adminOnly, wsH.Remove)
	api.Post("/workspaces/:id/users", auth.RequireAuth(), adminOnly, wsH.AssignUser)
	api.Delete("/workspaces/:id/users/:userId", auth.RequireAuth(), adminOnly, wsH.RemoveUser)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}
	log.Println("Server running on :" + port)
	log.Fatal(app.Listen(":" + port))
}
