package routes

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"p9e.in/siyana/handlers"
	"p9e.in/siyana/middleware"
	"p9e.in/siyana/models"
)

var adminOnly = []string{models.RoleAdmin}

// RegisterRoutes sets up all application routes
func RegisterRoutes() http.Handler {
	r := mux.NewRouter()
	r.Use(accessLog)

	// =====================================================
	// Public Routes (no authentication)
	// =====================================================
	r.HandleFunc("/login", handlers.Login).Methods("POST")
	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir("./uploads"))),
	)

	// =====================================================
	// Protected API Routes (require JWT authentication)
	// =====================================================
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.JWTMiddleware)

	api.HandleFunc("/me", handlers.GetCurrentUser).Methods("GET")

	registerConfigRoutes(api)
	registerReportRoutes(api)
	registerInventoryRoutes(api)

	api.HandleFunc("/branches", handlers.ListBranches).Methods("GET")
	api.HandleFunc("/files/upload", handlers.UploadEvidence).Methods("POST")

	// =====================================================
	// Admin Routes
	// =====================================================
	admin := api.PathPrefix("/admin").Subrouter()
	registerAdminRoutes(admin)

	return r
}

// accessLog records every request with caller identity when available.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		user := "-"
		if claims := middleware.GetClaims(r); claims != nil {
			user = claims.UserID
		}
		log.Printf("[HTTP] %s %s user=%s ip=%s took=%s",
			r.Method, r.URL.Path, user, middleware.GetClientIP(r), time.Since(start))
	})
}

// registerConfigRoutes wires the dynamic form configuration. Reading is
// open to every authenticated role; mutations are admin only.
func registerConfigRoutes(api *mux.Router) {
	api.HandleFunc("/config", handlers.GetSystemConfig).Methods("GET")

	api.Handle("/config", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.UpdateSystemConfig))).Methods("PUT")
	api.Handle("/config/{section}/fields", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.AddConfigField))).Methods("POST")
	api.Handle("/config/{section}/fields/{fieldId}", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.UpdateConfigField))).Methods("PATCH")
	api.Handle("/config/{section}/fields/{fieldId}", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.RemoveConfigField))).Methods("DELETE")
	api.Handle("/config/{section}/reorder", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.ReorderConfigFields))).Methods("POST")
	api.Handle("/config/features/{name}", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.ToggleFeature))).Methods("POST")
}

// registerReportRoutes wires the ticket lifecycle.
func registerReportRoutes(api *mux.Router) {
	api.Handle("/reports", middleware.RequireRole(
		[]string{models.RoleAdmin, models.RoleBranchManager},
		http.HandlerFunc(handlers.CreateReport))).Methods("POST")
	api.HandleFunc("/reports", handlers.ListReports).Methods("GET")
	api.HandleFunc("/reports/classify", handlers.ClassifyText).Methods("POST")
	api.HandleFunc("/reports/{id}", handlers.GetReport).Methods("GET")
	api.HandleFunc("/reports/{id}/comments", handlers.AddComment).Methods("POST")

	// Workflow transitions
	api.Handle("/reports/{id}/assign", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.AssignReport))).Methods("POST")
	api.Handle("/reports/{id}/arrive", middleware.RequireRole(
		[]string{models.RoleAdmin, models.RoleTechnician},
		http.HandlerFunc(handlers.ConfirmArrival))).Methods("POST")
	api.Handle("/reports/{id}/request-parts", middleware.RequireRole(
		[]string{models.RoleAdmin, models.RoleTechnician},
		http.HandlerFunc(handlers.RequestParts))).Methods("POST")
	api.Handle("/reports/{id}/complete", middleware.RequireRole(
		[]string{models.RoleAdmin, models.RoleTechnician},
		http.HandlerFunc(handlers.CompleteReport))).Methods("POST")

	// Technician task list
	api.Handle("/tasks", middleware.RequireRole(
		[]string{models.RoleTechnician},
		http.HandlerFunc(handlers.MyTasks))).Methods("GET")
}

// registerInventoryRoutes wires spare-part stock.
func registerInventoryRoutes(api *mux.Router) {
	api.HandleFunc("/parts", handlers.ListSpareParts).Methods("GET")
	api.Handle("/parts", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.CreateSparePart))).Methods("POST")
	api.Handle("/parts/{id}", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.UpdateSparePart))).Methods("PATCH")
	api.Handle("/parts/{id}", middleware.RequireRole(adminOnly,
		http.HandlerFunc(handlers.DeleteSparePart))).Methods("DELETE")
}

// registerAdminRoutes wires everything behind the admin role.
func registerAdminRoutes(admin *mux.Router) {
	admin.Use(func(next http.Handler) http.Handler {
		return middleware.RequireRole(adminOnly, next)
	})

	// Accounts
	admin.HandleFunc("/users", handlers.GetAllUsers).Methods("GET")
	admin.HandleFunc("/users", handlers.Register).Methods("POST")
	admin.HandleFunc("/users/{id}", handlers.UpdateUser).Methods("PATCH")
	admin.HandleFunc("/users/{id}", handlers.DeactivateUser).Methods("DELETE")
	admin.HandleFunc("/technicians", handlers.ListTechnicians).Methods("GET")

	// Branches
	admin.HandleFunc("/branches", handlers.CreateBranch).Methods("POST")
	admin.HandleFunc("/branches/{id}", handlers.UpdateBranch).Methods("PATCH")

	// Ticket lifecycle tail + God mode
	admin.HandleFunc("/reports/{id}/close", handlers.CloseReport).Methods("POST")
	admin.HandleFunc("/reports/{id}/reality", handlers.RealityEdit).Methods("PATCH")

	// Exports and dashboard
	admin.HandleFunc("/reports/export/excel", handlers.ExportReportsToExcel).Methods("GET")
	admin.HandleFunc("/reports/export/csv", handlers.ExportReportsToCSV).Methods("GET")
	admin.HandleFunc("/dashboard", handlers.DashboardStats).Methods("GET")

	// Offline sync queue
	admin.HandleFunc("/sync/status", handlers.SyncStatus).Methods("GET")
	admin.HandleFunc("/sync/flush", handlers.TriggerSync).Methods("POST")
}
