package api

import (
	"database/sql"
	"net/http"

	"github.com/obrastock/obrastock/internal/model"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	toolsHandler := &ToolsHandler{DB: db}
	loansHandler := &LoansHandler{DB: db}
	movementsHandler := &MovementsHandler{DB: db}
	dashboardHandler := &DashboardHandler{DB: db}

	authMW := AuthMiddleware(jwtSecret, db)
	canWrite := RequirePermission(model.PermWrite)
	canDelete := RequirePermission(model.PermDelete)
	canManageUsers := RequirePermission(model.PermManageUsers)

	// Public: login and registration.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)

	// Authenticated session management.
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))

	// Dashboard.
	mux.Handle("GET /api/dashboard/stats", authMW(http.HandlerFunc(dashboardHandler.Stats)))

	// Tools: read (all roles), write (all roles), delete (admin only).
	mux.Handle("GET /api/tools", authMW(http.HandlerFunc(toolsHandler.List)))
	mux.Handle("POST /api/tools", authMW(canWrite(http.HandlerFunc(toolsHandler.Create))))
	mux.Handle("GET /api/tools/{id}", authMW(http.HandlerFunc(toolsHandler.Get)))
	mux.Handle("GET /api/tools/code/{code}", authMW(http.HandlerFunc(toolsHandler.GetByCode)))
	mux.Handle("PATCH /api/tools/{id}", authMW(canWrite(http.HandlerFunc(toolsHandler.Update))))
	mux.Handle("POST /api/tools/{id}/adjust", authMW(canWrite(http.HandlerFunc(toolsHandler.AdjustStock))))
	mux.Handle("DELETE /api/tools/{id}", authMW(canDelete(http.HandlerFunc(toolsHandler.Delete))))
	mux.Handle("PUT /api/tools/{id}/image", authMW(canWrite(http.HandlerFunc(toolsHandler.UploadImage))))
	mux.Handle("GET /api/tools/{id}/image", authMW(http.HandlerFunc(toolsHandler.GetImage)))

	// Loans.
	mux.Handle("GET /api/loans", authMW(http.HandlerFunc(loansHandler.List)))
	mux.Handle("GET /api/loans/active", authMW(http.HandlerFunc(loansHandler.ListActive)))
	mux.Handle("GET /api/loans/overdue", authMW(http.HandlerFunc(loansHandler.ListOverdue)))
	mux.Handle("POST /api/loans", authMW(canWrite(http.HandlerFunc(loansHandler.Create))))
	mux.Handle("PATCH /api/loans/{id}/return", authMW(canWrite(http.HandlerFunc(loansHandler.Return))))

	// Movement ledger.
	mux.Handle("GET /api/inventory/movements", authMW(http.HandlerFunc(movementsHandler.List)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(canManageUsers(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(canManageUsers(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(canManageUsers(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(canManageUsers(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("PUT /api/users/{id}/password", authMW(canManageUsers(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(canManageUsers(http.HandlerFunc(usersHandler.Delete))))

	return mux
}
