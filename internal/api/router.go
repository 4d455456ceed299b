package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/erazemk/inventar/internal/activity"
	"github.com/erazemk/inventar/internal/assist"
	"github.com/erazemk/inventar/internal/due"
	"github.com/erazemk/inventar/internal/events"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/store"
	"github.com/erazemk/inventar/internal/users"
)

// Deps holds everything the handlers need.
type Deps struct {
	Repo      *store.Repository
	Inventory *inventory.Service
	Users     *users.Service
	Activity  *activity.Recorder
	Due       *due.Service
	Assist    assist.Checker
	Events    events.Subscriber
	Log       *zap.Logger

	JWTSecret string
	TokenTTL  time.Duration
	Location  *time.Location

	// LoginRate and LoginBurst throttle the unauthenticated auth endpoints per client IP.
	LoginRate  rate.Limit
	LoginBurst int
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Assist == nil {
		d.Assist = assist.Disabled{}
	}
	if d.LoginBurst < 1 {
		d.LoginBurst = 5
	}
	if d.LoginRate == 0 {
		d.LoginRate = rate.Every(5 * time.Second)
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{Users: d.Users, Repo: d.Repo, JWTSecret: d.JWTSecret, TokenTTL: d.TokenTTL, Log: d.Log}
	usersHandler := &UsersHandler{Users: d.Users}
	itemsHandler := &ItemsHandler{Inventory: d.Inventory, Assist: d.Assist, Location: d.Location}
	categoriesHandler := &CategoriesHandler{Inventory: d.Inventory}
	dueHandler := &DueHandler{Due: d.Due}
	logsHandler := &LogsHandler{Activity: d.Activity, Location: d.Location}
	imagesHandler := &ImagesHandler{Inventory: d.Inventory}
	dashboardHandler := &DashboardHandler{Inventory: d.Inventory, Due: d.Due}
	eventsHandler := &EventsHandler{Events: d.Events, Log: d.Log}
	healthHandler := &HealthHandler{Repo: d.Repo}

	authMW := AuthMiddleware(d.JWTSecret, d.Repo)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireSuperAdmin := RequireRole(model.RoleSuperAdmin)
	throttle := NewRateLimiter(d.LoginRate, d.LoginBurst).Middleware

	mux.HandleFunc("GET /api/health", healthHandler.Get)

	// Public, throttled.
	mux.Handle("POST /api/auth/login", throttle(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /api/auth/signup", throttle(http.HandlerFunc(authHandler.Signup)))
	mux.Handle("POST /api/auth/forgot-password", throttle(http.HandlerFunc(authHandler.ForgotPassword)))
	mux.Handle("POST /api/auth/reset-password", throttle(http.HandlerFunc(authHandler.ResetPassword)))

	// Hosted images are referenced from <img> tags, which send no token.
	mux.HandleFunc("GET /api/images/{id}", imagesHandler.Get)

	// Current user.
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(authHandler.Me)))
	mux.Handle("PUT /api/auth/profile", authMW(http.HandlerFunc(authHandler.UpdateProfile)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users: approvals (admin+), administration (super admin).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("GET /api/users/pending", authMW(requireAdmin(http.HandlerFunc(usersHandler.Pending))))
	mux.Handle("POST /api/users", authMW(requireSuperAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}", authMW(requireSuperAdmin(http.HandlerFunc(usersHandler.Update))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireSuperAdmin(http.HandlerFunc(usersHandler.Delete))))
	mux.Handle("POST /api/users/{id}/approve", authMW(requireAdmin(http.HandlerFunc(usersHandler.Approve))))
	mux.Handle("POST /api/users/{id}/deny", authMW(requireAdmin(http.HandlerFunc(usersHandler.Deny))))

	// Items: read (all roles), write (admin+).
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Create))))
	mux.Handle("POST /api/items/validate-description", authMW(requireAdmin(http.HandlerFunc(itemsHandler.ValidateDescription))))
	mux.Handle("GET /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Get)))
	mux.Handle("PUT /api/items/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Update))))
	mux.Handle("DELETE /api/items/{id}", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Delete))))
	mux.Handle("PUT /api/items/{id}/stock", authMW(requireAdmin(http.HandlerFunc(itemsHandler.SetStock))))
	mux.Handle("PUT /api/items/{id}/image", authMW(requireAdmin(http.HandlerFunc(itemsHandler.UploadImage))))
	mux.Handle("GET /api/items/{id}/transactions", authMW(http.HandlerFunc(itemsHandler.Transactions)))
	mux.Handle("POST /api/items/{id}/borrow", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Borrow))))
	mux.Handle("POST /api/items/{id}/return", authMW(requireAdmin(http.HandlerFunc(itemsHandler.Return))))
	mux.Handle("GET /api/transactions", authMW(http.HandlerFunc(itemsHandler.Recent)))

	// Images uploaded before an item exists.
	mux.Handle("POST /api/images", authMW(requireAdmin(http.HandlerFunc(imagesHandler.Upload))))

	// Categories.
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("PUT /api/categories", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Save))))

	mux.Handle("GET /api/due-items", authMW(http.HandlerFunc(dueHandler.List)))
	mux.Handle("GET /api/dashboard", authMW(http.HandlerFunc(dashboardHandler.Get)))

	// Logs: read (admin+), hide and delete (super admin).
	mux.Handle("GET /api/logs", authMW(requireAdmin(http.HandlerFunc(logsHandler.List))))
	mux.Handle("PUT /api/logs/{id}/hidden", authMW(requireSuperAdmin(http.HandlerFunc(logsHandler.ToggleHidden))))
	mux.Handle("DELETE /api/logs/{id}", authMW(requireSuperAdmin(http.HandlerFunc(logsHandler.Delete))))

	mux.Handle("GET /api/events", authMW(http.HandlerFunc(eventsHandler.Stream)))

	return mux
}
