package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/tabwave/payvault/internal/service"
	"github.com/tabwave/payvault/internal/store"
	"github.com/tabwave/payvault/pkg/httpx"
	"github.com/tabwave/payvault/pkg/jwtx"
	"github.com/tabwave/payvault/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier  jwtx.Verifier
	version   string
	startTime time.Time
	logger    *slog.Logger

	store    store.Store
	sessions store.Sessions

	AuthService     *service.AuthService
	UserService     *service.UserService
	BalanceService  *service.BalanceService
	MerchantService *service.MerchantService
	AuditService    *service.AuditService
}

func NewRouter(
	verifier jwtx.Verifier,
	version string,
	st store.Store,
	sessions store.Sessions,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:       http.NewServeMux(),
		verifier:  verifier,
		version:   version,
		startTime: time.Now(),
		store:     st,
		sessions:  sessions,
		logger:    logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerBalance()
	r.registerMerchant()
	r.registerAudit()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	// Credential endpoints get the strict limit: they are the brute-force
	// surface.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Step-up re-verifies the password, so it is limited like login.
	r.Mux.Handle("POST /v1/auth/reauth",
		httpx.Chain(http.HandlerFunc(h.HandleReauth),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/logout-all",
		httpx.Chain(http.HandlerFunc(h.HandleLogoutAll),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	h := &UsersHandler{Users: r.UserService, Sessions: r.sessions}

	authn := httpx.AuthnMiddleware(r.verifier)

	r.Mux.Handle("POST /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleCreate), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("GET /v1/users",
		httpx.Chain(http.HandlerFunc(h.HandleList), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("GET /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("PATCH /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
	r.Mux.Handle("PUT /v1/users/{id}/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword), authn, httpx.RateLimitByUser(httpx.StrictLimit)))
	r.Mux.Handle("DELETE /v1/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleDelete), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) registerBalance() {
	h := &BalanceHandler{Balance: r.BalanceService}

	authn := httpx.AuthnMiddleware(r.verifier)

	r.Mux.Handle("GET /v1/balance/me",
		httpx.Chain(http.HandlerFunc(h.HandleGetOwn), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("GET /v1/balance/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("POST /v1/balance/credit",
		httpx.Chain(http.HandlerFunc(h.HandleCredit), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) registerMerchant() {
	h := &MerchantHandler{Auth: r.AuthService, Merchant: r.MerchantService}

	authn := httpx.AuthnMiddleware(r.verifier)

	r.Mux.Handle("GET /v1/merchant/callback-url",
		httpx.Chain(http.HandlerFunc(h.HandleGetCallbackURL), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("PUT /v1/merchant/callback-url",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateCallbackURL), authn, httpx.RateLimitByUser(httpx.ModerateLimit)))
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Audit: r.AuditService}

	authn := httpx.AuthnMiddleware(r.verifier)

	r.Mux.Handle("GET /v1/audit",
		httpx.Chain(http.HandlerFunc(h.HandleList), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
	r.Mux.Handle("GET /v1/audit/users/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleListForUser), authn, httpx.RateLimitByUser(httpx.LenientLimit)))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.version))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.version, r.store))
}
