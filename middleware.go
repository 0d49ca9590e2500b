package managehub

import (
	"errors"
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// Middleware provides HTTP middleware for role and tier checking.
type Middleware struct {
	service      *Service
	getAccount   func(*http.Request) string
	errorHandler func(http.ResponseWriter, *http.Request, error)
	limit        rate.Limit
	burst        int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := managehub.NewMiddleware(service,
//	    managehub.WithAccountExtractor(func(r *http.Request) string {
//	        return r.Header.Get("X-Account")
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:      service,
		getAccount:   defaultGetAccount,
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.limit > 0 {
		m.limiters = make(map[string]*rate.Limiter)
	}
	return m
}

// WithAccountExtractor sets a custom function to extract the calling
// account from a request.
func WithAccountExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getAccount = fn
	}
}

// WithHTTPErrorHandler sets a custom error handler for middleware denials.
func WithHTTPErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

// WithRateLimit enables a per-account token-bucket limiter in front of the
// access checks.
func WithRateLimit(limit rate.Limit, burst int) MiddlewareOption {
	return func(m *Middleware) {
		m.limit = limit
		m.burst = burst
	}
}

func defaultGetAccount(r *http.Request) string {
	account, _ := GetAccount(r.Context())
	return account
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotInitialized):
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, ErrPaused):
		http.Error(w, "Locked", http.StatusLocked)
	case IsPermissionError(err) || errors.Is(err, ErrInvalidAccount):
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (m *Middleware) allow(account string) bool {
	if m.limiters == nil {
		return true
	}
	m.mu.Lock()
	limiter, ok := m.limiters[account]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.limiters[account] = limiter
	}
	m.mu.Unlock()
	return limiter.Allow()
}

func (m *Middleware) guard(w http.ResponseWriter, r *http.Request) (*http.Request, string, bool) {
	account := m.getAccount(r)
	if account == "" {
		m.errorHandler(w, r, NewError(ErrInvalidAccount, "no account in request"))
		return nil, "", false
	}
	if !m.allow(account) {
		http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		return nil, "", false
	}
	ctx := WithAccount(r.Context(), account)
	// Request ID is commonly set by upstream middleware; carry it into the
	// audit trail.
	if id := r.Header.Get("X-Request-ID"); id != "" {
		ctx = WithRequestID(ctx, id)
	}
	return r.WithContext(ctx), account, true
}

// RequireRole creates middleware that requires the given role.
//
// Example:
//
//	router.Handle("/admin", mw.RequireRole(managehub.RoleAdmin)(adminHandler))
func (m *Middleware) RequireRole(role Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, account, ok := m.guard(w, r)
			if !ok {
				return
			}
			if err := m.service.RequireAccess(r.Context(), account, role); err != nil {
				m.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTier creates middleware that requires the given subscription tier.
func (m *Middleware) RequireTier(tier TierLevel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, account, ok := m.guard(w, r)
			if !ok {
				return
			}
			if err := m.service.RequireTierAccess(r.Context(), account, tier); err != nil {
				m.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoleAndTier creates middleware that requires both a role and a
// tier, short-circuiting on the role.
func (m *Middleware) RequireRoleAndTier(role Role, tier TierLevel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, account, ok := m.guard(w, r)
			if !ok {
				return
			}
			if err := m.service.RequireRoleAndTierAccess(r.Context(), account, role, tier); err != nil {
				m.errorHandler(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
