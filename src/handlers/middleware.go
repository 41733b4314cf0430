package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/services"
	"github.com/username/tidyguru/backend/src/utils"
)

const requestIDHeader = "X-Request-ID"

// RequestIDMiddleware tags each request with an ID, reusing a sane client-supplied one.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" || len(requestID) > 64 {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *UserHandler) AuthMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			log.Debug("AuthMiddleware: Authorization header missing", "path", r.URL.Path)
			utils.SendJSONError(w, "Authorization header required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" {
			log.Debug("AuthMiddleware: Token string empty", "path", r.URL.Path)
			utils.SendJSONError(w, "Malformed token", http.StatusUnauthorized)
			return
		}

		claims, err := h.authService.ValidateToken(tokenString)
		if err != nil {
			log.Warn("AuthMiddleware: Token validation failed", "path", r.URL.Path, "error", err)
			utils.SendJSONError(w, "Invalid or expired token", http.StatusUnauthorized)
			return
		}

		if h.userService != nil {
			if err := h.userService.Touch(r.Context(), claims.Subject, claims.Email); err != nil {
				// Recording the user is bookkeeping; the request can still be served.
				log.Error("AuthMiddleware: failed to record user", "userID", claims.Subject, "error", err)
			}
		}

		ctx := WithUser(r.Context(), claims.Subject, claims.Email)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// SubscriptionMiddleware rejects users without an active subscription when enabled is set.
func SubscriptionMiddleware(subscriptionService services.SubscriptionService, enabled bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		if !enabled {
			return next
		}
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
				return
			}
			active, err := subscriptionService.HasActiveSubscription(r.Context(), userID)
			if err != nil {
				logger.FromContext(r.Context()).Error("Subscription check failed", "userID", userID, "error", err)
				utils.SendJSONError(w, "failed to check subscription", http.StatusInternalServerError)
				return
			}
			if !active {
				utils.SendJSONError(w, services.ErrSubscriptionRequired.Error(), http.StatusPaymentRequired)
				return
			}
			next(w, r)
		}
	}
}
