package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/model"
	"github.com/username/tidyguru/backend/src/security"
	"github.com/username/tidyguru/backend/src/services"
	"github.com/username/tidyguru/backend/src/utils"
)

type contextKey string

const (
	userIDContextKey    contextKey = "userID"
	userEmailContextKey contextKey = "userEmail"
)

type UserHandler struct {
	authService *security.AuthService
	userService services.UserService
}

func NewUserHandler(authService *security.AuthService, userService services.UserService) *UserHandler {
	return &UserHandler{
		authService: authService,
		userService: userService,
	}
}

// HandleGetMe returns the authenticated user as stored locally.
func (h *UserHandler) HandleGetMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := GetUserIDFromContext(r.Context())
	if !ok {
		utils.SendJSONError(w, "authentication required or user ID not found in context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			utils.SendJSONError(w, "user not found", http.StatusNotFound)
			return
		}
		logger.FromContext(r.Context()).Error("Failed to load user", "userID", userID, "error", err)
		utils.SendJSONError(w, "failed to load user", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(user); err != nil {
		logger.FromContext(r.Context()).Error("Error encoding user response", "userID", userID, "error", err)
	}
}

// GetUserIDFromContext retrieves the authenticated user id set by AuthMiddleware.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDContextKey).(string)
	return userID, ok && userID != ""
}

// GetUserEmailFromContext retrieves the email claim of the authenticated user, if any.
func GetUserEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userEmailContextKey).(string)
	return email
}

// WithUser returns ctx carrying an authenticated identity.
func WithUser(ctx context.Context, userID, email string) context.Context {
	ctx = context.WithValue(ctx, userIDContextKey, userID)
	return context.WithValue(ctx, userEmailContextKey, email)
}
