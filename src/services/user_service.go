package services

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/patrickmn/go-cache"
	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/model"
)

const ckSeenUser = "seen_user_%s"

// UserService mirrors authenticated identities into the users table.
type UserService interface {
	Touch(ctx context.Context, userID, email string) error
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

type userServiceImpl struct {
	db        *sql.DB
	seenCache *cache.Cache
}

func NewUserService(db *sql.DB, seenCache *cache.Cache) UserService {
	return &userServiceImpl{db: db, seenCache: seenCache}
}

// Touch upserts the user at most once per cache lifetime for the same email.
func (s *userServiceImpl) Touch(ctx context.Context, userID, email string) error {
	key := fmt.Sprintf(ckSeenUser, userID)
	if seenEmail, found := s.seenCache.Get(key); found && seenEmail.(string) == email {
		return nil
	}
	if err := model.UpsertUser(ctx, s.db, userID, email); err != nil {
		return fmt.Errorf("error recording user %s: %w", userID, err)
	}
	s.seenCache.SetDefault(key, email)
	logger.FromContext(ctx).Debug("Recorded user", "userID", userID)
	return nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return model.GetUserByID(ctx, s.db, userID)
}
