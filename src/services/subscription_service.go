package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/username/tidyguru/backend/src/logger"
	"github.com/username/tidyguru/backend/src/model"
)

// Whop webhook actions the backend reacts to.
const (
	ActionMembershipWentValid   = "membership.went_valid"
	ActionMembershipRenewed     = "membership.renewed"
	ActionMembershipWentInvalid = "membership.went_invalid"
	ActionMembershipCancelled   = "membership.cancelled"
)

type subscriptionServiceImpl struct {
	db                  *sql.DB
	whopClient          WhopClient
	productID           string
	requireSubscription bool
}

func NewSubscriptionService(db *sql.DB, whopClient WhopClient, productID string, requireSubscription bool) SubscriptionService {
	return &subscriptionServiceImpl{
		db:                  db,
		whopClient:          whopClient,
		productID:           productID,
		requireSubscription: requireSubscription,
	}
}

func (s *subscriptionServiceImpl) HandleWebhook(ctx context.Context, event *WhopWebhookEvent) error {
	log := logger.FromContext(ctx)
	log.Info("Received Whop event", "action", event.Action, "membershipID", event.Data.ID)

	switch event.Action {
	case ActionMembershipWentValid, ActionMembershipRenewed:
		return s.activateMembership(ctx, &event.Data)
	case ActionMembershipWentInvalid, ActionMembershipCancelled:
		return s.deactivateMembership(ctx, event.Data.ID)
	default:
		log.Info("Unhandled Whop event type", "action", event.Action)
		return nil
	}
}

func membershipStatus(m *WhopMembership) string {
	if m.Status == model.StatusTrialing {
		return model.StatusTrialing
	}
	return model.StatusActive
}

// matchUser finds the local user a membership belongs to: by buyer email first,
// then by a subscription already linked to the Whop user, then by membership id.
func (s *subscriptionServiceImpl) matchUser(ctx context.Context, m *WhopMembership) (string, error) {
	if email := m.Email(); email != "" {
		user, err := model.GetUserByEmail(ctx, s.db, email)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, model.ErrUserNotFound) {
			return "", err
		}
	}

	sub, err := model.GetSubscriptionByWhopUserID(ctx, s.db, m.User)
	if err == nil {
		return sub.UserID, nil
	}
	if !errors.Is(err, model.ErrSubscriptionNotFound) {
		return "", err
	}

	sub, err = model.GetSubscriptionByMembershipID(ctx, s.db, m.ID)
	if err == nil {
		return sub.UserID, nil
	}
	if !errors.Is(err, model.ErrSubscriptionNotFound) {
		return "", err
	}
	return "", nil
}

func (s *subscriptionServiceImpl) activateMembership(ctx context.Context, m *WhopMembership) error {
	log := logger.FromContext(ctx)
	userID, err := s.matchUser(ctx, m)
	if err != nil {
		return fmt.Errorf("error matching whop membership %s to a user: %w", m.ID, err)
	}

	if userID == "" {
		log.Info("No matching user for membership, storing as pending", "membershipID", m.ID, "whopUserID", m.User)
		err := model.UpsertPendingSubscription(ctx, s.db, &model.PendingSubscription{
			WhopUserID:       m.User,
			WhopMembershipID: m.ID,
			ProductID:        m.Product,
			Status:           membershipStatus(m),
			CurrentPeriodEnd: m.PeriodEnd(),
			Email:            m.Email(),
		})
		if err != nil {
			return fmt.Errorf("error storing pending subscription %s: %w", m.ID, err)
		}
		return nil
	}

	err = model.UpsertSubscription(ctx, s.db, &model.Subscription{
		UserID:           userID,
		WhopUserID:       m.User,
		WhopMembershipID: m.ID,
		ProductID:        m.Product,
		Status:           membershipStatus(m),
		CurrentPeriodEnd: m.PeriodEnd(),
	})
	if err != nil {
		return fmt.Errorf("error upserting subscription for user %s: %w", userID, err)
	}
	log.Info("Subscription activated", "userID", userID, "membershipID", m.ID)
	return nil
}

func (s *subscriptionServiceImpl) deactivateMembership(ctx context.Context, membershipID string) error {
	updated, err := model.SetStatusByMembershipID(ctx, s.db, membershipID, model.StatusCancelled)
	if err != nil {
		return fmt.Errorf("error cancelling subscription for membership %s: %w", membershipID, err)
	}
	pending, err := model.SetPendingStatusByMembershipID(ctx, s.db, membershipID, model.StatusCancelled)
	if err != nil {
		return fmt.Errorf("error cancelling pending membership %s: %w", membershipID, err)
	}
	logger.FromContext(ctx).Info("Membership deactivated", "membershipID", membershipID, "subscriptions", updated, "pending", pending)
	return nil
}

// claimPending binds pending memberships bought with email to userID.
func (s *subscriptionServiceImpl) claimPending(ctx context.Context, userID, email string) error {
	if email == "" {
		return nil
	}
	pending, err := model.FindPendingSubscriptions(ctx, s.db, email, "")
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.Status != model.StatusActive && p.Status != model.StatusTrialing {
			continue
		}
		err := model.UpsertSubscription(ctx, s.db, &model.Subscription{
			UserID:           userID,
			WhopUserID:       p.WhopUserID,
			WhopMembershipID: p.WhopMembershipID,
			ProductID:        p.ProductID,
			Status:           p.Status,
			CurrentPeriodEnd: p.CurrentPeriodEnd,
		})
		if err != nil {
			return err
		}
		if err := model.DeletePendingSubscription(ctx, s.db, p.WhopMembershipID); err != nil {
			return err
		}
		logger.FromContext(ctx).Info("Claimed pending subscription", "userID", userID, "membershipID", p.WhopMembershipID)
		// The newest pending membership wins.
		break
	}
	return nil
}

func (s *subscriptionServiceImpl) GetStatus(ctx context.Context, userID, email string) (*SubscriptionStatus, error) {
	if err := s.claimPending(ctx, userID, email); err != nil {
		return nil, fmt.Errorf("error claiming pending subscriptions for user %s: %w", userID, err)
	}
	status := &SubscriptionStatus{Required: s.requireSubscription}
	sub, err := model.GetSubscriptionByUserID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrSubscriptionNotFound) {
			return status, nil
		}
		return nil, fmt.Errorf("error loading subscription for user %s: %w", userID, err)
	}
	status.Subscription = sub
	status.Active = sub.IsActive()
	return status, nil
}

func (s *subscriptionServiceImpl) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	sub, err := model.GetSubscriptionByUserID(ctx, s.db, userID)
	if err != nil {
		if errors.Is(err, model.ErrSubscriptionNotFound) {
			return false, nil
		}
		return false, err
	}
	return sub.IsActive(), nil
}

// Sync verifies membershipID with Whop and binds it to userID.
func (s *subscriptionServiceImpl) Sync(ctx context.Context, userID, membershipID string) (*model.Subscription, error) {
	if membershipID == "" {
		return nil, fmt.Errorf("%w: membership id is required", ErrMembershipInvalid)
	}
	m, err := s.whopClient.GetMembership(ctx, membershipID)
	if err != nil {
		logger.FromContext(ctx).Warn("Whop membership lookup failed", "userID", userID, "membershipID", membershipID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrMembershipInvalid, err)
	}
	if !s.membershipGrantsAccess(m) {
		return nil, fmt.Errorf("%w: membership %s status %q", ErrMembershipInvalid, membershipID, m.Status)
	}

	sub := &model.Subscription{
		UserID:           userID,
		WhopUserID:       m.User,
		WhopMembershipID: membershipID,
		ProductID:        m.Product,
		Status:           membershipStatus(m),
		CurrentPeriodEnd: m.AccessEnd(),
	}
	if err := model.UpsertSubscription(ctx, s.db, sub); err != nil {
		return nil, fmt.Errorf("error upserting subscription for user %s: %w", userID, err)
	}
	if err := model.DeletePendingSubscription(ctx, s.db, membershipID); err != nil {
		return nil, fmt.Errorf("error clearing pending membership %s: %w", membershipID, err)
	}
	return model.GetSubscriptionByUserID(ctx, s.db, userID)
}

func (s *subscriptionServiceImpl) membershipGrantsAccess(m *WhopMembership) bool {
	if !m.Valid {
		return false
	}
	if s.productID != "" && m.Product != s.productID {
		return false
	}
	return m.Status == model.StatusActive || m.Status == model.StatusTrialing
}

func (s *subscriptionServiceImpl) Cancel(ctx context.Context, userID string) error {
	n, err := model.SetStatusByUserID(ctx, s.db, userID, model.StatusCancelled)
	if err != nil {
		return fmt.Errorf("error cancelling subscription for user %s: %w", userID, err)
	}
	if n == 0 {
		return model.ErrSubscriptionNotFound
	}
	return nil
}
