package model

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

const (
	StatusActive    = "active"
	StatusTrialing  = "trialing"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
)

// ErrSubscriptionNotFound is returned when a user has no subscription row.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Subscription is a user's paid access, mirrored from Whop memberships.
type Subscription struct {
	ID               int64      `json:"id"`
	UserID           string     `json:"user_id"`
	WhopUserID       string     `json:"whop_user_id,omitempty"`
	WhopMembershipID string     `json:"whop_membership_id,omitempty"`
	ProductID        string     `json:"product_id"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// IsActive reports whether the subscription grants access.
func (s *Subscription) IsActive() bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// PendingSubscription is a membership that arrived before its user could be matched.
type PendingSubscription struct {
	ID               int64      `json:"id"`
	WhopUserID       string     `json:"whop_user_id,omitempty"`
	WhopMembershipID string     `json:"whop_membership_id"`
	ProductID        string     `json:"product_id"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
	Email            string     `json:"email,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

const subscriptionColumns = `id, user_id, whop_user_id, whop_membership_id, product_id, status, current_period_end, created_at, updated_at`

// UpsertSubscription creates or replaces the subscription row of sub.UserID.
func UpsertSubscription(ctx context.Context, db *sql.DB, sub *Subscription) error {
	now := time.Now().UTC()
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_subscriptions (user_id, whop_user_id, whop_membership_id, product_id, status, current_period_end, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			whop_user_id = excluded.whop_user_id,
			whop_membership_id = excluded.whop_membership_id,
			product_id = excluded.product_id,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			updated_at = excluded.updated_at`,
		sub.UserID, nullString(sub.WhopUserID), nullString(sub.WhopMembershipID), sub.ProductID, sub.Status,
		nullableTime(sub.CurrentPeriodEnd), formatTime(now), formatTime(now))
	return err
}

// GetSubscriptionByUserID returns the subscription of userID.
func GetSubscriptionByUserID(ctx context.Context, db *sql.DB, userID string) (*Subscription, error) {
	return scanSubscription(db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM user_subscriptions WHERE user_id = ?`, userID))
}

// GetSubscriptionByWhopUserID returns the subscription linked to a Whop user.
func GetSubscriptionByWhopUserID(ctx context.Context, db *sql.DB, whopUserID string) (*Subscription, error) {
	if whopUserID == "" {
		return nil, ErrSubscriptionNotFound
	}
	return scanSubscription(db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM user_subscriptions WHERE whop_user_id = ? LIMIT 1`, whopUserID))
}

// GetSubscriptionByMembershipID returns the subscription linked to a Whop membership.
func GetSubscriptionByMembershipID(ctx context.Context, db *sql.DB, membershipID string) (*Subscription, error) {
	if membershipID == "" {
		return nil, ErrSubscriptionNotFound
	}
	return scanSubscription(db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM user_subscriptions WHERE whop_membership_id = ? LIMIT 1`, membershipID))
}

// SetStatusByMembershipID updates every subscription bound to membershipID.
func SetStatusByMembershipID(ctx context.Context, db *sql.DB, membershipID, status string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE user_subscriptions SET status = ?, updated_at = ? WHERE whop_membership_id = ?`,
		status, formatTime(time.Now()), membershipID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetStatusByUserID updates the subscription of userID.
func SetStatusByUserID(ctx context.Context, db *sql.DB, userID, status string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE user_subscriptions SET status = ?, updated_at = ? WHERE user_id = ?`,
		status, formatTime(time.Now()), userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpsertPendingSubscription stores an unmatched membership keyed by membership id.
func UpsertPendingSubscription(ctx context.Context, db *sql.DB, p *PendingSubscription) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO pending_subscriptions (whop_user_id, whop_membership_id, product_id, status, current_period_end, email, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(whop_membership_id) DO UPDATE SET
			whop_user_id = excluded.whop_user_id,
			product_id = excluded.product_id,
			status = excluded.status,
			current_period_end = excluded.current_period_end,
			email = excluded.email,
			created_at = excluded.created_at`,
		nullString(p.WhopUserID), p.WhopMembershipID, p.ProductID, p.Status,
		nullableTime(p.CurrentPeriodEnd), p.Email, formatTime(time.Now()))
	return err
}

// SetPendingStatusByMembershipID updates a pending membership's status.
func SetPendingStatusByMembershipID(ctx context.Context, db *sql.DB, membershipID, status string) (int64, error) {
	res, err := db.ExecContext(ctx,
		`UPDATE pending_subscriptions SET status = ? WHERE whop_membership_id = ?`, status, membershipID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// FindPendingSubscriptions returns pending memberships whose email or membership id matches.
// Empty arguments match nothing.
func FindPendingSubscriptions(ctx context.Context, db *sql.DB, email, membershipID string) ([]PendingSubscription, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, whop_user_id, whop_membership_id, product_id, status, current_period_end, email, created_at
		FROM pending_subscriptions
		WHERE (? != '' AND lower(email) = lower(?)) OR (? != '' AND whop_membership_id = ?)
		ORDER BY created_at DESC, id DESC`,
		email, email, membershipID, membershipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []PendingSubscription
	for rows.Next() {
		var p PendingSubscription
		var whopUserID, periodEnd sql.NullString
		var createdAt string
		if err := rows.Scan(&p.ID, &whopUserID, &p.WhopMembershipID, &p.ProductID, &p.Status, &periodEnd, &p.Email, &createdAt); err != nil {
			return nil, err
		}
		p.WhopUserID = whopUserID.String
		p.CurrentPeriodEnd = timePtr(periodEnd)
		p.CreatedAt = parseTime(createdAt)
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// DeletePendingSubscription removes a claimed pending membership.
func DeletePendingSubscription(ctx context.Context, db *sql.DB, membershipID string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM pending_subscriptions WHERE whop_membership_id = ?`, membershipID)
	return err
}

func scanSubscription(row *sql.Row) (*Subscription, error) {
	var sub Subscription
	var whopUserID, membershipID, periodEnd sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&sub.ID, &sub.UserID, &whopUserID, &membershipID, &sub.ProductID, &sub.Status, &periodEnd, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	sub.WhopUserID = whopUserID.String
	sub.WhopMembershipID = membershipID.String
	sub.CurrentPeriodEnd = timePtr(periodEnd)
	sub.CreatedAt = parseTime(createdAt)
	sub.UpdatedAt = parseTime(updatedAt)
	return &sub, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
