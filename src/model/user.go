package model

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// ErrUserNotFound is returned when no users row matches.
var ErrUserNotFound = errors.New("user not found")

// User is an authenticated account as seen by this backend. Identity is owned
// by the external auth provider; the row only mirrors the token claims.
type User struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableTime(t *time.Time) sql.NullString {
	if t == nil || t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

// UpsertUser records a user, refreshing email and last_seen_at when the row exists.
func UpsertUser(ctx context.Context, db *sql.DB, id, email string) error {
	now := formatTime(time.Now())
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (id, email, created_at, last_seen_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = CASE WHEN excluded.email != '' THEN excluded.email ELSE users.email END,
			last_seen_at = excluded.last_seen_at`,
		id, strings.TrimSpace(email), now, now)
	return err
}

// GetUserByID retrieves a user by its auth-provider id.
func GetUserByID(ctx context.Context, db *sql.DB, id string) (*User, error) {
	return scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, created_at, last_seen_at FROM users WHERE id = ?`, id))
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, ErrUserNotFound
	}
	return scanUser(db.QueryRowContext(ctx,
		`SELECT id, email, created_at, last_seen_at FROM users WHERE lower(email) = lower(?) ORDER BY last_seen_at DESC LIMIT 1`, email))
}

func scanUser(row *sql.Row) (*User, error) {
	var user User
	var createdAt, lastSeenAt string
	if err := row.Scan(&user.ID, &user.Email, &createdAt, &lastSeenAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.CreatedAt = parseTime(createdAt)
	user.LastSeenAt = parseTime(lastSeenAt)
	return &user, nil
}
