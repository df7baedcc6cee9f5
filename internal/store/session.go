package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shiftwatch/shiftwatch/internal/model"
)

// SessionStore is the login session registry. Many sessions may be
// simultaneously valid for one employee (multi-device). Tokens are signed
// JWTs, but the registry row is authoritative: deactivating or deleting the
// row revokes the token regardless of its embedded expiry.
type SessionStore struct {
	db     *sql.DB
	secret []byte
}

func NewSessionStore(db *sql.DB, secret []byte) *SessionStore {
	return &SessionStore{db: db, secret: secret}
}

func scanSession(scanner interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	err := scanner.Scan(
		&s.ID, &s.EmployeeID, &s.Token, &s.ExpiresAt,
		&s.IsActive, &s.DeviceInfo, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

const sessionCols = `id, employee_id, token, expires_at, is_active, device_info, created_at`

// Create issues a signed token and records the session. A non-positive ttl
// produces an already-expired session.
func (s *SessionStore) Create(employeeID int64, deviceInfo string, ttl time.Duration) (*model.Session, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(employeeID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO sessions (employee_id, token, expires_at, is_active, device_info) VALUES (?, ?, ?, 1, ?)`,
		employeeID, token, expiresAt, deviceInfo,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// GetByToken returns the raw registry row for a token, expired or not.
func (s *SessionStore) GetByToken(token string) (*model.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionCols+` FROM sessions WHERE token = ?`, token)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by token: %w", err)
	}
	return sess, nil
}

// Authenticate verifies the token signature, then requires a live registry
// row. Returns nil if the token is unknown, revoked, or expired.
func (s *SessionStore) Authenticate(token string, now time.Time) (*model.Session, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !parsed.Valid {
		return nil, nil
	}

	sess, err := s.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if sess == nil || !sess.IsActive || sess.ExpiresAt.Before(now) {
		return nil, nil
	}
	return sess, nil
}

// Deactivate marks a session revoked without deleting the row; the next
// cleanup sweep removes it.
func (s *SessionStore) Deactivate(token string) error {
	_, err := s.db.Exec(`UPDATE sessions SET is_active = 0 WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("deactivate session: %w", err)
	}
	return nil
}

// CountActive returns how many live sessions the employee holds as of now.
func (s *SessionStore) CountActive(employeeID int64, now time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sessions WHERE employee_id = ? AND is_active = 1 AND expires_at >= ?`,
		employeeID, now.UTC(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

// CleanupExpired bulk-deletes expired and revoked sessions. The delete is
// set-based, so concurrent invocations are idempotent without locking.
func (s *SessionStore) CleanupExpired(now time.Time) (int64, error) {
	result, err := s.db.Exec(
		`DELETE FROM sessions WHERE expires_at < ? OR is_active = 0`,
		now.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return deleted, nil
}

// Stats is a pure read for operational visibility.
func (s *SessionStore) Stats(now time.Time) (*model.SessionStats, error) {
	var st model.SessionStats
	err := s.db.QueryRow(
		`SELECT
		   COUNT(*),
		   COALESCE(SUM(CASE WHEN is_active = 1 AND expires_at >= ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN expires_at < ? THEN 1 ELSE 0 END), 0),
		   COALESCE(SUM(CASE WHEN is_active = 0 AND expires_at >= ? THEN 1 ELSE 0 END), 0)
		 FROM sessions`,
		now.UTC(), now.UTC(), now.UTC(),
	).Scan(&st.Total, &st.Active, &st.Expired, &st.Inactive)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	return &st, nil
}
