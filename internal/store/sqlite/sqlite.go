package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/deskchat/deskchat/internal/store"
)

// Schema is applied on every open; all statements are idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	is_staff      BOOLEAN NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS rooms (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	token      TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL DEFAULT 'open',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	room_id    INTEGER NOT NULL,
	body       TEXT NOT NULL,
	sent_by    TEXT NOT NULL,
	created_by INTEGER,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (room_id) REFERENCES rooms(id),
	FOREIGN KEY (created_by) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_messages_room ON messages(room_id, id);
`

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to apply an alternative schema or seed data.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== RoomStore implementation ====

// CreateRoom registers a room under the given token with status open.
func (s *SQLiteStore) CreateRoom(ctx context.Context, token string) (*store.Room, error) {
	query := `INSERT INTO rooms (token, status) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, query, token, store.RoomStatusOpen); err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}
	return s.GetRoomByToken(ctx, token)
}

// GetRoomByToken retrieves a room by its token.
func (s *SQLiteStore) GetRoomByToken(ctx context.Context, token string) (*store.Room, error) {
	query := `SELECT id, token, status, created_at FROM rooms WHERE token = ?`

	var room store.Room
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&room.ID,
		&room.Token,
		&room.Status,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRoomNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}

	return &room, nil
}

// CloseRoom marks the room closed. The status guard makes the transition
// one-way and a second call a no-op.
func (s *SQLiteStore) CloseRoom(ctx context.Context, token string) error {
	query := `UPDATE rooms SET status = ? WHERE token = ? AND status = ?`
	res, err := s.db.ExecContext(ctx, query, store.RoomStatusClosed, token, store.RoomStatusOpen)
	if err != nil {
		return fmt.Errorf("close room: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("close room rows affected: %w", err)
	}
	if affected == 0 {
		// Already closed, or the token never existed. Distinguish so an
		// unknown token still surfaces as a lookup failure.
		if _, err := s.GetRoomByToken(ctx, token); err != nil {
			return err
		}
	}

	return nil
}

// ==== MessageStore implementation ====

// CreateMessage appends a message to a room.
func (s *SQLiteStore) CreateMessage(ctx context.Context, roomID int64, body, sentBy string, createdBy *int64) (*store.Message, error) {
	query := `INSERT INTO messages (room_id, body, sent_by, created_by) VALUES (?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, roomID, body, sentBy, createdBy)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getMessageByID(ctx, id)
}

// ListMessages returns up to limit messages of a room in insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT id, room_id, body, sent_by, created_by, created_at
		FROM messages
		WHERE room_id = ? AND (? IS NULL OR id < ?)
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, roomID, beforeID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		var createdBy sql.NullInt64
		if err := rows.Scan(&msg.ID, &msg.RoomID, &msg.Body, &msg.SentBy, &createdBy, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if createdBy.Valid {
			msg.CreatedBy = &createdBy.Int64
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Query walks newest-first for the pagination cursor; flip back to
	// insertion order for callers.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

func (s *SQLiteStore) getMessageByID(ctx context.Context, id int64) (*store.Message, error) {
	query := `SELECT id, room_id, body, sent_by, created_by, created_at FROM messages WHERE id = ?`

	var msg store.Message
	var createdBy sql.NullInt64
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.Body,
		&msg.SentBy,
		&createdBy,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("query message: %w", err)
	}
	if createdBy.Valid {
		msg.CreatedBy = &createdBy.Int64
	}

	return &msg, nil
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, isStaff bool) (*store.User, error) {
	query := `INSERT INTO users (username, password_hash, is_staff) VALUES (?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query, username, passwordHash, isStaff)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT id, username, password_hash, is_staff, created_at FROM users WHERE id = ?`

	var user store.User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsStaff,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT id, username, password_hash, is_staff, created_at FROM users WHERE username = ?`

	var user store.User
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.IsStaff,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}
