package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sowandreap/kalaha/pkg/types"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		session_id TEXT NOT NULL,
		difficulty INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	return &SQLiteRepository{
		db: db,
	}, nil
}

func (r *SQLiteRepository) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteRepository) SaveSession(ctx context.Context, record SessionRecord) error {
	q := `
	INSERT OR REPLACE INTO sessions (id, session_id, difficulty, updated_at)
	VALUES (1, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, q, record.SessionID.String(), int(record.Difficulty), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %v", err)
	}

	return nil
}

func (r *SQLiteRepository) LoadLastSession(ctx context.Context) (*SessionRecord, error) {
	q := `
	SELECT session_id, difficulty FROM sessions WHERE id = 1;
	`
	var sessionID string
	var difficulty int
	if err := r.db.QueryRowContext(ctx, q).Scan(&sessionID, &difficulty); err != nil {
		if err == sql.ErrNoRows {
			return nil, &ErrNotFound{}
		}
		return nil, fmt.Errorf("failed to scan session: %v", err)
	}

	parsed, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to parse session id: %v", err)
	}

	return &SessionRecord{
		SessionID:  parsed,
		Difficulty: types.Difficulty(difficulty),
	}, nil
}
