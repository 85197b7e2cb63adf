package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"plc-copilot/internal/db"
	"plc-copilot/internal/types"
)

// DatabaseStore stores transcripts and preferences in PostgreSQL.
type DatabaseStore struct {
	db          *db.DB
	maxMessages int
}

// NewDatabaseStore keeps at most maxMessages per session; 0 keeps everything.
func NewDatabaseStore(database *db.DB, maxMessages int) *DatabaseStore {
	return &DatabaseStore{db: database, maxMessages: maxMessages}
}

func (ds *DatabaseStore) Append(ctx context.Context, sessionID string, msg types.Message) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	tx, err := ds.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO transcript_messages (session_id, type, content) VALUES ($1, $2, $3)`,
		sessionID, msg.Type, msg.Content,
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to append message: %w", err)
	}
	if ds.maxMessages > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM transcript_messages
			WHERE session_id = $1 AND id NOT IN (
				SELECT id FROM transcript_messages
				WHERE session_id = $1
				ORDER BY id DESC
				LIMIT $2
			)`, sessionID, ds.maxMessages,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to trim transcript: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) History(ctx context.Context, sessionID string) ([]types.Message, error) {
	rows, err := ds.db.QueryContext(ctx, `
		SELECT type, content
		FROM transcript_messages
		WHERE session_id = $1
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	defer rows.Close()

	out := []types.Message{}
	for rows.Next() {
		var m types.Message
		if err := rows.Scan(&m.Type, &m.Content); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (ds *DatabaseStore) Clear(ctx context.Context, sessionID string) error {
	if _, err := ds.db.ExecContext(ctx, `DELETE FROM transcript_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("failed to clear transcript: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) Theme(ctx context.Context, sessionID string) (string, error) {
	var theme string
	err := ds.db.QueryRowContext(ctx,
		`SELECT theme FROM session_preferences WHERE session_id = $1`, sessionID,
	).Scan(&theme)
	if errors.Is(err, sql.ErrNoRows) {
		return DefaultTheme, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get theme: %w", err)
	}
	return theme, nil
}

func (ds *DatabaseStore) SetTheme(ctx context.Context, sessionID, theme string) error {
	if err := checkSession(sessionID); err != nil {
		return err
	}
	t, err := NormalizeTheme(theme)
	if err != nil {
		return err
	}
	_, err = ds.db.ExecContext(ctx, `
		INSERT INTO session_preferences (session_id, theme, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET theme = EXCLUDED.theme, updated_at = NOW()
	`, sessionID, t)
	if err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

func (ds *DatabaseStore) Close() error {
	return ds.db.Close()
}
