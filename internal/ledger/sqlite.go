package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lotbot/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLite is the sqlite-backed dedup store. Identities are primary-keyed, so
// a replayed Append is a no-op rather than an error.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLite(dbPath string, logger *slog.Logger) (*SQLite, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create ledger directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLite{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS processed (
		chat_id     INTEGER NOT NULL,
		message_id  INTEGER NOT NULL,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (chat_id, message_id)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLite) Load(ctx context.Context) ([]domain.MessageIdentity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chat_id, message_id FROM processed ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("cannot read ledger: %w", err)
	}
	defer rows.Close()

	var ids []domain.MessageIdentity
	for rows.Next() {
		var id domain.MessageIdentity
		if err := rows.Scan(&id.ChatID, &id.MessageID); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Append(ctx context.Context, id domain.MessageIdentity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed (chat_id, message_id) VALUES (?, ?)`,
		id.ChatID, id.MessageID)
	if err != nil {
		return fmt.Errorf("cannot record identity: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
