// Package ledger provides durable dedup stores: an append-only JSONL file
// (the default) and a sqlite database.
package ledger

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"lotbot/internal/domain"
)

type jsonlEntry struct {
	ChatID    int64 `json:"chat_id"`
	MessageID int   `json:"message_id"`
}

// JSONL stores one identity per line as a small JSON object. The file is
// only ever appended to; a missing file means an empty ledger.
type JSONL struct {
	path   string
	logger *slog.Logger
}

func NewJSONL(path string, logger *slog.Logger) *JSONL {
	return &JSONL{path: path, logger: logger}
}

func (s *JSONL) Load(ctx context.Context) ([]domain.MessageIdentity, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger %s: %w", s.path, err)
	}
	defer f.Close()

	var ids []domain.MessageIdentity
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry jsonlEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			s.logger.Warn("skipping malformed ledger entry", "path", s.path, "line", string(line))
			continue
		}
		ids = append(ids, domain.MessageIdentity{ChatID: entry.ChatID, MessageID: entry.MessageID})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read ledger %s: %w", s.path, err)
	}
	return ids, nil
}

func (s *JSONL) Append(ctx context.Context, id domain.MessageIdentity) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("cannot create ledger directory: %w", err)
	}

	data, err := json.Marshal(jsonlEntry{ChatID: id.ChatID, MessageID: id.MessageID})
	if err != nil {
		return fmt.Errorf("cannot encode ledger entry: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("cannot open ledger %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("cannot append ledger entry: %w", err)
	}
	// The entry must survive a crash before the message counts as handled.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("cannot sync ledger: %w", err)
	}
	return nil
}

func (s *JSONL) Close() error { return nil }
