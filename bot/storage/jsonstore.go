// Package storage holds the bot's collaborator stores: flat JSON files for
// captured contacts and observed user ids, and a Postgres repository for the
// HTTP intake rows and the relational user log.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"contactbot/bot/contact"
)

type storedContact struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Timestamp int64  `json:"timestamp"`
}

// ContactStore persists captured contacts to a JSON file keyed by user id.
type ContactStore struct {
	mu   sync.Mutex
	path string
}

// NewContactStore builds a store writing to path. The file is created on
// first persist.
func NewContactStore(path string) *ContactStore {
	return &ContactStore{path: path}
}

// Persist upserts the record under its user id. Re-registering overwrites the
// previous entry, matching the original behaviour.
func (s *ContactStore) Persist(ctx context.Context, rec contact.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := make(map[string]storedContact)
	if err := readJSONFile(s.path, &contacts); err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	contacts[strconv.FormatInt(rec.UserID, 10)] = storedContact{
		Name:      rec.Name,
		Phone:     rec.Phone,
		Timestamp: rec.CapturedAt.Unix(),
	}
	if err := writeJSONFile(s.path, contacts); err != nil {
		return fmt.Errorf("save contacts: %w", err)
	}
	return nil
}

type userLogFile struct {
	ChatIDs []int64 `json:"chat_ids"`
}

// UserLog is the append-only set of user ids the bot has seen, backed by a
// JSON file.
type UserLog struct {
	mu   sync.Mutex
	path string
}

// NewUserLog builds a log writing to path.
func NewUserLog(path string) *UserLog {
	return &UserLog{path: path}
}

// Observe appends the user id if it has not been seen before. Idempotent.
func (l *UserLog) Observe(ctx context.Context, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var data userLogFile
	if err := readJSONFile(l.path, &data); err != nil {
		return fmt.Errorf("load user log: %w", err)
	}
	for _, id := range data.ChatIDs {
		if id == userID {
			return nil
		}
	}
	data.ChatIDs = append(data.ChatIDs, userID)
	if err := writeJSONFile(l.path, data); err != nil {
		return fmt.Errorf("save user log: %w", err)
	}
	return nil
}

// IDs returns all observed user ids in ascending order.
func (l *UserLog) IDs() ([]int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var data userLogFile
	if err := readJSONFile(l.path, &data); err != nil {
		return nil, fmt.Errorf("load user log: %w", err)
	}
	ids := append([]int64(nil), data.ChatIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// readJSONFile decodes path into v. Missing or corrupt files yield the zero
// value, the same recovery the original store applied.
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Treat unreadable content as empty rather than blocking writes.
		return nil
	}
	return nil
}

// writeJSONFile writes v atomically via a temp file rename in the same
// directory.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
