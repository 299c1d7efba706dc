// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package telemetry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/procubot-tui/internal/logging"
	"github.com/jeranaias/procubot-tui/internal/util"
)

// =============================================================================
// USAGE STORAGE
// =============================================================================

// UsageStorage persists session usage as one JSON file per run.
type UsageStorage struct {
	dir string
}

// NewUsageStorage creates a storage manager rooted at dir, defaulting to
// ~/.procubot/usage/.
func NewUsageStorage(dir string) (*UsageStorage, error) {
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(homeDir, ".procubot", "usage")
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	return &UsageStorage{dir: dir}, nil
}

// Dir returns the storage directory.
func (us *UsageStorage) Dir() string {
	return us.dir
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// Save persists a session. Sessions without any turns or resets beyond the
// initial one are not worth keeping and are skipped.
func (us *UsageStorage) Save(u SessionUsage) error {
	if u.ID == "" {
		return errors.New("session usage has no id")
	}
	if u.Turns == 0 && u.Resets <= 1 {
		return nil
	}

	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	return util.AtomicWriteFile(filepath.Join(us.dir, u.ID+".json"), data, 0600)
}

// Load retrieves a session by id.
func (us *UsageStorage) Load(id string) (SessionUsage, error) {
	var u SessionUsage
	data, err := os.ReadFile(filepath.Join(us.dir, id+".json"))
	if err != nil {
		return u, err
	}
	err = json.Unmarshal(data, &u)
	return u, err
}

// List returns the ids of sessions started within [from, to], oldest first.
func (us *UsageStorage) List(from, to time.Time) ([]string, error) {
	entries, err := os.ReadDir(us.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		id, ts, ok := parseEntry(entry)
		if !ok {
			continue
		}
		if ts.Before(from) || ts.After(to) {
			continue
		}
		ids = append(ids, id)
	}

	// IDs are timestamp-prefixed, so lexical order is chronological.
	sort.Strings(ids)
	return ids, nil
}

// History loads every session started within the last days days. Files that
// fail to parse are logged and skipped.
func (us *UsageStorage) History(days int) ([]SessionUsage, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -days)
	ids, err := us.List(from, to)
	if err != nil {
		return nil, err
	}

	sessions := make([]SessionUsage, 0, len(ids))
	for _, id := range ids {
		u, err := us.Load(id)
		if err != nil {
			logging.L().Warn("usage_load_failed", zap.String("id", id), zap.Error(err))
			continue
		}
		sessions = append(sessions, u)
	}
	return sessions, nil
}

// Trends aggregates the last days days of stored sessions.
func (us *UsageStorage) Trends(days int) (Trends, error) {
	sessions, err := us.History(days)
	if err != nil {
		return Trends{}, err
	}
	return Aggregate(days, sessions), nil
}

// DeleteBefore removes every session file older than before.
func (us *UsageStorage) DeleteBefore(before time.Time) (int, error) {
	entries, err := os.ReadDir(us.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, entry := range entries {
		_, ts, ok := parseEntry(entry)
		if !ok || !ts.Before(before) {
			continue
		}
		if err := os.Remove(filepath.Join(us.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored sessions.
func (us *UsageStorage) Count() (int, error) {
	entries, err := os.ReadDir(us.dir)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, entry := range entries {
		if _, _, ok := parseEntry(entry); ok {
			count++
		}
	}
	return count, nil
}

// parseEntry extracts the id and start time from a session file name of the
// form YYYYMMDD-HHMMSS-counter.json.
func parseEntry(entry os.DirEntry) (string, time.Time, bool) {
	if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
		return "", time.Time{}, false
	}
	id := strings.TrimSuffix(entry.Name(), ".json")

	stamp := id
	if parts := strings.Split(id, "-"); len(parts) >= 2 {
		stamp = parts[0] + "-" + parts[1]
	}
	ts, err := time.ParseInLocation("20060102-150405", stamp, time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return id, ts, true
}
