package settings

import (
	"encoding/json"
	"slices"
	"strings"
	"sync/atomic"
	"time"
)

type snapshot struct {
	updatedAt time.Time
	values    map[string]json.RawMessage
}

var current atomic.Pointer[snapshot]

// StoreDBConfig replaces the in-memory snapshot of DB-backed settings.
// Keys are trimmed; empty keys are dropped. Values are copied.
func StoreDBConfig(updatedAt time.Time, values map[string]json.RawMessage) {
	next := &snapshot{
		updatedAt: updatedAt.UTC(),
		values:    make(map[string]json.RawMessage, len(values)),
	}
	for k, v := range values {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		next.values[key] = cloneRaw(v)
	}
	current.Store(next)
}

// DBConfigUpdatedAt returns the newest updated_at among the loaded rows.
func DBConfigUpdatedAt() time.Time {
	if snap := current.Load(); snap != nil {
		return snap.updatedAt
	}
	return time.Time{}
}

// DBConfigValue returns a copy of the raw value stored under key.
func DBConfigValue(key string) (json.RawMessage, bool) {
	snap := current.Load()
	if snap == nil {
		return nil, false
	}
	val, ok := snap.values[strings.TrimSpace(key)]
	if !ok {
		return nil, false
	}
	return cloneRaw(val), true
}

// Keys lists the loaded setting keys in sorted order.
func Keys() []string {
	snap := current.Load()
	if snap == nil {
		return []string{}
	}
	keys := make([]string, 0, len(snap.values))
	for k := range snap.values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func cloneRaw(v json.RawMessage) json.RawMessage {
	if v == nil {
		return nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out
}
