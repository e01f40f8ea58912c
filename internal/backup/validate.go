package backup

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxSnapshotAge is the age past which a snapshot draws a staleness warning.
const maxSnapshotAge = 30 * 24 * time.Hour

// Validation is the outcome of structural validation. Issues block a
// restore; warnings never do.
type Validation struct {
	Issues   []string
	Warnings []string
}

func (v *Validation) Valid() bool {
	return len(v.Issues) == 0
}

func (v *Validation) issue(format string, args ...any) {
	v.Issues = append(v.Issues, fmt.Sprintf(format, args...))
}

func (v *Validation) warn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

var mandatoryRecordKeys = map[string][]string{
	"categories":  {"id", "name"},
	"tasks":       {"id", "title", "categoryId", "archived", "createdAt", "updatedAt"},
	"entries":     {"id", "date", "note", "createdAt", "updatedAt"},
	"completions": {"id", "date", "taskId", "createdAt"},
	"settings":    {"key", "value"},
}

var recordArrayOrder = []string{"categories", "tasks", "entries", "completions", "settings"}

// ValidateSnapshot checks raw structurally before any typed decode: required
// top-level fields, the five record arrays, and per-record mandatory keys.
// It never mutates anything; a snapshot is returned only when validation
// passes.
func ValidateSnapshot(raw []byte, now time.Time) (*Snapshot, *Validation) {
	validation := &Validation{}

	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		validation.issue("not a JSON object: %v", err)
		return nil, validation
	}

	version, ok := document["version"].(string)
	if !ok {
		validation.issue("missing or non-string top-level field %q", "version")
	} else if version != FormatVersion {
		validation.warn("backup version %q differs from current %q", version, FormatVersion)
	}

	timestamp, ok := document["timestamp"].(float64)
	if !ok {
		validation.issue("missing or non-numeric top-level field %q", "timestamp")
	} else {
		exported := time.UnixMilli(int64(timestamp))
		if now.Sub(exported) > maxSnapshotAge {
			validation.warn("backup is older than 30 days (exported %s)", exported.UTC().Format(time.RFC3339))
		}
	}

	if _, ok := document["metadata"].(map[string]any); !ok {
		validation.issue("missing or malformed top-level field %q", "metadata")
	}

	for _, arrayName := range recordArrayOrder {
		value, present := document[arrayName]
		if !present {
			validation.issue("missing record array %q", arrayName)
			continue
		}
		records, ok := value.([]any)
		if !ok {
			validation.issue("record array %q is not an array", arrayName)
			continue
		}
		for i, rawRecord := range records {
			record, ok := rawRecord.(map[string]any)
			if !ok {
				validation.issue("%s[%d] is not an object", arrayName, i)
				continue
			}
			for _, key := range mandatoryRecordKeys[arrayName] {
				if _, present := record[key]; !present {
					validation.issue("%s[%d] is missing mandatory key %q", arrayName, i, key)
				}
			}
		}
	}

	if !validation.Valid() {
		return nil, validation
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		validation.issue("decode snapshot: %v", err)
		return nil, validation
	}
	return &snapshot, validation
}
