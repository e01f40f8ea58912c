// Package backup exports point-in-time JSON snapshots of the store and
// restores them atomically after structural validation.
package backup

import (
	"time"

	"github.com/ritualhq/ritual/internal/storage"
)

// FormatVersion identifies the snapshot file layout.
const FormatVersion = "1.0"

// Snapshot is the on-disk backup document. Timestamp is epoch milliseconds.
type Snapshot struct {
	Version     string             `json:"version"`
	Timestamp   int64              `json:"timestamp"`
	Categories  []CategoryRecord   `json:"categories"`
	Tasks       []TaskRecord       `json:"tasks"`
	Entries     []EntryRecord      `json:"entries"`
	Completions []CompletionRecord `json:"completions"`
	Settings    []SettingRecord    `json:"settings"`
	Metadata    Metadata           `json:"metadata"`
}

type Metadata struct {
	TotalRecords int    `json:"totalRecords"`
	ExportedBy   string `json:"exportedBy"`
	AppVersion   string `json:"appVersion"`
}

type CategoryRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TaskRecord struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	CategoryID     string `json:"categoryId"`
	DefaultMinutes *int   `json:"defaultMinutes,omitempty"`
	Archived       bool   `json:"archived"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
}

type EntryRecord struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Note      string `json:"note"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type CompletionRecord struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	TaskID    string `json:"taskId"`
	Minutes   *int   `json:"minutes,omitempty"`
	CreatedAt string `json:"createdAt"`
}

type SettingRecord struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func categoryRecord(category storage.Category) CategoryRecord {
	return CategoryRecord{ID: category.ID, Name: category.Name}
}

func taskRecord(task storage.Task) TaskRecord {
	return TaskRecord{
		ID:             task.ID,
		Title:          task.Title,
		CategoryID:     task.CategoryID,
		DefaultMinutes: task.DefaultMinutes,
		Archived:       task.Archived,
		CreatedAt:      fmtTime(task.CreatedAt),
		UpdatedAt:      fmtTime(task.UpdatedAt),
	}
}

func entryRecord(entry storage.Entry) EntryRecord {
	return EntryRecord{
		ID:        entry.ID,
		Date:      entry.Date,
		Note:      entry.Note,
		CreatedAt: fmtTime(entry.CreatedAt),
		UpdatedAt: fmtTime(entry.UpdatedAt),
	}
}

func completionRecord(completion storage.Completion) CompletionRecord {
	return CompletionRecord{
		ID:        completion.ID,
		Date:      completion.Date,
		TaskID:    completion.TaskID,
		Minutes:   completion.Minutes,
		CreatedAt: fmtTime(completion.CreatedAt),
	}
}

func settingRecord(setting storage.Setting) SettingRecord {
	return SettingRecord{Key: setting.Key, Value: setting.Value}
}
