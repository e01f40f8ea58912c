package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrValidation   = errors.New("storage: validation failed")
	ErrReferential  = errors.New("storage: referential integrity violation")
	ErrSchemaTooNew = errors.New("storage: schema version newer than code")
)

// DateLayout is the calendar-date format used by entries and completions.
const DateLayout = "2006-01-02"

type Category struct {
	ID   string
	Name string
}

type Task struct {
	ID             string
	Title          string
	CategoryID     string
	DefaultMinutes *int
	Archived       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type TaskFilter struct {
	CategoryID      string
	IncludeArchived bool
}

// Entry is a journal note for a single calendar day. At most one entry
// exists per date.
type Entry struct {
	ID        string
	Date      string
	Note      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Completion records that a task was done on a given date. Unique on
// (date, task id).
type Completion struct {
	ID        string
	Date      string
	TaskID    string
	Minutes   *int
	CreatedAt time.Time
}

type Setting struct {
	Key   string
	Value string
}

// SchemaMigrationRecord is one row of the append-only migration ledger.
type SchemaMigrationRecord struct {
	Version   int
	AppliedAt time.Time
}

type CategoryRepository interface {
	Create(ctx context.Context, category *Category) error
	Get(ctx context.Context, id string) (*Category, error)
	GetByName(ctx context.Context, name string) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, filter TaskFilter) ([]Task, error)
	Update(ctx context.Context, task *Task) error
	Archive(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type EntryRepository interface {
	Create(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	GetByDate(ctx context.Context, date string) (*Entry, error)
	ListRange(ctx context.Context, start, end string) ([]Entry, error)
	Update(ctx context.Context, entry *Entry) error
	UpsertByDate(ctx context.Context, date, note string) (*Entry, error)
	Delete(ctx context.Context, id string) error
}

type CompletionRepository interface {
	Create(ctx context.Context, completion *Completion) error
	Get(ctx context.Context, id string) (*Completion, error)
	ListByDate(ctx context.Context, date string) ([]Completion, error)
	ListRange(ctx context.Context, start, end string) ([]Completion, error)
	ListByTask(ctx context.Context, taskID string) ([]Completion, error)
	Toggle(ctx context.Context, date, taskID string, minutes *int) (completed bool, err error)
	Delete(ctx context.Context, id string) error
	DeleteByTask(ctx context.Context, taskID string) error
}

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	List(ctx context.Context) ([]Setting, error)
}
