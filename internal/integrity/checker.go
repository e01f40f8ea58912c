// Package integrity audits repository data for structural and referential
// corruption and repairs what it safely can: orphaned completions are
// deleted, orphaned tasks are archived so their history stays inspectable.
package integrity

import (
	"context"
	"fmt"
	"strings"

	"github.com/ritualhq/ritual/internal/storage"
)

// Issue is one observation about a specific record.
type Issue struct {
	Entity  string
	ID      string
	Field   string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s %s: %s: %s", i.Entity, i.ID, i.Field, i.Message)
}

// CorruptedRecords lists the ids of records that failed a blocking check.
type CorruptedRecords struct {
	Categories  []string
	Tasks       []string
	Entries     []string
	Completions []string
}

// Report is the outcome of a read-only audit. Warnings are informational
// and never make the report invalid.
type Report struct {
	IsValid   bool
	Errors    []Issue
	Warnings  []Issue
	Corrupted CorruptedRecords
}

// RepairResult counts the actions taken by a repair pass.
type RepairResult struct {
	DeletedCompletions int
	ArchivedTasks      int
}

type Checker struct {
	store *storage.Store
}

func NewChecker(store *storage.Store) *Checker {
	return &Checker{store: store}
}

// Check audits every entity without mutating anything.
func (c *Checker) Check(ctx context.Context) (*Report, error) {
	report := &Report{}

	categories, err := c.store.Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("integrity check: load categories: %w", err)
	}
	tasks, err := c.store.Tasks.List(ctx, storage.TaskFilter{IncludeArchived: true})
	if err != nil {
		return nil, fmt.Errorf("integrity check: load tasks: %w", err)
	}
	entries, err := c.store.Entries.ListRange(ctx, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, fmt.Errorf("integrity check: load entries: %w", err)
	}
	completions, err := c.store.Completions.ListRange(ctx, "0000-01-01", "9999-12-31")
	if err != nil {
		return nil, fmt.Errorf("integrity check: load completions: %w", err)
	}

	categoryIDs := map[string]bool{}
	for _, category := range categories {
		categoryIDs[category.ID] = true
	}
	taskIDs := map[string]bool{}
	for _, task := range tasks {
		taskIDs[task.ID] = true
	}

	for _, category := range categories {
		if category.ID == "" {
			report.addError("category", category.ID, "id", "missing id")
			report.Corrupted.Categories = append(report.Corrupted.Categories, category.ID)
			continue
		}
		if strings.TrimSpace(category.Name) == "" {
			report.addWarning("category", category.ID, "name", "empty name")
		}
	}

	for _, task := range tasks {
		if task.ID == "" {
			report.addError("task", task.ID, "id", "missing id")
			report.Corrupted.Tasks = append(report.Corrupted.Tasks, task.ID)
			continue
		}
		if strings.TrimSpace(task.Title) == "" {
			report.addWarning("task", task.ID, "title", "empty title")
		}
		if task.DefaultMinutes != nil && *task.DefaultMinutes < 0 {
			report.addWarning("task", task.ID, "defaultMinutes", fmt.Sprintf("negative value %d", *task.DefaultMinutes))
		}
		// Category resolution is only required of tasks that are still
		// active; an archived task may outlive its category.
		if task.Archived {
			continue
		}
		switch {
		case task.CategoryID == "":
			report.addError("task", task.ID, "categoryId", "missing category reference")
			report.Corrupted.Tasks = append(report.Corrupted.Tasks, task.ID)
		case !categoryIDs[task.CategoryID]:
			report.addError("task", task.ID, "categoryId", fmt.Sprintf("references missing category %q", task.CategoryID))
			report.Corrupted.Tasks = append(report.Corrupted.Tasks, task.ID)
		}
	}

	for _, entry := range entries {
		if entry.ID == "" {
			report.addError("entry", entry.ID, "id", "missing id")
			report.Corrupted.Entries = append(report.Corrupted.Entries, entry.ID)
			continue
		}
		if err := storage.ValidateDate(entry.Date); err != nil {
			report.addError("entry", entry.ID, "date", fmt.Sprintf("malformed date %q", entry.Date))
			report.Corrupted.Entries = append(report.Corrupted.Entries, entry.ID)
		}
		if strings.TrimSpace(entry.Note) == "" {
			report.addWarning("entry", entry.ID, "note", "empty note")
		}
	}

	for _, completion := range completions {
		if completion.ID == "" {
			report.addError("completion", completion.ID, "id", "missing id")
			report.Corrupted.Completions = append(report.Corrupted.Completions, completion.ID)
			continue
		}
		if err := storage.ValidateDate(completion.Date); err != nil {
			report.addError("completion", completion.ID, "date", fmt.Sprintf("malformed date %q", completion.Date))
			report.Corrupted.Completions = append(report.Corrupted.Completions, completion.ID)
		}
		if completion.Minutes != nil && *completion.Minutes < 0 {
			report.addWarning("completion", completion.ID, "minutes", fmt.Sprintf("negative value %d", *completion.Minutes))
		}
		switch {
		case completion.TaskID == "":
			report.addError("completion", completion.ID, "taskId", "missing task reference")
			report.Corrupted.Completions = append(report.Corrupted.Completions, completion.ID)
		case !taskIDs[completion.TaskID]:
			report.addError("completion", completion.ID, "taskId", fmt.Sprintf("references missing task %q", completion.TaskID))
			report.Corrupted.Completions = append(report.Corrupted.Completions, completion.ID)
		}
	}

	report.IsValid = len(report.Errors) == 0
	return report, nil
}

// Repair runs a fresh check, then deletes orphaned completions and archives
// orphaned tasks. The full report is computed before anything is touched, so
// a record never changes classification mid-pass. A subsequent Check reports
// valid absent new corruption.
func (c *Checker) Repair(ctx context.Context) (*RepairResult, error) {
	report, err := c.Check(ctx)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{}

	for _, id := range report.Corrupted.Completions {
		if id == "" {
			continue
		}
		if err := c.store.Completions.Delete(ctx, id); err != nil {
			return result, fmt.Errorf("repair: delete orphaned completion %s: %w", id, err)
		}
		result.DeletedCompletions++
	}

	for _, id := range report.Corrupted.Tasks {
		if id == "" {
			continue
		}
		// Archive, never hard-delete: completion history referencing the
		// task remains inspectable.
		if err := c.store.Tasks.Archive(ctx, id); err != nil {
			return result, fmt.Errorf("repair: archive orphaned task %s: %w", id, err)
		}
		result.ArchivedTasks++
	}

	return result, nil
}

func (r *Report) addError(entity, id, field, message string) {
	r.Errors = append(r.Errors, Issue{Entity: entity, ID: id, Field: field, Message: message})
}

func (r *Report) addWarning(entity, id, field, message string) {
	r.Warnings = append(r.Warnings, Issue{Entity: entity, ID: id, Field: field, Message: message})
}
