package storage

import (
	"fmt"
	"strings"
	"time"
)

// ValidateDate reports whether raw is a real calendar date in YYYY-MM-DD
// form. The round-trip comparison rejects dates that parse but normalize
// differently, e.g. 2025-02-30.
func ValidateDate(raw string) error {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return fmt.Errorf("%w: date %q is not in YYYY-MM-DD form", ErrValidation, raw)
	}
	if t.Format(DateLayout) != raw {
		return fmt.Errorf("%w: date %q is not a valid calendar date", ErrValidation, raw)
	}
	return nil
}

func validateCategory(category *Category) error {
	if category == nil {
		return fmt.Errorf("%w: category is nil", ErrValidation)
	}
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrValidation)
	}
	return nil
}

func validateTask(task *Task) error {
	if task == nil {
		return fmt.Errorf("%w: task is nil", ErrValidation)
	}
	if strings.TrimSpace(task.Title) == "" {
		return fmt.Errorf("%w: task title is required", ErrValidation)
	}
	if task.CategoryID == "" {
		return fmt.Errorf("%w: task category id is required", ErrValidation)
	}
	if task.DefaultMinutes != nil && *task.DefaultMinutes < 0 {
		return fmt.Errorf("%w: task default minutes must be >= 0, got %d", ErrValidation, *task.DefaultMinutes)
	}
	return nil
}

func validateEntry(entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("%w: entry is nil", ErrValidation)
	}
	return ValidateDate(entry.Date)
}

func validateCompletion(completion *Completion) error {
	if completion == nil {
		return fmt.Errorf("%w: completion is nil", ErrValidation)
	}
	if err := ValidateDate(completion.Date); err != nil {
		return err
	}
	if completion.TaskID == "" {
		return fmt.Errorf("%w: completion task id is required", ErrValidation)
	}
	if completion.Minutes != nil && *completion.Minutes < 0 {
		return fmt.Errorf("%w: completion minutes must be >= 0, got %d", ErrValidation, *completion.Minutes)
	}
	return nil
}
