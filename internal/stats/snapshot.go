package stats

import "github.com/ritualhq/ritual/internal/storage"

// Snapshot is a date-indexed view of the store, loaded by the caller
// through the repositories. It bundles the inputs the engine functions
// need so call sites assemble them once.
type Snapshot struct {
	CompletionsByDate map[string][]storage.Completion
	EntriesByDate     map[string]storage.Entry
	TasksByID         map[string]storage.Task
	CategoriesByID    map[string]storage.Category
}

// NewSnapshot indexes flat repository listings by date and id.
func NewSnapshot(
	completions []storage.Completion,
	entries []storage.Entry,
	tasks []storage.Task,
	categories []storage.Category,
) *Snapshot {
	snapshot := &Snapshot{
		CompletionsByDate: map[string][]storage.Completion{},
		EntriesByDate:     make(map[string]storage.Entry, len(entries)),
		TasksByID:         make(map[string]storage.Task, len(tasks)),
		CategoriesByID:    make(map[string]storage.Category, len(categories)),
	}
	for _, completion := range completions {
		snapshot.CompletionsByDate[completion.Date] = append(snapshot.CompletionsByDate[completion.Date], completion)
	}
	for _, entry := range entries {
		snapshot.EntriesByDate[entry.Date] = entry
	}
	for _, task := range tasks {
		snapshot.TasksByID[task.ID] = task
	}
	for _, category := range categories {
		snapshot.CategoriesByID[category.ID] = category
	}
	return snapshot
}

func (s *Snapshot) CurrentStreak(reference string) int {
	return CurrentStreak(s.CompletionsByDate, reference)
}

func (s *Snapshot) LongestStreak() int {
	return LongestStreak(s.CompletionsByDate)
}

func (s *Snapshot) CompletionRate(start, end string) float64 {
	return CompletionRate(s.CompletionsByDate, start, end)
}

func (s *Snapshot) CategoryBreakdown(start, end string) map[string]CategoryProgress {
	return CategoryBreakdown(s.CompletionsByDate, s.TasksByID, s.CategoriesByID, start, end)
}

func (s *Snapshot) Journal(start, end string) JournalStats {
	return Journal(s.EntriesByDate, start, end)
}

func (s *Snapshot) Heatmap(start, end string) map[string]int {
	return Heatmap(s.CompletionsByDate, start, end)
}

func (s *Snapshot) ProductivityTrends(start, end string) Trends {
	return ProductivityTrends(s.CompletionsByDate, start, end)
}

func (s *Snapshot) DayProgress(date string) DayProgress {
	return CalculateDayProgress(date, s.CompletionsByDate[date], s.TasksByID, s.CategoriesByID)
}
