package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ritualhq/ritual/internal/storage"
)

func TestSnapshotIndexesAndDelegates(t *testing.T) {
	t.Parallel()

	completions := []storage.Completion{
		{ID: "p1", Date: "2025-01-14", TaskID: "t1"},
		{ID: "p2", Date: "2025-01-15", TaskID: "t1"},
		{ID: "p3", Date: "2025-01-15", TaskID: "t2"},
	}
	entries := []storage.Entry{
		{ID: "e1", Date: "2025-01-15", Note: "short"},
	}
	tasks := []storage.Task{
		{ID: "t1", Title: "a", CategoryID: "c1"},
		{ID: "t2", Title: "b", CategoryID: "c1"},
	}
	categories := []storage.Category{
		{ID: "c1", Name: "business"},
	}

	snapshot := NewSnapshot(completions, entries, tasks, categories)

	require.Len(t, snapshot.CompletionsByDate["2025-01-15"], 2)
	require.Equal(t, "short", snapshot.EntriesByDate["2025-01-15"].Note)

	require.Equal(t, 2, snapshot.CurrentStreak("2025-01-15"))
	require.Equal(t, 2, snapshot.LongestStreak())
	require.InDelta(t, 100.0, snapshot.CompletionRate("2025-01-14", "2025-01-15"), 0.001)

	breakdown := snapshot.CategoryBreakdown("2025-01-14", "2025-01-15")
	require.Equal(t, CategoryProgress{Completed: 3, Total: 4}, breakdown["business"])

	progress := snapshot.DayProgress("2025-01-15")
	require.Equal(t, 2, progress.CompletedTasks)
	require.Equal(t, 2, progress.TotalTasks)
	require.InDelta(t, 100.0, progress.CompletionRate, 0.001)
}
