package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToggleCompletionInvolution(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	category := createTestCategory(t, store, "health")
	task := createTestTask(t, store, "stretch", category.ID)

	completed, err := store.Completions.Toggle(ctx, "2025-01-15", task.ID, nil)
	require.NoError(t, err)
	require.True(t, completed)

	list, err := store.Completions.ListByDate(ctx, "2025-01-15")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, task.ID, list[0].TaskID)

	completed, err = store.Completions.Toggle(ctx, "2025-01-15", task.ID, nil)
	require.NoError(t, err)
	require.False(t, completed)

	list, err = store.Completions.ListByDate(ctx, "2025-01-15")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestToggleCompletionRecordsMinutes(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	category := createTestCategory(t, store, "health")
	task := createTestTask(t, store, "stretch", category.ID)

	minutes := 25
	completed, err := store.Completions.Toggle(ctx, "2025-01-15", task.ID, &minutes)
	require.NoError(t, err)
	require.True(t, completed)

	list, err := store.Completions.ListByDate(ctx, "2025-01-15")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Minutes)
	require.Equal(t, 25, *list[0].Minutes)
}

func TestToggleCompletionValidatesInput(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Completions.Toggle(ctx, "not-a-date", "task", nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = store.Completions.Toggle(ctx, "2025-01-15", "", nil)
	require.ErrorIs(t, err, ErrValidation)

	_, err = store.Completions.Toggle(ctx, "2025-01-15", "ghost", nil)
	require.ErrorIs(t, err, ErrReferential)
}

func TestCompletionCreateEnforcesUniqueDateTask(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	category := createTestCategory(t, store, "health")
	task := createTestTask(t, store, "stretch", category.ID)

	require.NoError(t, store.Completions.Create(ctx, &Completion{Date: "2025-01-15", TaskID: task.ID}))
	err := store.Completions.Create(ctx, &Completion{Date: "2025-01-15", TaskID: task.ID})
	require.Error(t, err)
}

func TestCompletionListRange(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	category := createTestCategory(t, store, "health")
	task := createTestTask(t, store, "stretch", category.ID)

	for _, date := range []string{"2025-01-10", "2025-01-15", "2025-01-20"} {
		_, err := store.Completions.Toggle(ctx, date, task.ID, nil)
		require.NoError(t, err)
	}

	inRange, err := store.Completions.ListRange(ctx, "2025-01-12", "2025-01-18")
	require.NoError(t, err)
	require.Len(t, inRange, 1)
	require.Equal(t, "2025-01-15", inRange[0].Date)

	byTask, err := store.Completions.ListByTask(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, byTask, 3)
}
