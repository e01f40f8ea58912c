// Package stats derives streaks, rates, and trends from date-indexed
// snapshots loaded through the repository layer. Every function is pure:
// no store access, no clock access, already-validated input assumed.
package stats

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ritualhq/ritual/internal/storage"
)

// CurrentStreak counts consecutive calendar days with at least one
// completion, walking backwards from the reference date. A reference day
// without completions yields zero.
func CurrentStreak(byDate map[string][]storage.Completion, reference string) int {
	streak := 0
	for {
		day := addDays(reference, -streak)
		if len(byDate[day]) == 0 {
			return streak
		}
		streak++
	}
}

// LongestStreak scans all distinct completion dates ascending, resetting the
// running count at any gap greater than one day.
func LongestStreak(byDate map[string][]storage.Completion) int {
	dates := make([]string, 0, len(byDate))
	for date, completions := range byDate {
		if len(completions) > 0 {
			dates = append(dates, date)
		}
	}
	if len(dates) == 0 {
		return 0
	}
	sort.Strings(dates)

	longest, run := 1, 1
	for i := 1; i < len(dates); i++ {
		if dates[i] == addDays(dates[i-1], 1) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// CompletionRate is the percentage of days in [start, end] with at least
// one completion.
func CompletionRate(byDate map[string][]storage.Completion, start, end string) float64 {
	days := daysInclusive(start, end)
	if days == 0 {
		return 0
	}

	completed := 0
	eachDay(start, end, func(date string) {
		if len(byDate[date]) > 0 {
			completed++
		}
	})
	return float64(completed) / float64(days) * 100
}

// CategoryProgress pairs completions achieved against capacity.
type CategoryProgress struct {
	Completed int
	Total     int
}

// CategoryBreakdown aggregates completions in [start, end] per category
// name. Total is a capacity metric: tasks in the category times days in the
// range, regardless of which tasks were actually available on a given day.
func CategoryBreakdown(
	byDate map[string][]storage.Completion,
	tasks map[string]storage.Task,
	categories map[string]storage.Category,
	start, end string,
) map[string]CategoryProgress {
	days := daysInclusive(start, end)

	tasksPerCategory := map[string]int{}
	for _, task := range tasks {
		if task.Archived {
			continue
		}
		tasksPerCategory[task.CategoryID]++
	}

	out := map[string]CategoryProgress{}
	for _, category := range categories {
		out[category.Name] = CategoryProgress{
			Total: tasksPerCategory[category.ID] * days,
		}
	}

	for date, completions := range byDate {
		if !inRange(date, start, end) {
			continue
		}
		for _, completion := range completions {
			task, ok := tasks[completion.TaskID]
			if !ok {
				continue
			}
			category, ok := categories[task.CategoryID]
			if !ok {
				continue
			}
			progress := out[category.Name]
			progress.Completed++
			out[category.Name] = progress
		}
	}
	return out
}

// JournalStats summarizes entries in [start, end] whose trimmed note is
// non-empty. Lengths are rune counts of the original note.
type JournalStats struct {
	Count         int
	AverageLength float64
	MaxLength     int
}

func Journal(entries map[string]storage.Entry, start, end string) JournalStats {
	var stats JournalStats
	total := 0
	for date, entry := range entries {
		if !inRange(date, start, end) {
			continue
		}
		if strings.TrimSpace(entry.Note) == "" {
			continue
		}
		length := utf8.RuneCountInString(entry.Note)
		stats.Count++
		total += length
		if length > stats.MaxLength {
			stats.MaxLength = length
		}
	}
	if stats.Count > 0 {
		stats.AverageLength = float64(total) / float64(stats.Count)
	}
	return stats
}

// Heatmap maps each date to its completion count, clipped to [start, end]
// when both bounds are non-empty.
func Heatmap(byDate map[string][]storage.Completion, start, end string) map[string]int {
	out := map[string]int{}
	for date, completions := range byDate {
		if len(completions) == 0 {
			continue
		}
		if start != "" && end != "" && !inRange(date, start, end) {
			continue
		}
		out[date] = len(completions)
	}
	return out
}

// DayCount is one day of the zero-filled trend series.
type DayCount struct {
	Date  string
	Count int
}

// Trends summarizes per-day completion activity over a range.
type Trends struct {
	// Daily covers every day of the range, zero-filled.
	Daily []DayCount
	// BestDay is the single highest-count day (earliest wins ties).
	BestDay DayCount
	// BestWeekday is the weekday (0=Sunday..6=Saturday) with the highest
	// average completions across the range.
	BestWeekday time.Weekday
	// WeeklyAverages holds non-overlapping 7-day bucket averages starting
	// at the range start; the final bucket may cover fewer days.
	WeeklyAverages []float64
}

func ProductivityTrends(byDate map[string][]storage.Completion, start, end string) Trends {
	var trends Trends

	weekdayTotals := map[time.Weekday]int{}
	weekdayDays := map[time.Weekday]int{}

	eachDay(start, end, func(date string) {
		count := len(byDate[date])
		trends.Daily = append(trends.Daily, DayCount{Date: date, Count: count})

		weekday := mustDay(date).Weekday()
		weekdayTotals[weekday] += count
		weekdayDays[weekday]++
	})
	if len(trends.Daily) == 0 {
		return trends
	}

	trends.BestDay = trends.Daily[0]
	for _, day := range trends.Daily[1:] {
		if day.Count > trends.BestDay.Count {
			trends.BestDay = day
		}
	}

	bestAverage := -1.0
	for weekday := time.Sunday; weekday <= time.Saturday; weekday++ {
		days := weekdayDays[weekday]
		if days == 0 {
			continue
		}
		average := float64(weekdayTotals[weekday]) / float64(days)
		if average > bestAverage {
			bestAverage = average
			trends.BestWeekday = weekday
		}
	}

	for offset := 0; offset < len(trends.Daily); offset += 7 {
		bucketEnd := offset + 7
		if bucketEnd > len(trends.Daily) {
			bucketEnd = len(trends.Daily)
		}
		total := 0
		for _, day := range trends.Daily[offset:bucketEnd] {
			total += day.Count
		}
		trends.WeeklyAverages = append(trends.WeeklyAverages, float64(total)/float64(bucketEnd-offset))
	}

	return trends
}

// DayProgress reports completion against the active task roster for a
// single date.
type DayProgress struct {
	Date             string
	CompletedTasks   int
	TotalTasks       int
	CompletionRate   float64
	CategoryProgress map[string]CategoryProgress
}

func CalculateDayProgress(
	date string,
	completions []storage.Completion,
	tasks map[string]storage.Task,
	categories map[string]storage.Category,
) DayProgress {
	progress := DayProgress{
		Date:             date,
		CategoryProgress: map[string]CategoryProgress{},
	}

	tasksPerCategory := map[string]int{}
	for _, task := range tasks {
		if task.Archived {
			continue
		}
		progress.TotalTasks++
		tasksPerCategory[task.CategoryID]++
	}
	for _, category := range categories {
		progress.CategoryProgress[category.Name] = CategoryProgress{
			Total: tasksPerCategory[category.ID],
		}
	}

	for _, completion := range completions {
		if completion.Date != date {
			continue
		}
		task, ok := tasks[completion.TaskID]
		if !ok {
			continue
		}
		progress.CompletedTasks++
		if category, ok := categories[task.CategoryID]; ok {
			categoryProgress := progress.CategoryProgress[category.Name]
			categoryProgress.Completed++
			progress.CategoryProgress[category.Name] = categoryProgress
		}
	}

	if progress.TotalTasks > 0 {
		progress.CompletionRate = float64(progress.CompletedTasks) / float64(progress.TotalTasks) * 100
	}
	return progress
}
