package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

func ensureID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t, nil
}

func nullableMinutes(minutes *int) sql.NullInt64 {
	if minutes == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*minutes), Valid: true}
}

func minutesFromNullable(raw sql.NullInt64) *int {
	if !raw.Valid {
		return nil
	}
	m := int(raw.Int64)
	return &m
}
