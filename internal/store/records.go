package store

import "time"

// Record keys in the key-value table.
const (
	TimerKey    = "work-time-tracker:timer-state"
	TaskListKey = "work-time-tracker:task-list-state"
	HistoryKey  = "work-time-tracker:history-state"
)

// SegmentRecord is a persisted work segment. End is nil while the segment is open.
type SegmentRecord struct {
	Start int64  `json:"start"`
	End   *int64 `json:"end"`
}

// TimerRecord is the persisted timer state.
type TimerRecord struct {
	Status      string          `json:"status"`
	Segments    []SegmentRecord `json:"segments"`
	LastUpdated int64           `json:"lastUpdated"`
}

// TaskRecord is a persisted task. ElapsedTime is in milliseconds.
type TaskRecord struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ElapsedTime int64  `json:"elapsedTime"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// TaskListRecord is the persisted task list and selection.
type TaskListRecord struct {
	Tasks          []TaskRecord `json:"tasks"`
	SelectedTaskID *string      `json:"selectedTaskId"`
	LastUpdated    int64        `json:"lastUpdated"`
}

// HistoryEntryRecord is a persisted history entry. Duration is in milliseconds.
type HistoryEntryRecord struct {
	ID           string `json:"id"`
	TaskID       string `json:"taskId"`
	Duration     int64  `json:"duration"`
	PortionStart string `json:"portionStart"`
	SavedAt      string `json:"savedAt"`
}

// HistoryRecord is the persisted list of history entries, newest first.
type HistoryRecord struct {
	Entries     []HistoryEntryRecord `json:"entries"`
	LastUpdated int64                `json:"lastUpdated"`
}

// isoLayout matches JavaScript's Date.toISOString output.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO renders t as a UTC ISO-8601 timestamp with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseISO parses an ISO-8601 timestamp into local time.
func ParseISO(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.Local(), nil
}

// Millis converts t to Unix epoch milliseconds.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// FromMillis converts Unix epoch milliseconds to local time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}
