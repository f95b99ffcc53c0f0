package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sync job status constants.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
	SyncStatusStopped   = "stopped"
)

// Sync job kind constants.
const (
	SyncKindUniversities = "universities"
	SyncKindCourses      = "courses"
	SyncKindEnrichment   = "enrichment"
	SyncKindResume       = "resume"
)

// validSyncTransitions maps each status to the set of statuses it may transition to.
// A job starts as running and moves to exactly one terminal status; terminal
// states have no outgoing transitions (new runs get new job ids).
var validSyncTransitions = map[string]map[string]bool{
	SyncStatusRunning: {
		SyncStatusCompleted: true,
		SyncStatusFailed:    true,
		SyncStatusStopped:   true,
	},
}

// ValidSyncTransition reports whether moving a sync job from one status to
// another is allowed.
func ValidSyncTransition(from, to string) bool {
	targets, ok := validSyncTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// SyncTerminal reports whether a status is terminal.
func SyncTerminal(status string) bool {
	return status == SyncStatusCompleted || status == SyncStatusFailed || status == SyncStatusStopped
}

// SyncJob records one import/enrichment/analysis run. The row is created in
// the running state before the start request returns, counters are updated
// while the importer makes progress, and the final update sets a terminal
// status with finished_at. Recent rows double as the sync history the admin
// UI shows.
type SyncJob struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	Kind   string `gorm:"size:50;not null;index" json:"kind"`
	Source string `gorm:"size:50" json:"source,omitempty"`
	Status string `gorm:"not null;default:'running';check:status IN ('running', 'completed', 'failed', 'stopped')" json:"status"`

	// Progress counters
	RecordsFound   int `json:"records_found"`
	RecordsCreated int `json:"records_created"`
	RecordsUpdated int `json:"records_updated"`
	RecordsFailed  int `json:"records_failed"`

	Error         string     `gorm:"type:text" json:"error,omitempty"`
	StopRequested bool       `gorm:"default:false" json:"stop_requested"`
	StartedAt     time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (j *SyncJob) BeforeCreate(*gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
