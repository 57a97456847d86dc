package jobs

import "time"

const (
	// Zeroes stale weekly XP counters once the ISO week turns over.
	TypeWeeklyRollover = "WEEKLY_ROLLOVER"
	// Notifies learners who have cards due today.
	TypeReviewReminder = "REVIEW_REMINDER"
)

// Job is one unit of deferred work. UserID is zero for system-wide jobs
// like the weekly rollover.
type Job struct {
	ID     uint64 `gorm:"primaryKey"`
	UserID uint64 `gorm:"index;not null;default:0"`

	Type    string `gorm:"type:text;not null"`
	Payload []byte `gorm:"type:jsonb;not null;default:'{}'::jsonb"`

	RunAt  time.Time `gorm:"index;not null"`
	Status string    `gorm:"index;not null;default:'PENDING'"` // PENDING/RUNNING/DONE/FAILED

	Attempts    int `gorm:"not null;default:0"`
	MaxAttempts int `gorm:"not null;default:8"`

	LockedBy *string    `gorm:"type:text"`
	LockedAt *time.Time `gorm:"type:timestamptz"`

	LastError *string `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}
