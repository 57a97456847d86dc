package progress

import "time"

// UserProgress is the per-learner gamification projection. Level and title
// are derived from TotalXP on read and never stored, so they cannot desync.
// Version guards the read-modify-write cycle in Service.Award.
type UserProgress struct {
	UserID uint64 `gorm:"primaryKey"`

	TotalXP       int `gorm:"not null;default:0"`
	Streak        int `gorm:"not null;default:0"`
	LongestStreak int `gorm:"not null;default:0"`

	LastActivityDate *time.Time

	// XP earned inside the ISO week starting at WeekStart. Reset when the
	// week rolls over; always equals re-summing xp_events for that week.
	WeeklyXP  int       `gorm:"not null;default:0"`
	WeekStart time.Time `gorm:"index"`

	QuestionsCorrect   int `gorm:"not null;default:0"`
	SimuladosCompleted int `gorm:"not null;default:0"`
	PomodorosCompleted int `gorm:"not null;default:0"`
	FlashcardsReviewed int `gorm:"not null;default:0"`
	GoalsCompleted     int `gorm:"not null;default:0"`

	Version   uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (UserProgress) TableName() string { return "user_progress" }

// XpEvent is the append-only award log. Rows are never mutated or deleted;
// they feed the activity feed and the monthly leaderboard aggregation.
type XpEvent struct {
	ID          uint64  `gorm:"primaryKey"`
	UserID      uint64  `gorm:"index;not null"`
	Activity    string  `gorm:"not null"`
	XpEarned    int     `gorm:"not null"`
	Description *string `gorm:"type:text"`
	CreatedAt   time.Time `gorm:"index;not null"`
}
