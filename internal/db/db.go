package db

import (
	"fmt"

	"medfocus/internal/auth"
	"medfocus/internal/deck"
	"medfocus/internal/jobs"
	"medfocus/internal/progress"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	// Tables
	if err := gdb.AutoMigrate(
		&auth.User{},
		&deck.Deck{},
		&deck.Card{},
		&deck.CardState{},
		&progress.UserProgress{},
		&progress.XpEvent{},
		&jobs.Job{},
	); err != nil {
		return err
	}

	// Deck library filtering (GIN for text[])
	if err := gdb.Exec(`create index if not exists idx_decks_tags on decks using gin (tags);`).Error; err != nil {
		return err
	}

	// Helpful indexes
	stmts := []string{
		// Session building: one learner's due cards.
		`create index if not exists idx_card_states_user_due on card_states(user_id, due_date);`,
		// Activity feed, newest first, and monthly re-aggregation.
		`create index if not exists idx_xp_events_user_created on xp_events(user_id, created_at desc);`,
		`create index if not exists idx_xp_events_created on xp_events(created_at);`,
		// Leaderboards.
		`create index if not exists idx_progress_weekly on user_progress(week_start, weekly_xp desc);`,
		`create index if not exists idx_progress_total on user_progress(total_xp desc);`,
		// Job queue.
		`create index if not exists idx_jobs_due on jobs(status, run_at);`,
		`create index if not exists idx_jobs_lock on jobs(status, locked_at);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}

	return nil
}
