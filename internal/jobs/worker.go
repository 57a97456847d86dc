package jobs

import (
	"context"
	"log"
	"math"
	"time"

	"gorm.io/gorm"

	"medfocus/internal/progress"
	"medfocus/internal/srs"
)

type Worker struct {
	ID   string
	Repo *Repo
	DB   *gorm.DB
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(800 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.Repo.Claim(w.ID)
			if err != nil {
				log.Printf("worker claim error: %v\n", err)
				continue
			}
			if job == nil {
				continue
			}
			w.handle(job)
		}
	}
}

func (w *Worker) handle(job *Job) {
	switch job.Type {
	case TypeWeeklyRollover:
		w.handleWeeklyRollover(job)
	case TypeReviewReminder:
		w.handleReviewReminder(job)
	default:
		_ = w.Repo.MarkFailed(job.ID, "unknown job type")
	}
}

// handleWeeklyRollover zeroes weekly counters whose week has passed, so
// learners with no activity this week drop off the weekly leaderboard.
// The read path already treats a stale week_start as zero; this sweep
// just makes the stored rows agree with it.
func (w *Worker) handleWeeklyRollover(job *Job) {
	ws := progress.WeekStart(time.Now())

	res := w.DB.Exec(`
update user_progress
set weekly_xp = 0, week_start = ?, version = version + 1, updated_at = now()
where week_start < ? and weekly_xp > 0`, ws, ws)
	if res.Error != nil {
		w.retry(job, "weekly rollover failed: "+res.Error.Error())
		return
	}

	log.Printf("[ROLLOVER] week=%s reset=%d\n", ws.Format("2006-01-02"), res.RowsAffected)
	_ = w.Repo.MarkDone(job.ID)
}

type dueCount struct {
	UserID uint64
	Due    int64
}

// handleReviewReminder finds learners with cards due today and dispatches
// a reminder per learner. Dispatch is a log line; a push/email channel
// plugs in here.
func (w *Worker) handleReviewReminder(job *Job) {
	today := srs.DateOf(time.Now())

	var rows []dueCount
	err := w.DB.Raw(`
select user_id, count(*) as due
from card_states
where due_date <= ?
group by user_id
order by user_id`, today).Scan(&rows).Error
	if err != nil {
		w.retry(job, "due-card scan failed: "+err.Error())
		return
	}

	for _, r := range rows {
		log.Printf("[REMINDER] user=%d due_cards=%d\n", r.UserID, r.Due)
	}
	_ = w.Repo.MarkDone(job.ID)
}

func (w *Worker) retry(job *Job, errMsg string) {
	attempts := job.Attempts + 1
	if attempts >= job.MaxAttempts {
		_ = w.Repo.MarkFailed(job.ID, errMsg)
		return
	}

	sec := math.Min(math.Pow(2, float64(attempts)), 600)
	next := time.Now().Add(time.Duration(sec) * time.Second)

	_ = w.Repo.RetryLater(job.ID, attempts, next, errMsg)
}
