package progress

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidPeriod = errors.New("invalid leaderboard period")

// Period selects the aggregation window the board is ranked over.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "alltime"
)

type LeaderboardEntry struct {
	Rank   int    `json:"rank"`
	UserID uint64 `json:"user_id"`
	XP     int    `json:"xp"`
	Level  int    `json:"level"`
	Title  string `json:"title"`
}

type boardRow struct {
	UserID  uint64
	XP      int
	TotalXP int
}

// Leaderboard ranks learners by XP inside the chosen period. Weekly reads
// the incrementally maintained counter, monthly re-aggregates the event
// log for the current calendar month, alltime ranks lifetime totals.
// Level and title always derive from lifetime XP.
func (s *Service) Leaderboard(ctx context.Context, period Period, limit int, now time.Time) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var rows []boardRow
	var err error

	switch period {
	case PeriodWeekly:
		err = s.DB.WithContext(ctx).Raw(`
select user_id, weekly_xp as xp, total_xp
from user_progress
where week_start = ? and weekly_xp > 0
order by weekly_xp desc, user_id asc
limit ?`, WeekStart(now), limit).Scan(&rows).Error

	case PeriodMonthly:
		from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 1, 0)
		err = s.DB.WithContext(ctx).Raw(`
select e.user_id, sum(e.xp_earned) as xp, p.total_xp
from xp_events e
join user_progress p on p.user_id = e.user_id
where e.created_at >= ? and e.created_at < ?
group by e.user_id, p.total_xp
order by xp desc, e.user_id asc
limit ?`, from, to, limit).Scan(&rows).Error

	case PeriodAllTime:
		err = s.DB.WithContext(ctx).Raw(`
select user_id, total_xp as xp, total_xp
from user_progress
where total_xp > 0
order by total_xp desc, user_id asc
limit ?`, limit).Scan(&rows).Error

	default:
		return nil, ErrInvalidPeriod
	}
	if err != nil {
		return nil, err
	}

	out := make([]LeaderboardEntry, 0, len(rows))
	for i, r := range rows {
		lvl := Level(r.TotalXP)
		out = append(out, LeaderboardEntry{
			Rank:   i + 1,
			UserID: r.UserID,
			XP:     r.XP,
			Level:  lvl,
			Title:  TitleFor(lvl),
		})
	}
	return out, nil
}
