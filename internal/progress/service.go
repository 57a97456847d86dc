package progress

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var ErrConflict = errors.New("concurrent progress update")

// How many times a versioned update is recomputed from a fresh read before
// the conflict is surfaced.
const maxConflictRetries = 3

type Service struct {
	DB     *gorm.DB
	Awards AwardTable
}

type AwardInput struct {
	Activity    Activity
	Description *string
}

type AwardResult struct {
	TotalXP  int    `json:"total_xp"`
	Level    int    `json:"level"`
	Title    string `json:"title"`
	Streak   int    `json:"streak"`
	WeeklyXP int    `json:"weekly_xp"`
}

// Award applies one XP-earning event for a learner: appends the XpEvent,
// updates totals, streak and the weekly counter, and hands out the 7-day
// streak bonus when it is hit. The amount always comes from the policy
// table, never from the caller. Concurrent awards for the same learner are
// serialized by the optimistic version column; conflicts are retried from
// a fresh read.
func (s *Service) Award(ctx context.Context, userID uint64, in AwardInput, now time.Time) (AwardResult, error) {
	amount, err := s.Awards.Amount(in.Activity)
	if err != nil {
		return AwardResult{}, err
	}

	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		res, err := s.tryAward(ctx, userID, in, amount, now)
		if errors.Is(err, ErrConflict) {
			continue
		}
		return res, err
	}
	return AwardResult{}, ErrConflict
}

func (s *Service) tryAward(ctx context.Context, userID uint64, in AwardInput, amount int, now time.Time) (AwardResult, error) {
	p, err := s.loadOrCreate(ctx, userID, now)
	if err != nil {
		return AwardResult{}, err
	}

	streak := NextStreak(p.Streak, p.LastActivityDate, now)
	longest := p.LongestStreak
	if streak > longest {
		longest = streak
	}

	// 7-day bonus fires exactly when the streak grows onto a multiple of 7.
	bonus := 0
	if streak > p.Streak && streak%7 == 0 {
		bonus, _ = s.Awards.Amount(ActivityStreakBonus)
	}
	gain := amount + bonus

	ws := WeekStart(now)
	weekly := p.WeeklyXP
	if !ws.Equal(p.WeekStart) {
		weekly = 0
	}
	weekly += gain

	day := dateOf(now)
	updates := map[string]any{
		"total_xp":           p.TotalXP + gain,
		"streak":             streak,
		"longest_streak":     longest,
		"last_activity_date": day,
		"weekly_xp":          weekly,
		"week_start":         ws,
		"version":            p.Version + 1,
		"updated_at":         now,
	}
	if col := counterColumn(in.Activity); col != "" {
		updates[col] = gorm.Expr(col + " + 1")
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev := XpEvent{
			UserID:      userID,
			Activity:    string(in.Activity),
			XpEarned:    amount,
			Description: in.Description,
			CreatedAt:   now,
		}
		if err := tx.Create(&ev).Error; err != nil {
			return err
		}
		if bonus > 0 {
			bev := XpEvent{
				UserID:    userID,
				Activity:  string(ActivityStreakBonus),
				XpEarned:  bonus,
				CreatedAt: now,
			}
			if err := tx.Create(&bev).Error; err != nil {
				return err
			}
		}

		res := tx.Model(&UserProgress{}).
			Where("user_id = ? AND version = ?", userID, p.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Someone else got there first; roll back the events too.
			return ErrConflict
		}
		return nil
	})
	if err != nil {
		return AwardResult{}, err
	}

	total := p.TotalXP + gain
	return AwardResult{
		TotalXP:  total,
		Level:    Level(total),
		Title:    TitleFor(Level(total)),
		Streak:   streak,
		WeeklyXP: weekly,
	}, nil
}

func (s *Service) loadOrCreate(ctx context.Context, userID uint64, now time.Time) (UserProgress, error) {
	var p UserProgress
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return UserProgress{}, err
	}

	p = UserProgress{UserID: userID, WeekStart: WeekStart(now)}
	if err := s.DB.WithContext(ctx).Create(&p).Error; err != nil {
		// Concurrent create for the same learner; retry picks up their row.
		return UserProgress{}, ErrConflict
	}
	return p, nil
}

func counterColumn(a Activity) string {
	switch a {
	case ActivityQuestionCorrect:
		return "questions_correct"
	case ActivitySimuladoComplete:
		return "simulados_completed"
	case ActivityPomodoroComplete:
		return "pomodoros_completed"
	case ActivityFlashcardReviewed:
		return "flashcards_reviewed"
	case ActivityGoalComplete:
		return "goals_completed"
	}
	return ""
}

type Overview struct {
	TotalXP          int        `json:"total_xp"`
	Level            int        `json:"level"`
	Title            string     `json:"title"`
	XPIntoLevel      int        `json:"xp_into_level"`
	Streak           int        `json:"streak"`
	LongestStreak    int        `json:"longest_streak"`
	WeeklyXP         int        `json:"weekly_xp"`
	LastActivityDate *time.Time `json:"last_activity_date"`

	QuestionsCorrect   int `json:"questions_correct"`
	SimuladosCompleted int `json:"simulados_completed"`
	PomodorosCompleted int `json:"pomodoros_completed"`
	FlashcardsReviewed int `json:"flashcards_reviewed"`
	GoalsCompleted     int `json:"goals_completed"`
}

// Overview is the read-side snapshot backing the gamification panel. A
// learner with no awards yet gets the zero snapshot, not an error.
func (s *Service) Overview(ctx context.Context, userID uint64, now time.Time) (Overview, error) {
	var p UserProgress
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return Overview{}, err
	}

	weekly := p.WeeklyXP
	if !WeekStart(now).Equal(p.WeekStart) {
		// Stale counter from a previous week the rollover has not swept yet.
		weekly = 0
	}

	return Overview{
		TotalXP:            p.TotalXP,
		Level:              Level(p.TotalXP),
		Title:              TitleFor(Level(p.TotalXP)),
		XPIntoLevel:        XPIntoLevel(p.TotalXP),
		Streak:             p.Streak,
		LongestStreak:      p.LongestStreak,
		WeeklyXP:           weekly,
		LastActivityDate:   p.LastActivityDate,
		QuestionsCorrect:   p.QuestionsCorrect,
		SimuladosCompleted: p.SimuladosCompleted,
		PomodorosCompleted: p.PomodorosCompleted,
		FlashcardsReviewed: p.FlashcardsReviewed,
		GoalsCompleted:     p.GoalsCompleted,
	}, nil
}

// History returns the learner's most recent XP events, newest first.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]XpEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	var evs []XpEvent
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&evs).Error
	return evs, err
}
