package progress

import (
	"errors"
	"time"
)

var (
	ErrUnknownActivity = errors.New("unknown activity")
	ErrInvalidAmount   = errors.New("xp amount must be positive")
)

// Activity tags every XP-earning action in the product.
type Activity string

const (
	ActivityQuestionCorrect   Activity = "question-correct"
	ActivitySimuladoComplete  Activity = "simulado-complete"
	ActivityPomodoroComplete  Activity = "pomodoro-complete"
	ActivityFlashcardReviewed Activity = "flashcard-reviewed"
	ActivityStreakBonus       Activity = "streak-7-day-bonus"
	ActivityGoalComplete      Activity = "goal-complete"
)

// AwardTable maps activities to their fixed XP amounts. It is policy data,
// injectable so point values can change without touching the accumulator.
type AwardTable map[Activity]int

// DefaultAwards is the production point table.
func DefaultAwards() AwardTable {
	return AwardTable{
		ActivityQuestionCorrect:   10,
		ActivitySimuladoComplete:  50,
		ActivityPomodoroComplete:  15,
		ActivityFlashcardReviewed: 5,
		ActivityStreakBonus:       50,
		ActivityGoalComplete:      30,
	}
}

// Amount resolves the XP value for an activity.
func (t AwardTable) Amount(a Activity) (int, error) {
	n, ok := t[a]
	if !ok {
		return 0, ErrUnknownActivity
	}
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	return n, nil
}

// XPPerLevel is the width of every level band.
const XPPerLevel = 500

// Level derives the level from lifetime XP. Never stored.
func Level(totalXP int) int {
	return totalXP/XPPerLevel + 1
}

// XPIntoLevel is how far into the current band the learner is.
func XPIntoLevel(totalXP int) int {
	return totalXP % XPPerLevel
}

// Ordered tier names; levels past the table all share the last title.
var levelTitles = [...]string{
	"Calouro",
	"Estudante",
	"Acadêmico",
	"Residente Jr.",
	"Residente",
	"Especialista",
	"Mestre",
	"Doutor",
	"Professor",
	"Catedrático",
}

// TitleFor returns the tier name for a level.
func TitleFor(level int) string {
	i := level - 1
	if i < 0 {
		i = 0
	}
	if i >= len(levelTitles) {
		i = len(levelTitles) - 1
	}
	return levelTitles[i]
}

// NextStreak applies the daily-streak rule for one award. Only calendar
// dates matter; time of day is ignored.
func NextStreak(current int, last *time.Time, now time.Time) int {
	if last == nil {
		return 1
	}
	d := dateOf(now)
	l := dateOf(*last)
	switch {
	case d.Equal(l):
		return current
	case d.Equal(l.AddDate(0, 0, 1)):
		return current + 1
	case d.After(l):
		// At least one day skipped.
		return 1
	default:
		// Clock went backwards; leave the streak alone.
		return current
	}
}

// WeekStart is the Monday of the ISO week containing t, at midnight UTC.
// Weekly XP counters cover exactly one such week.
func WeekStart(t time.Time) time.Time {
	d := dateOf(t)
	wd := int(d.Weekday())
	if wd == 0 {
		wd = 7
	}
	return d.AddDate(0, 0, 1-wd)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
