package srs

import (
	"errors"
	"math"
	"time"
)

var ErrInvalidGrade = errors.New("invalid grade")

// Grade is the learner's self-reported recall quality on the SM-2 0-5 scale.
type Grade int

const (
	// Complete blackout, unable to recall.
	GradeBlackout Grade = 0
	// Incorrect, but remembered upon seeing the answer.
	GradeIncorrect Grade = 1
	// Incorrect, but the answer felt familiar.
	GradeFamiliar Grade = 2
	// Correct with significant effort.
	GradeDifficult Grade = 3
	// Correct after some hesitation.
	GradeHesitant Grade = 4
	// Perfect recall.
	GradePerfect Grade = 5
)

// State is the per-learner scheduling state of a single card.
type State struct {
	// Consecutive successful reviews since the last lapse.
	Repetitions int `json:"repetitions"`
	// SM-2 easiness factor, never below Params.MinEasiness.
	Easiness float64 `json:"easiness"`
	// Days until the card is next due.
	IntervalDays int `json:"interval_days"`
	// Calendar date on which the card becomes reviewable again.
	Due time.Time `json:"due"`
	// Nil until the card has been reviewed at least once.
	LastReviewedAt *time.Time `json:"last_reviewed_at"`
}

// NewState returns the state of a freshly created card: immediately due,
// easiness 2.5, no repetitions.
func NewState(today time.Time) State {
	return State{
		Repetitions:  0,
		Easiness:     2.5,
		IntervalDays: 0,
		Due:          DateOf(today),
	}
}

// Params tunes the SM-2 transition.
type Params struct {
	// Grades at or above this count as a successful recall.
	PassThreshold Grade
	// Floor for the easiness factor.
	MinEasiness float64
	// Interval after the second consecutive success.
	SecondIntervalDays int
	// Hard cap on the computed interval.
	MaxIntervalDays int
}

// DefaultParams are the canonical SM-2 constants.
func DefaultParams() Params {
	return Params{
		PassThreshold:      GradeDifficult,
		MinEasiness:        1.3,
		SecondIntervalDays: 6,
		MaxIntervalDays:    365,
	}
}

// Review applies one SM-2 transition to s and returns the updated state.
// The grade must be in [0,5]; anything else is rejected with no change.
// now supplies both the review timestamp and the calendar date the new
// due date is computed from, so callers control the clock.
func (p Params) Review(s State, grade Grade, now time.Time) (State, error) {
	if grade < GradeBlackout || grade > GradePerfect {
		return s, ErrInvalidGrade
	}

	// Easiness is updated on every review, pass or lapse.
	q := float64(grade)
	ef := s.Easiness + (0.1 - (5.0-q)*(0.08+(5.0-q)*0.02))
	if ef < p.MinEasiness {
		ef = p.MinEasiness
	}
	s.Easiness = ef

	if grade < p.PassThreshold {
		// Lapse: back to tomorrow, repetition chain broken.
		s.Repetitions = 0
		s.IntervalDays = 1
	} else {
		s.Repetitions++
		switch s.Repetitions {
		case 1:
			s.IntervalDays = 1
		case 2:
			s.IntervalDays = p.SecondIntervalDays
		default:
			next := int(math.Round(float64(s.IntervalDays) * ef))
			if next > p.MaxIntervalDays {
				next = p.MaxIntervalDays
			}
			s.IntervalDays = next
		}
	}

	s.Due = DateOf(now).AddDate(0, 0, s.IntervalDays)
	t := now
	s.LastReviewedAt = &t
	return s, nil
}

// DueOn reports whether the card is reviewable on the given calendar date.
// A card due "today" stays due until midnight rollover.
func (s State) DueOn(today time.Time) bool {
	return !s.Due.After(DateOf(today))
}

// DateOf truncates a timestamp to its calendar date (midnight UTC).
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
