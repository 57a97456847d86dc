package deck

import (
	"time"

	"github.com/lib/pq"

	"medfocus/internal/srs"
)

// Deck groups flashcards for one owner, tagged for filtering in the
// library view.
type Deck struct {
	ID      uint64         `gorm:"primaryKey"`
	UserID  uint64         `gorm:"index;not null"`
	Name    string         `gorm:"not null"`
	Subject string         `gorm:"type:text;not null;default:''"`
	Tags    pq.StringArray `gorm:"type:text[]"`

	CreatedAt time.Time
}

// Card holds the content only; all scheduling lives in CardState.
type Card struct {
	ID     uint64 `gorm:"primaryKey"`
	DeckID uint64 `gorm:"index;not null"`
	Front  string `gorm:"type:text;not null"`
	Back   string `gorm:"type:text;not null"`

	CreatedAt time.Time
}

// CardState is one learner's SM-2 memory state for one card. Created with
// the card, mutated only by Review, removed only when the deck cascades
// away. Version guards the read-modify-write cycle in Service.Review.
type CardState struct {
	CardID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID uint64 `gorm:"primaryKey;autoIncrement:false"`

	Repetitions  int     `gorm:"not null;default:0"`
	Easiness     float64 `gorm:"not null;default:2.5"`
	IntervalDays int     `gorm:"not null;default:0"`

	DueDate        time.Time `gorm:"index;not null"`
	LastReviewedAt *time.Time

	Version   uint64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cs CardState) state() srs.State {
	return srs.State{
		Repetitions:    cs.Repetitions,
		Easiness:       cs.Easiness,
		IntervalDays:   cs.IntervalDays,
		Due:            cs.DueDate,
		LastReviewedAt: cs.LastReviewedAt,
	}
}

func newCardState(cardID, userID uint64, now time.Time) CardState {
	st := srs.NewState(now)
	return CardState{
		CardID:       cardID,
		UserID:       userID,
		Repetitions:  st.Repetitions,
		Easiness:     st.Easiness,
		IntervalDays: st.IntervalDays,
		DueDate:      st.Due,
	}
}
