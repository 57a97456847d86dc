package deck

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"medfocus/internal/srs"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("concurrent card update")
)

const maxConflictRetries = 3

type Service struct {
	DB     *gorm.DB
	Params srs.Params
}

type CreateDeckInput struct {
	Name    string
	Subject string
	Tags    []string
}

func (s *Service) CreateDeck(ctx context.Context, userID uint64, in CreateDeckInput) (Deck, error) {
	d := Deck{
		UserID:  userID,
		Name:    in.Name,
		Subject: in.Subject,
		Tags:    in.Tags,
	}
	if err := s.DB.WithContext(ctx).Create(&d).Error; err != nil {
		return Deck{}, err
	}
	return d, nil
}

func (s *Service) ListDecks(ctx context.Context, userID uint64) ([]Deck, error) {
	var out []Deck
	err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Find(&out).Error
	return out, err
}

// DeleteDeck removes the deck with its cards and every learner's memory
// state for them. This is the only path that deletes CardState rows.
func (s *Service) DeleteDeck(ctx context.Context, userID, deckID uint64) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d Deck
		if err := tx.Where("id = ? AND user_id = ?", deckID, userID).First(&d).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Exec(`delete from card_states where card_id in (select id from cards where deck_id = ?)`, deckID).Error; err != nil {
			return err
		}
		if err := tx.Where("deck_id = ?", deckID).Delete(&Card{}).Error; err != nil {
			return err
		}
		return tx.Delete(&d).Error
	})
}

type AddCardInput struct {
	Front string
	Back  string
}

// AddCard creates the card and the owner's memory state: zero repetitions,
// easiness 2.5, due immediately.
func (s *Service) AddCard(ctx context.Context, userID, deckID uint64, in AddCardInput, now time.Time) (Card, error) {
	var c Card
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d Deck
		if err := tx.Where("id = ? AND user_id = ?", deckID, userID).First(&d).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		c = Card{DeckID: deckID, Front: in.Front, Back: in.Back}
		if err := tx.Create(&c).Error; err != nil {
			return err
		}
		cs := newCardState(c.ID, userID, now)
		return tx.Create(&cs).Error
	})
	return c, err
}

type ReviewResult struct {
	CardID       uint64     `json:"card_id"`
	Bucket       srs.Bucket `json:"bucket"`
	NextDue      time.Time  `json:"next_due"`
	Easiness     float64    `json:"easiness"`
	IntervalDays int        `json:"interval_days"`
	Repetitions  int        `json:"repetitions"`
}

// Review grades one card for one learner and reschedules it. The grade is
// validated before anything is written; an unknown card (or someone
// else's card) is ErrNotFound. Concurrent reviews of the same card are
// serialized by the version column with a bounded recompute-and-retry.
func (s *Service) Review(ctx context.Context, userID, cardID uint64, grade srs.Grade, now time.Time) (ReviewResult, error) {
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		var cs CardState
		err := s.DB.WithContext(ctx).
			Where("card_id = ? AND user_id = ?", cardID, userID).
			First(&cs).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ReviewResult{}, ErrNotFound
			}
			return ReviewResult{}, err
		}

		next, err := s.Params.Review(cs.state(), grade, now)
		if err != nil {
			return ReviewResult{}, err
		}

		res := s.DB.WithContext(ctx).Model(&CardState{}).
			Where("card_id = ? AND user_id = ? AND version = ?", cardID, userID, cs.Version).
			Updates(map[string]any{
				"repetitions":      next.Repetitions,
				"easiness":         next.Easiness,
				"interval_days":    next.IntervalDays,
				"due_date":         next.Due,
				"last_reviewed_at": next.LastReviewedAt,
				"version":          cs.Version + 1,
				"updated_at":       now,
			})
		if res.Error != nil {
			return ReviewResult{}, res.Error
		}
		if res.RowsAffected == 0 {
			// Lost the race; recompute from the fresh row.
			continue
		}

		return ReviewResult{
			CardID:       cardID,
			Bucket:       srs.BucketOf(grade),
			NextDue:      next.Due,
			Easiness:     next.Easiness,
			IntervalDays: next.IntervalDays,
			Repetitions:  next.Repetitions,
		}, nil
	}
	return ReviewResult{}, ErrConflict
}

type StudyCard struct {
	CardID       uint64    `json:"card_id"`
	Front        string    `json:"front"`
	Back         string    `json:"back"`
	DueDate      time.Time `json:"due_date"`
	IntervalDays int       `json:"interval_days"`
	Repetitions  int       `json:"repetitions"`
}

// DueCards builds a study session: every card due on or before today,
// most-lapsed first (due date asc, then repetitions asc). When nothing is
// due the whole deck is returned in the same order, so a session is only
// empty when the deck is.
func (s *Service) DueCards(ctx context.Context, userID, deckID uint64, today time.Time) ([]StudyCard, error) {
	var d Deck
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", deckID, userID).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	cards, err := s.sessionCards(ctx, userID, deckID, srs.DateOf(today), true)
	if err != nil {
		return nil, err
	}
	if len(cards) > 0 {
		return cards, nil
	}
	return s.sessionCards(ctx, userID, deckID, srs.DateOf(today), false)
}

func (s *Service) sessionCards(ctx context.Context, userID, deckID uint64, today time.Time, dueOnly bool) ([]StudyCard, error) {
	q := s.DB.WithContext(ctx).
		Table("cards").
		Select("cards.id as card_id, cards.front, cards.back, card_states.due_date, card_states.interval_days, card_states.repetitions").
		Joins("join card_states on card_states.card_id = cards.id and card_states.user_id = ?", userID).
		Where("cards.deck_id = ?", deckID)
	if dueOnly {
		q = q.Where("card_states.due_date <= ?", today)
	}

	var out []StudyCard
	err := q.Order("card_states.due_date asc, card_states.repetitions asc, cards.id asc").
		Scan(&out).Error
	return out, err
}
