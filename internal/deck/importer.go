package deck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

var ErrEmptyWorkbook = errors.New("workbook has no sheets")

// ImportResult summarizes one bulk import.
type ImportResult struct {
	TotalRows int      `json:"total_rows"`
	Created   int      `json:"created"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors,omitempty"`
}

// ImportXLSX loads cards from a spreadsheet into the deck: column A is the
// card front, column B the back, first row is treated as a header. Each
// created card gets the owner's fresh memory state. Rows missing either
// side are skipped and reported, not fatal; the cards that do import land
// in a single transaction.
func (s *Service) ImportXLSX(ctx context.Context, userID, deckID uint64, r io.Reader, now time.Time) (*ImportResult, error) {
	var d Deck
	err := s.DB.WithContext(ctx).Where("id = ? AND user_id = ?", deckID, userID).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, ErrEmptyWorkbook
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	result := &ImportResult{}
	type pending struct{ front, back string }
	var batch []pending

	for i, row := range rows {
		if i == 0 {
			// Header row.
			continue
		}
		result.TotalRows++

		var front, back string
		if len(row) > 0 {
			front = strings.TrimSpace(row[0])
		}
		if len(row) > 1 {
			back = strings.TrimSpace(row[1])
		}
		if front == "" || back == "" {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: front and back are both required", i+1))
			continue
		}
		batch = append(batch, pending{front: front, back: back})
	}

	if len(batch) == 0 {
		return result, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range batch {
			c := Card{DeckID: deckID, Front: p.front, Back: p.back}
			if err := tx.Create(&c).Error; err != nil {
				return err
			}
			cs := newCardState(c.ID, userID, now)
			if err := tx.Create(&cs).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Created = len(batch)
	return result, nil
}
