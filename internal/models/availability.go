package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PropertyAvailability is one bookable night of a property
type PropertyAvailability struct {
	PropertyID    int64           `json:"property_id" db:"property_id"`
	Date          time.Time       `json:"date" db:"date"`
	IsAvailable   bool            `json:"is_available" db:"is_available"`
	BlockedReason *string         `json:"blocked_reason,omitempty" db:"blocked_reason"`
	Price         decimal.Decimal `json:"price" db:"price"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// HorizonResult summarizes a horizon generation run
type HorizonResult struct {
	PropertyID int64     `json:"property_id"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Upserted   int64     `json:"upserted"`
	Trimmed    int64     `json:"trimmed"`
}

// CalendarDay is the public projection of an availability row
type CalendarDay struct {
	Date        string          `json:"date"`
	IsAvailable bool            `json:"is_available"`
	Price       decimal.Decimal `json:"price"`
}

// ToCalendarDay projects a row for public consumption
func (a PropertyAvailability) ToCalendarDay() CalendarDay {
	return CalendarDay{
		Date:        a.Date.Format(DateLayout),
		IsAvailable: a.IsAvailable,
		Price:       a.Price,
	}
}

// CoversRange reports whether rows hold every night of [start, end] and all are free
func CoversRange(rows []PropertyAvailability, start, end time.Time) bool {
	if len(rows) != NightsBetween(start, end) {
		return false
	}
	for _, row := range rows {
		if !row.IsAvailable {
			return false
		}
	}
	return true
}
