package domain

import "time"

type Pitch struct {
	ID                  int64
	OwnerID             int64
	Name                string
	OpeningHour         int
	ClosingHour         int
	SlotDurationMinutes int
	DayPrice            int64
	NightPrice          int64
	NightStartHour      int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// SlotPrice returns the price of the slot starting at the given time.
// Night pricing applies from NightStartHour onwards.
func (p *Pitch) SlotPrice(start time.Time) int64 {
	if start.Hour() >= p.NightStartHour {
		return p.NightPrice
	}
	return p.DayPrice
}

func (p *Pitch) SlotDuration() time.Duration {
	return time.Duration(p.SlotDurationMinutes) * time.Minute
}
