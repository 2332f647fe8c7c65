package models

import (
	"time"

	"github.com/lib/pq"
)

// ControllerSettings is the persisted board configuration record. The core
// only reads its values; validation happens at the API boundary.
type ControllerSettings struct {
	ID              string         `db:"id" json:"id"`
	GapMinutes      int            `db:"gap_minutes" json:"gap_minutes" validate:"gte=0,lte=240"`
	StepDuration    int            `db:"step_duration" json:"step_duration" validate:"gt=0,lte=240"`
	MinDuration     int            `db:"min_duration" json:"min_duration" validate:"gt=0"`
	MaxDuration     int            `db:"max_duration" json:"max_duration" validate:"gtefield=MinDuration"`
	Locked          bool           `db:"locked" json:"locked"`
	LocationOptions pq.StringArray `db:"location_options" json:"location_options"`
	DayStartMinutes int            `db:"day_start_minutes" json:"day_start_minutes" validate:"gte=0,lt=1440"`
	DayEndMinutes   int            `db:"day_end_minutes" json:"day_end_minutes" validate:"gt=0,lte=1440"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// DefaultControllerSettings returns the settings used before an operator has
// saved any.
func DefaultControllerSettings() ControllerSettings {
	return ControllerSettings{
		GapMinutes:      0,
		StepDuration:    30,
		MinDuration:     60,
		MaxDuration:     180,
		DayStartMinutes: 8 * 60,
		DayEndMinutes:   22 * 60,
	}
}
