package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ecoscore/constants"
)

// Record is one appended footprint entry for a user. Exactly one of Receipt,
// Energy or Ride is set, matching Kind.
type Record struct {
	ID              uuid.UUID              `json:"entry_id"`
	UserID          string                 `json:"user"`
	Kind            constants.DocumentKind `json:"kind"`
	EntryDate       string                 `json:"date"`
	EmissionsKgCO2e *float64               `json:"emissions,omitempty"`
	Receipt         *ReceiptEntry          `json:"receipt,omitempty"`
	Energy          *EnergyEntry           `json:"energy,omitempty"`
	Ride            *RideEntry             `json:"ride,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// ReceiptEntry holds the annotated items of a shopping receipt.
type ReceiptEntry struct {
	Items []ItemEntry `json:"items"`
}

type ItemEntry struct {
	ItemName  string   `json:"item_name"`
	Emissions *float64 `json:"emissions"`
}

// EnergyEntry is the stored subset of an energy bill.
type EnergyEntry struct {
	UtilityName    *string  `json:"utility_name,omitempty"`
	StartDate      *string  `json:"start_date"`
	EndDate        *string  `json:"end_date"`
	ConsumptionKWh *float64 `json:"consumption_kwh"`
	Emissions      *float64 `json:"emissions"`
}

// RideEntry is the stored subset of a rideshare trip.
type RideEntry struct {
	Provider      string   `json:"provider"`
	RideDate      *string  `json:"ride_date"`
	DistanceMiles *float64 `json:"distance_miles"`
	VehicleType   string   `json:"vehicle_type"`
	Emissions     *float64 `json:"emissions"`
}

// TotalItemEmissions sums the known item emissions; nil when none are known.
func (r ReceiptEntry) TotalItemEmissions() *float64 {
	var sum float64
	known := false
	for _, it := range r.Items {
		if it.Emissions != nil {
			sum += *it.Emissions
			known = true
		}
	}
	if !known {
		return nil
	}
	return &sum
}
