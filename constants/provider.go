package constants

import (
	"strings"
)

// TripProvider is the rideshare company a trip record came from.
type TripProvider string

const (
	ProviderUber    TripProvider = "Uber"
	ProviderLyft    TripProvider = "Lyft"
	ProviderUnknown TripProvider = "unknown"
)

// AccountingMethod is the scope 2 method implied by an energy bill.
type AccountingMethod string

const (
	MarketBased   AccountingMethod = "market-based"
	LocationBased AccountingMethod = "location-based"
)

// VehicleType is stored with ride records.
type VehicleType string

const (
	VehicleStandard VehicleType = "standard"
	VehicleXL       VehicleType = "xl"
	VehicleComfort  VehicleType = "comfort"
	VehicleGreen    VehicleType = "green"
	VehicleShared   VehicleType = "shared"
)

var allVehicleTypes = []VehicleType{
	VehicleStandard,
	VehicleXL,
	VehicleComfort,
	VehicleGreen,
	VehicleShared,
}

// CanonicalizeVehicle maps product names from ride receipts onto a VehicleType.
func CanonicalizeVehicle(input string) (VehicleType, bool) {
	normalized := normalizeWord(input)
	if normalized == "" {
		return VehicleStandard, false
	}

	synonyms := map[string]VehicleType{
		"uberx":       VehicleStandard,
		"lyft":        VehicleStandard,
		"standard":    VehicleStandard,
		"uberxl":      VehicleXL,
		"lyft xl":     VehicleXL,
		"comfort":     VehicleComfort,
		"uber green":  VehicleGreen,
		"green":       VehicleGreen,
		"electric":    VehicleGreen,
		"pool":        VehicleShared,
		"shared":      VehicleShared,
		"uberx share": VehicleShared,
	}
	if v, ok := synonyms[normalized]; ok {
		return v, true
	}

	for _, v := range allVehicleTypes {
		if normalized == string(v) {
			return v, true
		}
	}
	return VehicleStandard, false
}

func normalizeWord(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
