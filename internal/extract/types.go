package extract

import (
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/ecoscore/constants"
)

// DefaultItemLimit caps receipt items and likely-item lines.
const DefaultItemLimit = 60

// DefaultCurrency is the only currency receipts are parsed in.
const DefaultCurrency = "USD"

// ReceiptItem is one purchasable line of a receipt.
type ReceiptItem struct {
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

// TimeOfUse splits consumption by rate window.
type TimeOfUse struct {
	PeakKWh    *float64 `json:"peak_kwh"`
	OffPeakKWh *float64 `json:"offpeak_kwh"`
	MidPeakKWh *float64 `json:"midpeak_kwh"`
}

// Supplier is a third-party energy supplier named on the bill.
type Supplier struct {
	Name            *string `json:"name"`
	Plan            *string `json:"plan"`
	GreenAttributes *string `json:"green_attributes"`
}

// Onsite is grid import/export for homes with their own generation.
type Onsite struct {
	ImportKWh   *float64 `json:"import_kwh"`
	ExportKWh   *float64 `json:"export_kwh"`
	NetMetering bool     `json:"net_metering"`
}

// EnergyBillRecord is one billing period recovered from a utility bill.
// Every scanned field is optional; nil means the heuristics found nothing.
type EnergyBillRecord struct {
	UtilityName        *string                    `json:"utility_name"`
	ZipCode            *string                    `json:"zip_code"`
	ServiceAddress     *string                    `json:"service_address"`
	BillingPeriodStart *string                    `json:"billing_period_start"`
	BillingPeriodEnd   *string                    `json:"billing_period_end"`
	Days               *int                       `json:"days"`
	TotalKWh           *float64                   `json:"total_kwh"`
	TimeOfUse          *TimeOfUse                 `json:"tou"`
	Supplier           *Supplier                  `json:"supplier"`
	Onsite             *Onsite                    `json:"onsite"`
	HomeSharePercent   *float64                   `json:"home_share_percent"`
	TDLossPercent      *float64                   `json:"td_loss_percent"`
	AccountingMethod   constants.AccountingMethod `json:"accounting_method"`
}

// TransportTripRecord is one rideshare trip.
type TransportTripRecord struct {
	Provider      constants.TripProvider `json:"provider"`
	Date          *string                `json:"date"`
	StartTime     *string                `json:"startTime"`
	EndTime       *string                `json:"endTime"`
	Pickup        *string                `json:"pickup"`
	Dropoff       *string                `json:"dropoff"`
	DistanceMiles *float64               `json:"distance_miles"`
	DurationMin   *float64               `json:"duration_min"`
	PriceTotal    *decimal.Decimal       `json:"price_total"`
	CharCount     int                    `json:"charCount"`
	CleanedText   string                 `json:"cleaned_text"`
}

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }
