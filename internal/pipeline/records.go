package pipeline

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
	"github.com/joseph-ayodele/ecoscore/internal/extract"
)

func toRecord(userID string, res *Result) *entity.Record {
	rec := &entity.Record{UserID: userID, Kind: res.Kind, EmissionsKgCO2e: res.Emissions}
	switch res.Kind {
	case constants.KindReceipt:
		entry := &entity.ReceiptEntry{Items: make([]entity.ItemEntry, len(res.Items))}
		for i, it := range res.Items {
			entry.Items[i] = entity.ItemEntry{ItemName: it.Name}
			if i < len(res.ItemEmissions) {
				entry.Items[i].Emissions = res.ItemEmissions[i].EmissionsKgCO2e
			}
		}
		rec.Receipt = entry
	case constants.KindEnergy:
		e := res.Energy
		rec.Energy = &entity.EnergyEntry{
			UtilityName:    e.UtilityName,
			StartDate:      e.BillingPeriodStart,
			EndDate:        e.BillingPeriodEnd,
			ConsumptionKWh: e.TotalKWh,
			Emissions:      res.Emissions,
		}
	case constants.KindTransport:
		t := res.Trip
		rec.Ride = &entity.RideEntry{
			Provider:      string(t.Provider),
			RideDate:      t.Date,
			DistanceMiles: t.DistanceMiles,
			VehicleType:   string(res.VehicleType),
			Emissions:     res.Emissions,
		}
	}
	return rec
}

// energyQuery phrases a bill as one estimable item; ok is false without usage.
func energyQuery(e *extract.EnergyBillRecord) (name, extra string, ok bool) {
	if e == nil || e.TotalKWh == nil {
		return "", "", false
	}
	name = fmt.Sprintf("%g kWh of residential grid electricity", *e.TotalKWh)

	var ctx []string
	if e.UtilityName != nil {
		ctx = append(ctx, "utility: "+*e.UtilityName)
	}
	if e.ZipCode != nil {
		ctx = append(ctx, "zip code: "+*e.ZipCode)
	}
	if e.BillingPeriodStart != nil && e.BillingPeriodEnd != nil {
		ctx = append(ctx, fmt.Sprintf("billing period %s to %s", *e.BillingPeriodStart, *e.BillingPeriodEnd))
	}
	if e.Supplier != nil && e.Supplier.Name != nil {
		ctx = append(ctx, "supplier: "+*e.Supplier.Name)
	}
	ctx = append(ctx, "accounting method: "+string(e.AccountingMethod))
	return name, strings.Join(ctx, "; "), true
}

// tripQuery phrases a ride as one estimable item; ok is false without distance.
func tripQuery(t *extract.TransportTripRecord, vehicle constants.VehicleType) (name, extra string, ok bool) {
	if t == nil || t.DistanceMiles == nil {
		return "", "", false
	}
	name = fmt.Sprintf("%g mile %s rideshare car trip", *t.DistanceMiles, vehicle)
	var ctx []string
	if t.Provider != constants.ProviderUnknown {
		ctx = append(ctx, "provider: "+string(t.Provider))
	}
	if t.DurationMin != nil {
		ctx = append(ctx, fmt.Sprintf("duration %g min", *t.DurationMin))
	}
	return name, strings.Join(ctx, "; "), true
}
