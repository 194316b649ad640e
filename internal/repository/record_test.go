package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func newTestRepo(t *testing.T) (*recordRepository, *DB) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Migrate(ctx), "migrate is idempotent")

	clock := time.Date(2025, 11, 8, 12, 0, 0, 0, time.UTC)
	repo := NewRecordRepository(db, nil).(*recordRepository)
	repo.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return repo, db
}

func TestOpenPicksDialect(t *testing.T) {
	assert.True(t, isPostgres("postgres://u:p@localhost/db"))
	assert.True(t, isPostgres("postgresql://localhost/db"))
	assert.False(t, isPostgres("file:ecoscore.db"))

	_, db := newTestRepo(t)
	assert.Equal(t, "sqlite3", db.Dialect())
	assert.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestAppendAndList(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	receipt := &entity.Record{
		UserID: "u1",
		Kind:   constants.KindReceipt,
		Receipt: &entity.ReceiptEntry{Items: []entity.ItemEntry{
			{ItemName: "NATURAL BNLS SKNLS CKN T", Emissions: f(6)},
			{ItemName: "MYSTERY ITEM"},
		}},
	}
	receipt.EmissionsKgCO2e = receipt.Receipt.TotalItemEmissions()
	require.NoError(t, repo.Append(ctx, receipt))
	assert.NotEmpty(t, receipt.ID)
	assert.Equal(t, "2025-11-08", receipt.EntryDate)

	energy := &entity.Record{
		UserID: "u1",
		Kind:   constants.KindEnergy,
		Energy: &entity.EnergyEntry{StartDate: s("2025-09-30"), EndDate: s("2025-10-29"), ConsumptionKWh: f(512)},
	}
	require.NoError(t, repo.Append(ctx, energy))

	ride := &entity.Record{
		UserID: "u2",
		Kind:   constants.KindTransport,
		Ride:   &entity.RideEntry{Provider: "Uber", DistanceMiles: f(4.2), VehicleType: "standard", Emissions: f(1.6)},
	}
	ride.EmissionsKgCO2e = ride.Ride.Emissions
	require.NoError(t, repo.Append(ctx, ride))

	all, err := repo.List(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, receipt.ID, all[0].ID, "oldest first")
	assert.Equal(t, constants.KindEnergy, all[1].Kind)

	got := all[0]
	require.NotNil(t, got.Receipt)
	require.Len(t, got.Receipt.Items, 2)
	assert.Nil(t, got.Receipt.Items[1].Emissions)
	require.NotNil(t, got.EmissionsKgCO2e)
	assert.Equal(t, 6.0, *got.EmissionsKgCO2e)
	assert.Nil(t, got.Energy)

	assert.Nil(t, all[1].EmissionsKgCO2e)
	assert.Equal(t, 512.0, *all[1].Energy.ConsumptionKWh)

	rides, err := repo.List(ctx, "u2", constants.KindTransport)
	require.NoError(t, err)
	require.Len(t, rides, 1)
	assert.Equal(t, "standard", rides[0].Ride.VehicleType)

	none, err := repo.List(ctx, "u2", constants.KindReceipt)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAppendValidation(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rec  *entity.Record
	}{
		{"nil", nil},
		{"no user", &entity.Record{Kind: constants.KindEnergy, Energy: &entity.EnergyEntry{}}},
		{"bad kind", &entity.Record{UserID: "u", Kind: "flight", Energy: &entity.EnergyEntry{}}},
		{"no payload", &entity.Record{UserID: "u", Kind: constants.KindEnergy}},
		{"mismatched payload", &entity.Record{UserID: "u", Kind: constants.KindEnergy, Ride: &entity.RideEntry{}}},
		{"two payloads", &entity.Record{UserID: "u", Kind: constants.KindEnergy, Energy: &entity.EnergyEntry{}, Ride: &entity.RideEntry{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Append(ctx, tt.rec)
			assert.True(t, common.IsValidation(err), "got %v", err)
		})
	}

	_, err := repo.List(ctx, " ", "")
	assert.True(t, common.IsValidation(err))
}

func TestTotalItemEmissions(t *testing.T) {
	assert.Nil(t, entity.ReceiptEntry{Items: []entity.ItemEntry{{ItemName: "x"}}}.TotalItemEmissions())
	total := entity.ReceiptEntry{Items: []entity.ItemEntry{{Emissions: f(1.5)}, {}, {Emissions: f(2)}}}.TotalItemEmissions()
	require.NotNil(t, total)
	assert.Equal(t, 3.5, *total)
}
