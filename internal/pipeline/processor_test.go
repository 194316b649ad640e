package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/carbon"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
	"github.com/joseph-ayodele/ecoscore/internal/extract"
	"github.com/joseph-ayodele/ecoscore/internal/ocr"
)

type fakeText struct {
	text   string
	err    error
	format string
}

func (f *fakeText) Extract(_ context.Context, format string, _ []byte) (ocr.Result, error) {
	f.format = format
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{Text: f.text, Method: "fake", Confidence: 0.9}, nil
}

type fakeEstimator struct {
	enabled    bool
	items      []carbon.ItemEmission
	estimate   *float64
	err        error
	names      []string
	strategies []carbon.Strategy
	batchSeen  []carbon.Item
	fallback   string
}

func (f *fakeEstimator) Enabled() bool { return f.enabled }

func (f *fakeEstimator) Estimate(_ context.Context, name, extra string, st carbon.Strategy) (carbon.Estimate, error) {
	f.names = append(f.names, name+" | "+extra)
	f.strategies = append(f.strategies, st)
	if f.err != nil {
		return carbon.Estimate{}, f.err
	}
	return carbon.Estimate{ItemName: name, EmissionsKgCO2e: f.estimate}, nil
}

func (f *fakeEstimator) EstimateReceiptItems(_ context.Context, items []carbon.Item, fallback string) ([]carbon.ItemEmission, error) {
	f.batchSeen = items
	f.fallback = fallback
	if f.err != nil {
		return nil, f.err
	}
	return f.items, nil
}

type memRecords struct {
	recs []*entity.Record
	err  error
}

func (m *memRecords) Append(_ context.Context, rec *entity.Record) error {
	if m.err != nil {
		return m.err
	}
	rec.ID = uuid.New()
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memRecords) List(context.Context, string, constants.DocumentKind) ([]*entity.Record, error) {
	return m.recs, nil
}

type recordingPublisher struct {
	published []*entity.Record
	err       error
}

func (r *recordingPublisher) Publish(_ context.Context, rec *entity.Record) error {
	r.published = append(r.published, rec)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func f(v float64) *float64 { return &v }

const receiptText = "GROCER\nORGANIC BANANAS\n1.18\n2 @ 0.59\nMILK\n$3.49\nTOTAL\n4.67"

func TestProcessReceiptEndToEnd(t *testing.T) {
	text := &fakeText{text: receiptText}
	est := &fakeEstimator{enabled: true, items: []carbon.ItemEmission{
		{ItemName: "milk", EmissionsKgCO2e: f(1.2)},
	}}
	recs := &memRecords{}
	pub := &recordingPublisher{}
	p := NewProcessor(text, est, recs, pub, nil)

	res, err := p.Process(context.Background(), Input{
		UserID: "u1", Kind: constants.KindReceipt, Format: constants.IMAGE, Data: []byte("png"),
	})
	require.NoError(t, err)

	assert.Equal(t, constants.IMAGE, text.format)
	assert.Equal(t, "fake", res.OCRMethod)
	require.Len(t, res.Items, 2)
	require.Len(t, est.batchSeen, 2)

	require.Len(t, res.ItemEmissions, 2)
	assert.Nil(t, res.ItemEmissions[0].EmissionsKgCO2e, "bananas left unanswered")
	assert.Equal(t, 1.2, *res.ItemEmissions[1].EmissionsKgCO2e)
	assert.Equal(t, 1.2, *res.Emissions)

	require.Len(t, recs.recs, 1)
	rec := recs.recs[0]
	assert.Equal(t, "u1", rec.UserID)
	require.NotNil(t, rec.Receipt)
	assert.Equal(t, "ORGANIC BANANAS", rec.Receipt.Items[0].ItemName)
	assert.Equal(t, 1.2, *rec.Receipt.Items[1].Emissions)
	require.NotNil(t, res.RecordID)
	assert.Len(t, pub.published, 1)
}

func TestProcessTextSkipsOCR(t *testing.T) {
	text := &fakeText{err: errors.New("must not be called")}
	p := NewProcessor(text, nil, nil, nil, nil)

	res, err := p.ProcessText(context.Background(), "", constants.KindEnergy, "City Power\n300 kWh", "")
	require.NoError(t, err)
	require.NotNil(t, res.Energy)
	assert.Equal(t, 300.0, *res.Energy.TotalKWh)
	assert.Empty(t, text.format)
	assert.Equal(t, constants.JobStatusParsed, res.Status)
	assert.Nil(t, res.RecordID)
}

func TestProcessEnergyEstimatesUsage(t *testing.T) {
	est := &fakeEstimator{enabled: true, estimate: f(120)}
	p := NewProcessor(nil, est, nil, nil, nil)

	res, err := p.Process(context.Background(), Input{
		Kind: constants.KindEnergy, Text: "Acme Power\nTotal usage 512 kWh\nService Address: 1 Elm St\nBoston MA 02110",
	})
	require.NoError(t, err)
	require.Len(t, est.names, 1)
	assert.Contains(t, est.names[0], "512 kWh of residential grid electricity")
	assert.Contains(t, est.names[0], "utility: Acme Power")
	assert.Equal(t, 120.0, *res.Emissions)
	assert.Equal(t, constants.JobStatusEstimated, res.Status)
}

func TestProcessTripUsesVehicleType(t *testing.T) {
	est := &fakeEstimator{enabled: true, estimate: f(1.6)}
	recs := &memRecords{}
	p := NewProcessor(nil, est, recs, nil, nil)

	res, err := p.Process(context.Background(), Input{
		UserID: "u", Kind: constants.KindTransport, VehicleType: "UberXL",
		Text: "Thanks for riding with Uber\nJune 16, 2025\n4.2 mi 18 min\nTotal $23.45",
	})
	require.NoError(t, err)
	assert.Equal(t, constants.VehicleXL, res.VehicleType)
	require.Len(t, est.names, 1)
	assert.Contains(t, est.names[0], "4.2 mile xl rideshare car trip")
	assert.Contains(t, est.names[0], "provider: Uber")

	require.Len(t, recs.recs, 1)
	ride := recs.recs[0].Ride
	require.NotNil(t, ride)
	assert.Equal(t, "xl", ride.VehicleType)
	assert.Equal(t, "2025-06-16", *ride.RideDate)
	assert.Equal(t, 1.6, *ride.Emissions)
}

func TestProcessSkipsEstimationWhenDisabled(t *testing.T) {
	est := &fakeEstimator{enabled: false}
	p := NewProcessor(nil, est, nil, nil, nil)

	res, err := p.Process(context.Background(), Input{Kind: constants.KindReceipt, Text: receiptText})
	require.NoError(t, err)
	assert.Nil(t, est.batchSeen)
	assert.Nil(t, res.Emissions)

	est.enabled = true
	_, err = p.Process(context.Background(), Input{Kind: constants.KindReceipt, Text: receiptText, SkipEstimate: true})
	require.NoError(t, err)
	assert.Nil(t, est.batchSeen)
}

func TestProcessErrors(t *testing.T) {
	ctx := context.Background()

	_, err := NewProcessor(nil, nil, nil, nil, nil).Process(ctx, Input{Kind: "flight", Text: "x"})
	assert.True(t, common.IsValidation(err))

	_, err = NewProcessor(nil, nil, nil, nil, nil).Process(ctx, Input{Kind: constants.KindReceipt, Data: []byte("x")})
	assert.True(t, common.IsValidation(err), "format required for binary input")

	_, err = NewProcessor(nil, nil, nil, nil, nil).Process(ctx, Input{Kind: constants.KindReceipt, Format: constants.IMAGE, Data: []byte("x")})
	assert.True(t, common.IsProviderUnavailable(err))

	tooBig := &fakeText{err: common.NewAppError("PAYLOAD_TOO_LARGE", "image too large", common.ErrPayloadTooLarge)}
	_, err = NewProcessor(tooBig, nil, nil, nil, nil).Process(ctx, Input{Kind: constants.KindReceipt, Format: constants.IMAGE, Data: []byte("x")})
	assert.ErrorIs(t, err, common.ErrPayloadTooLarge)

	down := &fakeEstimator{enabled: true, err: common.ProviderUnavailable("llm", errors.New("503"))}
	recs := &memRecords{}
	_, err = NewProcessor(nil, down, recs, nil, nil).Process(ctx, Input{UserID: "u", Kind: constants.KindReceipt, Text: receiptText})
	assert.True(t, common.IsProviderUnavailable(err))
	assert.Empty(t, recs.recs, "nothing stored when estimation fails")
}

func TestEnergyBillWithoutKWhFailsWhenEstimating(t *testing.T) {
	est := &fakeEstimator{enabled: true, estimate: f(10)}
	recs := &memRecords{}
	p := NewProcessor(nil, est, recs, nil, nil)

	_, err := p.Process(context.Background(), Input{UserID: "u", Kind: constants.KindEnergy, Text: "City Power\nAmount due $42.10"})
	assert.True(t, common.IsValidation(err))
	assert.Contains(t, err.Error(), "total kWh not found")
	assert.Empty(t, est.names, "no estimate requested")
	assert.Empty(t, recs.recs)

	res, err := p.Process(context.Background(), Input{UserID: "u", Kind: constants.KindEnergy, Text: "City Power\nAmount due $42.10", SkipEstimate: true})
	require.NoError(t, err, "parsing alone still succeeds")
	assert.Nil(t, res.Energy.TotalKWh)
}

func TestReceiptFallbackContextIsCleanedText(t *testing.T) {
	est := &fakeEstimator{enabled: true}
	p := NewProcessor(nil, est, nil, nil, nil)

	res, err := p.Process(context.Background(), Input{Kind: constants.KindReceipt, Text: receiptText})
	require.NoError(t, err)
	assert.Equal(t, res.CleanedText, est.fallback)

	_, err = p.Process(context.Background(), Input{Kind: constants.KindReceipt, Text: receiptText, Context: "Trader Joe's"})
	require.NoError(t, err)
	assert.Equal(t, "Trader Joe's", est.fallback)
}

func TestStrategyOption(t *testing.T) {
	est := &fakeEstimator{enabled: true, estimate: f(3)}
	_, err := NewProcessor(nil, est, nil, nil, nil).Process(context.Background(), Input{Kind: constants.KindEnergy, Text: "City Power\n300 kWh"})
	require.NoError(t, err)

	_, err = NewProcessor(nil, est, nil, nil, nil, WithStrategy(carbon.StrategySearch)).Process(context.Background(), Input{Kind: constants.KindEnergy, Text: "City Power\n300 kWh"})
	require.NoError(t, err)
	assert.Equal(t, []carbon.Strategy{carbon.StrategyAuto, carbon.StrategySearch}, est.strategies)
}

func TestPublishFailureDoesNotFailProcessing(t *testing.T) {
	recs := &memRecords{}
	pub := &recordingPublisher{err: errors.New("broker down")}
	p := NewProcessor(nil, nil, recs, pub, nil)

	res, err := p.Process(context.Background(), Input{UserID: "u", Kind: constants.KindEnergy, Text: "City Power\n300 kWh"})
	require.NoError(t, err)
	assert.NotNil(t, res.RecordID)
	assert.Len(t, pub.published, 1)
}

func TestReconcileHandlesDuplicates(t *testing.T) {
	got := reconcile(
		[]extract.ReceiptItem{{Name: "EGGS"}, {Name: "EGGS"}, {Name: "TEA"}},
		[]carbon.ItemEmission{{ItemName: "eggs", EmissionsKgCO2e: f(1)}, {ItemName: "EGGS ", EmissionsKgCO2e: f(2)}},
	)
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, *got[0].EmissionsKgCO2e)
	assert.Equal(t, 2.0, *got[1].EmissionsKgCO2e)
	assert.Nil(t, got[2].EmissionsKgCO2e)
}
