package server

import (
	"context"
	"encoding/base64"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/auth"
	"github.com/joseph-ayodele/ecoscore/internal/carbon"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/entity"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
	"github.com/joseph-ayodele/ecoscore/internal/ocr"
	"github.com/joseph-ayodele/ecoscore/internal/pipeline"
)

type fakeProcessor struct {
	mu   sync.Mutex
	last pipeline.Input
	err  error
}

func (f *fakeProcessor) Process(_ context.Context, in pipeline.Input) (*pipeline.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = in
	if in.Context == "panic" {
		panic("nil map write")
	}
	if f.err != nil {
		return nil, f.err
	}
	kg := 2.5
	return &pipeline.Result{Kind: in.Kind, CleanedText: in.Text, Emissions: &kg, Status: constants.JobStatusEstimated}, nil
}

type fakeText struct{}

func (fakeText) Extract(_ context.Context, format string, data []byte) (ocr.Result, error) {
	if len(data) == 0 {
		return ocr.Result{}, common.NewAppError("EMPTY_INPUT", "empty image", common.ErrEmptyInput)
	}
	return ocr.Result{Text: "MILK\r\n3.49\n\n\n\nTOTAL\n3.49", Format: format, Method: "fake", Confidence: 0.9}, nil
}

type fakeCarbon struct{}

func (fakeCarbon) Estimate(_ context.Context, name, _ string, requested carbon.Strategy) (carbon.Estimate, error) {
	kg := 1.2
	return carbon.Estimate{ItemName: name, Strategy: requested, EmissionsKgCO2e: &kg, References: []string{}}, nil
}

func (fakeCarbon) EstimateBatch(_ context.Context, items []carbon.Item, requested carbon.Strategy, _ string) ([]carbon.Estimate, error) {
	out := make([]carbon.Estimate, len(items))
	for i, it := range items {
		out[i] = carbon.Estimate{ItemName: it.Name, Strategy: requested, References: []string{}}
	}
	return out, nil
}

func (fakeCarbon) EstimateReceiptItems(_ context.Context, items []carbon.Item, _ string) ([]carbon.ItemEmission, error) {
	return nil, common.ProviderUnavailable("llm", errors.New("not configured"))
}

type memRecords struct {
	recs []*entity.Record
}

func (m *memRecords) Append(_ context.Context, r *entity.Record) error {
	m.recs = append(m.recs, r)
	return nil
}

func (m *memRecords) List(_ context.Context, userID string, kind constants.DocumentKind) ([]*entity.Record, error) {
	var out []*entity.Record
	for _, r := range m.recs {
		if r.UserID == userID && (kind == "" || r.Kind == kind) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeExporter struct {
	userID   string
	from, to *time.Time
}

func (f *fakeExporter) ExportRecordsXLSX(_ context.Context, userID string, from, to *time.Time) ([]byte, error) {
	f.userID, f.from, f.to = userID, from, to
	return []byte("PK-xlsx"), nil
}

type rejectAll struct{}

func (rejectAll) Verify(context.Context, string) (auth.Claims, error) {
	return auth.Claims{}, common.NewAppError("UNAUTHENTICATED", "bad token", common.ErrUnauthorized)
}

type harness struct {
	client *Client
	conn   *grpc.ClientConn
	proc   *fakeProcessor
	recs   *memRecords
	export *fakeExporter
}

func newHarness(t *testing.T, verifier auth.Verifier) *harness {
	t.Helper()
	h := &harness{proc: &fakeProcessor{}, recs: &memRecords{}, export: &fakeExporter{}}
	svc := NewService(Deps{
		Processor: h.proc,
		Text:      fakeText{},
		Carbon:    fakeCarbon{},
		Records:   h.recs,
		Exporter:  h.export,
	}, nil)
	svc.now = func() time.Time { return time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC) }

	srv, _ := NewGRPCServer(svc, verifier, observability.NewMetrics(), nil)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	h.client = NewClient(conn)
	return h
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestProcessDocumentWithText(t *testing.T) {
	h := newHarness(t, auth.Static{UserID: "user-1"})

	out, err := h.client.Call(context.Background(), "ProcessDocument", mustStruct(t, map[string]any{
		"kind": "utility", "text": "PG&E 500 kWh", "dry_run": true,
	}))
	require.NoError(t, err)
	assert.Equal(t, "energy", out.Fields["kind"].GetStringValue())
	assert.Equal(t, 2.5, out.Fields["emissions_kg_co2e"].GetNumberValue())

	assert.Equal(t, constants.KindEnergy, h.proc.last.Kind)
	assert.Equal(t, "user-1", h.proc.last.UserID)
	assert.True(t, h.proc.last.SkipPersist)
	assert.Empty(t, h.proc.last.Data)
}

func TestProcessDocumentDecodesUpload(t *testing.T) {
	h := newHarness(t, nil)
	payload := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))

	_, err := h.client.Call(context.Background(), "ProcessDocument", mustStruct(t, map[string]any{
		"kind": "receipt", "content_base64": payload,
	}))
	require.NoError(t, err)
	assert.Equal(t, constants.PDF, h.proc.last.Format)
	assert.Equal(t, []byte("%PDF-1.4"), h.proc.last.Data)
	assert.Equal(t, auth.SkipAuthUserID, h.proc.last.UserID)
}

func TestProcessDocumentTextUploadBypassesOCR(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.client.Call(context.Background(), "ProcessDocument", mustStruct(t, map[string]any{
		"kind": "ride", "filename": "trip.txt", "content_base64": base64.StdEncoding.EncodeToString([]byte("Uber 3.2 mi")),
	}))
	require.NoError(t, err)
	assert.Equal(t, "Uber 3.2 mi", h.proc.last.Text)
	assert.Empty(t, h.proc.last.Format)
}

func TestProcessDocumentErrorsMapToCodes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.client.Call(ctx, "ProcessDocument", mustStruct(t, map[string]any{"kind": "invoice", "text": "x"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = h.client.Call(ctx, "ProcessDocument", mustStruct(t, map[string]any{"kind": "receipt", "content_base64": "AAAA"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "format not derivable")

	_, err = h.client.Call(ctx, "ProcessDocument", mustStruct(t, map[string]any{
		"kind": "receipt", "text": "MILK 3.49", "context": strings.Repeat("x", maxContextRunes+1),
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	h.proc.err = common.NewAppError("PAYLOAD_TOO_LARGE", "image too large", common.ErrPayloadTooLarge)
	_, err = h.client.Call(ctx, "ProcessDocument", mustStruct(t, map[string]any{"kind": "receipt", "text": "MILK 3.49"}))
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))

	h.proc.err = common.ProviderUnavailable("vision", errors.New("quota"))
	_, err = h.client.Call(ctx, "ProcessDocument", mustStruct(t, map[string]any{"kind": "receipt", "text": "MILK 3.49"}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestHandlerPanicBecomesInternal(t *testing.T) {
	h := newHarness(t, nil)
	_, err := h.client.Call(context.Background(), "ProcessDocument", mustStruct(t, map[string]any{
		"kind": "receipt", "text": "MILK 3.49", "context": "panic",
	}))
	assert.Equal(t, codes.Internal, status.Code(err))

	_, err = h.client.Call(context.Background(), "EstimateCarbon", mustStruct(t, map[string]any{"item_name": "Tea"}))
	require.NoError(t, err, "server keeps serving")
}

func TestExtractText(t *testing.T) {
	h := newHarness(t, nil)
	out, err := h.client.Call(context.Background(), "ExtractText", mustStruct(t, map[string]any{
		"format": "png", "content_base64": base64.StdEncoding.EncodeToString([]byte{0x89, 'P', 'N', 'G'}),
	}))
	require.NoError(t, err)
	assert.Equal(t, "MILK\n3.49\n\nTOTAL\n3.49", out.Fields["cleaned_text"].GetStringValue())
	assert.Equal(t, "fake", out.Fields["method"].GetStringValue())
	assert.NotNil(t, out.Fields["likely_items"].GetListValue())

	_, err = h.client.Call(context.Background(), "ExtractText", mustStruct(t, map[string]any{"format": "IMAGE"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestEstimateRPCs(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	out, err := h.client.Call(ctx, "EstimateCarbon", mustStruct(t, map[string]any{"item_name": "Milk", "strategy": "llm"}))
	require.NoError(t, err)
	assert.Equal(t, "Milk", out.Fields["item_name"].GetStringValue())
	assert.Equal(t, 1.2, out.Fields["emissions_kg_co2e"].GetNumberValue())

	_, err = h.client.Call(ctx, "EstimateCarbon", mustStruct(t, map[string]any{"item_name": "Milk", "strategy": "magic"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	out, err = h.client.Call(ctx, "EstimateBatch", mustStruct(t, map[string]any{
		"items": []any{map[string]any{"name": "A"}, map[string]any{"name": "B"}},
	}))
	require.NoError(t, err)
	results := out.Fields["results"].GetListValue().GetValues()
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[1].GetStructValue().Fields["item_name"].GetStringValue())

	_, err = h.client.Call(ctx, "EstimateReceiptItems", mustStruct(t, map[string]any{
		"items": []any{map[string]any{"name": "A"}},
	}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestListAndExportRecords(t *testing.T) {
	h := newHarness(t, auth.Static{UserID: "user-1"})
	kg := 4.0
	h.recs.recs = []*entity.Record{
		{UserID: "user-1", Kind: constants.KindEnergy, EmissionsKgCO2e: &kg},
		{UserID: "user-1", Kind: constants.KindReceipt},
		{UserID: "someone-else", Kind: constants.KindEnergy},
	}
	ctx := context.Background()

	out, err := h.client.Call(ctx, "ListRecords", mustStruct(t, map[string]any{"kind": "energy"}))
	require.NoError(t, err)
	assert.Len(t, out.Fields["records"].GetListValue().GetValues(), 1)

	out, err = h.client.Call(ctx, "ListRecords", mustStruct(t, map[string]any{}))
	require.NoError(t, err)
	assert.Len(t, out.Fields["records"].GetListValue().GetValues(), 2)

	out, err = h.client.Call(ctx, "ExportRecords", mustStruct(t, map[string]any{"from_date": "2025-01-01"}))
	require.NoError(t, err)
	assert.Equal(t, "ecoscore-20250309.xlsx", out.Fields["filename"].GetStringValue())
	raw, err := base64.StdEncoding.DecodeString(out.Fields["content_base64"].GetStringValue())
	require.NoError(t, err)
	assert.Equal(t, "PK-xlsx", string(raw))
	assert.Equal(t, "user-1", h.export.userID)
	require.NotNil(t, h.export.to)
	assert.Equal(t, "2025-03-09", h.export.to.Format("2006-01-02"))

	_, err = h.client.Call(ctx, "ExportRecords", mustStruct(t, map[string]any{"to_date": "03/09/2025"}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuthInterceptor(t *testing.T) {
	h := newHarness(t, rejectAll{})
	ctx := metadata.AppendToOutgoingContext(context.Background(), "authorization", "Bearer nope")

	_, err := h.client.Call(ctx, "ListRecords", mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	resp, err := healthpb.NewHealthClient(h.conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err, "health bypasses auth")
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRequestIDEchoed(t *testing.T) {
	h := newHarness(t, nil)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "req-42")
	var header metadata.MD
	_, err := h.client.Call(ctx, "EstimateCarbon", mustStruct(t, map[string]any{"item_name": "Tea"}), grpc.Header(&header))
	require.NoError(t, err)
	assert.Equal(t, []string{"req-42"}, header.Get("x-request-id"))
}

func TestMissingCollaboratorIsUnavailable(t *testing.T) {
	svc := NewService(Deps{}, nil)
	_, err := svc.EstimateCarbon(context.Background(), mustStruct(t, map[string]any{"item_name": "Tea"}))
	assert.Equal(t, codes.Unavailable, status.Code(err))

	_, err = svc.ListRecords(common.WithUserID(context.Background(), "u"), mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestListRecordsRequiresUser(t *testing.T) {
	svc := NewService(Deps{Records: &memRecords{}}, nil)
	_, err := svc.ListRecords(context.Background(), mustStruct(t, map[string]any{}))
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

type stubHealth struct{ err error }

func (s stubHealth) HealthCheck(context.Context, time.Duration) error { return s.err }

func TestAdminRouter(t *testing.T) {
	metrics := observability.NewMetrics()
	metrics.DocumentProcessed("receipt", "ok")

	srv := httptest.NewServer(NewAdminRouter(stubHealth{}, metrics, nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	down := httptest.NewServer(NewAdminRouter(stubHealth{err: errors.New("db down")}, metrics, nil))
	defer down.Close()
	resp, err = http.Get(down.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
