package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/joseph-ayodele/pnl-tracker/internal/async"
	"github.com/joseph-ayodele/pnl-tracker/internal/book"
	"github.com/joseph-ayodele/pnl-tracker/internal/parsing"
	"github.com/joseph-ayodele/pnl-tracker/internal/pipeline"
)

const closeSummary = "BTCUSDT Perpetual\nDate: 2024-01-08 14:32:15\nRealized PNL: +1129.50 USDT\nROI: +2.68%\nTrading Fee: -8.45 USDT"

type stubRecognizer struct{}

func (stubRecognizer) Recognize(context.Context, string) (parsing.Document, error) {
	return parsing.NewDocument(closeSummary, 88), nil
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

type harness struct {
	client *Client
	conn   *grpc.ClientConn
	queue  *recordingQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	q := &recordingQueue{}
	svc := NewTradesService(book.New(nil, nil, nil), pipeline.NewProcessor(nil, stubRecognizer{}, nil), q, nil)
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }

	srv, _ := NewGRPCServer(svc, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &harness{client: NewClient(conn), conn: conn, queue: q}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	resp, err := grpc_health_v1.NewHealthClient(h.conn).Check(context.Background(), &grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestExtractAddListDelete(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var res pipeline.Result
	require.NoError(t, h.client.Call(ctx, "ExtractText", map[string]any{"text": closeSummary, "sourceId": "paste"}, &res))
	require.NotNil(t, res.Trade)
	assert.Equal(t, "BTCUSDT", res.Trade.Symbol)
	assert.False(t, res.NeedsReview)

	var added outcomeResponse
	require.NoError(t, h.client.Call(ctx, "AddTrade", map[string]any{"trade": res.Trade}, &added))
	assert.Equal(t, 1, added.Added)
	assert.Equal(t, 1, added.Trades)

	// the same trade from a second screenshot is skipped by default
	var img pipeline.Result
	require.NoError(t, h.client.Call(ctx, "ExtractText", map[string]any{"imagePath": "/tmp/shot.png"}, &img))
	require.NotNil(t, img.Trade)
	var again outcomeResponse
	require.NoError(t, h.client.Call(ctx, "AddTrade", map[string]any{"trade": img.Trade}, &again))
	assert.Zero(t, again.Added)
	require.NotNil(t, again.Duplicate)
	assert.Equal(t, res.Trade.ID, again.Duplicate.ID)

	var list tradesResponse
	require.NoError(t, h.client.Call(ctx, "ListTrades", map[string]any{"week": "2024-W02"}, &list))
	require.Len(t, list.Trades, 1)
	assert.InDelta(t, 1129.50, list.Trades[0].RealizedPnl, 1e-9)

	require.NoError(t, h.client.Call(ctx, "ListTrades", map[string]any{"week": "2024-W03"}, &list))
	assert.Empty(t, list.Trades)

	var del outcomeResponse
	require.NoError(t, h.client.Call(ctx, "DeleteTrade", map[string]any{"id": res.Trade.ID.String()}, &del))
	assert.Zero(t, del.Trades)
}

func TestManualTradeAndWeeklyMetrics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, e := range []map[string]any{
		{"timestamp": "2024-01-08T10:00:00Z", "symbol": "btcusdt", "side": "long", "realizedPnl": 100},
		{"timestamp": "2024-01-09T10:00:00Z", "symbol": "ETHUSDT", "side": "short", "realizedPnl": -40},
	} {
		require.NoError(t, h.client.Call(ctx, "AddTrade", map[string]any{"edit": e}, nil))
	}

	var w weeklyResponse
	require.NoError(t, h.client.Call(ctx, "WeeklyMetrics", map[string]any{"week": "2024-W02"}, &w))
	assert.Equal(t, 2, w.TotalTrades)
	assert.InDelta(t, 60, w.NetPnl, 1e-9)
	assert.Equal(t, "+60.00 USDT", w.NetPnlText)
	assert.Equal(t, "2.50", w.ProfitFactorText)
	assert.Contains(t, w.Summary, "Week: 2024-W02")

	var curve struct {
		Points []struct {
			Date   string  `json:"date"`
			Equity float64 `json:"equity"`
		} `json:"points"`
	}
	require.NoError(t, h.client.Call(ctx, "EquityCurve", nil, &curve))
	require.Len(t, curve.Points, 2)
	assert.InDelta(t, 60, curve.Points[1].Equity, 1e-9)

	var series struct {
		Pnl     []map[string]any `json:"pnl"`
		WinLoss []map[string]any `json:"winLoss"`
	}
	require.NoError(t, h.client.Call(ctx, "WeeklySeries", nil, &series))
	assert.Len(t, series.Pnl, 12)
	assert.Len(t, series.WinLoss, 12)
}

func TestExportImport(t *testing.T) {
	src := newHarness(t)
	ctx := context.Background()
	require.NoError(t, src.client.Call(ctx, "AddTrade", map[string]any{"edit": map[string]any{
		"timestamp": "2024-01-08T10:00:00Z", "symbol": "SOLUSDT", "realizedPnl": 12.5,
	}}, nil))

	var doc exportResponse
	require.NoError(t, src.client.Call(ctx, "ExportTrades", map[string]any{"format": "json"}, &doc))
	assert.Equal(t, "bitget-pnl-export-2024-01-10.json", doc.Filename)

	dst := newHarness(t)
	var imported outcomeResponse
	require.NoError(t, dst.client.Call(ctx, "ImportTrades", map[string]any{"data": doc.Data}, &imported))
	assert.Equal(t, 1, imported.Added)

	require.NoError(t, dst.client.Call(ctx, "ImportTrades", map[string]any{"data": doc.Data}, &imported))
	assert.Zero(t, imported.Added)
	assert.Equal(t, 1, imported.Dropped)

	var sheet exportResponse
	require.NoError(t, src.client.Call(ctx, "ExportTrades", map[string]any{"format": "xlsx"}, &sheet))
	raw, err := base64.StdEncoding.DecodeString(sheet.Data)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Trades")
}

func TestErrorCodes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		method string
		req    map[string]any
		code   codes.Code
	}{
		{"extract without input", "ExtractText", map[string]any{}, codes.InvalidArgument},
		{"add without trade", "AddTrade", map[string]any{}, codes.InvalidArgument},
		{"invalid manual trade", "AddTrade", map[string]any{"edit": map[string]any{"symbol": "BTCUSDT"}}, codes.InvalidArgument},
		{"bad id", "DeleteTrade", map[string]any{"id": "nope"}, codes.InvalidArgument},
		{"unknown trade", "UpdateTrade", map[string]any{"id": "5f0c1c3e-8a7b-4d59-9a55-0d8f1f6f4e11"}, codes.NotFound},
		{"bad week", "WeeklyMetrics", map[string]any{"week": "2024-13"}, codes.InvalidArgument},
		{"bad import", "ImportTrades", map[string]any{"data": `{"foo":1}`}, codes.InvalidArgument},
		{"bad export format", "ExportTrades", map[string]any{"format": "csv"}, codes.InvalidArgument},
		{"ingest without root", "IngestDirectory", map[string]any{}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.client.Call(ctx, tt.method, tt.req, nil)
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err), err.Error())
		})
	}
}

func TestRequestIDEcho(t *testing.T) {
	h := newHarness(t)
	var header metadata.MD
	ctx := metadata.AppendToOutgoingContext(context.Background(), RequestIDHeader, "req-42")
	require.NoError(t, h.client.Call(ctx, "ListTrades", nil, nil, grpc.Header(&header)))
	assert.Equal(t, []string{"req-42"}, header.Get(RequestIDHeader))

	require.NoError(t, h.client.Call(context.Background(), "ListTrades", nil, nil, grpc.Header(&header)))
	assert.Len(t, header.Get(RequestIDHeader), 1)
}

func TestIngestDirectoryQueuesImages(t *testing.T) {
	h := newHarness(t)
	root := t.TempDir()
	for _, name := range []string{"a.png", "b.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o600))
	}

	var resp ingestResponse
	require.NoError(t, h.client.Call(context.Background(), "IngestDirectory", map[string]any{"rootPath": root}, &resp))
	assert.EqualValues(t, 2, resp.Matched)
	assert.Equal(t, []string{filepath.Join(root, "a.png"), filepath.Join(root, "b.jpg")}, resp.Queued)
	assert.Len(t, h.queue.jobs, 2)
}
