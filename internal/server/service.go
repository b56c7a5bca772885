package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pnl-tracker/constants"
	"github.com/joseph-ayodele/pnl-tracker/internal/async"
	"github.com/joseph-ayodele/pnl-tracker/internal/book"
	"github.com/joseph-ayodele/pnl-tracker/internal/common"
	"github.com/joseph-ayodele/pnl-tracker/internal/dates"
	"github.com/joseph-ayodele/pnl-tracker/internal/entity"
	"github.com/joseph-ayodele/pnl-tracker/internal/export"
	"github.com/joseph-ayodele/pnl-tracker/internal/ingest"
	"github.com/joseph-ayodele/pnl-tracker/internal/metrics"
	"github.com/joseph-ayodele/pnl-tracker/internal/pipeline"
	"github.com/joseph-ayodele/pnl-tracker/internal/trades"
)

// Extractor is satisfied by *pipeline.Processor.
type Extractor interface {
	ProcessImage(ctx context.Context, path string) (pipeline.Result, error)
	ProcessText(text string, confidence float64, sourceID string) pipeline.Result
}

// Enqueuer is satisfied by *async.Queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job async.Job) error
}

// TradesService exposes the trade book over gRPC.
type TradesService struct {
	book      *book.Book
	extractor Extractor
	queue     Enqueuer
	logger    *slog.Logger
	now       func() time.Time
}

// NewTradesService wires the handlers. queue may be nil, in which case
// IngestDirectory is unavailable.
func NewTradesService(b *book.Book, extractor Extractor, queue Enqueuer, logger *slog.Logger) *TradesService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TradesService{book: b, extractor: extractor, queue: queue, logger: logger, now: time.Now}
}

var _ TradesServer = (*TradesService)(nil)

type extractRequest struct {
	Text       string  `json:"text"`
	ImagePath  string  `json:"imagePath"`
	Confidence float64 `json:"confidence"`
	SourceID   string  `json:"sourceId"`
}

func (s *TradesService) ExtractText(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req extractRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(req.ImagePath) != "":
		res, err := s.extractor.ProcessImage(ctx, req.ImagePath)
		if err != nil {
			return nil, err
		}
		return toStruct(res)
	case strings.TrimSpace(req.Text) != "":
		return toStruct(s.extractor.ProcessText(req.Text, req.Confidence, req.SourceID))
	default:
		return nil, common.InvalidArgumentError("text or imagePath is required")
	}
}

type tradesResponse struct {
	Trades      []entity.Trade `json:"trades"`
	CurrentWeek string         `json:"currentWeek"`
	Warning     string         `json:"warning,omitempty"`
}

type weekRequest struct {
	Week string `json:"week"`
}

// ListTrades returns every trade, or only those of week when given.
func (s *TradesService) ListTrades(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req weekRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	snap := s.book.Snapshot()
	list := snap.Trades()
	if req.Week != "" {
		if _, _, err := dates.ParseWeekKey(req.Week); err != nil {
			return nil, err
		}
		list = metrics.InWeek(list, req.Week)
	}
	if list == nil {
		list = []entity.Trade{}
	}
	return toStruct(tradesResponse{Trades: list, CurrentWeek: snap.CurrentWeek()})
}

type addRequest struct {
	Trade           *entity.Trade `json:"trade"`
	Edit            *trades.Edit  `json:"edit"`
	DuplicateAction string        `json:"duplicateAction"`
}

type outcomeResponse struct {
	Added       int           `json:"added"`
	Dropped     int           `json:"dropped"`
	Duplicate   *entity.Trade `json:"duplicate,omitempty"`
	Trades      int           `json:"trades"`
	CurrentWeek string        `json:"currentWeek"`
	Warning     string        `json:"warning,omitempty"`
}

func outcome(o book.Outcome) outcomeResponse {
	r := outcomeResponse{
		Added:       o.Added,
		Dropped:     o.Dropped,
		Duplicate:   o.Duplicate,
		Trades:      o.Snapshot.Len(),
		CurrentWeek: o.Snapshot.CurrentWeek(),
	}
	if o.Warning != nil {
		r.Warning = o.Warning.Error()
	}
	return r
}

// AddTrade records either a full trade (as returned by ExtractText) or a
// manual entry.
func (s *TradesService) AddTrade(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req addRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	var t entity.Trade
	switch {
	case req.Trade != nil:
		t = *req.Trade
		if t.Side == "" {
			t.Side = constants.SideUnknown
		}
		t.Result = constants.ResultFor(t.RealizedPnl)
		if t.CreatedAt.IsZero() {
			t.CreatedAt = s.now().UTC()
			t.UpdatedAt = t.CreatedAt
		}
	case req.Edit != nil:
		manual, err := trades.NewManualTrade(*req.Edit)
		if err != nil {
			return nil, err
		}
		t = manual
	default:
		return nil, common.InvalidArgumentError("trade or edit is required")
	}

	out, err := s.book.Add(ctx, t, constants.ParseDuplicateAction(strings.ToLower(req.DuplicateAction)))
	if err != nil {
		return nil, err
	}
	s.warn(ctx, "AddTrade", out)
	return toStruct(outcome(out))
}

type updateRequest struct {
	ID   string      `json:"id"`
	Edit trades.Edit `json:"edit"`
}

func (s *TradesService) UpdateTrade(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req updateRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	out, err := s.book.Update(ctx, id, req.Edit)
	if err != nil {
		return nil, err
	}
	s.warn(ctx, "UpdateTrade", out)
	return toStruct(outcome(out))
}

type idRequest struct {
	ID string `json:"id"`
}

func (s *TradesService) DeleteTrade(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req idRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	out, err := s.book.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	s.warn(ctx, "DeleteTrade", out)
	return toStruct(outcome(out))
}

func (s *TradesService) ClearTrades(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	out, err := s.book.Clear(ctx)
	if err != nil {
		return nil, err
	}
	s.warn(ctx, "ClearTrades", out)
	return toStruct(outcome(out))
}

func (s *TradesService) SetCurrentWeek(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req weekRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	out, err := s.book.SetCurrentWeek(ctx, req.Week)
	if err != nil {
		return nil, err
	}
	s.warn(ctx, "SetCurrentWeek", out)
	return toStruct(outcome(out))
}

type weeklyResponse struct {
	metrics.Weekly
	NetPnlText       string `json:"netPnlText"`
	WinRateText      string `json:"winRateText"`
	ProfitFactorText string `json:"profitFactorText"`
	Summary          string `json:"summary"`
}

// WeeklyMetrics reports on week, defaulting to the book's current week.
func (s *TradesService) WeeklyMetrics(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req weekRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	snap := s.book.Snapshot()
	week := req.Week
	if week == "" {
		week = snap.CurrentWeek()
	}
	w, err := metrics.ComputeWeekly(snap.Trades(), week)
	if err != nil {
		return nil, err
	}
	return toStruct(weeklyResponse{
		Weekly:           w,
		NetPnlText:       metrics.FormatPnl(w.NetPnl),
		WinRateText:      metrics.FormatPercentage(w.WinRate),
		ProfitFactorText: metrics.FormatProfitFactor(w),
		Summary:          metrics.ShareSummary(w),
	})
}

func (s *TradesService) EquityCurve(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	points := metrics.EquityCurve(s.book.Snapshot().Trades())
	if points == nil {
		points = []metrics.EquityPoint{}
	}
	return toStruct(map[string]any{"points": points})
}

func (s *TradesService) WeeklySeries(_ context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	list := s.book.Snapshot().Trades()
	return toStruct(map[string]any{
		"pnl":     metrics.WeeklyPnlSeries(list),
		"winLoss": metrics.WeeklyWinLossSeries(list),
	})
}

type exportRequest struct {
	Format string `json:"format"`
}

type exportResponse struct {
	Format   string `json:"format"`
	Filename string `json:"filename"`
	// Data is the JSON document itself, or base64 for xlsx.
	Data string `json:"data"`
}

func (s *TradesService) ExportTrades(_ context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req exportRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	now := s.now()
	list := s.book.Snapshot().Trades()
	day := now.UTC().Format("2006-01-02")

	switch strings.ToLower(req.Format) {
	case "", "json":
		raw, err := export.ExportJSON(list, now)
		if err != nil {
			return nil, err
		}
		return toStruct(exportResponse{Format: "json", Filename: "bitget-pnl-export-" + day + ".json", Data: string(raw)})
	case "xlsx":
		raw, err := export.TradesXLSX(list)
		if err != nil {
			return nil, err
		}
		return toStruct(exportResponse{Format: "xlsx", Filename: "bitget-pnl-export-" + day + ".xlsx", Data: base64.StdEncoding.EncodeToString(raw)})
	default:
		return nil, common.InvalidArgumentErrorf("unknown export format %q", req.Format)
	}
}

type importRequest struct {
	Data string `json:"data"`
}

func (s *TradesService) ImportTrades(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req importRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	list, err := export.ImportJSON([]byte(req.Data), s.now())
	if err != nil {
		return nil, err
	}
	out, err := s.book.Import(ctx, list)
	if err != nil {
		return nil, err
	}
	s.warn(ctx, "ImportTrades", out)
	return toStruct(outcome(out))
}

type ingestRequest struct {
	RootPath   string `json:"rootPath"`
	SkipHidden *bool  `json:"skipHidden"`
}

type ingestResponse struct {
	Scanned uint32   `json:"scanned"`
	Matched uint32   `json:"matched"`
	Failed  uint32   `json:"failed"`
	Queued  []string `json:"queued"`
}

// IngestDirectory queues every image under rootPath for background processing.
func (s *TradesService) IngestDirectory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if s.queue == nil {
		return nil, common.NewAppError("UNAVAILABLE", "ingest queue not configured", common.ErrStoreUnavailable)
	}
	var req ingestRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	root := strings.TrimSpace(req.RootPath)
	if root == "" {
		return nil, common.InvalidArgumentError("rootPath is required")
	}
	skipHidden := true
	if req.SkipHidden != nil {
		skipHidden = *req.SkipHidden
	}

	paths, stats, err := ingest.ScanDirectory(root, skipHidden)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	resp := ingestResponse{Scanned: stats.Scanned, Matched: stats.Matched, Failed: stats.Failed, Queued: []string{}}
	for _, p := range paths {
		if err := s.queue.Enqueue(ctx, async.Job{Path: p, SubmittedAt: s.now()}); err != nil {
			return nil, err
		}
		resp.Queued = append(resp.Queued, p)
	}
	common.LoggerFromContext(ctx, s.logger).Info("ingest.directory.queued", "root", root, "queued", len(paths))
	return toStruct(resp)
}

func (s *TradesService) warn(ctx context.Context, method string, o book.Outcome) {
	if o.Warning != nil {
		common.LoggerFromContext(ctx, s.logger).Warn("grpc.persist.warning", "method", method, "error", o.Warning)
	}
}

func decode(in *structpb.Struct, v any) error {
	if in == nil {
		return nil
	}
	if err := fromStruct(in, v); err != nil {
		return common.InvalidArgumentError(err.Error())
	}
	return nil
}

func parseID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	v := common.NewValidator().Field("id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}
