package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"go-candleprep/internal/cache"
	"go-candleprep/internal/chart"
	"go-candleprep/internal/common"
	"go-candleprep/internal/config"
	"go-candleprep/internal/exchanges"
	"go-candleprep/internal/fetcher"
	"go-candleprep/internal/prep"
	"go-candleprep/internal/util"
	"go-candleprep/pkg/models"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Fetcher downloads one file and returns where it was stored.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Result is everything one run produced.
type Result struct {
	Frame       *models.Frame
	Candles     []models.Candle
	Mid         []float64
	Train       []float64
	Test        []float64
	TrainScaled [][]float64
	TestScaled  [][]float64
	ChartPath   string
}

type Service struct {
	config     *config.Config
	httpClient *http.Client
	fetcher    Fetcher
	retriever  cache.Retriever
	confirmer  Confirmer
	out        io.Writer
	now        func() time.Time
	show       func(path string) error
	logger     *util.Logger
}

type Option func(*Service)

func WithFetcher(f Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

func WithRetriever(r cache.Retriever) Option {
	return func(s *Service) {
		s.retriever = r
	}
}

func WithConfirmer(c Confirmer) Option {
	return func(s *Service) {
		s.confirmer = c
	}
}

// WithOutput sets where tables and the prompt are printed. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(s *Service) {
		s.out = w
	}
}

// WithHTTPClient is used by the default fetcher and retriever.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) {
		s.httpClient = c
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		config:     cfg,
		httpClient: http.DefaultClient,
		out:        os.Stdout,
		now:        time.Now,
		show:       chart.Show,
		logger:     util.NewLogger("pipeline"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		s.fetcher = fetcher.New(cfg.WorkDir, fetcher.WithHTTPClient(s.httpClient))
	}
	if s.retriever == nil {
		s.retriever = exchanges.NewBinance(cfg.ArchiveBaseURL,
			exchanges.WithClient(s.httpClient),
			exchanges.WithClock(s.now),
		)
	}
	if s.confirmer == nil {
		if cfg.Interactive {
			s.confirmer = NewStdinConfirmer(os.Stdin, s.out)
		} else {
			s.confirmer = NoopConfirmer{}
		}
	}
	return s
}

// Run executes one preparation pass. Only the helper download may fail without
// aborting; every later stage error is returned.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	cfg := s.config
	s.fetchHelper(ctx)

	gate := cache.NewGate(cfg.DataDir, s.retriever)
	raw, err := gate.Load(ctx, cache.Request{
		MarketType: cfg.MarketType,
		BulkSize:   cfg.BulkSize,
		Symbol:     cfg.Symbol,
		Timeframe:  cfg.Timeframe,
		Start:      cfg.Start(),
		End:        cfg.End(s.now()),
	})
	if err != nil {
		return nil, s.fail(err, common.ErrCodeCacheLoadFailed, common.ErrMsgCacheLoadFailed, "load")
	}

	frame, err := prep.Clean(raw)
	if err != nil {
		return nil, s.fail(err, common.ErrCodeCleanFailed, common.ErrMsgCleanFailed, "clean")
	}
	candles, err := prep.Candles(frame)
	if err != nil {
		return nil, s.fail(err, common.ErrCodeTransformFailed, common.ErrMsgTransformFailed, "transform")
	}
	mid := prep.MidPrices(candles)
	s.logger.Info("Mid prices derived", "count", len(mid), "half", len(mid)/2, "third", len(mid)/3)

	train, test := prep.Split(mid)
	if cfg.Scaling.Mode == common.ScalingIndependent {
		s.logger.Warn(common.ErrCodeScalingLeakage, common.ErrMsgScalingLeakage,
			"Scaling partitions independently", "mode", cfg.Scaling.Mode)
	}
	scaled, err := prep.ScalePartitions(train, test, cfg.Scaling.Mode)
	if err != nil {
		return nil, s.fail(err, common.ErrCodeScaleFailed, common.ErrMsgScaleFailed, "scale")
	}
	if err := s.printSummary(scaled); err != nil {
		return nil, s.fail(err, common.ErrCodeReportFailed, common.ErrMsgReportFailed, "report")
	}

	if err := s.confirmer.Confirm(ctx); err != nil {
		return nil, s.fail(err, common.ErrCodeConfirmFailed, common.ErrMsgConfirmFailed, "confirm")
	}
	if err := s.printHead(frame.Head(cfg.GetHeadRows())); err != nil {
		return nil, s.fail(err, common.ErrCodeReportFailed, common.ErrMsgReportFailed, "report")
	}

	res := &Result{
		Frame:       frame,
		Candles:     candles,
		Mid:         mid,
		Train:       train,
		Test:        test,
		TrainScaled: scaled.Train,
		TestScaled:  scaled.Test,
	}
	if !cfg.Chart.Enabled {
		return res, nil
	}

	res.ChartPath = s.chartPath()
	times := make([]time.Time, len(candles))
	for i, c := range candles {
		times[i] = c.OpenTime
	}
	opts := chart.Options{
		Width:        cfg.Chart.Width,
		Height:       cfg.Chart.Height,
		TickStride:   cfg.GetTickStride(),
		TickRotation: cfg.Chart.TickRotation,
		FontSize:     cfg.Chart.FontSize,
		Title:        cfg.Symbol + " " + cfg.Timeframe,
		XLabel:       models.ColOpenTime,
		YLabel:       "Mid Price",
	}
	if err := chart.Save(res.ChartPath, times, mid, opts); err != nil {
		return nil, s.fail(err, common.ErrCodeChartRenderFailed, common.ErrMsgChartRenderFailed, "chart")
	}
	s.logger.Info("Chart saved", "path", res.ChartPath)

	if cfg.Chart.Show {
		if err := s.show(res.ChartPath); err != nil {
			s.logger.Error(err, common.ErrCodeChartShowFailed, common.ErrMsgChartShowFailed, "Chart viewer failed", "path", res.ChartPath)
		}
	}
	return res, nil
}

func (s *Service) fetchHelper(ctx context.Context) {
	url := s.config.HelperURL
	if url == "" {
		return
	}
	path, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Error(err, common.ErrCodeHelperFetchFailed, common.ErrMsgHelperFetchFailed, "Helper download failed, continuing", "url", url)
		return
	}
	s.logger.Info("Helper downloaded", "path", path)
}

func (s *Service) fail(err error, code common.ErrorCode, msg common.ErrorMessage, stage string) error {
	s.logger.Error(err, code, msg, "Stage failed", "stage", stage)
	return fmt.Errorf("%s: %w", stage, err)
}

func (s *Service) chartPath() string {
	out := s.config.Chart.Output
	if filepath.IsAbs(out) {
		return out
	}
	return filepath.Join(s.config.WorkDir, out)
}

func (s *Service) printSummary(scaled *prep.Scaled) error {
	table := tablewriter.NewWriter(s.out)
	table.Header([]string{"Partition", "Rows", "Min", "Max", "Mean"})
	for _, part := range []struct {
		name string
		rows [][]float64
	}{
		{"train", scaled.Train},
		{"test", scaled.Test},
	} {
		values := prep.Column(part.rows)
		row := []string{part.name, strconv.Itoa(len(values)), "-", "-", "-"}
		if len(values) > 0 {
			row[2] = formatFloat(floats.Min(values))
			row[3] = formatFloat(floats.Max(values))
			row[4] = formatFloat(stat.Mean(values, nil))
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("summary row %s: %w", part.name, err)
		}
	}
	return table.Render()
}

func (s *Service) printHead(head *models.Frame) error {
	table := tablewriter.NewWriter(s.out)
	table.Header(head.Columns)
	for i, row := range head.Rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("head row %d: %w", i+1, err)
		}
	}
	return table.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
