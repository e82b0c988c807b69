package exchanges

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"go-candleprep/internal/common"
	"go-candleprep/internal/util"
	"go-candleprep/pkg/models"
)

var (
	ErrNoData           = errors.New("no klines in requested range")
	ErrUnsupported      = errors.New("unsupported request")
	ErrArchiveStatus    = errors.New("unexpected archive status")
	ErrArchiveMalformed = errors.New("malformed kline archive")
)

// microsecond timestamps have 16 digits, millisecond ones 13
const microsThreshold = 1e14

// Binance downloads kline archives from the public bulk data site
// (data.binance.vision) and merges them into one CSV.
type Binance struct {
	baseURL  string
	client   *http.Client
	progress bool
	now      func() time.Time
}

type BinanceOption func(*Binance)

func NewBinance(baseURL string, opts ...BinanceOption) *Binance {
	b := &Binance{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   http.DefaultClient,
		progress: true,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func WithClient(c *http.Client) BinanceOption {
	return func(b *Binance) {
		b.client = c
	}
}

// WithProgress toggles the terminal progress bar.
func WithProgress(on bool) BinanceOption {
	return func(b *Binance) {
		b.progress = on
	}
}

// WithClock overrides the clock used to tell complete months from the current one.
func WithClock(now func() time.Time) BinanceOption {
	return func(b *Binance) {
		b.now = now
	}
}

func (b *Binance) Name() string {
	return "binance"
}

// DownloadHistory fetches every archive covering [req.Start, req.End), keeps the rows
// inside that range and writes them with models.KlineColumns as header to dst.
// Archives that are not published (404) are skipped. It returns the number of rows written.
func (b *Binance) DownloadHistory(ctx context.Context, req HistoryRequest, dst string) (int, error) {
	urls, err := ArchiveURLs(b.baseURL, req, b.now())
	if err != nil {
		return 0, err
	}
	log.Info().
		Str("symbol", req.Symbol).
		Str("timeframe", req.Timeframe).
		Str("market", req.MarketType).
		Str("bulk", req.BulkSize).
		Time("start", req.Start).
		Time("end", req.End).
		Int("archives", len(urls)).
		Msg("Downloading historical klines")

	var bar *progressbar.ProgressBar
	if b.progress {
		bar = progressbar.Default(int64(len(urls)), "klines")
	} else {
		bar = progressbar.DefaultSilent(int64(len(urls)), "klines")
	}
	defer bar.Close()

	startMs, endMs := req.Start.UnixMilli(), req.End.UnixMilli()
	rows := make([][]string, 0)
	skipped := 0
	for _, u := range urls {
		archRows, found, err := b.fetchArchive(ctx, u)
		_ = bar.Add(1)
		if err != nil {
			return 0, err
		}
		if !found {
			skipped++
			continue
		}
		for _, row := range archRows {
			openMs, _ := strconv.ParseInt(row[0], 10, 64)
			if openMs < startMs || openMs >= endMs {
				continue
			}
			rows = append(rows, row)
		}
	}
	log.Debug().Int("skipped_archives", skipped).Int("rows", len(rows)).Msg("Merged kline archives")

	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: %s %s", ErrNoData, req.Symbol, req.Timeframe)
	}
	if err := util.WriteCsvFile(dst, models.KlineColumns, rows); err != nil {
		return 0, fmt.Errorf("write cache: %w", err)
	}
	return len(rows), nil
}

// ArchiveURLs lists the archive URLs covering [req.Start, req.End). With monthly bulk,
// months that ended before now use the monthly archive and the rest use daily archives,
// since a monthly archive only appears after the month closes.
func ArchiveURLs(baseURL string, req HistoryRequest, now time.Time) ([]string, error) {
	marketPath, err := marketPath(req.MarketType)
	if err != nil {
		return nil, err
	}
	if req.Symbol == "" || req.Timeframe == "" {
		return nil, fmt.Errorf("%w: symbol and timeframe are required", ErrUnsupported)
	}
	if !req.Start.Before(req.End) {
		return nil, fmt.Errorf("%w: start %s is not before end %s", ErrUnsupported, req.Start, req.End)
	}
	symbol := util.SymbolToBinance(req.Symbol)
	start, end, now := req.Start.UTC(), req.End.UTC(), now.UTC()

	archiveURL := func(bulk, period string) string {
		return fmt.Sprintf("%s/data/%s/%s/klines/%s/%s/%s-%s-%s%s",
			strings.TrimRight(baseURL, "/"), marketPath, bulk, symbol, req.Timeframe,
			symbol, req.Timeframe, period, common.ArchiveFileExt)
	}
	daily := func(from, to time.Time, out []string) []string {
		for d := truncateDay(from); d.Before(to); d = d.AddDate(0, 0, 1) {
			out = append(out, archiveURL(common.BulkDaily, d.Format(common.DateLayout)))
		}
		return out
	}

	var urls []string
	switch req.BulkSize {
	case common.BulkDaily:
		urls = daily(start, end, urls)
	case common.BulkMonthly:
		for m := truncateMonth(start); m.Before(end); m = m.AddDate(0, 1, 0) {
			next := m.AddDate(0, 1, 0)
			if !next.After(truncateMonth(now)) {
				urls = append(urls, archiveURL(common.BulkMonthly, m.Format("2006-01")))
				continue
			}
			from := m
			if start.After(from) {
				from = start
			}
			to := next
			if end.Before(to) {
				to = end
			}
			urls = daily(from, to, urls)
		}
	default:
		return nil, fmt.Errorf("%w: bulk size %q", ErrUnsupported, req.BulkSize)
	}
	return urls, nil
}

func marketPath(marketType string) (string, error) {
	switch marketType {
	case common.MarketSpot:
		return "spot", nil
	case common.MarketUM:
		return "futures/um", nil
	case common.MarketCM:
		return "futures/cm", nil
	}
	return "", fmt.Errorf("%w: market type %q", ErrUnsupported, marketType)
}

func (b *Binance) fetchArchive(ctx context.Context, u string) ([][]string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, false, fmt.Errorf("new request: %w", err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("binance archive %s: %w", u, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		log.Debug().Str("url", u).Msg("Archive not published, skipping")
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("%w: %s returned %d", ErrArchiveStatus, u, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read archive %s: %w", u, err)
	}
	rows, err := ReadArchive(body)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", u, err)
	}
	return rows, true, nil
}

// ReadArchive parses every CSV entry of a kline zip archive. Header lines are
// skipped and microsecond open/close times are converted to milliseconds.
func ReadArchive(data []byte) ([][]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArchiveMalformed, err)
	}
	var rows [][]string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || !strings.HasSuffix(f.Name, common.CacheFileExt) {
			continue
		}
		entryRows, err := readArchiveEntry(f)
		if err != nil {
			return nil, err
		}
		rows = append(rows, entryRows...)
	}
	return rows, nil
}

func readArchiveEntry(f *zip.File) ([][]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrArchiveMalformed, f.Name, err)
	}
	defer rc.Close()

	reader := csv.NewReader(io.LimitReader(rc, common.MaxArchiveEntryBytes))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrArchiveMalformed, f.Name, err)
	}

	rows := make([][]string, 0, len(records))
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		if _, err := strconv.ParseInt(strings.TrimSpace(rec[0]), 10, 64); err != nil {
			// futures archives carry a header line
			if i == 0 {
				continue
			}
			return nil, fmt.Errorf("%w: %s line %d: open time %q", ErrArchiveMalformed, f.Name, i+1, rec[0])
		}
		if len(rec) != len(models.KlineColumns) {
			return nil, fmt.Errorf("%w: %s line %d: %d columns, want %d",
				ErrArchiveMalformed, f.Name, i+1, len(rec), len(models.KlineColumns))
		}
		row := make([]string, len(rec))
		for j, cell := range rec {
			row[j] = strings.TrimSpace(cell)
		}
		row[0] = toMillis(row[0])
		row[6] = toMillis(row[6])
		rows = append(rows, row)
	}
	return rows, nil
}

func toMillis(cell string) string {
	v, err := strconv.ParseInt(cell, 10, 64)
	if err != nil || v < microsThreshold {
		return cell
	}
	return strconv.FormatInt(v/1000, 10)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
