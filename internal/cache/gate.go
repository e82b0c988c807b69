package cache

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-candleprep/internal/common"
	"go-candleprep/internal/exchanges"
	"go-candleprep/internal/util"
	"go-candleprep/pkg/models"
)

var ErrMalformedCSV = errors.New("malformed candle csv")

// Retriever populates a cache file. exchanges.Binance satisfies it.
type Retriever interface {
	DownloadHistory(ctx context.Context, req exchanges.HistoryRequest, dst string) (int, error)
}

// Request describes one symbol/timeframe cache entry and the range used to fill it.
type Request struct {
	MarketType string
	BulkSize   string
	Symbol     string
	Timeframe  string
	Start      time.Time
	End        time.Time
}

// Gate returns the cached candle table, downloading it first when absent.
type Gate struct {
	dir       string
	retriever Retriever
	logger    *util.Logger
}

func NewGate(dir string, retriever Retriever) *Gate {
	return &Gate{
		dir:       dir,
		retriever: retriever,
		logger:    util.NewLogger("cache"),
	}
}

// Path is <dir>/<symbol>/<symbol>-<timeframe>.csv.
func Path(dir, symbol, timeframe string) string {
	return filepath.Join(dir, symbol, symbol+"-"+timeframe+common.CacheFileExt)
}

// Load returns the table for req. A missing cache file is populated through the
// retriever and then read back from disk, so the caller always gets a table.
func (g *Gate) Load(ctx context.Context, req Request) (*models.Frame, error) {
	path := Path(g.dir, req.Symbol, req.Timeframe)

	if util.Exists(path) {
		g.logger.Info("File already exists. Loading data from CSV", "path", path)
		return ReadCSV(path)
	}

	g.logger.Info("Cache file missing, retrieving history", "path", path)
	n, err := g.retriever.DownloadHistory(ctx, exchanges.HistoryRequest{
		MarketType: req.MarketType,
		BulkSize:   req.BulkSize,
		Symbol:     req.Symbol,
		Timeframe:  req.Timeframe,
		Start:      req.Start,
		End:        req.End,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("retrieve history: %w", err)
	}
	if !util.Exists(path) {
		return nil, fmt.Errorf("retrieve history: %s not created", path)
	}
	g.logger.Info("History saved", "path", path, "rows", n)
	return ReadCSV(path)
}

// ReadCSV loads a cache file. The first record is the header; every row must
// have as many cells as the header.
func ReadCSV(path string) (*models.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	defer f.Close()
	return DecodeCSV(f)
}

func DecodeCSV(r io.Reader) (*models.Frame, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedCSV)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	for i, col := range header {
		header[i] = strings.TrimSpace(col)
	}
	// the header fixes FieldsPerRecord for the rest of the file
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}
	return &models.Frame{Columns: header, Rows: rows}, nil
}
