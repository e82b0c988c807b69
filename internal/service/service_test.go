package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go-candleprep/internal/cache"
	"go-candleprep/internal/config"
	"go-candleprep/internal/exchanges"
	"go-candleprep/internal/prep"
	"go-candleprep/internal/util"
	"go-candleprep/pkg/models"
)

const firstOpenMs = int64(1500000000000) // 2017-07-14T02:40:00Z

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return filepath.Base(rawURL), nil
}

type fakeRetriever struct {
	rows    [][]string
	calls   int
	lastReq exchanges.HistoryRequest
}

func (r *fakeRetriever) DownloadHistory(_ context.Context, req exchanges.HistoryRequest, dst string) (int, error) {
	r.calls++
	r.lastReq = req
	if err := util.WriteCsvFile(dst, models.KlineColumns, r.rows); err != nil {
		return 0, err
	}
	return len(r.rows), nil
}

type countingConfirmer struct {
	calls int
	err   error
}

func (c *countingConfirmer) Confirm(context.Context) error {
	c.calls++
	return c.err
}

// tenRows is written newest first so the cleaner has to sort.
func tenRows() [][]string {
	rows := make([][]string, 0, 10)
	for i := 9; i >= 0; i-- {
		open := firstOpenMs + int64(i)*900_000
		high := 10 + float64(i)
		low := 6 + float64(i)
		rows = append(rows, []string{
			strconv.FormatInt(open, 10), "1",
			strconv.FormatFloat(high, 'f', -1, 64), strconv.FormatFloat(low, 'f', -1, 64),
			"1", "100", strconv.FormatInt(open+899_999, 10),
			"150", "10", "50", "75", "0",
		})
	}
	return rows
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.DataDir = dir
	cfg.WorkDir = dir
	cfg.Interactive = false
	cfg.HelperURL = "https://example.com/GetBinanceHistoricalData.py"
	cfg.StartDate = "2017-07-01"
	cfg.EndDate = "2017-08-01"
	cfg.Chart.Width, cfg.Chart.Height = 600, 400
	cfg.Chart.TickStride = 4
	return cfg
}

func TestRun_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	fetch := &fakeFetcher{}
	retr := &fakeRetriever{rows: tenRows()}
	confirm := &countingConfirmer{}
	var out bytes.Buffer

	s := NewService(cfg, WithFetcher(fetch), WithRetriever(retr), WithConfirmer(confirm), WithOutput(&out))
	res, err := s.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, fetch.calls)
	assert.Equal(t, 1, retr.calls)
	assert.Equal(t, 1, confirm.calls)
	assert.Equal(t, "ATOMUSDT", retr.lastReq.Symbol)
	assert.Equal(t, "15m", retr.lastReq.Timeframe)
	assert.Equal(t, time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC), retr.lastReq.Start)
	assert.Equal(t, time.Date(2017, 8, 1, 0, 0, 0, 0, time.UTC), retr.lastReq.End)

	require.Equal(t, 10, res.Frame.Len())
	assert.Equal(t, -1, res.Frame.Index(models.ColIgnore))
	assert.Equal(t, "2017-07-14T02:40:00Z", res.Frame.Rows[0][0])
	for i := 1; i < res.Frame.Len(); i++ {
		assert.Less(t, res.Frame.Rows[i-1][0], res.Frame.Rows[i][0])
	}

	require.Len(t, res.Mid, 10)
	assert.Equal(t, 8.0, res.Mid[0])
	assert.Equal(t, 17.0, res.Mid[9])
	assert.Equal(t, res.Mid[:5], res.Train)
	assert.Equal(t, res.Mid[5:], res.Test)

	for _, part := range [][][]float64{res.TrainScaled, res.TestScaled} {
		require.Len(t, part, 5)
		values := prep.Column(part)
		assert.Equal(t, 0.0, values[0])
		assert.Equal(t, 1.0, values[4])
		for _, v := range values {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 1.0)
		}
	}

	assert.Equal(t, filepath.Join(cfg.WorkDir, "mid_price.png"), res.ChartPath)
	info, err := os.Stat(res.ChartPath)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	printed := out.String()
	upper := strings.ToUpper(printed)
	assert.Contains(t, upper, "PARTITION")
	assert.Contains(t, upper, "OPEN TIME")
	assert.Contains(t, printed, "1.000000")
	assert.Contains(t, printed, "2017-07-14T02:40:00Z")
	assert.Contains(t, printed, "2017-07-14T03:40:00Z") // fifth row of the head
	assert.NotContains(t, printed, "2017-07-14T03:55:00Z")

	// second run hits the cache
	res2, err := NewService(cfg, WithFetcher(fetch), WithRetriever(retr), WithOutput(io.Discard)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, retr.calls)
	assert.Equal(t, res.Mid, res2.Mid)
}

func TestRun_HelperFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chart.Enabled = false
	fetch := &fakeFetcher{err: errors.New("HTTP request returned status code 404")}

	res, err := NewService(cfg, WithFetcher(fetch), WithRetriever(&fakeRetriever{rows: tenRows()}),
		WithOutput(io.Discard)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, fetch.calls)
	assert.Len(t, res.Mid, 10)
	assert.Empty(t, res.ChartPath)
}

func TestRun_EmptyHelperURLSkipsFetch(t *testing.T) {
	cfg := testConfig(t)
	cfg.HelperURL = ""
	cfg.Chart.Enabled = false
	fetch := &fakeFetcher{}

	_, err := NewService(cfg, WithFetcher(fetch), WithRetriever(&fakeRetriever{rows: tenRows()}),
		WithOutput(io.Discard)).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, fetch.calls)
}

func TestRun_TrainScaling(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chart.Enabled = false
	cfg.Scaling.Mode = "train"

	res, err := NewService(cfg, WithFetcher(&fakeFetcher{}), WithRetriever(&fakeRetriever{rows: tenRows()}),
		WithOutput(io.Discard)).Run(context.Background())
	require.NoError(t, err)
	// test mids 13..17 against train range 8..12
	assert.Equal(t, 1.25, res.TestScaled[0][0])
	assert.Equal(t, 2.25, res.TestScaled[4][0])
}

func TestRun_EmptyCache(t *testing.T) {
	cfg := testConfig(t)

	res, err := NewService(cfg, WithFetcher(&fakeFetcher{}), WithRetriever(&fakeRetriever{}),
		WithOutput(io.Discard)).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Mid)
	assert.Empty(t, res.TrainScaled)
	assert.Empty(t, res.TestScaled)
	assert.FileExists(t, res.ChartPath)
}

func TestRun_StageErrors(t *testing.T) {
	t.Run("timestamp", func(t *testing.T) {
		rows := tenRows()
		rows[3][0] = "not-a-time"
		_, err := NewService(testConfig(t), WithFetcher(&fakeFetcher{}), WithRetriever(&fakeRetriever{rows: rows}),
			WithOutput(io.Discard)).Run(context.Background())
		assert.ErrorIs(t, err, prep.ErrTimestampFormat)
		assert.True(t, strings.HasPrefix(err.Error(), "clean:"))
	})

	t.Run("price", func(t *testing.T) {
		rows := tenRows()
		rows[0][2] = "high"
		_, err := NewService(testConfig(t), WithFetcher(&fakeFetcher{}), WithRetriever(&fakeRetriever{rows: rows}),
			WithOutput(io.Discard)).Run(context.Background())
		assert.ErrorIs(t, err, prep.ErrPriceFormat)
	})

	t.Run("confirm", func(t *testing.T) {
		confirmErr := errors.New("stdin closed")
		_, err := NewService(testConfig(t), WithFetcher(&fakeFetcher{}), WithRetriever(&fakeRetriever{rows: tenRows()}),
			WithConfirmer(&countingConfirmer{err: confirmErr}), WithOutput(io.Discard)).Run(context.Background())
		assert.ErrorIs(t, err, confirmErr)
	})

	t.Run("malformed cache", func(t *testing.T) {
		cfg := testConfig(t)
		path := cache.Path(cfg.DataDir, cfg.Symbol, cfg.Timeframe)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2,3\n"), 0o644))
		retr := &fakeRetriever{rows: tenRows()}

		_, err := NewService(cfg, WithFetcher(&fakeFetcher{}), WithRetriever(retr),
			WithOutput(io.Discard)).Run(context.Background())
		assert.ErrorIs(t, err, cache.ErrMalformedCSV)
		assert.Zero(t, retr.calls)
	})
}

func TestRun_ShowFailureIsNotFatal(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chart.Show = true
	s := NewService(cfg, WithFetcher(&fakeFetcher{}), WithRetriever(&fakeRetriever{rows: tenRows()}), WithOutput(io.Discard))
	var shown string
	s.show = func(path string) error {
		shown = path
		return errors.New("no display")
	}

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, res.ChartPath, shown)
}

func TestNewService_ConfirmerFromConfig(t *testing.T) {
	cfg := testConfig(t)
	assert.IsType(t, NoopConfirmer{}, NewService(cfg).confirmer)

	cfg.Interactive = true
	assert.IsType(t, &StdinConfirmer{}, NewService(cfg).confirmer)
}

func TestStdinConfirmer(t *testing.T) {
	var out bytes.Buffer
	c := NewStdinConfirmer(strings.NewReader("\n"), &out)
	require.NoError(t, c.Confirm(context.Background()))
	assert.Equal(t, "Press Enter to continue...\n", out.String())

	require.NoError(t, NewStdinConfirmer(strings.NewReader(""), io.Discard).Confirm(context.Background()))

	pr, pw := io.Pipe()
	defer pw.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewStdinConfirmer(pr, io.Discard).Confirm(ctx), context.Canceled)
}
