package chart

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"go-candleprep/internal/common"
	"go-candleprep/internal/util"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrBadOptions     = errors.New("invalid chart options")
	ErrLengthMismatch = errors.New("times and values differ in length")
)

// pixel margins around the plot area; the bottom one leaves room for rotated tick labels
const (
	marginLeft   = 130
	marginRight  = 50
	marginTop    = 60
	marginBottom = 230
	yTicks       = 5
	tickLen      = 8
	labelLayout  = "2006-01-02 15:04"
)

type Options struct {
	Width        int
	Height       int
	TickStride   int
	TickRotation float64 // degrees, counter-clockwise
	FontSize     float64
	Title        string
	XLabel       string
	YLabel       string
}

func DefaultOptions() Options {
	return Options{
		Width:        common.DefaultChartWidth,
		Height:       common.DefaultChartHeight,
		TickStride:   common.DefaultTickStride,
		TickRotation: common.DefaultTickRotation,
		FontSize:     common.DefaultFontSize,
		XLabel:       "Open time",
		YLabel:       "Mid Price",
	}
}

var loadFont = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

// TickIndices returns 0, stride, 2*stride, ... below n.
func TickIndices(n, stride int) []int {
	if n <= 0 {
		return []int{}
	}
	if stride <= 0 {
		stride = common.DefaultTickStride
	}
	ticks := make([]int, 0, (n-1)/stride+1)
	for i := 0; i < n; i += stride {
		ticks = append(ticks, i)
	}
	return ticks
}

// Render draws values as a line against their row index and writes a PNG to w.
// Every TickStride-th row gets an x tick labeled with its time. An empty series
// draws the axes only.
func Render(w io.Writer, times []time.Time, values []float64, opts Options) error {
	if len(times) != len(values) {
		return fmt.Errorf("%w: %d times, %d values", ErrLengthMismatch, len(times), len(values))
	}
	if opts.Width <= marginLeft+marginRight || opts.Height <= marginTop+marginBottom {
		return fmt.Errorf("%w: %dx%d is too small", ErrBadOptions, opts.Width, opts.Height)
	}
	if opts.FontSize <= 0 {
		opts.FontSize = DefaultOptions().FontSize
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	fontFace, err := loadFont()
	if err != nil {
		util.NewLogger("chart").Warn(common.ErrCodeChartRenderFailed, common.ErrMsgChartRenderFailed,
			"Load font failed, using default face", "error", err.Error())
	}

	left, top := float64(marginLeft), float64(marginTop)
	right, bottom := float64(opts.Width-marginRight), float64(opts.Height-marginBottom)

	lo, hi := 0.0, 1.0
	if len(values) > 0 {
		lo, hi = floats.Min(values), floats.Max(values)
	}
	if hi == lo {
		lo, hi = lo-1, hi+1
	}
	xAt := func(i int) float64 {
		if len(values) < 2 {
			return (left + right) / 2
		}
		return left + float64(i)/float64(len(values)-1)*(right-left)
	}
	yAt := func(v float64) float64 {
		return bottom - (v-lo)/(hi-lo)*(bottom-top)
	}

	// axes
	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1.5)
	dc.DrawLine(left, top, left, bottom)
	dc.DrawLine(left, bottom, right, bottom)
	dc.Stroke()

	setFontFace(dc, fontFace, opts.FontSize*0.75)
	for k := 0; k <= yTicks; k++ {
		v := lo + float64(k)/yTicks*(hi-lo)
		y := yAt(v)
		dc.DrawLine(left-tickLen, y, left, y)
		dc.Stroke()
		dc.DrawStringAnchored(formatValue(v, hi-lo), left-tickLen-4, y, 1, 0.5)
	}

	for _, i := range TickIndices(len(values), opts.TickStride) {
		x := xAt(i)
		dc.DrawLine(x, bottom, x, bottom+tickLen)
		dc.Stroke()
		dc.Push()
		dc.Translate(x, bottom+tickLen+4)
		dc.Rotate(-gg.Radians(opts.TickRotation))
		dc.DrawStringAnchored(times[i].UTC().Format(labelLayout), 0, 0, 1, 0.5)
		dc.Pop()
	}

	// series
	dc.SetRGB255(31, 119, 180)
	dc.SetLineWidth(1.2)
	switch len(values) {
	case 0:
	case 1:
		dc.DrawCircle(xAt(0), yAt(values[0]), 2.5)
		dc.Fill()
	default:
		dc.MoveTo(xAt(0), yAt(values[0]))
		for i := 1; i < len(values); i++ {
			dc.LineTo(xAt(i), yAt(values[i]))
		}
		dc.Stroke()
	}

	// labels
	dc.SetRGB(0, 0, 0)
	setFontFace(dc, fontFace, opts.FontSize)
	dc.DrawStringAnchored(opts.XLabel, (left+right)/2, float64(opts.Height)-opts.FontSize, 0.5, 0.5)
	dc.Push()
	dc.Translate(opts.FontSize, (top+bottom)/2)
	dc.Rotate(-math.Pi / 2)
	dc.DrawStringAnchored(opts.YLabel, 0, 0, 0.5, 0.5)
	dc.Pop()
	if opts.Title != "" {
		setFontFace(dc, fontFace, opts.FontSize*1.2)
		dc.DrawStringAnchored(opts.Title, float64(opts.Width)/2, top/2, 0.5, 0.5)
	}

	return png.Encode(w, dc.Image())
}

// Save renders to path, creating its directory when needed.
func Save(path string, times []time.Time, values []float64, opts Options) error {
	if err := util.EnsureDir(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart: %w", err)
	}
	if err := Render(f, times, values, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Show opens path with the desktop's default image viewer without waiting for it.
func Show(path string) error {
	name, args := viewerCommand(runtime.GOOS, path)
	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("open %s with %s: %w", path, name, err)
	}
	return nil
}

func viewerCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

func setFontFace(dc *gg.Context, fontFace *opentype.Font, size float64) {
	if fontFace == nil {
		return
	}
	face, err := opentype.NewFace(fontFace, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		util.NewLogger("chart").Warn(common.ErrCodeChartRenderFailed, common.ErrMsgChartRenderFailed,
			"Create font face failed", "error", err.Error())
		return
	}
	dc.SetFontFace(face)
}

// formatValue picks enough decimals to tell neighbouring y ticks apart.
func formatValue(v, span float64) string {
	prec := 2
	if step := span / yTicks; step > 0 && step < 0.01 {
		prec = int(math.Ceil(-math.Log10(step))) + 1
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
