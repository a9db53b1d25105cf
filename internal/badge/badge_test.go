package badge

import (
	"bytes"
	"image/png"
	"math"
	"strings"
	"testing"

	"github.com/mrcode/glucoshare/internal/models"
	"github.com/mrcode/glucoshare/internal/tendency"
)

func decode(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRender(t *testing.T) {
	r := NewRenderer(models.DefaultSettings(), 0)

	status := &models.GlucoseStatus{
		Value:     125,
		ValueMmol: 6.9,
		Tendency:  string(tendency.Rising),
		Status:    models.StatusNormal,
	}

	data, err := r.Render(status)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	w, h := decode(t, data)
	if w != DefaultSize || h != DefaultSize {
		t.Errorf("size = %dx%d, want %dx%d", w, h, DefaultSize, DefaultSize)
	}
}

func TestRender_Sizes(t *testing.T) {
	tests := []struct {
		size int
		want int
	}{
		{32, 32},
		{128, 128},
		{8, DefaultSize},
		{4096, DefaultSize},
	}

	for _, tt := range tests {
		r := NewRenderer(models.DefaultSettings(), 64).WithSize(tt.size)
		data, err := r.Render(&models.GlucoseStatus{Value: 250, Tendency: string(tendency.LowTwoArrowsDown)})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if w, _ := decode(t, data); w != tt.want {
			t.Errorf("size %d rendered %d wide, want %d", tt.size, w, tt.want)
		}
	}
}

func TestRender_PlaceholderAndError(t *testing.T) {
	r := NewRenderer(models.DefaultSettings(), DefaultSize)

	if data, err := r.Render(nil); err != nil || len(data) == 0 {
		t.Errorf("Render(nil) = %d bytes, %v", len(data), err)
	}
	if data, err := r.RenderError(); err != nil || len(data) == 0 {
		t.Errorf("RenderError() = %d bytes, %v", len(data), err)
	}
}

func TestRender_MmolL(t *testing.T) {
	settings := models.DefaultSettings()
	settings.Unit = models.UnitMmolL
	r := NewRenderer(settings, DefaultSize)

	data, err := r.Render(&models.GlucoseStatus{Value: 180, ValueMmol: 10.0, Tendency: string(tendency.Stable)})
	if err != nil || len(data) == 0 {
		t.Fatalf("Render() = %d bytes, %v", len(data), err)
	}
}

func TestStatusColor(t *testing.T) {
	tests := []struct {
		status models.GlucoseStatus
		want   string
	}{
		{models.GlucoseStatus{Status: models.StatusUrgentLow}, colorUrgent},
		{models.GlucoseStatus{Status: models.StatusUrgentHigh}, colorUrgent},
		{models.GlucoseStatus{Status: models.StatusLow}, colorLow},
		{models.GlucoseStatus{Status: models.StatusHigh}, colorHigh},
		{models.GlucoseStatus{Status: models.StatusNormal}, colorNormal},
		{models.GlucoseStatus{Status: models.StatusHigh, IsStale: true}, colorStale},
	}

	for _, tt := range tests {
		if got := statusColor(&tt.status); got != tt.want {
			t.Errorf("statusColor(%+v) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	r, g, b := parseHexColor("#4ade80")
	if r != 0x4a || g != 0xde || b != 0x80 {
		t.Errorf("parseHexColor = %d,%d,%d", r, g, b)
	}

	r, g, b = parseHexColor("invalid")
	if r != 0 || g != 0 || b != 0 {
		t.Errorf("parseHexColor(invalid) = %d,%d,%d, want zeros", r, g, b)
	}
}

func TestArrowsCoverEveryTrend(t *testing.T) {
	labels := []tendency.Label{
		tendency.HighDoubleUp, tendency.High, tendency.Rising, tendency.Stable,
		tendency.Dropping, tendency.Low, tendency.LowTwoArrowsDown,
	}
	for _, l := range labels {
		if _, ok := arrows[l]; !ok {
			t.Errorf("no arrow for %q", l)
		}
	}
	if _, ok := arrows[tendency.NotEnoughData]; ok {
		t.Error("not enough data should draw no arrow")
	}
}

func TestSparkline(t *testing.T) {
	values := []float64{100, 110, 120, 130, 140, 150, 140, 130, 120, 110, 100}

	chart := Sparkline(values, 6)
	lines := strings.Split(chart, "\n")

	// max label, six rows, min label
	if len(lines) != 8 {
		t.Fatalf("lines = %d, want 8", len(lines))
	}
	if lines[0] != "Max: 160" || lines[7] != "Min: 90" {
		t.Errorf("labels = %q / %q", lines[0], lines[7])
	}
	for i, row := range lines[1:7] {
		if len([]rune(row)) != len(values) {
			t.Errorf("row %d has %d columns, want %d", i, len([]rune(row)), len(values))
		}
		for _, c := range row {
			if !strings.ContainsRune(string(blocks), c) {
				t.Errorf("unexpected rune %q in row %d", c, i)
			}
		}
	}

	// bottom row of the peak column is full
	if []rune(lines[6])[5] != '⣿' {
		t.Errorf("peak column bottom = %q, want full block", []rune(lines[6])[5])
	}

	t.Logf("Generated Chart:\n%s", chart)
}

func TestSparkline_SineWave(t *testing.T) {
	var values []float64
	for i := 0; i < 24; i++ {
		values = append(values, 100+50*math.Sin(float64(i)*2*math.Pi/24))
	}

	if chart := Sparkline(values, 10); chart == "" {
		t.Fatal("Chart empty")
	}
}

func TestSparkline_TooShort(t *testing.T) {
	if Sparkline(nil, 5) != "" || Sparkline([]float64{100}, 5) != "" || Sparkline([]float64{1, 2}, 0) != "" {
		t.Error("Expected empty sparkline")
	}
}
