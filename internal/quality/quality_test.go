package quality_test

import (
	"image"
	"testing"
	"time"

	"codeberg.org/mutker/vitalscan/internal/capture"
	"codeberg.org/mutker/vitalscan/internal/quality"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedRand replays fixed draws.
type scriptedRand struct {
	floats []float64
	ints   []int
}

func (r *scriptedRand) Float64() float64 {
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRand) Intn(n int) int {
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v % n
}

func frame(level uint8) *capture.Frame {
	return capture.Uniform(40, 30, level, time.Now())
}

func TestBrightnessOfUniformFrame(t *testing.T) {
	assert.InDelta(t, 120, quality.Brightness(frame(120).Image, 7), 0.001)
	assert.InDelta(t, 0, quality.Brightness(frame(0).Image, 1), 0.001)
}

func TestBrightnessUsesLumaWeights(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	copy(img.Pix, []uint8{255, 0, 0, 255, 0, 0, 255, 255})

	assert.InDelta(t, (0.299*255+0.114*255)/2, quality.Brightness(img, 1), 0.001)
}

func TestMotion(t *testing.T) {
	assert.Zero(t, quality.Motion(frame(100).Image, nil, 4), "first sample has no motion")
	assert.InDelta(t, 30, quality.Motion(frame(130).Image, frame(100).Image, 4), 0.001)
	assert.InDelta(t, 30, quality.Motion(frame(100).Image, frame(130).Image, 4), 0.001)

	other := capture.Uniform(10, 10, 0, time.Now())
	assert.Zero(t, quality.Motion(frame(100).Image, other.Image, 4), "geometry change resets motion")
}

func TestAnalyzeGatingRules(t *testing.T) {
	cfg := quality.DefaultConfig()

	tests := []struct {
		name     string
		cur      *capture.Frame
		prev     *capture.Frame
		scanning bool
		rnd      *scriptedRand
		want     quality.Analysis
	}{
		{
			name: "poor light",
			cur:  frame(20),
			rnd:  &scriptedRand{},
			want: quality.Analysis{Brightness: 20, ImageQuality: quality.Poor, Message: quality.MessagePoorLight},
		},
		{
			name: "motion",
			cur:  frame(150),
			prev: frame(90),
			rnd:  &scriptedRand{},
			want: quality.Analysis{
				Brightness: 150, MotionLevel: 60, FaceDetected: true,
				ImageQuality: quality.Good, Message: quality.MessageKeepStill,
			},
		},
		{
			name: "in frame, ready, fair light",
			cur:  frame(80),
			rnd:  &scriptedRand{floats: []float64{0.1}},
			want: quality.Analysis{
				Brightness: 80, FaceDetected: true, FaceInFrame: true,
				ImageQuality: quality.Fair, Message: quality.MessageReady,
			},
		},
		{
			name:     "in frame while scanning, good light",
			cur:      frame(140),
			prev:     frame(141),
			scanning: true,
			rnd:      &scriptedRand{floats: []float64{0.89}},
			want: quality.Analysis{
				Brightness: 140, MotionLevel: 1, FaceDetected: true, FaceInFrame: true,
				ImageQuality: quality.Good, Message: quality.MessageScanning,
			},
		},
		{
			name: "too far",
			cur:  frame(140),
			rnd:  &scriptedRand{floats: []float64{0.95}, ints: []int{0}},
			want: quality.Analysis{
				Brightness: 140, FaceDetected: true,
				ImageQuality: quality.Good, Message: quality.MessageTooFar,
			},
		},
		{
			name: "not centered",
			cur:  frame(140),
			rnd:  &scriptedRand{floats: []float64{0.9}, ints: []int{1}},
			want: quality.Analysis{
				Brightness: 140, FaceDetected: true,
				ImageQuality: quality.Good, Message: quality.MessageNotCentered,
			},
		},
		{
			name: "look straight",
			cur:  frame(140),
			rnd:  &scriptedRand{floats: []float64{0.99}, ints: []int{2}},
			want: quality.Analysis{
				Brightness: 140, FaceDetected: true,
				ImageQuality: quality.Good, Message: quality.MessageLookStraight,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := quality.NewAnalyzer(cfg, tt.rnd).Analyze(tt.cur, tt.prev, tt.scanning)

			assert.InDelta(t, tt.want.Brightness, got.Brightness, 0.001)
			assert.InDelta(t, tt.want.MotionLevel, got.MotionLevel, 0.001)
			got.Brightness, got.MotionLevel = tt.want.Brightness, tt.want.MotionLevel
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDegraded(t *testing.T) {
	good := quality.Analysis{FaceDetected: true, FaceInFrame: true, ImageQuality: quality.Fair}
	assert.True(t, good.Usable())
	assert.False(t, good.Degraded())

	poor := good
	poor.ImageQuality = quality.Poor
	assert.True(t, poor.Degraded())

	outOfFrame := good
	outOfFrame.FaceInFrame = false
	assert.True(t, outOfFrame.Degraded())

	assert.True(t, quality.NoSignal().Degraded())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, quality.DefaultConfig().Validate())

	cfg := quality.DefaultConfig()
	cfg.GoodLightThreshold = cfg.PoorLightThreshold
	assert.Error(t, cfg.Validate())

	cfg = quality.DefaultConfig()
	cfg.FaceInFrameProbability = 1.5
	assert.Error(t, cfg.Validate())

	cfg = quality.DefaultConfig()
	cfg.SampleStride = 0
	assert.Error(t, cfg.Validate())
}
