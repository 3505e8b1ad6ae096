// Package quality grades capture conditions for a scan.
//
// The analysis is a heuristic gate on lighting and motion. It does not detect
// faces: whether the subject is in frame is drawn from an injected random
// source, which tests script to force each outcome.
package quality

import (
	"image"

	"codeberg.org/mutker/vitalscan/internal/capture"
)

type ImageQuality string

const (
	Poor ImageQuality = "poor"
	Fair ImageQuality = "fair"
	Good ImageQuality = "good"
)

// Message is a user-facing string key.
type Message string

const (
	MessagePoorLight    Message = "poor_light"
	MessageKeepStill    Message = "keep_still"
	MessageScanning     Message = "scanning"
	MessageReady        Message = "ready"
	MessageTooFar       Message = "too_far"
	MessageNotCentered  Message = "not_centered"
	MessageLookStraight Message = "look_straight"
	MessageNoSignal     Message = "no_signal"
)

// positioningIssues are drawn uniformly when the subject is reported out of frame.
var positioningIssues = []Message{MessageTooFar, MessageNotCentered, MessageLookStraight}

// Analysis is the quality signal for one sampling tick.
type Analysis struct {
	Brightness   float64      `json:"brightness"`
	MotionLevel  float64      `json:"motion_level"`
	FaceDetected bool         `json:"face_detected"`
	FaceInFrame  bool         `json:"face_in_frame"`
	ImageQuality ImageQuality `json:"image_quality"`
	Message      Message      `json:"message"`
}

// Usable reports whether a scan may start on this sample.
func (a Analysis) Usable() bool {
	return a.FaceDetected && a.FaceInFrame
}

// Degraded reports whether progress must freeze on this sample.
func (a Analysis) Degraded() bool {
	return !(a.Usable() && a.ImageQuality != Poor)
}

// NoSignal is the analysis recorded when the device produced no frame in time.
func NoSignal() Analysis {
	return Analysis{ImageQuality: Poor, Message: MessageNoSignal}
}

// Rand is the random source behind the in-frame draw. *math/rand.Rand
// satisfies it.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

type Analyzer struct {
	cfg Config
	rnd Rand
}

func NewAnalyzer(cfg Config, rnd Rand) *Analyzer {
	return &Analyzer{cfg: cfg, rnd: rnd}
}

// Analyze grades frame. previous is the frame from the prior tick, or nil on
// the first tick; scanning selects the message shown for a good sample.
func (a *Analyzer) Analyze(frame, previous *capture.Frame, scanning bool) Analysis {
	var prevImg *image.RGBA
	if previous != nil {
		prevImg = previous.Image
	}

	res := Analysis{
		Brightness:  Brightness(frame.Image, a.cfg.SampleStride),
		MotionLevel: Motion(frame.Image, prevImg, a.cfg.SampleStride),
	}

	switch {
	case res.Brightness < a.cfg.PoorLightThreshold:
		res.ImageQuality = Poor
		res.Message = MessagePoorLight
		return res
	case res.MotionLevel > a.cfg.MotionThreshold:
		res.FaceDetected = true
		res.ImageQuality = a.lightQuality(res.Brightness)
		res.Message = MessageKeepStill
		return res
	}

	res.FaceDetected = true
	res.ImageQuality = a.lightQuality(res.Brightness)

	if a.rnd.Float64() < a.cfg.FaceInFrameProbability {
		res.FaceInFrame = true
		res.Message = MessageReady
		if scanning {
			res.Message = MessageScanning
		}
		return res
	}

	res.Message = positioningIssues[a.rnd.Intn(len(positioningIssues))]

	return res
}

func (a *Analyzer) lightQuality(brightness float64) ImageQuality {
	if brightness > a.cfg.GoodLightThreshold {
		return Good
	}
	return Fair
}
