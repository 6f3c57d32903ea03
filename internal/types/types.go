package types

import (
	"slices"
	"time"
)

// Output frame of every rendered clip (9:16).
const (
	TargetWidth  = 1080
	TargetHeight = 1920
)

type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// Slice returns the part of the transcript overlapping [start, end), shifted so
// that start becomes zero. Segments and words are clamped to the window.
func (t Transcript) Slice(start, end float64) Transcript {
	var out Transcript
	for _, s := range t.Segments {
		if s.End <= start || s.Start >= end {
			continue
		}
		ns := Segment{
			Start: clampSec(s.Start, start, end) - start,
			End:   clampSec(s.End, start, end) - start,
			Text:  s.Text,
		}
		for _, w := range s.Words {
			if w.End <= start || w.Start >= end {
				continue
			}
			ns.Words = append(ns.Words, Word{
				Start: clampSec(w.Start, start, end) - start,
				End:   clampSec(w.End, start, end) - start,
				Word:  w.Word,
			})
		}
		out.Segments = append(out.Segments, ns)
	}
	return out
}

func clampSec(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type MediaInfo struct {
	Width    int
	Height   int
	Duration time.Duration
}

// Candidate is a fixed-length window of the source scored for hook potential.
type Candidate struct {
	Start time.Duration
	End   time.Duration
	Text  string

	InfoScore float64
	HookScore float64
}

// FaceDetection is a single filtered face box in source-frame pixels.
type FaceDetection struct {
	X, Y, W, H  int
	FrameOffset float64
}

func (d FaceDetection) Area() int { return d.W * d.H }

func (d FaceDetection) AreaRatio(frameW, frameH int) float64 {
	if frameW <= 0 || frameH <= 0 {
		return 0
	}
	return float64(d.Area()) / float64(frameW*frameH)
}

func (d FaceDetection) Center() (float64, float64) {
	return float64(d.X) + float64(d.W)/2, float64(d.Y) + float64(d.H)/2
}

type Rect struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

type Speaker struct {
	ID       int    `json:"id"`
	CenterX  int    `json:"center_x"`
	CenterY  int    `json:"center_y"`
	FaceSize int    `json:"face_size"`
	Position string `json:"position"`
	CropZone Rect   `json:"crop_zone"`
}

// CaptionCue times are seconds relative to the clip start.
type CaptionCue struct {
	Index   int     `json:"index"`
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start_time"`
	End     float64 `json:"end_time"`
	Text    string  `json:"text"`
}

type ScheduledSegment struct {
	Start     float64 `json:"start"`
	Duration  float64 `json:"duration"`
	SpeakerID int     `json:"speaker_id"`
}

type ClipArtifact struct {
	RunID            string             `json:"run_id"`
	Source           string             `json:"source"`
	StartSec         float64            `json:"start_sec"`
	Path             string             `json:"path"`
	BasePath         string             `json:"base_path,omitempty"`
	SubtitlePath     string             `json:"subtitle_path,omitempty"`
	SpeakersDetected int                `json:"speakers_detected"`
	DynamicCropping  bool               `json:"dynamic_cropping"`
	Duration         float64            `json:"duration"`
	Segments         []ScheduledSegment `json:"segments"`
	Captions         []CaptionCue       `json:"captions"`
	Degraded         bool               `json:"degraded"`
	Fallbacks        []string           `json:"fallbacks,omitempty"`
	CaptionUpdates   int                `json:"caption_updates,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at,omitempty"`
}

// AddFallback marks the artifact degraded and records why. Each reason is
// recorded once.
func (a *ClipArtifact) AddFallback(reason string) {
	a.Degraded = true
	if !slices.Contains(a.Fallbacks, reason) {
		a.Fallbacks = append(a.Fallbacks, reason)
	}
}

type StyleOptions struct {
	Position        string            `json:"position" yaml:"position" mapstructure:"position"`
	PositionPercent int               `json:"position_percent" yaml:"position_percent" mapstructure:"position_percent"`
	SpeakerColors   map[string]string `json:"speaker_colors" yaml:"speaker_colors" mapstructure:"speaker_colors"`
	FontName        string            `json:"font_name" yaml:"font_name" mapstructure:"font_name"`
	FontSize        int               `json:"font_size" yaml:"font_size" mapstructure:"font_size"`
}

func DefaultStyle() StyleOptions {
	return StyleOptions{
		Position:        "bottom",
		PositionPercent: 80,
		SpeakerColors: map[string]string{
			"1": "#FF4500",
			"2": "#00BFFF",
			"3": "#00FF88",
		},
		FontName: "Inter",
		FontSize: 78,
	}
}
