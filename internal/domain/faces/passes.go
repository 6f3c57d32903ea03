package faces

import "github.com/forPelevin/speakercut/internal/types"

type Cascade string

const (
	Frontal Cascade = "frontal"
	Profile Cascade = "profile"
)

// Mode selects which passes run and which filter applies.
type Mode int

const (
	// ModePlain runs the multi-speaker passes but stops at the first hit.
	ModePlain Mode = iota
	ModeSingle
	ModeMulti
	// ModeEnhanced is the permissive retry used when fewer speakers than
	// expected were found.
	ModeEnhanced
)

func (m Mode) String() string {
	switch m {
	case ModeSingle:
		return "single"
	case ModeMulti:
		return "multi"
	case ModeEnhanced:
		return "enhanced"
	default:
		return "plain"
	}
}

// ModeFor picks the detection mode from the audio speaker estimate.
// estimated <= 0 means no audio hint was available.
func ModeFor(estimated int) Mode {
	switch {
	case estimated <= 0:
		return ModePlain
	case estimated == 1:
		return ModeSingle
	default:
		return ModeMulti
	}
}

// Pass is one cascade run over a frame.
type Pass struct {
	Cascade      Cascade
	ScaleFactor  float64
	MinNeighbors int
	MinSize      int
}

var (
	singlePasses = []Pass{
		{Cascade: Frontal, ScaleFactor: 1.05, MinNeighbors: 4, MinSize: 120},
		{Cascade: Frontal, ScaleFactor: 1.03, MinNeighbors: 3, MinSize: 100},
	}
	multiPasses = []Pass{
		{Cascade: Frontal, ScaleFactor: 1.05, MinNeighbors: 3, MinSize: 100},
		{Cascade: Frontal, ScaleFactor: 1.03, MinNeighbors: 2, MinSize: 80},
		{Cascade: Profile, ScaleFactor: 1.05, MinNeighbors: 3, MinSize: 100},
		{Cascade: Frontal, ScaleFactor: 1.02, MinNeighbors: 1, MinSize: 60},
	}
	enhancedPasses = []Pass{
		{Cascade: Frontal, ScaleFactor: 1.01, MinNeighbors: 1, MinSize: 50},
	}
)

func PassesFor(m Mode) []Pass {
	switch m {
	case ModeSingle:
		return singlePasses
	case ModeEnhanced:
		return enhancedPasses
	default:
		return multiPasses
	}
}

// Accumulates reports whether every pass runs. Otherwise passes stop at
// the first one that keeps a face.
func (m Mode) Accumulates() bool { return m == ModeMulti }

// Filter rejects boxes that are too small, too large or badly shaped to be a
// speaker's face. Ratio bounds are exclusive. Zero aspect bounds disable the
// aspect check.
type Filter struct {
	MinRatio  float64
	MaxRatio  float64
	MinAspect float64
	MaxAspect float64
	MinEdge   int
}

func FilterFor(m Mode) Filter {
	switch m {
	case ModeSingle:
		return Filter{MinRatio: 0.05, MaxRatio: 0.5, MinAspect: 0.5, MaxAspect: 2.0, MinEdge: 120}
	case ModeMulti:
		return Filter{MinRatio: 0.03, MaxRatio: 0.5, MinAspect: 0.5, MaxAspect: 2.0, MinEdge: 100}
	case ModeEnhanced:
		return Filter{MinRatio: 0.02, MaxRatio: 0.6, MinEdge: 50}
	default:
		return Filter{MinRatio: 0.05, MaxRatio: 0.5, MinAspect: 0.5, MaxAspect: 2.0, MinEdge: 150}
	}
}

func (f Filter) Keep(d types.FaceDetection, frameW, frameH int) bool {
	if d.W < f.MinEdge || d.H < f.MinEdge {
		return false
	}
	r := d.AreaRatio(frameW, frameH)
	if r <= f.MinRatio || r >= f.MaxRatio {
		return false
	}
	if f.MinAspect > 0 || f.MaxAspect > 0 {
		if d.H == 0 {
			return false
		}
		aspect := float64(d.W) / float64(d.H)
		if aspect <= f.MinAspect || aspect >= f.MaxAspect {
			return false
		}
	}
	return true
}
