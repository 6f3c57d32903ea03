package speakers

import (
	"math"
	"sort"

	"github.com/forPelevin/speakercut/internal/domain/crop"
	"github.com/forPelevin/speakercut/internal/types"
)

const (
	// Both normalized axes must be within this distance to merge.
	spatialThreshold = 0.15
	// Faces smaller than 40% of the seed are a different (background) person.
	minSizeRatio = 0.4
	// A lone detection is trusted only when it dominates the frame.
	soloAreaRatio = 0.10
	maxSpeakers   = 3
)

type face struct {
	det    types.FaceDetection
	cx, cy float64
	nx, ny float64
	size   float64
}

// Cluster groups detections into at most three speakers ordered by how
// primary they look: central and large first. It never returns an empty slice.
func Cluster(dets []types.FaceDetection, width, height int) []types.Speaker {
	if len(dets) == 0 || width <= 0 || height <= 0 {
		return DefaultSpeakers(width, height)
	}

	clusters := group(dets, width, height)
	valid := make([][]face, 0, len(clusters))
	for _, c := range clusters {
		switch {
		case len(c) >= 2:
			valid = append(valid, c)
		case len(c) == 1 && c[0].det.AreaRatio(width, height) > soloAreaRatio:
			valid = append(valid, c)
		}
	}
	if len(valid) == 0 {
		valid = clusters
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return weight(valid[i]) > weight(valid[j])
	})
	if len(valid) > maxSpeakers {
		valid = valid[:maxSpeakers]
	}

	out := make([]types.Speaker, 0, len(valid))
	for _, c := range valid {
		total := weight(c)
		if total <= 0 {
			continue
		}
		var sx, sy float64
		for _, f := range c {
			sx += f.cx * f.size
			sy += f.cy * f.size
		}
		cx := int(sx / total)
		cy := int(sy / total)
		pos := crop.Classify(cx, width)
		out = append(out, types.Speaker{
			CenterX:  cx,
			CenterY:  cy,
			FaceSize: int(total / float64(len(c))),
			Position: pos,
			CropZone: crop.Zone(cx, width, height, pos),
		})
	}
	if len(out) == 0 {
		return DefaultSpeakers(width, height)
	}

	frameArea := float64(width * height)
	rank := func(s types.Speaker) float64 {
		dist := math.Abs(float64(s.CenterX-width/2)) / float64(width)
		return 0.5*dist + 0.5*(1-float64(s.FaceSize)/frameArea)
	}
	sort.SliceStable(out, func(i, j int) bool { return rank(out[i]) < rank(out[j]) })
	for i := range out {
		out[i].ID = i
	}
	return out
}

// group performs the greedy single-pass clustering: largest faces seed
// clusters and absorb nearby faces of similar size.
func group(dets []types.FaceDetection, width, height int) [][]face {
	faces := make([]face, 0, len(dets))
	for _, d := range dets {
		cx, cy := d.Center()
		faces = append(faces, face{
			det:  d,
			cx:   cx,
			cy:   cy,
			nx:   cx / float64(width),
			ny:   cy / float64(height),
			size: float64(d.Area()),
		})
	}
	sort.SliceStable(faces, func(i, j int) bool { return faces[i].size > faces[j].size })

	used := make([]bool, len(faces))
	var out [][]face
	for i, seed := range faces {
		if used[i] {
			continue
		}
		used[i] = true
		c := []face{seed}
		for j := i + 1; j < len(faces); j++ {
			if used[j] {
				continue
			}
			o := faces[j]
			if math.Abs(seed.nx-o.nx) >= spatialThreshold || math.Abs(seed.ny-o.ny) >= spatialThreshold {
				continue
			}
			if sizeRatio(seed.size, o.size) <= minSizeRatio {
				continue
			}
			c = append(c, o)
			used[j] = true
		}
		out = append(out, c)
	}
	return out
}

// DefaultSpeakers is the safe fallback: one speaker centered in frame. Invalid
// dimensions fall back to a 1920x1080 geometry.
func DefaultSpeakers(width, height int) []types.Speaker {
	if width <= 0 || height <= 0 {
		width, height = 1920, 1080
	}
	cx, cy := width/2, height/2
	return []types.Speaker{{
		ID:       0,
		CenterX:  cx,
		CenterY:  cy,
		FaceSize: 200 * 200,
		Position: crop.PositionCenter,
		CropZone: crop.Zone(cx, width, height, crop.PositionCenter),
	}}
}

func weight(c []face) float64 {
	total := 0.0
	for _, f := range c {
		total += f.size
	}
	return total
}

func sizeRatio(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi == 0 {
		return 0
	}
	return math.Min(a, b) / hi
}
