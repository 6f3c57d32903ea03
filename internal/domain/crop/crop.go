package crop

import "github.com/forPelevin/speakercut/internal/types"

const (
	PositionCenter = "center"
	PositionLeft   = "left"
	PositionRight  = "right"
)

// Zone returns the 1080x1920 window, in the space of the source scaled to
// 1920px height, that frames a face whose center is fx source pixels from the
// left edge. Only horizontal panning is done: Y is always 0.
func Zone(fx, srcW, srcH int, position string) types.Rect {
	out := types.Rect{W: types.TargetWidth, H: types.TargetHeight}
	if srcW <= 0 || srcH <= 0 {
		return out
	}

	scaledW := ScaledWidth(srcW, srcH)
	scaledFX := int(float64(fx*types.TargetHeight) / float64(srcH))

	if scaledW <= types.TargetWidth {
		// Source is already narrower than the target after scaling.
		return out
	}

	var ideal int
	switch position {
	case PositionCenter:
		// Slight left bias mimics presenter framing.
		ideal = scaledFX - types.TargetWidth/2 - int(types.TargetWidth*0.05)
	case PositionLeft:
		// Speaker sits at 60% of the crop, context stays on their right.
		ideal = scaledFX - int(types.TargetWidth*0.6)
	case PositionRight:
		ideal = scaledFX - int(types.TargetWidth*0.4)
	default:
		ideal = (scaledW - types.TargetWidth) / 2
	}
	out.X = clamp(ideal, 0, scaledW-types.TargetWidth)
	return out
}

// Classify buckets a horizontal center into center/left/right: anything within
// 15% of the frame width from the middle counts as center.
func Classify(cx, frameW int) string {
	mid := frameW / 2
	d := cx - mid
	if d < 0 {
		d = -d
	}
	switch {
	case float64(d) < float64(frameW)*0.15:
		return PositionCenter
	case cx < mid:
		return PositionLeft
	default:
		return PositionRight
	}
}

// ScaledWidth is the source width after scaling to the target height.
func ScaledWidth(srcW, srcH int) int {
	if srcH <= 0 {
		return 0
	}
	return int(float64(srcW*types.TargetHeight) / float64(srcH))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
