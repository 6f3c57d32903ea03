package pigo

import (
	"errors"
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"
	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/domain/faces"
	"github.com/forPelevin/speakercut/internal/types"
)

const (
	shiftFactor = 0.1
	clusterIoU  = 0.2
	// Detection quality required per requested neighbor.
	qualityPerNeighbor = 1.5
)

// Adapter runs pigo cascades. A missing profile cascade disables profile
// passes instead of failing them.
type Adapter struct {
	cascades map[faces.Cascade]*pigo.Pigo
	log      zerolog.Logger
}

func New(frontalPath, profilePath string, log zerolog.Logger) (*Adapter, error) {
	frontal, err := os.ReadFile(frontalPath)
	if err != nil {
		return nil, fmt.Errorf("load frontal cascade: %w", err)
	}
	var profile []byte
	if profilePath != "" {
		if profile, err = os.ReadFile(profilePath); err != nil {
			return nil, fmt.Errorf("load profile cascade: %w", err)
		}
	}
	return NewFromCascades(frontal, profile, log)
}

// NewFromCascades builds an adapter from packed cascade data. profile may be
// empty, in which case profile passes find nothing.
func NewFromCascades(frontal, profile []byte, log zerolog.Logger) (*Adapter, error) {
	if len(profile) == 0 {
		log.Warn().Msg("no profile cascade configured, multi-speaker profile passes are disabled")
	}
	if len(frontal) == 0 {
		return nil, errors.New("load frontal cascade: empty cascade data")
	}
	a := &Adapter{cascades: map[faces.Cascade]*pigo.Pigo{}, log: log}
	p, err := pigo.NewPigo().Unpack(frontal)
	if err != nil {
		return nil, fmt.Errorf("unpack frontal cascade: %w", err)
	}
	a.cascades[faces.Frontal] = p
	if len(profile) > 0 {
		if p, err = pigo.NewPigo().Unpack(profile); err != nil {
			return nil, fmt.Errorf("unpack profile cascade: %w", err)
		}
		a.cascades[faces.Profile] = p
	}
	return a, nil
}

func (a *Adapter) Find(img image.Image, p faces.Pass) ([]types.FaceDetection, error) {
	classifier, ok := a.cascades[p.Cascade]
	if !ok {
		a.log.Debug().Str("cascade", string(p.Cascade)).Msg("cascade not configured, pass skipped")
		return nil, nil
	}
	b := img.Bounds()
	cols, rows := b.Dx(), b.Dy()
	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("find faces: %w", faces.ErrInvalidFrame)
	}

	params := pigo.CascadeParams{
		MinSize:     p.MinSize,
		MaxSize:     min(cols, rows),
		ShiftFactor: shiftFactor,
		ScaleFactor: p.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(img),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}
	dets := classifier.RunCascade(params, 0)
	dets = classifier.ClusterDetections(dets, clusterIoU)

	minQ := float32(qualityPerNeighbor * float64(p.MinNeighbors))
	out := make([]types.FaceDetection, 0, len(dets))
	for _, d := range dets {
		if d.Q < minQ {
			continue
		}
		out = append(out, toDetection(d, b.Min))
	}
	return out, nil
}

// toDetection converts pigo's center/scale to a square box.
func toDetection(d pigo.Detection, origin image.Point) types.FaceDetection {
	return types.FaceDetection{
		X: d.Col - d.Scale/2 + origin.X,
		Y: d.Row - d.Scale/2 + origin.Y,
		W: d.Scale,
		H: d.Scale,
	}
}
