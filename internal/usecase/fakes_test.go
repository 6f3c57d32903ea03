package usecase

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/forPelevin/speakercut/internal/domain/faces"
	"github.com/forPelevin/speakercut/internal/types"
)

const okSize = 200 * 1024

type renderCall struct {
	Start, Duration float64
	Crop            types.Rect
	Out             string
}

type fakeVideo struct {
	mu sync.Mutex

	info     types.MediaInfo
	probeErr error

	renderSize int
	renderErr  func(out string) error
	concatErr  error
	burnErr    error

	audio   []string
	renders []renderCall
	concats [][]string
	burns   []string
	frames  int
}

func (f *fakeVideo) Probe(context.Context, string) (types.MediaInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeVideo) ExtractAudioMono16k(_ context.Context, _ string, _, _ float64, outWav string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, outWav)
	return os.WriteFile(outWav, []byte("RIFF"), 0o644)
}

func (f *fakeVideo) Frame(context.Context, string, float64) (image.Image, error) {
	f.mu.Lock()
	f.frames++
	f.mu.Unlock()
	return image.NewGray(image.Rect(0, 0, 8, 8)), nil
}

func (f *fakeVideo) RenderCrop(_ context.Context, _ string, start, duration float64, crop types.Rect, out string) error {
	f.mu.Lock()
	f.renders = append(f.renders, renderCall{Start: start, Duration: duration, Crop: crop, Out: out})
	f.mu.Unlock()
	if f.renderErr != nil {
		if err := f.renderErr(out); err != nil {
			return err
		}
	}
	size := f.renderSize
	if size == 0 {
		size = okSize
	}
	return writeSized(out, size)
}

func (f *fakeVideo) Concat(_ context.Context, inputs []string, manifest, out string) error {
	f.mu.Lock()
	f.concats = append(f.concats, append([]string(nil), inputs...))
	f.mu.Unlock()
	if err := os.WriteFile(manifest, []byte(strings.Join(inputs, "\n")), 0o644); err != nil {
		return err
	}
	if f.concatErr != nil {
		return f.concatErr
	}
	return writeSized(out, okSize*len(inputs))
}

func (f *fakeVideo) BurnSubtitles(_ context.Context, in, _, out string) error {
	f.mu.Lock()
	f.burns = append(f.burns, in)
	f.mu.Unlock()
	if f.burnErr != nil {
		return f.burnErr
	}
	return writeSized(out, okSize+1)
}

func writeSized(path string, n int) error {
	return os.WriteFile(path, make([]byte, n), 0o644)
}

type fakeASR struct {
	clip    types.Transcript
	full    types.Transcript
	clipErr error
	fullErr error
}

func (f *fakeASR) Transcribe(_ context.Context, wavPath, _ string) (types.Transcript, error) {
	if strings.HasSuffix(wavPath, "-full.wav") {
		return f.full, f.fullErr
	}
	return f.clip, f.clipErr
}

// fakeFinder returns boxes for every frontal pass. When enhanced is set, the
// enhanced retry pass sees those boxes instead.
type fakeFinder struct {
	mu            sync.Mutex
	boxes         []types.FaceDetection
	enhanced      []types.FaceDetection
	calls         int
	enhancedCalls int
}

var enhancedPass = faces.PassesFor(faces.ModeEnhanced)[0]

func (f *fakeFinder) Find(_ image.Image, p faces.Pass) ([]types.FaceDetection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if p.Cascade != faces.Frontal {
		return nil, nil
	}
	if p == enhancedPass {
		f.enhancedCalls++
		if f.enhanced != nil {
			return f.enhanced, nil
		}
	}
	return f.boxes, nil
}

type fakePicker struct {
	pick types.Candidate
	err  error
}

func (f *fakePicker) Pick(context.Context, types.Transcript, []types.Candidate, time.Duration) (types.Candidate, error) {
	return f.pick, f.err
}

var errBoom = errors.New("boom")

func newTestUsecase(v *fakeVideo, asr *fakeASR, finder *fakeFinder, picker *fakePicker) Usecase {
	d := Deps{
		Video: v,
		ASR:   asr,
		Faces: finder,
		Log:   zerolog.Nop(),
		Rand:  rand.New(rand.NewSource(1)),
		Now:   func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	if picker != nil {
		d.Picker = picker
	}
	return New(d)
}

func hd() types.MediaInfo {
	return types.MediaInfo{Width: 1920, Height: 1080, Duration: 20 * time.Minute}
}

// monologue estimates one speaker.
func monologue() types.Transcript {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 14, Text: "I have been thinking about this for a long time."},
		{Start: 14, End: 29, Text: "Here is why it matters."},
	}}
}

// dialogue estimates two speakers.
func dialogue() types.Transcript {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 4, Text: "So what happened?"},
		{Start: 5, End: 9, Text: "Honestly, nobody knows."},
		{Start: 10, End: 14, Text: "That is crazy."},
		{Start: 15, End: 19, Text: "I know."},
		{Start: 20, End: 24, Text: "Wow."},
	}}
}

func oneFace() []types.FaceDetection {
	return []types.FaceDetection{{X: 760, Y: 300, W: 400, H: 400}}
}

func twoFaces() []types.FaceDetection {
	return []types.FaceDetection{
		{X: 300, Y: 300, W: 300, H: 300},
		{X: 1300, Y: 300, W: 300, H: 300},
	}
}

// leftFace is a single face on the left third of an HD frame.
func leftFace() []types.FaceDetection {
	return []types.FaceDetection{{X: 200, Y: 300, W: 300, H: 300}}
}

func startAt(sec float64) *float64 { return &sec }

func assertNoFiles(t *testing.T, dir, substr string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), substr) {
			t.Fatalf("expected %q to be cleaned up, found %s", substr, e.Name())
		}
	}
}
