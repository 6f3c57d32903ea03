package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/forPelevin/speakercut/internal/domain/speakers"
	"github.com/forPelevin/speakercut/internal/types"
)

func genInput(t *testing.T, start *float64, d float64) GenerateInput {
	t.Helper()
	root := t.TempDir()
	work := filepath.Join(root, "runs", "run1")
	if err := os.MkdirAll(work, 0o755); err != nil {
		t.Fatal(err)
	}
	return GenerateInput{
		RunID:        "run1",
		VideoPath:    "/videos/podcast.mp4",
		Start:        start,
		Duration:     d,
		WorkDir:      work,
		OutPath:      filepath.Join(root, "out", "clip.mp4"),
		BurnCaptions: true,
		Style:        types.DefaultStyle(),
	}
}

func TestGenerate_SingleFace(t *testing.T) {
	v := &fakeVideo{info: hd()}
	finder := &fakeFinder{boxes: oneFace()}
	uc := newTestUsecase(v, &fakeASR{clip: monologue()}, finder, nil)
	in := genInput(t, startAt(60), 30)

	art, err := uc.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.SpeakersDetected != 1 || art.DynamicCropping {
		t.Fatalf("expected one static speaker, got %d dynamic=%v", art.SpeakersDetected, art.DynamicCropping)
	}
	if len(v.renders) != 1 || len(v.concats) != 0 {
		t.Fatalf("expected one direct render, got %d renders and %d concats", len(v.renders), len(v.concats))
	}
	r := v.renders[0]
	if r.Start != 60 || r.Duration != 30 || r.Out != BasePathFor(in.OutPath) {
		t.Fatalf("unexpected render %+v", r)
	}
	if r.Crop.W != types.TargetWidth || r.Crop.H != types.TargetHeight {
		t.Fatalf("unexpected crop %+v", r.Crop)
	}
	if art.Degraded {
		t.Fatalf("expected a clean run, got fallbacks %v", art.Fallbacks)
	}
	if v.frames != 15 {
		t.Fatalf("expected 15 sampled frames, got %d", v.frames)
	}
	if len(v.burns) != 1 || v.burns[0] != art.BasePath {
		t.Fatalf("expected captions burned onto the base render, got %v", v.burns)
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Fatalf("clip missing: %v", err)
	}
	if len(art.Captions) != 2 || art.SubtitlePath == "" {
		t.Fatalf("expected 2 captions in %q, got %d", art.SubtitlePath, len(art.Captions))
	}
	if art.RunID != "run1" || art.StartSec != 60 || art.Duration != 30 {
		t.Fatalf("unexpected artifact header %+v", art)
	}
}

func TestGenerate_TwoFaces(t *testing.T) {
	v := &fakeVideo{info: hd()}
	finder := &fakeFinder{boxes: twoFaces()}
	uc := newTestUsecase(v, &fakeASR{clip: dialogue()}, finder, nil)
	in := genInput(t, startAt(100), 25)

	art, err := uc.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.SpeakersDetected != 2 || !art.DynamicCropping {
		t.Fatalf("expected two speakers with switching, got %d dynamic=%v", art.SpeakersDetected, art.DynamicCropping)
	}
	if len(art.Segments) != 4 {
		t.Fatalf("expected 4 segments, got %d", len(art.Segments))
	}
	var ids []int
	for _, s := range art.Segments {
		ids = append(ids, s.SpeakerID)
		if s.Duration != 6.25 {
			t.Fatalf("expected 6.25s segments, got %v", s.Duration)
		}
	}
	if !slices.Equal(ids, []int{0, 1, 1, 0}) {
		t.Fatalf("unexpected speaker order %v", ids)
	}
	if len(v.renders) != 4 || len(v.concats) != 1 || len(v.concats[0]) != 4 {
		t.Fatalf("expected 4 renders joined once, got %d renders, %v", len(v.renders), v.concats)
	}
	for i, r := range v.renders {
		if r.Start != 100+float64(i)*6.25 {
			t.Fatalf("segment %d starts at %v", i, r.Start)
		}
		if v.concats[0][i] != r.Out {
			t.Fatalf("concat order differs at %d", i)
		}
	}
	if v.renders[0].Crop.X == v.renders[1].Crop.X {
		t.Fatalf("expected different crops for different speakers")
	}
	assertNoFiles(t, in.WorkDir, "-seg-")
	assertNoFiles(t, in.WorkDir, "-concat.txt")
}

func TestGenerate_FallbackRender(t *testing.T) {
	v := &fakeVideo{
		info: hd(),
		renderErr: func(out string) error {
			if filepath.Ext(out) == ".mp4" && filepath.Base(out) != "clip_no_captions.mp4" {
				return errBoom
			}
			return nil
		},
	}
	uc := newTestUsecase(v, &fakeASR{clip: dialogue()}, &fakeFinder{boxes: twoFaces()}, nil)
	in := genInput(t, startAt(0), 25)

	art, err := uc.Generate(context.Background(), in)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !art.Degraded || !slices.Contains(art.Fallbacks, FallbackRender) {
		t.Fatalf("expected render fallback, got %v", art.Fallbacks)
	}
	last := v.renders[len(v.renders)-1]
	if last.Duration != 25 || last.Out != BasePathFor(in.OutPath) {
		t.Fatalf("expected a full-length fallback render, got %+v", last)
	}
	assertNoFiles(t, in.WorkDir, "-seg-")
}

func TestGenerate_RenderFailsTwice(t *testing.T) {
	v := &fakeVideo{info: hd(), renderErr: func(string) error { return errBoom }}
	uc := newTestUsecase(v, &fakeASR{clip: monologue()}, &fakeFinder{boxes: oneFace()}, nil)

	_, err := uc.Generate(context.Background(), genInput(t, startAt(0), 30))
	if !errors.Is(err, ErrRender) || !errors.Is(err, errBoom) {
		t.Fatalf("expected ErrRender wrapping the tool error, got %v", err)
	}
}

func TestGenerate_TooSmall(t *testing.T) {
	v := &fakeVideo{info: hd(), renderSize: 1024}
	uc := newTestUsecase(v, &fakeASR{clip: monologue()}, &fakeFinder{boxes: oneFace()}, nil)

	_, err := uc.Generate(context.Background(), genInput(t, startAt(0), 30))
	if !errors.Is(err, ErrTooSmall) {
		t.Fatalf("expected ErrTooSmall, got %v", err)
	}
}

func TestGenerate_InvalidFrameUsesDefaultSpeaker(t *testing.T) {
	v := &fakeVideo{info: types.MediaInfo{Width: 0, Height: 0, Duration: time.Hour}}
	finder := &fakeFinder{boxes: oneFace()}
	uc := newTestUsecase(v, &fakeASR{clip: monologue()}, finder, nil)

	art, err := uc.Generate(context.Background(), genInput(t, startAt(0), 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if finder.calls != 0 || v.frames != 0 {
		t.Fatalf("expected no detection attempt, got %d finds and %d frames", finder.calls, v.frames)
	}
	if art.SpeakersDetected != 1 || !slices.Contains(art.Fallbacks, FallbackInvalidFrame) {
		t.Fatalf("expected default speaker fallback, got %+v", art)
	}
}

func TestGenerate_TranscribeFailure(t *testing.T) {
	v := &fakeVideo{info: hd()}
	uc := newTestUsecase(v, &fakeASR{clipErr: errBoom}, &fakeFinder{boxes: oneFace()}, nil)

	art, err := uc.Generate(context.Background(), genInput(t, startAt(0), 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !slices.Contains(art.Fallbacks, FallbackTranscribe) {
		t.Fatalf("expected transcribe fallback, got %v", art.Fallbacks)
	}
	if len(art.Captions) != 0 || art.SubtitlePath != "" {
		t.Fatalf("expected no captions, got %+v", art.Captions)
	}
	if len(v.burns) != 0 {
		t.Fatalf("nothing to burn, got %v", v.burns)
	}
	if _, err := os.Stat(art.Path); err != nil {
		t.Fatalf("clip missing: %v", err)
	}
}

func TestGenerate_NoFacesFallsBackToCenter(t *testing.T) {
	v := &fakeVideo{info: hd()}
	uc := newTestUsecase(v, &fakeASR{clip: monologue()}, &fakeFinder{}, nil)

	art, err := uc.Generate(context.Background(), genInput(t, startAt(0), 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.SpeakersDetected != 1 || !slices.Contains(art.Fallbacks, FallbackNoFaces) {
		t.Fatalf("expected default speaker fallback, got %+v", art)
	}
}

func TestGenerate_ClampsToSourceEnd(t *testing.T) {
	v := &fakeVideo{info: types.MediaInfo{Width: 1920, Height: 1080, Duration: 40 * time.Second}}
	uc := newTestUsecase(v, &fakeASR{clip: monologue()}, &fakeFinder{boxes: oneFace()}, nil)

	art, err := uc.Generate(context.Background(), genInput(t, startAt(25), 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.Duration != 15 {
		t.Fatalf("expected clip clamped to 15s, got %v", art.Duration)
	}

	_, err = uc.Generate(context.Background(), genInput(t, startAt(45), 30))
	if err == nil {
		t.Fatalf("expected error for start past the end")
	}
}

func TestGenerate_StartFromPicker(t *testing.T) {
	v := &fakeVideo{info: hd()}
	asr := &fakeASR{clip: monologue(), full: longTranscript()}
	picker := &fakePicker{pick: types.Candidate{Start: 90 * time.Second, End: 120 * time.Second}}
	uc := newTestUsecase(v, asr, &fakeFinder{boxes: oneFace()}, picker)

	art, err := uc.Generate(context.Background(), genInput(t, nil, 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.StartSec != 90 || art.Degraded {
		t.Fatalf("expected picked start 90, got %v (fallbacks %v)", art.StartSec, art.Fallbacks)
	}
}

func TestGenerate_PickerFailureUsesHeuristic(t *testing.T) {
	v := &fakeVideo{info: hd()}
	asr := &fakeASR{clip: monologue(), full: longTranscript()}
	uc := newTestUsecase(v, asr, &fakeFinder{boxes: oneFace()}, &fakePicker{err: errBoom})

	art, err := uc.Generate(context.Background(), genInput(t, nil, 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.StartSec != 60 {
		t.Fatalf("expected heuristic start 60, got %v", art.StartSec)
	}
	if !slices.Contains(art.Fallbacks, FallbackMomentHeuristic) {
		t.Fatalf("expected heuristic fallback, got %v", art.Fallbacks)
	}
}

func TestGenerate_NoTranscriptUsesStrategicStart(t *testing.T) {
	v := &fakeVideo{info: hd()}
	asr := &fakeASR{clip: monologue(), fullErr: errBoom}
	uc := newTestUsecase(v, asr, &fakeFinder{boxes: oneFace()}, nil)

	art, err := uc.Generate(context.Background(), genInput(t, nil, 30))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if art.StartSec != 180 || !slices.Contains(art.Fallbacks, FallbackMomentStrategic) {
		t.Fatalf("expected strategic start 180, got %v (%v)", art.StartSec, art.Fallbacks)
	}
}

func longTranscript() types.Transcript {
	return types.Transcript{Segments: []types.Segment{
		{Start: 0, End: 30, Text: "welcome to the show"},
		{Start: 30, End: 60, Text: "today we talk about work"},
		{Start: 60, End: 90, Text: "Here is why nobody tells you the truth!"},
		{Start: 90, End: 120, Text: "and that is it"},
		{Start: 120, End: 150, Text: "bye"},
	}}
}

func TestGenerate_EnhancedRetry(t *testing.T) {
	cases := []struct {
		name         string
		asr          *fakeASR
		enhanced     []types.FaceDetection
		wantSpeakers int
		wantRetry    bool
	}{
		{"retry finds more speakers", &fakeASR{clip: dialogue()}, twoFaces(), 2, true},
		{"retry finds the same count", &fakeASR{clip: dialogue()}, leftFace(), 1, true},
		{"retry finds nothing", &fakeASR{clip: dialogue()}, []types.FaceDetection{}, 1, true},
		{"no retry without transcript", &fakeASR{clipErr: errBoom}, twoFaces(), 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := &fakeVideo{info: hd()}
			finder := &fakeFinder{boxes: oneFace(), enhanced: tc.enhanced}
			uc := newTestUsecase(v, tc.asr, finder, nil)

			art, err := uc.Generate(context.Background(), genInput(t, startAt(100), 25))
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if (finder.enhancedCalls > 0) != tc.wantRetry {
				t.Fatalf("enhanced pass calls=%d, want retry=%v", finder.enhancedCalls, tc.wantRetry)
			}
			if art.SpeakersDetected != tc.wantSpeakers {
				t.Fatalf("expected %d speakers, got %d", tc.wantSpeakers, art.SpeakersDetected)
			}
			if tc.wantSpeakers == 1 {
				// The normal-pass face stays primary: it sits in the middle of the frame.
				if got := v.renders[0].Crop.X; got != centerCropX(t) {
					t.Fatalf("retry result replaced the original speaker, crop x=%d", got)
				}
			}
			if slices.Contains(art.Fallbacks, FallbackNoFaces) {
				t.Fatalf("retry must not be reported as missing faces: %v", art.Fallbacks)
			}
		})
	}
}

// centerCropX is the crop x for oneFace() on an HD source.
func centerCropX(t *testing.T) int {
	t.Helper()
	spk := speakers.Cluster(oneFace(), 1920, 1080)
	if len(spk) != 1 {
		t.Fatalf("expected one speaker from oneFace, got %d", len(spk))
	}
	return spk[0].CropZone.X
}
