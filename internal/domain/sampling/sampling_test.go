package sampling

import (
	"math"
	"math/rand"
	"testing"

	"github.com/forPelevin/speakercut/internal/types"
)

func segs(n int, length float64) []types.Segment {
	out := make([]types.Segment, 0, n)
	t := 0.0
	for i := 0; i < n; i++ {
		out = append(out, types.Segment{Start: t, End: t + length})
		t += length
	}
	return out
}

func TestEstimateSpeakers(t *testing.T) {
	tests := []struct {
		name string
		segs []types.Segment
		want int
	}{
		{"empty", nil, 1},
		{"many short", segs(12, 2), 3},
		{"few medium", segs(5, 4), 2},
		{"three short", segs(3, 2), 1},
		{"long monologue", segs(4, 9), 1},
		{"ten at four seconds", segs(10, 4), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EstimateSpeakers(tt.segs); got != tt.want {
				t.Fatalf("EstimateSpeakers() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPlan_NonPositiveDuration(t *testing.T) {
	for _, d := range []float64{0, -3} {
		got := Plan(d, 2, rand.New(rand.NewSource(1)))
		if len(got) != 1 || got[0] != 0 {
			t.Fatalf("Plan(%v) = %v, want [0]", d, got)
		}
	}
}

func TestPlan_SingleSpeakerEvenlySpaced(t *testing.T) {
	got := Plan(30, 1, nil)
	if len(got) != 15 {
		t.Fatalf("expected 15 samples, got %d", len(got))
	}
	for i, p := range got {
		want := float64(i) * 2
		if math.Abs(p-want) > 1e-9 {
			t.Fatalf("sample %d = %v, want %v", i, p, want)
		}
	}
}

func TestPlan_MultiSpeakerBoundsAndCap(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		got := Plan(10, n, rand.New(rand.NewSource(7)))
		if len(got) == 0 || len(got) > SampleCount(n) {
			t.Fatalf("speakers=%d: got %d samples, cap %d", n, len(got), SampleCount(n))
		}
		for i, p := range got {
			if p < 0 || p >= 10 {
				t.Fatalf("speakers=%d: sample %v out of range", n, p)
			}
			if i > 0 && got[i-1] >= p {
				t.Fatalf("speakers=%d: samples not strictly increasing: %v", n, got)
			}
		}
	}
}

func TestPlan_TwoSpeakersProbeTurnBoundaries(t *testing.T) {
	got := Plan(10, 2, nil)
	want := map[float64]bool{0: false, 0.5: false, 4.5: false, 5: false, 5.5: false}
	for _, p := range got {
		if _, ok := want[p]; ok {
			want[p] = true
		}
	}
	for p, seen := range want {
		if !seen {
			t.Fatalf("expected boundary probe at %v in %v", p, got)
		}
	}
}

func TestSampleCount(t *testing.T) {
	cases := map[int]int{1: 15, 2: 20, 3: 30, 4: 30}
	for in, want := range cases {
		if got := SampleCount(in); got != want {
			t.Fatalf("SampleCount(%d) = %d, want %d", in, got, want)
		}
	}
}
