package highlights

import "testing"

func TestScore(t *testing.T) {
	cases := []struct {
		name     string
		text     string
		wantInfo bool
		wantHook bool
	}{
		{"empty", "   ", false, false},
		{"numbers and steps", "Step 1: do X. Step 2: measure 42ms.", true, true},
		{"how to", "How to fix it: first do this, then do that.", true, false},
		{"hook phrase", "Here is why this is important!", false, true},
		{"laughter", "haha that was so funny", false, true},
		{"exchange", "Wait, are you serious", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			info, hook := Score(tc.text)
			if tc.wantInfo != (info > 0) {
				t.Fatalf("info=%v, want positive=%v", info, tc.wantInfo)
			}
			if tc.wantHook != (hook > 0) {
				t.Fatalf("hook=%v, want positive=%v", hook, tc.wantHook)
			}
		})
	}
}

func TestScore_Clamped(t *testing.T) {
	text := ""
	for i := 0; i < 40; i++ {
		text += "secret! "
	}
	_, hook := Score(text)
	if hook != 10 {
		t.Fatalf("expected hook clamped to 10, got %v", hook)
	}
}
