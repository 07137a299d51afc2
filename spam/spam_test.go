package spam

import (
	"strings"
	"testing"
)

func TestScore_EmptyNameAndMessage(t *testing.T) {
	if got := Score("", "x@y.com", ""); got != 4 {
		t.Fatalf("Score(empty) = %d, want 4", got)
	}
}

func TestScore_Rules(t *testing.T) {
	okMsg := "Vorrei un preventivo per un trasporto"

	tests := []struct {
		name    string
		in      [3]string
		want    int
		verdict Verdict
	}{
		{"clean submission", [3]string{"Mario Rossi", "info@libero.it", okMsg}, 0, Clean},
		{"short name", [3]string{"M", "m@libero.it", okMsg}, 2, Clean},
		{"long name", [3]string{strings.Repeat("a", 101), "m@libero.it", okMsg}, 2, Clean},
		{"angle bracket in name", [3]string{"Mario <b>", "m@libero.it", okMsg}, 3, Clean},
		{"brace in message", [3]string{"Mario", "m@libero.it", okMsg + " {x}"}, 3, Clean},
		{"short message", [3]string{"Mario", "m@libero.it", "ciao"}, 2, Clean},
		{"long message", [3]string{"Mario", "m@libero.it", strings.Repeat("ab ", 700)}, 3, Clean},
		{"repeated run of 11", [3]string{"Mario", "m@libero.it", okMsg + " " + strings.Repeat("!", 11)}, 3, Clean},
		{"run of 10 is fine", [3]string{"Mario", "m@libero.it", okMsg + " " + strings.Repeat("!", 10)}, 0, Clean},
		{"one spam word", [3]string{"Mario", "m@libero.it", "This is URGENT please reply"}, 2, Clean},
		{"three spam words", [3]string{"Mario", "m@libero.it", "Winner! Click here for free money"}, 6, Flagged},
		{"temp domain", [3]string{"Mario", "m@mailinator.com", okMsg}, 5, Flagged},
		{"name in local part", [3]string{"Mario Rossi", "rossi.mario@libero.it", okMsg}, 1, Clean},
		{"short token ignored", [3]string{"Bob", "bob@libero.it", okMsg}, 0, Clean},
		{"clamped to max", [3]string{"<x>", "a@tempmail.guerrillamail.com", "casino lottery viagra"}, 10, Blocked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.in[0], tt.in[1], tt.in[2])
			if a.Score != tt.want {
				t.Errorf("Score = %d, want %d (hits %+v)", a.Score, tt.want, a.Hits)
			}
			if a.Verdict != tt.verdict {
				t.Errorf("Verdict = %q, want %q", a.Verdict, tt.verdict)
			}
		})
	}
}

func TestAssess_ThreeURLs(t *testing.T) {
	msg := "see http://a.example http://b.example https://c.example"
	a := Assess("Mario", "m@libero.it", msg)

	urlPoints := 0
	for _, h := range a.Hits {
		if h.Rule == RuleURLs {
			urlPoints += h.Points
		}
	}
	if urlPoints != 6 {
		t.Errorf("url points = %d, want 6", urlPoints)
	}
	// Every URL carries '/', so the special-character rule fires too.
	if a.Score != 9 {
		t.Errorf("Score = %d, want 9 (hits %+v)", a.Score, a.Hits)
	}
}

func TestAssess_TwoURLsDoNotCount(t *testing.T) {
	a := Assess("Mario", "m@libero.it", "see http://a.example and https://b.example")
	for _, h := range a.Hits {
		if h.Rule == RuleURLs {
			t.Fatalf("url rule fired for two URLs: %+v", a.Hits)
		}
	}
}

func TestAssess_TempMarkerInLocalPartIgnored(t *testing.T) {
	a := Assess("Mario", "mailinator@libero.it", "Vorrei un preventivo per un trasporto")
	if a.Score != 0 {
		t.Fatalf("Score = %d, want 0 (hits %+v)", a.Score, a.Hits)
	}
}

func TestScore_Bounds(t *testing.T) {
	inputs := [][3]string{
		{"", "", ""},
		{strings.Repeat("<", 5000), strings.Repeat("mailinator", 50), strings.Repeat("http://x ", 3000)},
		{"名前", "名前@例え.jp", strings.Repeat("あ", 3000)},
		{"a", "@", "\n\n\n\n\n\n\n\n\n\n\n\n"},
	}
	for _, in := range inputs {
		got := Score(in[0], in[1], in[2])
		if got < 0 || got > MaxScore {
			t.Errorf("Score out of range: %d", got)
		}
	}
}

func TestHasRepeatedRun_LineTerminators(t *testing.T) {
	if hasRepeatedRun(strings.Repeat("\n", 20), 11) {
		t.Error("newlines must not form a run")
	}
	if !hasRepeatedRun("xx"+strings.Repeat("é", 11), 11) {
		t.Error("multi-byte runes should form a run")
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		score int
		want  Verdict
	}{
		{0, Clean}, {4, Clean}, {5, Flagged}, {7, Flagged}, {8, Blocked}, {10, Blocked},
	}
	for _, tt := range tests {
		if got := Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
