package intent

import "testing"

func TestAnalyze(t *testing.T) {
	cases := []struct {
		question string
		want     Topic
	}{
		{"Hello!", Greeting},
		{"Hi, I want to adopt a kitten", Adoption},
		{"How much is the cat tower?", Product},
		{"How often should I feed a puppy?", Care},
		{"Where is my order? The delivery is late", Order},
		{"", General},
		{"tell me something", General},
	}

	for _, tc := range cases {
		if got := Analyze(tc.question).Topic; got != tc.want {
			t.Fatalf("Analyze(%q) = %s, want %s", tc.question, got, tc.want)
		}
	}
}

func TestAnalyzeScore(t *testing.T) {
	if d := Analyze("just browsing"); d.Score != 0 {
		t.Fatalf("expected zero score, got %d", d.Score)
	}
	if d := Analyze("can I adopt or foster a rescue dog?"); d.Score < 6 {
		t.Fatalf("expected stacked adoption score, got %d", d.Score)
	}
}
