package trigger

import (
	"testing"

	"peanut/internal/config"
)

func newTestDetector(t *testing.T) *Detector {
	t.Helper()
	source, err := config.NewKeywordSource("")
	if err != nil {
		t.Fatalf("Failed to create keyword source: %v", err)
	}
	return NewDetector(source)
}

func TestDetectBareWakeWord(t *testing.T) {
	d := newTestDetector(t)

	triggered, payload := d.Detect("花生")
	if !triggered {
		t.Fatal("Bare wake word should trigger")
	}
	if payload != "" {
		t.Errorf("Expected empty payload for bare wake word, got %q", payload)
	}
}

func TestDetectExplicitPrefix(t *testing.T) {
	cases := []struct {
		in      string
		payload string
	}{
		{"AI: 今天天氣如何", "今天天氣如何"},
		{"ai:hello", "hello"},
		{"@peanut what time is it", "what time is it"},
		{"@花生 明天提醒我開會", "明天提醒我開會"},
	}

	d := newTestDetector(t)
	for _, tc := range cases {
		triggered, payload := d.Detect(tc.in)
		if !triggered {
			t.Errorf("Detect(%q) should trigger", tc.in)
			continue
		}
		if payload != tc.payload {
			t.Errorf("Detect(%q) payload = %q, want %q", tc.in, payload, tc.payload)
		}
	}
}

func TestDetectWakeWordAtStart(t *testing.T) {
	d := newTestDetector(t)

	triggered, payload := d.Detect("花生 幫我查個東西")
	if !triggered {
		t.Fatal("Wake word at position 0 should trigger")
	}
	if payload != "幫我查個東西" {
		t.Errorf("Expected payload %q, got %q", "幫我查個東西", payload)
	}

	// A separator after the wake word belongs to the match
	triggered, payload = d.Detect("花生:買牛奶")
	if !triggered || payload != "買牛奶" {
		t.Errorf("Expected (true, %q), got (%v, %q)", "買牛奶", triggered, payload)
	}
}

func TestDetectLeadingPunctuation(t *testing.T) {
	d := newTestDetector(t)

	// One allowed punctuation char directly before the wake word
	triggered, payload := d.Detect("!花生 hello")
	if !triggered || payload != "hello" {
		t.Errorf("Single leading punctuation should trigger, got (%v, %q)", triggered, payload)
	}

	// One punctuation char followed by exactly one space
	triggered, payload = d.Detect("。 花生 提醒我買菜")
	if !triggered || payload != "提醒我買菜" {
		t.Errorf("Punctuation+space should trigger, got (%v, %q)", triggered, payload)
	}

	// Two leading punctuation marks never trigger
	triggered, _ = d.Detect("!!花生 hello")
	if triggered {
		t.Error("Two leading punctuation chars should not trigger")
	}
}

func TestDetectMidSentenceNoTrigger(t *testing.T) {
	cases := []string{
		"我今天吃了花生",
		"I ate peanuts today",
		"peanuts are great",
		"這包花生真好吃",
	}

	d := newTestDetector(t)
	for _, in := range cases {
		if triggered, _ := d.Detect(in); triggered {
			t.Errorf("Detect(%q) should not trigger", in)
		}
	}
}

func TestDetectEmptyInput(t *testing.T) {
	d := newTestDetector(t)

	for _, in := range []string{"", "   ", "\n\t"} {
		triggered, _ := d.Detect(in)
		if triggered {
			t.Errorf("Detect(%q) should not trigger", in)
		}
	}
}

// TestDetectIdempotent verifies that re-running Detect on an extracted payload
// does not trigger again when the payload carries no wake word.
func TestDetectIdempotent(t *testing.T) {
	d := newTestDetector(t)

	inputs := []string{"花生 明天要開會", "AI: 買牛奶", "?花生 今天天氣如何"}
	for _, in := range inputs {
		triggered, payload := d.Detect(in)
		if !triggered {
			t.Fatalf("Detect(%q) should trigger", in)
		}
		again, same := d.Detect(payload)
		if again {
			t.Errorf("Detect on extracted payload %q should not trigger", payload)
		}
		if same != payload {
			t.Errorf("Non-triggered text should pass through unchanged, got %q want %q", same, payload)
		}
	}
}

func TestIsEndCommand(t *testing.T) {
	d := newTestDetector(t)

	if !d.IsEndCommand("結束") {
		t.Error("結束 should be an end command")
	}
	if !d.IsEndCommand(" Bye ") {
		t.Error("bye (trimmed, case-insensitive) should be an end command")
	}
	if d.IsEndCommand("結束了嗎") {
		t.Error("End command must match the whole message")
	}
}
