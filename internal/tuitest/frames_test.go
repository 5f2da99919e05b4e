package tuitest

import (
	"bytes"
	"testing"
)

func TestParseFramesSplitsOnClear(t *testing.T) {
	raw := []byte("\x1b[2J\x1b[H\x1b[1mRecipeScout\x1b[0m  \r\nResults (0)\r\n\r\n\x1b[2J\x1b[HRecipeScout\r\nResults (3)   \r\n")

	frames := parseFrames(raw)
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if frames[0].Plain != "RecipeScout\nResults (0)" {
		t.Fatalf("first frame not normalized: %q", frames[0].Plain)
	}

	if lines := frames[1].Lines(); len(lines) != 2 || lines[1] != "Results (3)" {
		t.Fatalf("unexpected lines: %q", lines)
	}

	rec := &Recording{Frames: frames}
	frame, ok := rec.FrameContaining("Results (3)")
	if !ok || frame.Index != 1 {
		t.Fatalf("expected the second frame, got %+v ok=%v", frame, ok)
	}
	if _, ok := rec.FrameContaining("Favorites"); ok {
		t.Fatal("no frame should match")
	}
	last, ok := rec.FinalFrame()
	if !ok || last.Index != 1 {
		t.Fatalf("final frame mismatch: %+v", last)
	}
}

func TestStripANSIRemovesOSC(t *testing.T) {
	if got := stripANSI("\x1b]0;title\x07hi\x1b[31m!\x1b[0m"); got != "hi!" {
		t.Fatalf("got %q", got)
	}
}

func TestResponderAnswersProbesInOrder(t *testing.T) {
	var replies bytes.Buffer
	r := newResponder(&replies)

	r.Process([]byte("hello\x1b]11;?\x07 and \x1b["))
	r.Process([]byte("6n tail"))

	want := "\x1b]11;rgb:0000/0000/0000\x07\x1b[1;1R"
	if replies.String() != want {
		t.Fatalf("replies = %q, want %q", replies.String(), want)
	}
}
