package tuitest

import (
	"regexp"
	"strings"
)

// Frame is one screen render, split out of the raw stream at every
// erase-display sequence.
type Frame struct {
	Index int
	ANSI  string
	Plain string
}

// Lines returns the plain text of the frame one row per element.
func (f Frame) Lines() []string {
	if f.Plain == "" {
		return nil
	}
	return strings.Split(f.Plain, "\n")
}

var (
	eraseDisplay = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence  = regexp.MustCompile(`\x1b\][^\x07]*(\x07|\x1b\\)`)
	shiftInOut   = strings.NewReplacer("\x0e", "", "\x0f", "")
)

func parseFrames(raw []byte) []Frame {
	stream := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, chunk := range eraseDisplay.Split(stream, -1) {
		chunk = strings.TrimPrefix(strings.Trim(chunk, "\x00"), "\x1b[H")
		plain := normalizeLines(stripANSI(chunk))
		if plain == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: chunk, Plain: plain})
	}
	if frames == nil && stream != "" {
		frames = []Frame{{ANSI: stream, Plain: normalizeLines(stripANSI(stream))}}
	}
	return frames
}

// FinalFrame returns the last frame, or false when nothing was drawn.
func (r *Recording) FinalFrame() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

// FrameContaining returns the latest frame whose plain text contains substr.
func (r *Recording) FrameContaining(substr string) (Frame, bool) {
	if r == nil {
		return Frame{}, false
	}
	for i := len(r.Frames) - 1; i >= 0; i-- {
		if strings.Contains(r.Frames[i].Plain, substr) {
			return r.Frames[i], true
		}
	}
	return Frame{}, false
}

func stripANSI(s string) string {
	s = oscSequence.ReplaceAllString(s, "")
	s = csiSequence.ReplaceAllString(s, "")
	return shiftInOut.Replace(s)
}

// normalizeLines drops trailing spaces per row and trailing blank rows.
func normalizeLines(s string) string {
	rows := strings.Split(s, "\n")
	last := -1
	for i, row := range rows {
		rows[i] = strings.TrimRight(row, " ")
		if strings.TrimSpace(rows[i]) != "" {
			last = i
		}
	}
	return strings.Join(rows[:last+1], "\n")
}
