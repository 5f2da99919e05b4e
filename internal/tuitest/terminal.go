package tuitest

import (
	"bytes"
	"io"
)

// probe is a terminal capability query and the canned answer a real
// emulator would give. Bubbletea and lipgloss block on some of these.
type probe struct {
	query, reply string
}

var probes = []probe{
	{"\x1b[6n", "\x1b[1;1R"},
	{"\x1b[c", "\x1b[?62;22c"},
	{"\x1b]10;?\x07", "\x1b]10;rgb:cccc/cccc/cccc\x07"},
	{"\x1b]10;?\x1b\\", "\x1b]10;rgb:cccc/cccc/cccc\x1b\\"},
	{"\x1b]11;?\x07", "\x1b]11;rgb:0000/0000/0000\x07"},
	{"\x1b]11;?\x1b\\", "\x1b]11;rgb:0000/0000/0000\x1b\\"},
}

const (
	responderLimit = 256
	responderTail  = 64
)

// responder answers capability probes seen in the program output.
type responder struct {
	w       io.Writer
	pending []byte
}

func newResponder(w io.Writer) *responder {
	return &responder{w: w, pending: make([]byte, 0, responderLimit)}
}

func (r *responder) Process(chunk []byte) {
	r.pending = append(r.pending, chunk...)
	for r.answerNext() {
	}
	if len(r.pending) > responderLimit {
		r.pending = r.pending[len(r.pending)-responderTail:]
	}
}

// answerNext replies to the earliest probe in the buffer and drops
// everything up to its end.
func (r *responder) answerNext() bool {
	at, match := -1, probe{}
	for _, p := range probes {
		idx := bytes.Index(r.pending, []byte(p.query))
		if idx >= 0 && (at < 0 || idx < at) {
			at, match = idx, p
		}
	}
	if at < 0 {
		return false
	}
	r.pending = r.pending[at+len(match.query):]
	_, _ = io.WriteString(r.w, match.reply)
	return true
}
