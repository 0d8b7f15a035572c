package tuitest

import (
	"bytes"
	"io"
)

// queryReplies answers the terminal queries lipgloss and bubbletea send on
// startup: cursor position and foreground/background colours.
var queryReplies = []struct {
	query []byte
	reply []byte
}{
	{[]byte("\x1b[6n"), []byte("\x1b[1;1R")},
	{[]byte("\x1b]10;?\x07"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x07")},
	{[]byte("\x1b]10;?\x1b\\"), []byte("\x1b]10;rgb:cccc/cccc/cccc\x1b\\")},
	{[]byte("\x1b]11;?\x07"), []byte("\x1b]11;rgb:0000/0000/0000\x07")},
	{[]byte("\x1b]11;?\x1b\\"), []byte("\x1b]11;rgb:0000/0000/0000\x1b\\")},
}

// responder plays the terminal side of the pty.
type responder struct {
	w    io.Writer
	tail []byte
}

func newResponder(w io.Writer) *responder {
	return &responder{w: w, tail: make([]byte, 0, 128)}
}

func (r *responder) Process(chunk []byte) {
	r.tail = append(r.tail, chunk...)
	for r.answerOne() {
	}
	// Queries can straddle reads, so a short tail is kept.
	if len(r.tail) > 256 {
		r.tail = r.tail[len(r.tail)-64:]
	}
}

// answerOne replies to the earliest pending query in the tail.
func (r *responder) answerOne() bool {
	best, bestIdx := -1, -1
	for i, q := range queryReplies {
		idx := bytes.Index(r.tail, q.query)
		if idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = i, idx
		}
	}
	if best < 0 {
		return false
	}
	q := queryReplies[best]
	r.tail = r.tail[bestIdx+len(q.query):]
	_, _ = r.w.Write(q.reply)
	return true
}
