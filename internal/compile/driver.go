// Copyright 2014 Joel Scoble (github:mohae). All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.
//
// This code is based on code originally written by The Go Authors.
// Their copyright notice immediately follows this one.

// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package compile

import (
	"fmt"
	"sort"
	"strings"
)

// stateFn is a parser state: it consumes a prefix of the input and returns
// the next state, or nil to terminate the trampoline.
type stateFn func(*driver) stateFn

// driver owns the input buffer and the scanning cursor. It is shared by
// every state function and by the emitter it feeds.
type driver struct {
	name string // name of the input; used only in diagnostics
	buf  string // full input text

	start int // beginning of the pending lexeme
	pos   int // read head

	newlineOffsets []int // byte offset of every '\n' in buf, ascending

	em *emitter // sink for recognized constructs

	indentLevels   []string // whitespace prefixes, "" at the bottom
	indentedBlocks []int    // blocks opened at each indent level

	pendingTag Tag    // HTMLTag under construction between tag and maybeTagConcluder
	pendingKey string // attribute key awaiting a value or a bare-key default
}

func newDriver(name, buf string, em *emitter) *driver {
	d := &driver{
		name:           name,
		buf:            buf,
		em:             em,
		indentLevels:   []string{""},
		indentedBlocks: []int{0},
	}
	for i, r := range buf {
		if r == '\n' {
			d.newlineOffsets = append(d.newlineOffsets, i)
		}
	}
	return d
}

// run drives state functions until one returns nil.
func (d *driver) run(start stateFn) {
	state := start
	for state != nil {
		if d.start != d.pos {
			panic(d.bug("state entered with start != pos (%d != %d)", d.start, d.pos))
		}
		state = state(d)
	}
}

// peek returns the next n bytes without advancing pos. It returns fewer
// than n bytes near EOF.
func (d *driver) peek(n int) string {
	end := d.pos + n
	if end > len(d.buf) {
		end = len(d.buf)
	}
	if d.pos > len(d.buf) {
		return ""
	}
	return d.buf[d.pos:end]
}

// peekAt returns the n bytes starting offset bytes past pos, without
// advancing pos. It returns fewer than n bytes (possibly "") near EOF.
func (d *driver) peekAt(offset, n int) string {
	start := d.pos + offset
	if start > len(d.buf) {
		return ""
	}
	end := start + n
	if end > len(d.buf) {
		end = len(d.buf)
	}
	return d.buf[start:end]
}

// advance moves pos forward by n bytes and returns the skipped slice.
func (d *driver) advance(n int) string {
	s := d.peek(n)
	d.pos += n
	return s
}

// backup moves pos back by n bytes.
func (d *driver) backup(n int) {
	d.pos -= n
}

// accept advances past the first alt that matches at pos, returning it.
// It returns "" if none match.
func (d *driver) accept(alts ...string) string {
	for _, v := range alts {
		if d.peek(len(v)) == v {
			d.advance(len(v))
			return v
		}
	}
	return ""
}

// require is accept, but it is a lexer bug if nothing matches.
func (d *driver) require(alts ...string) string {
	v := d.accept(alts...)
	if v == "" {
		panic(d.bug("require one of %q", alts))
	}
	return v
}

// acceptRun advances while pred holds for the byte at pos, returning the
// consumed slice.
func (d *driver) acceptRun(pred func(byte) bool) string {
	start := d.pos
	for d.pos < len(d.buf) && pred(d.buf[d.pos]) {
		d.pos++
	}
	return d.buf[start:d.pos]
}

// conclude returns buf[start:pos] and sets start := pos.
func (d *driver) conclude() string {
	s := d.buf[d.start:d.pos]
	d.start = d.pos
	return s
}

// drop discards the pending lexeme: start := pos.
func (d *driver) drop() {
	d.start = d.pos
}

// rollback undoes the pending scan: pos := start.
func (d *driver) rollback() {
	d.pos = d.start
}

// offEnd reports whether pos is at or past the end of buf.
func (d *driver) offEnd() bool {
	return d.pos >= len(d.buf)
}

// position returns the 1-based line and column of byte offset pos, and the
// full text of that line.
func (d *driver) position(pos int) (line, col int, lineText string) {
	line = sort.Search(len(d.newlineOffsets), func(i int) bool {
		return d.newlineOffsets[i] >= pos
	}) + 1

	lineStart := 0
	if line > 1 {
		lineStart = d.newlineOffsets[line-2] + 1
	}
	col = pos - lineStart + 1

	lineEnd := len(d.buf)
	if line-1 < len(d.newlineOffsets) {
		lineEnd = d.newlineOffsets[line-1]
	}
	lineText = d.buf[lineStart:lineEnd]
	return
}

// errorf builds a user-facing *Error anchored at the current start
// position and panics with it, terminating the compile.
func (d *driver) errorf(format string, args ...interface{}) *Error {
	return d.raise(KindUser, fmt.Sprintf(format, args...))
}

// bug builds an internal-bug *Error: a require assertion failed, which
// indicates a parser defect rather than bad input.
func (d *driver) bug(format string, args ...interface{}) *Error {
	return d.raise(KindInternal, fmt.Sprintf(format, args...))
}

func (d *driver) raise(kind Kind, msg string) *Error {
	line, col, lineText := d.position(d.start)
	err := &Error{Kind: kind, Msg: msg, Line: line, Column: col, LineText: lineText}
	logger.Debugf("raise %s at %d:%d: %s\n", kind, line, col, msg)
	panic(err)
}

// isTagChar reports whether b is a valid tag-name character (ASCII letters
// and digits).
func isTagChar(b byte) bool {
	return isASCIILetter(b) || isDigit(b)
}

// isKeyChar reports whether b is valid in an attribute key (ASCII letters
// plus '-' and ':').
func isKeyChar(b byte) bool {
	return isASCIILetter(b) || b == '-' || b == ':'
}

// isIdentChar reports whether b is valid in a class/id shorthand (ASCII
// letters and digits plus '-' and '_').
func isIdentChar(b byte) bool {
	return isASCIILetter(b) || isDigit(b) || b == '-' || b == '_'
}

// isInlineWS reports whether b is a space or tab.
func isInlineWS(b byte) bool {
	return b == ' ' || b == '\t'
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// hasProperPrefix reports whether prefix is a strict prefix of s.
func hasProperPrefix(s, prefix string) bool {
	return len(s) > len(prefix) && strings.HasPrefix(s, prefix)
}
