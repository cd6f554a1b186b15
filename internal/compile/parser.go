package compile

// eofAware wraps a state so that, on entry, being at or past the end of the
// buffer transitions straight to end instead of invoking f. Several state
// functions need this (indent, tag, maybeQualifier); the rest handle EOF in
// their own bodies: qualifier is only entered with a qualifier character in
// view, verbatim and single-line literal end their text there, and the
// attribute and expression states report it as an error.
func eofAware(f stateFn) stateFn {
	return func(d *driver) stateFn {
		if d.offEnd() {
			return stateEnd
		}
		return f(d)
	}
}

// skipInlineWS wraps a state so that leading spaces and tabs are dropped
// before f runs.
func skipInlineWS(f stateFn) stateFn {
	return func(d *driver) stateFn {
		d.acceptRun(isInlineWS)
		d.drop()
		return f(d)
	}
}

var (
	stateIndent            = eofAware(stateIndentImpl)
	stateTag               = eofAware(stateTagImpl)
	stateMaybeQualifier    = eofAware(stateMaybeQualifierImpl)
	stateMaybeAttrKey      = skipInlineWS(stateMaybeAttrKeyImpl)
	stateAfterAttrKey      = skipInlineWS(stateAfterAttrKeyImpl)
	stateExpr              = skipInlineWS(stateExprImpl)
	stateVerbatim          = skipInlineWS(stateVerbatimImpl)
	stateSingleLineLiteral = skipInlineWS(stateSingleLineLiteralImpl)
)

// advanceLine advances pos to the next '\n' or EOF, without consuming the
// newline itself.
func advanceLine(d *driver) {
	for !d.offEnd() && d.buf[d.pos] != '\n' {
		d.pos++
	}
}

// acceptIndentText requires exactly one '\n' then returns the inline
// whitespace run that follows it (not including the newline).
func acceptIndentText(d *driver) string {
	d.require("\n")
	return d.acceptRun(isInlineWS)
}

// stateIndentImpl consumes the newline(s) and leading whitespace that begin
// a line, reconciles the indent stack, and closes any blocks that the new
// line's indentation implies are finished. An empty line (a newline directly
// followed by another newline) is folded in as its own newlines() event
// rather than participating in indent-level bookkeeping, so the loop below
// keeps going until it finds a line with something before its newline (or
// EOF). A line holding only spaces or tabs is not skipped: it goes through
// the indent comparison like any other line.
//
// Closing always happens before the triggering newline run is handed to
// newlines() (matching the order the comparison step and the "emit the
// newline run" step appear in); a block's own close can therefore land
// before or after the source newline that follows it, depending on whether
// empty lines come between the block and the line that closes it, since
// each empty line's newline is written as soon as it is read. Both orderings preserve newline
// count and relative order, which is all §8 requires.
func stateIndentImpl(d *driver) stateFn {
	for {
		if d.offEnd() {
			return stateEnd
		}
		d.require("\n")
		ws := d.acceptRun(isInlineWS)
		if ws == "" && d.peek(1) == "\n" {
			logger.Debugf("indent: blank line\n")
			d.em.newlines(d.conclude())
			continue
		}
		text := ws
		top := d.indentLevels[len(d.indentLevels)-1]
		if hasProperPrefix(text, top) {
			logger.Debugf("indent: push %q (was %q)\n", text, top)
			d.indentLevels = append(d.indentLevels, text)
			d.indentedBlocks = append(d.indentedBlocks, 0)
		} else {
			logger.Debugf("indent: close to %q (was %q)\n", text, top)
			closeToLevel(d, text)
		}
		d.em.newlines(d.conclude())
		return stateTag
	}
}

// closeToLevel closes every block that must end before a line indented
// exactly text can begin. It walks the indent stack down from the top while
// text is a strict prefix of each level, then closes every block opened at
// or above the level it stops on — including that surviving level's own
// prior sibling, since a new line there always displaces it, whether the
// new line sits at the same level or a shallower one.
func closeToLevel(d *driver, text string) {
	n := len(d.indentLevels)
	i := n - 1
	for i > 0 && hasProperPrefix(d.indentLevels[i], text) {
		i--
	}
	if d.indentLevels[i] != text {
		panic(d.errorf("Bad indentation"))
	}

	blocksToClose := 0
	for j := i; j < n; j++ {
		blocksToClose += d.indentedBlocks[j]
	}
	d.indentLevels = d.indentLevels[:i+1]
	d.indentedBlocks = d.indentedBlocks[:i+1]
	d.indentedBlocks[i] = 0
	logger.Debugf("closeToLevel: closing %d block(s) at survivor index %d\n", blocksToClose, i)
	for k := 0; k < blocksToClose; k++ {
		d.em.endBlock()
	}
}

// controlKeyword is one entry of the control-tag vocabulary: match is the
// literal text recognized at line start, canon is the name it normalizes
// to before being handed to the emitter.
type controlKeyword struct {
	match, canon string
}

// Longer/aliased forms are listed before the shorter keywords they'd
// otherwise shadow (e.g. "block append" before "block", "else if" before
// "else"), so the first match found is always the right one.
var controlKeywordVocab = []controlKeyword{
	{"block append", "append"},
	{"block prepend", "prepend"},
	{"else if", "elif"},
	{"!!!", "doctype"},
	{"each", "for"},
	{"doctype", "doctype"},
	{"extends", "extends"},
	{"elif", "elif"},
	{"else", "else"},
	{"if", "if"},
	{"for", "for"},
	{"block", "block"},
	{"append", "append"},
	{"prepend", "prepend"},
	{"mixin", "mixin"},
	{"case", "case"},
	{"when", "when"},
	{"default", "default"},
	{"//", "//"},
}

// tryControlKeyword attempts to recognize a control-tag keyword at the
// current position. An alphanumeric match must be followed by a non-tag
// character or it is rejected (so "iframe" isn't read as "if" + "rame").
// On success it consumes the keyword and the rest of the line (the head)
// and returns the alias-normalized name.
func tryControlKeyword(d *driver) (canon, head string, ok bool) {
	for _, kw := range controlKeywordVocab {
		if d.peek(len(kw.match)) != kw.match {
			continue
		}
		last := kw.match[len(kw.match)-1]
		if isTagChar(last) {
			next := d.peekAt(len(kw.match), 1)
			if next != "" && isTagChar(next[0]) {
				continue
			}
		}
		d.advance(len(kw.match))
		d.drop()
		d.acceptRun(isInlineWS)
		d.drop()
		advanceLine(d)
		return kw.canon, d.conclude(), true
	}
	return "", "", false
}

// stateTagImpl recognizes the start of a new block at the current
// indentation: a verbatim leader, a filter, a pipe literal, a control-tag
// keyword, an ordinary HTML tag name, or an implicit <div> led by a
// qualifier.
func stateTagImpl(d *driver) stateFn {
	d.indentedBlocks[len(d.indentedBlocks)-1]++

	if leader := d.accept("//-", "-", "=", "!="); leader != "" {
		logger.Debugf("tag: verbatim leader %q\n", leader)
		d.em.startBlock(newControlTag(leader, ""))
		return stateVerbatim
	}

	if d.peek(1) == ":" {
		mark := d.pos
		d.advance(1)
		name := d.acceptRun(isTagChar)
		if name == "" {
			d.pos = mark
		} else {
			d.drop()
			logger.Debugf("tag: filter %q\n", name)
			d.em.startBlock(newControlTag(":", name))
			return stateVerbatim
		}
	}

	if d.peek(1) == "|" {
		d.advance(1)
		d.drop()
		logger.Debugf("tag: pipe literal\n")
		d.em.startBlock(newControlTag("|", ""))
		return stateSingleLineLiteral
	}

	if name, head, ok := tryControlKeyword(d); ok {
		logger.Debugf("tag: control keyword %q head %q\n", name, head)
		d.em.startBlock(newControlTag(name, head))
		return stateIndent
	}

	if name := d.acceptRun(isTagChar); name != "" {
		d.drop()
		logger.Debugf("tag: html tag %q\n", name)
		d.pendingTag = newHTMLTag(name)
		return stateMaybeQualifier
	}

	if c := d.peek(1); c == "." || c == "#" || c == "(" {
		logger.Debugf("tag: implicit div via qualifier %q\n", c)
		d.pendingTag = newHTMLTag("div")
		return stateQualifier
	}

	panic(d.errorf("No valid tag found"))
}

// stateVerbatimImpl captures raw text following a verbatim leader. The
// block spans every following line whose indentation is a strict extension
// of the indent level the leader was opened at.
func stateVerbatimImpl(d *driver) stateFn {
	advanceLine(d)
	for {
		mark := d.pos
		if d.peek(1) != "\n" {
			break
		}
		indent := acceptIndentText(d)
		top := d.indentLevels[len(d.indentLevels)-1]
		if !hasProperPrefix(indent, top) {
			d.pos = mark
			break
		}
		advanceLine(d)
	}
	text := d.conclude()
	logger.Debugf("verbatim: %q\n", text)
	d.em.literal(text)
	return stateIndent
}

// stateMaybeQualifierImpl decides whether a qualifier (class, id, or
// attribute list) follows the tag just built, or whether we've reached a
// tag concluder / end of tag already.
func stateMaybeQualifierImpl(d *driver) stateFn {
	switch c := d.peek(1); c {
	case "#", "(":
		return stateQualifier(d)
	case ".":
		next := d.peekAt(1, 1)
		if next != "" && isIdentChar(next[0]) {
			return stateQualifier(d)
		}
		return stateMaybeTagConcluder(d)
	default:
		return stateMaybeTagConcluder(d)
	}
}

// stateQualifier reads a single class/id/attribute-list qualifier and
// feeds it into the tag under construction.
func stateQualifier(d *driver) stateFn {
	q := d.require(".", "#", "(")
	d.drop()
	switch q {
	case "#":
		id := d.acceptRun(isIdentChar)
		if id == "" {
			panic(d.errorf("No valid id found"))
		}
		d.drop()
		d.pendingTag.ID = id
		return stateMaybeQualifier
	case ".":
		d.pendingTag.Class = d.acceptRun(isIdentChar)
		d.drop()
		return stateMaybeQualifier
	default: // "("
		return stateMaybeAttrKey
	}
}

func stateMaybeAttrKeyImpl(d *driver) stateFn {
	if d.peek(1) == ")" {
		d.advance(1)
		d.drop()
		return stateMaybeQualifier
	}
	key := d.acceptRun(isKeyChar)
	if key == "" {
		panic(d.errorf("No valid attribute key found"))
	}
	d.drop()
	d.pendingKey = key
	return stateAfterAttrKey
}

func stateAfterAttrKeyImpl(d *driver) stateFn {
	switch d.peek(1) {
	case "=":
		d.advance(1)
		d.drop()
		return stateExpr
	case ",":
		d.advance(1)
		d.drop()
		d.pendingTag.Attr.set(d.pendingKey, "")
		return stateMaybeAttrKey
	case ")":
		d.advance(1)
		d.drop()
		d.pendingTag.Attr.set(d.pendingKey, "")
		return stateMaybeQualifier
	default:
		panic(d.errorf("Bad character after attribute key"))
	}
}

// stateExprImpl scans a balanced host expression up to a bare ',' or ')':
// a single-character string-quote state plus a bracket stack over ()[]{}.
func stateExprImpl(d *driver) stateFn {
	var quote byte
	var stack []byte
	for {
		if d.offEnd() {
			panic(d.errorf("Unterminated host expression"))
		}
		c := d.buf[d.pos]
		d.pos++

		if quote != 0 {
			switch {
			case c == quote:
				quote = 0
			case c == '\\':
				if d.offEnd() {
					panic(d.errorf("Unterminated string literal"))
				}
				d.pos++
			}
			continue
		}

		switch c {
		case '\'', '"':
			quote = c
		case '(', '[', '{':
			stack = append(stack, c)
		case ')':
			if len(stack) == 0 {
				return concludeExpr(d, stateMaybeQualifier)
			}
			if stack[len(stack)-1] != '(' {
				panic(d.errorf("Closing ')' doesn't match opening %q", stack[len(stack)-1]))
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				panic(d.errorf("No opening '[' to close"))
			}
			stack = stack[:len(stack)-1]
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				panic(d.errorf("No opening '{' to close"))
			}
			stack = stack[:len(stack)-1]
		case ',':
			if len(stack) == 0 {
				return concludeExpr(d, stateMaybeAttrKey)
			}
		}
	}
}

// concludeExpr backs up over the terminating delimiter so it's excluded
// from the concluded expression text, records the attribute, and returns
// next as the following state.
func concludeExpr(d *driver, next stateFn) stateFn {
	d.backup(1)
	d.pendingTag.Attr.set(d.pendingKey, d.conclude())
	d.advance(1)
	d.drop()
	return next
}

// stateMaybeTagConcluder commits the tag under construction and decides
// what follows it: a nested sole child, its own verbatim block, or the
// rest of the line as plain text.
func stateMaybeTagConcluder(d *driver) stateFn {
	tag := d.pendingTag
	d.pendingTag = Tag{}
	logger.Debugf("maybeTagConcluder: %s %q\n", tag.Name, tag.Head)
	d.em.startBlock(tag)

	switch {
	case d.peek(1) == ":":
		d.advance(1)
		d.drop()
		d.acceptRun(isInlineWS)
		d.drop()
		return stateTag
	case d.peek(2) == "!=", d.peek(1) == "=":
		// Sugar for ": =" / ": !=" — re-enter tag so its own leader
		// detection opens the verbatim child.
		return stateTag
	case d.peek(1) == ".":
		d.advance(1)
		d.drop()
		return stateVerbatim
	default:
		return stateSingleLineLiteral
	}
}

func stateSingleLineLiteralImpl(d *driver) stateFn {
	advanceLine(d)
	text := d.conclude()
	if text != "" {
		logger.Debugf("singleLineLiteral: %q\n", text)
		d.em.literal(text)
	}
	return stateIndent
}

// stateEnd is the terminal state: every state reaching EOF lands here via
// eofAware. Any tags still open at this point (the source never dedented
// past them, because there was nothing left to dedent for) are closed
// before the final flush, so the open-block stack invariant holds at end().
func stateEnd(d *driver) stateFn {
	if d.pendingTag.Name != "" {
		// A tag built right at EOF ("p", "div#x") is already counted in
		// indentedBlocks; commit it so the count matches the stack.
		d.em.startBlock(d.pendingTag)
		d.pendingTag = Tag{}
	}
	total := 0
	for _, c := range d.indentedBlocks {
		total += c
	}
	logger.Debugf("end: closing %d remaining block(s)\n", total)
	for i := 0; i < total; i++ {
		d.em.endBlock()
	}
	d.indentLevels = d.indentLevels[:1]
	d.indentedBlocks = []int{0}

	d.em.end()
	return nil
}
