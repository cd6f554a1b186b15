package compile

import (
	"fmt"
	"io"
	"strings"
)

// deferredClose holds a closer that end_block produced for an if/elif block
// but hasn't written yet, because the next sibling (elif/else) might still
// need to see the pre-close state rather than a closed one. It is either
// dismissed (discarded, because the chain continues) or flushed (written
// out, because the chain ended).
type deferredClose struct {
	has        bool
	closer     string
	trailingWS string
}

// emitter turns the stream of start_block/end_block/literal/newlines events
// the parser produces into target-dialect text.
type emitter struct {
	out io.Writer
	drv *driver // back-reference, for errors that need a source position

	blocks   []Tag
	deferred deferredClose

	tmpvarCount int
}

func (e *emitter) write(s string) {
	if s == "" {
		return
	}
	if _, err := io.WriteString(e.out, s); err != nil {
		panic(err)
	}
}

// dismiss drops a pending deferred close without writing its closer: used
// when an elif/else continues the chain.
func (e *emitter) dismiss() {
	if !e.deferred.has {
		return
	}
	logger.Debugf("deferred: dismiss %q\n", e.deferred.closer)
	e.write(e.deferred.trailingWS)
	e.deferred = deferredClose{}
}

// flush writes out a pending deferred close: used whenever anything other
// than elif/else follows, or at end of input.
func (e *emitter) flush() {
	if !e.deferred.has {
		return
	}
	logger.Debugf("deferred: flush %q\n", e.deferred.closer)
	e.write(e.deferred.closer + e.deferred.trailingWS)
	e.deferred = deferredClose{}
}

// startBlock opens tag: it reconciles the deferred-close slot, pushes tag
// onto the open-block stack, and writes whatever opening text the tag
// implies.
func (e *emitter) startBlock(tag Tag) {
	logger.Debugf("startBlock: %s %q\n", tag.Name, tag.Head)
	if tag.Kind == tagControl && (tag.Name == "elif" || tag.Name == "else") {
		e.dismiss()
	} else {
		e.flush()
	}

	e.blocks = append(e.blocks, tag)
	idx := len(e.blocks) - 1

	switch {
	case tag.Kind == tagHTML:
		e.writeHTMLOpener(e.blocks[idx])
	case tag.Name == "case":
		e.blocks[idx].CaseVar = e.putTmpVar(tag.Head)
	case tag.Name == "when":
		e.startWhen(idx)
	case tag.Name == "default":
		e.startDefault(idx)
	default:
		e.write(openerFor(tag))
	}
}

// endBlock closes the tag most recently opened by startBlock. A pending
// deferred close belongs to a chain nested inside this tag, so it is
// flushed first.
func (e *emitter) endBlock() {
	e.flush()
	n := len(e.blocks)
	tag := e.blocks[n-1]
	e.blocks = e.blocks[:n-1]
	logger.Debugf("endBlock: %s\n", tag.Name)

	switch {
	case tag.Kind == tagHTML:
		e.write("</" + tag.Name + ">")
	case tag.Name == "if" || tag.Name == "elif":
		e.deferred = deferredClose{has: true, closer: "{% endif %}"}
	case tag.Name == "case":
		if !tag.CaseSeenWhen {
			panic(e.drv.errorf("case tag has no when child"))
		}
		e.write("{% endif %}")
	case tag.Name == "when" || tag.Name == "default":
		// Nothing to emit: the closing {% endif %} belongs to case.
	default:
		e.write(closerFor(tag))
	}
}

// literal writes source text straight through, first flushing any deferred
// close (literal text always ends an if/elif chain).
func (e *emitter) literal(text string) {
	logger.Debugf("literal: %q\n", text)
	e.flush()
	e.write(text)
}

// newlines writes (or stashes, if a close is deferred) whitespace that
// carries no content of its own: blank lines and the indentation prefix of
// the next line.
func (e *emitter) newlines(text string) {
	if e.deferred.has {
		logger.Debugf("newlines: stashing %q on deferred close\n", text)
		e.deferred.trailingWS = text
		return
	}
	e.write(text)
}

// end flushes any final deferred close. Called once, when the driver
// reaches the end of input.
func (e *emitter) end() {
	e.flush()
}

// putTmpVar allocates a fresh template-local variable bound to val and
// returns its name, used to evaluate a case tag's subject exactly once.
func (e *emitter) putTmpVar(val string) string {
	name := fmt.Sprintf("_jade_%d", e.tmpvarCount)
	e.tmpvarCount++
	e.write("{% set " + name + " = " + val + " %}")
	return name
}

// startWhen emits the if/elif that compares case's temp variable against
// when's subject, and records on the parent case tag that a when has now
// been seen (so a later when becomes elif, and default is only legal
// after at least one when).
func (e *emitter) startWhen(idx int) {
	if idx < 1 || e.blocks[idx-1].Name != "case" {
		panic(e.drv.errorf("when tag not child of case tag"))
	}
	caseTag := &e.blocks[idx-1]
	if caseTag.CaseSeenDefault {
		panic(e.drv.errorf("when tag after default tag"))
	}
	kw := "if"
	if caseTag.CaseSeenWhen {
		kw = "elif"
	}
	e.write("{% " + kw + " " + caseTag.CaseVar + " == " + e.blocks[idx].Head + " %}")
	caseTag.CaseSeenWhen = true
}

// startDefault emits the catch-all else branch of the case chain.
func (e *emitter) startDefault(idx int) {
	if idx < 1 || e.blocks[idx-1].Name != "case" {
		panic(e.drv.errorf("default tag not child of case tag"))
	}
	caseTag := &e.blocks[idx-1]
	if caseTag.CaseSeenDefault {
		panic(e.drv.errorf("duplicate default tag"))
	}
	if !caseTag.CaseSeenWhen {
		panic(e.drv.errorf("default tag before any when tag"))
	}
	e.write("{% else %}")
	caseTag.CaseSeenDefault = true
}

// writeHTMLOpener writes the opening tag for an HTMLTag, reconciling its
// id/class shorthand against any id/class carried in its attribute list.
func (e *emitter) writeHTMLOpener(t Tag) {
	e.write("<" + t.Name)

	if v, ok := t.Attr.get("id"); ok {
		e.write(` id="{{ ` + v + ` |escape}}"`)
		t.Attr.delete("id")
	} else if t.ID != "" {
		e.write(` id="` + t.ID + `"`)
	}

	if v, ok := t.Attr.get("class"); ok {
		sep := ""
		if t.Class != "" {
			sep = " "
		}
		e.write(` class="` + t.Class + sep + `{{ _jade_class(` + v + `) |escape}}"`)
		t.Attr.delete("class")
	} else if t.Class != "" {
		e.write(` class="` + t.Class + `"`)
	}

	for _, k := range t.Attr.keys {
		e.write(" " + k + `="{{ ` + t.Attr.values[k] + ` |escape}}"`)
	}

	e.write(">")
}

// blockFrag is the opener/closer pair a control tag's name maps to in the
// target dialect.
type blockFrag struct {
	open  func(Tag) string
	close func(Tag) string
}

func defaultOpen(t Tag) string  { return "{% " + t.Name + " " + t.Head + " %}" }
func defaultClose(t Tag) string { return "{% end" + t.Name + " %}" }

var controlBlocks = map[string]blockFrag{
	"=":  {open: func(Tag) string { return "{{ " }, close: func(Tag) string { return " }}" }},
	"!=": {open: func(Tag) string { return "{{ " }, close: func(Tag) string { return " |safe}}" }},
	"-":  {open: func(Tag) string { return "{% " }, close: func(Tag) string { return " %}" }},
	"|":  {open: func(Tag) string { return "" }, close: func(Tag) string { return "" }},
	"//": {
		open:  func(t Tag) string { return "<!--" + t.Head },
		close: func(Tag) string { return "-->" },
	},
	"//-": {open: func(Tag) string { return "{#" }, close: func(Tag) string { return "#}" }},
	":": {
		open:  func(t Tag) string { return "{% filter " + t.Head + " %}" },
		close: func(Tag) string { return "{% endfilter %}" },
	},
	"mixin": {
		open:  func(t Tag) string { return "{% macro " + t.Head + " %}" },
		close: func(Tag) string { return "{% endmacro %}" },
	},
	"prepend": {
		open:  func(t Tag) string { return "{% block " + t.Head + " %}" },
		close: func(Tag) string { return "{{ super() }} {% endblock %}" },
	},
	"append": {
		open:  func(t Tag) string { return "{% block " + t.Head + " %} {{ super() }}" },
		close: func(Tag) string { return "{% endblock %}" },
	},
	"extends": {open: defaultOpen, close: func(Tag) string { return "" }},
	"doctype": {
		open:  func(t Tag) string { return doctypeFor(t.Head) },
		close: func(Tag) string { return "" },
	},
	"else": {open: func(Tag) string { return "{% else %}" }, close: func(Tag) string { return "{% endif %}" }},
}

func openerFor(t Tag) string {
	if f, ok := controlBlocks[t.Name]; ok {
		return f.open(t)
	}
	return defaultOpen(t)
}

func closerFor(t Tag) string {
	if f, ok := controlBlocks[t.Name]; ok {
		return f.close(t)
	}
	return defaultClose(t)
}

var doctypes = map[string]string{
	"default":      "<!DOCTYPE html>",
	"5":            "<!DOCTYPE html>",
	"xml":          `<?xml version="1.0" encoding="utf-8" ?>`,
	"transitional": `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Transitional//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-transitional.dtd">`,
	"strict":       `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">`,
	"frameset":     `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Frameset//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-frameset.dtd">`,
	"1.1":          `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.1//EN" "http://www.w3.org/TR/xhtml11/DTD/xhtml11.dtd">`,
	"basic":        `<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML Basic 1.1//EN" "http://www.w3.org/TR/xhtml-basic/xhtml-basic11.dtd">`,
	"mobile":       `<!DOCTYPE html PUBLIC "-//WAPFORUM//DTD XHTML Mobile 1.2//EN" "http://www.openmobilealliance.org/tech/DTD/xhtml-mobile12.dtd">`,
}

func doctypeFor(head string) string {
	key := strings.ToLower(strings.TrimSpace(head))
	if key == "" {
		key = "default"
	}
	if v, ok := doctypes[key]; ok {
		return v
	}
	return "<!DOCTYPE " + head + ">"
}
