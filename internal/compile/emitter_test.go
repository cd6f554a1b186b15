package compile

import (
	"strings"
	"testing"
)

func newTestEmitter() (*emitter, *strings.Builder) {
	var out strings.Builder
	em := &emitter{out: &out}
	em.drv = newDriver("t", "", em)
	return em, &out
}

func TestDeferredCloseFlushOnLiteral(t *testing.T) {
	em, out := newTestEmitter()

	em.startBlock(newControlTag("if", "x"))
	em.endBlock() // defers "{% endif %}"
	if !em.deferred.has {
		t.Fatal("expected a deferred close after ending an if block")
	}
	em.newlines("\n")
	if em.deferred.trailingWS != "\n" {
		t.Fatalf("trailingWS = %q, want %q", em.deferred.trailingWS, "\n")
	}
	if out.String() != "{% if x %}" {
		t.Fatalf("premature write: %q", out.String())
	}

	em.literal("text")
	want := "{% if x %}{% endif %}\ntext"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
	if em.deferred.has {
		t.Fatal("deferred close should be cleared after flush")
	}
}

func TestDeferredCloseDismissedByElse(t *testing.T) {
	em, out := newTestEmitter()

	em.startBlock(newControlTag("if", "x"))
	em.endBlock()
	em.newlines("\n")
	em.startBlock(newControlTag("else", ""))

	want := "{% if x %}\n{% else %}"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
	if em.deferred.has {
		t.Fatal("deferred close should be cleared after dismiss")
	}
}

func TestDeferredCloseDismissedByElif(t *testing.T) {
	em, out := newTestEmitter()

	em.startBlock(newControlTag("if", "x"))
	em.endBlock()
	em.newlines("\n")
	em.startBlock(newControlTag("elif", "y"))

	want := "{% if x %}\n{% elif y %}"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestDeferredCloseFlushedAtEnd(t *testing.T) {
	em, out := newTestEmitter()

	em.startBlock(newControlTag("if", "x"))
	em.endBlock()
	em.newlines("\n")
	em.end()

	want := "{% if x %}{% endif %}\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestDeferredCloseFlushedByNonElseStartBlock(t *testing.T) {
	em, out := newTestEmitter()

	em.startBlock(newControlTag("if", "x"))
	em.endBlock()
	em.newlines("\n")
	em.startBlock(newHTMLTag("p"))

	want := "{% if x %}{% endif %}\n<p>"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestNewlinesWithoutDeferredWritesDirectly(t *testing.T) {
	em, out := newTestEmitter()
	em.newlines("\n\n")
	if out.String() != "\n\n" {
		t.Fatalf("got %q", out.String())
	}
}

func TestCaseRequiresAWhenChild(t *testing.T) {
	em, _ := newTestEmitter()
	em.startBlock(newControlTag("case", "x"))

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic for case with no when")
		}
	}()
	em.endBlock()
}

func TestWhenMustBeChildOfCase(t *testing.T) {
	em, _ := newTestEmitter()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for when outside case")
		}
	}()
	em.startBlock(newControlTag("when", "1"))
}

func TestDefaultBeforeWhenErrors(t *testing.T) {
	em, _ := newTestEmitter()
	em.startBlock(newControlTag("case", "x"))
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for default before any when")
		}
	}()
	em.startBlock(newControlTag("default", ""))
}

func TestDuplicateDefaultErrors(t *testing.T) {
	em, _ := newTestEmitter()
	em.startBlock(newControlTag("case", "x"))
	em.startBlock(newControlTag("when", "1"))
	em.endBlock()
	em.startBlock(newControlTag("default", ""))
	em.endBlock()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for duplicate default")
		}
	}()
	em.startBlock(newControlTag("default", ""))
}

func TestWhenAfterDefaultErrors(t *testing.T) {
	em, _ := newTestEmitter()
	em.startBlock(newControlTag("case", "x"))
	em.startBlock(newControlTag("when", "1"))
	em.endBlock()
	em.startBlock(newControlTag("default", ""))
	em.endBlock()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for when after default")
		}
	}()
	em.startBlock(newControlTag("when", "2"))
}

func TestHTMLOpenerIDAndClassShorthandAndAttr(t *testing.T) {
	em, out := newTestEmitter()
	tag := newHTMLTag("div")
	tag.ID = "main"
	tag.Class = "big"
	tag.Attr.set("class", "extra")
	tag.Attr.set("data-x", "1")

	em.startBlock(tag)
	want := `<div id="main" class="big {{ _jade_class(extra) |escape}}" data-x="{{ 1 |escape}}">`
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestHTMLOpenerIDAttrOverridesShorthand(t *testing.T) {
	em, out := newTestEmitter()
	tag := newHTMLTag("div")
	tag.ID = "shorthand"
	tag.Attr.set("id", "expr()")

	em.startBlock(tag)
	want := `<div id="{{ expr() |escape}}">`
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestDoctypeFor(t *testing.T) {
	cases := []struct{ head, want string }{
		{"", "<!DOCTYPE html>"},
		{"5", "<!DOCTYPE html>"},
		{"Default", "<!DOCTYPE html>"},
		{"xml", `<?xml version="1.0" encoding="utf-8" ?>`},
		{"bogus", "<!DOCTYPE bogus>"},
	}
	for _, c := range cases {
		if got := doctypeFor(c.head); got != c.want {
			t.Errorf("doctypeFor(%q) = %q, want %q", c.head, got, c.want)
		}
	}
}
