// Package compile translates an indentation-sensitive template source into
// a target-dialect template, in a single synchronous pass: a driver walks
// the source under a state-function parser, which drives an emitter that
// writes the translated text as it goes.
package compile

import "io"

// Compile reads the entire template named name from r, translates it, and
// writes the result to w. name is used only to annotate diagnostics.
//
// A malformed source or an internal parser defect is reported as a
// *Error; any other error comes from r or w.
func Compile(name string, r io.Reader, w io.Writer) (err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	em := &emitter{out: w}
	d := newDriver(name, string(data), em)
	em.drv = d

	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if e, ok := rec.(error); ok {
			err = e
			return
		}
		panic(rec)
	}()

	d.run(stateTag)
	return nil
}
