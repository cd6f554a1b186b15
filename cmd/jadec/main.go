// Command jadec translates a template from standard input (or a named
// file) and writes the translated template to standard output.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaq/jadepy/internal/compile"
)

func main() {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:           "jadec [file]",
		Short:         "Translate a template into its target-dialect equivalent",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "<stdin>"
			in := io.Reader(os.Stdin)
			if len(args) == 1 {
				name = args[0]
				f, err := os.Open(name)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			if err := compile.Compile(name, in, os.Stdout); err != nil {
				printDiagnostic(os.Stderr, err, !noColor)
				return err
			}
			return nil
		},
	}
	rootCmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI-colored diagnostics")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printDiagnostic renders err in the §6 diagnostic format. Errors that
// aren't a *compile.Error (I/O failures reading stdin or a named file)
// are printed plainly.
func printDiagnostic(w io.Writer, err error, color bool) {
	ce, ok := err.(*compile.Error)
	if !ok {
		fmt.Fprintln(w, err)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s around line %d, column %d:\n", ce.Kind, ce.Msg, ce.Line, ce.Column)
	fmt.Fprintf(&b, "    %s\n", ce.LineText)
	fmt.Fprintf(&b, "    %s^\n", strings.Repeat(" ", ce.Column-1))

	if color {
		fmt.Fprint(w, "\x1b[31;1m"+b.String()+"\x1b[0m")
		return
	}
	fmt.Fprint(w, b.String())
}
