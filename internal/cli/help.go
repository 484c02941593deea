package cli

import (
	"fmt"
	"io"

	"github.com/marcelocantos/gosh/internal/pipeline"
)

// RunHelp prints general usage.
func RunHelp(w io.Writer) int {
	fmt.Fprintln(w, "gosh — programmatic pipeline runner")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "usage:")
	fmt.Fprintf(w, "  gosh --pipe <cmd> [args...] %s ...   run a pipeline (default mode)\n", pipeline.OpPipe)
	fmt.Fprintln(w, "  gosh --eval '<pipeline>'             tokenize one string and run it")
	fmt.Fprintln(w, "  gosh --script file.star [args...]    run a Starlark pipeline script")
	fmt.Fprintln(w, "  gosh --mcp                           serve the run_pipeline tool over stdio")
	fmt.Fprintln(w, "  gosh --audit <verify|show|tail [n]>  audit log operations")
	fmt.Fprintln(w, "  gosh --version                       show version")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "pipeline operators:")
	fmt.Fprintf(w, "  %s  pipe (stdout → stdin)\n", pipeline.OpPipe)
	fmt.Fprintf(w, "  %s  redirect stdin from file\n", pipeline.OpRedirectIn)
	fmt.Fprintf(w, "  %s  redirect captured stdout to file\n", pipeline.OpRedirectOut)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "script builtins: sh, pipe, input, run, output, argv")
	return 0
}
