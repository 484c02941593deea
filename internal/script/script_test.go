package script

import (
	"context"
	"strings"
	"testing"

	"go.starlark.net/starlark"

	"github.com/marcelocantos/gosh/internal/pipeline"
)

// sha256 of "data\n", as sha256sum prints it for stdin.
const dataDigestLine = "6667b2d1aab6a00caa5aee5af8ad9f1465e567abf1c209d15727d57b3e8f6e5f  -"

func newEngine(t *testing.T, args []string) *Engine {
	t.Helper()
	return NewEngine(context.Background(), pipeline.New(args))
}

func globalString(t *testing.T, globals starlark.StringDict, name string) string {
	t.Helper()
	v, ok := globals[name]
	if !ok {
		t.Fatalf("global %q not defined", name)
	}
	s, ok := starlark.AsString(v)
	if !ok {
		t.Fatalf("global %q is %s, not a string", name, v.Type())
	}
	return s
}

func TestScriptInputDigest(t *testing.T) {
	en := newEngine(t, nil)
	globals, err := en.Run("digest.star", []byte(`
input("data\n")
sh("sha256sum")
digest = run().stdout
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := globalString(t, globals, "digest"); got != dataDigestLine {
		t.Errorf("digest = %q, want %q", got, dataDigestLine)
	}
}

func TestScriptPipeChain(t *testing.T) {
	en := newEngine(t, nil)
	globals, err := en.Run("chain.star", []byte(`
sh("echo data")
pipe("sha256sum")
res = run()
digest = res.output
ok = res.success
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := globalString(t, globals, "digest"); got != dataDigestLine {
		t.Errorf("digest = %q, want %q", got, dataDigestLine)
	}
	if globals["ok"] != starlark.True {
		t.Errorf("ok = %v, want True", globals["ok"])
	}
}

func TestScriptResultFields(t *testing.T) {
	en := newEngine(t, nil)
	globals, err := en.Run("exit.star", []byte(`
sh("sh -c 'exit 3'")
res = run()
code = res.exit_code
ok = res.success
`))
	if err != nil {
		t.Fatal(err)
	}
	code, err := starlark.AsInt32(globals["code"])
	if err != nil {
		t.Fatal(err)
	}
	if code != 3 {
		t.Errorf("exit_code = %d, want 3", code)
	}
	if globals["ok"] != starlark.False {
		t.Errorf("success = %v, want False", globals["ok"])
	}
}

func TestScriptOutput(t *testing.T) {
	en := newEngine(t, nil)
	globals, err := en.Run("output.star", []byte(`
sh("echo hi")
o = output()
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := globalString(t, globals, "o"); got != "hi" {
		t.Errorf("output = %q, want %q", got, "hi")
	}
}

func TestScriptArgv(t *testing.T) {
	en := newEngine(t, []string{"gosh", "world"})
	globals, err := en.Run("argv.star", []byte(`
name = argv(1)
missing = argv(9, "fallback")
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := globalString(t, globals, "name"); got != "world" {
		t.Errorf("argv(1) = %q, want %q", got, "world")
	}
	if got := globalString(t, globals, "missing"); got != "fallback" {
		t.Errorf("argv(9) = %q, want %q", got, "fallback")
	}
}

func TestScriptRoutingErrorSurfaces(t *testing.T) {
	en := newEngine(t, nil)
	_, err := en.Run("bad.star", []byte(`sh("cat", stdin="prev-stdout")`))
	if err == nil {
		t.Fatal("expected routing error")
	}
	if !strings.Contains(err.Error(), "bad.star") {
		t.Errorf("error should carry the script backtrace, got: %v", err)
	}
}

func TestScriptStageSpecs(t *testing.T) {
	en := newEngine(t, nil)
	globals, err := en.Run("spec.star", []byte(`
sh("sh -c 'echo oops >&2'", stderr="stdout", stdout="pipe")
merged = run().stdout
`))
	if err != nil {
		t.Fatal(err)
	}
	if got := globalString(t, globals, "merged"); got != "oops" {
		t.Errorf("merged = %q, want %q", got, "oops")
	}
}
