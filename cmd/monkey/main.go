package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"golang.org/x/term"

	"monkey/internal/compiler"
	"monkey/internal/config"
	"monkey/internal/diag"
	"monkey/internal/image"
	"monkey/internal/lexer"
	"monkey/internal/parser"
	"monkey/internal/repl"
	"monkey/internal/vm"
)

var log = commonlog.GetLogger("monkey.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// globalFlags are accepted before the subcommand.
type globalFlags struct {
	dis       bool
	trace     bool
	verbosity int
	maxMem    int64
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("monkey", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var g globalFlags
	fs.BoolVar(&g.dis, "dis", false, "dump constants and bytecode before running")
	fs.BoolVar(&g.trace, "trace", false, "log every executed instruction at debug level")
	fs.IntVar(&g.verbosity, "v", -1, "log verbosity (overrides monkey.toml)")
	fs.Int64Var(&g.maxMem, "max-mem", 0, "allocation budget in bytes (overrides monkey.toml)")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: monkey [flags] [run|build|dis|repl] [path]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return runREPL(stdin, stdout, stderr, g)
	}

	cmd, cmdArgs := rest[0], rest[1:]
	switch cmd {
	case "repl":
		if len(cmdArgs) != 0 {
			fmt.Fprintln(stderr, "usage: monkey repl")
			return 2
		}
		return runREPL(stdin, stdout, stderr, g)
	case "run":
		if len(cmdArgs) > 1 {
			fmt.Fprintln(stderr, "usage: monkey run [file|dir]")
			return 2
		}
		target := "."
		if len(cmdArgs) == 1 {
			target = cmdArgs[0]
		}
		return runTarget(target, stdout, stderr, g)
	case "build":
		return runBuild(cmdArgs, stdout, stderr, g)
	case "dis":
		if len(cmdArgs) != 1 {
			fmt.Fprintln(stderr, "usage: monkey dis <file|dir>")
			return 2
		}
		return runDis(cmdArgs[0], stdout, stderr, g)
	default:
		if len(cmdArgs) != 0 {
			fmt.Fprintf(stderr, "unknown command: %s\n", cmd)
			return 2
		}
		return runTarget(cmd, stdout, stderr, g)
	}
}

// loadManifest finds the monkey.toml governing target and configures
// logging from it. Without a manifest the defaults apply.
func loadManifest(target string, g globalFlags) (*config.Manifest, error) {
	dir := target
	if info, err := os.Stat(target); err != nil || !info.IsDir() {
		dir = filepath.Dir(target)
	}
	m, err := config.FindAndLoad(dir)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = config.Default()
		if abs, err := filepath.Abs(dir); err == nil {
			m.Dir = abs
		}
	}

	verbosity := m.Log.Verbosity
	if g.verbosity >= 0 {
		verbosity = g.verbosity
	}
	commonlog.Configure(verbosity, m.LogFile())
	return m, nil
}

func vmOptions(m *config.Manifest, g globalFlags) vm.Options {
	opts := m.VMOptions()
	if g.trace {
		opts.Trace = true
	}
	if g.maxMem > 0 {
		opts.MaxMemory = g.maxMem
	}
	return opts
}

// resolveEntry maps a directory to its manifest entry file.
func resolveEntry(target string, m *config.Manifest) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		if abs, err := filepath.Abs(target); err == nil && abs == m.Dir {
			return m.EntryPath()
		}
		return filepath.Join(target, filepath.Base(m.Project.Entry))
	}
	return target
}

// load produces bytecode for path: images are decoded, anything else is
// compiled as source.
func load(path string) (*compiler.Bytecode, error) {
	if strings.EqualFold(filepath.Ext(path), image.Ext) {
		return image.ReadFile(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compileSource(path, string(src))
}

// sourceError is a parse or compile failure already rendered as
// path:line:col diagnostics.
type sourceError struct {
	text string
}

func (e *sourceError) Error() string { return e.text }

func compileSource(path, src string) (*compiler.Bytecode, error) {
	p := parser.New(lexer.New(src))
	program := p.ParseProgram()
	if ds := p.Diagnostics(); len(ds) > 0 {
		return nil, &sourceError{text: strings.TrimRight(diag.FormatAll(path, ds), "\n")}
	}

	c := compiler.New()
	if err := c.Compile(program); err != nil {
		var cerr *compiler.Error
		if errors.As(err, &cerr) {
			return nil, &sourceError{text: cerr.Diagnostic().Format(path)}
		}
		return nil, err
	}
	log.Debugf("compiled %s: %d bytes, %d constants", path, len(c.Bytecode().Instructions), len(c.Bytecode().Constants))
	return c.Bytecode(), nil
}

func runTarget(target string, stdout, stderr io.Writer, g globalFlags) int {
	m, err := loadManifest(target, g)
	if err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return 1
	}
	path := resolveEntry(target, m)

	bc, err := load(path)
	if err != nil {
		reportLoadError(stderr, err)
		return 1
	}
	if g.dis {
		fmt.Fprint(stdout, compiler.Disassemble(bc))
		fmt.Fprintln(stdout)
	}

	machine := vm.NewWithOptions(bc, vmOptions(m, g))
	if err := machine.Run(); err != nil {
		reportRuntimeError(stderr, err)
		return 1
	}
	if result := machine.LastPoppedStackElem(); result != nil {
		fmt.Fprintln(stdout, result.Inspect())
	}
	return 0
}

func runBuild(args []string, stdout, stderr io.Writer, g globalFlags) int {
	fs := flag.NewFlagSet("build", flag.ContinueOnError)
	fs.SetOutput(stderr)
	out := fs.String("o", "", "output image path")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	target := "."
	switch fs.NArg() {
	case 0:
	case 1:
		target = fs.Arg(0)
	default:
		fmt.Fprintln(stderr, "usage: monkey build [-o out.mkc] [file|dir]")
		return 2
	}

	m, err := loadManifest(target, g)
	if err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return 1
	}
	path := resolveEntry(target, m)
	if strings.EqualFold(filepath.Ext(path), image.Ext) {
		fmt.Fprintf(stderr, "build: %s is already an image\n", path)
		return 1
	}

	bc, err := load(path)
	if err != nil {
		reportLoadError(stderr, err)
		return 1
	}

	dest := *out
	if dest == "" {
		dest = defaultOutput(target, path, m)
	}
	if err := image.WriteFile(dest, bc); err != nil {
		fmt.Fprintln(stderr, "write error:", err)
		return 1
	}
	fmt.Fprintf(stdout, "wrote %s\n", dest)
	return 0
}

// defaultOutput is the manifest's build.output for project builds and
// the source name with the image extension otherwise.
func defaultOutput(target, path string, m *config.Manifest) string {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		if filepath.IsAbs(m.Build.Output) {
			return m.Build.Output
		}
		return filepath.Join(target, m.Build.Output)
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + image.Ext
}

func runDis(target string, stdout, stderr io.Writer, g globalFlags) int {
	m, err := loadManifest(target, g)
	if err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return 1
	}
	bc, err := load(resolveEntry(target, m))
	if err != nil {
		reportLoadError(stderr, err)
		return 1
	}
	fmt.Fprint(stdout, compiler.Disassemble(bc))
	return 0
}

func runREPL(stdin io.Reader, stdout, stderr io.Writer, g globalFlags) int {
	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	m, err := loadManifest(cwd, g)
	if err != nil {
		fmt.Fprintln(stderr, "config error:", err)
		return 1
	}
	opts := repl.Options{VM: vmOptions(m, g)}

	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if home, err := os.UserHomeDir(); err == nil {
			opts.HistoryFile = filepath.Join(home, ".monkey_history")
		}
		if err := repl.Run(stdout, opts); err != nil {
			fmt.Fprintln(stderr, "repl error:", err)
			return 1
		}
		return 0
	}

	repl.Start(stdin, stdout, opts)
	return 0
}

func reportLoadError(w io.Writer, err error) {
	var serr *sourceError
	if errors.As(err, &serr) {
		fmt.Fprintln(w, serr.text)
		return
	}
	fmt.Fprintln(w, "load error:", err)
}

func reportRuntimeError(w io.Writer, err error) {
	var rerr *vm.RuntimeError
	if errors.As(err, &rerr) {
		fmt.Fprint(w, rerr.StackTrace())
		return
	}
	fmt.Fprintln(w, "runtime error:", err)
}
