package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"catalogetl/internal/config"
)

// TestHelperProcess is a subprocess entrypoint used by tests.
//
// This pattern allows tests to execute main() and observe:
//   - process exit codes (including os.Exit),
//   - stdout/stderr output,
//
// without terminating the parent "go test" process.
//
// The parent test runs the current test binary with:
//
//	-test.run=TestHelperProcess
//
// and sets GO_WANT_HELPER_PROCESS=1.
//
// Any arguments after a literal "--" are treated as CLI args for the command.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	// Rebuild os.Args to contain only the command arguments passed after "--".
	args := os.Args
	i := 0
	for ; i < len(args); i++ {
		if args[i] == "--" {
			break
		}
	}
	if i < len(args) {
		os.Args = append([]string{args[0]}, args[i+1:]...)
	} else {
		// No args were provided; keep argv0 only.
		os.Args = []string{args[0]}
	}

	main()
	os.Exit(0)
}

// runCmd executes the command's main() in a subprocess and returns the captured
// stdout, stderr, and the process exit code.
//
// The subprocess is the current test binary, re-invoked with
// -test.run=TestHelperProcess, so it runs on all platforms supported by Go tests.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmdArgs := []string{"-test.run=TestHelperProcess", "--"}
	cmdArgs = append(cmdArgs, args...)

	cmd := exec.Command(os.Args[0], cmdArgs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")

	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf

	err := cmd.Run()
	stdout = outBuf.String()
	stderr = errBuf.String()

	// Exit code handling: nil means exit 0.
	if err == nil {
		return stdout, stderr, 0
	}

	// For non-zero exits, Go returns *exec.ExitError.
	if ee, ok := err.(*exec.ExitError); ok {
		return stdout, stderr, ee.ExitCode()
	}

	// Unexpected error type (e.g., binary not runnable). Fail loudly.
	t.Fatalf("unexpected run error: %T: %v", err, err)
	return "", "", 1
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.csv")
	csv := strings.Join([]string{
		"Product Quality Colour Number,Product Type,Colour,Range,Size",
		"A-1,Shirt,Red; Blue,Pro,M",
		"A-1,Shirt,Red; Blue,Pro,L",
		"B-2,Pants,Navy,Pro,S",
		"C-3,Shirt,Red,Basic,M",
		"D-4,Pants,Navy,Basic,S",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func TestMain_DefaultMode_EmitsLoadableConfig(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t, "-csv", writeCatalog(t), "-backend", "postgres", "-dsn", "postgres://localhost/catalog")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	if !strings.Contains(stdout, "# one:one: product_type, range\n# many:many: colour, size\n") {
		t.Fatalf("expected classification comment, got:\n%s", stdout)
	}

	var cfg config.Config
	if err := yaml.Unmarshal([]byte(stdout), &cfg); err != nil {
		t.Fatalf("stdout is not valid YAML: %v\nstdout:\n%s", err, stdout)
	}
	if cfg.Schema.NaturalKey != "product_quality_colour_number" {
		t.Fatalf("natural_key=%q", cfg.Schema.NaturalKey)
	}
	if got := strings.Join(cfg.Schema.Attributes, ","); got != "product_type,range,colour" {
		t.Fatalf("attributes=%q, want product_type,range,colour", got)
	}
	if got := strings.Join(cfg.Schema.SizeColumns, ","); got != "size" {
		t.Fatalf("size_columns=%q, want size", got)
	}
	if got := strings.Join(cfg.Schema.CommaColumns, ","); got != "product_type_attributes" {
		t.Fatalf("comma_columns=%q, want product_type_attributes", got)
	}
	if cfg.Storage.Kind != "postgres" || cfg.Storage.DSN != "postgres://localhost/catalog" {
		t.Fatalf("storage=%+v", cfg.Storage)
	}
	if cfg.Schema.RawTable != "rawdata" {
		t.Fatalf("raw_table=%q, want default rawdata", cfg.Schema.RawTable)
	}
}

func TestMain_ReportMode_PrintsReportOnly(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t, "-csv", writeCatalog(t), "-report", "-attributes", "Colour, Range")
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	for _, want := range []string{
		"uniqueness report:\trows=5",
		"natural key:\tproduct_quality_colour_number",
		"products:\t4 (duplicates=1 invalid_keys=0)",
		"one:one:\trange",
		"many:many:\tcolour, size",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in stdout, got:\n%s", want, stdout)
		}
	}
	if strings.Contains(stdout, "schema:") {
		t.Fatalf("expected report-only output (no YAML), got stdout:\n%s", stdout)
	}
}

func TestMain_UnknownKey_ExitsWith1(t *testing.T) {
	t.Parallel()

	_, stderr, code := runCmd(t, "-csv", writeCatalog(t), "-key", "sku")
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d\nstderr:\n%s", code, stderr)
	}
	if !strings.Contains(stderr, "no usable natural key") {
		t.Fatalf("expected natural key message on stderr, got:\n%s", stderr)
	}
}

func TestMain_MissingCSV_ExitsWith2AndPrintsMessage(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t /* no args */)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	if !strings.Contains(stderr, "missing -csv") {
		t.Fatalf("expected missing -csv message on stderr, got:\n%s", stderr)
	}
}
