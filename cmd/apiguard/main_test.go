package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apierrors "apiguard/internal/errors"
	"apiguard/internal/risk"
)

const routesBefore = `const router = express.Router();
router.get('/stocks', listStocks);
router.get('/stocks/:id/price', getPrice);
router.delete('/orders/:id', cancelOrder);
module.exports = router;
`

const routesAfter = `const router = express.Router();
router.get('/stocks', listStocks);
router.get('/stocks/:id/current-price', getPrice);
router.post('/orders', createOrder);
module.exports = router;
`

const routesDiff = `diff --git a/routes.js b/routes.js
index 1111111..2222222 100644
--- a/routes.js
+++ b/routes.js
@@ -1,5 +1,5 @@
 const router = express.Router();
 router.get('/stocks', listStocks);
-router.get('/stocks/:id/price', getPrice);
-router.delete('/orders/:id', cancelOrder);
+router.get('/stocks/:id/current-price', getPrice);
+router.post('/orders', createOrder);
 module.exports = router;
`

// execute runs the CLI in-process with every flag back at its default.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	rootFlag, formatFlag, verboseFlag, quietFlag, noColorFlag = ".", "human", 0, false, true
	extractStyle = ""
	compareFailOn = ""
	analyzeDiff, analyzeSave, analyzeFailOn = "", false, ""
	analyzeConcurrency, analyzeConsumers, analyzeNoStore = 0, "", false
	initForce = false

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func isGate(err error) bool {
	var g *gateError
	return errors.As(err, &g)
}

func TestExtractCommand(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "routes.js")
	writeFile(t, file, routesBefore)

	out, err := execute(t, "", "--root", root, "--quiet", "--format", "json", "extract", file)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{`"file": "routes.js"`, `"style": "verbcall"`, `"path": "/stocks/{id}/price"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}

	if _, err := execute(t, "", "--root", root, "--quiet", "extract", "--style", "graphql", file); err == nil {
		t.Error("unknown style should fail")
	}
	_, err = execute(t, "", "--root", root, "--quiet", "extract", filepath.Join(root, "missing.js"))
	if !apierrors.IsCode(err, apierrors.FileNotFound) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestCompareCommand(t *testing.T) {
	root := t.TempDir()
	before := filepath.Join(root, "old", "routes.js")
	after := filepath.Join(root, "routes.js")
	writeFile(t, before, routesBefore)
	writeFile(t, after, routesAfter)

	out, err := execute(t, "", "--root", root, "--quiet", "compare", before, after)
	if !isGate(err) {
		t.Fatalf("breaking changes should trip the gate, got %v", err)
	}
	for _, want := range []string{"old/routes.js -> routes.js", "/stocks/{id}/current-price", "Risk: 6.5 HIGH"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	if _, err := execute(t, "", "--root", root, "--quiet", "compare", "--fail-on", "critical", before, after); err != nil {
		t.Errorf("HIGH risk should pass a critical threshold: %v", err)
	}
	if _, err := execute(t, "", "--root", root, "--quiet", "compare", "--fail-on", "bogus", before, after); !apierrors.IsCode(err, apierrors.ConfigInvalid) {
		t.Errorf("bad --fail-on error = %v", err)
	}

	writeFile(t, filepath.Join(root, ".apiguard", "suppressions.toml"), `
[[suppress]]
path = "/orders/{id}"
reason = "cancellation moved to PATCH"

[[suppress]]
path = "/stocks/{id}/*"
reason = "price endpoint renamed with notice"
`)
	out, err = execute(t, "", "--root", root, "--quiet", "--format", "json", "compare", before, after)
	if err != nil {
		t.Fatalf("suppressed breaking changes should pass the gate: %v\n%s", err, out)
	}
	if !strings.Contains(out, `"breakingChanges": 0`) {
		t.Errorf("summary should count no breaking changes:\n%s", out)
	}
}

func TestInitSnapshotAnalyzeChanges(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "routes.js")
	writeFile(t, file, routesBefore)

	out, err := execute(t, "", "--root", root, "init")
	if err != nil || !strings.Contains(out, "initialized successfully") {
		t.Fatalf("init: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(root, ".apiguard", "suppressions.toml")); err != nil {
		t.Errorf("suppressions template not written: %v", err)
	}
	out, err = execute(t, "", "--root", root, "init")
	if err != nil || !strings.Contains(out, "already initialized") {
		t.Errorf("second init: %v\n%s", err, out)
	}

	if _, err := execute(t, "", "--root", root, "--quiet", "snapshot", file); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	writeFile(t, file, routesAfter)
	out, err = execute(t, routesDiff, "--root", root, "--quiet", "--format", "json", "analyze", "--diff", "-")
	if !isGate(err) {
		t.Fatalf("analyze should fail the gate, got %v\n%s", err, out)
	}
	for _, want := range []string{`"beforeSource": "snapshot"`, `"hasBreaking": true`, `"file": "routes.js"`} {
		if !strings.Contains(out, want) {
			t.Errorf("analyze output missing %s:\n%s", want, out)
		}
	}

	out, err = execute(t, "", "--root", root, "--quiet", "--format", "json", "changes")
	if err != nil {
		t.Fatalf("changes: %v", err)
	}
	for _, want := range []string{"path changed from /stocks/{id}/price to /stocks/{id}/current-price", `"breakingChanges": 2`} {
		if !strings.Contains(out, want) {
			t.Errorf("changes output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeCommand_ReconstructedWithoutStore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "routes.js"), routesAfter)
	diffPath := filepath.Join(root, "change.patch")
	writeFile(t, diffPath, routesDiff)

	out, err := execute(t, "", "--root", root, "--quiet", "--format", "json",
		"analyze", "--diff", diffPath, "--no-store", "--fail-on", "never")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, `"beforeSource": "reconstructed"`) {
		t.Errorf("output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, ".apiguard", "apiguard.db")); !os.IsNotExist(err) {
		t.Error("--no-store should not create the database")
	}

	if _, err := execute(t, "", "--root", root, "--quiet", "analyze"); !apierrors.IsCode(err, apierrors.ConfigInvalid) {
		t.Errorf("analyze without inputs error = %v", err)
	}
	if _, err := execute(t, "not a diff", "--root", root, "--quiet", "analyze", "--diff", "-"); !apierrors.IsCode(err, apierrors.DiffUnparseable) {
		t.Errorf("garbage diff error = %v", err)
	}
}

func TestGate(t *testing.T) {
	high := risk.RiskScore{Score: 6.5, Level: risk.LevelHigh}
	tests := []struct {
		name        string
		failOn      string
		hasBreaking bool
		score       risk.RiskScore
		wantGate    bool
		wantErr     bool
	}{
		{"default passes without breaking", "", false, high, false, false},
		{"default fails on breaking", "", true, high, true, false},
		{"never", "never", true, high, false, false},
		{"level reached", "high", false, high, true, false},
		{"level reached case-insensitively", "Medium", false, high, true, false},
		{"level not reached", "critical", true, high, false, false},
		{"invalid level", "severe", false, high, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := gate(tt.failOn, tt.hasBreaking, tt.score)
			if got := isGate(err); got != tt.wantGate {
				t.Errorf("gate = %v, want gate %v", err, tt.wantGate)
			}
			if got := apierrors.IsCode(err, apierrors.ConfigInvalid); got != tt.wantErr {
				t.Errorf("err = %v, want config error %v", err, tt.wantErr)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	var buf bytes.Buffer
	if code := exitCode(&gateError{reason: "breaking changes found"}, &buf); code != exitGate {
		t.Errorf("gate exit = %d", code)
	}
	if buf.String() != "breaking changes found\n" {
		t.Errorf("gate message = %q", buf.String())
	}

	buf.Reset()
	err := apierrors.New(apierrors.InputTooLarge, "routes.js is too large")
	if code := exitCode(err, &buf); code != exitError {
		t.Errorf("error exit = %d", code)
	}
	if !strings.Contains(buf.String(), "fix: set analysis.maxFileBytes") {
		t.Errorf("suggested fix missing: %q", buf.String())
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	if err != nil || !strings.HasPrefix(out, "apiguard version ") {
		t.Errorf("version = %q, %v", out, err)
	}
	out, err = execute(t, "", "--format", "json", "version")
	if err != nil || !strings.Contains(out, `"goVersion"`) {
		t.Errorf("version json = %q, %v", out, err)
	}
}
