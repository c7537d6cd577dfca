package analysis

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	apierrors "apiguard/internal/errors"
)

const multiFileDiff = `diff --git a/api/routes.js b/api/routes.js
index 1111111..2222222 100644
--- a/api/routes.js
+++ b/api/routes.js
@@ -1,2 +1,2 @@
 const router = express.Router();
-router.get('/stocks/:id/price', getPrice);
+router.get('/stocks/:id/current-price', getPrice);
diff --git a/api/health.js b/api/health.js
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/api/health.js
@@ -0,0 +1 @@
+router.get('/health', health);
diff --git a/api/legacy.js b/api/legacy.js
deleted file mode 100644
index 4444444..0000000
--- a/api/legacy.js
+++ /dev/null
@@ -1 +0,0 @@
-router.get('/v0/ping', ping);
diff --git a/vendor/lib/router.js b/vendor/lib/router.js
index 5555555..6666666 100644
--- a/vendor/lib/router.js
+++ b/vendor/lib/router.js
@@ -1 +1 @@
-router.get('/a', a);
+router.get('/b', b);
diff --git a/docs/examples/server.js b/docs/examples/server.js
index 7777777..8888888 100644
--- a/docs/examples/server.js
+++ b/docs/examples/server.js
@@ -1 +1 @@
-app.get('/old', h);
+app.get('/new', h);
diff --git a/api/missing.js b/api/missing.js
index 9999999..aaaaaaa 100644
--- a/api/missing.js
+++ b/api/missing.js
@@ -1 +1 @@
-router.get('/x', x);
+router.get('/y', y);
`

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestInputsFromDiff(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/routes.js", "const router = express.Router();\nrouter.get('/stocks/:id/current-price', getPrice);\n")
	writeFile(t, root, "api/health.js", "router.get('/health', health);\n")
	writeFile(t, root, "docs/examples/server.js", "app.get('/new', h);\n")

	inputs, err := InputsFromDiff(root, multiFileDiff, Filter{Exclude: []string{"docs/**"}}, 0)
	if err != nil {
		t.Fatalf("InputsFromDiff() error = %v", err)
	}

	var paths []string
	byPath := map[string]FileInput{}
	for _, in := range inputs {
		paths = append(paths, in.Path)
		byPath[in.Path] = in
	}
	want := "api/routes.js,api/health.js,api/legacy.js,api/missing.js"
	if got := strings.Join(paths, ","); got != want {
		t.Fatalf("paths = %s, want %s", got, want)
	}

	routes := byPath["api/routes.js"]
	if routes.Err != nil || !strings.Contains(routes.After, "current-price") || routes.IsNew || routes.Deleted {
		t.Errorf("routes.js = %+v", routes)
	}
	if !strings.Contains(routes.DiffText, "-router.get('/stocks/:id/price', getPrice);") {
		t.Errorf("routes.js diff = %q", routes.DiffText)
	}
	if strings.Contains(routes.DiffText, "health") {
		t.Error("per-file diff text should not include other files")
	}

	if h := byPath["api/health.js"]; !h.IsNew || h.Err != nil {
		t.Errorf("health.js = %+v", h)
	}
	if l := byPath["api/legacy.js"]; !l.Deleted || l.After != "" || l.Err != nil {
		t.Errorf("legacy.js = %+v", l)
	}
	if m := byPath["api/missing.js"]; m.Err == nil || m.Err.Code != apierrors.FileNotFound {
		t.Errorf("missing.js error = %v", m.Err)
	}
}

func TestInputsFromDiff_SizeLimit(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "api/health.js", "router.get('/health', health);\n")

	diffText := `diff --git a/api/health.js b/api/health.js
index 1111111..2222222 100644
--- a/api/health.js
+++ b/api/health.js
@@ -1 +1 @@
-router.get('/healthz', health);
+router.get('/health', health);
`
	inputs, err := InputsFromDiff(root, diffText, Filter{}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(inputs) != 1 || inputs[0].Err == nil || inputs[0].Err.Code != apierrors.InputTooLarge {
		t.Errorf("inputs = %+v", inputs)
	}
}

func TestInputsFromDiff_Empty(t *testing.T) {
	inputs, err := InputsFromDiff(t.TempDir(), "  \n", Filter{}, 0)
	if err != nil || len(inputs) != 0 {
		t.Errorf("empty diff = %+v, %v", inputs, err)
	}
}

func TestInputsFromDiff_Malformed(t *testing.T) {
	bad := "--- a/x.js\n+++ b/x.js\n@@ this is not a hunk header @@\n+x\n"
	_, err := InputsFromDiff(t.TempDir(), bad, Filter{}, 0)
	if !apierrors.IsCode(err, apierrors.DiffUnparseable) {
		t.Errorf("error = %v, want DIFF_UNPARSEABLE", err)
	}
}

func TestFilterAllows(t *testing.T) {
	f := Filter{
		Include: []string{"**/*.{js,ts}", "openapi.yaml"},
		Exclude: []string{"**/*.test.ts", "legacy/**"},
	}
	tests := []struct {
		path string
		want bool
	}{
		{"api/routes.js", true},
		{"src/server/app.ts", true},
		{"openapi.yaml", true},
		{"src/server/app.test.ts", false},
		{"legacy/routes.js", false},
		{"main.go", false},
	}
	for _, tt := range tests {
		if got := f.Allows(tt.path); got != tt.want {
			t.Errorf("Allows(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
	if !(Filter{}).Allows("anything/at/all.rb") {
		t.Error("empty filter should allow everything")
	}
}

func TestReadInput(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "routes.js", routesAfter)

	in := ReadInput(filepath.Join(root, "routes.js"), 0)
	if in.Err != nil || in.After != routesAfter {
		t.Errorf("ReadInput() = %+v", in)
	}

	missing := ReadInput(filepath.Join(root, "nope.js"), 0)
	if missing.Err == nil || missing.Err.Code != apierrors.FileNotFound {
		t.Errorf("missing = %+v", missing.Err)
	}
}
