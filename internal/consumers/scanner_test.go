package consumers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"apiguard/internal/analysis"
	"apiguard/internal/contract"
	apierrors "apiguard/internal/errors"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

var webTree = map[string]string{
	"src/api.ts": "const BASE = 'https://api.example.com';\n" +
		"export const getPrice = (id: string) => axios.get(`${BASE}/api/stocks/${id}/price`);\n" +
		"export const buy = (body: Order) => axios.post('/api/orders', body);\n" +
		"export const cancel = (id: string) => fetch('/api/orders/' + id, { method: 'DELETE' });\n",
	"src/legacy.js": "axios.post(`/api/stocks/${id}/price`, {});\n",
	"scripts/sync.py": "requests.delete(f\"{BASE}/api/orders/{order_id}\")\n" +
		"requests.get(BASE + \"/api/orders?status=open\")\n",
	"server/routes.js":          "router.post('/api/orders', createOrder);\n",
	"node_modules/sdk/index.js": "axios.get('/api/orders');\n",
	"README.md":                 "Call GET '/api/orders' to list orders.\n",
}

func scanner(root string) *Scanner {
	return NewScanner(Options{
		Root:       root,
		Include:    []string{"**/*.{ts,js,py}"},
		Exclude:    []string{"**/node_modules/**"},
		SourceRepo: "acme/web",
	}, nil)
}

func TestFindConsumers(t *testing.T) {
	s := scanner(writeTree(t, webTree))
	ctx := context.Background()

	tests := []struct {
		name   string
		method contract.Method
		path   string
		want   []analysis.Consumer
	}{
		{
			name:   "template literal with interpolated base and placeholder",
			method: contract.MethodGet,
			path:   "/api/stocks/{id}/price",
			want:   []analysis.Consumer{{FilePath: "src/api.ts", LineNumber: 2, SourceRepo: "acme/web"}},
		},
		{
			name:   "route declarations and excluded dirs are not consumers",
			method: contract.MethodPost,
			path:   "/api/orders",
			want:   []analysis.Consumer{{FilePath: "src/api.ts", LineNumber: 3, SourceRepo: "acme/web"}},
		},
		{
			name:   "query string and string concatenation",
			method: contract.MethodGet,
			path:   "/api/orders",
			want:   []analysis.Consumer{{FilePath: "scripts/sync.py", LineNumber: 2, SourceRepo: "acme/web"}},
		},
		{
			name:   "trailing placeholder may be concatenated",
			method: contract.MethodDelete,
			path:   "/api/orders/:id",
			want: []analysis.Consumer{
				{FilePath: "scripts/sync.py", LineNumber: 1, SourceRepo: "acme/web"},
				{FilePath: "src/api.ts", LineNumber: 4, SourceRepo: "acme/web"},
			},
		},
		{
			name:   "unknown endpoint",
			method: contract.MethodGet,
			path:   "/api/users",
		},
		{
			name:   "root path is never matched",
			method: contract.MethodGet,
			path:   "/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.FindConsumers(ctx, tt.method, tt.path)
			if err != nil {
				t.Fatalf("FindConsumers() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("consumer %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestFindConsumers_MaxFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.ts": "fetch('/api/orders')\n",
		"b.ts": "fetch('/api/orders')\n",
		"c.ts": "fetch('/api/orders')\n",
	})
	s := NewScanner(Options{Root: root, MaxFiles: 2}, nil)

	got, err := s.FindConsumers(context.Background(), contract.MethodGet, "/api/orders")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("scan should stop after 2 files, got %+v", got)
	}
}

func TestFindConsumers_MissingRoot(t *testing.T) {
	s := NewScanner(Options{Root: filepath.Join(t.TempDir(), "nope")}, nil)
	_, err := s.FindConsumers(context.Background(), contract.MethodGet, "/x")
	if !apierrors.IsCode(err, apierrors.ConsumerScanFailed) {
		t.Errorf("error = %v, want CONSUMER_SCAN_FAILED", err)
	}
}

func TestFindConsumers_Cancelled(t *testing.T) {
	s := scanner(writeTree(t, webTree))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.FindConsumers(ctx, contract.MethodGet, "/api/orders"); err == nil {
		t.Error("cancelled context should fail the scan")
	}

	// a cancelled first scan does not poison later ones
	if got, err := s.FindConsumers(context.Background(), contract.MethodPost, "/api/orders"); err != nil || len(got) != 1 {
		t.Errorf("retry = %+v, %v", got, err)
	}
}

func TestVerbCompatible(t *testing.T) {
	tests := []struct {
		line   string
		method contract.Method
		want   bool
	}{
		{"fetch('/api/orders')", contract.MethodPost, true},
		{"axios.get('/api/orders')", contract.MethodGet, true},
		{"axios.get('/api/orders')", contract.MethodPost, false},
		{"fetch(url, { method: 'PUT' })", contract.MethodPut, true},
		{"http.NewRequest(http.MethodDelete, base+\"/api/orders/\"+id, nil)", contract.MethodDelete, true},
		{"http.NewRequest(http.MethodDelete, base+\"/api/orders/\"+id, nil)", contract.MethodGet, false},
	}
	for _, tt := range tests {
		if got := verbCompatible(tt.line, tt.method); got != tt.want {
			t.Errorf("verbCompatible(%q, %s) = %v, want %v", tt.line, tt.method, got, tt.want)
		}
	}
}
