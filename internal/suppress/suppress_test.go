package suppress

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
)

const rulesTOML = `
[[suppress]]
method = "get"
path = "/stocks/:id/price"
reason = "price endpoint moved behind the gateway"

[[suppress]]
path = "/internal/**"
reason = "internal callers deploy together"

[[suppress]]
method = "*"
path = "/orders/{id}/items/*"
type = "added"
reason = "new item routes are expected"
`

func change(method contract.Method, path string, t compare.ChangeType) compare.ContractChange {
	return compare.ContractChange{Endpoint: path, Method: method, ChangeType: t}
}

func TestSet_Match(t *testing.T) {
	set, err := Parse(rulesTOML)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if set.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", set.Len())
	}

	tests := []struct {
		name       string
		change     compare.ContractChange
		wantMatch  bool
		wantReason string
	}{
		{"exact path with placeholder normalization", change(contract.MethodGet, "/stocks/{id}/price", compare.ChangeBreaking), true, "price endpoint moved behind the gateway"},
		{"exact path other verb", change(contract.MethodPost, "/stocks/{id}/price", compare.ChangeBreaking), false, ""},
		{"glob any verb", change(contract.MethodDelete, "/internal/cache/flush", compare.ChangeRemoved), true, "internal callers deploy together"},
		{"glob does not match the parent", change(contract.MethodGet, "/internals", compare.ChangeRemoved), false, ""},
		{"typed rule matches its type", change(contract.MethodPut, "/orders/{id}/items/sku", compare.ChangeAdded), true, "new item routes are expected"},
		{"typed rule ignores other types", change(contract.MethodPut, "/orders/{id}/items/sku", compare.ChangeBreaking), false, ""},
		{"placeholder braces stay literal in globs", change(contract.MethodPut, "/orders/id/items/sku", compare.ChangeAdded), false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := set.Match(tt.change)
			if ok != tt.wantMatch {
				t.Fatalf("Match() ok = %v, want %v", ok, tt.wantMatch)
			}
			if ok && rule.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", rule.Reason, tt.wantReason)
			}
		})
	}
}

func TestSet_Apply(t *testing.T) {
	set, err := Parse(rulesTOML)
	if err != nil {
		t.Fatal(err)
	}

	changes := []compare.ContractChange{
		change(contract.MethodGet, "/users", compare.ChangeAdded),
		change(contract.MethodGet, "/internal/health", compare.ChangeRemoved),
		change(contract.MethodPost, "/orders", compare.ChangeModified),
	}
	kept, suppressed := set.Apply(changes)

	if len(kept) != 2 || kept[0].Endpoint != "/users" || kept[1].Endpoint != "/orders" {
		t.Errorf("kept = %+v", kept)
	}
	if len(suppressed) != 1 || suppressed[0].Change.Endpoint != "/internal/health" || suppressed[0].Reason != "internal callers deploy together" {
		t.Errorf("suppressed = %+v", suppressed)
	}
}

func TestNilSetSuppressesNothing(t *testing.T) {
	var set *Set
	changes := []compare.ContractChange{change(contract.MethodGet, "/users", compare.ChangeBreaking)}
	kept, suppressed := set.Apply(changes)
	if len(kept) != 1 || len(suppressed) != 0 {
		t.Errorf("kept = %v, suppressed = %v", kept, suppressed)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"not toml", "[[suppress]\npath=", "parse suppressions file"},
		{"missing reason", "[[suppress]]\npath = \"/a\"", "reason is required"},
		{"missing path", "[[suppress]]\nreason = \"x\"", "path is required"},
		{"bad method", "[[suppress]]\nmethod = \"FETCH\"\npath = \"/a\"\nreason = \"x\"", "unknown method"},
		{"bad type", "[[suppress]]\ntype = \"RENAMED\"\npath = \"/a\"\nreason = \"x\"", "unknown change type"},
		{"bad glob", "[[suppress]]\npath = \"/a/[b\"\nreason = \"x\"", "invalid path glob"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if err == nil {
				t.Fatal("Parse() should fail")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	set, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil || set.Len() != 0 {
		t.Fatalf("missing file = %v, %v", set.Len(), err)
	}

	path := filepath.Join(dir, "suppressions.toml")
	if err := os.WriteFile(path, []byte(rulesTOML), 0644); err != nil {
		t.Fatal(err)
	}
	set, err = Load(path)
	if err != nil || set.Len() != 3 {
		t.Errorf("Load() = %d rules, %v", set.Len(), err)
	}
}
