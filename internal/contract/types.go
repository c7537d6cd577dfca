// Package contract extracts structured endpoint contracts from route declarations in source text.
package contract

import (
	"strings"
)

// Method is an HTTP verb an endpoint is registered for.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

// Methods lists the supported verbs in their canonical order.
var Methods = []Method{MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodOptions, MethodHead}

// ParseMethod resolves a verb case-insensitively.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

func methodOrder(m Method) int {
	for i, known := range Methods {
		if m == known {
			return i
		}
	}
	return len(Methods)
}

// Location is where a parameter travels in a request.
type Location string

const (
	LocationQuery Location = "query"
	LocationBody  Location = "body"
	LocationPath  Location = "path"
)

// Parameter is one declared input of an endpoint.
type Parameter struct {
	Name     string   `json:"name" yaml:"name"`
	Type     string   `json:"type,omitempty" yaml:"type,omitempty"` // empty when the declaration carried no parseable type
	Required bool     `json:"required" yaml:"required"`
	Location Location `json:"location" yaml:"location"`
}

// HasType reports whether a declared type was recovered.
func (p Parameter) HasType() bool {
	return p.Type != ""
}

// SourceLocation points at the declaration that produced a contract.
type SourceLocation struct {
	File string `json:"file" yaml:"file"`
	Line int    `json:"line" yaml:"line"`
}

// Contract is the structural description of one endpoint as declared in a single file version.
type Contract struct {
	Method     Method         `json:"method" yaml:"method"`
	Path       string         `json:"path" yaml:"path"`
	Parameters []Parameter    `json:"parameters" yaml:"parameters"`
	ReturnType string         `json:"returnType,omitempty" yaml:"returnType,omitempty"`
	Source     SourceLocation `json:"source" yaml:"source"`
	Style      Style          `json:"style,omitempty" yaml:"style,omitempty"`
	Handler    string         `json:"handler,omitempty" yaml:"handler,omitempty"`
}

// Key returns the identity of the contract across versions.
func (c Contract) Key() Key {
	return Key{Method: c.Method, Path: NormalizePath(c.Path)}
}

// HasReturnType reports whether a return-type hint was recovered.
func (c Contract) HasReturnType() bool {
	return c.ReturnType != ""
}

// Parameter looks up a parameter by name.
func (c Contract) Parameter(name string) (Parameter, bool) {
	for _, p := range c.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// Key identifies a logical endpoint: method plus normalized path.
type Key struct {
	Method Method
	Path   string
}

// String renders the key as "<METHOD> <path>".
func (k Key) String() string {
	return string(k.Method) + " " + k.Path
}

// ParseKey parses a "<METHOD> <path>" string.
func ParseKey(s string) (Key, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return Key{}, false
	}
	m, ok := ParseMethod(fields[0])
	if !ok {
		return Key{}, false
	}
	return Key{Method: m, Path: NormalizePath(fields[1])}, true
}
