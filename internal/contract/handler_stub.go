//go:build !cgo

package contract

// resolveHandlers is a no-op without tree-sitter; contracts keep an empty Handler.
func resolveHandlers(string, string, []Contract) {}
