//go:build cgo

package contract

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// handlerNodeTypes are the named function forms a route can be bound to, per grammar.
var handlerNodeTypes = map[string]bool{
	"function_declaration":     true,
	"method_declaration":       true,
	"method_definition":        true,
	"function_definition":      true,
	"local_function_statement": true,
}

func languageFor(file string) *sitter.Language {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".go":
		return golang.GetLanguage()
	case ".java":
		return java.GetLanguage()
	case ".js", ".mjs", ".cjs", ".jsx":
		return javascript.GetLanguage()
	case ".ts", ".mts", ".cts":
		return typescript.GetLanguage()
	case ".tsx":
		return tsx.GetLanguage()
	case ".py":
		return python.GetLanguage()
	case ".cs":
		return csharp.GetLanguage()
	default:
		return nil
	}
}

// resolveHandlers names the function each declaration-bound contract is attached to: the
// first named function starting at or after the declaration line, within the lookahead window.
func resolveHandlers(file, src string, contracts []Contract) {
	lang := languageFor(file)
	if lang == nil || len(contracts) == 0 {
		return
	}
	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	source := []byte(src)
	tree, err := parser.ParseCtx(context.Background(), nil, source)
	if err != nil || tree == nil {
		return
	}
	defer tree.Close()

	type fn struct {
		name string
		line int
	}
	var fns []fn
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if handlerNodeTypes[n.Type()] {
			if name := n.ChildByFieldName("name"); name != nil {
				fns = append(fns, fn{name: name.Content(source), line: int(n.StartPoint().Row) + 1})
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	for i := range contracts {
		// verb calls bind handlers by reference or inline closure; the next function is unrelated
		if contracts[i].Handler != "" || contracts[i].Style == StyleVerbCall || contracts[i].Style == StyleGeneric {
			continue
		}
		line := contracts[i].Source.Line
		best := -1
		for j, f := range fns {
			if f.line < line || f.line > line+lookaheadLines {
				continue
			}
			if best < 0 || f.line < fns[best].line {
				best = j
			}
		}
		if best >= 0 {
			contracts[i].Handler = fns[best].name
		}
	}
}
