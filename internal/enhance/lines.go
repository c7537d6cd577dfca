package enhance

import (
	"regexp"
	"strings"

	"apiguard/internal/contract"
	"apiguard/internal/diff"
)

// ownerWindow bounds how far back a diff line looks for the route declaration it belongs to.
const ownerWindow = 15

var (
	openapiPathKey   = regexp.MustCompile(`^\s+(/[^\s:]*)\s*:\s*$`)
	openapiMethodKey = regexp.MustCompile(`^\s+(get|post|put|delete|patch|options|head)\s*:\s*$`)
)

// owner is the route declaration a diff line is attributed to.
type owner struct {
	decl contract.Declaration
	kind diff.LineKind
}

// annotatedLine is a diff line together with the declaration on it, if any, and the nearest
// declaration before it on the same side of the diff.
type annotatedLine struct {
	diff.Line
	decl  *contract.Declaration
	owner *owner
}

// annotate attributes every line to the closest preceding declaration. Added and context
// lines look back over the new side, removed lines over the old side.
func annotate(lines []diff.Line) []annotatedLine {
	out := make([]annotatedLine, len(lines))
	var oldPathKey, newPathKey string
	for i, l := range lines {
		out[i].Line = l
		text := l.Text

		if m := openapiPathKey.FindStringSubmatch(text); m != nil {
			if l.Kind != diff.LineAdded {
				oldPathKey = m[1]
			}
			if l.Kind != diff.LineRemoved {
				newPathKey = m[1]
			}
			d := contract.Declaration{Path: contract.NormalizePath(m[1]), Style: contract.StyleOpenAPI}
			out[i].decl = &d
		} else if m := openapiMethodKey.FindStringSubmatch(text); m != nil {
			key := newPathKey
			if l.Kind == diff.LineRemoved {
				key = oldPathKey
			}
			if key != "" {
				method, _ := contract.ParseMethod(m[1])
				d := contract.Declaration{Methods: []contract.Method{method}, Path: contract.NormalizePath(key), Style: contract.StyleOpenAPI}
				out[i].decl = &d
			}
		} else if d, ok := contract.ParseDeclaration(text); ok {
			out[i].decl = &d
		}
	}

	for i := range out {
		for j := i; j >= 0 && j >= i-ownerWindow; j-- {
			if out[j].decl == nil || !sameSide(out[i].Kind, out[j].Kind) {
				continue
			}
			out[i].owner = &owner{decl: *out[j].decl, kind: out[j].Kind}
			break
		}
	}
	return out
}

func sameSide(line, candidate diff.LineKind) bool {
	switch line {
	case diff.LineRemoved:
		return candidate != diff.LineAdded
	case diff.LineAdded:
		return candidate != diff.LineRemoved
	default:
		return candidate == diff.LineContext
	}
}

// declares reports whether d is a declaration of the endpoint (method, path). A declaration
// at the root path carries no usable suffix and matches by verb alone.
func declares(d contract.Declaration, method contract.Method, path string) bool {
	if !d.HasMethod(method) {
		return false
	}
	if d.Path == "/" {
		return true
	}
	return contract.MatchesSuffix(path, d.Path)
}

func pathSegments(p string) []string {
	p = strings.Trim(contract.NormalizePath(p), "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// renamedFrom rebuilds the full old path of an endpoint whose declared suffix changed from
// oldSuffix to newSuffix, keeping whatever base path full carries in front of it.
func renamedFrom(full, oldSuffix, newSuffix string) string {
	fs := pathSegments(full)
	keep := len(fs) - len(pathSegments(newSuffix))
	if keep < 0 {
		keep = 0
	}
	return contract.NormalizePath(contract.JoinPath(strings.Join(fs[:keep], "/"), oldSuffix))
}
