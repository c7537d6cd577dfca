package contract

import (
	"regexp"
	"strings"
)

const wildcardSegment = "*"

var (
	colonParam   = regexp.MustCompile(`^:([A-Za-z_][A-Za-z0-9_]*)\??$`)
	angleParam   = regexp.MustCompile(`^<(?:[A-Za-z_][A-Za-z0-9_]*:)?([A-Za-z_][A-Za-z0-9_]*)>$`)
	braceParam   = regexp.MustCompile(`^\$?\{([A-Za-z_][A-Za-z0-9_]*)(?:[:?][^}]*)?\}$`)
	bracketParam = regexp.MustCompile(`^\[(?:\.\.\.)?([A-Za-z_][A-Za-z0-9_]*)\]$`)
)

// NormalizePath canonicalizes a route: leading slash, no empty or trailing segments,
// and every placeholder spelled {name}.
func NormalizePath(p string) string {
	segs := segments(p)
	if len(segs) == 0 {
		return "/"
	}
	return "/" + strings.Join(segs, "/")
}

// JoinPath concatenates a base path and a handler-level path. An empty handler path
// means the base path alone. Placeholders keep their original spelling so converter
// types such as <int:id> survive until normalization.
func JoinPath(base, handler string) string {
	parts := rawSegments(base)
	handler = strings.TrimSpace(handler)
	if handler != "" && handler != "/" {
		parts = append(parts, rawSegments(handler)...)
	}
	return "/" + strings.Join(parts, "/")
}

func rawSegments(p string) []string {
	p = strings.Trim(strings.TrimSpace(p), "\"'`")
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// PathParams returns the placeholder names of a path in order.
func PathParams(p string) []string {
	var names []string
	for _, seg := range segments(p) {
		if name, ok := placeholderName(seg); ok {
			names = append(names, name)
		}
	}
	return names
}

// SimilarPaths reports whether two paths look like a rename of one another: the same
// number of segments once placeholders are wildcarded, with exactly one segment differing.
//
// The rule is deliberately loose. /accounts/{id} and /orders/{id} are "similar", which is a
// known source of false-positive rename reports.
func SimilarPaths(a, b string) bool {
	sa := wildcarded(a)
	sb := wildcarded(b)
	if len(sa) != len(sb) {
		return false
	}
	diffs := 0
	for i := range sa {
		if sa[i] != sb[i] {
			diffs++
			if diffs > 1 {
				return false
			}
		}
	}
	return diffs == 1
}

// SameShape reports whether two paths address the same URLs: equal once placeholders are
// wildcarded, so /users/{id} and /users/{userId} match.
func SameShape(a, b string) bool {
	sa := wildcarded(a)
	sb := wildcarded(b)
	if len(sa) != len(sb) {
		return false
	}
	for i := range sa {
		if sa[i] != sb[i] {
			return false
		}
	}
	return true
}

// MatchesSuffix reports whether suffix lines up with the trailing segments of full, which is
// how a handler-level path relates to the base+handler path it was joined into. Placeholders
// compare as wildcards. An empty suffix never matches.
func MatchesSuffix(full, suffix string) bool {
	sf := wildcarded(full)
	ss := wildcarded(suffix)
	if len(ss) == 0 || len(ss) > len(sf) {
		return false
	}
	offset := len(sf) - len(ss)
	for i := range ss {
		if sf[offset+i] != ss[i] {
			return false
		}
	}
	return true
}

func segments(p string) []string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, "\"'`")
	p = stripQuery(p)
	raw := strings.Split(p, "/")
	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		if name, ok := placeholderName(seg); ok {
			seg = "{" + name + "}"
		}
		out = append(out, seg)
	}
	return out
}

// stripQuery drops a query string or fragment, leaving "?" inside {name?} alone.
func stripQuery(p string) string {
	depth := 0
	for i, r := range p {
		switch r {
		case '{':
			depth++
		case '}':
			depth--
		case '#':
			if depth == 0 {
				return p[:i]
			}
		case '?':
			// a trailing "?" on a segment marks an optional placeholder
			if depth == 0 && i+1 < len(p) && p[i+1] != '/' {
				return p[:i]
			}
		}
	}
	return p
}

func wildcarded(p string) []string {
	segs := segments(p)
	for i, seg := range segs {
		if isPlaceholder(seg) {
			segs[i] = wildcardSegment
		}
	}
	return segs
}

func isPlaceholder(seg string) bool {
	_, ok := placeholderName(seg)
	return ok || seg == wildcardSegment
}

func placeholderName(seg string) (string, bool) {
	for _, re := range []*regexp.Regexp{braceParam, colonParam, angleParam, bracketParam} {
		if m := re.FindStringSubmatch(seg); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var (
	angleConverter = regexp.MustCompile(`<([A-Za-z_][A-Za-z0-9_]*):([A-Za-z_][A-Za-z0-9_]*)>`)
	braceConverter = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*):([A-Za-z_][A-Za-z0-9_]*)\??\}`)
)

// converterTypes recovers placeholder types spelled into the route itself,
// e.g. Flask's <int:id> or ASP.NET's {id:int}.
func converterTypes(rawPath string) map[string]string {
	types := make(map[string]string)
	for _, m := range angleConverter.FindAllStringSubmatch(rawPath, -1) {
		types[m[2]] = m[1]
	}
	for _, m := range braceConverter.FindAllStringSubmatch(rawPath, -1) {
		types[m[1]] = m[2]
	}
	return types
}
