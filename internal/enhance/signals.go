package enhance

import (
	"fmt"
	"regexp"
	"strings"

	"apiguard/internal/contract"
	"apiguard/internal/diff"
)

// narrowingDistance is how many diff lines apart a removed and an added response type may be.
const narrowingDistance = 3

var (
	openapiRequiredTrue = regexp.MustCompile(`^\s*required\s*:\s*true\b`)
	openapiRequiredList = regexp.MustCompile(`^\s*required\s*:\s*\[([^\]]*)\]`)
	openapiParamName    = regexp.MustCompile(`^\s*-?\s*name\s*:\s*["']?([\w.-]+)`)

	typedWrapper = regexp.MustCompile(`\b([A-Z]\w*)\s*<\s*([^<>]*(?:<[^<>]*>)?[^<>]*)>`)
	typeName     = regexp.MustCompile(`\b([A-Z]\w*)\b(\s*<)?`)
	goUntypedOut = regexp.MustCompile(`\.(?:JSON|IndentedJSON|PureJSON)\(\s*[^,()]+,\s*(gin\.H|echo\.Map|fiber\.Map|map\[string\](?:interface\{\}|any))\s*\{`)
	goTypedOut   = regexp.MustCompile(`\.(?:JSON|IndentedJSON|PureJSON)\(\s*[^,()]+,\s*&?([\w.]+)\s*\{`)
)

// opaqueArgs are type arguments that say nothing about the payload.
var opaqueArgs = map[string]bool{
	"?": true, "Object": true, "object": true, "any": true, "unknown": true, "*": true,
	"dynamic": true, "interface{}": true, "JsonNode": true, "JObject": true,
}

// responseWrappers are the generic types whose argument is the response body. A concrete
// argument swapped for another, or dropped, changes what callers receive.
var responseWrappers = map[string]bool{
	"ResponseEntity": true, "ActionResult": true, "Task": true, "Promise": true, "Observable": true,
	"Mono": true, "Flux": true, "Response": true, "JsonResponse": true, "HttpResponse": true,
	"Result": true, "Ok": true, "CompletableFuture": true, "DeferredResult": true,
}

// finding is one piece of diff evidence that an endpoint broke. A finding without an owner
// applies to every endpoint in scope.
type finding struct {
	owner    *contract.Declaration
	describe func(method contract.Method, path string) string
}

func (f finding) appliesTo(method contract.Method, path string) bool {
	return f.owner == nil || declares(*f.owner, method, path)
}

func fixed(text string) func(contract.Method, string) string {
	return func(contract.Method, string) string { return text }
}

// addedRequiredParams finds parameter declarations added without a not-required marker to
// an endpoint that already existed. Names that also appear on removed lines were only
// reshuffled.
func addedRequiredParams(lines []annotatedLine) []finding {
	removed := make(map[string]bool)
	for _, l := range lines {
		if l.Kind != diff.LineRemoved {
			continue
		}
		for _, p := range contract.ParseParameters(l.Text) {
			removed[p.Name] = true
		}
		if m := openapiRequiredList.FindStringSubmatch(l.Text); m != nil {
			for _, name := range listNames(m[1]) {
				removed[name] = true
			}
		}
		if m := openapiParamName.FindStringSubmatch(l.Text); m != nil {
			removed[m[1]] = true
		}
	}

	var out []finding
	emit := func(l annotatedLine, name string) {
		if removed[name] {
			return
		}
		// a declaration introduced by this diff is a new endpoint, not a changed one
		if l.owner != nil && l.owner.kind == diff.LineAdded {
			return
		}
		var decl *contract.Declaration
		if l.owner != nil {
			d := l.owner.decl
			decl = &d
		}
		out = append(out, finding{owner: decl, describe: fixed(fmt.Sprintf("required parameter '%s' added", name))})
	}

	for i, l := range lines {
		if l.Kind != diff.LineAdded {
			continue
		}
		for _, p := range contract.ParseParameters(l.Text) {
			if p.Required && p.Location != contract.LocationPath {
				emit(l, p.Name)
			}
		}
		if openapiRequiredTrue.MatchString(l.Text) {
			if name, ok := nearestParamName(lines, i); ok {
				emit(l, name)
			}
		}
		if m := openapiRequiredList.FindStringSubmatch(l.Text); m != nil {
			for _, name := range listNames(m[1]) {
				emit(l, name)
			}
		}
	}
	return out
}

// nearestParamName finds the "name:" key an OpenAPI "required: true" line belongs to.
func nearestParamName(lines []annotatedLine, i int) (string, bool) {
	for j := i - 1; j >= 0 && j >= i-5; j-- {
		if lines[j].Kind == diff.LineRemoved {
			continue
		}
		if m := openapiParamName.FindStringSubmatch(lines[j].Text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func listNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		name := strings.Trim(strings.TrimSpace(part), `"'`)
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}

// renamedRoutes pairs each added route declaration with the first unused removed one of a
// shared verb and a similar path.
func renamedRoutes(lines []annotatedLine) []finding {
	type candidate struct {
		decl contract.Declaration
		used bool
	}
	var removed []*candidate
	for _, l := range lines {
		if l.Kind == diff.LineRemoved && l.decl != nil {
			removed = append(removed, &candidate{decl: *l.decl})
		}
	}

	var out []finding
	for _, l := range lines {
		if l.Kind != diff.LineAdded || l.decl == nil {
			continue
		}
		added := *l.decl
		for _, r := range removed {
			if r.used || !r.decl.SharesMethod(added) || !contract.SimilarPaths(r.decl.Path, added.Path) {
				continue
			}
			r.used = true
			oldSuffix, newSuffix := r.decl.Path, added.Path
			out = append(out, finding{
				owner: &added,
				describe: func(_ contract.Method, path string) string {
					return fmt.Sprintf("path changed from %s to %s", renamedFrom(path, oldSuffix, newSuffix), path)
				},
			})
			break
		}
	}
	return out
}

// responseTypeChanges compares response types on removed lines with those on added lines
// close by: an opaque wrapper gaining a concrete argument, a concrete argument swapped or
// dropped, and an untyped Go JSON payload replaced by a struct.
func responseTypeChanges(lines []annotatedLine) []finding {
	var out []finding
	for i, r := range lines {
		if r.Kind != diff.LineRemoved {
			continue
		}
		before := wrappersOn(r.Text)
		goUntyped := goUntypedOut.FindStringSubmatch(r.Text)
		if len(before) == 0 && goUntyped == nil {
			continue
		}

		lo, hi := i-narrowingDistance, i+narrowingDistance
		for j := max(lo, 0); j <= hi && j < len(lines); j++ {
			a := lines[j]
			if a.Kind != diff.LineAdded {
				continue
			}
			var decl *contract.Declaration
			if a.owner != nil {
				d := a.owner.decl
				decl = &d
			}
			for _, text := range wrapperChanges(before, wrappersOn(a.Text)) {
				out = append(out, finding{owner: decl, describe: fixed(text)})
			}
			if goUntyped != nil {
				if m := goTypedOut.FindStringSubmatch(a.Text); m != nil && !opaqueGoPayload(m[1]) {
					text := fmt.Sprintf("response type changed from %s to %s", goUntyped[1], m[1])
					out = append(out, finding{owner: decl, describe: fixed(text)})
				}
			}
		}
	}
	return out
}

// wrapper is one use of a generic type name on a line. Arg is empty for a bare use.
type wrapper struct {
	name string
	arg  string
}

func (w wrapper) String() string {
	if w.arg == "" {
		return w.name
	}
	return w.name + "<" + w.arg + ">"
}

func (w wrapper) opaque() bool {
	return w.arg == "" || opaqueArgs[w.arg]
}

func wrappersOn(line string) []wrapper {
	var out []wrapper
	for _, m := range typedWrapper.FindAllStringSubmatch(line, -1) {
		out = append(out, wrapper{name: m[1], arg: strings.Join(strings.Fields(m[2]), " ")})
	}
	for _, m := range typeName.FindAllStringSubmatch(line, -1) {
		if m[2] == "" {
			out = append(out, wrapper{name: m[1]})
		}
	}
	return out
}

func wrapperChanges(before, after []wrapper) []string {
	var out []string
	for _, b := range before {
		for _, a := range after {
			// List<Stock> on a local variable says nothing about the response
			if a.name != b.name || a.String() == b.String() || !responseWrappers[a.name] {
				continue
			}
			switch {
			case b.opaque() && !a.opaque():
				// narrowing
			case !b.opaque() && (a.opaque() || a.arg != b.arg):
				// widening or a swapped payload type
			default:
				continue
			}
			out = append(out, fmt.Sprintf("response type changed from %s to %s", b, a))
		}
	}
	return out
}

func opaqueGoPayload(t string) bool {
	switch t {
	case "gin.H", "echo.Map", "fiber.Map", "H":
		return true
	}
	return strings.HasPrefix(t, "map")
}
