package contract

import (
	"regexp"
	"strings"
)

// annotationStrategy handles class-level prefix + mapping annotations in the Spring manner.
type annotationStrategy struct{}

var (
	annotationMarker  = regexp.MustCompile(`@(RestController|RequestMapping|GetMapping|PostMapping|PutMapping|DeleteMapping|PatchMapping)\b`)
	mappingAnnotation = regexp.MustCompile(`@(Get|Post|Put|Delete|Patch|Request)Mapping\b`)
	requestMethodRef  = regexp.MustCompile(`RequestMethod\.(\w+)`)
	javaTypeDecl      = regexp.MustCompile(`\b(class|interface)\s+\w+`)
	javaMethodSig     = regexp.MustCompile(`^\s*(?:(?:public|protected|private|static|final|synchronized|abstract|default)\s+)*([\w.]+(?:<[\w<>\[\]?,. ]*>)?(?:\[\])*)\s+(\w+)\s*\(`)
	javaParamAnno     = regexp.MustCompile(`@(PathVariable|RequestParam|RequestBody|RequestHeader|ModelAttribute|CookieValue)\b(\s*\(([^)]*)\))?`)
	javaOtherAnno     = regexp.MustCompile(`@\w+(\s*\([^)]*\))?`)
	mappingPathAttr   = regexp.MustCompile(`\b(?:value|path)\s*=\s*(\{[^}]*\}|"(?:[^"\\]|\\.)*")`)
	requiredFalse     = regexp.MustCompile(`required\s*[=:]\s*false`)
)

func (annotationStrategy) Style() Style { return StyleAnnotation }

func (annotationStrategy) Detect(src string) bool {
	return annotationMarker.MatchString(src)
}

func (annotationStrategy) Extract(_ string, src string) []Contract {
	lines := splitLines(src)
	var out []Contract
	base := ""
	pendingBase := ""

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if isBlankOrComment(line) {
			continue
		}
		if javaTypeDecl.MatchString(line) && !strings.Contains(line, "@") {
			base = pendingBase
			pendingBase = ""
			continue
		}

		loc := mappingAnnotation.FindStringSubmatchIndex(line)
		if loc == nil {
			continue
		}
		kind := line[loc[2]:loc[3]]
		args := ""
		if strings.HasPrefix(strings.TrimSpace(line[loc[1]:]), "(") {
			args, _, _ = balanced(lines, i, loc[1], '(', ')', maxAnnotationLines)
		}

		if kind == "Request" && annotatesType(lines, i) {
			if paths := mappingPaths(args); len(paths) > 0 {
				pendingBase = paths[0]
			}
			continue
		}

		methods := mappingMethods(kind, args)
		if len(methods) == 0 {
			continue
		}
		sig, ok := javaSignature(lines, i)
		returnType := ""
		var params []Parameter
		if ok {
			returnType = sig.returnType
			params = sig.params
		}
		if hint, ok := explicitResponseHint(annotationBlock(lines, i)); ok {
			returnType = hint
		}
		for _, p := range mappingPaths(args) {
			r := route{
				methods:    methods,
				rawPath:    JoinPath(base, p),
				line:       i + 1,
				returnType: returnType,
				params:     params,
			}
			out = append(out, r.contracts()...)
		}
	}
	return out
}

// annotatesType reports whether the annotation at line i decorates a class or interface.
func annotatesType(lines []string, i int) bool {
	for j := i + 1; j < window(lines, i); j++ {
		t := strings.TrimSpace(lines[j])
		if t == "" || strings.HasPrefix(t, "@") || strings.HasPrefix(t, ")") || strings.HasPrefix(t, "//") {
			continue
		}
		return javaTypeDecl.MatchString(t)
	}
	return false
}

// mappingPaths returns the declared paths of a mapping annotation; a mapping without a path
// yields a single empty path.
func mappingPaths(args string) []string {
	var region string
	if m := mappingPathAttr.FindStringSubmatch(args); m != nil {
		region = m[1]
	} else {
		t := strings.TrimSpace(args)
		switch {
		case strings.HasPrefix(t, "{"):
			if end := strings.Index(t, "}"); end > 0 {
				region = t[:end+1]
			}
		case strings.HasPrefix(t, "\""):
			if lit, ok := firstLiteral(t); ok {
				region = `"` + lit + `"`
			}
		}
	}
	paths := literals(region)
	if len(paths) == 0 {
		return []string{""}
	}
	return paths
}

func mappingMethods(kind, args string) []Method {
	if kind != "Request" {
		m, _ := ParseMethod(kind)
		return []Method{m}
	}
	var methods []Method
	for _, ref := range requestMethodRef.FindAllStringSubmatch(args, -1) {
		if m, ok := ParseMethod(ref[1]); ok {
			methods = append(methods, m)
		}
	}
	if len(methods) == 0 {
		// an unrestricted @RequestMapping answers every verb; GET stands in for it
		methods = []Method{MethodGet}
	}
	return methods
}

// annotationBlock returns the annotation lines stacked between a mapping and its handler.
func annotationBlock(lines []string, i int) string {
	var sb strings.Builder
	sb.WriteString(lines[i])
	for j := i + 1; j < window(lines, i); j++ {
		if javaMethodSig.MatchString(lines[j]) && !strings.HasPrefix(strings.TrimSpace(lines[j]), "@") {
			break
		}
		sb.WriteString(" ")
		sb.WriteString(lines[j])
	}
	return sb.String()
}

type signature struct {
	name       string
	returnType string
	params     []Parameter
}

// javaSignature finds the handler method following the annotation at line i.
func javaSignature(lines []string, i int) (signature, bool) {
	for j := i + 1; j < window(lines, i); j++ {
		t := strings.TrimSpace(lines[j])
		if t == "" || strings.HasPrefix(t, "@") || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "*") {
			continue
		}
		m := javaMethodSig.FindStringSubmatchIndex(lines[j])
		if m == nil {
			continue
		}
		paramText, _, ok := balanced(lines, j, m[1]-1, '(', ')', lookaheadLines)
		if !ok {
			return signature{}, false
		}
		sig := signature{
			returnType: compactType(lines[j][m[2]:m[3]]),
			name:       lines[j][m[4]:m[5]],
		}
		for _, raw := range splitTopLevel(paramText, ',') {
			if p, ok := javaParameter(raw); ok {
				sig.params = append(sig.params, p)
			}
		}
		return sig, true
	}
	return signature{}, false
}

// javaParameter parses one handler parameter. Parameters without a binding annotation
// (servlet requests, principals, models) are not part of the contract.
func javaParameter(raw string) (Parameter, bool) {
	m := javaParamAnno.FindStringSubmatch(raw)
	if m == nil {
		return Parameter{}, false
	}
	kind, args := m[1], m[3]
	rest := javaOtherAnno.ReplaceAllString(raw, " ")
	rest = strings.ReplaceAll(rest, "final ", " ")
	fields := strings.Fields(compactType(rest))
	if len(fields) == 0 {
		return Parameter{}, false
	}
	varName := fields[len(fields)-1]
	typ := ""
	if len(fields) > 1 {
		typ = strings.Join(fields[:len(fields)-1], " ")
	}

	name := varName
	if lit, ok := leadingLiteral(args); ok && lit != "" {
		name = lit
	} else if lit, ok := attrLiteral(args, "name"); ok && lit != "" {
		name = lit
	} else if lit, ok := attrLiteral(args, "value"); ok && lit != "" {
		name = lit
	}

	optional := requiredFalse.MatchString(args) ||
		strings.Contains(args, "defaultValue") ||
		strings.HasPrefix(typ, "Optional<")

	switch kind {
	case "PathVariable":
		return Parameter{Name: name, Type: typ, Required: true, Location: LocationPath}, true
	case "RequestParam":
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationQuery}, true
	case "RequestBody":
		return Parameter{Name: varName, Type: typ, Required: !optional, Location: LocationBody}, true
	default:
		return Parameter{}, false
	}
}
