package contract

import (
	"regexp"
	"strings"
)

// decoratorStrategy handles decorator-style registration: FastAPI/Flask on the Python side and
// NestJS on the TypeScript side.
type decoratorStrategy struct{}

var (
	pyRouteDecorator   = regexp.MustCompile(`^\s*@(\w+)\.(get|post|put|delete|patch|options|head|route|api_route)\s*\(`)
	pyRouterPrefix     = regexp.MustCompile(`^\s*(\w+)\s*=\s*(?:\w+\.)?(APIRouter|Blueprint)\s*\(`)
	pyIncludeRouter    = regexp.MustCompile(`\.include_router\(\s*(\w+)\s*,([^)]*)\)`)
	pyRegisterPrefix   = regexp.MustCompile(`\.register_blueprint\(\s*(\w+)\s*,([^)]*)\)`)
	pyDef              = regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)\s*\(`)
	pyReturnAnnotation = regexp.MustCompile(`->\s*(.+?)\s*:\s*(?:#.*)?$`)
	pyOptionalType     = regexp.MustCompile(`^(?:Optional\[|typing\.Optional\[|Union\[.*\bNone\b)|\|\s*None\b|\bNone\s*\|`)
	pyMethodsList      = regexp.MustCompile(`methods\s*=\s*[\[(]([^\])]*)[\])]`)
	pyScalarType       = regexp.MustCompile(`^(?:int|str|float|bool|bytes|UUID|uuid\.UUID|date|datetime|Decimal|List\[\w+\]|list\[\w+\]|Optional\[\w+\]|\w+\s*\|\s*None)$`)

	nestController  = regexp.MustCompile(`@Controller\s*\(`)
	nestRoute       = regexp.MustCompile(`^\s*@(Get|Post|Put|Delete|Patch|Options|Head)\s*\(`)
	nestMethodSig   = regexp.MustCompile(`^\s*(?:(?:public|private|protected|async|static)\s+)*(\w+)\s*\(`)
	nestParamDeco   = regexp.MustCompile(`@(Param|Query|Body|Req|Res|Request|Response|Headers|Next|Ip|Session|UploadedFile)\s*\(`)
	nestReturnAfter = regexp.MustCompile(`^\s*:\s*([^{=]+?)\s*\{?\s*$`)
)

var pySkippedParams = map[string]bool{"self": true, "cls": true, "request": true, "response": true, "background_tasks": true, "*": true, "/": true}

func (decoratorStrategy) Style() Style { return StyleDecorator }

func (decoratorStrategy) Detect(src string) bool {
	for _, line := range splitLines(src) {
		if pyRouteDecorator.MatchString(line) || nestRoute.MatchString(line) {
			return true
		}
	}
	return nestController.MatchString(src)
}

func (s decoratorStrategy) Extract(_ string, src string) []Contract {
	lines := splitLines(src)
	if nestController.MatchString(src) {
		return s.extractNest(lines)
	}
	return s.extractPython(lines)
}

func (decoratorStrategy) extractPython(lines []string) []Contract {
	prefixes := pythonPrefixes(lines)
	var out []Contract
	for i, line := range lines {
		m := pyRouteDecorator.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		owner := line[m[2]:m[3]]
		verb := line[m[4]:m[5]]
		args, _, ok := balanced(lines, i, m[1]-1, '(', ')', maxAnnotationLines)
		if !ok {
			continue
		}
		path, ok := leadingLiteral(args)
		if !ok {
			if path, ok = attrLiteral(args, "path"); !ok {
				if path, ok = attrLiteral(args, "rule"); !ok {
					continue
				}
			}
		}

		var methods []Method
		if verb == "route" || verb == "api_route" {
			if mm := pyMethodsList.FindStringSubmatch(args); mm != nil {
				for _, lit := range literals(mm[1]) {
					if method, ok := ParseMethod(lit); ok {
						methods = appendMethod(methods, method)
					}
				}
			}
			if len(methods) == 0 {
				methods = []Method{MethodGet}
			}
		} else {
			method, _ := ParseMethod(verb)
			methods = []Method{method}
		}

		full := JoinPath(prefixes[owner], path)
		r := route{methods: methods, rawPath: full, line: i + 1}
		if sig, ok := pythonSignature(lines, i, PathParams(full)); ok {
			r.returnType = sig.returnType
			r.params = sig.params
		}
		if hint, ok := explicitResponseHint(args + ")"); ok {
			r.returnType = hint
		}
		out = append(out, r.contracts()...)
	}
	return out
}

// pythonPrefixes maps router/blueprint variables to their mount prefix.
func pythonPrefixes(lines []string) map[string]string {
	prefixes := make(map[string]string)
	for i, line := range lines {
		if m := pyRouterPrefix.FindStringSubmatchIndex(line); m != nil {
			name := line[m[2]:m[3]]
			args, _, ok := balanced(lines, i, m[1]-1, '(', ')', maxAnnotationLines)
			if !ok {
				continue
			}
			if p, ok := attrLiteral(args, "prefix"); ok {
				prefixes[name] = p
			} else if p, ok := attrLiteral(args, "url_prefix"); ok {
				prefixes[name] = p
			}
		}
	}
	for _, line := range lines {
		for _, re := range []*regexp.Regexp{pyIncludeRouter, pyRegisterPrefix} {
			if m := re.FindStringSubmatch(line); m != nil {
				p, ok := attrLiteral(m[2], "prefix")
				if !ok {
					p, ok = attrLiteral(m[2], "url_prefix")
				}
				if ok {
					prefixes[m[1]] = JoinPath(p, prefixes[m[1]])
				}
			}
		}
	}
	return prefixes
}

func pythonSignature(lines []string, i int, placeholders []string) (signature, bool) {
	for j := i + 1; j < window(lines, i); j++ {
		m := pyDef.FindStringSubmatchIndex(lines[j])
		if m == nil {
			continue
		}
		paramText, end, ok := balanced(lines, j, m[1]-1, '(', ')', lookaheadLines)
		if !ok {
			return signature{}, false
		}
		sig := signature{name: lines[j][m[2]:m[3]]}
		if rm := pyReturnAnnotation.FindStringSubmatch(lines[end]); rm != nil {
			sig.returnType = compactType(rm[1])
		}
		isPath := make(map[string]bool, len(placeholders))
		for _, ph := range placeholders {
			isPath[ph] = true
		}
		for _, raw := range splitTopLevel(paramText, ',') {
			if p, ok := pythonParameter(raw, isPath); ok {
				sig.params = append(sig.params, p)
			}
		}
		return sig, true
	}
	return signature{}, false
}

func pythonParameter(raw string, isPath map[string]bool) (Parameter, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "*") {
		return Parameter{}, false
	}
	def := ""
	hasDefault := false
	if eq := strings.Index(raw, "="); eq >= 0 {
		def = strings.TrimSpace(raw[eq+1:])
		raw = strings.TrimSpace(raw[:eq])
		hasDefault = true
	}
	name, typ := raw, ""
	if colon := strings.Index(raw, ":"); colon >= 0 {
		name = strings.TrimSpace(raw[:colon])
		typ = compactType(raw[colon+1:])
	}
	if pySkippedParams[name] || strings.HasPrefix(def, "Depends(") || strings.HasPrefix(def, "Security(") ||
		strings.HasPrefix(def, "Header(") || strings.HasPrefix(def, "Cookie(") {
		return Parameter{}, false
	}
	if typ == "Request" || typ == "Response" || typ == "BackgroundTasks" {
		return Parameter{}, false
	}

	if isPath[name] || strings.HasPrefix(def, "Path(") {
		return Parameter{Name: name, Type: typ, Required: true, Location: LocationPath}, true
	}

	optional := pyOptionalType.MatchString(typ)
	if hasDefault {
		// Query(...) / Body(...) with an Ellipsis first argument is FastAPI's "required" spelling.
		explicitRequired := strings.Contains(def, "(...") || strings.Contains(def, "default=...")
		bareMarker := strings.HasSuffix(def, "()")
		if !explicitRequired && !bareMarker {
			optional = true
		}
	}

	switch {
	case strings.HasPrefix(def, "Body("):
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationBody}, true
	case strings.HasPrefix(def, "Query("):
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationQuery}, true
	case typ != "" && !pyScalarType.MatchString(typ) && !optional:
		// non-scalar annotations are request models
		return Parameter{Name: name, Type: typ, Required: true, Location: LocationBody}, true
	}
	return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationQuery}, true
}

func (decoratorStrategy) extractNest(lines []string) []Contract {
	var out []Contract
	base := ""
	for i, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		if m := nestController.FindStringIndex(line); m != nil {
			args, _, _ := balanced(lines, i, m[1]-1, '(', ')', maxAnnotationLines)
			base = ""
			if p, ok := leadingLiteral(args); ok {
				base = p
			} else if p, ok := attrLiteral(args, "path"); ok {
				base = p
			}
			continue
		}
		m := nestRoute.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		method, _ := ParseMethod(line[m[2]:m[3]])
		args, _, _ := balanced(lines, i, m[1]-1, '(', ')', maxAnnotationLines)
		path, _ := leadingLiteral(args)

		r := route{methods: []Method{method}, rawPath: JoinPath(base, path), line: i + 1}
		if sig, ok := nestSignature(lines, i); ok {
			r.returnType = sig.returnType
			r.params = sig.params
		}
		if hint, ok := explicitResponseHint(decoratorBlock(lines, i)); ok {
			r.returnType = hint
		}
		out = append(out, r.contracts()...)
	}
	return out
}

// decoratorBlock returns the decorator lines stacked above a handler.
func decoratorBlock(lines []string, i int) string {
	var sb strings.Builder
	for j := i; j < window(lines, i); j++ {
		t := strings.TrimSpace(lines[j])
		if j > i && t != "" && !strings.HasPrefix(t, "@") && !strings.HasPrefix(t, "}") && !strings.HasPrefix(t, ")") && !strings.HasSuffix(t, ",") {
			break
		}
		sb.WriteString(t)
		sb.WriteString(" ")
	}
	return sb.String()
}

func nestSignature(lines []string, i int) (signature, bool) {
	for j := i + 1; j < window(lines, i); j++ {
		t := strings.TrimSpace(lines[j])
		if t == "" || strings.HasPrefix(t, "@") || strings.HasPrefix(t, "//") {
			continue
		}
		m := nestMethodSig.FindStringSubmatchIndex(lines[j])
		if m == nil {
			continue
		}
		paramText, end, ok := balanced(lines, j, m[1]-1, '(', ')', lookaheadLines)
		if !ok {
			return signature{}, false
		}
		sig := signature{name: lines[j][m[2]:m[3]]}
		if tail := afterClosingParen(lines[end]); tail != "" {
			if rm := nestReturnAfter.FindStringSubmatch(tail); rm != nil {
				sig.returnType = compactType(rm[1])
			}
		}
		for _, raw := range splitTopLevel(paramText, ',') {
			if p, ok := nestParameter(raw); ok {
				sig.params = append(sig.params, p)
			}
		}
		return sig, true
	}
	return signature{}, false
}

func afterClosingParen(line string) string {
	idx := strings.LastIndex(line, ")")
	if idx < 0 {
		return ""
	}
	return line[idx+1:]
}

func nestParameter(raw string) (Parameter, bool) {
	m := nestParamDeco.FindStringSubmatchIndex(raw)
	if m == nil {
		return Parameter{}, false
	}
	kind := raw[m[2]:m[3]]
	args, _, ok := balanced([]string{raw}, 0, m[1]-1, '(', ')', 1)
	if !ok {
		return Parameter{}, false
	}
	rest := strings.TrimSpace(raw[m[1]+len(args)+1:])
	varName, typ := rest, ""
	if colon := strings.Index(rest, ":"); colon >= 0 {
		varName = strings.TrimSpace(rest[:colon])
		typ = compactType(rest[colon+1:])
	}
	optional := strings.HasSuffix(varName, "?")
	varName = strings.TrimSuffix(varName, "?")
	if eq := strings.Index(typ, "="); eq >= 0 {
		typ = strings.TrimSpace(typ[:eq])
		optional = true
	}
	if strings.Contains(args, "DefaultValuePipe") || strings.Contains(typ, "| undefined") {
		optional = true
	}
	name := varName
	if lit, ok := leadingLiteral(args); ok && lit != "" {
		name = lit
	}

	switch kind {
	case "Param":
		return Parameter{Name: name, Type: typ, Required: true, Location: LocationPath}, true
	case "Query":
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationQuery}, true
	case "Body":
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationBody}, true
	default:
		return Parameter{}, false
	}
}
