package contract

import (
	"regexp"
	"strings"
)

// bracketStrategy handles bracket attribute routing in the ASP.NET manner.
type bracketStrategy struct{}

var (
	bracketMarker    = regexp.MustCompile(`\[\s*(Http(Get|Post|Put|Delete|Patch|Head|Options)|Route|ApiController|AcceptVerbs)\b`)
	httpAttribute    = regexp.MustCompile(`\bHttp(Get|Post|Put|Delete|Patch|Head|Options)\b\s*(\(\s*(?:template\s*:\s*)?("(?:[^"\\]|\\.)*")?[^)]*\))?`)
	routeAttribute   = regexp.MustCompile(`\bRoute\s*\(\s*(?:template\s*:\s*)?("(?:[^"\\]|\\.)*")`)
	acceptVerbs      = regexp.MustCompile(`\bAcceptVerbs\s*\(([^)]*)\)`)
	csharpTypeDecl   = regexp.MustCompile(`\b(?:class|record)\s+(\w+)`)
	csharpMethodSig  = regexp.MustCompile(`^\s*(?:(?:public|protected|internal|private|static|virtual|override|async|sealed|new)\s+)+([\w.]+(?:<[\w<>\[\]?,. ]*>)?(?:\[\])?\??)\s+(\w+)\s*\(`)
	csharpParamAttr  = regexp.MustCompile(`\[\s*(From(?:Route|Query|Body|Form|Header|Services))\b(?:\s*\(([^)]*)\))?\s*\]`)
	csharpAnyAttr    = regexp.MustCompile(`\[[^\]]*\]`)
	csharpSimpleType = regexp.MustCompile(`^(?:int|long|short|string|bool|decimal|double|float|Guid|DateTime|DateTimeOffset|byte|uint|ulong)\??$`)
)

var csharpFrameworkTypes = map[string]bool{
	"CancellationToken": true,
	"HttpContext":       true,
	"HttpRequest":       true,
	"HttpResponse":      true,
	"ClaimsPrincipal":   true,
}

func (bracketStrategy) Style() Style { return StyleBracket }

func (bracketStrategy) Detect(src string) bool {
	return bracketMarker.MatchString(src)
}

type pendingAttributes struct {
	methods    []Method
	template   string
	route      string
	hasRoute   bool
	returnHint string
	line       int
}

// routeTemplate prefers the verb attribute's template over a method-level [Route].
func (p *pendingAttributes) routeTemplate() string {
	if p.template == "" && p.hasRoute {
		return p.route
	}
	return p.template
}

func (p *pendingAttributes) reset() {
	*p = pendingAttributes{}
}

func (bracketStrategy) Extract(_ string, src string) []Contract {
	lines := splitLines(src)
	var out []Contract
	base := ""
	var pending pendingAttributes

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}

		if strings.HasPrefix(t, "[") {
			collectAttributes(&pending, t, i)
			continue
		}

		if m := csharpTypeDecl.FindStringSubmatch(line); m != nil && !csharpMethodSig.MatchString(line) {
			base = ""
			if pending.hasRoute {
				base = expandControllerToken(pending.route, m[1])
			}
			pending.reset()
			continue
		}

		m := csharpMethodSig.FindStringSubmatchIndex(line)
		if m == nil {
			if strings.HasSuffix(t, "]") {
				// tail of an attribute that spans lines
				collectAttributes(&pending, t, i)
			} else {
				pending.reset()
			}
			continue
		}
		if len(pending.methods) == 0 {
			pending.reset()
			continue
		}

		name := line[m[4]:m[5]]
		returnType := compactType(line[m[2]:m[3]])
		var params []Parameter
		paramText, _, ok := balanced(lines, i, m[1]-1, '(', ')', lookaheadLines)
		if ok {
			for _, raw := range splitTopLevel(paramText, ',') {
				if p, ok := csharpParameter(raw, pending.routeTemplate()); ok {
					params = append(params, p)
				}
			}
		}
		if pending.returnHint != "" {
			returnType = pending.returnHint
		}

		template := pending.routeTemplate()
		template = strings.ReplaceAll(template, "[action]", strings.ToLower(name))
		path := JoinPath(base, template)
		if strings.HasPrefix(template, "/") || strings.HasPrefix(template, "~/") {
			path = JoinPath("", strings.TrimPrefix(template, "~"))
		}

		r := route{
			methods:    pending.methods,
			rawPath:    path,
			line:       pending.line,
			returnType: returnType,
			params:     params,
		}
		out = append(out, r.contracts()...)
		pending.reset()
	}
	return out
}

func collectAttributes(p *pendingAttributes, text string, i int) {
	for _, m := range httpAttribute.FindAllStringSubmatch(text, -1) {
		verb, ok := ParseMethod(m[1])
		if !ok {
			continue
		}
		if len(p.methods) == 0 {
			p.line = i + 1
		}
		p.methods = appendMethod(p.methods, verb)
		if m[3] != "" && p.template == "" {
			if lit, ok := firstLiteral(m[3]); ok {
				p.template = lit
			}
		}
	}
	if m := acceptVerbs.FindStringSubmatch(text); m != nil {
		for _, lit := range literals(m[1]) {
			if verb, ok := ParseMethod(lit); ok {
				if len(p.methods) == 0 {
					p.line = i + 1
				}
				p.methods = appendMethod(p.methods, verb)
			}
		}
	}
	if m := routeAttribute.FindStringSubmatch(text); m != nil {
		if lit, ok := firstLiteral(m[1]); ok {
			p.route = lit
			p.hasRoute = true
		}
	}
	if hint, ok := explicitResponseHint(text); ok && p.returnHint == "" {
		p.returnHint = hint
	}
}

func appendMethod(methods []Method, m Method) []Method {
	for _, existing := range methods {
		if existing == m {
			return methods
		}
	}
	return append(methods, m)
}

// expandControllerToken substitutes [controller] with the controller name minus its suffix.
func expandControllerToken(template, className string) string {
	name := strings.TrimSuffix(className, "Controller")
	return strings.ReplaceAll(template, "[controller]", strings.ToLower(name))
}

func csharpParameter(raw, template string) (Parameter, bool) {
	source := ""
	nameOverride := ""
	if m := csharpParamAttr.FindStringSubmatch(raw); m != nil {
		source = m[1]
		if lit, ok := attrLiteral(m[2], "Name"); ok {
			nameOverride = lit
		}
	}
	explicitRequired := strings.Contains(raw, "[Required")
	rest := csharpAnyAttr.ReplaceAllString(raw, " ")

	defaultValue := false
	if eq := strings.Index(rest, "="); eq >= 0 {
		defaultValue = true
		rest = rest[:eq]
	}
	fields := strings.Fields(compactType(rest))
	if len(fields) < 2 {
		return Parameter{}, false
	}
	typ := strings.Join(fields[:len(fields)-1], " ")
	name := fields[len(fields)-1]
	if csharpFrameworkTypes[strings.TrimSuffix(typ, "?")] || source == "FromServices" || source == "FromHeader" {
		return Parameter{}, false
	}
	if nameOverride != "" {
		name = nameOverride
	}

	nullable := strings.HasSuffix(typ, "?")
	optional := (nullable || defaultValue) && !explicitRequired

	switch source {
	case "FromRoute":
		return Parameter{Name: name, Type: typ, Required: true, Location: LocationPath}, true
	case "FromQuery":
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationQuery}, true
	case "FromBody", "FromForm":
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationBody}, true
	}

	// Unannotated: placeholders bind from the route, simple types from the query, the rest
	// from the body.
	for _, ph := range PathParams(template) {
		if strings.EqualFold(ph, name) {
			return Parameter{Name: ph, Type: typ, Required: true, Location: LocationPath}, true
		}
	}
	if csharpSimpleType.MatchString(typ) {
		return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationQuery}, true
	}
	return Parameter{Name: name, Type: typ, Required: !optional, Location: LocationBody}, true
}
