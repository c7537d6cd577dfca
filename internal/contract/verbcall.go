package contract

import (
	"regexp"
	"strings"
)

// verbCallStrategy handles explicit verb+path registration calls: Express, Gin, Echo, chi,
// gorilla/mux and the Go 1.22 method-qualified ServeMux patterns.
type verbCallStrategy struct{}

// handlerBodyLines bounds how much of a named handler's body is scanned for parameter reads.
const handlerBodyLines = 40

var (
	verbCall        = regexp.MustCompile("\\b([\\w$]+)\\s*\\.\\s*(get|post|put|delete|patch|options|head|GET|POST|PUT|DELETE|PATCH|OPTIONS|HEAD|Get|Post|Put|Delete|Patch|Options|Head)\\s*\\(\\s*(\"[^\"]*\"|'[^']*'|`[^`]*`)")
	goMuxPattern    = regexp.MustCompile(`\b(\w+)\.(?:HandleFunc|Handle)\s*\(\s*"(GET|POST|PUT|DELETE|PATCH|OPTIONS|HEAD)\s+(/[^"]*)"`)
	gorillaMethods  = regexp.MustCompile(`\b(\w+)\.(?:HandleFunc|Handle|Path)\s*\(\s*"(/[^"]*)".*?\.Methods\(([^)]*)\)`)
	explicitMethod  = regexp.MustCompile(`\b(\w+)\.(?:Method|MethodFunc|Add|Handle)\s*\(\s*(?:http\.Method(\w+)|"([A-Za-z]+)")\s*,\s*"(/[^"]*)"`)
	expressRouteSeq = regexp.MustCompile("\\b(\\w+)\\.route\\(\\s*(\"[^\"]*\"|'[^']*'|`[^`]*`)\\s*\\)")
	chainedVerb     = regexp.MustCompile(`\.\s*(get|post|put|delete|patch|options|head)\s*\(`)

	goGroup        = regexp.MustCompile(`\b(\w+)\s*:?=\s*(\w+)\.Group\(\s*"([^"]*)"`)
	gorillaPrefix  = regexp.MustCompile(`\b(\w+)\s*:?=\s*(\w+)\.PathPrefix\(\s*"([^"]*)"\s*\)\.Subrouter\(\)`)
	expressMount   = regexp.MustCompile("\\b(\\w+)\\.use\\(\\s*(\"[^\"]*\"|'[^']*'|`[^`]*`)\\s*,\\s*(?:[\\w.]+\\s*,\\s*)*(\\w+)\\s*\\)")
	chiRouteScope  = regexp.MustCompile(`\b(\w+)\.Route\(\s*"([^"]*)"\s*,\s*func\s*\(\s*(\w+)`)
	trailingHandle = regexp.MustCompile(`,\s*([\w.]+)\s*\)\s*;?\s*(?://.*)?$`)

	jsReqField     = regexp.MustCompile(`\breq(?:uest)?\.(params|query|body)\.(\w+)(\s*(?:\?\?|\|\|))?`)
	jsDestructure  = regexp.MustCompile(`\{\s*([^{}]*)\}\s*=\s*req(?:uest)?\.(params|query|body)\b`)
	goParamRead    = regexp.MustCompile(`\.(DefaultQuery|GetQuery|QueryParam|Query|DefaultPostForm|PostForm|FormValue|Param|PathValue)\(\s*"(\w+)"`)
	goStdQuery     = regexp.MustCompile(`\.URL\.Query\(\)\.Get\(\s*"(\w+)"`)
	chiURLParam    = regexp.MustCompile(`chi\.URLParam\(\s*\w+\s*,\s*"(\w+)"`)
	goBind         = regexp.MustCompile(`\.(ShouldBindJSON|BindJSON|ShouldBindQuery|BindQuery|ShouldBind|Bind|Decode)\(\s*&(\w+)\s*\)`)
	tsResponseType = regexp.MustCompile(`\bres(?:ponse)?\s*:\s*Response<\s*([\w.\[\]]+(?:<[\w.\[\], ]*>)?)\s*[,>]`)
	goJSONLiteral  = regexp.MustCompile(`\.(?:JSON|IndentedJSON|PureJSON|Encode)\(\s*(?:[^,()]+,\s*)?&?([\w.]+(?:\[\])?)\{`)
	goJSONVar      = regexp.MustCompile(`\.(?:JSON|IndentedJSON|PureJSON|Encode)\(\s*(?:[^,()]+,\s*)?&?(\w+)\s*\)`)
	jsJSONVar      = regexp.MustCompile(`\.json\(\s*(\w+)\s*\)`)
)

var skippedReceivers = map[string]bool{
	"axios": true, "http": true, "https": true, "fetch": true, "client": true, "request": true,
	"superagent": true, "supertest": true, "$http": true, "api": true, "cy": true, "req": true,
	"params": true, "searchParams": true, "headers": true, "map": true, "cache": true,
}

var untypedPayloads = map[string]bool{"gin.H": true, "echo.Map": true, "fiber.Map": true, "H": true}

func (verbCallStrategy) Style() Style { return StyleVerbCall }

func (verbCallStrategy) Detect(src string) bool {
	if goMuxPattern.MatchString(src) || gorillaMethods.MatchString(src) || explicitMethod.MatchString(src) {
		return true
	}
	for _, m := range verbCall.FindAllStringSubmatch(src, -1) {
		if skippedReceivers[m[1]] {
			continue
		}
		if lit, ok := firstLiteral(m[3]); ok && strings.HasPrefix(lit, "/") {
			return true
		}
	}
	return false
}

// scope is a chi Route block whose prefix applies to the router variable it hands in.
type scope struct {
	receiver string
	prefix   string
	depth    int
}

type verbRoute struct {
	route
	handlerRef string
}

func (verbCallStrategy) Extract(_ string, src string) []Contract {
	lines := splitLines(src)
	prefixes := verbCallPrefixes(lines)

	var found []verbRoute
	var scopes []scope
	depth := 0
	for i, line := range lines {
		if isBlankOrComment(line) {
			continue
		}
		prefixOf := func(receiver string) string {
			// the innermost Route block already carries its enclosing prefixes
			for k := len(scopes) - 1; k >= 0; k-- {
				if scopes[k].receiver == receiver {
					return scopes[k].prefix
				}
			}
			return prefixes[receiver]
		}

		if m := chiRouteScope.FindStringSubmatch(line); m != nil {
			scopes = append(scopes, scope{receiver: m[3], prefix: JoinPath(prefixOf(m[1]), m[2]), depth: depth})
		}
		found = append(found, routesOnLine(lines, i, prefixOf, prefixes)...)

		depth += braceDelta(line)
		for len(scopes) > 0 && depth <= scopes[len(scopes)-1].depth {
			scopes = scopes[:len(scopes)-1]
		}
	}

	var out []Contract
	for _, vr := range found {
		body := blockFrom(lines, vr.line-1, lookaheadLines)
		if vr.handlerRef != "" {
			if named, ok := namedHandlerBody(lines, vr.handlerRef); ok {
				body = named
			}
		}
		vr.params = handlerParams(body)
		vr.returnType = handlerReturnType(body)
		cs := vr.route.contracts()
		for k := range cs {
			cs[k].Handler = vr.handlerRef
		}
		out = append(out, cs...)
	}
	return out
}

func routesOnLine(lines []string, i int, prefixOf func(string) string, groups map[string]string) []verbRoute {
	line := lines[i]
	var out []verbRoute
	add := func(methods []Method, path string) {
		out = append(out, verbRoute{
			route:      route{methods: methods, rawPath: path, line: i + 1},
			handlerRef: handlerReference(line),
		})
	}

	if m := goMuxPattern.FindStringSubmatch(line); m != nil {
		method, _ := ParseMethod(m[2])
		add([]Method{method}, JoinPath(prefixOf(m[1]), m[3]))
		return out
	}
	if m := gorillaMethods.FindStringSubmatch(line); m != nil {
		var methods []Method
		for _, lit := range literals(m[3]) {
			if method, ok := ParseMethod(lit); ok {
				methods = appendMethod(methods, method)
			}
		}
		if len(methods) > 0 {
			add(methods, JoinPath(prefixOf(m[1]), m[2]))
		}
		return out
	}
	if m := explicitMethod.FindStringSubmatch(line); m != nil {
		verb := m[2]
		if verb == "" {
			verb = m[3]
		}
		if method, ok := ParseMethod(verb); ok {
			add([]Method{method}, JoinPath(prefixOf(m[1]), m[4]))
		}
		return out
	}
	if m := expressRouteSeq.FindStringSubmatchIndex(line); m != nil {
		base, _ := firstLiteral(line[m[4]:m[5]])
		path := JoinPath(prefixOf(line[m[2]:m[3]]), base)
		var methods []Method
		for j := i; j < window(lines, i); j++ {
			text := lines[j]
			if j == i {
				text = text[m[1]:]
			}
			for _, cm := range chainedVerb.FindAllStringSubmatch(text, -1) {
				if method, ok := ParseMethod(cm[1]); ok {
					methods = appendMethod(methods, method)
				}
			}
			if strings.HasSuffix(strings.TrimSpace(lines[j]), ";") {
				break
			}
		}
		if len(methods) > 0 {
			add(methods, path)
		}
		return out
	}

	for _, m := range verbCall.FindAllStringSubmatch(line, -1) {
		receiver := m[1]
		if skippedReceivers[receiver] {
			continue
		}
		lit, ok := firstLiteral(m[3])
		if !ok {
			continue
		}
		_, isGroup := groups[receiver]
		if !strings.HasPrefix(lit, "/") && !(lit == "" && isGroup) {
			continue
		}
		method, _ := ParseMethod(m[2])
		add([]Method{method}, JoinPath(prefixOf(receiver), lit))
	}
	return out
}

// verbCallPrefixes resolves router groups, sub-routers and Express mounts to their prefix.
func verbCallPrefixes(lines []string) map[string]string {
	prefixes := make(map[string]string)
	// two passes let a mount declared after its child still resolve
	for pass := 0; pass < 2; pass++ {
		for _, line := range lines {
			for _, re := range []*regexp.Regexp{goGroup, gorillaPrefix} {
				if m := re.FindStringSubmatch(line); m != nil {
					prefixes[m[1]] = JoinPath(prefixes[m[2]], m[3])
				}
			}
			if m := expressMount.FindStringSubmatch(line); m != nil {
				if lit, ok := firstLiteral(m[2]); ok && strings.HasPrefix(lit, "/") {
					prefixes[m[3]] = JoinPath(prefixes[m[1]], lit)
				}
			}
		}
	}
	for k, v := range prefixes {
		if v == "/" {
			prefixes[k] = ""
		}
	}
	return prefixes
}

// blockFrom returns the lines from i through the close of the brace block opened there,
// capped at limit lines. A line that opens no block stands alone.
func blockFrom(lines []string, i, limit int) string {
	depth := 0
	end := i + limit
	if end > len(lines) {
		end = len(lines)
	}
	for j := i; j < end; j++ {
		depth += braceDelta(lines[j])
		if depth <= 0 {
			return strings.Join(lines[i:j+1], "\n")
		}
	}
	return strings.Join(lines[i:end], "\n")
}

// braceDelta counts { minus } outside string literals.
func braceDelta(line string) int {
	delta := 0
	var quote byte
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == '\\' {
				i++
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
		case '{':
			delta++
		case '}':
			delta--
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return delta
			}
		}
	}
	return delta
}

// handlerReference returns the name of a handler passed by reference as the last argument.
func handlerReference(line string) string {
	m := trailingHandle.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	name := m[1]
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		name = name[dot+1:]
	}
	return name
}

func namedHandlerBody(lines []string, name string) (string, bool) {
	q := regexp.QuoteMeta(name)
	def := regexp.MustCompile(`(?:\bfunc\s+(?:\([^)]*\)\s*)?` + q + `\s*\(|\bfunction\s+` + q + `\s*\(|\b(?:const|let|var)\s+` + q + `\s*=|^\s*(?:async\s+)?` + q + `\s*\([^)]*\)\s*[:{])`)
	for i, line := range lines {
		if !def.MatchString(line) {
			continue
		}
		return blockFrom(lines, i, handlerBodyLines), true
	}
	return "", false
}

func handlerParams(body string) []Parameter {
	var params []Parameter
	seen := make(map[string]bool)
	add := func(p Parameter) {
		if p.Name == "" || seen[p.Name] {
			return
		}
		seen[p.Name] = true
		params = append(params, p)
	}

	for _, m := range jsDestructure.FindAllStringSubmatch(body, -1) {
		loc := jsLocation(m[2])
		for _, field := range splitTopLevel(m[1], ',') {
			optional := strings.Contains(field, "=")
			if eq := strings.Index(field, "="); eq >= 0 {
				field = field[:eq]
			}
			if colon := strings.Index(field, ":"); colon >= 0 {
				field = field[:colon]
			}
			name := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(field), "..."))
			add(Parameter{Name: name, Required: loc == LocationPath || !optional, Location: loc})
		}
	}
	for _, m := range jsReqField.FindAllStringSubmatch(body, -1) {
		loc := jsLocation(m[1])
		add(Parameter{Name: m[2], Required: loc == LocationPath || m[3] == "", Location: loc})
	}
	for _, m := range goParamRead.FindAllStringSubmatch(body, -1) {
		switch m[1] {
		case "Param", "PathValue":
			add(Parameter{Name: m[2], Type: "string", Required: true, Location: LocationPath})
		case "Query", "QueryParam":
			add(Parameter{Name: m[2], Type: "string", Required: true, Location: LocationQuery})
		case "DefaultQuery", "GetQuery":
			add(Parameter{Name: m[2], Type: "string", Required: false, Location: LocationQuery})
		case "PostForm", "FormValue":
			add(Parameter{Name: m[2], Type: "string", Required: true, Location: LocationBody})
		case "DefaultPostForm":
			add(Parameter{Name: m[2], Type: "string", Required: false, Location: LocationBody})
		}
	}
	for _, m := range goStdQuery.FindAllStringSubmatch(body, -1) {
		add(Parameter{Name: m[1], Type: "string", Required: true, Location: LocationQuery})
	}
	for _, m := range chiURLParam.FindAllStringSubmatch(body, -1) {
		add(Parameter{Name: m[1], Type: "string", Required: true, Location: LocationPath})
	}
	for _, m := range goBind.FindAllStringSubmatch(body, -1) {
		loc := LocationBody
		if strings.HasSuffix(m[1], "Query") {
			loc = LocationQuery
		}
		add(Parameter{Name: m[2], Type: varType(body, m[2]), Required: true, Location: loc})
	}
	return params
}

func jsLocation(field string) Location {
	switch field {
	case "params":
		return LocationPath
	case "query":
		return LocationQuery
	default:
		return LocationBody
	}
}

func handlerReturnType(body string) string {
	if m := tsResponseType.FindStringSubmatch(body); m != nil {
		return compactType(m[1])
	}
	if m := goJSONLiteral.FindStringSubmatch(body); m != nil && !untypedPayloads[m[1]] && !strings.HasPrefix(m[1], "map") {
		return m[1]
	}
	for _, re := range []*regexp.Regexp{goJSONVar, jsJSONVar} {
		if m := re.FindStringSubmatch(body); m != nil {
			if t := varType(body, m[1]); t != "" && !untypedPayloads[t] {
				return t
			}
		}
	}
	return ""
}

// varType recovers the declared type of a local variable from a Go or TypeScript declaration.
func varType(body, name string) string {
	q := regexp.QuoteMeta(name)
	patterns := []string{
		`\bvar\s+` + q + `\s+\*?([\w.\[\]]+)`,
		`\b` + q + `\s*:?=\s*&?([\w.]+(?:\[\])?)\{`,
		`\b` + q + `\s*:?=\s*new\(([\w.]+)\)`,
		`\b(?:const|let|var)\s+` + q + `\s*:\s*([\w.]+(?:<[\w.\[\], ]*>)?(?:\[\])?)`,
	}
	for _, p := range patterns {
		if m := regexp.MustCompile(p).FindStringSubmatch(body); m != nil {
			return compactType(m[1])
		}
	}
	return ""
}
