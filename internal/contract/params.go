package contract

import (
	"regexp"
	"strings"
)

var (
	paramAnchor  = regexp.MustCompile(`@(?:PathVariable|RequestParam|RequestBody)\b|@(?:Param|Query|Body)\s*\(|\[\s*From(?:Route|Query|Body|Form)\b`)
	pyParamEntry = regexp.MustCompile(`^\s*\w+\s*:\s*[A-Za-z_][\w\[\]., |]*(?:=\s*[^,]+)?,\s*$`)
)

// ParseParameters recognizes handler parameter declarations on one line of source: annotated
// Spring, ASP.NET and NestJS parameters, a Python def signature or one entry of a multi-line
// signature, and request field reads in Express and Go handlers. The line is read without
// its surrounding route, so placeholders are not resolved against a path.
func ParseParameters(line string) []Parameter {
	var params []Parameter
	seen := make(map[string]bool)
	add := func(p Parameter, ok bool) {
		if !ok || p.Name == "" || seen[p.Name] {
			return
		}
		seen[p.Name] = true
		params = append(params, p)
	}

	if m := pyDef.FindStringSubmatchIndex(line); m != nil {
		args, _, ok := balanced([]string{line}, 0, m[1]-1, '(', ')', 1)
		if !ok {
			args = line[m[1]:]
		}
		for _, raw := range splitTopLevel(args, ',') {
			add(pythonParameter(raw, nil))
		}
		return params
	}

	for _, loc := range paramAnchor.FindAllStringIndex(line, -1) {
		seg := parameterSegment(line, loc[0])
		switch {
		case strings.HasPrefix(seg, "["):
			add(csharpParameter(seg, ""))
		case nestParamDeco.MatchString(seg):
			add(nestParameter(seg))
		default:
			add(javaParameter(seg))
		}
	}
	if len(params) > 0 {
		return params
	}

	for _, p := range handlerParams(line) {
		add(p, true)
	}
	if len(params) == 0 && pyParamEntry.MatchString(line) {
		add(pythonParameter(strings.TrimSuffix(strings.TrimSpace(line), ","), nil))
	}
	return params
}

// parameterSegment returns the text of one parameter starting at start, up to the next
// comma or closing paren outside nested brackets and quotes.
func parameterSegment(line string, start int) string {
	depth := 0
	var quote byte
	for i := start; i < len(line); i++ {
		ch := line[i]
		if quote != 0 {
			if ch == '\\' {
				i++
				continue
			}
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '"', '\'', '`':
			quote = ch
		case '(', '[', '{', '<':
			depth++
		case ']', '}', '>':
			if ch == '>' && i > 0 && (line[i-1] == '=' || line[i-1] == '-') {
				continue
			}
			if depth > 0 {
				depth--
			}
		case ')':
			if depth == 0 {
				return strings.TrimSpace(line[start:i])
			}
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(line[start:i])
			}
		}
	}
	return strings.TrimSpace(line[start:])
}
