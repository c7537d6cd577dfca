package contract

import "strings"

// Declaration is a route declaration recognized on a single line of source, without the
// surrounding file. Path is the handler-level path as written, so it may be only the suffix
// of the endpoint's full path. Methods is empty when the line does not pin a verb.
type Declaration struct {
	Methods []Method
	Path    string
	Style   Style
}

// HasMethod reports whether the declaration answers m. A declaration without verbs answers any.
func (d Declaration) HasMethod(m Method) bool {
	if len(d.Methods) == 0 {
		return true
	}
	for _, dm := range d.Methods {
		if dm == m {
			return true
		}
	}
	return false
}

// SharesMethod reports whether two declarations have a verb in common.
func (d Declaration) SharesMethod(o Declaration) bool {
	if len(d.Methods) == 0 || len(o.Methods) == 0 {
		return true
	}
	for _, m := range d.Methods {
		if o.HasMethod(m) {
			return true
		}
	}
	return false
}

// ParseDeclaration recognizes a route declaration on one line in any supported style.
func ParseDeclaration(line string) (Declaration, bool) {
	one := []string{line}

	if loc := mappingAnnotation.FindStringSubmatchIndex(line); loc != nil {
		kind := line[loc[2]:loc[3]]
		args := ""
		if strings.HasPrefix(strings.TrimSpace(line[loc[1]:]), "(") {
			args, _, _ = balanced(one, 0, loc[1], '(', ')', 1)
		}
		var methods []Method
		if kind != "Request" || requestMethodRef.MatchString(args) {
			methods = mappingMethods(kind, args)
		}
		return Declaration{Methods: methods, Path: NormalizePath(mappingPaths(args)[0]), Style: StyleAnnotation}, true
	}

	if strings.HasPrefix(strings.TrimSpace(line), "[") {
		var p pendingAttributes
		collectAttributes(&p, strings.TrimSpace(line), 0)
		if len(p.methods) > 0 || p.hasRoute {
			return Declaration{Methods: p.methods, Path: NormalizePath(p.routeTemplate()), Style: StyleBracket}, true
		}
	}

	if m := pyRouteDecorator.FindStringSubmatchIndex(line); m != nil {
		verb := line[m[4]:m[5]]
		args, _, _ := balanced(one, 0, m[1]-1, '(', ')', 1)
		path, ok := leadingLiteral(args)
		if !ok {
			path, ok = attrLiteral(args, "path")
		}
		if ok {
			var methods []Method
			if method, known := ParseMethod(verb); known {
				methods = []Method{method}
			} else if mm := pyMethodsList.FindStringSubmatch(args); mm != nil {
				for _, lit := range literals(mm[1]) {
					if method, known := ParseMethod(lit); known {
						methods = appendMethod(methods, method)
					}
				}
			}
			return Declaration{Methods: methods, Path: NormalizePath(path), Style: StyleDecorator}, true
		}
	}

	if m := nestRoute.FindStringSubmatchIndex(line); m != nil {
		method, _ := ParseMethod(line[m[2]:m[3]])
		args, _, _ := balanced(one, 0, m[1]-1, '(', ')', 1)
		path, _ := leadingLiteral(args)
		return Declaration{Methods: []Method{method}, Path: NormalizePath(path), Style: StyleDecorator}, true
	}

	noPrefix := func(string) string { return "" }
	if routes := routesOnLine(one, 0, noPrefix, nil); len(routes) > 0 {
		r := routes[0]
		return Declaration{Methods: r.methods, Path: NormalizePath(r.rawPath), Style: StyleVerbCall}, true
	}

	if m := genericDeclaration.FindStringSubmatch(line); m != nil {
		method, _ := ParseMethod(m[1])
		return Declaration{Methods: []Method{method}, Path: NormalizePath(strings.TrimRight(m[2], ".:")), Style: StyleGeneric}, true
	}
	return Declaration{}, false
}
