package contract

import (
	"sort"
	"strings"
)

// Style tags the route-declaration convention a file uses.
type Style string

const (
	StyleOpenAPI    Style = "openapi"    // OpenAPI 3 document
	StyleAnnotation Style = "annotation" // class-level prefix + mapping annotations (Spring)
	StyleBracket    Style = "bracket"    // bracket attributes (ASP.NET)
	StyleDecorator  Style = "decorator"  // decorator registration (FastAPI, Flask, NestJS)
	StyleVerbCall   Style = "verbcall"   // explicit verb+path calls (Express, Gin, Echo, chi)
	StyleGeneric    Style = "generic"    // literal "VERB /path" text
)

// Strategy is one declaration-style variant. Detect must be cheap; Extract must never panic
// and returns raw contracts that Extract/ExtractStyle then order and de-duplicate.
type Strategy interface {
	Style() Style
	Detect(src string) bool
	Extract(file, src string) []Contract
}

// strategies is the detection priority order. The generic fallback is not listed; it applies
// when nothing else matches.
var strategies = []Strategy{
	openapiStrategy{},
	annotationStrategy{},
	bracketStrategy{},
	decoratorStrategy{},
	verbCallStrategy{},
}

var fallback Strategy = genericStrategy{}

// Detect returns the style of the first strategy whose content test matches.
func Detect(src string) Style {
	for _, s := range strategies {
		if s.Detect(src) {
			return s.Style()
		}
	}
	return fallback.Style()
}

// StrategyFor returns the variant registered for a style.
func StrategyFor(style Style) (Strategy, bool) {
	if style == fallback.Style() {
		return fallback, true
	}
	for _, s := range strategies {
		if s.Style() == style {
			return s, true
		}
	}
	return nil, false
}

// Extract detects the declaration style of src and extracts its contracts. Unrecognized or
// malformed input yields an empty result, never an error.
func Extract(file, src string) []Contract {
	return ExtractStyle(Detect(src), file, src)
}

// ExtractStyle extracts contracts using a specific style variant.
func ExtractStyle(style Style, file, src string) (out []Contract) {
	s, ok := StrategyFor(style)
	if !ok {
		return []Contract{}
	}
	defer func() {
		if r := recover(); r != nil {
			out = []Contract{}
		}
	}()

	raw := s.Extract(file, src)
	for i := range raw {
		raw[i].Style = style
		raw[i].Source.File = file
	}
	out = finalize(raw)
	resolveHandlers(file, src, out)
	return out
}

// finalize orders contracts by source line (then verb order) and drops repeated identities.
func finalize(raw []Contract) []Contract {
	sort.SliceStable(raw, func(i, j int) bool {
		if raw[i].Source.Line != raw[j].Source.Line {
			return raw[i].Source.Line < raw[j].Source.Line
		}
		return methodOrder(raw[i].Method) < methodOrder(raw[j].Method)
	})

	seen := make(map[Key]bool, len(raw))
	out := make([]Contract, 0, len(raw))
	for _, c := range raw {
		c.Path = NormalizePath(c.Path)
		key := c.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// route is an intermediate declaration recovered by a strategy.
type route struct {
	methods    []Method
	rawPath    string // full path before normalization, converters intact
	line       int
	returnType string
	params     []Parameter
}

// contracts expands a route into one contract per verb, folding path placeholders into the
// parameter list: every placeholder is a required path parameter.
func (r route) contracts() []Contract {
	params := mergePathParams(r.rawPath, r.params)
	out := make([]Contract, 0, len(r.methods))
	for _, m := range r.methods {
		ps := make([]Parameter, len(params))
		copy(ps, params)
		out = append(out, Contract{
			Method:     m,
			Path:       NormalizePath(r.rawPath),
			Parameters: ps,
			ReturnType: strings.TrimSpace(r.returnType),
			Source:     SourceLocation{Line: r.line},
		})
	}
	return out
}

func mergePathParams(rawPath string, declared []Parameter) []Parameter {
	placeholders := PathParams(rawPath)
	converters := converterTypes(rawPath)
	isPath := make(map[string]bool, len(placeholders))
	for _, name := range placeholders {
		isPath[name] = true
	}

	out := make([]Parameter, 0, len(placeholders)+len(declared))
	seen := make(map[string]bool)
	for _, name := range placeholders {
		if seen[name] {
			continue
		}
		seen[name] = true
		p := Parameter{Name: name, Type: converters[name], Required: true, Location: LocationPath}
		for _, d := range declared {
			if d.Name == name && d.Type != "" {
				p.Type = d.Type
			}
		}
		out = append(out, p)
	}
	for _, d := range declared {
		if d.Name == "" || seen[d.Name] {
			continue
		}
		if d.Location == LocationPath {
			// declared as a path variable but absent from the route; keep it, it is still required
			d.Required = true
		}
		seen[d.Name] = true
		out = append(out, d)
	}
	return out
}
