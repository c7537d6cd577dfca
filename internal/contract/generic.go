package contract

import (
	"regexp"
	"strings"
)

// genericStrategy is the fallback: any literal "VERB /path" text is a declaration.
type genericStrategy struct{}

var genericDeclaration = regexp.MustCompile("\\b(GET|POST|PUT|DELETE|PATCH|OPTIONS|HEAD)\\s+(/[^\\s\"'`,;)]*)")

func (genericStrategy) Style() Style { return StyleGeneric }

func (genericStrategy) Detect(src string) bool {
	return genericDeclaration.MatchString(src)
}

func (genericStrategy) Extract(_ string, src string) []Contract {
	var out []Contract
	for i, line := range splitLines(src) {
		for _, m := range genericDeclaration.FindAllStringSubmatch(line, -1) {
			method, _ := ParseMethod(m[1])
			r := route{methods: []Method{method}, rawPath: strings.TrimRight(m[2], ".:"), line: i + 1}
			out = append(out, r.contracts()...)
		}
	}
	return out
}
