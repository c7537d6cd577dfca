package contract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// openapiStrategy reads OpenAPI 3 documents, and Swagger 2 documents converted to 3.
type openapiStrategy struct{}

var openapiMarker = regexp.MustCompile(`(?m)^\s*\{?\s*["']?(openapi|swagger)["']?\s*:\s*["']?\d`)

func (openapiStrategy) Style() Style { return StyleOpenAPI }

func (openapiStrategy) Detect(src string) bool {
	return openapiMarker.MatchString(src)
}

func (openapiStrategy) Extract(_ string, src string) []Contract {
	doc, err := loadOpenAPI([]byte(src))
	if err != nil || doc.Paths == nil {
		return nil
	}
	lines := splitLines(src)

	paths := doc.Paths.Map()
	keys := make([]string, 0, len(paths))
	for k := range paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []Contract
	for _, path := range keys {
		item := paths[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range Methods {
			op := ops[string(method)]
			if op == nil {
				continue
			}
			r := route{
				methods:    []Method{method},
				rawPath:    path,
				line:       openapiLine(lines, path, method),
				returnType: responseType(op),
				params:     operationParams(item.Parameters, op),
			}
			out = append(out, r.contracts()...)
		}
	}
	return out
}

func loadOpenAPI(data []byte) (*openapi3.T, error) {
	var probe struct {
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if probe.Swagger != "" {
		return loadSwagger2(data)
	}
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	return loader.LoadFromData(data)
}

func loadSwagger2(data []byte) (*openapi3.T, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode swagger document: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("re-encode swagger document: %w", err)
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(js, &doc2); err != nil {
		return nil, fmt.Errorf("decode swagger document: %w", err)
	}
	return openapi2conv.ToV3(&doc2)
}

// operationParams merges path-item and operation parameters (the operation wins on a name
// clash) with the top-level properties of a JSON request body.
func operationParams(shared openapi3.Parameters, op *openapi3.Operation) []Parameter {
	var out []Parameter
	index := make(map[string]int)
	for _, list := range []openapi3.Parameters{shared, op.Parameters} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			var loc Location
			switch p.In {
			case openapi3.ParameterInPath:
				loc = LocationPath
			case openapi3.ParameterInQuery:
				loc = LocationQuery
			default:
				continue
			}
			param := Parameter{Name: p.Name, Type: schemaName(p.Schema), Required: p.Required || loc == LocationPath, Location: loc}
			if i, ok := index[p.Name]; ok {
				out[i] = param
				continue
			}
			index[p.Name] = len(out)
			out = append(out, param)
		}
	}

	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return out
	}
	body := op.RequestBody.Value
	mt := body.Content.Get("application/json")
	if mt == nil || mt.Schema == nil || mt.Schema.Value == nil {
		return out
	}
	schema := mt.Schema.Value
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, clash := index[name]; clash {
			continue
		}
		out = append(out, Parameter{
			Name:     name,
			Type:     schemaName(schema.Properties[name]),
			Required: required[name],
			Location: LocationBody,
		})
	}
	return out
}

func responseType(op *openapi3.Operation) string {
	if op.Responses == nil {
		return ""
	}
	for _, code := range []string{"200", "201"} {
		resp := op.Responses.Value(code)
		if resp == nil || resp.Value == nil {
			continue
		}
		mt := resp.Value.Content.Get("application/json")
		if mt == nil {
			continue
		}
		if name := schemaName(mt.Schema); name != "" {
			return name
		}
	}
	return ""
}

// schemaName renders a schema reference as a type name: the component name for $refs,
// "X[]" for arrays, the primitive type otherwise.
func schemaName(ref *openapi3.SchemaRef) string {
	if ref == nil {
		return ""
	}
	if ref.Ref != "" {
		return ref.Ref[strings.LastIndex(ref.Ref, "/")+1:]
	}
	if ref.Value == nil {
		return ""
	}
	types := ref.Value.Type.Slice()
	if len(types) == 0 {
		return ""
	}
	if types[0] == openapi3.TypeArray {
		if item := schemaName(ref.Value.Items); item != "" {
			return item + "[]"
		}
		return "array"
	}
	return types[0]
}

// openapiLine finds the line of an operation by locating the path key and then the first
// method key after it.
func openapiLine(lines []string, path string, method Method) int {
	pathKey := regexp.MustCompile(`^\s*["']?` + regexp.QuoteMeta(path) + `["']?\s*:`)
	methodKey := regexp.MustCompile(`(?i)^\s*["']?` + string(method) + `["']?\s*:`)
	for i, line := range lines {
		if !pathKey.MatchString(line) {
			continue
		}
		indent := indentOf(line)
		for j := i + 1; j < len(lines); j++ {
			if strings.TrimSpace(lines[j]) == "" {
				continue
			}
			if indentOf(lines[j]) <= indent {
				break
			}
			if methodKey.MatchString(lines[j]) {
				return j + 1
			}
		}
		return i + 1
	}
	return 0
}

func indentOf(line string) int {
	return len(line) - len(strings.TrimLeft(line, " \t"))
}
