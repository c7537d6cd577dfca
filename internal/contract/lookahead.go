package contract

import (
	"regexp"
	"strings"
)

// lookaheadLines bounds how far past a route declaration the handler signature is searched.
const lookaheadLines = 15

// maxAnnotationLines bounds a multi-line annotation or decorator argument list.
const maxAnnotationLines = 6

func splitLines(src string) []string {
	src = strings.ReplaceAll(src, "\r\n", "\n")
	return strings.Split(src, "\n")
}

// window returns the index one past the last line of the lookahead window starting after i.
func window(lines []string, i int) int {
	end := i + 1 + lookaheadLines
	if end > len(lines) {
		end = len(lines)
	}
	return end
}

// balanced collects the text between the first open byte found at or after lines[start][col:]
// and its matching close, spanning at most maxLines lines. Quoted text is skipped.
func balanced(lines []string, start, col int, open, close byte, maxLines int) (string, int, bool) {
	var sb strings.Builder
	depth := 0
	began := false
	var quote byte
	for li := start; li < len(lines) && li < start+maxLines; li++ {
		line := lines[li]
		from := 0
		if li == start {
			from = col
		}
		for i := from; i < len(line); i++ {
			ch := line[i]
			if quote != 0 {
				if ch == '\\' && i+1 < len(line) {
					sb.WriteByte(ch)
					i++
					sb.WriteByte(line[i])
					continue
				}
				if ch == quote {
					quote = 0
				}
				sb.WriteByte(ch)
				continue
			}
			if began && (ch == '"' || ch == '\'' || ch == '`') {
				quote = ch
				sb.WriteByte(ch)
				continue
			}
			switch ch {
			case open:
				depth++
				if !began {
					began = true
					continue
				}
			case close:
				if began {
					depth--
					if depth == 0 {
						return sb.String(), li, true
					}
				}
			}
			if began {
				sb.WriteByte(ch)
			}
		}
		if began {
			sb.WriteByte(' ')
		}
	}
	return "", start, false
}

// splitTopLevel splits s on sep outside brackets, generics and quotes.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	var quote byte
	last := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
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
		case ')', ']', '}', '>':
			if ch == '>' && i > 0 && (s[i-1] == '=' || s[i-1] == '-') {
				continue
			}
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, strings.TrimSpace(s[last:i]))
				last = i + 1
			}
		}
	}
	if tail := strings.TrimSpace(s[last:]); tail != "" {
		parts = append(parts, tail)
	}
	return parts
}

var literalPattern = regexp.MustCompile("\"((?:[^\"\\\\]|\\\\.)*)\"|'((?:[^'\\\\]|\\\\.)*)'|`([^`]*)`")

// literals returns the quoted string literals of s in order.
func literals(s string) []string {
	var out []string
	for _, m := range literalPattern.FindAllStringSubmatch(s, -1) {
		switch {
		case strings.HasPrefix(m[0], "\""):
			out = append(out, m[1])
		case strings.HasPrefix(m[0], "'"):
			out = append(out, m[2])
		default:
			out = append(out, m[3])
		}
	}
	return out
}

func firstLiteral(s string) (string, bool) {
	lits := literals(s)
	if len(lits) == 0 {
		return "", false
	}
	return lits[0], true
}

// leadingLiteral returns the literal that opens s, if s starts with one.
func leadingLiteral(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsRune("\"'`", rune(s[0])) {
		return "", false
	}
	return firstLiteral(s)
}

// attrLiteral finds name = "value" (or name: 'value') inside an argument list.
func attrLiteral(args, name string) (string, bool) {
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*[=:]\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*')`)
	m := re.FindStringSubmatch(args)
	if m == nil {
		return "", false
	}
	return firstLiteral(m[1])
}

func isBlankOrComment(line string) bool {
	t := strings.TrimSpace(line)
	return t == "" || strings.HasPrefix(t, "//") || strings.HasPrefix(t, "#") || strings.HasPrefix(t, "*") || strings.HasPrefix(t, "/*")
}

// compactType strips whitespace inside a type expression.
func compactType(t string) string {
	t = strings.TrimSpace(t)
	t = strings.Join(strings.Fields(t), " ")
	t = strings.ReplaceAll(t, " <", "<")
	t = strings.ReplaceAll(t, "< ", "<")
	t = strings.ReplaceAll(t, " >", ">")
	t = strings.ReplaceAll(t, ", ", ",")
	return t
}

// responseHint patterns, most specific first. Each captures the payload type.
var responseHints = []*regexp.Regexp{
	regexp.MustCompile(`response_model\s*=\s*([\w\[\]., ]+?)\s*[,)]`),
	regexp.MustCompile(`ProducesResponseType\s*\(\s*typeof\s*\(\s*([\w<>.,\[\] ]+?)\s*\)\s*(?:,\s*(?:200|201|StatusCodes\.Status20[01]\w*))?`),
	regexp.MustCompile(`ProducesResponseType<\s*([\w<>.,\[\] ]+?)\s*>`),
	regexp.MustCompile(`Api(?:Ok|Created)?Response\s*\(\s*\{[^}]*\btype\s*:\s*\[?\s*([\w.]+)\s*\]?`),
	regexp.MustCompile(`implementation\s*=\s*([\w.]+)\.class`),
	regexp.MustCompile(`response\s*=\s*([\w.]+)\.class`),
}

// explicitResponseHint scans annotation/decorator text for a declared response type.
func explicitResponseHint(text string) (string, bool) {
	for _, re := range responseHints {
		if m := re.FindStringSubmatch(text); m != nil {
			if t := compactType(m[1]); t != "" {
				return t, true
			}
		}
	}
	return "", false
}
