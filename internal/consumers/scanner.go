// Package consumers finds call sites of HTTP endpoints by scanning source files for path literals.
package consumers

import (
	"bufio"
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"apiguard/internal/analysis"
	"apiguard/internal/contract"
	apierrors "apiguard/internal/errors"
	"apiguard/internal/slogutil"
)

// Options bounds a scan.
type Options struct {
	Root    string
	Include []string
	Exclude []string
	// MaxFiles caps how many files are indexed; 0 means no cap.
	MaxFiles int
	// MaxFileBytes skips larger files; 0 means no limit.
	MaxFileBytes int64
	SourceRepo   string
}

type sourceFile struct {
	path  string
	lines []string
}

// Scanner indexes the files under Root on first use and answers FindConsumers from memory.
type Scanner struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	indexed bool
	files   []sourceFile
}

// NewScanner creates a scanner. Nothing is read until the first query.
func NewScanner(opts Options, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Scanner{opts: opts, logger: logger}
}

// FindConsumers returns every line that mentions path in a string literal. Route declarations
// are not consumers, and a line that names only other HTTP verbs is skipped.
func (s *Scanner) FindConsumers(ctx context.Context, method contract.Method, path string) ([]analysis.Consumer, error) {
	files, err := s.index(ctx)
	if err != nil {
		return nil, err
	}

	re, ok := literalPattern(path)
	if !ok {
		return nil, nil
	}

	var out []analysis.Consumer
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i, line := range f.lines {
			if !re.MatchString(line) {
				continue
			}
			if _, isDecl := contract.ParseDeclaration(line); isDecl && !clientCall.MatchString(line) {
				continue
			}
			if !verbCompatible(line, method) {
				continue
			}
			out = append(out, analysis.Consumer{
				FilePath:   f.path,
				LineNumber: i + 1,
				SourceRepo: s.opts.SourceRepo,
			})
		}
	}
	s.logger.Debug("Consumers found", "method", method, "path", path, "count", len(out))
	return out, nil
}

func (s *Scanner) index(ctx context.Context) ([]sourceFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed {
		return s.files, nil
	}

	files, err := s.walk(ctx)
	if err != nil {
		return nil, err
	}
	s.files, s.indexed = files, true
	s.logger.Info("Consumer index built", "root", s.opts.Root, "files", len(files))
	return files, nil
}

func (s *Scanner) walk(ctx context.Context) ([]sourceFile, error) {
	root := s.opts.Root
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		if err == nil {
			err = fs.ErrInvalid
		}
		return nil, apierrors.Wrap(apierrors.ConsumerScanFailed, "consumer root "+root+" is not a directory", err)
	}

	var files []sourceFile
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable entries are skipped, not fatal
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if matchAny(s.opts.Exclude, rel) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || matchAny(s.opts.Exclude, rel) {
			return nil
		}
		if len(s.opts.Include) > 0 && !matchAny(s.opts.Include, rel) {
			return nil
		}
		if s.opts.MaxFiles > 0 && len(files) >= s.opts.MaxFiles {
			s.logger.Warn("Consumer scan truncated", "maxFiles", s.opts.MaxFiles)
			return fs.SkipAll
		}

		lines, ok := s.readLines(p)
		if ok {
			files = append(files, sourceFile{path: rel, lines: lines})
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, apierrors.Wrap(apierrors.ConsumerScanFailed, "walk "+root, err)
	}
	return files, nil
}

func (s *Scanner) readLines(p string) ([]string, bool) {
	if s.opts.MaxFileBytes > 0 {
		if info, err := os.Stat(p); err != nil || info.Size() > s.opts.MaxFileBytes {
			return nil, false
		}
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if sc.Err() != nil {
		return nil, false
	}
	return lines, true
}

func matchAny(patterns []string, rel string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

const (
	quote      = "['\"`]"
	notQuote   = "[^'\"`\\s]"
	segmentArg = "[^/'\"`\\s?#]"
)

// literalPattern matches a quoted literal whose path ends with the endpoint path. Anything may
// precede the path inside the literal (a host, a base prefix, an interpolated base) and a
// query or fragment may follow. Placeholders match any one segment; a trailing placeholder may
// be empty so "/users/" + id still counts.
func literalPattern(path string) (*regexp.Regexp, bool) {
	norm := contract.NormalizePath(path)
	if norm == "/" {
		return nil, false
	}

	segs := strings.Split(strings.TrimPrefix(norm, "/"), "/")
	parts := make([]string, len(segs))
	for i, seg := range segs {
		switch {
		case isPlaceholder(seg) && i == len(segs)-1:
			parts[i] = segmentArg + "*"
		case isPlaceholder(seg):
			parts[i] = segmentArg + "+"
		default:
			parts[i] = regexp.QuoteMeta(seg)
		}
	}

	expr := quote + notQuote + "*?/" + strings.Join(parts, "/") + "/?(?:[?#][^'\"`]*)?" + quote
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, false
	}
	return re, true
}

func isPlaceholder(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}

// clientCall recognizes HTTP client calls that read like Express route registrations.
var clientCall = regexp.MustCompile(`(?i)\b(?:axios|fetch|requests|httpx|session|client|api|apiClient|httpClient|http|got|ky|superagent|request|resty)\s*\.\s*(?:get|post|put|delete|patch|head|options|request)\s*[(<]`)

var verbMention = regexp.MustCompile(`(?i)(?:\.(get|post|put|delete|patch|head|options)\s*[(<]|method\s*[:=]\s*['"](get|post|put|delete|patch|head|options)['"]|http\.Method(Get|Post|Put|Delete|Patch|Head|Options)\b)`)

// verbCompatible reports whether line names method or names no verb at all.
func verbCompatible(line string, method contract.Method) bool {
	matches := verbMention.FindAllStringSubmatch(line, -1)
	if len(matches) == 0 {
		return true
	}
	for _, m := range matches {
		for _, g := range m[1:] {
			if g != "" && strings.EqualFold(g, string(method)) {
				return true
			}
		}
	}
	return false
}
