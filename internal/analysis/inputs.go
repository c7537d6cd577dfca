package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"apiguard/internal/diff"
	apierrors "apiguard/internal/errors"
)

// Filter selects diff paths with doublestar globs. An empty Include keeps everything that no
// Exclude pattern matches.
type Filter struct {
	Include []string
	Exclude []string
}

// Allows reports whether path passes the filter.
func (f Filter) Allows(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range f.Exclude {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

// InputsFromDiff turns a multi-file unified diff into one FileInput per changed source file,
// reading each file's current content from root. Files that cannot be read carry their error
// and are reported rather than dropped.
func InputsFromDiff(root, diffText string, filter Filter, maxFileBytes int64) ([]FileInput, error) {
	parsed, err := diff.ParseGitDiff(diffText)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.DiffUnparseable, "parse diff", err)
	}
	if len(parsed.Files) == 0 && strings.TrimSpace(diffText) != "" {
		return nil, apierrors.New(apierrors.DiffUnparseable, "diff has no file headers")
	}

	parsed = diff.FilterSourceFiles(parsed)
	inputs := make([]FileInput, 0, len(parsed.Files))
	for i := range parsed.Files {
		fd := &parsed.Files[i]
		path := fd.Path()
		if !filter.Allows(path) {
			continue
		}

		in := FileInput{
			Path:     path,
			DiffText: fd.Text,
			IsNew:    fd.IsNew,
			Deleted:  fd.Deleted,
		}
		if !fd.Deleted {
			in.After, in.Err = readSource(filepath.Join(root, filepath.FromSlash(path)), maxFileBytes)
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

// ReadInput loads a single file for analysis without a diff.
func ReadInput(path string, maxFileBytes int64) FileInput {
	in := FileInput{Path: filepath.ToSlash(path)}
	in.After, in.Err = readSource(path, maxFileBytes)
	return in
}

func readSource(path string, maxFileBytes int64) (string, *apierrors.Error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", apierrors.Wrap(apierrors.FileNotFound, path+" not found", err)
	}
	if err != nil {
		return "", apierrors.Wrap(apierrors.InternalError, "stat "+path, err)
	}
	if maxFileBytes > 0 && info.Size() > maxFileBytes {
		return "", apierrors.New(apierrors.InputTooLarge,
			fmt.Sprintf("%s is %d bytes, limit is %d", path, info.Size(), maxFileBytes)).
			WithDetails(map[string]int64{"size": info.Size(), "limit": maxFileBytes})
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", apierrors.Wrap(apierrors.InternalError, "read "+path, err)
	}
	return string(data), nil
}
