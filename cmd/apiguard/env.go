package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"apiguard/internal/config"
	"apiguard/internal/consumers"
	apierrors "apiguard/internal/errors"
	"apiguard/internal/output"
	"apiguard/internal/slogutil"
	"apiguard/internal/storage"
	"apiguard/internal/suppress"
)

// env is the per-command runtime: loaded config, logger and output settings.
type env struct {
	root   string
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	render output.Options

	closers []io.Closer
}

// newEnv loads and validates the repository config and builds the command logger.
func newEnv(cmd *cobra.Command) (*env, error) {
	root, err := filepath.Abs(rootFlag)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.InternalError, "resolve repository root", err)
	}

	format, err := output.ParseFormat(formatFlag)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ConfigInvalid, "invalid --format", err)
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ConfigInvalid, "load configuration", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, apierrors.Wrap(apierrors.ConfigInvalid, "invalid configuration", err)
	}

	consoleLevel := slogutil.LevelFromVerbosity(verboseFlag, quietFlag)
	logger, closer, err := slogutil.FromConfig(cmd.ErrOrStderr(), consoleLevel, cfg.Logging, root)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ConfigInvalid, "open log file", err)
	}

	return &env{
		root:    root,
		cfg:     cfg,
		logger:  logger.With("cmd", cmd.Name()),
		out:     cmd.OutOrStdout(),
		render:  output.Options{Format: format, Color: !noColorFlag},
		closers: []io.Closer{closer},
	}, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i].Close(); err != nil {
			e.logger.Debug("Close failed", "error", err)
		}
	}
}

func (e *env) print(v interface{}) error {
	return output.Render(e.out, v, e.render)
}

// openStore opens the snapshot database. It is closed with the env.
func (e *env) openStore() (*storage.Store, error) {
	path := config.Resolve(e.root, e.cfg.Storage.Path)
	db, err := storage.Open(path, e.logger)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.StorageUnavailable, "open "+path, err)
	}
	e.closers = append(e.closers, db)
	return storage.NewStore(db), nil
}

func (e *env) suppressions() (*suppress.Set, error) {
	path := config.Resolve(e.root, e.cfg.Suppressions.Path)
	set, err := suppress.Load(path)
	if err != nil {
		return nil, apierrors.Wrap(apierrors.ConfigInvalid, "load suppressions", err)
	}
	if set.Len() > 0 {
		e.logger.Info("Suppressions loaded", "path", path, "rules", set.Len())
	}
	return set, nil
}

func (e *env) consumerScanner() *consumers.Scanner {
	c := e.cfg.Consumers
	return consumers.NewScanner(consumers.Options{
		Root:         config.Resolve(e.root, c.Root),
		Include:      c.Include,
		Exclude:      c.Exclude,
		MaxFiles:     c.MaxFiles,
		MaxFileBytes: e.cfg.Analysis.MaxFileBytes,
		SourceRepo:   c.SourceRepo,
	}, e.logger)
}

// relPath returns p relative to the repository root in slash form, the key snapshots are
// stored under. Paths outside the root are kept as given.
func (e *env) relPath(p string) string {
	abs := p
	if !filepath.IsAbs(abs) {
		if wd, err := os.Getwd(); err == nil {
			abs = filepath.Join(wd, p)
		}
	}
	rel, err := filepath.Rel(e.root, abs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// readDiff reads diff text from a file, or from stdin when name is "-".
func readDiff(name string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", apierrors.Wrap(apierrors.FileNotFound, fmt.Sprintf("read diff %s", name), err)
	}
	return string(data), nil
}
