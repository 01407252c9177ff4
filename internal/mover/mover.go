package mover

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gofrs/flock"

	"github.com/Nomadcxx/swipesort/internal/logging"
)

// Move operation errors
var (
	ErrSourceNotFound    = errors.New("source file not found")
	ErrDestinationExists = errors.New("destination already exists")
	ErrPathEscape        = errors.New("path escapes media root")
	ErrProtected         = errors.New("path is protected")
	ErrInvalidName       = errors.New("invalid folder name")
	ErrNotDirectory      = errors.New("target is not a directory")
)

// Operation represents a single filesystem operation
type Operation struct {
	ID          string
	Type        string // "move", "mkdir"
	Source      string // relative to root
	Destination string // relative to root
	Timestamp   time.Time
	Completed   bool
}

// Config holds mover configuration
type Config struct {
	Root           string   // media root every path is relative to
	DryRun         bool     // validate and log without touching the filesystem
	ProtectedPaths []string // relative paths that may not be moved from or into
	LogPath        string   // operation log; empty disables logging
	Logger         *logging.Logger
}

// Mover performs moves and folder creation inside a media root
type Mover struct {
	config Config
	root   string
	log    *logging.Logger
}

// New creates a Mover rooted at config.Root
func New(config Config) (*Mover, error) {
	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", config.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("media root not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("media root %s: %w", root, ErrNotDirectory)
	}
	// Containment checks compare real paths, so the root is stored resolved
	if root, err = filepath.EvalSymlinks(root); err != nil {
		return nil, fmt.Errorf("failed to resolve root %s: %w", config.Root, err)
	}

	log := config.Logger
	if log == nil {
		log = logging.Nop()
	}

	return &Mover{config: config, root: root, log: log.With("mover")}, nil
}

// Root returns the absolute media root
func (m *Mover) Root() string {
	return m.root
}

// Resolve turns a slash-separated path relative to the root into an
// absolute path, refusing anything that climbs out of the root, either
// lexically or through a symlink.
func (m *Mover) Resolve(rel string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash("/" + rel))
	abs := filepath.Join(m.root, cleaned)

	if !m.contains(abs) {
		return "", fmt.Errorf("%q: %w", rel, ErrPathEscape)
	}

	// Cleaning "/.." yields "/", so also reject explicit traversal
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%q: %w", rel, ErrPathEscape)
		}
	}

	resolved, err := realPath(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", rel, err)
	}
	if !m.contains(resolved) {
		return "", fmt.Errorf("%q: %w", rel, ErrPathEscape)
	}

	return abs, nil
}

func (m *Mover) contains(abs string) bool {
	return abs == m.root || strings.HasPrefix(abs, m.root+string(filepath.Separator))
}

// realPath evaluates symlinks in abs. Paths that do not exist yet, such as
// a target folder about to be created, resolve through their deepest
// existing ancestor.
func realPath(abs string) (string, error) {
	var missing []string
	p := abs
	for {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(p)
		if parent == p {
			return abs, nil
		}
		missing = append([]string{filepath.Base(p)}, missing...)
		p = parent
	}
}

// Relative converts an absolute path under the root back to slash form
func (m *Mover) Relative(abs string) (string, error) {
	rel, err := filepath.Rel(m.root, abs)
	if err != nil {
		return "", err
	}
	if rel == "." {
		return "", nil
	}
	return filepath.ToSlash(rel), nil
}

// Move moves the file fromPath into the folder targetFolder, keeping its
// base name. Both paths are relative to the root.
func (m *Mover) Move(id, fromPath, targetFolder string) (Operation, error) {
	src, err := m.Resolve(fromPath)
	if err != nil {
		return Operation{}, fmt.Errorf("invalid source path: %w", err)
	}
	dstDir, err := m.Resolve(targetFolder)
	if err != nil {
		return Operation{}, fmt.Errorf("invalid target folder: %w", err)
	}

	if isProtectedPath(fromPath, m.config.ProtectedPaths) {
		return Operation{}, fmt.Errorf("refusing to move %s: %w", fromPath, ErrProtected)
	}
	if isProtectedPath(targetFolder, m.config.ProtectedPaths) {
		return Operation{}, fmt.Errorf("refusing to move into %s: %w", targetFolder, ErrProtected)
	}

	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return Operation{}, fmt.Errorf("%s: %w", fromPath, ErrSourceNotFound)
	}

	if dirInfo, err := os.Stat(dstDir); err == nil && !dirInfo.IsDir() {
		return Operation{}, fmt.Errorf("%s: %w", targetFolder, ErrNotDirectory)
	}

	dst := filepath.Join(dstDir, filepath.Base(src))
	if dst == src {
		return Operation{}, fmt.Errorf("%s is already in %s: %w", fromPath, targetFolder, ErrDestinationExists)
	}
	if _, err := os.Lstat(dst); err == nil {
		return Operation{}, fmt.Errorf("%s: %w", dst, ErrDestinationExists)
	}

	destRel, _ := m.Relative(dst)
	op := Operation{
		ID:          id,
		Type:        "move",
		Source:      fromPath,
		Destination: destRel,
		Timestamp:   time.Now(),
	}

	if !m.config.DryRun {
		if err := os.MkdirAll(dstDir, 0755); err != nil {
			return op, fmt.Errorf("failed to create directory %s: %w", targetFolder, err)
		}
		if err := moveFile(src, dst); err != nil {
			return op, fmt.Errorf("move failed %s -> %s: %w", fromPath, destRel, err)
		}
	}
	op.Completed = true
	m.record(op)

	return op, nil
}

// AddFolder creates the folder name inside target (or the root when target is empty)
func (m *Mover) AddFolder(id, name, target string) (Operation, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return Operation{}, fmt.Errorf("%q: %w", name, ErrInvalidName)
	}

	rel := name
	if target != "" {
		rel = target + "/" + name
	}

	dir, err := m.Resolve(rel)
	if err != nil {
		return Operation{}, err
	}
	if isProtectedPath(rel, m.config.ProtectedPaths) {
		return Operation{}, fmt.Errorf("refusing to create %s: %w", rel, ErrProtected)
	}
	if _, err := os.Stat(dir); err == nil {
		return Operation{}, fmt.Errorf("%s: %w", rel, ErrDestinationExists)
	}

	op := Operation{
		ID:          id,
		Type:        "mkdir",
		Destination: rel,
		Timestamp:   time.Now(),
	}

	if !m.config.DryRun {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return op, fmt.Errorf("failed to create directory %s: %w", rel, err)
		}
	}
	op.Completed = true
	m.record(op)

	return op, nil
}

// moveFile moves src to dst without ever replacing an existing dst. A hard
// link claims dst atomically; across filesystems the file is copied into
// an exclusively created dst instead.
func moveFile(src, dst string) error {
	err := os.Link(src, dst)
	switch {
	case err == nil:
		return os.Remove(src)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
	case errors.Is(err, syscall.EXDEV):
		return copyFile(src, dst)
	}

	// No hard links here: reserve dst, then rename over the placeholder
	f, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		}
		return err
	}
	f.Close()
	if err := os.Rename(src, dst); err != nil {
		os.Remove(dst)
		return err
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", dst, ErrDestinationExists)
		}
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}

	return os.Remove(src)
}

// isProtectedPath checks if rel is, or lies under, a protected path
func isProtectedPath(rel string, protected []string) bool {
	rel = strings.Trim(rel, "/")
	for _, p := range protected {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		if rel == p || strings.HasPrefix(rel, p+"/") {
			return true
		}
	}
	return false
}

// record appends op to the operation log. Several requests can land at
// once, so appends are serialized with a lock file. The filesystem change
// has already happened by now, so a log failure is reported but does not
// fail the operation.
func (m *Mover) record(op Operation) {
	if m.config.LogPath == "" || !op.Completed {
		return
	}
	if err := writeOperationLog([]Operation{op}, m.config.LogPath, m.config.DryRun); err != nil {
		m.log.Error().Err(err).
			Str("type", op.Type).
			Str("source", op.Source).
			Str("destination", op.Destination).
			Str("request_id", op.ID).
			Msg("failed to write operation log")
	}
}

// writeOperationLog writes operations to the log file
func writeOperationLog(ops []Operation, logPath string, dryRun bool) error {
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return err
	}

	lock := flock.New(logPath + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock operation log: %w", err)
	}
	defer lock.Unlock()

	// Append mode with user-only permissions
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, op := range ops {
		opType := op.Type
		if dryRun {
			opType += "(dry-run)"
		}

		line := fmt.Sprintf("%s|%s|%s|%s|%s\n",
			op.Timestamp.Format(time.RFC3339),
			opType,
			op.Source,
			op.Destination,
			op.ID)

		if _, err := f.WriteString(line); err != nil {
			return err
		}
	}

	return nil
}
