package migrate

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"strings"

	"go.uber.org/multierr"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

const (
	annotationUp        = "-- +goose Up"
	annotationDown      = "-- +goose Down"
	annotationStmtBegin = "-- +goose StatementBegin"
	annotationStmtEnd   = "-- +goose StatementEnd"
)

// ValidateDir validates the migrations stored in dir on the local filesystem.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	return DiskSource(dir).Validate()
}

// Validate checks every SQL file of the source and reports all problems at once:
// filename shape, duplicate versions, an Up section before the Down section and
// balanced StatementBegin/StatementEnd blocks.
func (s Source) Validate() error {
	if s.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	fsys, root := s.FS, s.Dir
	if fsys == nil {
		fsys, root = os.DirFS(s.Dir), "."
	}

	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("read dir %q: %w", s.Dir, err)
	}

	var errs error
	seen := map[string]string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(name)
		if m == nil {
			errs = multierr.Append(errs, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", name))
			continue
		}
		if prev, ok := seen[m[1]]; ok {
			errs = multierr.Append(errs, fmt.Errorf("duplicate migration version %s in %q and %q", m[1], prev, name))
			continue
		}
		seen[m[1]] = name

		b, err := fs.ReadFile(fsys, path.Join(root, name))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("read file %q: %w", name, err))
			continue
		}
		errs = multierr.Append(errs, checkAnnotations(name, string(b)))
	}

	if errs == nil && len(seen) == 0 {
		return fmt.Errorf("no migrations found in %q", s.Dir)
	}
	return errs
}

func checkAnnotations(name, body string) error {
	var (
		upAt, downAt = -1, -1
		open         bool
	)
	for i, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		switch {
		case strings.HasPrefix(line, annotationUp) && upAt < 0:
			upAt = i
		case strings.HasPrefix(line, annotationDown) && downAt < 0:
			downAt = i
		case strings.HasPrefix(line, annotationStmtBegin):
			if open {
				return fmt.Errorf("migration %q line %d: nested %q", name, i+1, annotationStmtBegin)
			}
			open = true
		case strings.HasPrefix(line, annotationStmtEnd):
			if !open {
				return fmt.Errorf("migration %q line %d: %q without begin", name, i+1, annotationStmtEnd)
			}
			open = false
		}
	}

	switch {
	case upAt < 0:
		return fmt.Errorf("migration %q missing %q", name, annotationUp)
	case downAt < 0:
		return fmt.Errorf("migration %q missing %q", name, annotationDown)
	case downAt < upAt:
		return fmt.Errorf("migration %q has %q before %q", name, annotationDown, annotationUp)
	case open:
		return fmt.Errorf("migration %q has an unterminated %q", name, annotationStmtBegin)
	}
	return nil
}
