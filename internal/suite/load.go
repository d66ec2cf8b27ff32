// Package suite loads test suites from YAML or CUE files.
//
// # File Format
//
//	name: Event Management
//	visit: /
//	before:
//	  - click: { text: Daily }
//	contexts:
//	  - name: when in daily mode
//	    cases:
//	      - name: allows creation with a button
//	        steps:
//	          - click: { text: Add Event }
//	          - type: { css: .input, input: My event }
//	          - click: { text: Save }
//	          - assert: { css: div.elm-agenda__schedule-event-label, contains: My event }
//
// Step keys are navigate, click, type, mousedown, mouseup, keypress,
// resolve, assert and wait. Unknown fields are rejected in both formats.
// String values may use the date helpers {{ today }}, {{ tomorrow }},
// {{ yesterday }} and {{ days N }}.
package suite

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/uispec/internal/runner"
)

//go:embed schema.cue
var schemaSource []byte

// LoadError reports a suite file that cannot be used.
type LoadError struct {
	Path    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// IsLoadError reports whether err wraps a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return errors.As(err, &le)
}

// Loader reads suite files.
type Loader struct {
	// Now anchors the date helpers. Nil means time.Now.
	Now func() time.Time
}

// Load reads and builds the suite at path with a default Loader.
func Load(path string) (*runner.Suite, error) {
	return Loader{}.Load(path)
}

// Load reads and builds the suite at path.
func (l Loader) Load(path string) (*runner.Suite, error) {
	s, _, err := l.Check(path)
	return s, err
}

// Check is Load plus the Lint warnings for the file.
func (l Loader) Check(path string) (*runner.Suite, []Warning, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	s, err := Build(f, path, NewExpander(now()))
	if err != nil {
		return nil, nil, err
	}
	return s, Lint(f), nil
}

// ReadFile parses the suite file at path, choosing the format by extension.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data, path)
	case ".cue":
		return ParseCUE(data, path)
	default:
		return nil, &LoadError{Path: path, Message: "unsupported suite format (want .yaml, .yml or .cue)"}
	}
}

// ParseYAML decodes a YAML suite, rejecting unknown fields.
func ParseYAML(data []byte, path string) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, &LoadError{Path: path, Message: "failed to parse YAML: " + err.Error()}
	}
	if f.Name == "" {
		return nil, &LoadError{Path: path, Message: "name is required"}
	}
	return &f, nil
}

// ParseCUE evaluates a CUE suite against the suite schema and decodes it.
func ParseCUE(data []byte, path string) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileBytes(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("suite schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueError(path, err)
	}

	v = schema.LookupPath(cue.ParsePath("#Suite")).Unify(v)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueError(path, err)
	}

	var f File
	if err := v.Decode(&f); err != nil {
		return nil, cueError(path, err)
	}
	return &f, nil
}

// cueError keeps the first CUE error, positioned in the suite file when
// CUE reports a position there.
func cueError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: path, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Path: path, Message: first.Error()}
	for _, pos := range cueerrors.Positions(first) {
		if pos.Filename() == path {
			le.Pos = pos
			break
		}
	}
	return le
}

// Discover expands paths into suite files. Directories are walked for
// .yaml, .yml and .cue files; results are sorted and deduplicated.
func Discover(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("suite path %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isSuiteFile(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func isSuiteFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}
