// Package scenarios loads and filters the scenario bank used to drive
// curriculum phases.
package scenarios

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"

	"github.com/dlai-sd/dojo/internal/models"
)

// Source supplies scenarios filtered by domain and difficulty.
type Source interface {
	// List returns active scenarios matching domain and difficulty. An
	// empty domain matches every domain.
	List(ctx context.Context, domain string, difficulty models.Difficulty) ([]*models.Scenario, error)
}

// DirSource loads scenarios from YAML files matched by glob patterns,
// resolved relative to a base directory.
type DirSource struct {
	baseDir  string
	patterns []string
}

// NewDirSource creates a source over the given glob patterns.
func NewDirSource(baseDir string, patterns []string) *DirSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &DirSource{baseDir: baseDir, patterns: patterns}
}

// List loads every matching file, skipping inactive scenarios. Results are
// sorted by ID so callers see a stable order regardless of filesystem
// iteration.
func (s *DirSource) List(ctx context.Context, domain string, difficulty models.Difficulty) ([]*models.Scenario, error) {
	files, err := s.resolveFiles()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string, len(files))
	var out []*models.Scenario
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc, err := models.LoadScenario(file)
		if err != nil {
			return nil, fmt.Errorf("loading scenario %s: %w", file, err)
		}
		if prev, ok := seen[sc.ID]; ok {
			return nil, fmt.Errorf("duplicate scenario id %q in %s and %s", sc.ID, prev, file)
		}
		seen[sc.ID] = file

		if !sc.IsActive() {
			slog.Debug("skipping inactive scenario", "id", sc.ID, "file", file)
			continue
		}
		if domain != "" && sc.Domain != domain {
			continue
		}
		if difficulty != "" && sc.Difficulty != difficulty {
			continue
		}
		out = append(out, sc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DirSource) resolveFiles() ([]string, error) {
	var files []string
	for _, pattern := range s.patterns {
		fullPattern := filepath.Join(s.baseDir, pattern)
		matches, err := filepath.Glob(fullPattern)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario pattern %q: %w", pattern, err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no scenario files matched patterns %v in %s", s.patterns, s.baseDir)
	}
	return files, nil
}

// StaticSource serves a fixed set of scenarios, used by tests and the
// evaluate-one-output path.
type StaticSource struct {
	scenarios []*models.Scenario
}

// NewStaticSource creates a source over the given scenarios.
func NewStaticSource(scs ...*models.Scenario) *StaticSource {
	return &StaticSource{scenarios: scs}
}

func (s *StaticSource) List(ctx context.Context, domain string, difficulty models.Difficulty) ([]*models.Scenario, error) {
	var out []*models.Scenario
	for _, sc := range s.scenarios {
		if !sc.IsActive() {
			continue
		}
		if domain != "" && sc.Domain != domain {
			continue
		}
		if difficulty != "" && sc.Difficulty != difficulty {
			continue
		}
		out = append(out, sc)
	}
	return out, nil
}
