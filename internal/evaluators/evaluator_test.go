package evaluators

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	for _, kind := range []Kind{KindStructural, KindContent, KindDomain, KindFitness, KindComparative} {
		t.Run(string(kind), func(t *testing.T) {
			ev, err := Create(kind, nil, nil)
			require.NoError(t, err)
			assert.Equal(t, string(kind), string(ev.Dimension()))
		})
	}

	_, err := Create("composite", nil, nil)
	require.ErrorContains(t, err, "not a valid evaluator kind")
}

func TestCreate_DomainWithTablesParam(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  - domain: retail\n"), 0o644))

	ev, err := Create(KindDomain, map[string]any{"tables": path}, nil)
	require.NoError(t, err)
	assert.True(t, ev.AppliesTo(&models.Scenario{Domain: "retail"}))

	_, err = Create(KindDomain, map[string]any{"tables": filepath.Join(dir, "missing.yaml")}, nil)
	require.ErrorContains(t, err, "loading knowledge tables")
}

func TestDefaultSet_CoversEveryDimension(t *testing.T) {
	set := DefaultSet(nil)
	require.Len(t, set, 5)

	seen := map[models.Dimension]bool{}
	for _, ev := range set {
		assert.False(t, seen[ev.Dimension()], "dimension %s claimed twice", ev.Dimension())
		seen[ev.Dimension()] = true
		assert.NotEmpty(t, ev.Name())
		assert.NotEmpty(t, ev.Version())
	}
}
