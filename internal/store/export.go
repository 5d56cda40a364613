package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dlai-sd/dojo/internal/models"
	"github.com/klauspost/compress/zstd"
)

// ExportTrials streams an agent's full trial ledger to w as
// zstd-compressed, newline-delimited JSON. The archive is the audit
// artifact: every trial can be replayed from its stored inputs and
// evaluator versions.
func ExportTrials(ctx context.Context, s Store, agentID string, w io.Writer) (int, error) {
	trials, err := s.ListTrials(ctx, agentID, "")
	if err != nil {
		return 0, err
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("creating zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	for i := range trials {
		if err := enc.Encode(&trials[i]); err != nil {
			zw.Close()
			return 0, fmt.Errorf("encoding trial %s: %w", trials[i].TrialID, err)
		}
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("flushing archive: %w", err)
	}
	return len(trials), nil
}

// ImportTrials reads a zstd archive produced by ExportTrials.
func ImportTrials(r io.Reader) ([]models.TrialRecord, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening zstd archive: %w", err)
	}
	defer zr.Close()

	var trials []models.TrialRecord
	dec := json.NewDecoder(zr)
	for {
		var trial models.TrialRecord
		if err := dec.Decode(&trial); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("decoding archive: %w", err)
		}
		trials = append(trials, trial)
	}
	return trials, nil
}
