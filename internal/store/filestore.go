package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dlai-sd/dojo/internal/models"
)

// FileStore keeps each agent's ledger under dir/<agent-id>/: trials as
// newline-delimited JSON (append-only) and progress/graduation as single
// JSON documents replaced via write-then-rename.
type FileStore struct {
	dir string

	mu sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

const (
	trialsFile     = "trials.jsonl"
	progressFile   = "progress.json"
	graduationFile = "graduation.json"
	lockFile       = "train.lock"
)

func (fs *FileStore) agentDir(agentID string) string {
	// Agent IDs land in paths; keep them to one path segment.
	return filepath.Join(fs.dir, filepath.Base(strings.TrimSpace(agentID)))
}

// AppendTrial writes one trial as a single JSON line.
func (fs *FileStore) AppendTrial(ctx context.Context, trial *models.TrialRecord) error {
	if err := trial.Validate(); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.agentDir(trial.AgentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, trialsFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening trial ledger: %w", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(trial); err != nil {
		return fmt.Errorf("appending trial %s: %w", trial.TrialID, err)
	}
	return f.Sync()
}

// ListTrials reads the agent's ledger in append order.
func (fs *FileStore) ListTrials(ctx context.Context, agentID, phase string) ([]models.TrialRecord, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	f, err := os.Open(filepath.Join(fs.agentDir(agentID), trialsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening trial ledger: %w", err)
	}
	defer f.Close()

	var trials []models.TrialRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var trial models.TrialRecord
		if err := json.Unmarshal([]byte(raw), &trial); err != nil {
			return nil, fmt.Errorf("trial ledger for %s: line %d: %w", agentID, line, err)
		}
		if phase != "" && trial.Phase != phase {
			continue
		}
		trials = append(trials, trial)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading trial ledger: %w", err)
	}
	return trials, nil
}

// SaveProgress atomically replaces the agent's progress document.
func (fs *FileStore) SaveProgress(ctx context.Context, progress *models.TrainingProgress) error {
	return fs.writeDoc(progress.AgentID, progressFile, progress)
}

// LoadProgress reads the agent's progress document.
func (fs *FileStore) LoadProgress(ctx context.Context, agentID string) (*models.TrainingProgress, error) {
	var progress models.TrainingProgress
	if err := fs.readDoc(agentID, progressFile, &progress); err != nil {
		return nil, err
	}
	return &progress, nil
}

// SaveGraduationReport stores the terminal report.
func (fs *FileStore) SaveGraduationReport(ctx context.Context, report *models.GraduationReport) error {
	return fs.writeDoc(report.AgentID, graduationFile, report)
}

// LoadGraduationReport reads the stored report.
func (fs *FileStore) LoadGraduationReport(ctx context.Context, agentID string) (*models.GraduationReport, error) {
	var report models.GraduationReport
	if err := fs.readDoc(agentID, graduationFile, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (fs *FileStore) writeDoc(agentID, name string, doc any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	dir := fs.agentDir(agentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}

	tmp := filepath.Join(dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// AcquireAgentLock takes an advisory lock file in the agent's directory so
// two trainers on the same data directory cannot interleave writes. The
// release function removes the file.
func (fs *FileStore) AcquireAgentLock(agentID string) (func(), error) {
	dir := fs.agentDir(agentID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating agent directory: %w", err)
	}
	path := filepath.Join(dir, lockFile)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("lock file %s exists; remove it if no other run is active", path)
		}
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return func() { os.Remove(path) }, nil
}

func (fs *FileStore) readDoc(agentID, name string, doc any) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(fs.agentDir(agentID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("agent %s: %w", agentID, ErrNotFound)
		}
		return fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("parsing %s for %s: %w", name, agentID, err)
	}
	return nil
}
