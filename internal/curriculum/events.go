package curriculum

import "sync"

// ProgressListener receives progress updates during a training run.
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

// EventType constants
const (
	EventTrainingStart   EventType = "training_start"
	EventTrainingStopped EventType = "training_stopped"
	EventPhaseStart      EventType = "phase_start"
	EventPhaseComplete   EventType = "phase_complete"
	EventPhaseFailed     EventType = "phase_failed"
	EventTrialStart      EventType = "trial_start"
	EventTrialComplete   EventType = "trial_complete"
	EventGraduated       EventType = "graduated"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType   EventType
	AgentID     string
	Phase       string
	PhaseNum    int
	TotalPhases int
	ScenarioID  string
	Attempt     int
	MaxAttempts int
	Passed      bool
	PreFlagged  bool
	Score       float64
	PassRate    float64
	DurationMs  int64
}

type notifier struct {
	mu        sync.Mutex
	listeners []ProgressListener
}

func (n *notifier) add(listener ProgressListener) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.listeners = append(n.listeners, listener)
}

func (n *notifier) notify(event ProgressEvent) {
	n.mu.Lock()
	listeners := make([]ProgressListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}
