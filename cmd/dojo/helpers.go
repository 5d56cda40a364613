package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dlai-sd/dojo/internal/aggregate"
	"github.com/dlai-sd/dojo/internal/evaluators"
	"github.com/dlai-sd/dojo/internal/feedback"
	"github.com/dlai-sd/dojo/internal/knowledge"
)

// defaultKnowledgeFile is looked up next to the curriculum or scenario file
// when no --knowledge flag is given.
const defaultKnowledgeFile = "knowledge.yaml"

// loadKnowledge loads the knowledge base from an explicit path, or from the
// default file next to baseDir when present. Missing default files yield an
// empty base: the domain evaluator just declares itself inapplicable.
func loadKnowledge(explicit, baseDir string) (*knowledge.Base, error) {
	path := explicit
	if path == "" {
		candidate := filepath.Join(baseDir, defaultKnowledgeFile)
		if _, err := os.Stat(candidate); err != nil {
			return knowledge.NewBase()
		}
		path = candidate
	}
	kb, err := knowledge.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge base: %w", err)
	}
	return kb, nil
}

// buildAggregator assembles the default evaluator set over the knowledge
// base, with feedback generation wired in.
func buildAggregator(kb *knowledge.Base) (*aggregate.Aggregator, error) {
	return aggregate.New(evaluators.DefaultSet(kb), aggregate.WithFeedback(feedback.NewGenerator()))
}
