// Package scaffold generates starter curriculum projects: a curriculum
// definition, a small scenario bank, and a knowledge base file, used by
// dojo new.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ValidateName rejects names with path-traversal characters or empty names.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("curriculum name must not be empty")
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.Contains(cleaned, "/") || strings.Contains(cleaned, "\\") {
		return fmt.Errorf("curriculum name %q contains invalid path characters", name)
	}
	return nil
}

// TitleCase converts a kebab-case name to Title Case.
func TitleCase(s string) string {
	words := strings.Split(s, "-")
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// CurriculumYAML returns a starter curriculum definition.
func CurriculumYAML(name, domain string) string {
	return fmt.Sprintf(`name: %s
domain: %s
seed: 42
max_workers: 2
scenarios:
  - "scenarios/*.yaml"
phases:
  - name: foundations
    difficulty: simple
    scenario_count: 2
    pass_rate_target: 0.8
    max_retries_per_scenario: 2
  - name: applied
    difficulty: moderate
    scenario_count: 2
    pass_rate_target: 0.8
    max_retries_per_scenario: 2
  - name: mastery
    difficulty: complex
    scenario_count: 1
    pass_rate_target: 1.0
    max_retries_per_scenario: 1
`, name, domain)
}

// ScenarioFiles returns starter scenario files keyed by filename, enough to
// run every phase of the starter curriculum.
func ScenarioFiles(domain string) map[string]string {
	title := TitleCase(domain)
	files := map[string]string{}
	simple := []string{"overview", "summary"}
	for i, topic := range simple {
		name := fmt.Sprintf("simple-%03d.yaml", i+1)
		files[name] = fmt.Sprintf(`id: %s-simple-%03d
domain: %s
difficulty: simple
task: |
  Write a short %s %s for a newcomer to the field. Cover the essentials
  and keep the language plain.
constraints:
  min_words: 100
  max_words: 400
  target_audience: newcomer
rubric:
  - dimension: structural
    weight: 0.3
  - dimension: content_quality
    weight: 0.4
  - dimension: domain_expertise
    weight: 0.3
`, domain, i+1, domain, title, topic)
	}
	moderate := []string{"comparison", "recommendation"}
	for i, topic := range moderate {
		name := fmt.Sprintf("moderate-%03d.yaml", i+1)
		files[name] = fmt.Sprintf(`id: %s-moderate-%03d
domain: %s
difficulty: moderate
task: |
  Produce a %s %s for a practitioner audience. Support each claim with
  concrete details and finish with actionable next steps.
constraints:
  min_words: 250
  required_sections:
    - Background
    - Analysis
    - Next Steps
  target_audience: practitioner
rubric:
  - dimension: structural
    weight: 0.25
  - dimension: content_quality
    weight: 0.3
  - dimension: domain_expertise
    weight: 0.25
  - dimension: fit_for_purpose
    weight: 0.2
`, domain, i+1, domain, title, topic)
	}
	files["complex-001.yaml"] = fmt.Sprintf(`id: %s-complex-001
domain: %s
difficulty: complex
task: |
  Draft a detailed %s assessment that weighs competing options, states a
  clear recommendation, and anticipates the strongest objection to it.
constraints:
  min_words: 400
  required_sections:
    - Context
    - Options
    - Recommendation
    - Risks
  target_audience: decision maker
rubric:
  - dimension: structural
    weight: 0.2
  - dimension: content_quality
    weight: 0.3
  - dimension: domain_expertise
    weight: 0.3
  - dimension: fit_for_purpose
    weight: 0.2
`, domain, domain, title)
	return files
}

// KnowledgeYAML returns a skeleton knowledge base for the domain. The lists
// are starters; real runs should replace them with curated terms.
func KnowledgeYAML(domain string) string {
	return fmt.Sprintf(`tables:
  - domain: %s
    terminology:
      - stakeholder
      - baseline
      - tradeoff
    best_practices:
      - cite concrete evidence
      - state assumptions explicitly
    red_flags:
      - guaranteed results
      - one size fits all
`, domain)
}

// WriteProject writes a starter project under dir. Existing files are never
// overwritten.
func WriteProject(dir, name, domain string) error {
	scenarioDir := filepath.Join(dir, "scenarios")
	if err := os.MkdirAll(scenarioDir, 0o755); err != nil {
		return err
	}

	writes := map[string]string{
		filepath.Join(dir, "curriculum.yaml"): CurriculumYAML(name, domain),
		filepath.Join(dir, "knowledge.yaml"):  KnowledgeYAML(domain),
	}
	for fname, content := range ScenarioFiles(domain) {
		writes[filepath.Join(scenarioDir, fname)] = content
	}

	for path, content := range writes {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("refusing to overwrite existing file %s", path)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
