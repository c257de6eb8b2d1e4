package models

import (
	"fmt"
	"strings"
	"time"
)

// LifecycleStage is the single derived classification of a person.
type LifecycleStage string

// Lifecycle stages.
const (
	LifecycleStageNew             LifecycleStage = "NEW"
	LifecycleStageDossierPending  LifecycleStage = "DOSSIER_PENDING"
	LifecycleStageCandidate       LifecycleStage = "CANDIDATE"
	LifecycleStageFormerCandidate LifecycleStage = "FORMER_CANDIDATE"
	LifecycleStageStudent         LifecycleStage = "STUDENT"
	LifecycleStageFormerStudent   LifecycleStage = "FORMER_STUDENT"
)

// LifecycleStages lists every stage in precedence order.
var LifecycleStages = []LifecycleStage{
	LifecycleStageStudent,
	LifecycleStageCandidate,
	LifecycleStageFormerStudent,
	LifecycleStageFormerCandidate,
	LifecycleStageDossierPending,
	LifecycleStageNew,
}

// Valid reports whether the stage is known.
func (s LifecycleStage) Valid() bool {
	for _, stage := range LifecycleStages {
		if s == stage {
			return true
		}
	}
	return false
}

// ParseLifecycleStage converts raw input into a known stage.
func ParseLifecycleStage(raw string) (LifecycleStage, error) {
	stage := LifecycleStage(strings.ToUpper(strings.TrimSpace(raw)))
	if !stage.Valid() {
		return "", fmt.Errorf("unknown lifecycle stage %q", raw)
	}
	return stage, nil
}

// LifecycleTransition is the outcome of one resync.
type LifecycleTransition struct {
	PersonID string         `json:"person_id"`
	Previous LifecycleStage `json:"previous"`
	Current  LifecycleStage `json:"current"`
	Changed  bool           `json:"changed"`
	Attempts int            `json:"attempts"`
}

// LifecycleStageCount is one bucket of the stage distribution.
type LifecycleStageCount struct {
	Stage LifecycleStage `db:"lifecycle_stage" json:"stage"`
	Count int            `db:"count" json:"count"`
}

// LifecycleSummary is the stage distribution of active persons.
type LifecycleSummary struct {
	Total       int                   `json:"total"`
	Stages      []LifecycleStageCount `json:"stages"`
	GeneratedAt time.Time             `json:"generated_at"`
}
