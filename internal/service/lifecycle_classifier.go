package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/sma-crm-api/internal/models"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

// ClassifyLifecycle derives the lifecycle stage of one person from their candidacies,
// enrollments and intake form timestamp. Rules apply in order:
//
//	STUDENT           an enrollment is in progress
//	CANDIDATE         a candidacy is open, or accepted without an enrollment yet
//	FORMER_STUDENT    an enrollment exists (completed, withdrawn or suspended)
//	FORMER_CANDIDATE  a candidacy was rejected
//	DOSSIER_PENDING   an intake form was sent
//	NEW               otherwise
//
// Inputs that break record invariants return ErrLifecycleInconsistent and no stage.
func ClassifyLifecycle(candidacies []models.Candidacy, enrollments []models.Enrollment, dossierSentAt *time.Time) (models.LifecycleStage, error) {
	if err := checkLifecycleInvariants(candidacies, enrollments); err != nil {
		return "", err
	}

	enrolledCandidacies := make(map[string]struct{}, len(enrollments))
	inProgress := false
	for _, enrollment := range enrollments {
		enrolledCandidacies[enrollment.CandidacyID] = struct{}{}
		if enrollment.Status == models.EnrollmentStatusInProgress {
			inProgress = true
		}
	}
	if inProgress {
		return models.LifecycleStageStudent, nil
	}

	active := false
	rejected := false
	for _, candidacy := range candidacies {
		switch candidacy.Status {
		case models.CandidacyStatusAccepted:
			if _, ok := enrolledCandidacies[candidacy.ID]; !ok {
				active = true
			}
		case models.CandidacyStatusRejected:
			rejected = true
		case models.CandidacyStatusReceived, models.CandidacyStatusInterview, models.CandidacyStatusQuoteSent,
			models.CandidacyStatusQuoteAccepted, models.CandidacyStatusFinancingPending, models.CandidacyStatusFinancingValidated:
			active = true
		}
	}

	switch {
	case active:
		return models.LifecycleStageCandidate, nil
	case len(enrollments) > 0:
		return models.LifecycleStageFormerStudent, nil
	case rejected:
		return models.LifecycleStageFormerCandidate, nil
	case dossierSentAt != nil:
		return models.LifecycleStageDossierPending, nil
	}
	return models.LifecycleStageNew, nil
}

func checkLifecycleInvariants(candidacies []models.Candidacy, enrollments []models.Enrollment) error {
	byID := make(map[string]models.Candidacy, len(candidacies))
	open := 0
	for _, candidacy := range candidacies {
		if !candidacy.Status.Valid() {
			return inconsistent("candidacy %s has unknown status %q", candidacy.ID, candidacy.Status)
		}
		if !candidacy.Status.Terminal() {
			open++
		}
		byID[candidacy.ID] = candidacy
	}
	if open > 1 {
		return inconsistent("%d candidacies are open at the same time", open)
	}

	for _, enrollment := range enrollments {
		if !enrollment.Status.Valid() {
			return inconsistent("enrollment %s has unknown status %q", enrollment.ID, enrollment.Status)
		}
		candidacy, ok := byID[enrollment.CandidacyID]
		if !ok {
			return inconsistent("enrollment %s references unknown candidacy %s", enrollment.ID, enrollment.CandidacyID)
		}
		if candidacy.Status != models.CandidacyStatusAccepted {
			return inconsistent("enrollment %s references candidacy %s in status %s", enrollment.ID, candidacy.ID, candidacy.Status)
		}
	}
	return nil
}

func inconsistent(format string, args ...interface{}) error {
	return appErrors.CloneWrap(appErrors.ErrLifecycleInconsistent, fmt.Errorf(format, args...), "")
}
