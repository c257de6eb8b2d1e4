package models

import (
	"fmt"
	"strings"
	"time"
)

// CandidacyStatus represents the admission workflow of a candidacy.
type CandidacyStatus string

// Candidacy statuses in workflow order. ACCEPTED and REJECTED are terminal.
const (
	CandidacyStatusReceived           CandidacyStatus = "RECEIVED"
	CandidacyStatusInterview          CandidacyStatus = "INTERVIEW"
	CandidacyStatusQuoteSent          CandidacyStatus = "QUOTE_SENT"
	CandidacyStatusQuoteAccepted      CandidacyStatus = "QUOTE_ACCEPTED"
	CandidacyStatusFinancingPending   CandidacyStatus = "FINANCING_PENDING"
	CandidacyStatusFinancingValidated CandidacyStatus = "FINANCING_VALIDATED"
	CandidacyStatusAccepted           CandidacyStatus = "ACCEPTED"
	CandidacyStatusRejected           CandidacyStatus = "REJECTED"
)

var candidacyTransitions = map[CandidacyStatus][]CandidacyStatus{
	CandidacyStatusReceived:           {CandidacyStatusInterview},
	CandidacyStatusInterview:          {CandidacyStatusQuoteSent},
	CandidacyStatusQuoteSent:          {CandidacyStatusQuoteAccepted},
	CandidacyStatusQuoteAccepted:      {CandidacyStatusFinancingPending, CandidacyStatusAccepted},
	CandidacyStatusFinancingPending:   {CandidacyStatusFinancingValidated},
	CandidacyStatusFinancingValidated: {CandidacyStatusAccepted},
}

// Valid reports whether the status is known.
func (s CandidacyStatus) Valid() bool {
	switch s {
	case CandidacyStatusReceived, CandidacyStatusInterview, CandidacyStatusQuoteSent,
		CandidacyStatusQuoteAccepted, CandidacyStatusFinancingPending, CandidacyStatusFinancingValidated,
		CandidacyStatusAccepted, CandidacyStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the candidacy can no longer change.
func (s CandidacyStatus) Terminal() bool {
	return s == CandidacyStatusAccepted || s == CandidacyStatusRejected
}

// CanTransitionTo reports whether next is reachable in one step. Any open candidacy may be rejected.
func (s CandidacyStatus) CanTransitionTo(next CandidacyStatus) bool {
	if !s.Valid() || s.Terminal() || !next.Valid() {
		return false
	}
	if next == CandidacyStatusRejected {
		return true
	}
	for _, allowed := range candidacyTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseCandidacyStatus converts raw input into a known status.
func ParseCandidacyStatus(raw string) (CandidacyStatus, error) {
	status := CandidacyStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown candidacy status %q", raw)
	}
	return status, nil
}

// Candidacy is one admission attempt by a person into one program.
type Candidacy struct {
	ID                  string          `db:"id" json:"id"`
	PersonID            string          `db:"person_id" json:"person_id"`
	ProgramTier         ProgramTier     `db:"program_tier" json:"program_tier"`
	ProgramName         string          `db:"program_name" json:"program_name"`
	Status              CandidacyStatus `db:"status" json:"status"`
	QuoteAmountCents    *int64          `db:"quote_amount_cents" json:"quote_amount_cents,omitempty"`
	FinancedAmountCents *int64          `db:"financed_amount_cents" json:"financed_amount_cents,omitempty"`
	Financer            *string         `db:"financer" json:"financer,omitempty"`
	DecidedAt           *time.Time      `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time       `db:"updated_at" json:"updated_at"`
}

// CandidacyFilter narrows candidacy listings.
type CandidacyFilter struct {
	PersonID    string
	ProgramTier ProgramTier
	OpenOnly    bool
	Limit       int
	Offset      int
}
