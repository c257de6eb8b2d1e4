package dto

// CreateCandidacyRequest opens a candidacy for a person.
type CreateCandidacyRequest struct {
	PersonID    string `json:"personId" validate:"required"`
	ProgramTier string `json:"programTier" validate:"required"`
	ProgramName string `json:"programName" validate:"required,max=200"`
}

// UpdateCandidacyStatusRequest moves a candidacy along its workflow.
type UpdateCandidacyStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateFinancingRequest records quote and financing amounts in cents.
type UpdateFinancingRequest struct {
	QuoteAmountCents    *int64  `json:"quoteAmountCents,omitempty" validate:"omitempty,min=0"`
	FinancedAmountCents *int64  `json:"financedAmountCents,omitempty" validate:"omitempty,min=0"`
	Financer            *string `json:"financer,omitempty" validate:"omitempty,max=200"`
}
