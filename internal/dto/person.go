package dto

import (
	"time"

	"github.com/noah-isme/sma-crm-api/internal/models"
)

// CreatePersonRequest registers a new contact.
type CreatePersonRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=120"`
	LastName  string  `json:"lastName" validate:"required,max=120"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=40"`
}

// MarkDossierSentRequest records when the intake form went out. SentAt defaults to now.
type MarkDossierSentRequest struct {
	SentAt *time.Time `json:"sentAt,omitempty"`
}

// PersonLifecycleResponse exposes the stored and derived stage of a person.
type PersonLifecycleResponse struct {
	PersonID string                `json:"personId"`
	Stored   models.LifecycleStage `json:"stored"`
	Derived  models.LifecycleStage `json:"derived"`
	InSync   bool                  `json:"inSync"`
}

// ResyncResponse is returned by the resync endpoint.
type ResyncResponse struct {
	PersonID string                `json:"personId"`
	Previous models.LifecycleStage `json:"previous"`
	Current  models.LifecycleStage `json:"current"`
	Changed  bool                  `json:"changed"`
	Attempts int                   `json:"attempts"`
}
