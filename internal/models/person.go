package models

import "time"

// Person is an individual tracked from first contact onwards. LifecycleStage is a
// projection of the person's candidacies and enrollments and is only written by the
// lifecycle resync.
type Person struct {
	ID             string         `db:"id" json:"id"`
	FirstName      string         `db:"first_name" json:"first_name"`
	LastName       string         `db:"last_name" json:"last_name"`
	Email          string         `db:"email" json:"email"`
	Phone          *string        `db:"phone" json:"phone,omitempty"`
	LifecycleStage LifecycleStage `db:"lifecycle_stage" json:"lifecycle_stage"`
	DossierSentAt  *time.Time     `db:"dossier_sent_at" json:"dossier_sent_at,omitempty"`
	Version        int64          `db:"version" json:"version"`
	ArchivedAt     *time.Time     `db:"archived_at" json:"archived_at,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// PersonFilter encapsulates allowed search parameters for listing persons.
type PersonFilter struct {
	Search          string
	Stage           LifecycleStage
	IncludeArchived bool
	Page            int
	PageSize        int
	SortBy          string
	SortOrder       string
}
