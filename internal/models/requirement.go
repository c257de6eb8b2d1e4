package models

// Requirement binds a document kind to a program tier.
type Requirement struct {
	ProgramTier  ProgramTier  `json:"program_tier"`
	Kind         DocumentKind `json:"kind"`
	IsMandatory  bool         `json:"is_mandatory"`
	DisplayOrder int          `json:"display_order"`
}
