package repository

import "errors"

var (
	// ErrVersionConflict reports that a conditional write lost to a concurrent writer.
	ErrVersionConflict = errors.New("version conflict")
	// ErrIntegrity reports a stored value outside its closed enumeration.
	ErrIntegrity = errors.New("data integrity violation")
	// ErrOpenCandidacyExists reports that the person already holds a non-terminal candidacy.
	ErrOpenCandidacyExists = errors.New("open candidacy exists")
	// ErrEnrollmentExists reports that the candidacy already produced an enrollment.
	ErrEnrollmentExists = errors.New("enrollment exists")
)
