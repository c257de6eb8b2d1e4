package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/sma-crm-api/internal/repository"
	appErrors "github.com/noah-isme/sma-crm-api/pkg/errors"
)

// storeError maps record store failures onto API errors.
func storeError(err error, notFound, internal string) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrIntegrity):
		return appErrors.CloneWrap(appErrors.ErrLifecycleInconsistent, err, "stored record holds an unknown status")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}
