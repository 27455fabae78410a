package service

import (
	"errors"

	"github.com/google/uuid"

	apperrors "github.com/jkindrix/fitai/internal/errors"
	"github.com/jkindrix/fitai/internal/repository"
	"github.com/jkindrix/fitai/internal/session"
)

func parseID(raw, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.NotFound(resource)
	}
	return id, nil
}

func mapRepoError(err error, resource string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, session.ErrNotFound):
		return apperrors.NotFound(resource)
	default:
		return apperrors.StorageError(resource+".Get", err)
	}
}
