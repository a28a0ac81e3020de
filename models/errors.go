package models

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation error")
	ErrInvalidID  = errors.New("invalid identifier")
	ErrConflict   = errors.New("conflict")

	// ErrUnavailable marks an optional collaborator that is not configured.
	ErrUnavailable = errors.New("unavailable")

	// ErrGenerationFailed reports that the generative model gave no usable
	// plan within its timeout and retry budget.
	ErrGenerationFailed = errors.New("generation failed")
)

// ParseObjectID converts a hex identity, reporting ErrInvalidID for malformed input.
func ParseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, hex)
	}
	return id, nil
}
