package accounts

import (
	"fmt"

	"learngate/pkg/domain"
)

var (
	// ErrInvalidCredentials is safe to show to end users and does not
	// enable account enumeration.
	ErrInvalidCredentials = fmt.Errorf("%w: incorrect email address or password", domain.ErrForbidden)

	ErrEmailAndPasswordRequired = fmt.Errorf("%w: email and password required", domain.ErrValidation)
	ErrEmailAlreadyExists       = fmt.Errorf("%w: email already exists", domain.ErrConflict)
	ErrBadRole                  = fmt.Errorf("%w: unknown role", domain.ErrValidation)
	ErrWeakPassword             = fmt.Errorf("%w: password must be at least 8 characters", domain.ErrValidation)
)
