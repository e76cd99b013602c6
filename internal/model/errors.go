package model

import "errors"

// Error kinds. Every domain error below matches exactly one of these through errors.Is,
// so transport code can map by kind while services still return precise errors.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrStorageFailure  = errors.New("storage failure")
	ErrInvalidInput    = errors.New("invalid input")
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

func newKindError(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

var (
	// ErrAccountNotFound is returned when an account id does not resolve
	ErrAccountNotFound = newKindError(ErrNotFound, "account not found")

	// ErrPhotoNotFound is returned when no account owns the canonical photo URI
	ErrPhotoNotFound = newKindError(ErrNotFound, "photo not found")

	ErrAlreadyFollowing  = newKindError(ErrConflict, "already following this account")
	ErrNotFollowing      = newKindError(ErrConflict, "not following this account")
	ErrAlreadyLiked      = newKindError(ErrConflict, "photo already liked")
	ErrNotLiked          = newKindError(ErrConflict, "photo not liked")
	ErrDuplicateIdentity = newKindError(ErrConflict, "email already registered")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = newKindError(ErrUnauthenticated, "invalid credentials")

	ErrCannotFollowSelf = newKindError(ErrInvalidInput, "cannot follow yourself")
	ErrEmptyComment     = newKindError(ErrInvalidInput, "comment text is required")
	ErrFileTooLarge     = newKindError(ErrInvalidInput, "file too large")
	ErrInvalidImageType = newKindError(ErrInvalidInput, "invalid image type")
)

// Error codes for HTTP responses
const (
	CodeTokenExpired     = "TOKEN_EXPIRED"
	CodeTokenInvalid     = "TOKEN_INVALID"
	CodeAccountNotFound  = "ACCOUNT_NOT_FOUND"
	CodePhotoNotFound    = "PHOTO_NOT_FOUND"
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
)
