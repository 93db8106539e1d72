package service

import "notebook-sync-be/internal/pkg/apperror"

var (
	ErrNotebookNotFound    = apperror.NotFound("Notebook not found")
	ErrRowNotFound         = apperror.NotFound("Row not found")
	ErrUserNotFound        = apperror.NotFound("User not found")
	ErrUnsupportedProvider = apperror.Invalid("Unsupported sign-in provider")
	ErrInvalidOAuthState   = apperror.Invalid("Sign-in request expired, please try again")
	ErrMissingOAuthCode    = apperror.Invalid("Missing authorization code")
	ErrSessionInvalid      = apperror.Unauthorized("Session expired, please sign in again")
)
