package credentials

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMissingIdentifier    = "MISSING_IDENTIFIER"
	TextCodeMissingPassword      = "MISSING_PASSWORD"
	TextCodeMissingToken         = "MISSING_TOKEN"
	TextCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	TextCodeUserInactive         = "USER_INACTIVE"
	TextCodeUserBlocked          = "USER_BLOCKED"
	TextCodeInvalidToken         = "INVALID_TOKEN"
	TextCodeTokenNotFound        = "TOKEN_NOT_FOUND"
	TextCodeUserNotFound         = "USER_NOT_FOUND"
	TextCodeUnknownUser          = "UNKNOWN_USER"
	TextCodeNotLoggedIn          = "NOT_LOGGED_IN"
	TextCodeEmailTaken           = "EMAIL_TAKEN"
	TextCodeUsernameTaken        = "USERNAME_TAKEN"
	TextCodeUnexpectedState      = "UNEXPECTED_USER_STATE"
	TextCodeRegistrationFailed   = "REGISTRATION_FAILED"
	TextCodeActivationFailed     = "ACTIVATION_FAILED"
	TextCodeStateUpdateFailed    = "STATE_UPDATE_FAILED"
	TextCodePasswordUpdateFailed = "PASSWORD_UPDATE_FAILED"
	TextCodePasswordChangeFailed = "PASSWORD_CHANGE_FAILED"
	TextCodeInvalidEmail         = "INVALID_EMAIL"
	TextCodeInvalidUsername      = "INVALID_USERNAME"
	TextCodeWeakPassword         = "WEAK_PASSWORD"
	TextCodePasswordMismatch     = "PASSWORD_MISMATCH"
)

// ErrMissingIdentifier is returned when login is attempted without a username or email.
var ErrMissingIdentifier = goerrors.New("enter your username or email", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingIdentifier).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingPassword is returned when a required password field is empty.
var ErrMissingPassword = goerrors.New("enter your password", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrMissingToken is returned when an activation or reset token is empty.
var ErrMissingToken = goerrors.New("missing token", goerrors.CategoryValidation).
	WithTextCode(TextCodeMissingToken).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials covers both unknown identifiers and wrong passwords.
var ErrInvalidCredentials = goerrors.New("incorrect username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrUserInactive is returned when an account must be activated before login.
var ErrUserInactive = goerrors.New("before login you have to confirm your email address", goerrors.CategoryAuth).
	WithTextCode(TextCodeUserInactive).
	WithCode(goerrors.CodeForbidden)

// ErrUserBlocked is returned for any request touching a blocked account.
var ErrUserBlocked = goerrors.New("your user account has been blocked", goerrors.CategoryAuthz).
	WithTextCode(TextCodeUserBlocked).
	WithCode(goerrors.CodeForbidden)

// ErrInvalidToken is returned when a token does not resolve or no longer matches its user.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenNotFound is returned by token gateways when a stored token is unknown.
var ErrTokenNotFound = goerrors.New("token not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeTokenNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUserNotFound is returned by gateways when a lookup has no match.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUnknownUser is returned when a resolved token points to a user that no longer exists.
var ErrUnknownUser = goerrors.New("unknown user", goerrors.CategoryInternal).
	WithTextCode(TextCodeUnknownUser).
	WithCode(goerrors.CodeInternal)

// ErrNotLoggedIn is returned when an operation requires a session and there is none.
var ErrNotLoggedIn = goerrors.New("user is not logged in", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotLoggedIn).
	WithCode(goerrors.CodeUnauthorized)

// ErrEmailTaken is returned when registering with an email that already exists.
var ErrEmailTaken = goerrors.New("a user with this email address is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeEmailTaken).
	WithCode(goerrors.CodeConflict)

// ErrUsernameTaken is returned when registering with a username that already exists.
var ErrUsernameTaken = goerrors.New("a user with this username is already registered", goerrors.CategoryConflict).
	WithTextCode(TextCodeUsernameTaken).
	WithCode(goerrors.CodeConflict)

// ErrUnexpectedState signals a state value outside ACTIVE, INACTIVE and BLOCKED.
var ErrUnexpectedState = goerrors.New("unknown user state", goerrors.CategoryInternal).
	WithTextCode(TextCodeUnexpectedState).
	WithCode(goerrors.CodeInternal)

// ErrRegistrationFailed is returned when the new account could not be persisted.
var ErrRegistrationFailed = goerrors.New("error while creating the account", goerrors.CategoryInternal).
	WithTextCode(TextCodeRegistrationFailed).
	WithCode(goerrors.CodeInternal)

// ErrActivationFailed is returned when the state update did not apply.
var ErrActivationFailed = goerrors.New("error in activation process", goerrors.CategoryInternal).
	WithTextCode(TextCodeActivationFailed).
	WithCode(goerrors.CodeInternal)

// ErrStateUpdateFailed is returned when a state write reported no affected record.
var ErrStateUpdateFailed = goerrors.New("error while updating the user state", goerrors.CategoryInternal).
	WithTextCode(TextCodeStateUpdateFailed).
	WithCode(goerrors.CodeInternal)

// ErrPasswordUpdateFailed is returned when the password write did not apply.
var ErrPasswordUpdateFailed = goerrors.New("error while updating the password", goerrors.CategoryInternal).
	WithTextCode(TextCodePasswordUpdateFailed).
	WithCode(goerrors.CodeInternal)

// ErrPasswordChangeFailed is the generic failure for an in-session password change.
var ErrPasswordChangeFailed = goerrors.New("could not change the password", goerrors.CategoryAuth).
	WithTextCode(TextCodePasswordChangeFailed).
	WithCode(goerrors.CodeBadRequest)

// IsValidationError reports whether err was caused by caller supplied input.
func IsValidationError(err error) bool {
	return hasCategory(err, goerrors.CategoryValidation, goerrors.CategoryBadInput)
}

// IsDataIntegrityError reports whether err signals a defect rather than bad input.
func IsDataIntegrityError(err error) bool {
	return hasCategory(err, goerrors.CategoryInternal)
}

func hasCategory(err error, categories ...goerrors.Category) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if !errors.As(err, &richErr) {
		return false
	}

	for _, c := range categories {
		if richErr.Category == c {
			return true
		}
	}
	return false
}

func wrapInternal(err error, message string) error {
	return goerrors.Wrap(err, goerrors.CategoryInternal, message)
}
