package credentials

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

const (
	maxEmailLength    = 255
	minUsernameLength = 3
	maxUsernameLength = 32
	minPasswordLength = 7
	maxPasswordBytes  = 72
	minPasswordKinds  = 2
)

var (
	usernamePattern = regexp.MustCompile(`(?i)^[a-z][a-z0-9_.\-]+$`)

	passwordCharClasses = []*regexp.Regexp{
		regexp.MustCompile(`[a-z]`),
		regexp.MustCompile(`[A-Z]`),
		regexp.MustCompile(`[0-9]`),
		regexp.MustCompile(`[^a-zA-Z0-9]`),
	}
)

// FieldValidator is the default Validator.
type FieldValidator struct {
	logger Logger
}

// NewValidator returns the default Validator. A nil logger uses the package default.
func NewValidator(logger Logger) *FieldValidator {
	return &FieldValidator{logger: normalizeLogger(logger)}
}

var _ Validator = (*FieldValidator)(nil)

func (v *FieldValidator) CheckEmail(email string) error {
	return v.check("email", TextCodeInvalidEmail, email,
		validation.Required.Error("enter your email address"),
		validation.RuneLength(0, maxEmailLength).Error("email address is too long"),
		is.Email.Error("invalid email address"),
	)
}

func (v *FieldValidator) CheckUsername(username string) error {
	return v.check("username", TextCodeInvalidUsername, username,
		validation.Required.Error("enter your username"),
		validation.RuneLength(minUsernameLength, 0).Error("username must be at least 3 characters"),
		validation.RuneLength(0, maxUsernameLength).Error("username must not exceed 32 characters"),
		validation.Match(usernamePattern).Error("username contains characters that are not allowed"),
	)
}

func (v *FieldValidator) CheckPassword(password string) error {
	if password == "" {
		return ErrMissingPassword
	}

	return v.check("password", TextCodeWeakPassword, password,
		validation.RuneLength(minPasswordLength, 0).Error("password must be at least 7 characters"),
		validation.By(passwordBytes),
		validation.By(passwordKinds),
	)
}

func (v *FieldValidator) CheckPasswordConfirmation(password, confirmation string) error {
	return v.check("password_confirmation", TextCodePasswordMismatch, confirmation,
		validation.Required.Error("confirm your password"),
		validation.By(ValidateStringEquals(password)),
	)
}

func (v *FieldValidator) check(field, textCode, value string, rules ...validation.Rule) error {
	if err := validation.Validate(value, rules...); err != nil {
		v.logger.Debug("%s rejected: %v", field, err)
		return goerrors.New(err.Error(), goerrors.CategoryValidation).
			WithTextCode(textCode).
			WithCode(goerrors.CodeBadRequest).
			WithMetadata(map[string]any{"field": field})
	}
	return nil
}

// ValidateStringEquals returns a rule that passes only when the value equals str.
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("passwords do not match", goerrors.CategoryValidation)
		}
		return nil
	}
}

// bcrypt only accepts the first 72 bytes.
func passwordBytes(value any) error {
	s, _ := value.(string)
	if len(s) > maxPasswordBytes {
		return goerrors.New("password must not exceed 72 bytes", goerrors.CategoryValidation)
	}
	return nil
}

func passwordKinds(value any) error {
	s, _ := value.(string)

	kinds := 0
	for _, re := range passwordCharClasses {
		if re.MatchString(s) {
			kinds++
		}
	}

	if kinds < minPasswordKinds {
		return goerrors.New("password must mix at least 2 of lowercase letters, uppercase letters, digits and symbols", goerrors.CategoryValidation)
	}
	return nil
}
