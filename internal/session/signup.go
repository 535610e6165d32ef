package session

import (
	"context"

	"github.com/Skotchmaster/ebooks_storefront/internal/validation"
	"github.com/Skotchmaster/ebooks_storefront/pkg/logging"
)

type Registration struct {
	UserName        string `json:"userName" validate:"notblank,min=3,username"`
	Email           string `json:"email" validate:"notblank,email"`
	Password        string `json:"password" validate:"notblank,min=8,haslower,hasupper,hasdigit"`
	ConfirmPassword string `json:"confirmPassword" validate:"notblank,eqfield=Password"`
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	PhoneNumber     string `json:"phoneNumber"`
}

type Credentials struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

var (
	credentialMessages = validation.Messages{
		"userName": "Username is required",
		"password": "Password is required",
	}
	registrationMessages = validation.Messages{
		"userName.notblank":        "Username is required",
		"userName.min":             "Username must be at least 3 characters",
		"userName.username":        "Username contains invalid characters",
		"email.notblank":           "Email is required",
		"email.email":              "Please enter a valid email",
		"password.notblank":        "Password is required",
		"password.min":             "Password must be at least 8 characters",
		"password.haslower":        "Password must contain at least one lowercase letter",
		"password.hasupper":        "Password must contain at least one uppercase letter",
		"password.hasdigit":        "Password must contain at least one number",
		"confirmPassword.notblank": "Please confirm your password",
		"confirmPassword.eqfield":  "Passwords do not match",
	}
)

func validateCredentials(c Credentials) error {
	return validation.Struct(c, credentialMessages).Err()
}

// ValidateRegistration applies the local rules only.
func ValidateRegistration(r Registration) validation.Errors {
	return validation.Struct(r, registrationMessages)
}

// checkAvailability asks the remote whether the user name and email are free.
// Fields that already failed locally are not checked.
func (s *Service) checkAvailability(ctx context.Context, r Registration, errs validation.Errors) {
	l := logging.FromContext(ctx).With("svc", "session.signup")

	if _, bad := errs["userName"]; !bad {
		taken, err := s.API.UsernameExists(ctx, r.UserName)
		switch {
		case err != nil:
			l.Warn("username_check_failed", "error", err)
			errs.Add("userName", "Unable to verify username availability")
		case taken:
			errs.Add("userName", "Username is already taken")
		}
	}

	if _, bad := errs["email"]; !bad {
		taken, err := s.API.EmailExists(ctx, r.Email)
		switch {
		case err != nil:
			l.Warn("email_check_failed", "error", err)
			errs.Add("email", "Unable to verify email availability")
		case taken:
			errs.Add("email", "Email already registered")
		}
	}
}
