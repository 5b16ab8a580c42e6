package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	DisplayNameMin = 3
	DisplayNameMax = 30
	BioMax         = 160
	ChatTextMax    = 500
)

var displayNameRegex = regexp.MustCompile(`^[\p{L}\p{N} _-]+$`)

func ValidateRegister(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

// ValidateProfile checks the fields present in a profile edit. Nil fields are
// left unchanged and are not validated.
func ValidateProfile(displayName, bio *string) ValidationErrors {
	errs := make(ValidationErrors)

	if displayName != nil {
		validateDisplayName(*displayName, errs)
	}
	if bio != nil && utf8.RuneCountInString(strings.TrimSpace(*bio)) > BioMax {
		errs.Add("bio", fmt.Sprintf("Bio must be at most %d characters", BioMax))
	}

	return errs
}

func ValidateDisplayName(displayName string) ValidationErrors {
	errs := make(ValidationErrors)
	validateDisplayName(displayName, errs)
	return errs
}

// ValidateFriendRequest requires exactly one of userID or displayName.
func ValidateFriendRequest(userID, displayName string) ValidationErrors {
	errs := make(ValidationErrors)

	userID = strings.TrimSpace(userID)
	displayName = strings.TrimSpace(displayName)

	switch {
	case userID == "" && displayName == "":
		errs.Add("user_id", "User ID or display name is required")
	case userID != "" && displayName != "":
		errs.Add("user_id", "Provide either a user ID or a display name, not both")
	case userID != "":
		if _, err := uuid.Parse(userID); err != nil {
			errs.Add("user_id", "Invalid user ID")
		}
	}

	return errs
}

func ValidateChatMessage(text string) ValidationErrors {
	errs := make(ValidationErrors)

	text = strings.TrimSpace(text)
	if text == "" {
		errs.Add("text", "Message is required")
	} else if utf8.RuneCountInString(text) > ChatTextMax {
		errs.Add("text", fmt.Sprintf("Message must be at most %d characters", ChatTextMax))
	}

	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validateDisplayName(displayName string, errs ValidationErrors) {
	displayName = strings.TrimSpace(displayName)
	n := utf8.RuneCountInString(displayName)
	switch {
	case displayName == "":
		errs.Add("display_name", "Display name is required")
	case n < DisplayNameMin:
		errs.Add("display_name", fmt.Sprintf("Display name must be at least %d characters", DisplayNameMin))
	case n > DisplayNameMax:
		errs.Add("display_name", fmt.Sprintf("Display name must be at most %d characters", DisplayNameMax))
	case !displayNameRegex.MatchString(displayName):
		errs.Add("display_name", "Display name can only contain letters, numbers, spaces, _ and -")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
