package authsdk

import "strings"

const (
	requiredReason    = "required"
	minEmailLength    = 3
	minPasswordLength = 8
)

// Validate checks the register request fields.
// Returns a map of field names to error messages, or nil if all fields are valid.
func (r RegisterRequest) Validate() map[string]string {
	errs := make(map[string]string)

	validateEmail(errs, r.Email)

	switch {
	case r.Password == "":
		errs["password"] = requiredReason
	case len(r.Password) < minPasswordLength:
		errs["password"] = "too short (min 8)"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Validate checks the login request fields. The password is only required
// to be present.
func (r LoginRequest) Validate() map[string]string {
	errs := make(map[string]string)

	validateEmail(errs, r.Email)
	if r.Password == "" {
		errs["password"] = requiredReason
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

func validateEmail(errs map[string]string, raw string) {
	email := strings.TrimSpace(raw)
	switch {
	case email == "":
		errs["email"] = requiredReason
	case len(email) < minEmailLength:
		errs["email"] = "too short (min 3)"
	case !strings.Contains(email, "@"):
		errs["email"] = "must contain @"
	}
}

// ValidationMessage flattens the map returned by Validate into one line,
// ordered by field name.
func ValidationMessage(errs map[string]string) string {
	var b strings.Builder
	for _, field := range []string{"email", "password"} {
		msg, ok := errs[field]
		if !ok {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(field + ": " + msg)
	}
	return b.String()
}
