package web

// minPasswordLen matches the upstream registration policy.
const minPasswordLen = 8

// validateRegisterForm checks the registration form locally, before any
// network call. Returns a user-facing message, or "" when the form is valid.
func validateRegisterForm(email, password, confirmPassword, fullName string) string {
	if email == "" || password == "" || fullName == "" {
		return "All fields are required"
	}
	if password != confirmPassword {
		return "Passwords do not match"
	}
	if len(password) < minPasswordLen {
		return "Password must be at least 8 characters long"
	}
	return ""
}

// validateLoginForm checks the login form locally. The message is the same
// generic one a rejected credential produces, so the form never reveals
// which check failed.
func validateLoginForm(email, password string) string {
	if email == "" || password == "" {
		return "Invalid email or password"
	}
	return ""
}
