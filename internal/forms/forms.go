// Package forms validates user input before it is sent to the backend.
package forms

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ChamsBouzaiene/issuefix/internal/api"
)

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	githubRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9]|-[A-Za-z0-9]){0,38}$`)
	codeRe   = regexp.MustCompile(`^[A-Za-z0-9-]{6,32}$`)
	issueRe  = regexp.MustCompile(`^https://github\.com/[A-Za-z0-9-]+/[A-Za-z0-9._-]+/issues/\d+/?$`)
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	_ = validate.RegisterValidation("github_username", func(fl validator.FieldLevel) bool {
		return ValidGithubUsername(fl.Field().String())
	})
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailRe.MatchString(s)
}

// ValidGithubUsername follows GitHub's rules: alphanumerics and single
// hyphens, not at either end, at most 39 characters.
func ValidGithubUsername(s string) bool {
	return githubRe.MatchString(s)
}

// ValidAccessCode reports whether s has the shape of an access code.
func ValidAccessCode(s string) bool {
	return codeRe.MatchString(s)
}

// ValidIssueURL reports whether s is a GitHub issue URL.
func ValidIssueURL(s string) bool {
	return issueRe.MatchString(s)
}

// FieldError is one invalid field.
type FieldError struct {
	Field   string
	Message string
}

// Errors collects every invalid field in a form.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, fe := range e {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return strings.Join(parts, "; ")
}

// Application trims and validates a waitlist application.
func Application(app *api.WaitlistApplication) error {
	app.Email = strings.TrimSpace(app.Email)
	app.Name = strings.TrimSpace(app.Name)
	app.GithubUsername = strings.TrimPrefix(strings.TrimSpace(app.GithubUsername), "@")
	app.Company = strings.TrimSpace(app.Company)
	app.UseCase = strings.TrimSpace(app.UseCase)

	var errs Errors
	if err := validate.Struct(app); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return err
		}
		for _, fe := range ves {
			errs = append(errs, FieldError{Field: fieldName(fe), Message: message(fe)})
		}
	}
	// The validator's email rule accepts forms the backend rejects.
	if app.Email != "" && !ValidEmail(app.Email) && !errs.has("email") {
		errs = append(errs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AccessCode normalizes and validates an access code.
func AccessCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !ValidAccessCode(code) {
		return "", Errors{{Field: "code", Message: "must be 6-32 letters, digits or hyphens"}}
	}
	return code, nil
}

func (e Errors) has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

var jsonNames = map[string]string{
	"Email":          "email",
	"Name":           "name",
	"GithubUsername": "githubUsername",
	"Company":        "company",
	"UseCase":        "useCase",
}

func fieldName(fe validator.FieldError) string {
	if n, ok := jsonNames[fe.Field()]; ok {
		return n
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "github_username":
		return "must be a valid GitHub username"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	}
	return "is invalid"
}
