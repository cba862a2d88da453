// Package service holds the business rules of teamboard.
//
// Handlers parse HTTP and call services; services validate, enforce
// permissions and call the repository interfaces. Nothing here knows about
// HTTP, templates or a concrete database, so every rule is testable with
// plain function calls and in-memory fakes.
//
// Form validation follows one convention: all problems of a submission are
// collected into an apperror.FieldErrors and returned together, wrapped in
// apperror.ErrValidation.
package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/teamboard/internal/apperror"
	"github.com/sakif/teamboard/internal/auth"
	"github.com/sakif/teamboard/internal/model"
	"github.com/sakif/teamboard/internal/repository"
)

// Length limits, repeated as max= in the form tags.
const (
	MaxUsernameLength = 150
	MaxNameLength     = 150
	MaxJobLength      = 100
	MaxTeamNameLength = 100
	DefaultListLimit  = 50
	MaxListLimit      = 200
)

const (
	MsgInvalidUsername   = "Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters."
	MsgInvalidEmail      = "Enter a valid email address."
	MsgDuplicateUsername = "A user with that username already exists."
	MsgDuplicateEmail    = "This email address is already in use. Please supply a different email address."
	MsgPasswordMismatch  = "The two password fields didn't match."
	MsgPasswordTooLong   = "Ensure this password has at most 72 bytes."
	MsgDuplicateTeam     = "A team with that name already exists."
	MsgProfileRequired   = "Complete your profile first."
)

var usernamePattern = regexp.MustCompile(`^[\w.@+-]+$`)

// forms validates the struct tags of every form type. Field errors are keyed
// by the `form` tag, which matches the HTML input names.
//
// Custom rules:
//
//	username  letters, digits and @ . + - _ only
//	gender    one of model.GenderChoices
//	bcrypt    at most auth.MaxPasswordBytes bytes
var forms = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "gender", func(fl validator.FieldLevel) bool {
		return model.ValidGender(fl.Field().String())
	})
	mustRegister(v, "bcrypt", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= auth.MaxPasswordBytes
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %q validation: %v", tag, err))
	}
}

// checkForm runs the tag rules of form and records one message per failing
// field. Only a malformed form type returns an error.
func checkForm(fe apperror.FieldErrors, form any) error {
	err := forms.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validating %T: %w", form, err)
	}
	for _, e := range verrs {
		fe.Add(e.Field(), fieldMessage(e))
	}

	// A mismatch is only meaningful once both passwords were given.
	if fe.Has("password1") && fe.Has("password2") && fe.For("password2")[0] == MsgPasswordMismatch {
		delete(fe, "password2")
	}
	return nil
}

// fieldMessage maps a failed rule to the text shown under the input.
func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return apperror.MsgRequired
	case "email":
		return MsgInvalidEmail
	case "username":
		return MsgInvalidUsername
	case "eqfield":
		return MsgPasswordMismatch
	case "bcrypt":
		return MsgPasswordTooLong
	case "max":
		n := utf8.RuneCountInString(fmt.Sprint(e.Value()))
		return fmt.Sprintf("Ensure this value has at most %s characters (it has %d).", e.Param(), n)
	default:
		return apperror.MsgInvalidChoice
	}
}

// profileFields is the part of a form shared by registration and profile
// editing.
type profileFields struct {
	Job     string `form:"job" validate:"required,max=100"`
	Gender  string `form:"gender" validate:"required,gender"`
	Country string `form:"country" validate:"required"`
	Skills  string `form:"skills"`
}

// validate records field errors and returns the parsed country id.
func (p profileFields) validate(ctx context.Context, countries repository.CountryRepository, fe apperror.FieldErrors) (int64, error) {
	if err := checkForm(fe, p); err != nil {
		return 0, err
	}
	if fe.Has("country") {
		return 0, nil
	}

	id, err := strconv.ParseInt(p.Country, 10, 64)
	if err != nil {
		fe.Add("country", apperror.MsgInvalidChoice)
		return 0, nil
	}
	if _, err := countries.GetCountry(ctx, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			fe.Add("country", apperror.MsgInvalidChoice)
			return 0, nil
		}
		return 0, fmt.Errorf("looking up country %d: %w", id, err)
	}
	return id, nil
}

type teamForm struct {
	Name string `form:"name" validate:"required,max=100"`
}

func normalizeListOptions(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
