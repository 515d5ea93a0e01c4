package config

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dshills/cimedic/internal/providers"
)

// ErrInvalid marks configuration errors. They are fatal before any
// classification happens.
var ErrInvalid = errors.New("invalid configuration")

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("modelspec", func(fl validator.FieldLevel) bool {
		return validModelSpec(fl.Field().String())
	})
	return v
}

func validModelSpec(s string) bool {
	spec, err := providers.ParseModelSpec(s)
	if err != nil {
		return false
	}
	return spec.Provider == "google" || slices.Contains(providers.Names(), spec.Provider)
}

// Validate checks c and returns an error wrapping ErrInvalid that lists every
// problem.
func (c Config) Validate() error {
	var problems []string

	if err := newValidator().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}
	if c.Advisory.Enabled && len(c.Advisory.Models) == 0 {
		problems = append(problems, "advisory.models: advisory is enabled but the model chain is empty")
	}
	if c.Plan.Enabled && c.Plan.Model == "" {
		problems = append(problems, "plan.model: plan strategy is enabled but no model is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "min":
		return fmt.Sprintf("%s: needs at least %s entries", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: %q is not one of [%s]", field, fe.Value(), fe.Param())
	case "modelspec":
		return fmt.Sprintf("%s: %q is not a provider:model spec with a known provider (%s)",
			field, fe.Value(), strings.Join(providers.Names(), ", "))
	case "email":
		return fmt.Sprintf("%s: %q is not an email address", field, fe.Value())
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}
