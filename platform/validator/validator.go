// Package validator provides request validation infrastructure.
// This is part of the platform layer and contains no business logic.
package validator

import "github.com/go-playground/validator/v10"

// Validator wraps go-playground/validator so modules depend on an
// injectable instance rather than a package global.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the default tag-based rules.
func New() *Validator {
	return &Validator{
		v: validator.New(),
	}
}

// Struct validates a struct against its validation tags.
func (val *Validator) Struct(s interface{}) error {
	return val.v.Struct(s)
}

// Var validates a single value against a tag expression.
func (val *Validator) Var(field interface{}, tag string) error {
	return val.v.Var(field, tag)
}

// RegisterValidation adds a custom validation rule under the given tag.
func (val *Validator) RegisterValidation(tag string, fn validator.Func) error {
	return val.v.RegisterValidation(tag, fn)
}
