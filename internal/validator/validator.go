package validator

import (
	"strings"
)

type Validator struct {
	Errors []string `json:",omitempty"`
}

func (v Validator) HasErrors() bool {
	return len(v.Errors) != 0
}

func (v *Validator) AddError(message string) {
	if v.Errors == nil {
		v.Errors = []string{}
	}

	v.Errors = append(v.Errors, message)
}

// AddFieldError records an error attributed to a named field, e.g.
// "account_number: is required".
func (v *Validator) AddFieldError(field, message string) {
	v.AddError(field + ": " + message)
}

func (v *Validator) Check(ok bool, message string) {
	if !ok {
		v.AddError(message)
	}
}

func (v *Validator) CheckField(ok bool, field, message string) {
	if !ok {
		v.AddFieldError(field, message)
	}
}

// String joins all collected messages, suitable for wrapping into an error.
func (v Validator) String() string {
	return strings.Join(v.Errors, "; ")
}

func NotBlank(value string) bool {
	return strings.TrimSpace(value) != ""
}
