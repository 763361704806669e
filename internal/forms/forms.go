// Package forms resolves conditional field visibility and validates
// submitted form input against a task's field schema.
package forms

import (
	"fmt"
	"strings"

	"github.com/ajayprojects/portal/pkg/models"
)

// MissingFieldError reports a required contact field that was absent or
// blank in a submission.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Field)
}

// Visible reports whether a field should be shown for the current inputs.
// A field with no dependency is always visible. A dependent field is hidden
// until its parent holds one of the ShowWhen values; an unset or blank
// parent hides it.
func Visible(f models.TaskField, inputs models.FormInputs) bool {
	if f.DependsOn == "" {
		return true
	}
	v := inputs[f.DependsOn]
	if v == "" {
		return false
	}
	for _, want := range f.ShowWhen {
		if v == want {
			return true
		}
	}
	return false
}

// VisibleFields filters a task's schema down to the fields visible for the
// given inputs, preserving declaration order.
func VisibleFields(task models.TaskConfig, inputs models.FormInputs) []models.TaskField {
	out := make([]models.TaskField, 0, len(task.Fields))
	for _, f := range task.Fields {
		if Visible(f, inputs) {
			out = append(out, f)
		}
	}
	return out
}

// Prune drops entries for fields that are currently hidden, so stale values
// from an abandoned branch never reach the collaborator. The contact fields
// live outside the task schema and always survive.
func Prune(task models.TaskConfig, inputs models.FormInputs) models.FormInputs {
	visible := make(map[string]bool, len(task.Fields))
	for _, name := range RequiredContactFields {
		visible[name] = true
	}
	for _, f := range task.Fields {
		if Visible(f, inputs) {
			visible[f.Name] = true
		}
	}
	out := make(models.FormInputs, len(inputs))
	for k, v := range inputs {
		if visible[k] {
			out[k] = v
		}
	}
	return out
}

// RequiredContactFields must be present and non-blank in every submission.
var RequiredContactFields = []string{"clientName", "clientPhone"}

// ValidateContact checks the mandatory contact fields. The first missing
// one is reported.
func ValidateContact(inputs models.FormInputs) error {
	for _, name := range RequiredContactFields {
		if strings.TrimSpace(inputs[name]) == "" {
			return &MissingFieldError{Field: name}
		}
	}
	return nil
}
