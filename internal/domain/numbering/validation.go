package numbering

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"docnum/internal/core/apperror"
	"docnum/internal/core/numerator"
)

// branchEdits is the validated shape of a bulk save.
type branchEdits struct {
	Entries []numerator.ConfigEdit `json:"entries" validate:"min=1,dive"`
}

// editValidator checks configuration edits before any write happens.
type editValidator struct {
	v *validator.Validate
}

func newEditValidator(defaults numerator.DefaultTable) *editValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Use JSON tag names for field names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for an empty tag or nil func.
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		_, ok := defaults[numerator.DocumentType(fl.Field().String())]
		return ok
	})

	return &editValidator{v: v}
}

// Validate returns a ValidationErrors AppError listing every offending field,
// keyed by JSON path such as "entries[2].padding_zeros".
func (ev *editValidator) Validate(edits []numerator.ConfigEdit) error {
	fields := make(map[string]string)

	if err := ev.v.Struct(branchEdits{Entries: edits}); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperror.NewInternal(err)
		}
		for _, fe := range verrs {
			fields[fieldPath(fe)] = validationMessage(fe)
		}
	}

	seen := make(map[numerator.DocumentType]int, len(edits))
	for i, e := range edits {
		if first, dup := seen[e.DocumentType]; dup && e.DocumentType != "" {
			fields[fmt.Sprintf("entries[%d].document_type", i)] =
				fmt.Sprintf("Duplicate of entries[%d]", first)
			continue
		}
		seen[e.DocumentType] = i
	}

	if len(fields) > 0 {
		return apperror.NewValidationErrors(fields)
	}
	return nil
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "doctype":
		return "Unknown document type"
	case "min":
		switch fe.Kind() {
		case reflect.Slice:
			return "At least one entry is required"
		case reflect.String:
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	default:
		return "Invalid value"
	}
}
