package knowledge

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dusk-indust/lineage/internal/metrics"
)

// Sentinels matched by the typed errors below via errors.Is.
var (
	ErrNotFound   = errors.New("knowledge: not found")
	ErrStorage    = errors.New("knowledge: storage failure")
	ErrValidation = errors.New("knowledge: invalid input")
)

// NotFoundError reports a missing artifact, version or index.
type NotFoundError struct {
	Kind string // "artifact", "version", ...
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// Is makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a failure of the storage adapter or of the record codec.
type StorageError struct {
	Op       string // "get", "put", "get_all", "decode", "encode"
	Category string
	Key      string
	Err      error
}

func (e *StorageError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s %s: %v", e.Op, e.Category, e.Err)
	}
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Category, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// ValidationError reports structurally invalid caller input. It is raised
// before the engine touches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) hold.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// ClassifyError maps an engine error to a metrics outcome label.
func ClassifyError(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, ErrValidation):
		return metrics.OutcomeValidation
	default:
		return metrics.OutcomeError
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// validateStruct runs struct-tag validation and converts the first failure
// into a ValidationError rooted at field.
func validateStruct(field string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		reason := fe.Tag()
		if fe.Param() != "" {
			reason += "=" + fe.Param()
		}
		return &ValidationError{Field: field + "." + fe.Field(), Reason: reason}
	}
	return &ValidationError{Field: field, Reason: err.Error()}
}

func validateRef(field string, ref ArtifactRef) error {
	return validateStruct(field, ref)
}
