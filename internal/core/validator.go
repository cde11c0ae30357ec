package core

import (
	"errors"
	"log/slog"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"tubepost/internal/types"
)

// videoIDPattern matches a bare 11 character YouTube video id.
var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Validator wraps go-playground/validator with domain tags and maps
// failures onto AppErrors.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator, registers the custom tags and reports
// field names by their json tag.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("message_kind", func(fl validator.FieldLevel) bool {
		return types.MessageKind(fl.Field().String()).Valid()
	}); err != nil {
		logger.Error("failed to register message_kind validation", "error", err)
	}
	if err := v.RegisterValidation("video_id", func(fl validator.FieldLevel) bool {
		return videoIDPattern.MatchString(fl.Field().String())
	}); err != nil {
		logger.Error("failed to register video_id validation", "error", err)
	}

	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s. A missing required field maps to
// validation_missing_required_field; a bad message kind maps to
// validation_invalid_message_type; anything else to validation_invalid_field.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidField, "invalid request", err)
	}

	first := verrs[0]
	field := first.Field()
	details := map[string]any{"field": field}

	switch first.Tag() {
	case "required":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationMissingField, field+" is required", err, details)
	case "message_kind":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidType, "type must be 'comment' or 'live'", err, details)
	case "video_id":
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidVideoID, "invalid video id", err, details)
	default:
		details["rule"] = first.Tag()
		return types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidField, field+" is invalid", err, details)
	}
}

// IsVideoID reports whether s is a bare video id.
func IsVideoID(s string) bool {
	return videoIDPattern.MatchString(s)
}
