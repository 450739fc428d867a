package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/princekumarofficial/portfolio-studio/internal/files"
	"github.com/princekumarofficial/portfolio-studio/internal/types/media"
	"github.com/princekumarofficial/portfolio-studio/internal/utils/response"
)

const (
	DefaultMaxFileSize = 10 * 1024 * 1024

	CodeDeniedType    = "denied_type"
	CodeTooLarge      = "too_large"
	CodeInvalidFields = "invalid_fields"
)

var DefaultDeniedTypes = []string{"quicktime"}

// ValidationError is a locally recoverable rejection shown inline to the user
type ValidationError struct {
	Code   string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// IsValidationError reports whether err carries a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Outcome is the verdict for one file. The zero value is ok.
type Outcome struct {
	Code   string
	Reason string
}

func (o Outcome) OK() bool {
	return o.Reason == ""
}

func (o Outcome) Err() error {
	if o.OK() {
		return nil
	}
	return &ValidationError{Code: o.Code, Reason: o.Reason}
}

// Policy holds the type and size rules applied to a candidate file
type Policy struct {
	MaxSize     int64
	DeniedTypes []string
}

func DefaultPolicy() Policy {
	return Policy{
		MaxSize:     DefaultMaxFileSize,
		DeniedTypes: append([]string(nil), DefaultDeniedTypes...),
	}
}

// NewPolicy builds a policy from configured limits; zero values keep the defaults.
func NewPolicy(maxSize int64, deniedTypes []string) Policy {
	p := DefaultPolicy()
	if maxSize > 0 {
		p.MaxSize = maxSize
	}
	if len(deniedTypes) > 0 {
		p.DeniedTypes = append([]string(nil), deniedTypes...)
	}
	return p
}

// Validate checks the denylist, then the size limit. First failure wins.
func (p Policy) Validate(f *files.File) Outcome {
	if f == nil {
		return Outcome{}
	}

	fileType := strings.ToLower(f.Type)
	for _, denied := range p.DeniedTypes {
		denied = strings.ToLower(strings.TrimSpace(denied))
		if denied != "" && strings.Contains(fileType, denied) {
			return Outcome{
				Code:   CodeDeniedType,
				Reason: "Invalid file type. Please upload an image or video.",
			}
		}
	}

	if f.Size > p.MaxSize {
		return Outcome{
			Code:   CodeTooLarge,
			Reason: fmt.Sprintf("File size exceeds %s limit.", formatLimit(p.MaxSize)),
		}
	}

	return Outcome{}
}

func formatLimit(size int64) string {
	const mib = 1024 * 1024
	if size%mib == 0 {
		return fmt.Sprintf("%dMB", size/mib)
	}
	return fmt.Sprintf("%.1fMB", float64(size)/mib)
}

var fieldValidator = newFieldValidator()

func newFieldValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("register notblank: %v", err))
	}
	return v
}

// Fields checks the user-entered upload fields.
func Fields(req media.UploadRequest) error {
	err := fieldValidator.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return &ValidationError{Code: CodeInvalidFields, Reason: response.ValidationError(verrs)}
	}
	return &ValidationError{Code: CodeInvalidFields, Reason: err.Error()}
}
