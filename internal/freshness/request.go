package freshness

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Request defaults, matching the tool contracts.
const (
	DefaultThresholdSeconds = 3.0
	DefaultSchema           = "public"
)

var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// MonitorRequest holds the parameters of a catalog-wide report.
// Empty Schema or Cluster means no filter; MaxDepth 0 uses the engine default.
type MonitorRequest struct {
	ThresholdSeconds float64 `json:"threshold_seconds" validate:"gte=0"`
	Schema           string  `json:"schema,omitempty"`
	Cluster          string  `json:"cluster,omitempty"`
	MaxDepth         int     `json:"max_depth,omitempty" validate:"gte=0,lte=100"`
}

// NewMonitorRequest returns a request with the default threshold.
func NewMonitorRequest() MonitorRequest {
	return MonitorRequest{ThresholdSeconds: DefaultThresholdSeconds}
}

// Validate rejects out-of-range parameters.
func (r MonitorRequest) Validate() error {
	return validateStruct(r)
}

// ObjectRequest holds the parameters of a single-object report.
// An empty Schema selects DefaultSchema.
type ObjectRequest struct {
	ObjectName string `json:"object_name" validate:"required"`
	Schema     string `json:"schema,omitempty"`
	MaxDepth   int    `json:"max_depth,omitempty" validate:"gte=0,lte=100"`
}

// Validate rejects missing or out-of-range parameters.
func (r ObjectRequest) Validate() error {
	if strings.TrimSpace(r.ObjectName) == "" {
		return &ValidationError{Field: "object_name", Reason: "must not be empty"}
	}
	return validateStruct(r)
}

func (r ObjectRequest) schema() string {
	if r.Schema == "" {
		return DefaultSchema
	}
	return r.Schema
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ValidationError{Field: fe.Field(), Reason: describeTag(fe)}
	}
	return fmt.Errorf("failed to validate request: %w", err)
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
