package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/panelprompt/auth-api/internal/core/domain"
)

// StrictBinder decodes JSON bodies into closed forms: keys the target struct
// does not declare are reported as violations instead of being dropped.
type StrictBinder struct{}

func NewStrictBinder() *StrictBinder { return &StrictBinder{} }

// Bind satisfies echo.Binder.
func (b *StrictBinder) Bind(i any, c echo.Context) error {
	req := c.Request()
	if ctype := req.Header.Get(echo.HeaderContentType); ctype != "" &&
		!strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
		return echo.ErrUnsupportedMediaType
	}

	var body []byte
	if req.Body != nil {
		var err error
		if body, err = io.ReadAll(req.Body); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "unreadable request body").SetInternal(err)
		}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.NewValidationError(domain.FieldViolation{
			Field:   "body",
			Rule:    "json",
			Message: "request body must be a JSON object",
		})
	}

	allowed := jsonFields(reflect.TypeOf(i))
	unknown := make([]string, 0)
	for k := range raw {
		if _, ok := allowed[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	sort.Strings(unknown)

	violations := make([]domain.FieldViolation, 0, len(unknown))
	for _, k := range unknown {
		violations = append(violations, domain.FieldViolation{
			Field:   k,
			Rule:    "unknown",
			Message: k + " is not an allowed field",
		})
	}

	if err := json.Unmarshal(body, i); err != nil {
		var ute *json.UnmarshalTypeError
		if !errors.As(err, &ute) {
			return domain.NewValidationError(domain.FieldViolation{
				Field:   "body",
				Rule:    "json",
				Message: "request body must be a JSON object",
			})
		}
		violations = append(violations, domain.FieldViolation{
			Field:   ute.Field,
			Rule:    "type",
			Param:   ute.Type.String(),
			Message: fmt.Sprintf("%s must be a %s", ute.Field, ute.Type),
		})
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}

// jsonFields lists the JSON keys a struct type declares.
func jsonFields(t reflect.Type) map[string]struct{} {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	fields := make(map[string]struct{})
	if t.Kind() != reflect.Struct {
		return fields
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		if name := jsonName(f); name != "" {
			fields[name] = struct{}{}
		}
	}
	return fields
}

// form is a request body that trims its own fields before validation.
type form interface {
	Normalize()
}

// bindForm binds, normalizes and validates f, merging binder and validator
// violations into one ValidationError.
func bindForm(c echo.Context, f form) error {
	var violations []domain.FieldViolation

	if err := c.Bind(f); err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		violations = append(violations, ve.Violations...)
	}

	f.Normalize()

	if err := c.Validate(f); err != nil {
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		violations = append(violations, ve.Violations...)
	}

	if len(violations) > 0 {
		return domain.NewValidationError(violations...)
	}
	return nil
}
