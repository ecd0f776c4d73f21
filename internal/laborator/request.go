package laborator

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Flag accepts booleans, numbers and strings such as "1", "true", "yes".
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*f = false
	case bool:
		*f = Flag(t)
	case float64:
		*f = t != 0
	case string:
		*f = Flag(ParseFlag(t))
	default:
		*f = false
	}
	return nil
}

// ParseFlag interprets a boolean-like query value.
func ParseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on", "y":
		return true
	}
	return false
}

// RawRequest is the wire shape of an export request.
type RawRequest struct {
	StartDate string `json:"startDate" validate:"omitempty,isodate"`
	EndDate   string `json:"endDate" validate:"omitempty,isodate"`
	Debug     Flag   `json:"debug"`
}

// Request is a validated export request.
type Request struct {
	Range DateRange
	Debug bool
	// WantJSON is set when the caller accepts JSON but not a zip.
	WantJSON bool
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := parseDate(fl.Field().String(), false)
		return err == nil
	})
	return v
}

// ParseRequest validates raw and resolves the date range. A bare end date is
// inclusive through the end of that day. A reversed range is accepted and
// simply matches no orders.
func ParseRequest(raw RawRequest) (Request, error) {
	if err := validate.Struct(raw); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return Request{}, &ValidationError{Field: verrs[0].Field(), Reason: "expected an ISO date (YYYY-MM-DD or RFC3339)"}
		}
		return Request{}, &ValidationError{Field: "request", Reason: err.Error()}
	}
	var req Request
	req.Debug = bool(raw.Debug)
	if s := strings.TrimSpace(raw.StartDate); s != "" {
		t, _ := parseDate(s, false)
		req.Range.Start = &t
	}
	if s := strings.TrimSpace(raw.EndDate); s != "" {
		t, _ := parseDate(s, true)
		req.Range.End = &t
	}
	return req, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}

// AcceptsOnlyJSON reports whether an Accept header asks for JSON and not a zip.
func AcceptsOnlyJSON(accept string) bool {
	accept = strings.ToLower(accept)
	return strings.Contains(accept, "application/json") && !strings.Contains(accept, "application/zip")
}
