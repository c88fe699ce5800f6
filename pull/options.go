package pull

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-spatial/geom"
	"github.com/perimeterx/marshmallow"
)

// Options configure an Adapter.
type Options struct {
	// Extent is minx, miny, maxx, maxy
	Extent []float64 `validate:"required,len=4,dive,finite" json:"-"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	err := v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	if err != nil {
		panic(err)
	}
	return v
}

func (o Options) validate() (geom.Extent, error) {
	if err := validate.Struct(o); err != nil {
		reason := "must be exactly four finite numbers"
		if o.Extent == nil {
			reason = "is required"
		}
		return geom.Extent{}, &ConfigurationError{Field: "extent", Reason: reason, Err: err}
	}
	e := geom.Extent{o.Extent[0], o.Extent[1], o.Extent[2], o.Extent[3]}
	if e.MinX() >= e.MaxX() || e.MinY() >= e.MaxY() {
		return geom.Extent{}, &ConfigurationError{
			Field:  "extent",
			Reason: fmt.Sprintf("min must be smaller than max on both axes, got %v", o.Extent),
		}
	}
	return e, nil
}

// ParseExtent parses "minx,miny,maxx,maxy". Values may be separated by commas and/or whitespace.
// Only the syntax is checked here, Configure checks the values.
func ParseExtent(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	extent := make([]float64, 0, len(fields))
	for _, field := range fields {
		f, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, &ConfigurationError{Field: "extent", Reason: fmt.Sprintf("%q is not a number", field), Err: err}
		}
		extent = append(extent, f)
	}
	return extent, nil
}

// ParseOptionsJSON reads options from JSON. The extent may be given as a string
// ("-180,-90,180,90") or as an array of numbers. Unknown keys are ignored.
func ParseOptionsJSON(data []byte) (Options, error) {
	var options Options
	specials, err := marshmallow.Unmarshal(data, &options, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return options, &ConfigurationError{Field: "options", Reason: "not a JSON object", Err: err}
	}
	rawExtent, ok := specials["extent"]
	if !ok {
		return options, nil
	}
	switch v := rawExtent.(type) {
	case string:
		options.Extent, err = ParseExtent(v)
		if err != nil {
			return options, err
		}
	case []interface{}:
		options.Extent = make([]float64, 0, len(v))
		for _, raw := range v {
			f, ok := raw.(float64)
			if !ok {
				return options, &ConfigurationError{Field: "extent", Reason: fmt.Sprintf("%v is not a number", raw)}
			}
			options.Extent = append(options.Extent, f)
		}
	default:
		return options, &ConfigurationError{Field: "extent", Reason: fmt.Sprintf("wrong type %T", rawExtent)}
	}
	return options, nil
}

// MarshalJSON writes the extent as an array.
func (o Options) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Extent []float64 `json:"extent"`
	}{Extent: o.Extent})
}
