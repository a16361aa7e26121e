package intake

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"planethub/pkg/models"
)

// ErrMissingRequired matches every *ValidationError via errors.Is.
var ErrMissingRequired = errors.New("missing required field")

// ValidationError lists the required fields that were empty after trimming,
// in form order.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Missing, ", "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrMissingRequired }

// Field is the first missing field.
func (e *ValidationError) Field() string {
	if len(e.Missing) == 0 {
		return ""
	}
	return e.Missing[0]
}

// Fields is the raw form input. Satellites and Missions are comma-separated.
type Fields struct {
	Name        string `json:"name" form:"name"`
	Image       string `json:"image" form:"image"`
	Description string `json:"description" form:"description"`
	Temperature string `json:"temperature" form:"temperature"`
	Mass        string `json:"mass" form:"mass"`
	Volume      string `json:"volume" form:"volume"`
	Atmosphere  string `json:"atmosphere" form:"atmosphere"`
	Satellites  string `json:"satellites" form:"satellites"`
	Missions    string `json:"missions" form:"missions"`
	Source      string `json:"source" form:"source"`
	WikiLink    string `json:"wikiLink" form:"wikiLink"`
	Distance    string `json:"distance" form:"distance"`
	Discovery   string `json:"discovery" form:"discovery"`
}

type required struct {
	Name        string `json:"name" validate:"required"`
	Image       string `json:"image" validate:"required"`
	Description string `json:"description" validate:"required"`
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

// BuildRecord trims and validates the form input and produces a custom planet.
// The returned planet has no ID; Form.Submit assigns one.
func BuildRecord(f Fields) (models.Planet, error) {
	req := required{
		Name:        strings.TrimSpace(f.Name),
		Image:       strings.TrimSpace(f.Image),
		Description: strings.TrimSpace(f.Description),
	}

	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return models.Planet{}, fmt.Errorf("validate planet: %w", err)
		}
		missing := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			missing = append(missing, fe.Field())
		}
		return models.Planet{}, &ValidationError{Missing: missing}
	}

	return models.Planet{
		Name:        req.Name,
		Image:       req.Image,
		Description: req.Description,
		Details: models.Details{
			Temperature: strings.TrimSpace(f.Temperature),
			Mass:        strings.TrimSpace(f.Mass),
			Volume:      strings.TrimSpace(f.Volume),
			Atmosphere:  strings.TrimSpace(f.Atmosphere),
			Satellites:  models.SplitList(f.Satellites),
			Missions:    models.SplitList(f.Missions),
			Source:      strings.TrimSpace(f.Source),
			WikiLink:    strings.TrimSpace(f.WikiLink),
			Distance:    strings.TrimSpace(f.Distance),
			Discovery:   strings.TrimSpace(f.Discovery),
		},
		Origin: models.OriginCustom,
	}, nil
}
