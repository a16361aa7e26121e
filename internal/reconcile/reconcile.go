package reconcile

import (
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"planethub/pkg/models"
)

type SortMode string

const (
	NameAsc  SortMode = "name-asc"
	NameDesc SortMode = "name-desc"
	MassDesc SortMode = "mass-desc"

	DefaultSortMode = NameAsc
)

// ParseSortMode maps a user-supplied value to a SortMode. The older "mass"
// value is treated as mass-desc; anything unrecognized falls back to name-asc.
func ParseSortMode(s string) SortMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(NameAsc):
		return NameAsc
	case string(NameDesc):
		return NameDesc
	case string(MassDesc), "mass":
		return MassDesc
	default:
		return DefaultSortMode
	}
}

// Reconciler merges remote and custom planets and orders them.
// Names are compared with the collation rules of Locale.
type Reconciler struct {
	Locale language.Tag
}

func New(locale string) Reconciler {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Ukrainian
	}
	return Reconciler{Locale: tag}
}

// Reconcile uses the default Ukrainian collation.
func Reconcile(remote, custom []models.Planet, mode SortMode) []models.Planet {
	return Reconciler{Locale: language.Ukrainian}.Reconcile(remote, custom, mode)
}

// Reconcile concatenates remote followed by custom into a new slice and
// stable-sorts it by mode. Inputs are not modified.
func (r Reconciler) Reconcile(remote, custom []models.Planet, mode SortMode) []models.Planet {
	all := make([]models.Planet, 0, len(remote)+len(custom))
	all = append(all, remote...)
	all = append(all, custom...)

	switch mode {
	case NameDesc:
		cmp := r.nameCompare()
		slices.SortStableFunc(all, func(a, b models.Planet) int { return cmp(b, a) })
	case MassDesc:
		slices.SortStableFunc(all, func(a, b models.Planet) int {
			ma, mb := ParseMass(a.Details.Mass), ParseMass(b.Details.Mass)
			switch {
			case ma > mb:
				return -1
			case ma < mb:
				return 1
			default:
				return 0
			}
		})
	default:
		slices.SortStableFunc(all, r.nameCompare())
	}
	return all
}

// nameCompare builds a fresh collator; collate.Collator is not safe for
// concurrent use.
func (r Reconciler) nameCompare() func(a, b models.Planet) int {
	c := collate.New(r.Locale)
	return func(a, b models.Planet) int {
		return c.CompareString(a.Name, b.Name)
	}
}

// Find returns the first planet named name in set order.
func Find(set []models.Planet, name string) (models.Planet, bool) {
	for _, p := range set {
		if p.Name == name {
			return p, true
		}
	}
	return models.Planet{}, false
}
