package view

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"planethub/internal/reconcile"
	"planethub/pkg/models"
)

const NotFoundMessage = "Planet not found."

// LatestCatalog returns the last fetched remote catalog, fetching when
// nothing is cached.
type LatestCatalog interface {
	Latest(ctx context.Context) ([]models.Planet, error)
}

type Chip struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Value string `json:"value"`
	Link  string `json:"link,omitempty"`
}

type Section struct {
	Key   string   `json:"key"`
	Title string   `json:"title"`
	Items []string `json:"items"`
}

type DetailState struct {
	Name     string         `json:"name"`
	Found    bool           `json:"found"`
	Message  string         `json:"message,omitempty"`
	Planet   *models.Planet `json:"planet,omitempty"`
	Chips    []Chip         `json:"chips"`
	Sections []Section      `json:"sections"`
}

type Detail struct {
	remote LatestCatalog
	custom CustomCatalog
	logger *zap.Logger
}

func NewDetail(remote LatestCatalog, custom CustomCatalog, logger *zap.Logger) *Detail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detail{remote: remote, custom: custom, logger: logger}
}

// Load resolves name against remote planets first, then custom ones. A remote
// failure narrows the lookup to custom planets. The only error is ctx's.
func (d *Detail) Load(ctx context.Context, name string) (DetailState, error) {
	name = strings.TrimSpace(name)
	st := DetailState{Name: name, Chips: []Chip{}, Sections: []Section{}}

	var remote []models.Planet
	if name != "" {
		var err error
		remote, err = d.remote.Latest(ctx)
		if err != nil {
			d.logger.Warn("remote catalog unavailable for detail", zap.String("name", name), zap.Error(err))
			remote = nil
		}
	}
	if err := ctx.Err(); err != nil {
		return DetailState{}, err
	}

	var custom []models.Planet
	if name != "" {
		custom = d.custom.LoadCustom(ctx)
	}

	set := make([]models.Planet, 0, len(remote)+len(custom))
	set = append(set, remote...)
	set = append(set, custom...)

	p, ok := reconcile.Find(set, name)
	if !ok {
		st.Message = NotFoundMessage
		return st, nil
	}

	st.Found = true
	st.Planet = &p
	st.Chips = buildChips(p.Details)
	st.Sections = buildSections(p.Details)
	return st, nil
}

func buildChips(d models.Details) []Chip {
	chips := make([]Chip, 0, 7)
	add := func(key, label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			chips = append(chips, Chip{Key: key, Label: label, Value: value})
		}
	}

	add("temperature", "Temperature", d.Temperature)

	mass := strings.TrimSpace(d.Mass)
	if mass == "" {
		mass = "N/A"
	}
	chips = append(chips, Chip{Key: "mass", Label: "Mass", Value: mass})

	add("volume", "Volume", d.Volume)
	add("distance", "Distance from the Sun", d.Distance)
	add("discovery", "Discovered", d.Discovery)

	if link := strings.TrimSpace(d.WikiLink); link != "" {
		chips = append(chips, Chip{Key: "wiki", Label: "Wikipedia", Value: "Read more", Link: link})
	}
	if src := strings.TrimSpace(d.Source); src != "" {
		chips = append(chips, Chip{Key: "source", Label: "Source", Value: src, Link: linkOrEmpty(src)})
	}
	return chips
}

func buildSections(d models.Details) []Section {
	sections := make([]Section, 0, 3)
	if atm := strings.TrimSpace(d.Atmosphere); atm != "" {
		sections = append(sections, Section{Key: "atmosphere", Title: "Atmosphere composition", Items: []string{atm}})
	}
	if len(d.Satellites) > 0 {
		sections = append(sections, Section{Key: "satellites", Title: "Satellites", Items: append([]string(nil), d.Satellites...)})
	}
	if len(d.Missions) > 0 {
		sections = append(sections, Section{Key: "missions", Title: "Missions and research", Items: append([]string(nil), d.Missions...)})
	}
	return sections
}

func linkOrEmpty(s string) string {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s
	}
	return ""
}
