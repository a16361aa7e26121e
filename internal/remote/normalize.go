package remote

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"planethub/pkg/models"
)

const notAvailable = "N/A"

// scalar accepts a JSON string, number or bool and keeps it as text.
// null and objects/arrays read as "".
type scalar string

func (s *scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		*s = ""
		return nil
	}
	switch b[0] {
	case '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = scalar(v)
	case 't', 'f':
		*s = scalar(strconv.FormatBool(b[0] == 't'))
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*s = scalar(b)
	default:
		*s = ""
	}
	return nil
}

func (s scalar) text() string { return strings.TrimSpace(string(s)) }

// rawPlanet is the shape the planets API returns:
//
//	{
//	  "id": 3,
//	  "name": "Earth",
//	  "imgSrc": {"img": "https://..."},
//	  "description": "...",
//	  "basicDetails": {"mass": "5.97 × 10^24 kg", "volume": "1.08 × 10^12 km³"},
//	  "source": "https://...",
//	  "wikiLink": "https://..."
//	}
type rawPlanet struct {
	ID     scalar `json:"id"`
	Name   scalar `json:"name"`
	ImgSrc *struct {
		Img scalar `json:"img"`
	} `json:"imgSrc"`
	Description  scalar `json:"description"`
	BasicDetails *struct {
		Mass   scalar `json:"mass"`
		Volume scalar `json:"volume"`
	} `json:"basicDetails"`
	Source   scalar `json:"source"`
	WikiLink scalar `json:"wikiLink"`
}

// normalize maps one API element into the canonical planet shape.
// Missing measurements read as "N/A", other missing fields as "".
func normalize(r rawPlanet) models.Planet {
	p := models.Planet{
		ID:          r.ID.text(),
		Name:        r.Name.text(),
		Description: r.Description.text(),
		Details: models.Details{
			Mass:     notAvailable,
			Volume:   notAvailable,
			Source:   r.Source.text(),
			WikiLink: r.WikiLink.text(),
		},
		Origin: models.OriginRemote,
	}
	if r.ImgSrc != nil {
		p.Image = r.ImgSrc.Img.text()
	}
	if r.BasicDetails != nil {
		if v := r.BasicDetails.Mass.text(); v != "" {
			p.Details.Mass = v
		}
		if v := r.BasicDetails.Volume.text(); v != "" {
			p.Details.Volume = v
		}
	}
	return p
}
