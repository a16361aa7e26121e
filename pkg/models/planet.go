package models

import (
	"encoding/json"
	"strings"
)

// Origin tells where a planet record came from.
type Origin string

const (
	OriginRemote Origin = "remote"
	OriginCustom Origin = "custom"
)

// Planet is the normalized, internal form of a planet catalog entry.
//
// Both the remote API and the user-added (custom) planets are mapped into this
// structure first; everything downstream (sorting, lookup, views) works on it.
// Name, Image and Description are always serialized, even when empty.
type Planet struct {
	ID          string  `json:"id,omitempty"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Details     Details `json:"details"`
	Origin      Origin  `json:"origin,omitempty"`
}

// Details holds the optional extended fields of a planet.
// An empty string means "absent"; presentation decides what to hide.
type Details struct {
	Temperature string     `json:"temperature,omitempty"`
	Mass        string     `json:"mass,omitempty"`
	Volume      string     `json:"volume,omitempty"`
	Atmosphere  string     `json:"atmosphere,omitempty"`
	Satellites  StringList `json:"satellites,omitempty"`
	Missions    StringList `json:"missions,omitempty"`
	Source      string     `json:"source,omitempty"`
	WikiLink    string     `json:"wikiLink,omitempty"`
	Distance    string     `json:"distance,omitempty"`
	Discovery   string     `json:"discovery,omitempty"`
}

// StringList is an ordered list of trimmed, non-empty strings.
//
// Older stored records may carry a single comma-separated string instead of
// an array; both shapes decode into the same list.
type StringList []string

// SplitList splits a comma-separated string, trims every token and drops
// empty ones. It returns nil when nothing is left.
func SplitList(s string) StringList {
	var out StringList
	for _, tok := range strings.Split(s, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func (l *StringList) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*l = SplitList(single)
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}

	var out StringList
	for _, s := range many {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	*l = out
	return nil
}
