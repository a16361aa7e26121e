package view

import (
	"net/url"
	"strings"
)

// NameFromRoute extracts the planet name from "/planet/<name>",
// "/planets/<name>" or the hash form "#/planet/<name>". It returns "" for any
// other route.
func NameFromRoute(route string) string {
	r := strings.TrimSpace(route)
	r = strings.TrimPrefix(r, "#")
	if i := strings.IndexAny(r, "?#"); i >= 0 {
		r = r[:i]
	}

	parts := strings.Split(strings.Trim(r, "/"), "/")
	if len(parts) != 2 || (parts[0] != "planet" && parts[0] != "planets") {
		return ""
	}

	name, err := url.PathUnescape(parts[1])
	if err != nil {
		name = parts[1]
	}
	return strings.TrimSpace(name)
}
