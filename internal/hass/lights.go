package hass

import "strings"

// ParseLights splits a comma-separated light list. Whitespace around each id
// is trimmed and empty entries are dropped, so "a, b" and "a,b" are the same.
func ParseLights(csv string) []string {
	parts := strings.Split(csv, ",")
	lights := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			lights = append(lights, p)
		}
	}
	return lights
}
