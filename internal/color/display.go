package color

import (
	"fmt"
	"strings"
)

// ShowValue selects what the button title displays.
type ShowValue string

const (
	ShowHex  ShowValue = "hex"
	ShowRGB  ShowValue = "rgb"
	ShowNone ShowValue = "none"
)

// ParseShowValue normalizes a settings value. Unknown values yield ShowHex.
func ParseShowValue(s string) ShowValue {
	switch ShowValue(strings.ToLower(strings.TrimSpace(s))) {
	case ShowRGB:
		return ShowRGB
	case ShowNone:
		return ShowNone
	default:
		return ShowHex
	}
}

// Title renders the button title for a color. hex is passed separately because
// the stored hex string is displayed as-is, even when it lags the RGB value.
func Title(mode ShowValue, c RGB, hex string) string {
	switch mode {
	case ShowRGB:
		return fmt.Sprintf("%d\n%d\n%d", c[0], c[1], c[2])
	case ShowNone:
		return ""
	default:
		if hex == "" {
			return c.Hex()
		}
		return hex
	}
}
