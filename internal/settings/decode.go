package settings

import (
	"encoding/json"

	"github.com/dokzlo13/deckcolor/internal/color"
)

// Decode parses a settings object delivered by the host.
//
// A colorRgb that is not three channels in 0-255 does not reject the record:
// the color is rebuilt from colorHex, or reset to black when that does not
// parse either, and colorErr reports what was discarded. err is set only when
// the rest of the record is malformed.
func Decode(raw []byte) (st ButtonState, colorErr error, err error) {
	err = json.Unmarshal(raw, &st)
	if err == nil {
		return st, nil, nil
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(raw, &fields) != nil {
		return ButtonState{}, nil, err
	}
	bad, ok := fields["colorRgb"]
	if !ok {
		return ButtonState{}, nil, err
	}
	var check color.RGB
	colorErr = json.Unmarshal(bad, &check)
	if colorErr == nil {
		return ButtonState{}, nil, err
	}

	delete(fields, "colorRgb")
	rest, mErr := json.Marshal(fields)
	if mErr != nil {
		return ButtonState{}, nil, err
	}
	st = ButtonState{}
	if err := json.Unmarshal(rest, &st); err != nil {
		return ButtonState{}, nil, err
	}

	if c, hexErr := color.ParseHex(st.ColorHex); hexErr == nil {
		st.SetColor(c)
	} else {
		st.SetColor(color.Black)
	}
	return st, colorErr, nil
}
