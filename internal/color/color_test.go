package color

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHex(t *testing.T) {
	tests := []struct {
		c    RGB
		want string
	}{
		{RGB{255, 0, 128}, "#FF0080"},
		{RGB{0, 0, 0}, "#000000"},
		{RGB{255, 255, 255}, "#FFFFFF"},
		{RGB{1, 2, 3}, "#010203"},
		{RGB{171, 205, 239}, "#ABCDEF"},
	}
	for _, tt := range tests {
		if got := tt.c.Hex(); got != tt.want {
			t.Errorf("%v.Hex() = %q, want %q", tt.c, got, tt.want)
		}
	}
}

func TestHex_MatchesFormulaForAllChannelValues(t *testing.T) {
	for v := 0; v <= 255; v++ {
		c := RGB{v, 255 - v, v / 2}
		want := "#" + fmt.Sprintf("%02X%02X%02X", c[0], c[1], c[2])
		if got := c.Hex(); got != want {
			t.Fatalf("%v.Hex() = %q, want %q", c, got, want)
		}
	}
}

func TestParseHex_RoundTrip(t *testing.T) {
	c, err := ParseHex("#ff0080")
	if err != nil {
		t.Fatalf("ParseHex: %v", err)
	}
	if c != (RGB{255, 0, 128}) {
		t.Errorf("ParseHex = %v", c)
	}
	if _, err := ParseHex("nope"); err == nil {
		t.Error("expected error for invalid hex")
	}
}

func TestValidate(t *testing.T) {
	if err := (RGB{0, 128, 255}).Validate(); err != nil {
		t.Errorf("valid color rejected: %v", err)
	}

	err := RGB{0, 256, 0}.Validate()
	var ice *InvalidColorError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InvalidColorError, got %v", err)
	}
	if ice.Channel != "g" || ice.Value != 256 {
		t.Errorf("got channel=%s value=%d", ice.Channel, ice.Value)
	}

	if err := (RGB{-1, 0, 0}).Validate(); err == nil {
		t.Error("negative channel accepted")
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    RGB
		wantErr bool
	}{
		{name: "plain", input: "[255, 0, 128]", want: RGB{255, 0, 128}},
		{name: "trailing_newline", input: "[1,2,3]\r\n", want: RGB{1, 2, 3}},
		{name: "two_channels", input: "[1,2]", wantErr: true},
		{name: "four_channels", input: "[1,2,3,4]", wantErr: true},
		{name: "out_of_range", input: "[1,2,300]", wantErr: true},
		{name: "negative", input: "[-1,2,3]", wantErr: true},
		{name: "float", input: "[1.5,2,3]", wantErr: true},
		{name: "string", input: `["a",2,3]`, wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "object", input: `{"r":1}`, wantErr: true},
		{name: "trailing_garbage", input: "[1,2,3] [4,5,6]", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseJSON([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseJSON_OutOfRangeIsInvalidColorError(t *testing.T) {
	_, err := ParseJSON([]byte("[0,0,999]"))
	var ice *InvalidColorError
	if !errors.As(err, &ice) {
		t.Fatalf("expected InvalidColorError, got %v", err)
	}
	if ice.Channel != "b" {
		t.Errorf("channel = %q, want b", ice.Channel)
	}
}

func TestTitle(t *testing.T) {
	c := RGB{255, 0, 128}
	if got := Title(ShowHex, c, "#FF0080"); got != "#FF0080" {
		t.Errorf("hex title = %q", got)
	}
	if got := Title(ShowHex, c, ""); got != "#FF0080" {
		t.Errorf("hex title without cached hex = %q", got)
	}
	// The cached hex is shown as stored.
	if got := Title(ShowHex, c, "#000000"); got != "#000000" {
		t.Errorf("stale hex title = %q", got)
	}
	if got := Title(ShowRGB, c, ""); got != strings.Join([]string{"255", "0", "128"}, "\n") {
		t.Errorf("rgb title = %q", got)
	}
	if got := Title(ShowNone, c, "#FF0080"); got != "" {
		t.Errorf("none title = %q", got)
	}
}

func TestParseShowValue(t *testing.T) {
	tests := map[string]ShowValue{
		"hex":   ShowHex,
		"RGB":   ShowRGB,
		" none": ShowNone,
		"":      ShowHex,
		"bogus": ShowHex,
	}
	for in, want := range tests {
		if got := ParseShowValue(in); got != want {
			t.Errorf("ParseShowValue(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRGB_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    RGB
		wantErr bool
		invalid bool // error must be *InvalidColorError
	}{
		{name: "valid", in: `[255, 0, 128]`, want: RGB{255, 0, 128}},
		{name: "out_of_range", in: `[300, -5, 0]`, wantErr: true, invalid: true},
		{name: "negative", in: `[0, -1, 0]`, wantErr: true, invalid: true},
		{name: "two_channels", in: `[1, 2]`, wantErr: true},
		{name: "four_channels", in: `[1, 2, 3, 4]`, wantErr: true},
		{name: "fraction", in: `[1.5, 2, 3]`, wantErr: true},
		{name: "string", in: `"red"`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c RGB
			err := json.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decoded %v, want error", c)
				}
				var ice *InvalidColorError
				if tt.invalid && !errors.As(err, &ice) {
					t.Errorf("error %v is not *InvalidColorError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if c != tt.want {
				t.Errorf("got %v, want %v", c, tt.want)
			}
		})
	}

	c := RGB{1, 2, 3}
	if err := json.Unmarshal([]byte(`null`), &c); err != nil || c != (RGB{1, 2, 3}) {
		t.Errorf("null: %v, %v", c, err)
	}
}
