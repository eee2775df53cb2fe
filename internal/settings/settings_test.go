package settings

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dokzlo13/deckcolor/internal/color"
	"github.com/dokzlo13/deckcolor/internal/db"
	"github.com/dokzlo13/deckcolor/internal/state"
)

func TestButtonState_JSONFieldNames(t *testing.T) {
	raw := `{
		"colorRgb": [255, 0, 128],
		"colorHex": "#FF0080",
		"isDown": true,
		"longPress": false,
		"delay": "350",
		"showValue": "rgb",
		"lights": "light.kitchen, light.bedroom",
		"url": "http://ha.local:8123",
		"token": "secret"
	}`
	var s ButtonState
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if s.ColorRGB != (color.RGB{255, 0, 128}) || s.ColorHex != "#FF0080" {
		t.Errorf("color = %v %q", s.ColorRGB, s.ColorHex)
	}
	if !s.IsDown || s.LongPress {
		t.Errorf("flags = %v %v", s.IsDown, s.LongPress)
	}
	if s.Delay.Duration() != 350*time.Millisecond {
		t.Errorf("delay = %v", s.Delay.Duration())
	}
	if s.Display() != color.ShowRGB {
		t.Errorf("display = %q", s.Display())
	}
	if s.URL != "http://ha.local:8123" || s.Token != "secret" {
		t.Errorf("connection = %q %q", s.URL, s.Token)
	}
}

func TestMillis_Unmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Millis
		wantErr bool
	}{
		{in: `200`, want: 200},
		{in: `200.0`, want: 200},
		{in: `"500"`, want: 500},
		{in: `" 75 "`, want: 75},
		{in: `""`, want: 0},
		{in: `null`, want: 0},
		{in: `-5`, want: 0},
		{in: `"abc"`, wantErr: true},
	}
	for _, tt := range tests {
		var m Millis
		err := json.Unmarshal([]byte(tt.in), &m)
		if tt.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if m != tt.want {
			t.Errorf("%s: got %d, want %d", tt.in, m, tt.want)
		}
	}
}

func TestSetColor_KeepsHexInSync(t *testing.T) {
	var s ButtonState
	s.SetColor(color.RGB{255, 0, 128})
	if s.ColorHex != "#FF0080" {
		t.Errorf("hex = %q", s.ColorHex)
	}
	if s.Title() != "#FF0080" {
		t.Errorf("title = %q", s.Title())
	}
}

func TestWithDefaults(t *testing.T) {
	d := Defaults{
		Delay:     200 * time.Millisecond,
		ShowValue: "hex",
		Lights:    "light.default",
		URL:       "http://default",
		Token:     "default-token",
	}

	filled := ButtonState{}.WithDefaults(d)
	if filled.Delay != 200 || filled.ShowValue != "hex" || filled.Lights != "light.default" ||
		filled.URL != "http://default" || filled.Token != "default-token" {
		t.Errorf("defaults not applied: %+v", filled)
	}

	own := ButtonState{Delay: 500, ShowValue: "none", Lights: "light.mine", URL: "http://mine", Token: "t"}
	kept := own.WithDefaults(d)
	if kept != own {
		t.Errorf("user settings overwritten: %+v", kept)
	}
}

type fakeHost struct {
	pushed map[string]any
	err    error
}

func (f *fakeHost) SetSettings(_ context.Context, id string, settings any) error {
	if f.err != nil {
		return f.err
	}
	if f.pushed == nil {
		f.pushed = make(map[string]any)
	}
	f.pushed[id] = settings
	return nil
}

func newMirror(t *testing.T) *state.TypedStore[ButtonState] {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "settings.sqlite"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return state.NewTypedStore[ButtonState](state.NewStore(database.DB), Kind)
}

func TestHostStore_SavePushesAndMirrors(t *testing.T) {
	ctx := context.Background()
	host := &fakeHost{}
	mirror := newMirror(t)
	s := NewHostStore(host, mirror)

	st := ButtonState{IsDown: true}
	st.SetColor(color.RGB{1, 2, 3})
	if err := s.Save(ctx, "btn", st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if got, ok := host.pushed["btn"].(ButtonState); !ok || got != st {
		t.Errorf("host got %#v", host.pushed["btn"])
	}
	mirrored, version, err := mirror.Get("btn")
	if err != nil || version != 1 || mirrored != st {
		t.Errorf("mirror = %+v v%d err=%v", mirrored, version, err)
	}
	loaded, err := s.Load(ctx, "btn")
	if err != nil || loaded != st {
		t.Errorf("Load = %+v err=%v", loaded, err)
	}
}

func TestHostStore_LoadFallsBackToMirror(t *testing.T) {
	ctx := context.Background()
	mirror := newMirror(t)
	var prev ButtonState
	prev.SetColor(color.RGB{9, 9, 9})
	if err := mirror.Set("btn", prev); err != nil {
		t.Fatal(err)
	}

	s := NewHostStore(&fakeHost{}, mirror)
	got, err := s.Load(ctx, "btn")
	if err != nil {
		t.Fatal(err)
	}
	if got != prev {
		t.Errorf("Load = %+v, want %+v", got, prev)
	}
}

func TestHostStore_RememberWinsOverMirror(t *testing.T) {
	ctx := context.Background()
	mirror := newMirror(t)
	var stale ButtonState
	stale.SetColor(color.RGB{1, 1, 1})
	if err := mirror.Set("btn", stale); err != nil {
		t.Fatal(err)
	}

	host := &fakeHost{}
	s := NewHostStore(host, mirror)
	var fresh ButtonState
	fresh.SetColor(color.RGB{2, 2, 2})
	s.Remember("btn", fresh)

	got, _ := s.Load(ctx, "btn")
	if got != fresh {
		t.Errorf("Load = %+v, want host copy", got)
	}
	if len(host.pushed) != 0 {
		t.Errorf("Remember pushed to host: %v", host.pushed)
	}
	mirrored, _, _ := mirror.Get("btn")
	if mirrored != fresh {
		t.Errorf("mirror not updated: %+v", mirrored)
	}
}

func TestHostStore_HostErrorReturned(t *testing.T) {
	s := NewHostStore(&fakeHost{err: errors.New("socket closed")}, nil)
	err := s.Save(context.Background(), "btn", ButtonState{IsDown: true})
	if err == nil {
		t.Fatal("expected error")
	}
	// The cache is still updated so the press logic sees its own writes.
	got, _ := s.Load(context.Background(), "btn")
	if !got.IsDown {
		t.Error("cache not updated on host failure")
	}
}

func TestHostStore_ForgetKeepsMirror(t *testing.T) {
	ctx := context.Background()
	mirror := newMirror(t)
	s := NewHostStore(&fakeHost{}, mirror)
	st := ButtonState{Lights: "light.a"}
	if err := s.Save(ctx, "btn", st); err != nil {
		t.Fatal(err)
	}
	s.Forget("btn")
	got, err := s.Load(ctx, "btn")
	if err != nil || got != st {
		t.Errorf("Load after Forget = %+v err=%v", got, err)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantRGB  color.RGB
		wantHex  string
		colorErr bool
		wantErr  bool
	}{
		{
			name:    "valid",
			raw:     `{"colorRgb":[255,0,128],"colorHex":"#FF0080","lights":"light.desk"}`,
			wantRGB: color.RGB{255, 0, 128},
			wantHex: "#FF0080",
		},
		{
			name:     "out_of_range_resets_to_black",
			raw:      `{"colorRgb":[300,-5,0],"lights":"light.desk"}`,
			wantRGB:  color.Black,
			wantHex:  "#000000",
			colorErr: true,
		},
		{
			name:     "short_array_recovers_from_hex",
			raw:      `{"colorRgb":[1,2],"colorHex":"#0A141E","lights":"light.desk"}`,
			wantRGB:  color.RGB{10, 20, 30},
			wantHex:  "#0A141E",
			colorErr: true,
		},
		{
			name:     "not_an_array",
			raw:      `{"colorRgb":"red","lights":"light.desk"}`,
			wantRGB:  color.Black,
			wantHex:  "#000000",
			colorErr: true,
		},
		{
			name:    "other_field_malformed",
			raw:     `{"colorRgb":[1,2,3],"isDown":"yes"}`,
			wantErr: true,
		},
		{
			name:    "bad_color_and_other_field_malformed",
			raw:     `{"colorRgb":[300,0,0],"isDown":"yes"}`,
			wantErr: true,
		},
		{
			name:    "not_an_object",
			raw:     `[1,2,3]`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, colorErr, err := Decode([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("decoded %+v, want error", st)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if (colorErr != nil) != tt.colorErr {
				t.Errorf("colorErr = %v, want error: %v", colorErr, tt.colorErr)
			}
			if st.ColorRGB != tt.wantRGB || st.ColorHex != tt.wantHex {
				t.Errorf("color = %v %q, want %v %q", st.ColorRGB, st.ColorHex, tt.wantRGB, tt.wantHex)
			}
			if st.Lights != "light.desk" {
				t.Errorf("lights = %q, other fields were lost", st.Lights)
			}
		})
	}

	_, colorErr, _ := Decode([]byte(`{"colorRgb":[300,-5,0]}`))
	var ice *color.InvalidColorError
	if !errors.As(colorErr, &ice) || ice.Channel != "r" || ice.Value != 300 {
		t.Errorf("colorErr = %v, want *InvalidColorError for r=300", colorErr)
	}
}
