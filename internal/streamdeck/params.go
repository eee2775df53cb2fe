package streamdeck

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
)

// Params are the launch arguments the host passes to the plugin binary.
type Params struct {
	Port          int
	PluginUUID    string
	RegisterEvent string
	Info          Info
}

// Info is the subset of the -info JSON the plugin logs at startup.
type Info struct {
	Application struct {
		Language string `json:"language"`
		Platform string `json:"platform"`
		Version  string `json:"version"`
	} `json:"application"`
	Plugin struct {
		UUID    string `json:"uuid"`
		Version string `json:"version"`
	} `json:"plugin"`
	DevicePixelRatio int `json:"devicePixelRatio"`
}

// RegisterFlags adds the host launch flags to fs. Call Params.Validate after
// fs.Parse.
func RegisterFlags(fs *flag.FlagSet) (*Params, *string) {
	p := &Params{}
	info := new(string)
	fs.IntVar(&p.Port, "port", 0, "Stream Deck host WebSocket port")
	fs.StringVar(&p.PluginUUID, "pluginUUID", "", "Plugin instance UUID assigned by the host")
	fs.StringVar(&p.RegisterEvent, "registerEvent", "", "Event name used to register with the host")
	fs.StringVar(info, "info", "", "Host and plugin information (JSON)")
	return p, info
}

// ParseParams parses the host launch arguments.
func ParseParams(args []string) (Params, error) {
	fs := flag.NewFlagSet("streamdeck", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	p, info := RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Params{}, err
	}
	if err := p.Finish(*info); err != nil {
		return Params{}, err
	}
	return *p, nil
}

// Finish decodes the raw -info value and validates required fields.
func (p *Params) Finish(rawInfo string) error {
	if rawInfo != "" {
		if err := json.Unmarshal([]byte(rawInfo), &p.Info); err != nil {
			return fmt.Errorf("failed to parse -info: %w", err)
		}
	}
	return p.Validate()
}

// Validate checks that the host supplied everything needed to connect.
func (p *Params) Validate() error {
	var errs []error
	if p.Port <= 0 || p.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid -port %d", p.Port))
	}
	if p.PluginUUID == "" {
		errs = append(errs, errors.New("missing -pluginUUID"))
	}
	if p.RegisterEvent == "" {
		errs = append(errs, errors.New("missing -registerEvent"))
	}
	return errors.Join(errs...)
}
