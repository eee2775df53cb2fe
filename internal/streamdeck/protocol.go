// Package streamdeck implements the plugin side of the Stream Deck host's
// WebSocket protocol: registration, inbound events and outbound commands.
package streamdeck

import "encoding/json"

// Inbound event names.
const (
	EventWillAppear         = "willAppear"
	EventWillDisappear      = "willDisappear"
	EventKeyDown            = "keyDown"
	EventKeyUp              = "keyUp"
	EventDidReceiveSettings = "didReceiveSettings"
)

// Outbound command names.
const (
	CommandSetSettings = "setSettings"
	CommandGetSettings = "getSettings"
	CommandSetTitle    = "setTitle"
	CommandSetImage    = "setImage"
	CommandLogMessage  = "logMessage"
)

// Target selects which of the key's displays a title or image applies to.
type Target int

const (
	TargetBoth     Target = 0
	TargetHardware Target = 1
	TargetSoftware Target = 2
)

// InboundEvent is a message sent by the host to the plugin.
type InboundEvent struct {
	Event   string          `json:"event"`
	Action  string          `json:"action,omitempty"`
	Context string          `json:"context,omitempty"`
	Device  string          `json:"device,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Coordinates is a key position on the device.
type Coordinates struct {
	Column int `json:"column"`
	Row    int `json:"row"`
}

// KeyPayload is the payload of willAppear, willDisappear, keyDown, keyUp and
// didReceiveSettings.
type KeyPayload struct {
	Settings        json.RawMessage `json:"settings"`
	Coordinates     Coordinates     `json:"coordinates"`
	State           int             `json:"state"`
	IsInMultiAction bool            `json:"isInMultiAction"`
}

// ParseKeyPayload decodes a key payload. An empty payload yields the zero value.
func ParseKeyPayload(raw json.RawMessage) (KeyPayload, error) {
	var p KeyPayload
	if len(raw) == 0 {
		return p, nil
	}
	err := json.Unmarshal(raw, &p)
	return p, err
}

type registration struct {
	Event string `json:"event"`
	UUID  string `json:"uuid"`
}

type command struct {
	Event   string `json:"event"`
	Context string `json:"context,omitempty"`
	Payload any    `json:"payload,omitempty"`
}

type titlePayload struct {
	Title  string `json:"title"`
	Target Target `json:"target"`
}

type imagePayload struct {
	Image  string `json:"image"`
	Target Target `json:"target"`
}

type logPayload struct {
	Message string `json:"message"`
}
