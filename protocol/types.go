// Package protocol defines the DungeonLab WebSocket envelope, its enumerations,
// and the textual command grammar carried in the envelope's message field.
package protocol

import (
	"fmt"
	"strings"
)

// MessageType is the lowercase "type" field of an envelope.
type MessageType string

const (
	TypeBind      MessageType = "bind"
	TypeUnbind    MessageType = "unbind"
	TypeMsg       MessageType = "msg"
	TypeHeartbeat MessageType = "heartbeat"
	TypeBreak     MessageType = "break"
	TypeError     MessageType = "error"
	TypeCustom    MessageType = "custom"
)

// ParseMessageType accepts any letter case and returns the canonical type.
func ParseMessageType(s string) (MessageType, error) {
	t := MessageType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case TypeBind, TypeUnbind, TypeMsg, TypeHeartbeat, TypeBreak, TypeError, TypeCustom:
		return t, nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

// Channel is one of the device's two output lines.
type Channel int

const (
	ChannelA Channel = 1
	ChannelB Channel = 2
)

// String returns the channel letter used by pulse and preset commands.
func (c Channel) String() string {
	switch c {
	case ChannelA:
		return "A"
	case ChannelB:
		return "B"
	default:
		return fmt.Sprintf("Channel(%d)", int(c))
	}
}

// Number returns the channel number used by clear and strength commands.
func (c Channel) Number() int {
	return int(c)
}

// Valid reports whether c is A or B.
func (c Channel) Valid() bool {
	return c == ChannelA || c == ChannelB
}

// ParseChannel accepts "A", "B", "1" or "2" in any case.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "A", "1":
		return ChannelA, nil
	case "B", "2":
		return ChannelB, nil
	default:
		return 0, fmt.Errorf("unknown channel %q", s)
	}
}

// StrengthChangeMode selects how a strength command's value is applied.
type StrengthChangeMode int

const (
	Decrease StrengthChangeMode = 0
	Increase StrengthChangeMode = 1
	Fixed    StrengthChangeMode = 2
)

func (m StrengthChangeMode) String() string {
	switch m {
	case Decrease:
		return "DECREASE"
	case Increase:
		return "INCREASE"
	case Fixed:
		return "FIXED"
	default:
		return fmt.Sprintf("StrengthChangeMode(%d)", int(m))
	}
}

// Valid reports whether m is one of the three defined modes.
func (m StrengthChangeMode) Valid() bool {
	return m >= Decrease && m <= Fixed
}

// ParseStrengthChangeMode accepts the mode name or its number.
func ParseStrengthChangeMode(s string) (StrengthChangeMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DECREASE", "DEC", "0":
		return Decrease, nil
	case "INCREASE", "INC", "1":
		return Increase, nil
	case "FIXED", "SET", "2":
		return Fixed, nil
	default:
		return 0, fmt.Errorf("unknown strength change mode %q", s)
	}
}

// Feedback is a device interaction symbol: one of five shapes on one of two
// channels. Codes 0-4 are channel A, 5-9 channel B.
type Feedback int

const (
	CircleA Feedback = iota
	TriangleA
	SquareA
	StarA
	HexagonA
	CircleB
	TriangleB
	SquareB
	StarB
	HexagonB
)

var shapeNames = [...]string{"CIRCLE", "TRIANGLE", "SQUARE", "STAR", "HEXAGON"}
var shapeGlyphs = [...]string{"○", "△", "□", "☆", "⬡"}

// Valid reports whether f is one of the ten defined symbols.
func (f Feedback) Valid() bool {
	return f >= CircleA && f <= HexagonB
}

// String returns the symbol name, e.g. "STAR_A".
func (f Feedback) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Feedback(%d)", int(f))
	}

	return shapeNames[f.shapeIndex()] + "_" + f.Channel().String()
}

// Channel returns the channel the feedback was registered on.
func (f Feedback) Channel() Channel {
	if f >= CircleB {
		return ChannelB
	}

	return ChannelA
}

// Shape returns the shape name without the channel suffix.
func (f Feedback) Shape() string {
	if !f.Valid() {
		return ""
	}

	return shapeNames[f.shapeIndex()]
}

// Glyph returns the symbol shown by the device app for this shape.
func (f Feedback) Glyph() string {
	if !f.Valid() {
		return "?"
	}

	return shapeGlyphs[f.shapeIndex()]
}

func (f Feedback) shapeIndex() int {
	return int(f) % len(shapeNames)
}
