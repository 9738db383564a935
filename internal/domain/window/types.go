package window

import (
	"fmt"
	"strconv"
)

// ConnectionID identifies a connection. Zero is the server itself.
type ConnectionID uint16

// LocalID is the per-connection part of a window identity.
type LocalID uint16

// ID is the server-wide identity of a window: the connection that created it
// plus the id that connection picked.
type ID struct {
	Connection ConnectionID
	Local      LocalID
}

// FromTransport unpacks the uint32 form used on the wire.
func FromTransport(v uint32) ID {
	return ID{Connection: ConnectionID(v >> 16), Local: LocalID(v & 0xffff)}
}

// Transport packs the id into its uint32 wire form.
func (id ID) Transport() uint32 {
	return uint32(id.Connection)<<16 | uint32(id.Local)
}

// IsZero reports whether id names no window.
func (id ID) IsZero() bool {
	return id.Connection == 0 && id.Local == 0
}

func (id ID) String() string {
	return fmt.Sprintf("%d,%d", id.Connection, id.Local)
}

// Point is a location in window coordinates.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Rect describes window bounds relative to the parent.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (r Rect) String() string {
	return fmt.Sprintf("%d,%d %dx%d", r.X, r.Y, r.Width, r.Height)
}

// Insets describe the non-client border of a window.
type Insets struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Bottom int `json:"bottom"`
	Right  int `json:"right"`
}

// OrderDirection places a window relative to a sibling.
type OrderDirection int

const (
	Above OrderDirection = iota + 1
	Below
)

func (d OrderDirection) String() string {
	switch d {
	case Above:
		return "above"
	case Below:
		return "below"
	default:
		return "unknown"
	}
}

// ParseOrderDirection converts the wire name of a direction.
func ParseOrderDirection(s string) (OrderDirection, bool) {
	switch s {
	case "above":
		return Above, true
	case "below":
		return Below, true
	}
	return 0, false
}

// Cursor is one of the predefined cursor shapes.
type Cursor int32

const (
	CursorNull Cursor = iota
	CursorPointer
	CursorHand
	CursorIBeam
	CursorWait
	CursorMove
	CursorResize
)

// MarshalJSON encodes the id in its transport form.
func (id ID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatUint(uint64(id.Transport()), 10)), nil
}

// UnmarshalJSON decodes the transport form.
func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}
	v, err := strconv.ParseUint(string(data), 10, 32)
	if err != nil {
		return fmt.Errorf("window id %s: %w", data, err)
	}
	*id = FromTransport(uint32(v))
	return nil
}
