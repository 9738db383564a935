package ws

import (
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/tree"
	"github.com/GriffinCanCode/AgentOS/windowserver/internal/domain/window"
)

// Request is one frame sent by a client. Which fields are read depends on
// Type; window ids are the client's own ids in transport form.
type Request struct {
	Type     string `json:"type"`
	ChangeID uint32 `json:"change_id,omitempty"`

	Window   window.ID `json:"window,omitempty"`
	Parent   window.ID `json:"parent,omitempty"`
	Relative window.ID `json:"relative,omitempty"`
	// Secondary is the mask layer or decoration being attached.
	Secondary window.ID `json:"secondary,omitempty"`

	Direction  string            `json:"direction,omitempty"`
	Bounds     *window.Rect      `json:"bounds,omitempty"`
	Insets     *window.Insets    `json:"insets,omitempty"`
	Visible    bool              `json:"visible,omitempty"`
	CanFocus   bool              `json:"can_focus,omitempty"`
	Cursor     window.Cursor     `json:"cursor,omitempty"`
	Name       string            `json:"name,omitempty"`
	Value      []byte            `json:"value,omitempty"`
	Properties map[string][]byte `json:"properties,omitempty"`

	// Token names a pending client to embed.
	Token         string `json:"token,omitempty"`
	PolicyBitmask uint32 `json:"policy_bitmask,omitempty"`

	AckID uint32      `json:"ack_id,omitempty"`
	Event *tree.Event `json:"event,omitempty"`

	WMChangeID uint32 `json:"wm_change_id,omitempty"`
	Success    bool   `json:"success,omitempty"`
}

// Request types.
const (
	TypeNewWindow                       = "new_window"
	TypeNewTopLevelWindow               = "new_top_level_window"
	TypeDeleteWindow                    = "delete_window"
	TypeAddWindow                       = "add_window"
	TypeRemoveWindowFromParent          = "remove_window_from_parent"
	TypeAddTransientWindow              = "add_transient_window"
	TypeRemoveTransientWindowFromParent = "remove_transient_window_from_parent"
	TypeReorderWindow                   = "reorder_window"
	TypeSetVisibility                   = "set_visibility"
	TypeSetBounds                       = "set_bounds"
	TypeSetProperty                     = "set_property"
	TypeSetClientArea                   = "set_client_area"
	TypeSetCanFocus                     = "set_can_focus"
	TypeSetCursor                       = "set_cursor"
	TypeSetFocus                        = "set_focus"
	TypeSetMaskLayer                    = "set_mask_layer"
	TypeAddDecoration                   = "add_decoration"
	TypeEmbed                           = "embed"
	TypeGetWindowTree                   = "get_window_tree"
	TypeInputEventAck                   = "input_event_ack"
	TypeDispatchInputEvent              = "dispatch_input_event"
	TypeWmResponse                      = "wm_response"
	TypeWmCreatedTopLevelWindow         = "wm_created_top_level_window"
	TypePing                            = "ping"
)

// Frame is one message sent to a client.
type Frame map[string]any

func windowIDs(ids []window.ID) []window.ID {
	if ids == nil {
		return []window.ID{}
	}
	return ids
}

func windowData(data []tree.WindowData) []tree.WindowData {
	if data == nil {
		return []tree.WindowData{}
	}
	return data
}
