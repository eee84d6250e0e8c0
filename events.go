package molview

import (
	"github.com/gogpu/molview/material"
	"github.com/gogpu/molview/scene"
)

// EventKind identifies a viewer event.
type EventKind int

const (
	// EventLoadStart fires when a load begins.
	EventLoadStart EventKind = iota
	// EventLoadProgress carries a fraction in [0,1] during a load.
	EventLoadProgress
	// EventLoadComplete fires when a structure is parsed and adopted.
	EventLoadComplete
	// EventLoadError fires when a load fails; the prior structure is kept.
	EventLoadError
	// EventContextLost fires when the GPU context is lost.
	EventContextLost
	// EventContextRestored fires after a successful restore, with the new
	// epoch.
	EventContextRestored
	// EventStyleChanged fires after a representation style switch.
	EventStyleChanged
	// EventShadingChanged fires after a shading model switch.
	EventShadingChanged
)

func (k EventKind) String() string {
	switch k {
	case EventLoadStart:
		return "loadStart"
	case EventLoadProgress:
		return "loadProgress"
	case EventLoadComplete:
		return "loadComplete"
	case EventLoadError:
		return "loadError"
	case EventContextLost:
		return "contextLost"
	case EventContextRestored:
		return "contextRestored"
	case EventStyleChanged:
		return "styleChanged"
	case EventShadingChanged:
		return "shadingChanged"
	default:
		return "unknown"
	}
}

// Event is a viewer notification. Only the fields relevant to the kind
// are populated.
type Event struct {
	Kind EventKind

	// Source names the structure origin for load events.
	Source string
	// Fraction is the load progress in [0,1].
	Fraction float64
	// Err is the failure for EventLoadError.
	Err error
	// Epoch is the new GPU context generation for EventContextRestored.
	Epoch uint64
	// Style accompanies EventStyleChanged.
	Style scene.Style
	// Shading accompanies EventShadingChanged.
	Shading material.Shading
}

// EventHandler receives viewer events. Handlers run synchronously on the
// goroutine that triggered the event and must return quickly.
type EventHandler func(Event)
