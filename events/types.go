package events

import (
	"time"
)

// EventType represents the type of host event
type EventType int

const (
	// EventInvoke runs a continuation on the event loop
	// Trigger: timers, decode completions, audio completions
	// Consumer: Router (built in) | Payload: func()
	EventInvoke EventType = iota

	// EventDocumentChanged reports edits to one document
	// Trigger: host editor, replay script
	// Consumer: Orchestrator | Payload: *DocumentChangedPayload
	EventDocumentChanged

	// EventTabsChanged reports opened and closed editor tabs
	// Trigger: host editor, replay script
	// Consumer: Orchestrator | Payload: *TabsChangedPayload
	EventTabsChanged

	// EventConfigChanged signals that settings must be re-read
	// Trigger: viper OnConfigChange, panel edits
	// Consumer: Orchestrator | Payload: *ConfigChangedPayload or nil (re-read from store)
	EventConfigChanged

	// EventEnable turns cues on and persists the flag
	// Trigger: CLI, panel | Payload: *CommandPayload
	EventEnable

	// EventDisable silences every channel immediately and persists the flag
	// Trigger: CLI, panel | Payload: *CommandPayload
	EventDisable

	// EventReload rescans the sounds directory and reloads every role
	// Trigger: CLI, panel, sounds watcher | Payload: *CommandPayload
	EventReload

	// EventTestPlay plays one role at its effective volume
	// Trigger: CLI, panel | Payload: *TestPlayPayload
	EventTestPlay

	// EventRestoreDefaults copies bundled defaults over user files
	// Trigger: CLI, panel | Payload: *CommandPayload
	EventRestoreDefaults

	// EventTypeCount is the number of event types
	EventTypeCount
)

// Event represents a single host event with its arrival time
type Event struct {
	Type      EventType
	Payload   any
	Timestamp time.Time
}

// String returns the registered name of the event type
func (t EventType) String() string {
	if name := GetEventName(t); name != "" {
		return name
	}
	return "Unknown"
}
