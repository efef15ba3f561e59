package events

import (
	"reflect"
	"strings"
	"sync"
)

var (
	nameToType    = make(map[string]EventType)
	typeToName    = make(map[EventType]string)
	typeToPayload = make(map[EventType]reflect.Type)
	registryOnce  sync.Once
)

// RegisterType maps a script name to an EventType and its payload struct type
// payloadInstance should be a pointer to the payload struct (e.g., &TabsChangedPayload{})
// Pass nil if the event has no payload
func RegisterType(name string, et EventType, payloadInstance any) {
	nameToType[strings.ToLower(name)] = et
	typeToName[et] = name
	if payloadInstance != nil {
		t := reflect.TypeOf(payloadInstance)
		if t.Kind() == reflect.Ptr {
			t = t.Elem()
		}
		typeToPayload[et] = t
	}
}

// GetEventType returns the EventType for a script name, case-insensitive
func GetEventType(name string) (EventType, bool) {
	initRegistry()
	et, ok := nameToType[strings.ToLower(strings.TrimSpace(name))]
	return et, ok
}

// GetEventName returns the script name for an EventType
func GetEventName(et EventType) string {
	initRegistry()
	return typeToName[et]
}

// NewPayloadStruct returns a new pointer to a zero-value payload struct for the event type
// Returns nil if no payload is registered
func NewPayloadStruct(et EventType) any {
	initRegistry()
	t, ok := typeToPayload[et]
	if !ok {
		return nil
	}
	return reflect.New(t).Interface()
}

// initRegistry populates the registry with all host events
func initRegistry() {
	registryOnce.Do(func() {
		RegisterType("invoke", EventInvoke, nil)
		RegisterType("document", EventDocumentChanged, &DocumentChangedPayload{})
		RegisterType("tabs", EventTabsChanged, &TabsChangedPayload{})
		RegisterType("config", EventConfigChanged, &ConfigChangedPayload{})
		RegisterType("enable", EventEnable, &CommandPayload{})
		RegisterType("disable", EventDisable, &CommandPayload{})
		RegisterType("reload", EventReload, &CommandPayload{})
		RegisterType("test-play", EventTestPlay, &TestPlayPayload{})
		RegisterType("restore-defaults", EventRestoreDefaults, &CommandPayload{})
	})
}
