// Package host simulates an editor by replaying a YAML event script
//
// Script shape:
//
//	participants: [Ada Lovelace]   # optional live session, feeds live-only attribution
//	steps:
//	  - event: tabs
//	    payload:
//	      opened: [{label: main.go, original: "git:/main.go", modified: "file:///main.go"}]
//	  - delay: 40ms
//	    event: document
//	    payload: {document: "file:///main.go", changes: [{rangeLength: 0, textLength: 3}]}
//	  - delay: 2s
//	    event: test-play
//	    payload: {role: diff-close}
package host

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/diffsound/events"
)

// ErrUnknownEvent is returned for a step naming an unregistered or internal event
var ErrUnknownEvent = errors.New("unknown event")

// Duration decodes "150ms"-style strings as well as bare millisecond integers
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var ms int64
	if err := node.Decode(&ms); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration: %w", node.Line, err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: duration: %w", node.Line, err)
	}
	if v < 0 {
		return fmt.Errorf("line %d: negative duration %s", node.Line, s)
	}
	*d = Duration(v)
	return nil
}

// Step is one scripted host notification
type Step struct {
	Delay   Duration  `yaml:"delay"`
	Event   string    `yaml:"event"`
	Payload yaml.Node `yaml:"payload"`

	eventType events.EventType
}

// Script is a parsed replay script
type Script struct {
	Participants []string `yaml:"participants"`
	Steps        []Step   `yaml:"steps"`
}

// Parse decodes and validates a script; every payload is decoded once here so errors surface early
func Parse(r io.Reader) (*Script, error) {
	var s Script
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return &s, nil
		}
		return nil, fmt.Errorf("parse script: %w", err)
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		et, ok := events.GetEventType(step.Event)
		if !ok || et == events.EventInvoke {
			return nil, fmt.Errorf("step %d: %w: %q", i+1, ErrUnknownEvent, step.Event)
		}
		step.eventType = et
		if _, err := step.payload(); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Event, err)
		}
	}
	return &s, nil
}

// ParseFile reads and parses a script from disk
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Type returns the resolved event type
func (s *Step) Type() events.EventType {
	return s.eventType
}

// payload builds a fresh payload instance so repeated replays never share state
func (s *Step) payload() (any, error) {
	p := events.NewPayloadStruct(s.eventType)
	if p == nil || s.Payload.Kind == 0 {
		return p, nil
	}
	if err := s.Payload.Decode(p); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}
	return p, nil
}

// Duration returns the total scripted delay
func (s *Script) Duration() time.Duration {
	var total time.Duration
	for _, st := range s.Steps {
		total += time.Duration(st.Delay)
	}
	return total
}
