package events

import (
	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/core"
)

// DocumentChangedPayload contains the ordered discrete changes of one edit
type DocumentChangedPayload struct {
	Document core.DocumentID `yaml:"document"`
	Changes  []core.Change   `yaml:"changes"`
}

// TabsChangedPayload contains the tabs opened and closed in one host notification
type TabsChangedPayload struct {
	Opened []core.Tab `yaml:"opened"`
	Closed []core.Tab `yaml:"closed"`
}

// ConfigChangedPayload carries a freshly loaded snapshot
// A nil Config asks the consumer to re-read the store
type ConfigChangedPayload struct {
	Config *config.Config `yaml:"-"`
}

// CommandPayload carries an optional reply channel for synchronous callers
// Reply must be buffered; the loop never blocks on it
type CommandPayload struct {
	Reply chan error `yaml:"-"`
}

// Respond delivers err to the caller if one is waiting
func (p *CommandPayload) Respond(err error) {
	if p == nil || p.Reply == nil {
		return
	}
	select {
	case p.Reply <- err:
	default:
	}
}

// TestPlayPayload selects the role to audition
type TestPlayPayload struct {
	CommandPayload `yaml:",inline"`
	Role           string `yaml:"role"`
}

// NewCommand creates a command payload with a one-slot reply channel
func NewCommand() *CommandPayload {
	return &CommandPayload{Reply: make(chan error, 1)}
}
