// Package attribution decides whether an edit counts as the user's own
package attribution

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/core"
)

// ErrNoSession is returned by a SessionLookup when no collaboration session is active
var ErrNoSession = errors.New("no active collaboration session")

// lookupTimeout bounds a single participant lookup
const lookupTimeout = 200 * time.Millisecond

// SessionLookup lists display names of the active collaboration session
type SessionLookup interface {
	Participants(ctx context.Context) ([]string, error)
}

// StaticSession is a fixed participant list; empty means no session
type StaticSession []string

// Participants implements SessionLookup
func (s StaticSession) Participants(context.Context) ([]string, error) {
	if len(s) == 0 {
		return nil, ErrNoSession
	}
	return []string(s), nil
}

// Gate applies the configured attribution mode to an edit
type Gate struct {
	sessions SessionLookup
	log      *slog.Logger
}

// NewGate creates a gate; sessions may be nil when no collaboration host is wired
func NewGate(sessions SessionLookup) *Gate {
	return &Gate{
		sessions: sessions,
		log:      slog.Default().With("component", "attribution"),
	}
}

// ShouldPlay reports whether an edit to doc may produce a cue
// Lookup failures deny; they are never surfaced
func (g *Gate) ShouldPlay(cfg *config.Config, doc core.DocumentID) bool {
	if cfg == nil || !cfg.Enabled {
		return false
	}

	switch cfg.AttributionMode {
	case config.AttributionAny:
		return true
	case config.AttributionLiveOnly:
		return g.liveParticipant(cfg.AuthorName)
	case config.AttributionGitOnly:
		// Blame lookup is not implemented; git-only denies every edit
		return false
	default:
		return false
	}
}

func (g *Gate) liveParticipant(author string) bool {
	author = strings.TrimSpace(author)
	if g.sessions == nil || author == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupTimeout)
	defer cancel()

	names, err := g.sessions.Participants(ctx)
	if err != nil {
		g.log.Debug("session lookup failed", "error", err)
		return false
	}
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), author) {
			return true
		}
	}
	return false
}
