// Package config holds the diffsound configuration snapshot and its persisted form
package config

import (
	"os/user"
	"time"

	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
)

// AttributionMode selects which edits are allowed to trigger cues
type AttributionMode string

const (
	AttributionAny      AttributionMode = "any"
	AttributionLiveOnly AttributionMode = "live-only"
	AttributionGitOnly  AttributionMode = "git-only"
)

// ParseAttributionMode maps a persisted value to a mode, unknown values fall back to any
func ParseAttributionMode(s string) AttributionMode {
	switch AttributionMode(s) {
	case AttributionLiveOnly:
		return AttributionLiveOnly
	case AttributionGitOnly:
		return AttributionGitOnly
	default:
		return AttributionAny
	}
}

// SoundSetting is the per-role configuration
type SoundSetting struct {
	Enabled bool
	// Volume overrides the master volume when non-nil (0-100)
	Volume *int
	// File is the resolved filename relative to the sounds root (or its defaults folder)
	File string
	// IsDefault marks File as living in the bundled defaults folder
	IsDefault bool
}

// Config is an immutable configuration snapshot
// Components hold a pointer to the current snapshot; changes publish a new one
type Config struct {
	Enabled         bool
	AttributionMode AttributionMode
	AuthorName      string
	Volume          int
	DebounceMs      int
	SoundsDir       string
	Sounds          [core.RoleCount]SoundSetting
}

// settingKeys are the persisted section names per role
var settingKeys = [core.RoleCount]string{
	core.RoleAdd:        "addSound",
	core.RoleRemove:     "removeSound",
	core.RoleDiffOpen:   "diffOpenSound",
	core.RoleDiffActive: "diffActiveSound",
	core.RoleDiffClose:  "diffCloseSound",
}

// defaultRoleVolumes mirrors the documented per-role defaults
var defaultRoleVolumes = [core.RoleCount]int{
	core.RoleAdd:        50,
	core.RoleRemove:     50,
	core.RoleDiffOpen:   100,
	core.RoleDiffActive: 100,
	core.RoleDiffClose:  100,
}

// SettingKey returns the persisted section name for a role (e.g. "addSound")
func SettingKey(r core.Role) string {
	if !r.Valid() {
		return ""
	}
	return settingKeys[r]
}

// DefaultRoleVolume returns the documented default volume for a role
func DefaultRoleVolume(r core.Role) int {
	if !r.Valid() {
		return constant.VolumeMax
	}
	return defaultRoleVolumes[r]
}

// Default returns the configuration used when nothing is persisted
func Default() *Config {
	cfg := &Config{
		Enabled:         true,
		AttributionMode: AttributionAny,
		AuthorName:      DefaultAuthorName(),
		Volume:          constant.VolumeMax,
		DebounceMs:      int(constant.DefaultDebounce / time.Millisecond),
		SoundsDir:       DefaultSoundsDir(),
	}
	for _, r := range core.Roles() {
		vol := defaultRoleVolumes[r]
		cfg.Sounds[r] = SoundSetting{Enabled: true, Volume: &vol}
	}
	return cfg
}

// DefaultAuthorName is the current OS user name, empty if it cannot be determined
func DefaultAuthorName() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// Clone returns a deep copy safe to modify before publishing
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	for i := range out.Sounds {
		if v := c.Sounds[i].Volume; v != nil {
			vol := *v
			out.Sounds[i].Volume = &vol
		}
	}
	return &out
}

// Sound returns the setting for a role, zero value for invalid roles
func (c *Config) Sound(r core.Role) SoundSetting {
	if !r.Valid() {
		return SoundSetting{}
	}
	return c.Sounds[r]
}

// RoleEnabled reports whether the role's own enabled flag is set
func (c *Config) RoleEnabled(r core.Role) bool {
	return c.Sound(r).Enabled
}

// RoleVolume returns the role volume, falling back to master when unset
func (c *Config) RoleVolume(r core.Role) int {
	s := c.Sound(r)
	if s.Volume == nil {
		return ClampVolume(c.Volume)
	}
	return ClampVolume(*s.Volume)
}

// EffectiveVolume is (role/100) * (master/100) as a linear gain
func (c *Config) EffectiveVolume(r core.Role) float64 {
	return float64(c.RoleVolume(r)) / 100.0 * float64(ClampVolume(c.Volume)) / 100.0
}

// Debounce returns the add/remove settling period
func (c *Config) Debounce() time.Duration {
	if c.DebounceMs < 0 {
		return 0
	}
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// Normalize clamps volumes and debounce into their valid ranges in place
// Only call on a snapshot that has not been published yet
func (c *Config) Normalize() {
	c.Volume = ClampVolume(c.Volume)
	if c.DebounceMs < 0 {
		c.DebounceMs = 0
	}
	c.AttributionMode = ParseAttributionMode(string(c.AttributionMode))
	for i := range c.Sounds {
		if v := c.Sounds[i].Volume; v != nil {
			clamped := ClampVolume(*v)
			c.Sounds[i].Volume = &clamped
		}
	}
}

// ClampVolume bounds v to [0,100]
func ClampVolume(v int) int {
	if v < constant.VolumeMin {
		return constant.VolumeMin
	}
	if v > constant.VolumeMax {
		return constant.VolumeMax
	}
	return v
}

// IntPtr is a helper for building SoundSetting literals
func IntPtr(v int) *int {
	return &v
}
