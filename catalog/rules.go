package catalog

import (
	"path/filepath"
	"strings"

	"github.com/lixenwraith/diffsound/core"
)

// AudioExtensions lists the recognised sound file extensions, without dot
var AudioExtensions = []string{"wav", "mp3", "ogg", "m4a", "aac", "flac"}

// rule maps a filename predicate to a role; rules are evaluated top to bottom, first match wins
type rule struct {
	role  core.Role
	match func(stem, compact string) bool
}

// rules are ordered: diff lifecycle variants before the generic add/remove keywords
// so "diff-open-add.wav" classifies as diffopen, not add
var rules = []rule{
	{core.RoleDiffOpen, containsAny("diffopen", "opendiff")},
	{core.RoleDiffActive, containsAny("diffactive", "activediff", "diffloop")},
	{core.RoleDiffClose, containsAny("diffclose", "closediff")},
	{core.RoleAdd, stemContainsAny("add", "insert", "create", "plus")},
	{core.RoleRemove, stemContainsAny("remove", "delete", "cut", "minus")},
}

// containsAny matches against the compact stem (lowercase, separators stripped) so
// diff-open, diff_open and "Diff Open" all match "diffopen"
func containsAny(keywords ...string) func(stem, compact string) bool {
	return func(_, compact string) bool {
		for _, k := range keywords {
			if strings.Contains(compact, k) {
				return true
			}
		}
		return false
	}
}

// stemContainsAny matches against the lowercase stem
func stemContainsAny(keywords ...string) func(stem, compact string) bool {
	return func(stem, _ string) bool {
		for _, k := range keywords {
			if strings.Contains(stem, k) {
				return true
			}
		}
		return false
	}
}

// Classify returns the role for a filename, or core.RoleCount when nothing matches
// Matching is case-insensitive on the base name without extension
func Classify(name string) core.Role {
	stem := Stem(name)
	compact := compactStem(stem)
	for _, r := range rules {
		if r.match(stem, compact) {
			return r.role
		}
	}
	return core.RoleCount
}

// Stem returns the lowercase base filename without extension
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base)))
}

func compactStem(stem string) string {
	var b strings.Builder
	b.Grow(len(stem))
	for _, r := range stem {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Format returns the lowercase extension without dot
func Format(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsAudioFile reports whether name has a recognised audio extension
func IsAudioFile(name string) bool {
	ext := Format(name)
	for _, e := range AudioExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
