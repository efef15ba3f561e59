package core

import "strings"

// Role identifies one of the five logical sound cues
type Role int

const (
	RoleAdd        Role = iota // Inserted text
	RoleRemove                 // Deleted text
	RoleDiffOpen               // First comparison view appeared
	RoleDiffActive             // Loop while any comparison view is open
	RoleDiffClose              // Last comparison view went away
	RoleCount
)

var roleNames = [RoleCount]string{
	RoleAdd:        "add",
	RoleRemove:     "remove",
	RoleDiffOpen:   "diffopen",
	RoleDiffActive: "diffactive",
	RoleDiffClose:  "diffclose",
}

// Roles returns all roles in declaration order
func Roles() []Role {
	return []Role{RoleAdd, RoleRemove, RoleDiffOpen, RoleDiffActive, RoleDiffClose}
}

// String returns the canonical role id, also used as the exact-match filename stem
func (r Role) String() string {
	if r < 0 || r >= RoleCount {
		return "none"
	}
	return roleNames[r]
}

// Valid reports whether r is one of the five cue roles
func (r Role) Valid() bool {
	return r >= 0 && r < RoleCount
}

// ParseRole accepts canonical ids and the hyphenated/underscored variants (diff-open, diff_open)
func ParseRole(s string) (Role, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "", "_", "", " ", "").Replace(key)
	for i, name := range roleNames {
		if name == key {
			return Role(i), true
		}
	}
	return RoleCount, false
}

// Direction is the edit axis of a classified change
type Direction int

const (
	DirectionAdd Direction = iota
	DirectionRemove
	DirectionCount
)

// Role maps an edit direction to the cue it triggers
func (d Direction) Role() Role {
	if d == DirectionRemove {
		return RoleRemove
	}
	return RoleAdd
}

func (d Direction) String() string {
	if d == DirectionRemove {
		return "remove"
	}
	return "add"
}
