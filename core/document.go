package core

// DocumentID is the host's identity for an open text document (typically a URI)
type DocumentID string

// Tab describes an editor tab as reported by the host
// A tab is a comparison view iff both Original and Modified are set
type Tab struct {
	Label    string     `yaml:"label"`
	Original DocumentID `yaml:"original"`
	Modified DocumentID `yaml:"modified"`
}

// IsDiff reports whether the tab is a comparison view
func (t Tab) IsDiff() bool {
	return t.Original != "" && t.Modified != ""
}

// References reports whether doc is either side of the comparison
func (t Tab) References(doc DocumentID) bool {
	if doc == "" {
		return false
	}
	return t.Original == doc || t.Modified == doc
}

// Key identifies a comparison tab for open/close matching
func (t Tab) Key() string {
	return string(t.Original) + "\x00" + string(t.Modified)
}

// Change is one discrete content-range change of a document-change notification
type Change struct {
	RangeLength int `yaml:"rangeLength"` // Length of the replaced range
	TextLength  int `yaml:"textLength"`  // Length of the inserted text
}

// Direction classifies the change: insertions and growing replacements are adds,
// deletions and shrinking replacements are removes. Equal-length replacements report false
func (c Change) Direction() (Direction, bool) {
	switch {
	case c.TextLength > c.RangeLength:
		return DirectionAdd, true
	case c.TextLength < c.RangeLength:
		return DirectionRemove, true
	default:
		return DirectionCount, false
	}
}
