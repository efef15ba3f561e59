package catalog

import "github.com/lixenwraith/diffsound/core"

// formatPreference is the tie-break order after an exact-name match
var formatPreference = []string{"wav", "mp3"}

// FindBestMatch picks the file for a role from a detected set
// Preference: stem equal to the role id, then first wav, then first mp3, then first remaining
func FindBestMatch(detected []DetectedSoundFile, role core.Role) (DetectedSoundFile, bool) {
	var candidates []DetectedSoundFile
	for _, d := range detected {
		if d.Role == role {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return DetectedSoundFile{}, false
	}

	for _, d := range candidates {
		if Stem(d.Name) == role.String() {
			return d, true
		}
	}
	for _, format := range formatPreference {
		for _, d := range candidates {
			if d.Format == format {
				return d, true
			}
		}
	}
	return candidates[0], true
}
