// Package catalog resolves the five cue roles to sound files on disk
//
// Layout:
//
//	<root>/            user-supplied files, always preferred
//	<root>/defaults/   bundled defaults, used per role only when no user file matches
package catalog

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lixenwraith/diffsound/config"
	"github.com/lixenwraith/diffsound/constant"
	"github.com/lixenwraith/diffsound/core"
)

// Origin tags where a detected file came from
type Origin int

const (
	OriginUser Origin = iota
	OriginDefault
)

func (o Origin) String() string {
	if o == OriginDefault {
		return "default"
	}
	return "user"
}

// DetectedSoundFile is one classified audio file
type DetectedSoundFile struct {
	Name   string // Base filename
	Path   string // Absolute path
	Role   core.Role
	Format string // Extension without dot
	Origin Origin
}

// ErrNoDefaults is returned by RestoreDefaults when there is nothing to restore
var ErrNoDefaults = errors.New("no default sounds available")

// Seeder writes bundled default sounds into dir
type Seeder func(dir string) error

// Catalog scans a sounds root and holds the last detected set
type Catalog struct {
	root string
	log  *slog.Logger

	mu       sync.RWMutex
	detected []DetectedSoundFile
}

// New creates a catalog rooted at dir; nothing touches the disk until Scan
func New(root string) *Catalog {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Catalog{
		root: root,
		log:  slog.Default().With("component", "catalog"),
	}
}

// Root returns the user sounds directory
func (c *Catalog) Root() string {
	return c.root
}

// DefaultsDir returns the bundled defaults directory
func (c *Catalog) DefaultsDir() string {
	return filepath.Join(c.root, constant.DefaultsDirName)
}

// Detected returns the result of the last Scan
func (c *Catalog) Detected() []DetectedSoundFile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DetectedSoundFile, len(c.detected))
	copy(out, c.detected)
	return out
}

// Scan rebuilds the detected set from disk and swaps it in
// Both directories are created when missing; unreadable entries are skipped
func (c *Catalog) Scan() ([]DetectedSoundFile, error) {
	if err := c.ensureDirs(); err != nil {
		return nil, err
	}

	userNames, err := listFiles(c.root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.root, err)
	}
	defaultNames, err := listFiles(c.DefaultsDir())
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.DefaultsDir(), err)
	}

	detected := classifyEntries(c.root, userNames, OriginUser, nil)

	var satisfied [core.RoleCount]bool
	for _, d := range detected {
		satisfied[d.Role] = true
	}
	detected = append(detected, classifyEntries(c.DefaultsDir(), defaultNames, OriginDefault, &satisfied)...)

	c.mu.Lock()
	c.detected = detected
	c.mu.Unlock()

	c.log.Debug("scan complete", "root", c.root, "user", len(userNames), "defaults", len(defaultNames), "detected", len(detected))
	for _, d := range detected {
		c.log.Debug("detected sound", "role", d.Role.String(), "file", d.Name, "origin", d.Origin.String())
	}
	return detected, nil
}

func (c *Catalog) ensureDirs() error {
	for _, dir := range []string{c.root, c.DefaultsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// listFiles returns regular file names in dir, sorted
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// classifyEntries turns an injected listing into detected files
// Roles marked in skip are left out entirely (user files beat defaults per role)
func classifyEntries(dir string, names []string, origin Origin, skip *[core.RoleCount]bool) []DetectedSoundFile {
	var out []DetectedSoundFile
	for _, name := range names {
		if !IsAudioFile(name) {
			continue
		}
		role := Classify(name)
		if !role.Valid() {
			continue
		}
		if skip != nil && skip[role] {
			continue
		}
		out = append(out, DetectedSoundFile{
			Name:   name,
			Path:   filepath.Join(dir, name),
			Role:   role,
			Format: Format(name),
			Origin: origin,
		})
	}
	return out
}

// ResolvePath joins root, the defaults folder when IsDefault, and the filename
func (c *Catalog) ResolvePath(s config.SoundSetting) string {
	if s.File == "" {
		return ""
	}
	if s.IsDefault {
		return filepath.Join(c.DefaultsDir(), s.File)
	}
	return filepath.Join(c.root, s.File)
}

// Resolve returns a copy of cfg with every role's File/IsDefault filled from detected
// A file pinned in settings wins while it still exists
func (c *Catalog) Resolve(cfg *config.Config, detected []DetectedSoundFile) *config.Config {
	out := cfg.Clone()
	for _, r := range core.Roles() {
		s := &out.Sounds[r]
		if s.File != "" {
			if _, err := os.Stat(c.ResolvePath(*s)); err == nil {
				continue
			}
			c.log.Warn("configured sound file missing, falling back to detection", "role", r.String(), "file", s.File)
		}

		best, ok := FindBestMatch(detected, r)
		if !ok {
			s.File, s.IsDefault = "", false
			continue
		}
		s.File = best.Name
		s.IsDefault = best.Origin == OriginDefault
	}
	return out
}

// EnsureDefaults seeds the defaults folder when it holds no audio files
func (c *Catalog) EnsureDefaults(seed Seeder) error {
	if err := c.ensureDirs(); err != nil {
		return err
	}
	names, err := listFiles(c.DefaultsDir())
	if err != nil {
		return fmt.Errorf("scan %s: %w", c.DefaultsDir(), err)
	}
	for _, n := range names {
		if IsAudioFile(n) {
			return nil
		}
	}
	if seed == nil {
		return nil
	}
	if err := seed(c.DefaultsDir()); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	c.log.Info("seeded default sounds", "dir", c.DefaultsDir())
	return nil
}

// RestoreDefaults copies every non-README file from defaults into root, overwriting
// This is the one catalog operation whose failures propagate to the caller
func (c *Catalog) RestoreDefaults() (int, error) {
	entries, err := os.ReadDir(c.DefaultsDir())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("%w: %s missing", ErrNoDefaults, c.DefaultsDir())
		}
		return 0, fmt.Errorf("read defaults: %w", err)
	}

	copied := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(Stem(e.Name()), constant.ReadmeStem) {
			continue
		}
		src := filepath.Join(c.DefaultsDir(), e.Name())
		dst := filepath.Join(c.root, e.Name())
		if err := copyFile(src, dst); err != nil {
			return copied, fmt.Errorf("restore %s: %w", e.Name(), err)
		}
		copied++
	}
	if copied == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrNoDefaults, c.DefaultsDir())
	}

	c.log.Info("restored default sounds", "count", copied, "root", c.root)
	return copied, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
