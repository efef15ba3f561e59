package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lixenwraith/diffsound/core"
)

// EnvPrefix is prepended to upper-cased keys for environment overrides (DIFFSOUND_VOLUME, DIFFSOUND_ADDSOUND_ENABLED)
const EnvPrefix = "DIFFSOUND"

// Legacy flat keys; presence of either marks the old configuration shape
const (
	legacyAddPathKey    = "addSoundPath"
	legacyRemovePathKey = "removeSoundPath"
)

// Store reads and writes the persisted settings file
// Every Load builds a fresh viper instance so readers never observe a half-applied reload
type Store struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
}

// NewStore creates a store for the given settings file; empty path uses DefaultConfigPath
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultConfigPath()
	}
	return &Store{
		path: path,
		log:  slog.Default().With("component", "config"),
	}
}

// Path returns the settings file location
func (s *Store) Path() string {
	return s.path
}

func (s *Store) newViper(withDefaults bool) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(s.path)
	if filepath.Ext(s.path) == "" {
		v.SetConfigType("yaml")
	}
	if withDefaults {
		v.SetEnvPrefix(EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
		setDefaults(v)
	}
	return v
}

func setDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("enabled", def.Enabled)
	v.SetDefault("attributionMode", string(def.AttributionMode))
	v.SetDefault("authorName", def.AuthorName)
	v.SetDefault("volume", def.Volume)
	v.SetDefault("debounceMs", def.DebounceMs)
	v.SetDefault("soundsDir", def.SoundsDir)
	for _, r := range core.Roles() {
		// Role volume has no viper default so an absent key stays distinguishable
		v.SetDefault(settingKeys[r]+".enabled", true)
		v.SetDefault(settingKeys[r]+".file", "")
	}
}

func (s *Store) exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads the settings file into a new snapshot
// A missing file yields defaults; a legacy file is migrated in memory
func (s *Store) Load() (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := s.newViper(true)
	if s.exists() {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", s.path, err)
		}
	}

	cfg := decode(v)
	if IsLegacy(v) {
		s.log.Info("legacy settings shape detected, using auto-detected sounds", "path", s.path)
	}
	return cfg, nil
}

// IsLegacy reports whether the flat addSoundPath/removeSoundPath keys are present
func IsLegacy(v *viper.Viper) bool {
	return v.IsSet(legacyAddPathKey) || v.IsSet(legacyRemovePathKey)
}

func decode(v *viper.Viper) *Config {
	cfg := &Config{
		Enabled:         v.GetBool("enabled"),
		AttributionMode: ParseAttributionMode(v.GetString("attributionMode")),
		AuthorName:      v.GetString("authorName"),
		Volume:          v.GetInt("volume"),
		DebounceMs:      v.GetInt("debounceMs"),
		SoundsDir:       expandHome(v.GetString("soundsDir")),
	}

	legacy := IsLegacy(v)
	for _, r := range core.Roles() {
		key := settingKeys[r]
		setting := SoundSetting{Enabled: v.GetBool(key + ".enabled")}
		switch {
		case legacy:
			// Explicit paths are discarded; every role enabled, volume follows master
			setting.Enabled = true
		case v.IsSet(key + ".volume"):
			setting.Volume = IntPtr(v.GetInt(key + ".volume"))
		default:
			setting.Volume = IntPtr(defaultRoleVolumes[r])
		}
		if !legacy {
			setting.File = v.GetString(key + ".file")
		}
		cfg.Sounds[r] = setting
	}

	cfg.Normalize()
	return cfg
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// Watch invokes onChange after every write to the settings file
// The file is created with defaults first because the watcher needs an existing target
// The callback carries no diff; callers re-read through Load
func (s *Store) Watch(onChange func()) error {
	if !s.exists() {
		if err := s.writeDefaults(); err != nil {
			return err
		}
	}

	v := s.newViper(false)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read settings %s: %w", s.path, err)
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		s.log.Debug("settings file changed", "path", e.Name, "op", e.Op.String())
		onChange()
	})
	v.WatchConfig()
	return nil
}

// SetEnabled persists the master enabled flag
func (s *Store) SetEnabled(enabled bool) error {
	return s.SetValue("enabled", enabled)
}

// SetValue persists a single dotted key (e.g. "diffActiveSound.volume"), preserving everything else
func (s *Store) SetValue(key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readDocument()
	if err != nil {
		return err
	}
	setNested(doc, strings.Split(key, "."), value)
	return s.writeDocument(doc)
}

// Migrate rewrites a legacy settings file into the structured shape
// Returns false when the file is already structured or absent
func (s *Store) Migrate() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.exists() {
		return false, nil
	}
	doc, err := s.readDocument()
	if err != nil {
		return false, err
	}

	migrated := false
	for k := range doc {
		if strings.EqualFold(k, legacyAddPathKey) || strings.EqualFold(k, legacyRemovePathKey) {
			delete(doc, k)
			migrated = true
		}
	}
	if !migrated {
		return false, nil
	}

	for _, r := range core.Roles() {
		setNested(doc, []string{settingKeys[r], "enabled"}, true)
	}
	if err := s.writeDocument(doc); err != nil {
		return false, err
	}
	s.log.Info("migrated legacy settings", "path", s.path)
	return true, nil
}

func (s *Store) writeDefaults() error {
	def := Default()
	doc := map[string]any{
		"enabled":         def.Enabled,
		"attributionMode": string(def.AttributionMode),
		"volume":          def.Volume,
		"debounceMs":      def.DebounceMs,
	}
	for _, r := range core.Roles() {
		doc[settingKeys[r]] = map[string]any{
			"enabled": true,
			"volume":  defaultRoleVolumes[r],
		}
	}
	return s.writeDocument(doc)
}

func (s *Store) isYAML() bool {
	switch strings.ToLower(filepath.Ext(s.path)) {
	case ".yaml", ".yml", "":
		return true
	}
	return false
}

// readDocument returns the raw key tree of the settings file, empty if absent
func (s *Store) readDocument() (map[string]any, error) {
	if !s.isYAML() {
		if !s.exists() {
			return map[string]any{}, nil
		}
		v := s.newViper(false)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", s.path, err)
		}
		return v.AllSettings(), nil
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", s.path, err)
	}

	doc := map[string]any{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

// writeDocument replaces the settings file via temp file + rename
func (s *Store) writeDocument(doc map[string]any) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	if !s.isYAML() {
		v := viper.New()
		if err := v.MergeConfigMap(doc); err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		if err := v.WriteConfigAs(s.path); err != nil {
			return fmt.Errorf("write settings %s: %w", s.path, err)
		}
		return nil
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".diffsound-*.yaml")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// setNested assigns value at path, matching existing keys case-insensitively
func setNested(doc map[string]any, path []string, value any) {
	if len(path) == 0 {
		return
	}
	key := matchKey(doc, path[0])
	if len(path) == 1 {
		doc[key] = value
		return
	}

	child, ok := doc[key].(map[string]any)
	if !ok {
		child = map[string]any{}
		doc[key] = child
	}
	setNested(child, path[1:], value)
}

func matchKey(doc map[string]any, key string) string {
	for k := range doc {
		if strings.EqualFold(k, key) {
			return k
		}
	}
	return key
}
