package settings

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sondrake/playfeed/internal/shared"
)

// TemplateFileName is the reserved skeleton file inside a config directory.
// It seeds new settings documents and is never treated as an auto-adder.
const TemplateFileName = "template.json"

//go:embed template.json
var embeddedTemplate []byte

// Load reads and validates a settings document from path.
//
// A missing, unparsable, or schema-invalid file fails with
// shared.ErrMalformedConfig; other files are unaffected.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrMalformedConfig, path, err)
	}

	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrMalformedConfig, path, err)
	}

	if s.Channels == nil {
		s.Channels = make(map[string]*ChannelEntry)
	}
	if s.Playlists == nil {
		s.Playlists = make(map[string]*PlaylistEntry)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return &s, nil
}

// Save serializes the document and atomically replaces the file at path.
// On failure the previous version is left intact.
func Save(path string, s *Settings) error {
	writer, err := newAtomicWriter(path)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "    ")
	if err := encoder.Encode(s); err != nil {
		writer.Abort()
		return fmt.Errorf("save settings: %w", err)
	}

	if err := writer.Commit(); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return nil
}

// Create seeds a new settings document at path from the config directory's
// template.json, falling back to the embedded skeleton. Fails with
// shared.ErrAlreadyExists when path already exists.
func Create(path, name, targetPlaylistID string, selector Selector) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", shared.ErrAlreadyExists, path)
	}

	s, err := loadTemplate(filepath.Dir(path))
	if err != nil {
		return err
	}

	s.Global.Name = name
	s.Global.TargetPlaylistID = targetPlaylistID
	s.Global.Selector = selector

	if err := s.Validate(); err != nil {
		return err
	}

	return Save(path, s)
}

// ListConfigs enumerates the settings files in dir, skipping the reserved
// template.json and anything that isn't a JSON document.
func ListConfigs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read config directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if name == TemplateFileName || !strings.HasSuffix(name, ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}

	sort.Strings(files)
	return files, nil
}

// WriteTemplate writes the embedded skeleton as dir's template.json unless
// one already exists.
func WriteTemplate(dir string) error {
	path := filepath.Join(dir, TemplateFileName)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, embeddedTemplate, 0644)
}

func loadTemplate(dir string) (*Settings, error) {
	path := filepath.Join(dir, TemplateFileName)
	if _, err := os.Stat(path); err == nil {
		var s Settings
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrMalformedConfig, path, err)
		}
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", shared.ErrMalformedConfig, path, err)
		}
		if s.Channels == nil {
			s.Channels = make(map[string]*ChannelEntry)
		}
		if s.Playlists == nil {
			s.Playlists = make(map[string]*PlaylistEntry)
		}
		return &s, nil
	}

	var s Settings
	if err := json.Unmarshal(embeddedTemplate, &s); err != nil {
		panic(fmt.Sprintf("failed to parse embedded template: %v", err))
	}
	s.Channels = make(map[string]*ChannelEntry)
	s.Playlists = make(map[string]*PlaylistEntry)
	return &s, nil
}
