package filewalker

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Manifest is the files.json index mapping output file names to their
// paths inside the extracted game archive, e.g.
// {"files": {"E0000.msg": "M003F.bin$/7.efb$/msg.txt"}}.
type Manifest struct {
	Files map[string]string `json:"files"`
}

// LoadManifest reads a files.json manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	if m.Files == nil {
		m.Files = make(map[string]string)
	}
	return &m, nil
}

// Names returns the manifest's file names in sorted order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Files))
	for name := range m.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MsgNames maps each bundle key to its .msg output file name.
func (m *Manifest) MsgNames() map[string]string {
	return m.byExt(".msg", func(name, _ string) string { return name })
}

// Scripts maps each bundle key to the archive path of its companion
// .script file.
func (m *Manifest) Scripts() map[string]string {
	return m.byExt(".script", func(_, path string) string { return path })
}

func (m *Manifest) byExt(ext string, value func(name, path string) string) map[string]string {
	out := make(map[string]string)
	for name, path := range m.Files {
		if key, ok := strings.CutSuffix(name, ext); ok {
			out[key] = value(name, path)
		}
	}
	return out
}
