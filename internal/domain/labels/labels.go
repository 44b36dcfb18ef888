// Package labels maps encoded identifiers to human-readable labels.
package labels

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dictionary is a static id -> label table.
type Dictionary map[string]string

// File is the on-disk layout of the labels file.
type File struct {
	Skills      Dictionary `yaml:"skills"`
	Cities      Dictionary `yaml:"cities"`
	Professions Dictionary `yaml:"professions"`
}

// Load reads a labels file. An empty path yields empty dictionaries.
func Load(path string) (File, error) {
	if path == "" {
		return File{}, nil
	}
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return File{}, fmt.Errorf("read labels %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse labels %s: %w", path, err)
	}
	return f, nil
}

// Label returns the label for id, or id itself when unknown.
func (d Dictionary) Label(id string) string {
	id = strings.TrimSpace(id)
	if l, ok := d[id]; ok && l != "" {
		return l
	}
	return id
}

// MapList maps a comma separated id list to labels. Blank tokens are dropped.
func (d Dictionary) MapList(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if l := d.Label(p); l != "" {
			out = append(out, l)
		}
	}
	return out
}
