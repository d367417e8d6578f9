package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/govem/internal/atomicfile"
)

// MetadataFile is the per-installation metadata file name.
const MetadataFile = ".govem.json"

// ReadMetadata loads dir/.govem.json.
func ReadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, err
	}

	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteMetadata writes dir/.govem.json.
func WriteMetadata(dir string, m *Metadata) error {
	if err := m.validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := atomicfile.Write(filepath.Join(dir, MetadataFile), data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

func (m *Metadata) validate() error {
	if err := m.Key().Validate(); err != nil {
		return err
	}
	exe := filepath.Clean(m.Executable)
	if m.Executable == "" || filepath.IsAbs(exe) || exe == "." || exe == ".." || strings.HasPrefix(exe, ".."+string(filepath.Separator)) {
		return fmt.Errorf("invalid executable path in metadata: %q", m.Executable)
	}
	return nil
}
