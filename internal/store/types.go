// Package store is the registry of locally installed Godot versions.
//
// Each installation lives in data_root/<identifier>-<flavor>/ together with
// a .govem.json metadata file. data_root/registry.json indexes them, but
// the directories are the source of truth: every load drops index entries
// whose directory or executable is gone and adopts directories with valid
// metadata that the index lacks.
//
// The store is the only writer under data_root. It hands out staging
// directories, promotes them with a rename, and removes installations by
// renaming them to trash first.
package store

import (
	"errors"
	"path/filepath"
	"time"
)

var (
	ErrAlreadyInstalled = errors.New("version already installed")
	ErrNotInstalled     = errors.New("version not installed")
	ErrInvalidKey       = errors.New("invalid version key")
)

// Source kinds recorded in metadata.
const (
	SourceRelease = "release"
	SourceURL     = "url"
	SourceLocal   = "local"
)

// Metadata is the content of .govem.json. It is written into staging, so
// it is promoted atomically with the tree it describes.
type Metadata struct {
	ID     string `json:"id"`
	Flavor string `json:"flavor"`

	// Executable is relative to the install directory.
	Executable    string    `json:"executable"`
	SelfContained bool      `json:"self_contained"`
	SourceKind    string    `json:"source_kind"`
	Source        string    `json:"source"`
	InstallID     string    `json:"install_id"`
	InstalledAt   time.Time `json:"installed_at"`
}

// Key returns the installation key the metadata describes.
func (m *Metadata) Key() Key {
	return Key{ID: m.ID, Flavor: m.Flavor}
}

// InstalledVersion is a registered installation.
type InstalledVersion struct {
	Key           Key
	Dir           string
	Executable    string
	SelfContained bool
	Meta          Metadata
}

func newInstalledVersion(dir string, m Metadata) InstalledVersion {
	return InstalledVersion{
		Key:           m.Key(),
		Dir:           dir,
		Executable:    filepath.Join(dir, m.Executable),
		SelfContained: m.SelfContained,
		Meta:          m,
	}
}
