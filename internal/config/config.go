// Package config loads monkey.toml project manifests.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"monkey/internal/vm"
)

const FileName = "monkey.toml"

type Manifest struct {
	Project Project `toml:"project"`
	VM      VM      `toml:"vm"`
	Log     Log     `toml:"log"`
	Build   Build   `toml:"build"`

	// Dir is the absolute directory holding monkey.toml, set at load time.
	Dir string `toml:"-"`
}

type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

type VM struct {
	StackSize   int   `toml:"stack_size"`
	MaxFrames   int   `toml:"max_frames"`
	GlobalsSize int   `toml:"globals_size"`
	MaxMemory   int64 `toml:"max_memory"`
	Trace       bool  `toml:"trace"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

type Build struct {
	Output string `toml:"output"`
}

// Default is the manifest used when a project has no monkey.toml.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// Load parses monkey.toml from dir. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.applyDefaults()
	return &m, nil
}

// FindAndLoad walks up from startDir to the nearest monkey.toml. It
// returns nil, nil when there is none.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) validate() error {
	switch {
	case m.VM.StackSize < 0:
		return fmt.Errorf("vm.stack_size must not be negative")
	case m.VM.MaxFrames < 0:
		return fmt.Errorf("vm.max_frames must not be negative")
	case m.VM.GlobalsSize < 0:
		return fmt.Errorf("vm.globals_size must not be negative")
	case m.VM.MaxMemory < 0:
		return fmt.Errorf("vm.max_memory must not be negative")
	}
	return nil
}

func (m *Manifest) applyDefaults() {
	if m.Project.Entry == "" {
		m.Project.Entry = "main.mk"
	}
	if m.VM.StackSize == 0 {
		m.VM.StackSize = vm.StackSize
	}
	if m.VM.MaxFrames == 0 {
		m.VM.MaxFrames = vm.MaxFrames
	}
	if m.VM.GlobalsSize == 0 {
		m.VM.GlobalsSize = vm.GlobalsSize
	}
	if m.Build.Output == "" {
		m.Build.Output = "out.mkc"
	}
}

func (m *Manifest) VMOptions() vm.Options {
	return vm.Options{
		StackSize:   m.VM.StackSize,
		MaxFrames:   m.VM.MaxFrames,
		GlobalsSize: m.VM.GlobalsSize,
		MaxMemory:   m.VM.MaxMemory,
		Trace:       m.VM.Trace,
	}
}

// EntryPath is the entry file resolved against the manifest directory.
func (m *Manifest) EntryPath() string {
	if filepath.IsAbs(m.Project.Entry) {
		return m.Project.Entry
	}
	return filepath.Join(m.Dir, m.Project.Entry)
}

// LogFile returns the configured log path, or nil for stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Log.File
	if !filepath.IsAbs(path) && m.Dir != "" {
		path = filepath.Join(m.Dir, path)
	}
	return &path
}
