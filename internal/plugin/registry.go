package plugin

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// ErrToolNotFound is returned when a qualified tool name does not resolve.
var ErrToolNotFound = errors.New("tool not found")

// dirExecutables are the file names probed inside a plugin subdirectory,
// after a file named like the directory itself.
var dirExecutables = []string{"cli.py", "cli", "main.py", "main"}

// Target is a resolved (plugin, command) pair for one qualified tool name.
type Target struct {
	Plugin  *Plugin
	Command *Command
}

// Snapshot is an immutable view of the discovered plugin set. It is built
// once per scan and shared by readers without locking.
type Snapshot struct {
	// Plugins is ordered by plugin name.
	Plugins []*Plugin
	tools   map[string]Target
}

// Lookup resolves a qualified tool name against this snapshot.
func (s *Snapshot) Lookup(qualifiedName string) (Target, error) {
	t, ok := s.tools[qualifiedName]
	if !ok {
		return Target{}, ErrToolNotFound
	}
	return t, nil
}

// Tools returns the qualified tool names in this snapshot, sorted.
func (s *Snapshot) Tools() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registry discovers plugins in a directory and publishes the result as an
// atomically replaced snapshot. Readers never observe a partial scan.
type Registry struct {
	dir      string
	logger   hclog.Logger
	snapshot atomic.Pointer[Snapshot]
}

// NewRegistry creates a Registry for the given plugins directory.
func NewRegistry(dir string, logger hclog.Logger) *Registry {
	if logger == nil {
		logger = hclog.Default()
	}
	r := &Registry{dir: dir, logger: logger.Named("registry")}
	r.snapshot.Store(&Snapshot{tools: make(map[string]Target)})
	return r
}

// Scan enumerates the plugins directory, introspects every candidate, and
// atomically replaces the published snapshot. A plugin that fails
// introspection is logged and excluded; the scan continues. A missing
// directory yields an empty snapshot rather than an error.
func (r *Registry) Scan() (*Snapshot, error) {
	candidates, err := r.discover()
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{tools: make(map[string]Target)}
	for _, c := range candidates {
		p, err := Introspect(c.name, c.executable)
		if err != nil {
			r.logger.Warn("excluding plugin", "plugin", c.name, "error", err)
			continue
		}

		// First registered wins. A losing command is removed from the plugin,
		// not just from the lookup map, so the manifest never advertises it.
		kept := make([]Command, 0, len(p.Commands))
		for i := range p.Commands {
			qn := p.QualifiedName(&p.Commands[i])
			if _, exists := snap.tools[qn]; exists {
				r.logger.Warn("dropping duplicate tool", "tool", qn, "executable", p.Executable)
				continue
			}
			kept = append(kept, p.Commands[i])
		}
		if len(kept) == 0 {
			r.logger.Warn("excluding plugin", "plugin", p.Name, "error", "every command shadowed by an earlier plugin")
			continue
		}
		p.Commands = kept

		snap.Plugins = append(snap.Plugins, p)
		for i := range p.Commands {
			cmd := &p.Commands[i]
			snap.tools[p.QualifiedName(cmd)] = Target{Plugin: p, Command: cmd}
		}
	}

	r.snapshot.Store(snap)
	r.logger.Info("scan complete", "plugins", len(snap.Plugins), "tools", len(snap.tools))
	return snap, nil
}

// Current returns the most recently published snapshot.
func (r *Registry) Current() *Snapshot {
	return r.snapshot.Load()
}

// Lookup resolves a qualified tool name against the current snapshot.
func (r *Registry) Lookup(qualifiedName string) (Target, error) {
	return r.Current().Lookup(qualifiedName)
}

// Count returns the number of plugins in the current snapshot.
func (r *Registry) Count() int {
	return len(r.Current().Plugins)
}

// Dir returns the plugins directory path.
func (r *Registry) Dir() string {
	return r.dir
}

type candidate struct {
	name       string
	executable string
}

// discover lists plugin candidates in the directory: executable files
// (name = file stem) and subdirectories holding a known executable
// (name = directory name). Results are sorted by name so duplicate
// resolution is deterministic.
func (r *Registry) discover() ([]candidate, error) {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, nil
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for _, entry := range entries {
		path := filepath.Join(r.dir, entry.Name())

		if entry.IsDir() {
			exe := findDirExecutable(path, entry.Name())
			if exe == "" {
				continue
			}
			candidates = append(candidates, candidate{name: entry.Name(), executable: exe})
			continue
		}

		fi, err := entry.Info()
		if err != nil || fi.Mode().Perm()&0o111 == 0 {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		candidates = append(candidates, candidate{name: name, executable: path})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].name < candidates[j].name })
	return candidates, nil
}

// findDirExecutable locates the entry point inside a plugin subdirectory.
func findDirExecutable(dir, dirName string) string {
	names := append([]string{dirName}, dirExecutables...)
	for _, n := range names {
		path := filepath.Join(dir, n)
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() && fi.Mode().Perm()&0o111 != 0 {
			return path
		}
	}
	return ""
}
