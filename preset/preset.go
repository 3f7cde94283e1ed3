// Package preset holds named waveform descriptions that can be sent to the
// device as-is. Waveform strings are opaque: they are never parsed here.
package preset

import "sync"

// Catalog maps human-readable names to waveform strings and remembers
// insertion order. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	waves map[string]string
	names []string
}

// Entry is one named waveform.
type Entry struct {
	Name string
	Wave string
}

// NewCatalog returns a catalog holding entries in the given order. Later
// duplicates replace earlier waveforms but keep the first position.
func NewCatalog(entries ...Entry) *Catalog {
	c := &Catalog{waves: make(map[string]string, len(entries))}
	for _, e := range entries {
		c.Register(e.Name, e.Wave)
	}

	return c
}

// Default returns a new catalog filled with the built-in presets.
func Default() *Catalog {
	return NewCatalog(builtin...)
}

// Register adds or replaces the waveform for name.
//
// Parameters:
//   - name: Preset name
//   - wave: Waveform description sent verbatim to the device
func (c *Catalog) Register(name, wave string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.waves[name]; !ok {
		c.names = append(c.names, name)
	}
	c.waves[name] = wave
}

// Lookup returns the waveform registered under name.
//
// Returns:
//   - The waveform, and true if name is registered
func (c *Catalog) Lookup(name string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	wave, ok := c.waves[name]
	return wave, ok
}

// Names returns the preset names in registration order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.names...)
}

// Entries returns every preset in registration order.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, Entry{Name: n, Wave: c.waves[n]})
	}

	return out
}

// Len returns the number of presets.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
