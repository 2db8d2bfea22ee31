package jmp

import (
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheFileName = "jmp_cache.gob"

type cacheEntry struct {
	InputHash  string
	ConfigHash string
	Output     string
	ExpandedAt time.Time
}

// Cache remembers the inputs a batch has already expanded, so that a later
// batch can skip the files whose content and configuration did not change
// and whose output is still in place.
type Cache struct {
	Dir     string
	entries map[string]cacheEntry
	mutex   sync.Mutex
}

// OpenCache loads the cache stored in dir, creating dir if needed.
func OpenCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache := &Cache{
		Dir:     dir,
		entries: make(map[string]cacheEntry),
	}
	if err := cache.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return cache, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.Dir, cacheFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(&c.entries); err != nil {
		return fmt.Errorf("failed to decode cache file: %w", err)
	}
	return nil
}

// Save writes the cache to its directory.
func (c *Cache) Save() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	file, err := os.Create(filepath.Join(c.Dir, cacheFileName))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Lookup returns the output recorded for path when it was produced from
// the same input and configuration and still exists.
func (c *Cache) Lookup(path, inputHash, configHash string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[path]
	if !ok {
		return "", false
	}
	if entry.InputHash != inputHash || entry.ConfigHash != configHash {
		delete(c.entries, path)
		return "", false
	}
	if _, err := os.Stat(entry.Output); err != nil {
		delete(c.entries, path)
		return "", false
	}
	return entry.Output, true
}

// Store records that path was expanded into output.
func (c *Cache) Store(path, inputHash, configHash, output string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[path] = cacheEntry{
		InputHash:  inputHash,
		ConfigHash: configHash,
		Output:     output,
		ExpandedAt: time.Now(),
	}
}

// Len returns the number of recorded inputs.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// InvalidateAll forgets every entry.
func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mutex.Unlock()
	return c.Save()
}

// ConfigHash identifies a configuration for the cache. Two configurations
// with the same hash expand every input the same way.
func ConfigHash(config Config) string {
	config.Name = ""
	d, err := yaml.Marshal(config)
	if err != nil {
		// Config holds only strings, bools and ints
		panic(err)
	}
	return hashOf(d)
}

func hashOf(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}
