package cache

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Purposes of cached calls.
const (
	PurposeAdvice = "advice"
	PurposePlan   = "plan"
)

// Key identifies one cached model answer.
type Key struct {
	Purpose  string
	Provider string
	Model    string
	Input    string
}

// Hash returns the hex SHA-256 of the key material.
func (k Key) Hash() string {
	return HashKey(fmt.Sprintf("%s\x00%s\x00%s\x00%s", k.Purpose, k.Provider, k.Model, k.Input))
}

// Entry is the on-disk form of one cached answer.
type Entry struct {
	Key       string    `json:"key"`
	Purpose   string    `json:"purpose"`
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}

// Cache provides file-based caching for model answers. A disabled cache
// misses on every read and drops every write.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

// New creates a new Cache. If dir is empty, uses the default cache directory.
// A non-positive ttlSeconds keeps entries forever.
func New(enabled bool, dir string, ttlSeconds int) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false, now: time.Now}, nil
	}
	if dir == "" {
		d, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlSeconds) * time.Second,
		enabled: true,
		now:     time.Now,
	}, nil
}

// Get returns the cached answer for k. Returns ("", false) on miss.
func (c *Cache) Get(k Key) (string, bool) {
	if !c.enabled {
		return "", false
	}
	entry, err := c.read(c.entryPath(k.Hash()))
	if err != nil || c.expired(entry) {
		return "", false
	}
	return entry.Response, true
}

// Put stores an answer for k.
func (c *Cache) Put(k Key, response string) error {
	if !c.enabled {
		return nil
	}
	entry := Entry{
		Key:       k.Hash(),
		Purpose:   k.Purpose,
		Provider:  k.Provider,
		Model:     k.Model,
		Response:  response,
		CreatedAt: c.now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling cache entry: %w", err)
	}
	tmp, err := os.CreateTemp(c.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return os.Rename(tmp.Name(), c.entryPath(entry.Key))
}

// Clear removes all cache entries and returns how many were removed.
func (c *Cache) Clear() (int, error) {
	return c.remove(func(Entry, error) bool { return true })
}

// Prune removes expired or unreadable entries.
func (c *Cache) Prune() (int, error) {
	return c.remove(func(e Entry, err error) bool { return err != nil || c.expired(e) })
}

func (c *Cache) remove(match func(Entry, error) bool) (int, error) {
	if !c.enabled || c.dir == "" {
		return 0, nil
	}
	paths, err := c.entryPaths()
	if err != nil {
		return 0, err
	}
	var removed int
	for _, p := range paths {
		entry, err := c.read(p)
		if !match(entry, err) {
			continue
		}
		if err := os.Remove(p); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Stats describes the cache contents.
type Stats struct {
	Dir        string         `json:"dir"`
	Enabled    bool           `json:"enabled"`
	Entries    int            `json:"entries"`
	TotalBytes int64          `json:"totalBytes"`
	Expired    int            `json:"expired"`
	ByPurpose  map[string]int `json:"byPurpose,omitempty"`
}

// GetStats returns information about the cache.
func (c *Cache) GetStats() (Stats, error) {
	stats := Stats{Dir: c.dir, Enabled: c.enabled}
	if !c.enabled || c.dir == "" {
		return stats, nil
	}
	paths, err := c.entryPaths()
	if err != nil {
		return stats, err
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()

		entry, err := c.read(p)
		if err != nil {
			continue
		}
		if stats.ByPurpose == nil {
			stats.ByPurpose = make(map[string]int)
		}
		stats.ByPurpose[entry.Purpose]++
		if c.expired(entry) {
			stats.Expired++
		}
	}
	return stats, nil
}

// Dir returns the cache directory path.
func (c *Cache) Dir() string {
	return c.dir
}

// Enabled returns whether caching is enabled.
func (c *Cache) Enabled() bool {
	return c.enabled
}

// HashKey creates a SHA-256 hash of the given key material.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%x", h)
}

func (c *Cache) expired(e Entry) bool {
	return c.ttl > 0 && c.now().Sub(e.CreatedAt) > c.ttl
}

func (c *Cache) read(path string) (Entry, error) {
	var entry Entry
	data, err := os.ReadFile(path)
	if err != nil {
		return entry, err
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return entry, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return entry, nil
}

func (c *Cache) entryPaths() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache directory: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".json" {
			paths = append(paths, filepath.Join(c.dir, e.Name()))
		}
	}
	return paths, nil
}

func (c *Cache) entryPath(hash string) string {
	return filepath.Join(c.dir, hash+".json")
}

// DefaultDir returns the OS-appropriate cache directory for cimedic.
func DefaultDir() (string, error) {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "cimedic"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Caches", "cimedic"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "cimedic", "cache"), nil
		}
		return filepath.Join(home, "AppData", "Local", "cimedic", "cache"), nil
	default:
		return filepath.Join(home, ".cache", "cimedic"), nil
	}
}
