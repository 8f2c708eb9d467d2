// Package colors gives every category a stable colour slot. There are only
// Slots slots; when all are taken the least recently used category gives
// its slot up.
package colors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	cacheFile = "category_colors.json"

	// Slots is the number of distinct category colours.
	Slots = 11
	// NoCategory is the slot of tasks without a category.
	NoCategory = 0
)

type CategoryState struct {
	Slot     int       `json:"slot"`
	LastUsed time.Time `json:"last_used"`
}

type Cache struct {
	Path       string
	Categories map[string]*CategoryState `json:"categories"`
	now        func() time.Time
	dirty      bool
}

// Open loads the cache kept in dir, or starts an empty one.
func Open(dir string) (*Cache, error) {
	cache := &Cache{
		Path:       filepath.Join(dir, cacheFile),
		Categories: make(map[string]*CategoryState),
		now:        time.Now,
	}
	if _, err := os.Stat(cache.Path); err == nil {
		if err := cache.Load(); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

func (c *Cache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&c.Categories); err != nil {
		return err
	}
	if c.Categories == nil {
		c.Categories = make(map[string]*CategoryState)
	}
	return nil
}

func (c *Cache) Save() error {
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(c.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	err = json.NewEncoder(f).Encode(c.Categories)
	if err == nil {
		c.dirty = false
	}
	return err
}

// Slot returns the colour slot of category, 1 to Slots, assigning one if
// needed. The empty category always maps to NoCategory.
func (c *Cache) Slot(category string) int {
	if category == "" {
		return NoCategory
	}
	if state, exists := c.Categories[category]; exists {
		state.LastUsed = c.now()
		c.dirty = true
		return state.Slot
	}
	return c.assign(category)
}

func (c *Cache) assign(category string) int {
	used := make(map[int]bool)
	for _, s := range c.Categories {
		used[s.Slot] = true
	}
	for i := 1; i <= Slots; i++ {
		if !used[i] {
			return c.claim(category, i)
		}
	}

	// full: recycle the least recently used slot
	var oldest string
	var oldestTime time.Time
	for name, s := range c.Categories {
		if oldest == "" || s.LastUsed.Before(oldestTime) || (s.LastUsed.Equal(oldestTime) && name < oldest) {
			oldest = name
			oldestTime = s.LastUsed
		}
	}
	slot := c.Categories[oldest].Slot
	delete(c.Categories, oldest)
	return c.claim(category, slot)
}

func (c *Cache) claim(category string, slot int) int {
	c.Categories[category] = &CategoryState{Slot: slot, LastUsed: c.now()}
	c.dirty = true
	return slot
}
