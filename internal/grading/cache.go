package grading

import "sync"

// Cache stores grading verdicts for the lifetime of one game. It never
// evicts: a game grades at most a few hundred inputs. [Service.Reset]
// clears it between games.
type Cache struct {
	mu            sync.Mutex
	translation   map[Key]TranslationResult
	pronunciation map[Key]PronunciationResult
}

// NewCache returns an empty [Cache].
func NewCache() *Cache {
	return &Cache{
		translation:   make(map[Key]TranslationResult),
		pronunciation: make(map[Key]PronunciationResult),
	}
}

// Translation returns the cached translation verdict for k.
func (c *Cache) Translation(k Key) (TranslationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.translation[k]
	return r, ok
}

// PutTranslation stores r under k unless k is already present. The stored
// value is returned so that concurrent writers observe the same verdict.
func (c *Cache) PutTranslation(k Key, r TranslationResult) TranslationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.translation[k]; ok {
		return prev
	}
	c.translation[k] = r
	return r
}

// Pronunciation returns the cached pronunciation verdict for k.
func (c *Cache) Pronunciation(k Key) (PronunciationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.pronunciation[k]
	return r, ok
}

// PutPronunciation is the pronunciation counterpart of [Cache.PutTranslation].
func (c *Cache) PutPronunciation(k Key, r PronunciationResult) PronunciationResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.pronunciation[k]; ok {
		return prev
	}
	c.pronunciation[k] = r
	return r
}

// Clear drops every cached verdict.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.translation)
	clear(c.pronunciation)
}

// Len returns the number of cached verdicts.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.translation) + len(c.pronunciation)
}
