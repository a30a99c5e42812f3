package core

// UniqueCache remembers unique key values already seen by one codec within
// the current stack. Codecs own a cache and consult it while decoding; the
// engine decides when it is cleared through Codec.ResetUniqueCache.
//
// The cache only speeds up detection. The authoritative check is the
// stack scan done by the validator.
type UniqueCache struct {
	seen  map[string]map[string]int
	count int
}

// NewUniqueCache creates an empty cache.
func NewUniqueCache() *UniqueCache {
	return &UniqueCache{seen: make(map[string]map[string]int)}
}

// Next advances the record counter and returns the 1-based position of the
// record about to be checked.
func (c *UniqueCache) Next() int {
	c.count++
	return c.count
}

// Check records value under key for the record at position pos. If the value
// was already recorded, Check returns the earlier position and false.
func (c *UniqueCache) Check(key, value string, pos int) (int, bool) {
	values, ok := c.seen[key]
	if !ok {
		values = make(map[string]int)
		c.seen[key] = values
	}
	if first, dup := values[value]; dup {
		return first, false
	}
	values[value] = pos
	return 0, true
}

// Len returns the number of values remembered across all keys.
func (c *UniqueCache) Len() int {
	n := 0
	for _, values := range c.seen {
		n += len(values)
	}
	return n
}

// Reset forgets all remembered values and restarts the record counter.
func (c *UniqueCache) Reset() {
	c.seen = make(map[string]map[string]int)
	c.count = 0
}
