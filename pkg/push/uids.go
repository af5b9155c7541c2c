package push

import (
	lru "github.com/hashicorp/golang-lru"
)

const defaultUidCacheSize = 4096

// UidCache remembers uid to uin mappings seen in routing heads. Notify
// bodies carry only uids, so processors resolve them here.
type UidCache struct {
	cache *lru.Cache
}

func NewUidCache(size int) *UidCache {
	if size <= 0 {
		size = defaultUidCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return &UidCache{cache: cache}
}

func (c *UidCache) Add(uid string, uin int64) {
	if uid == "" || uin == 0 {
		return
	}
	c.cache.Add(uid, uin)
}

// ResolveUin returns the uin for uid, or 0 if it has not been seen
func (c *UidCache) ResolveUin(uid string) int64 {
	if v, ok := c.cache.Get(uid); ok {
		return v.(int64)
	}
	return 0
}

// ResolveUid returns the uid last seen for uin
func (c *UidCache) ResolveUid(uin int64) (string, bool) {
	for _, k := range c.cache.Keys() {
		if v, ok := c.cache.Peek(k); ok && v.(int64) == uin {
			return k.(string), true
		}
	}
	return "", false
}

func (c *UidCache) Len() int {
	return c.cache.Len()
}
