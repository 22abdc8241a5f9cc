package session

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/n0madic/go-chatkit/internal/normalize"
	"github.com/n0madic/go-chatkit/internal/types"
)

// DefaultMaxEntries bounds the fingerprint table of a Cache.
const DefaultMaxEntries = 10000

// Cache maps conversation prefixes to stable prompt-cache keys. Every turn of
// one conversation shares the same instructions and first user message, so
// it keeps the same key and the backend can reuse its cached prefix.
type Cache struct {
	mu         sync.Mutex
	keys       map[string]string
	order      []string
	maxEntries int
}

// NewCache returns a cache holding at most maxEntries prefixes. A
// non-positive value selects DefaultMaxEntries.
func NewCache(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{keys: make(map[string]string), maxEntries: maxEntries}
}

// Key returns the prompt-cache key for msgs. An empty string means the
// conversation has no prefix worth caching.
func (c *Cache) Key(msgs []types.Message) string {
	canon := canonicalizePrefix(msgs)
	if canon == "" {
		return ""
	}
	fp := fingerprint(canon)

	c.mu.Lock()
	defer c.mu.Unlock()

	if key, ok := c.keys[fp]; ok {
		return key
	}
	key := uuid.New().String()
	c.keys[fp] = key
	c.order = append(c.order, fp)
	if len(c.order) > c.maxEntries {
		oldest := c.order[0]
		copy(c.order, c.order[1:])
		c.order[len(c.order)-1] = ""
		c.order = c.order[:len(c.order)-1]
		delete(c.keys, oldest)
	}
	return key
}

// Len reports how many prefixes are tracked.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}

type prefixPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

type prefix struct {
	Instructions string       `json:"instructions,omitempty"`
	FirstUser    []prefixPart `json:"first_user_message,omitempty"`
}

// canonicalizePrefix builds a stable string from the instructions and the
// first non-empty user message only. Later turns must not change it.
func canonicalizePrefix(msgs []types.Message) string {
	instructions, rest := normalize.Instructions(msgs)
	p := prefix{Instructions: instructions, FirstUser: firstUserMessage(rest)}
	if p.Instructions == "" && len(p.FirstUser) == 0 {
		return ""
	}
	data, _ := json.Marshal(p)
	return string(data)
}

func firstUserMessage(msgs []types.Message) []prefixPart {
	for _, m := range msgs {
		if m.Role != types.RoleUser {
			continue
		}
		var parts []prefixPart
		if !m.Content.IsParts() {
			if m.Content.Text != "" {
				parts = append(parts, prefixPart{Type: "text", Text: m.Content.Text})
			}
		}
		for _, part := range m.Content.Parts {
			switch part.Type {
			case types.PartText:
				if part.Text != "" {
					parts = append(parts, prefixPart{Type: "text", Text: part.Text})
				}
			case types.PartImage:
				if part.ImageURL != "" {
					parts = append(parts, prefixPart{Type: "image", URL: part.ImageURL})
				}
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return nil
}

func fingerprint(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
