package session

import (
	"fmt"
	"testing"

	"github.com/n0madic/go-chatkit/internal/types"
)

// TestStableAcrossTurns verifies that later turns of one conversation keep
// the key of its first turn.
func TestStableAcrossTurns(t *testing.T) {
	c := NewCache(0)
	first := []types.Message{types.System("sys"), types.User("hello")}
	later := append(append([]types.Message{}, first...), types.Assistant("hi"), types.User("how are you?"))

	k1 := c.Key(first)
	k2 := c.Key(later)
	if k1 == "" {
		t.Fatal("expected a key")
	}
	if k1 != k2 {
		t.Errorf("later turn changed the key: %q vs %q", k1, k2)
	}
}

func TestKeyDiffers(t *testing.T) {
	tests := []struct {
		name string
		a, b []types.Message
	}{
		{
			name: "first user message",
			a:    []types.Message{types.System("sys"), types.User("hello")},
			b:    []types.Message{types.System("sys"), types.User("goodbye")},
		},
		{
			name: "instructions",
			a:    []types.Message{types.System("A"), types.User("hi")},
			b:    []types.Message{types.System("B"), types.User("hi")},
		},
		{
			name: "image",
			a:    []types.Message{types.UserParts(types.TextPart("see"), types.ImagePart("https://x/1.png", ""))},
			b:    []types.Message{types.UserParts(types.TextPart("see"), types.ImagePart("https://x/2.png", ""))},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCache(0)
			if ka, kb := c.Key(tt.a), c.Key(tt.b); ka == kb {
				t.Errorf("expected different keys, both %q", ka)
			}
		})
	}
}

func TestPlainAndPartsTextShareKey(t *testing.T) {
	c := NewCache(0)
	k1 := c.Key([]types.Message{types.User("hello")})
	k2 := c.Key([]types.Message{types.UserParts(types.TextPart("hello"))})
	if k1 != k2 {
		t.Errorf("equivalent first messages produced %q and %q", k1, k2)
	}
}

func TestEmptyConversationHasNoKey(t *testing.T) {
	c := NewCache(0)
	if k := c.Key(nil); k != "" {
		t.Errorf("expected empty key, got %q", k)
	}
	if k := c.Key([]types.Message{types.User("")}); k != "" {
		t.Errorf("expected empty key for blank user text, got %q", k)
	}
	if c.Len() != 0 {
		t.Errorf("empty conversations should not be tracked, got %d", c.Len())
	}
}

// TestEvictionAtMaxEntries verifies that the cache stays bounded and drops
// the oldest prefix first.
func TestEvictionAtMaxEntries(t *testing.T) {
	const limit = 8
	c := NewCache(limit)

	firstID := c.Key([]types.Message{types.System("instr-0")})
	for i := 1; i < limit; i++ {
		c.Key([]types.Message{types.System(fmt.Sprintf("instr-%d", i))})
	}
	if c.Len() != limit {
		t.Fatalf("expected cache size %d before overflow, got %d", limit, c.Len())
	}

	c.Key([]types.Message{types.System("instr-overflow")})
	if c.Len() != limit {
		t.Errorf("expected cache size %d after eviction, got %d", limit, c.Len())
	}

	if newID := c.Key([]types.Message{types.System("instr-0")}); newID == firstID {
		t.Errorf("evicted entry was found in cache with the same ID: %q", firstID)
	}
}
