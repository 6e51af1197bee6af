package resolver

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signalhouse/dispatch/internal/domain"
)

func testTemplate(title string) *domain.Template {
	return domain.NewTemplate(domain.TypeWelcome, domain.ChannelEmail, title, "body")
}

func TestTemplateCache_GetPut(t *testing.T) {
	cache := newTemplateCache(10, time.Minute)

	_, ok := cache.get("missing")
	assert.False(t, ok)

	cache.put("welcome:EMAIL", testTemplate("hello"))

	got, ok := cache.get("welcome:EMAIL")
	require.True(t, ok)
	assert.Equal(t, "hello", got.Title)

	cache.put("welcome:EMAIL", testTemplate("updated"))
	got, ok = cache.get("welcome:EMAIL")
	require.True(t, ok)
	assert.Equal(t, "updated", got.Title)
	assert.Equal(t, 1, cache.len())
}

func TestTemplateCache_Expiry(t *testing.T) {
	cache := newTemplateCache(10, 10*time.Millisecond)

	cache.put("welcome:EMAIL", testTemplate("hello"))

	_, ok := cache.get("welcome:EMAIL")
	assert.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok = cache.get("welcome:EMAIL")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.len())
}

func TestTemplateCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newTemplateCache(3, time.Minute)

	for i := 0; i < 3; i++ {
		cache.put(fmt.Sprintf("key-%d", i), testTemplate(fmt.Sprintf("t%d", i)))
	}

	// touch key-0 so key-1 becomes the eviction candidate
	_, ok := cache.get("key-0")
	require.True(t, ok)

	cache.put("key-3", testTemplate("t3"))

	assert.Equal(t, 3, cache.len())
	_, ok = cache.get("key-1")
	assert.False(t, ok)
	_, ok = cache.get("key-0")
	assert.True(t, ok)
	_, ok = cache.get("key-3")
	assert.True(t, ok)
}

func TestTemplateCache_Remove(t *testing.T) {
	cache := newTemplateCache(10, time.Minute)

	cache.put("welcome:EMAIL", testTemplate("hello"))
	cache.remove("welcome:EMAIL")

	_, ok := cache.get("welcome:EMAIL")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.len())

	// removing an absent key is a no-op
	cache.remove("welcome:EMAIL")
}
