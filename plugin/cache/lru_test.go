package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU(100, time.Minute)

	t.Run("SetAndGet", func(t *testing.T) {
		c.Set("key1", []byte("value1"), 0)

		val, ok := c.Get("key1")
		assert.True(t, ok)
		assert.Equal(t, []byte("value1"), val)
	})

	t.Run("GetNonExistent", func(t *testing.T) {
		val, ok := c.Get("nonexistent")
		assert.False(t, ok)
		assert.Nil(t, val)
	})

	t.Run("UpdateExisting", func(t *testing.T) {
		c.Set("key2", []byte("original"), 0)
		c.Set("key2", []byte("updated"), 0)

		val, ok := c.Get("key2")
		assert.True(t, ok)
		assert.Equal(t, []byte("updated"), val)
	})

	t.Run("Delete", func(t *testing.T) {
		c.Set("key3", []byte("value"), 0)
		c.Delete("key3")
		c.Delete("key3") // second delete is a no-op

		_, ok := c.Get("key3")
		assert.False(t, ok)
	})
}

func TestLRU_Expiration(t *testing.T) {
	c := NewLRU(100, 50*time.Millisecond)

	c.Set("expiring", []byte("value"), 50*time.Millisecond)

	val, ok := c.Get("expiring")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), val)

	time.Sleep(60 * time.Millisecond)

	val, ok = c.Get("expiring")
	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU(3, time.Minute)

	c.Set("key1", []byte("1"), 0)
	c.Set("key2", []byte("2"), 0)
	c.Set("key3", []byte("3"), 0)
	assert.Equal(t, 3, c.Size())

	// key1 becomes most recently used
	c.Get("key1")

	// key2 is now the oldest and gets evicted
	c.Set("key4", []byte("4"), 0)
	assert.Equal(t, 3, c.Size())

	_, ok := c.Get("key2")
	assert.False(t, ok)
	_, ok = c.Get("key1")
	assert.True(t, ok)
}

func TestLRU_Clear(t *testing.T) {
	c := NewLRU(10, time.Minute)
	c.Set("a", []byte("1"), 0)
	c.Set("b", []byte("2"), 0)

	c.Clear()
	assert.Equal(t, 0, c.Size())

	_, ok := c.Get("a")
	assert.False(t, ok)
}
