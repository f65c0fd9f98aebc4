package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/palemoky/exquisite-corpse/internal/testutil"
)

func TestDirectory_BindAndGet(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	c := testutil.NewSimpleClient("conn-1")

	_, evicted := d.Bind(c, Identity{PublicID: "42", Name: "ann", RoomID: "abc"})
	assert.False(t, evicted)

	s, ok := d.Get("conn-1")
	require.True(t, ok)
	assert.Equal(t, "42", s.PublicID)
	assert.Equal(t, "ann", s.Name)
	assert.Equal(t, "abc", s.RoomID)
	assert.Equal(t, "conn-1", s.ConnID())

	s, ok = d.ByPublicID("42")
	require.True(t, ok)
	assert.Equal(t, "conn-1", s.ConnID())
	assert.Equal(t, 1, d.Count())

	_, ok = d.Get("missing")
	assert.False(t, ok)
	_, ok = d.ByPublicID("0")
	assert.False(t, ok)
}

func TestDirectory_BindEvictsPriorHolder(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	first := testutil.NewSimpleClient("conn-1")
	second := testutil.NewSimpleClient("conn-2")

	d.Bind(first, Identity{PublicID: "7", Name: "a", RoomID: "r1"})
	prior, evicted := d.Bind(second, Identity{PublicID: "7", Name: "b", RoomID: "r2"})

	require.True(t, evicted)
	assert.Equal(t, "conn-1", prior.ConnID())
	assert.Equal(t, "r1", prior.RoomID)

	_, ok := d.Get("conn-1")
	assert.False(t, ok)
	s, ok := d.ByPublicID("7")
	require.True(t, ok)
	assert.Equal(t, "conn-2", s.ConnID())
	assert.Equal(t, 1, d.Count())

	// 被挤掉的连接断开时不影响新持有者
	_, ok = d.Remove("conn-1")
	assert.False(t, ok)
	s, ok = d.ByPublicID("7")
	require.True(t, ok)
	assert.Equal(t, "conn-2", s.ConnID())
}

func TestDirectory_RebindSameConnection(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	c := testutil.NewSimpleClient("conn-1")

	d.Bind(c, Identity{PublicID: "1", Name: "a", RoomID: "r"})
	_, evicted := d.Bind(c, Identity{PublicID: "1", Name: "a2", RoomID: "q"})
	assert.False(t, evicted)

	d.Bind(c, Identity{PublicID: "2", Name: "a3", RoomID: "q"})
	_, ok := d.ByPublicID("1")
	assert.False(t, ok)
	s, ok := d.ByPublicID("2")
	require.True(t, ok)
	assert.Equal(t, "a3", s.Name)
	assert.Equal(t, 1, d.Count())
}

func TestDirectory_SetRoomAndRemove(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	c := testutil.NewSimpleClient("conn-1")
	d.Bind(c, Identity{PublicID: "1", Name: "a", RoomID: "r"})

	assert.True(t, d.SetRoom("conn-1", ""))
	s, _ := d.Get("conn-1")
	assert.Empty(t, s.RoomID)

	assert.False(t, d.SetRoom("unknown", "x"))
	assert.Equal(t, 1, d.Count())

	removed, ok := d.Remove("conn-1")
	require.True(t, ok)
	assert.Equal(t, "1", removed.PublicID)
	assert.Equal(t, 0, d.Count())
	_, ok = d.ByPublicID("1")
	assert.False(t, ok)
}

func TestDirectory_Concurrent(t *testing.T) {
	t.Parallel()

	d := NewDirectory()
	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := testutil.NewSimpleClient(fmt.Sprintf("conn-%d", i))
			d.Bind(c, Identity{PublicID: fmt.Sprintf("%d", i%10), Name: "n", RoomID: "r"})
			d.SetRoom(c.GetID(), "q")
			d.Get(c.GetID())
			d.Remove(c.GetID())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, d.Count())
}
