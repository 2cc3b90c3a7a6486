package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	testingclock "k8s.io/utils/clock/testing"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestKey_OrderIndependent(t *testing.T) {
	a := Key("get_daily_sleep", map[string]any{"b": 2, "a": 1})
	b := Key("get_daily_sleep", map[string]any{"a": 1, "b": 2})
	assert.Equal(t, a, b)
}

func TestKey_Distinguishes(t *testing.T) {
	base := Key("get_daily_sleep", map[string]any{"start_date": "2026-01-01"})

	assert.NotEqual(t, base, Key("get_heart_rate", map[string]any{"start_date": "2026-01-01"}))
	assert.NotEqual(t, base, Key("get_daily_sleep", map[string]any{"start_date": "2026-01-02"}))
	assert.NotEqual(t, base, Key("get_daily_sleep", map[string]any{"end_date": "2026-01-01"}))
	assert.NotEqual(t, Key("t", map[string]any{"a": "1"}), Key("t", map[string]any{"a": 1}))
	assert.Equal(t, "t", Key("t", nil))
}

func TestKey_ArgumentNamesCannotForgeAnotherKey(t *testing.T) {
	genuine := Key("get_daily_sleep", map[string]any{
		"start_date": "2024-01-01",
		"end_date":   "2024-01-07",
	})
	forged := Key("get_daily_sleep", map[string]any{
		`end_date="2024-01-07"|start_date`: "2024-01-01",
	})
	assert.NotEqual(t, genuine, forged)

	// Separators inside values are quoted too.
	assert.NotEqual(t,
		Key("t", map[string]any{"a": "1", "b": "2"}),
		Key("t", map[string]any{"a": `1","b":"2`}),
	)
}

func TestCache_GetSet(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	c := New(time.Minute, clk)

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", []byte("v1"))
	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v1", string(v))

	c.Set("k", []byte("v2"))
	v, _ = c.Get("k")
	assert.Equal(t, "v2", string(v))
}

func TestCache_ExpiredLookupEvicts(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	c := New(time.Minute, clk)
	c.Set("k", []byte("v"))

	clk.Step(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Sweep(t *testing.T) {
	clk := testingclock.NewFakeClock(epoch)
	c := New(time.Minute, clk)
	c.Set("old", []byte("1"))
	clk.Step(30 * time.Second)
	c.Set("new", []byte("2"))

	clk.Step(30 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestCache_Disabled(t *testing.T) {
	c := New(0, testingclock.NewFakeClock(epoch))
	c.Set("k", []byte("v"))
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New(time.Minute, testingclock.NewFakeClock(epoch))
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))

	c.Delete("a")
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Start()
	c.Stop()
	c.Stop()
}
