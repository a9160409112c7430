package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestShowCreatesIndependentToasts(t *testing.T) {
	c := NewCenter(WithDelay(time.Hour))
	defer c.Close()

	a := c.Show("Product added to cart!", ToneSuccess)
	b := c.Show("Product added to cart!", ToneSuccess)

	require.NotEqual(t, a.ID, b.ID)
	active := c.Active()
	require.Len(t, active, 2)
	require.Equal(t, a.ID, active[0].ID)
}

func TestToastsExpire(t *testing.T) {
	c := NewCenter(WithDelay(20 * time.Millisecond))
	defer c.Close()

	c.Show("Cart cleared!", "")
	require.Len(t, c.Active(), 1)
	require.Equal(t, ToneSuccess, c.Active()[0].Tone)

	require.Eventually(t, func() bool { return len(c.Active()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestDismissAndClose(t *testing.T) {
	c := NewCenter(WithDelay(time.Hour))

	a := c.Show("one", ToneInfo)
	c.Show("two", ToneDanger)
	require.True(t, c.Dismiss(a.ID))
	require.False(t, c.Dismiss(a.ID))
	require.Len(t, c.Active(), 1)

	c.Close()
	require.Empty(t, c.Active())

	late := c.Show("after close", ToneInfo)
	require.NotEmpty(t, late.ID)
	require.Empty(t, c.Active())
}

func TestWithClock(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := NewCenter(WithDelay(time.Hour), WithClock(func() time.Time { return fixed }))
	defer c.Close()

	require.Equal(t, fixed, c.Show("hi", ToneInfo).CreatedAt)
}

func TestDrawerClosesOnlyOnBackdrop(t *testing.T) {
	var d Drawer
	require.False(t, d.IsOpen())

	d.Open()
	d.Open()
	require.True(t, d.IsOpen())

	d.Click(TargetPanel)
	require.True(t, d.IsOpen())

	d.Click(ParseTarget("backdrop"))
	require.False(t, d.IsOpen())

	d.Open()
	d.Close()
	require.False(t, d.IsOpen())
	require.Equal(t, TargetPanel, ParseTarget("item-row"))
}
