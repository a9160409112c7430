package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMoneyFormat(t *testing.T) {
	t.Parallel()

	usd := NewMoney("en-US", "usd")
	require.Equal(t, "$1,234.50", usd.Format(1234.5))
	require.Equal(t, "$0.00", usd.Format(0))
	require.Equal(t, "-$3.25", usd.Format(-3.25))
	require.Equal(t, "USD", usd.Currency())

	inr := NewMoney("en-IN", "INR")
	require.Equal(t, "₹120.00", inr.Format(120))
	require.Equal(t, "₹99.90", inr.Format(99.9))

	yen := NewMoney("en-US", "JPY")
	require.Equal(t, "¥12,345", yen.Format(12345))
}

func TestMoneyFallbacks(t *testing.T) {
	t.Parallel()

	m := NewMoney("not a locale!!", "")
	require.Equal(t, DefaultCurrency, m.Currency())
	require.Equal(t, "en-IN", m.Locale().String())

	other := NewMoney("en-US", "CHF")
	require.Equal(t, "CHF 5.00", other.Format(5))
}

func TestFileSize(t *testing.T) {
	t.Parallel()

	cases := map[int64]string{
		0:               "0 Bytes",
		512:             "512 Bytes",
		1024:            "1 KB",
		1536:            "1.5 KB",
		5 * 1024 * 1024: "5 MB",
		6_500_000:       "6.2 MB",
	}
	for in, want := range cases {
		require.Equal(t, want, FileSize(in), "size %d", in)
	}
}
