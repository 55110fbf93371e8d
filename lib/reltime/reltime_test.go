package reltime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var frozenNow = time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)

func TestNormalize(t *testing.T) {
	testCases := []struct {
		amount    int64
		unit      string
		expected  time.Duration
		precision Precision
		raw       string
	}{
		{30, "s", time.Second * 30, Seconds, "30s ago"},
		{5, "m", time.Minute * 5, Minutes, "5m ago"},
		{12, "h", time.Hour * 12, Hours, "12h ago"},
		{19, "d", time.Hour * 24 * 19, Days, "19d ago"},
		{2, "w", time.Hour * 24 * 14, Weeks, "2w ago"},
		{1, "y", time.Hour * 24 * 365, Years, "1y ago"},
	}

	for _, test := range testCases {
		ts, precision, raw := Normalize(test.amount, test.unit, frozenNow)
		require.NotNil(t, ts, raw)
		require.Equal(t, test.expected, frozenNow.Sub(*ts))
		require.Equal(t, test.precision, precision)
		require.Equal(t, test.raw, raw)
	}
}

func TestNormalizeUnknownUnit(t *testing.T) {
	ts, precision, raw := Normalize(3, "q", frozenNow)
	require.Nil(t, ts)
	require.Equal(t, Unknown, precision)
	require.Equal(t, "3q ago", raw)
}

func TestFromPartsMissing(t *testing.T) {
	for _, parts := range [][2]string{
		{"", "d"},
		{"19", ""},
		{"", ""},
		{"nineteen", "d"},
	} {
		ts, precision, raw := FromParts(parts[0], parts[1], frozenNow)
		require.Nil(t, ts)
		require.Equal(t, Unknown, precision)
		require.Equal(t, "", raw)
	}
}

func TestParse(t *testing.T) {
	ts, precision, raw := Parse("posted 3h ago", frozenNow)
	require.NotNil(t, ts)
	require.Equal(t, time.Hour*3, frozenNow.Sub(*ts))
	require.Equal(t, Hours, precision)
	require.Equal(t, "3h ago", raw)

	ts, precision, _ = Parse("just now", frozenNow)
	require.Nil(t, ts)
	require.Equal(t, Unknown, precision)
}
