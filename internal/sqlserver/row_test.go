package sqlserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowInt64(t *testing.T) {
	r := Row{
		"i64":  int64(7),
		"i32":  int32(8),
		"f":    float64(9.9),
		"dec":  []byte("1024.000000"),
		"str":  "42",
		"null": nil,
		"bad":  "abc",
		"ts":   time.Now(),
	}
	for col, want := range map[string]int64{"i64": 7, "i32": 8, "f": 9, "dec": 1024, "str": 42} {
		got, err := r.Int64(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}
	for _, col := range []string{"null", "bad", "ts", "missing"} {
		_, err := r.Int64(col)
		assert.Error(t, err, col)
	}
}

func TestRowFloat64(t *testing.T) {
	r := Row{"dec": []byte("1.25"), "i": int64(3), "null": nil}
	f, err := r.Float64("dec")
	require.NoError(t, err)
	assert.InDelta(t, 1.25, f, 1e-9)
	f, err = r.Float64("i")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, f, 1e-9)
	_, err = r.Float64("null")
	assert.ErrorContains(t, err, "is NULL")
}

func TestRowText(t *testing.T) {
	ts := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	r := Row{"s": "ACTIVE_TRANSACTION", "b": []byte("host01"), "n": int64(5), "null": nil, "t": ts}
	cases := map[string]string{
		"s":    "ACTIVE_TRANSACTION",
		"b":    "host01",
		"n":    "5",
		"null": "",
		"t":    "2026-10-18T09:30:00Z",
	}
	for col, want := range cases {
		got, err := r.Text(col)
		require.NoError(t, err, col)
		assert.Equal(t, want, got, col)
	}
	_, err := r.Text("missing")
	assert.ErrorContains(t, err, `column "missing" not in result`)
}

func TestRowTime(t *testing.T) {
	ts := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	r := Row{"t": ts, "s": "x"}
	got, err := r.Time("t")
	require.NoError(t, err)
	assert.True(t, got.Equal(ts))
	_, err = r.Time("s")
	assert.Error(t, err)
}
