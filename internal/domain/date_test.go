package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate_AcceptedLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2016-06-23T17:55:00Z", time.Date(2016, 6, 23, 17, 55, 0, 0, time.UTC)},
		{"20160623T1755", time.Date(2016, 6, 23, 17, 55, 0, 0, time.UTC)},
		{"201606231755", time.Date(2016, 6, 23, 17, 55, 0, 0, time.UTC)},
		{"2016-06-23", time.Date(2016, 6, 23, 0, 0, 0, 0, time.UTC)},
		{"20160623", time.Date(2016, 6, 23, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		d, err := ParseDate(c.in)
		require.NoError(t, err, c.in)
		assert.True(t, d.Equal(c.want), "%s: got %s", c.in, d)
	}
}

func TestParseDate_Unrecognised(t *testing.T) {
	_, err := ParseDate("23/06/2016")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognised")
}

func TestDate_KeyAndSameEpoch(t *testing.T) {
	morning, err := ParseDate("20160623T0600")
	require.NoError(t, err)
	evening, err := ParseDate("2016-06-23T17:55:00Z")
	require.NoError(t, err)

	assert.Equal(t, "20160623", morning.Key())
	assert.True(t, morning.SameEpoch(evening))

	other, err := ParseDate("20160624")
	require.NoError(t, err)
	assert.False(t, morning.SameEpoch(other))
}

func TestDate_At_InheritsTimeOfDay(t *testing.T) {
	master, err := ParseDate("2016-06-23T17:55:00Z")
	require.NoError(t, err)
	slave, err := ParseDate("20160613")
	require.NoError(t, err)

	got := slave.At(master.Time)
	assert.True(t, got.Equal(time.Date(2016, 6, 13, 17, 55, 0, 0, time.UTC)))
	assert.Equal(t, "20160613", got.Key())
}

func TestPairKey(t *testing.T) {
	m, err := ParseDate("20160623")
	require.NoError(t, err)
	s, err := ParseDate("20160613")
	require.NoError(t, err)
	assert.Equal(t, "20160623_20160613", PairKey(m, s))
}
