package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPointHash_Deterministic(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	h1 := PointHash(testDevice, ts)
	h2 := PointHash(testDevice, ts)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 40) // hex-encoded 160-bit digest
}

func TestPointHash_DistinguishesInputs(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.NotEqual(t, PointHash(testDevice, ts), PointHash("Oslo_64A291", ts))
	assert.NotEqual(t, PointHash(testDevice, ts), PointHash(testDevice, ts.Add(time.Hour)))
}

func TestFormatEpoch(t *testing.T) {
	tests := []struct {
		name     string
		ts       time.Time
		expected string
	}{
		{"integral seconds keep fractional part", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), "1577836800.0"},
		{"epoch zero", time.Unix(0, 0), "0.0"},
		{"pre-epoch", time.Unix(-3600, 0), "-3600.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatEpoch(tt.ts))
		})
	}
}

func TestClassify_HashesStableAcrossRuns(t *testing.T) {
	first := classify(t, testTable(t))
	second := classify(t, testTable(t))

	assert.Equal(t, first.pointHash, second.pointHash)
	assert.Equal(t, first.refHash, second.refHash)
}

func TestClassify_RefHashAbsentWithoutLocation(t *testing.T) {
	c := classify(t, testTable(t))

	assert.NotEmpty(t, c.refHash[0])
	assert.NotEmpty(t, c.refHash[1])
	assert.Empty(t, c.refHash[2])
}
