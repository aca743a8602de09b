package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaders(t *testing.T) {
	headers, err := Headers()
	require.NoError(t, err)
	require.Len(t, headers, 14)

	for _, h := range headers {
		assert.NotEmpty(t, h.Header)
		assert.NotEmpty(t, h.Parameter)
		assert.NotEmpty(t, h.Unit)
	}
}

func TestHeaders_OtherFields(t *testing.T) {
	headers, err := Headers()
	require.NoError(t, err)

	assert.Equal(t, "BMP280", headers[0].Header)
	assert.Equal(t, "Bosch", headers[0].Other["supplier"])
	assert.NotContains(t, headers[0].Other, "header")
	assert.NotContains(t, headers[0].Other, "unit")
}

func TestDevices(t *testing.T) {
	devices, err := Devices()
	require.NoError(t, err)
	require.Len(t, devices, 12)

	var references int
	for _, d := range devices {
		assert.NotEmpty(t, d.Key)
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.ShortName)
		assert.NotEmpty(t, d.Dataset)
		if d.Reference {
			references++
			assert.NotEmpty(t, d.Other["city"])
		}
	}
	assert.Equal(t, 6, references)
}

func TestUnitConversions(t *testing.T) {
	conversions, err := UnitConversions()
	require.NoError(t, err)
	require.Len(t, conversions, 6)

	for _, c := range conversions {
		assert.NotEmpty(t, c.UnitA)
		assert.NotEmpty(t, c.UnitB)
		assert.NotEmpty(t, c.Parameter)
		assert.Greater(t, c.Scale, 0.0)
	}
}
