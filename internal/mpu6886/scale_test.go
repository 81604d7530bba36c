package mpu6886

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccelScaleDials(t *testing.T) {
	cases := []struct {
		scale AccelScale
		mask  byte
		dial  float64
	}{
		{AccelScale2G, 0x00, 2000},
		{AccelScale4G, 0x08, 4000},
		{AccelScale8G, 0x10, 8000},
		{AccelScale16G, 0x18, 16000},
	}
	for _, c := range cases {
		assert.Equal(t, c.mask, byte(c.scale))
		dial, err := c.scale.Dial()
		require.NoError(t, err)
		assert.Equal(t, c.dial, dial)
	}

	_, err := AccelScale(0x20).Dial()
	assert.Error(t, err)
}

func TestGyroScaleDials(t *testing.T) {
	cases := []struct {
		scale GyroScale
		mask  byte
		dial  float64
	}{
		{GyroScale250DPS, 0x00, 250},
		{GyroScale500DPS, 0x08, 500},
		{GyroScale1000DPS, 0x10, 1000},
		{GyroScale2000DPS, 0x18, 2000},
	}
	for _, c := range cases {
		assert.Equal(t, c.mask, byte(c.scale))
		dial, err := c.scale.Dial()
		require.NoError(t, err)
		assert.Equal(t, c.dial, dial)
	}

	_, err := GyroScale(0x19).Dial()
	assert.Error(t, err)
}

func TestSensorAndAxisNames(t *testing.T) {
	assert.Equal(t, "accel", Accel.String())
	assert.Equal(t, "gyro", Gyro.String())
	assert.Equal(t, "X", AxisX.String())

	mask, err := AxisZ.selfTestMask()
	require.NoError(t, err)
	assert.Equal(t, byte(0x20), mask)

	_, err = Axis(3).selfTestMask()
	assert.Error(t, err)
}
