package mpu6886

import (
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/mpu6886/internal/imu"
)

type regWrite struct {
	reg   byte
	value byte
}

// mockTransport is an in-memory register file. Writes update the file so
// read-backs and restores observe them; onRead can override data-register
// contents based on current device state.
type mockTransport struct {
	regs      map[byte][]byte
	writes    []regWrite
	readCount map[byte]int

	readErr  func(reg byte) error
	writeErr func(reg byte) error
	onRead   func(reg byte, buf []byte) bool
}

func newMockTransport() *mockTransport {
	m := &mockTransport{
		regs:      map[byte][]byte{},
		readCount: map[byte]int{},
	}
	m.regs[regWhoAmI] = []byte{whoAmIResponse}
	return m
}

func (m *mockTransport) WriteToRegister(reg byte, data []byte) error {
	if m.writeErr != nil {
		if err := m.writeErr(reg); err != nil {
			return err
		}
	}
	m.writes = append(m.writes, regWrite{reg, data[0]})
	m.regs[reg] = append([]byte(nil), data...)
	return nil
}

func (m *mockTransport) ReadFromRegister(reg byte, buf []byte) error {
	if m.readErr != nil {
		if err := m.readErr(reg); err != nil {
			return err
		}
	}
	m.readCount[reg]++
	if m.onRead != nil && m.onRead(reg, buf) {
		return nil
	}
	copy(buf, m.regs[reg])
	return nil
}

func (m *mockTransport) setInt16s(reg byte, vals ...int16) {
	buf := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(buf[2*i:], uint16(v))
	}
	m.regs[reg] = buf
}

// lastWrite returns the most recent write to reg.
func (m *mockTransport) lastWrite(t *testing.T, reg byte) byte {
	t.Helper()
	for i := len(m.writes) - 1; i >= 0; i-- {
		if m.writes[i].reg == reg {
			return m.writes[i].value
		}
	}
	t.Fatalf("no write to register 0x%02X recorded", reg)
	return 0
}

// newTestDriver builds a driver on the mock with recorded sleeps and fast
// baseline parameters.
func newTestDriver(t *testing.T, m *mockTransport, opts *Opts) (*Driver, *[]time.Duration) {
	t.Helper()
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	o.BaselinePause = 0
	o.BaselineDelay = 0
	o.BaselineSamples = 2

	sleeps := &[]time.Duration{}
	d, err := newDriver(m, &o, func(dur time.Duration) {
		*sleeps = append(*sleeps, dur)
	})
	require.NoError(t, err)
	*sleeps = nil
	return d, sleeps
}

func countSleeps(sleeps []time.Duration, d time.Duration) int {
	n := 0
	for _, s := range sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func TestNewInitSequence(t *testing.T) {
	m := newMockTransport()
	opts := DefaultOpts
	opts.AccelScale = AccelScale4G
	opts.GyroScale = GyroScale500DPS
	d, _ := newTestDriver(t, m, &opts)

	var got []regWrite
	for _, w := range m.writes {
		got = append(got, w)
	}
	want := []regWrite{
		{regPwrMgmt1, maskGyroStandby},
		{regPwrMgmt1, maskClkSelAuto},
		{regAccelConfig, byte(AccelScale4G)},
		{regGyroConfig, byte(GyroScale500DPS)},
	}
	assert.Equal(t, want, got)

	// The stationary baseline over all-zero raw reads is exactly zero.
	base, err := d.Baseline(Accel)
	require.NoError(t, err)
	assert.Equal(t, imu.Sample{Unit: imu.MilliG}, base.Avg)
	assert.Equal(t, imu.Sample{Unit: imu.Percent}, base.Tolerance)
}

func TestNewDeviceNotFound(t *testing.T) {
	m := newMockTransport()
	m.regs[regWhoAmI] = []byte{0x68}

	_, err := newDriver(m, &DefaultOpts, func(time.Duration) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestNewBusError(t *testing.T) {
	m := newMockTransport()
	busErr := errors.New("i2c: no such device")
	m.readErr = func(reg byte) error {
		if reg == regWhoAmI {
			return busErr
		}
		return nil
	}

	_, err := newDriver(m, &DefaultOpts, func(time.Duration) {})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBus)
	assert.ErrorIs(t, err, busErr)
}

func TestNewInvalidScale(t *testing.T) {
	m := newMockTransport()
	opts := DefaultOpts
	opts.AccelScale = AccelScale(0x04)

	_, err := newDriver(m, &opts, func(time.Duration) {})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid accel full-scale selector")
}

func TestTemperature(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	// raw 0 → 25°C → 77.0°F
	m.setInt16s(regTempOutH, 0)
	got, err := d.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 77.0, got)

	// raw 3268 → 35°C → 95.0°F
	m.setInt16s(regTempOutH, 3268)
	got, err = d.Temperature()
	require.NoError(t, err)
	assert.Equal(t, 95.0, got)
}

func TestAccelerationEndToEnd(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	// ±2G: full scale 32768 raw = 2000 mG, so 16384 raw = 1g.
	m.setInt16s(regAccelXOutH, 16384, 0, -16384)
	s, err := d.Acceleration()
	require.NoError(t, err)
	assert.Equal(t, imu.MilliG, s.Unit)
	assert.InEpsilon(t, 1000.0, s.X, 0.001)
	assert.Zero(t, s.Y)
	assert.InEpsilon(t, -1000.0, s.Z, 0.001)

	ms2, err := d.AccelerationMS2()
	require.NoError(t, err)
	assert.Equal(t, imu.MeterPerSec2, ms2.Unit)
	assert.InEpsilon(t, 9.800665, ms2.X, 0.001)
}

func TestZeroRawReadsZero(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	m.setInt16s(regAccelXOutH, 0, 0, 0)
	m.setInt16s(regGyroXOutH, 0, 0, 0)

	for _, s := range []AccelScale{AccelScale2G, AccelScale4G, AccelScale8G, AccelScale16G} {
		require.NoError(t, d.SetAccelScale(s))
		got, err := d.Acceleration()
		require.NoError(t, err)
		assert.Equal(t, imu.Sample{Unit: imu.MilliG}, got, "accel at %s", s)
	}
	for _, s := range []GyroScale{GyroScale250DPS, GyroScale500DPS, GyroScale1000DPS, GyroScale2000DPS} {
		require.NoError(t, d.SetGyroScale(s))
		got, err := d.Gyro()
		require.NoError(t, err)
		assert.Equal(t, imu.Sample{Unit: imu.DegPerSec}, got, "gyro at %s", s)
	}
}

func TestGyroScaling(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	m.setInt16s(regGyroXOutH, 32767, -32768, 16384)
	require.NoError(t, d.SetGyroScale(GyroScale2000DPS))
	assert.Equal(t, byte(GyroScale2000DPS), m.lastWrite(t, regGyroConfig))

	s, err := d.Gyro()
	require.NoError(t, err)
	assert.InEpsilon(t, 2000.0, s.X, 0.001)
	assert.InEpsilon(t, -2000.0, s.Y, 0.001)
	assert.InEpsilon(t, 1000.0, s.Z, 0.001)
}

func TestSetScaleRejectsInvalidSelector(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)
	writes := len(m.writes)

	require.Error(t, d.SetAccelScale(AccelScale(0xFF)))
	require.Error(t, d.SetGyroScale(GyroScale(0x03)))
	assert.Len(t, m.writes, writes, "rejected selectors must not touch the bus")
}

func TestAverageReadCountAndDelays(t *testing.T) {
	m := newMockTransport()
	d, sleeps := newTestDriver(t, m, nil)

	const delay = 7 * time.Millisecond

	m.readCount[regAccelXOutH] = 0
	_, err := d.Average(Accel, delay, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, m.readCount[regAccelXOutH])
	assert.Equal(t, 3, countSleeps(*sleeps, delay))

	// n=1: one read, no inter-sample delay.
	m.readCount[regGyroXOutH] = 0
	*sleeps = nil
	_, err = d.Average(Gyro, delay, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, m.readCount[regGyroXOutH])
	assert.Equal(t, 0, countSleeps(*sleeps, delay))
}

func TestAverageRejectsBadArguments(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	_, err := d.Average(Sensor(7), 0, 1)
	assert.ErrorIs(t, err, ErrUnsupportedSensor)

	_, err = d.Average(Accel, 0, 0)
	assert.Error(t, err)
}

func TestAverageWithToleranceIdenticalReads(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	m.setInt16s(regAccelXOutH, 1024, -512, 16384)
	avg, tol, err := d.AverageWithTolerance(Accel, 0, 0, 3)
	require.NoError(t, err)

	assert.Equal(t, imu.Sample{Unit: imu.Percent}, tol)
	assert.InEpsilon(t, 2000.0*1024/32768, avg.X, 1e-9)
	assert.InEpsilon(t, 2000.0*-512/32768, avg.Y, 1e-9)
	assert.InEpsilon(t, 2000.0*16384/32768, avg.Z, 1e-9)
}

func TestSelfTestDeviationAndRestore(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	// Baseline was captured over all-zero reads; deviate only once the
	// self-test stimulus is on.
	m.setInt16s(regAccelXOutH, 8192, 0, -8192)
	dev, err := d.SelfTest(Accel, AxisX)
	require.NoError(t, err)
	assert.InEpsilon(t, 500.0, dev.X, 1e-9)
	assert.Zero(t, dev.Y)
	assert.InEpsilon(t, 500.0, dev.Z, 1e-9)

	assert.Equal(t, byte(AccelScale2G), m.lastWrite(t, regAccelConfig))
	assert.Equal(t, []byte{byte(AccelScale2G)}, m.regs[regAccelConfig])
}

func TestSelfTestRestoresConfigOnReadFailure(t *testing.T) {
	m := newMockTransport()
	opts := DefaultOpts
	opts.AccelScale = AccelScale4G
	d, _ := newTestDriver(t, m, &opts)

	// Data reads fail while the self-test stimulus is enabled.
	m.readErr = func(reg byte) error {
		if reg == regAccelXOutH && m.regs[regAccelConfig][0]&maskSelfTestY != 0 {
			return errors.New("i2c: read timeout")
		}
		return nil
	}

	_, err := d.SelfTest(Accel, AxisY)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBus)

	assert.Equal(t, byte(AccelScale4G), m.lastWrite(t, regAccelConfig))
	assert.Equal(t, []byte{byte(AccelScale4G)}, m.regs[regAccelConfig])
}

func TestSelfTestInvalidSelector(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	_, err := d.SelfTest(Sensor(3), AxisX)
	assert.ErrorIs(t, err, ErrUnsupportedSensor)

	_, err = d.SelfTest(Accel, Axis(9))
	assert.Error(t, err)
}

func TestSelfTestExperimentalIdenticalReadsPass(t *testing.T) {
	m := newMockTransport()
	d, _ := newTestDriver(t, m, nil)

	// Same reading with stimulus enabled and disabled: zero response.
	m.setInt16s(regAccelXOutH, 321, -42, 16000)
	res, err := d.SelfTestExperimental(Accel, 0)
	require.NoError(t, err)
	assert.True(t, res.WithinTolerance)
	assert.Equal(t, [3]bool{true, true, true}, res.Passed)
	assert.Equal(t, 40.0, res.Tolerance)

	res, err = d.SelfTestExperimental(Gyro, 0)
	require.NoError(t, err)
	assert.True(t, res.WithinTolerance)
	assert.Equal(t, [3]bool{true, true, true}, res.Passed)
	assert.Equal(t, 1.0, res.Tolerance)

	// The configured full scale is back in place afterwards.
	assert.Equal(t, byte(AccelScale2G), m.lastWrite(t, regAccelConfig))
	assert.Equal(t, byte(GyroScale250DPS), m.lastWrite(t, regGyroConfig))
}

func TestSelfTestExperimentalPerAxisEvaluation(t *testing.T) {
	m := newMockTransport()
	// Factory trim: X gets the max trim, Y and Z none.
	m.regs[regSelfTestXAccel] = []byte{0xFF}
	d, _ := newTestDriver(t, m, nil)

	// While any self-test bit is set, X deflects by ~100 mG at the base
	// dial; disabled reads are zero.
	m.onRead = func(reg byte, buf []byte) bool {
		if reg != regAccelXOutH {
			return false
		}
		if m.regs[regAccelConfig][0]&(maskSelfTestX|maskSelfTestY|maskSelfTestZ) != 0 {
			binary.BigEndian.PutUint16(buf[0:], uint16(1638))
			return true
		}
		return false
	}

	res, err := d.SelfTestExperimental(Accel, 0)
	require.NoError(t, err)
	assert.False(t, res.WithinTolerance, "response of ~100 mG exceeds 2×40 mG")
	// X exceeds its trim (~15.6 mG); Y and Z responses are zero.
	assert.Equal(t, [3]bool{false, true, true}, res.Passed)
	assert.InDelta(t, 100.0, res.Response[0], 0.1)
	assert.InDelta(t, 2000.0*255/32768, res.Trim[0], 1e-9)
}

func TestReadRegisterWriteThenRead(t *testing.T) {
	m := newMockTransport()
	d, sleeps := newTestDriver(t, m, nil)

	v := byte(0x5A)
	got, err := d.ReadRegister(0x10, &v, 1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x5A}, got)
	assert.Equal(t, 1, countSleeps(*sleeps, settleWrite))

	// Plain reads do not settle.
	*sleeps = nil
	_, err = d.ReadRegister(regWhoAmI, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, *sleeps)
}

func TestFactoryTrimCapturedAtInit(t *testing.T) {
	m := newMockTransport()
	m.regs[regSelfTestXAccel] = []byte{0x10}
	m.regs[regSelfTestYGyro] = []byte{0x80}
	d, _ := newTestDriver(t, m, nil)

	accelTrim, err := d.FactoryTrim(Accel)
	require.NoError(t, err)
	assert.InEpsilon(t, 2000.0*16/32768, accelTrim[0], 1e-9)
	assert.Zero(t, accelTrim[1])

	gyroTrim, err := d.FactoryTrim(Gyro)
	require.NoError(t, err)
	assert.InEpsilon(t, 250.0*128/32768, gyroTrim[1], 1e-9)

	_, err = d.FactoryTrim(Sensor(5))
	assert.ErrorIs(t, err, ErrUnsupportedSensor)
}
