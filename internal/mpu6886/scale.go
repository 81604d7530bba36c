package mpu6886

import "fmt"

// AccelScale selects the accelerometer full-scale range. The values are the
// exact ACCEL_CONFIG register masks.
type AccelScale byte

const (
	AccelScale2G  AccelScale = 0x00
	AccelScale4G  AccelScale = 0x08
	AccelScale8G  AccelScale = 0x10
	AccelScale16G AccelScale = 0x18
)

// accelDials maps each accelerometer full-scale selector to its dial in mG.
// A raw reading of 32768 corresponds to the full dial.
var accelDials = map[AccelScale]float64{
	AccelScale2G:  2000,
	AccelScale4G:  4000,
	AccelScale8G:  8000,
	AccelScale16G: 16000,
}

// Dial returns the full-scale magnitude in mG, or an error for a selector
// that is not one of the four defined ranges.
func (s AccelScale) Dial() (float64, error) {
	dial, ok := accelDials[s]
	if !ok {
		return 0, fmt.Errorf("invalid accel full-scale selector 0x%02X", byte(s))
	}
	return dial, nil
}

func (s AccelScale) String() string {
	if dial, err := s.Dial(); err == nil {
		return fmt.Sprintf("±%.0fG", dial/1000)
	}
	return fmt.Sprintf("AccelScale(0x%02X)", byte(s))
}

// GyroScale selects the gyroscope full-scale range. The values are the exact
// GYRO_CONFIG register masks.
type GyroScale byte

const (
	GyroScale250DPS  GyroScale = 0x00
	GyroScale500DPS  GyroScale = 0x08
	GyroScale1000DPS GyroScale = 0x10
	GyroScale2000DPS GyroScale = 0x18
)

// gyroDials maps each gyroscope full-scale selector to its dial in deg/s.
var gyroDials = map[GyroScale]float64{
	GyroScale250DPS:  250,
	GyroScale500DPS:  500,
	GyroScale1000DPS: 1000,
	GyroScale2000DPS: 2000,
}

// Dial returns the full-scale magnitude in deg/s, or an error for a selector
// that is not one of the four defined ranges.
func (s GyroScale) Dial() (float64, error) {
	dial, ok := gyroDials[s]
	if !ok {
		return 0, fmt.Errorf("invalid gyro full-scale selector 0x%02X", byte(s))
	}
	return dial, nil
}

func (s GyroScale) String() string {
	if dial, err := s.Dial(); err == nil {
		return fmt.Sprintf("±%.0f°/s", dial)
	}
	return fmt.Sprintf("GyroScale(0x%02X)", byte(s))
}

// Sensor names one of the two sensors on the die.
type Sensor int

const (
	Accel Sensor = iota
	Gyro
)

func (s Sensor) String() string {
	switch s {
	case Accel:
		return "accel"
	case Gyro:
		return "gyro"
	default:
		return fmt.Sprintf("Sensor(%d)", int(s))
	}
}

// Axis names one axis for per-axis self-test.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// selfTestMask returns the config-register self-test mask for the axis.
func (a Axis) selfTestMask() (byte, error) {
	switch a {
	case AxisX:
		return maskSelfTestX, nil
	case AxisY:
		return maskSelfTestY, nil
	case AxisZ:
		return maskSelfTestZ, nil
	default:
		return 0, fmt.Errorf("invalid axis %d", int(a))
	}
}
