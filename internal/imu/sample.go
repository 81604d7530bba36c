package imu

// Unit tags the physical unit of a sample so consumers never have to guess
// whether a triple is milli-g or degrees per second.
type Unit string

const (
	// MilliG is acceleration in thousandths of standard gravity.
	MilliG Unit = "mG"
	// DegPerSec is angular rate in degrees per second.
	DegPerSec Unit = "dps"
	// MeterPerSec2 is acceleration in m/s².
	MeterPerSec2 Unit = "m/s2"
	// Percent marks a tolerance triple relative to the full-scale dial.
	Percent Unit = "%"
)

// Sample is a single calibrated X/Y/Z triple in the tagged unit.
type Sample struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
	Unit Unit    `json:"unit"`
}

// Reading is one full telemetry record as published over MQTT.
type Reading struct {
	Accel Sample  `json:"accel"`
	Gyro  Sample  `json:"gyro"`
	TempF float64 `json:"temp_f"`
	Time  string  `json:"time"`
}
