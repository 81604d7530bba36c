// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu6886

// MPU6886 register addresses.
const (
	regSelfTestXAccel = 0x0D
	regSelfTestYAccel = 0x0E
	regSelfTestZAccel = 0x0F
	regGyroConfig     = 0x1B
	regAccelConfig    = 0x1C
	regAccelXOutH     = 0x3B
	regTempOutH       = 0x41
	regGyroXOutH      = 0x43
	regSelfTestXGyro  = 0x50
	regSelfTestYGyro  = 0x51
	regSelfTestZGyro  = 0x52
	regPwrMgmt1       = 0x6B
	regWhoAmI         = 0x75
)

// PWR_MGMT_1 masks.
const (
	maskGyroStandby = 0x10
	maskClkSelAuto  = 0x01
)

// whoAmIResponse is the identity byte the MPU6886 returns from WHO_AM_I.
const whoAmIResponse = 0x19

// Self-test enable masks for GYRO_CONFIG / ACCEL_CONFIG. Enabling an axis
// also clears the FS_SEL bits, so self-test readings happen at the base
// full-scale range.
const (
	maskSelfTestX = 0x80
	maskSelfTestY = 0x40
	maskSelfTestZ = 0x20
)

// Temperature conversion constants from the MPU6886 datasheet.
const (
	tempSensitivity = 326.8
	tempOffsetC     = 25.0
)

// BitField describes one named field inside a register.
type BitField struct {
	Bits        string `json:"bits"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Values      string `json:"values,omitempty"`
}

// RegisterInfo is the metadata for one register, used by the register
// debug tool.
type RegisterInfo struct {
	Address     string     `json:"address"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Access      string     `json:"access"` // "R", "W", "RW"
	Default     string     `json:"default,omitempty"`
	BitFields   []BitField `json:"bit_fields,omitempty"`
}

// RegisterMap returns metadata for the MPU6886 registers this driver touches.
func RegisterMap() []RegisterInfo {
	return []RegisterInfo{
		// Self-test factory trim
		{Address: "0x0D", Name: "SELF_TEST_X_ACCEL", Description: "Accelerometer X-axis factory trim", Access: "R"},
		{Address: "0x0E", Name: "SELF_TEST_Y_ACCEL", Description: "Accelerometer Y-axis factory trim", Access: "R"},
		{Address: "0x0F", Name: "SELF_TEST_Z_ACCEL", Description: "Accelerometer Z-axis factory trim", Access: "R"},
		{Address: "0x50", Name: "SELF_TEST_X_GYRO", Description: "Gyroscope X-axis factory trim", Access: "R"},
		{Address: "0x51", Name: "SELF_TEST_Y_GYRO", Description: "Gyroscope Y-axis factory trim", Access: "R"},
		{Address: "0x52", Name: "SELF_TEST_Z_GYRO", Description: "Gyroscope Z-axis factory trim", Access: "R"},

		// Configuration
		{Address: "0x1B", Name: "GYRO_CONFIG", Description: "Gyroscope Configuration", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "XG_ST", Description: "X gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "YG_ST", Description: "Y gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "ZG_ST", Description: "Z gyro self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4:3", Name: "GYRO_FS_SEL", Description: "Gyro full-scale range", Values: "0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s"},
				{Bits: "1:0", Name: "FCHOICE_B", Description: "Gyro DLPF bypass", Values: "0=DLPF enabled"},
			}},
		{Address: "0x1C", Name: "ACCEL_CONFIG", Description: "Accelerometer Configuration", Access: "RW", Default: "0x00",
			BitFields: []BitField{
				{Bits: "7", Name: "XA_ST", Description: "X accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "6", Name: "YA_ST", Description: "Y accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "5", Name: "ZA_ST", Description: "Z accel self-test", Values: "0=Disabled, 1=Enabled"},
				{Bits: "4:3", Name: "ACCEL_FS_SEL", Description: "Accel full-scale range", Values: "0=±2g, 1=±4g, 2=±8g, 3=±16g"},
			}},

		// Sensor data (read-only, big-endian int16 pairs)
		{Address: "0x3B", Name: "ACCEL_XOUT_H", Description: "Accelerometer X-axis high byte", Access: "R"},
		{Address: "0x3C", Name: "ACCEL_XOUT_L", Description: "Accelerometer X-axis low byte", Access: "R"},
		{Address: "0x3D", Name: "ACCEL_YOUT_H", Description: "Accelerometer Y-axis high byte", Access: "R"},
		{Address: "0x3E", Name: "ACCEL_YOUT_L", Description: "Accelerometer Y-axis low byte", Access: "R"},
		{Address: "0x3F", Name: "ACCEL_ZOUT_H", Description: "Accelerometer Z-axis high byte", Access: "R"},
		{Address: "0x40", Name: "ACCEL_ZOUT_L", Description: "Accelerometer Z-axis low byte", Access: "R"},
		{Address: "0x41", Name: "TEMP_OUT_H", Description: "Temperature high byte", Access: "R"},
		{Address: "0x42", Name: "TEMP_OUT_L", Description: "Temperature low byte", Access: "R"},
		{Address: "0x43", Name: "GYRO_XOUT_H", Description: "Gyroscope X-axis high byte", Access: "R"},
		{Address: "0x44", Name: "GYRO_XOUT_L", Description: "Gyroscope X-axis low byte", Access: "R"},
		{Address: "0x45", Name: "GYRO_YOUT_H", Description: "Gyroscope Y-axis high byte", Access: "R"},
		{Address: "0x46", Name: "GYRO_YOUT_L", Description: "Gyroscope Y-axis low byte", Access: "R"},
		{Address: "0x47", Name: "GYRO_ZOUT_H", Description: "Gyroscope Z-axis high byte", Access: "R"},
		{Address: "0x48", Name: "GYRO_ZOUT_L", Description: "Gyroscope Z-axis low byte", Access: "R"},

		// Power management
		{Address: "0x6B", Name: "PWR_MGMT_1", Description: "Power Management 1", Access: "RW", Default: "0x01",
			BitFields: []BitField{
				{Bits: "7", Name: "DEVICE_RESET", Description: "Device reset", Values: "1=Reset device"},
				{Bits: "6", Name: "SLEEP", Description: "Sleep mode", Values: "0=Disabled, 1=Sleep"},
				{Bits: "5", Name: "CYCLE", Description: "Cycle mode", Values: "0=Disabled, 1=Cycle"},
				{Bits: "4", Name: "GYRO_STANDBY", Description: "Gyro low-power standby", Values: "0=Normal, 1=Standby"},
				{Bits: "3", Name: "TEMP_DIS", Description: "Temperature sensor", Values: "0=Enabled, 1=Disabled"},
				{Bits: "2:0", Name: "CLKSEL", Description: "Clock source", Values: "0=Internal 20MHz, 1=Auto select best"},
			}},

		// Identification
		{Address: "0x75", Name: "WHO_AM_I", Description: "Device ID (should be 0x19)", Access: "R", Default: "0x19"},
	}
}
