package config

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relabs-tech/mpu6886/internal/mpu6886"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker           string
	MQTTClientIDProducer string
	MQTTClientIDConsole  string
	MQTTClientIDDisplay  string

	// Topics
	TopicIMU string

	// IMU Hardware
	IMUI2CBus  string
	IMUAddress uint16

	// IMU Sensor Ranges
	// Accelerometer: 0=±2g, 1=±4g, 2=±8g, 3=±16g
	IMUAccelRange byte
	// Gyroscope: 0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s
	IMUGyroRange byte

	// IMU driver options
	IMUGravity         float64
	IMUDebug           bool
	IMUBaselinePauseMS int
	IMUBaselineDelayMS int
	IMUBaselineSamples int

	// Timing
	IMUSampleInterval int // milliseconds

	// Register debug web tool
	WebServerPort              int
	RegisterDebugAllowedRanges string

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//     Has package-level scope (visible to all functions in this package, persists for program lifetime).
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults mirrors mpu6886.DefaultOpts so a minimal config file still yields
// a working driver.
func defaults() *Config {
	return &Config{
		IMUAddress:            mpu6886.DefaultAddress,
		IMUGravity:            mpu6886.DefaultOpts.Gravity,
		IMUBaselinePauseMS:    int(mpu6886.DefaultOpts.BaselinePause / time.Millisecond),
		IMUBaselineDelayMS:    int(mpu6886.DefaultOpts.BaselineDelay / time.Millisecond),
		IMUBaselineSamples:    mpu6886.DefaultOpts.BaselineSamples,
		TopicIMU:              "imu/readings",
		WebServerPort:         8081,
		DisplayI2CAddr:        0x3C,
		DisplayUpdateInterval: 250,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_PRODUCER":
		c.MQTTClientIDProducer = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value

	// IMU Hardware
	case "IMU_I2C_BUS":
		c.IMUI2CBus = value
	case "IMU_ADDRESS":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid IMU_ADDRESS %q: %w", value, err)
		}
		c.IMUAddress = uint16(addr)

	// IMU Sensor Ranges
	case "IMU_ACCEL_FS":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_ACCEL_FS %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_ACCEL_FS must be 0-3 (0=±2g, 1=±4g, 2=±8g, 3=±16g), got %d", rangeVal)
		}
		c.IMUAccelRange = byte(rangeVal)
	case "IMU_GYRO_FS":
		rangeVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_GYRO_FS %q: %w", value, err)
		}
		if rangeVal < 0 || rangeVal > 3 {
			return fmt.Errorf("IMU_GYRO_FS must be 0-3 (0=±250°/s, 1=±500°/s, 2=±1000°/s, 3=±2000°/s), got %d", rangeVal)
		}
		c.IMUGyroRange = byte(rangeVal)

	// IMU driver options
	case "IMU_GRAVITY":
		g, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid IMU_GRAVITY %q: %w", value, err)
		}
		c.IMUGravity = g
	case "IMU_DEBUG":
		debug, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_DEBUG %q: %w", value, err)
		}
		c.IMUDebug = debug
	case "IMU_BASELINE_PAUSE_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_BASELINE_PAUSE_MS %q: %w", value, err)
		}
		c.IMUBaselinePauseMS = ms
	case "IMU_BASELINE_DELAY_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_BASELINE_DELAY_MS %q: %w", value, err)
		}
		c.IMUBaselineDelayMS = ms
	case "IMU_BASELINE_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_BASELINE_SAMPLES %q: %w", value, err)
		}
		if n < 1 {
			return fmt.Errorf("IMU_BASELINE_SAMPLES must be at least 1, got %d", n)
		}
		c.IMUBaselineSamples = n

	// Timing
	case "IMU_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.IMUSampleInterval = interval

	// Register debug web tool
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port
	case "REGISTER_DEBUG_ALLOWED_RANGES":
		c.RegisterDebugAllowedRanges = value

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		// Unrecognized driver options are reported and discarded rather
		// than aborting the load.
		if strings.HasPrefix(key, "IMU_") {
			log.Printf("config: ignoring invalid IMU option %q", key)
			return nil
		}
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.IMUSampleInterval == 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL is required")
	}
	return nil
}

// DriverOpts maps the configuration onto driver options.
func (c *Config) DriverOpts() *mpu6886.Opts {
	accelScales := [4]mpu6886.AccelScale{
		mpu6886.AccelScale2G, mpu6886.AccelScale4G, mpu6886.AccelScale8G, mpu6886.AccelScale16G,
	}
	gyroScales := [4]mpu6886.GyroScale{
		mpu6886.GyroScale250DPS, mpu6886.GyroScale500DPS, mpu6886.GyroScale1000DPS, mpu6886.GyroScale2000DPS,
	}
	return &mpu6886.Opts{
		Address:         c.IMUAddress,
		AccelScale:      accelScales[c.IMUAccelRange],
		GyroScale:       gyroScales[c.IMUGyroRange],
		Gravity:         c.IMUGravity,
		Debug:           c.IMUDebug,
		BaselinePause:   time.Duration(c.IMUBaselinePauseMS) * time.Millisecond,
		BaselineDelay:   time.Duration(c.IMUBaselineDelayMS) * time.Millisecond,
		BaselineSamples: c.IMUBaselineSamples,
	}
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
