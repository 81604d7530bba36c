package app

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/relabs-tech/mpu6886/internal/config"
	"github.com/relabs-tech/mpu6886/internal/imu"
	"github.com/relabs-tech/mpu6886/internal/mpu6886"
)

// openDriver constructs the MPU6886 driver from the global configuration.
func openDriver() (*mpu6886.Driver, error) {
	cfg := config.Get()
	drv, err := mpu6886.NewI2C(cfg.IMUI2CBus, cfg.DriverOpts())
	if err != nil {
		return nil, fmt.Errorf("MPU6886 at 0x%02X: %w", cfg.IMUAddress, err)
	}
	opts := drv.Opts()
	log.Printf("imu: MPU6886 initialized at 0x%02X (accel %s, gyro %s)",
		cfg.IMUAddress, opts.AccelScale, opts.GyroScale)
	return drv, nil
}

// logSelfTest runs the factory-trim self-test for one sensor and logs the
// outcome. Failures are warnings; the caller keeps running.
func logSelfTest(drv *mpu6886.Driver, s mpu6886.Sensor) {
	res, err := drv.SelfTestExperimental(s, 0)
	if err != nil {
		log.Printf("Warning: %s self-test failed: %v", s, err)
		return
	}
	if res.WithinTolerance {
		log.Printf("%s self-test passed: max response within 2*%.0f", s, res.Tolerance)
		return
	}
	log.Printf("%s self-test per-axis: X=%v Y=%v Z=%v (response %.1f/%.1f/%.1f vs trim %.1f/%.1f/%.1f)",
		s, res.Passed[0], res.Passed[1], res.Passed[2],
		res.Response[0], res.Response[1], res.Response[2],
		res.Trim[0], res.Trim[1], res.Trim[2])
}

// RunIMUProducer reads the MPU6886 on a fixed interval and publishes
// calibrated readings over MQTT.
func RunIMUProducer() error {
	log.Println("starting MPU6886 telemetry producer")

	cfg := config.Get()

	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	logSelfTest(drv, mpu6886.Accel)
	logSelfTest(drv, mpu6886.Gyro)

	// --- connect to MQTT ---
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDProducer)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT connect: %w", token.Error())
	}
	defer client.Disconnect(250)

	log.Println("connected to MQTT, starting publish loop")

	// main tick
	ticker := time.NewTicker(time.Duration(cfg.IMUSampleInterval) * time.Millisecond)
	defer ticker.Stop()

	for t := range ticker.C {
		accel, err := drv.Acceleration()
		if err != nil {
			log.Printf("error reading acceleration: %v", err)
			continue
		}
		gyro, err := drv.Gyro()
		if err != nil {
			log.Printf("error reading gyro: %v", err)
			continue
		}
		temp, err := drv.Temperature()
		if err != nil {
			log.Printf("error reading temperature: %v", err)
			continue
		}

		reading := imu.Reading{
			Accel: accel,
			Gyro:  gyro,
			TempF: temp,
			Time:  t.Format(time.RFC3339Nano),
		}
		payload, err := json.Marshal(reading)
		if err != nil {
			log.Printf("reading marshal error: %v", err)
			continue
		}
		if token := client.Publish(cfg.TopicIMU, 0, true, payload); token.Wait() && token.Error() != nil {
			log.Printf("MQTT publish error (%s): %v", cfg.TopicIMU, token.Error())
		}
	}
	return nil
}
