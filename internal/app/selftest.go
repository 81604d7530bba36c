package app

import (
	"fmt"
	"log"

	"github.com/relabs-tech/mpu6886/internal/mpu6886"
)

// RunSelfTest exercises the full driver surface once: a burst of calibrated
// reads, both self-test strategies, temperature and the active options.
// Intended as a bring-up and bench diagnostic.
func RunSelfTest() error {
	drv, err := openDriver()
	if err != nil {
		return err
	}
	defer drv.Close()

	opts := drv.Opts()

	fmt.Printf("running accel reads, fs %s\n", opts.AccelScale)
	for i := 0; i < 5; i++ {
		s, err := drv.Acceleration()
		if err != nil {
			return fmt.Errorf("acceleration read %d: %w", i+1, err)
		}
		fmt.Printf("%d > %8.1f %8.1f %8.1f %s\n", i+1, s.X, s.Y, s.Z, s.Unit)
	}

	fmt.Printf("running gyro reads, fs %s\n", opts.GyroScale)
	for i := 0; i < 5; i++ {
		s, err := drv.Gyro()
		if err != nil {
			return fmt.Errorf("gyro read %d: %w", i+1, err)
		}
		fmt.Printf("%d > %8.2f %8.2f %8.2f %s\n", i+1, s.X, s.Y, s.Z, s.Unit)
	}

	fmt.Println("running factory-trim self tests")
	logSelfTest(drv, mpu6886.Accel)
	logSelfTest(drv, mpu6886.Gyro)

	fmt.Println("running per-axis baseline self tests")
	for _, s := range []mpu6886.Sensor{mpu6886.Accel, mpu6886.Gyro} {
		base, _ := drv.Baseline(s)
		fmt.Printf("%s baseline avg %8.2f %8.2f %8.2f %s (tolerance %.3f/%.3f/%.3f %%)\n",
			s, base.Avg.X, base.Avg.Y, base.Avg.Z, base.Avg.Unit,
			base.Tolerance.X, base.Tolerance.Y, base.Tolerance.Z)
		for _, axis := range []mpu6886.Axis{mpu6886.AxisX, mpu6886.AxisY, mpu6886.AxisZ} {
			dev, err := drv.SelfTest(s, axis)
			if err != nil {
				log.Printf("Warning: %s axis %s self-test failed: %v", s, axis, err)
				continue
			}
			fmt.Printf("%s axis %s deviation %8.2f %8.2f %8.2f %s\n",
				s, axis, dev.X, dev.Y, dev.Z, dev.Unit)
		}
	}

	temp, err := drv.Temperature()
	if err != nil {
		return fmt.Errorf("temperature: %w", err)
	}
	fmt.Printf("die temperature: %.1f F\n", temp)

	fmt.Println("active options:")
	fmt.Printf("  address      -> 0x%02X\n", opts.Address)
	fmt.Printf("  accel fs     -> %s\n", opts.AccelScale)
	fmt.Printf("  gyro fs      -> %s\n", opts.GyroScale)
	fmt.Printf("  gravity      -> %.6f\n", opts.Gravity)
	fmt.Printf("  baseline     -> %d samples, %s delay, %s pause\n",
		opts.BaselineSamples, opts.BaselineDelay, opts.BaselinePause)
	fmt.Printf("  debug        -> %v\n", opts.Debug)
	return nil
}
