// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/relabs-tech/mpu6886/internal/app"
	"github.com/relabs-tech/mpu6886/internal/config"
	"github.com/relabs-tech/mpu6886/internal/mpu6886"
)

func main() {
	configPath := flag.String("config", "./mpu6886_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting MPU6886 register debug tool (standalone)")

	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Get()

	drv, err := mpu6886.NewI2C(cfg.IMUI2CBus, cfg.DriverOpts())
	if err != nil {
		log.Fatalf("failed to initialize MPU6886: %v", err)
	}
	defer drv.Close()
	log.Printf("MPU6886 initialized at 0x%02X", cfg.IMUAddress)

	srv := app.NewRegisterDebugServer(drv)

	http.HandleFunc("/ws", srv.HandleWS)

	// API endpoint for live IMU data
	http.HandleFunc("/api/imu", srv.HandleIMUData)

	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "web/register_debug.html")
	})

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("Register debug tool listening on %s", addr)
	log.Printf("Open http://localhost%s in your browser", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
