// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package mpu6886

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// Transport is the register bus the driver talks through. Both calls block
// until the bus transaction completes; any bus-level failure surfaces as an
// error. Implementations are bound to a single device address.
type Transport interface {
	WriteToRegister(reg byte, data []byte) error
	ReadFromRegister(reg byte, buf []byte) error
}

// I2CTransport is the production Transport over a periph.io I²C bus.
type I2CTransport struct {
	bus i2c.BusCloser
	dev *i2c.Dev
}

// NewI2CTransport opens the named I²C bus (empty string selects the first
// available one) and binds the 7-bit device address.
func NewI2CTransport(busName string, addr uint16) (*I2CTransport, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open I2C bus %q: %w", busName, err)
	}

	return &I2CTransport{
		bus: bus,
		dev: &i2c.Dev{Bus: bus, Addr: addr},
	}, nil
}

// WriteToRegister writes data to the register in one transaction.
func (t *I2CTransport) WriteToRegister(reg byte, data []byte) error {
	w := make([]byte, 0, 1+len(data))
	w = append(w, reg)
	w = append(w, data...)
	return t.dev.Tx(w, nil)
}

// ReadFromRegister fills buf starting at the register address.
func (t *I2CTransport) ReadFromRegister(reg byte, buf []byte) error {
	return t.dev.Tx([]byte{reg}, buf)
}

// Close releases the underlying bus.
func (t *I2CTransport) Close() error {
	return t.bus.Close()
}
