// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package gpu

import (
	"errors"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/wgpu/hal"
)

// ErrNoHAL is returned when a device provider does not expose HAL types.
var ErrNoHAL = errors.New("gpu: provider does not expose HAL device and queue")

// halProvider is implemented by device providers that give direct HAL
// access.
type halProvider interface {
	HalDevice() any
	HalQueue() any
}

// FromProvider returns the HAL device and queue of a host application's
// device provider, so buckets upload into the host's device instead of
// creating their own.
func FromProvider(p gpucontext.DeviceProvider) (hal.Device, hal.Queue, error) {
	hp, ok := p.(halProvider)
	if !ok {
		return nil, nil, ErrNoHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, nil, errors.Join(ErrNoHAL, errors.New("gpu: provider HalDevice is not hal.Device"))
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, nil, errors.Join(ErrNoHAL, errors.New("gpu: provider HalQueue is not hal.Queue"))
	}
	slogger().Debug("gpu: using provider device")
	return device, queue, nil
}
