//go:build !linux

package truetime

import "fmt"

func KernelClockSynced() (bool, error) {
	return false, fmt.Errorf("kernel clock state: %w", ErrDeviceTimeUnsupported)
}

func setSystemClock(ms int64) error {
	return ErrDeviceTimeUnsupported
}
