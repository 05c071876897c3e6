//go:build linux

package truetime

import (
	"golang.org/x/sys/unix"
)

// BootClock reads CLOCK_BOOTTIME. Includes time spent in suspend
type BootClock struct{}

func NewBootClock() (*BootClock, error) {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		return nil, err
	}
	return &BootClock{}, nil
}

func (p *BootClock) ElapsedMillis() MsElapsed {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_BOOTTIME, &ts); err != nil {
		//Checked at creation, can not fail later
		panic(err)
	}
	return MsElapsed(ts.Nano() / 1e6)
}
