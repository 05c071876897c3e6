//go:build linux

/*
Helper functions for system clock.

Kernel tells with adjtimex is wall clock disciplined by some synchronization daemon.
Good for diagnostics: corrected time is needed when this says false
*/
package truetime

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// https://man7.org/linux/man-pages/man2/adjtimex.2.html
const (
	TIME_OK    = 0 //Clock synchronized, no leap second adjustment pending.
	TIME_ERROR = 5 //The system clock is not synchronized to a reliable server.
)

//KernelClockSynced uses adjtimex for checking is wall clock synchronized
func KernelClockSynced() (bool, error) {
	tx := unix.Timex{}
	state, err := unix.Adjtimex(&tx)
	if err != nil {
		return false, err
	}
	return state != TIME_ERROR, nil
}

func setSystemClock(ms int64) error {
	tv := unix.NsecToTimeval(ms * 1e6)
	if err := unix.Settimeofday(&tv); err != nil {
		return fmt.Errorf("settimeofday: %w", err)
	}
	log.Info("device time set", "epoch", ms)
	return nil
}
