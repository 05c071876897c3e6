package truetime

import (
	"errors"

	"github.com/hjkoskel/truetime/timesync"
)

// ErrNotSynced is returned when corrected time is read before first successful sync
var ErrNotSynced = errors.New("time is not synced, call Sync or SyncAsync first")

// ErrDeviceTimeUnsupported is returned by SetDeviceTime where system clock can not be set
var ErrDeviceTimeUnsupported = errors.New("setting device time is not supported")

var (
	ErrAllServersUnreachable = timesync.ErrAllServersUnreachable
	ErrInvalidServerList     = timesync.ErrInvalidServerList
)
