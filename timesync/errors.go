package timesync

import "errors"

// ErrAllServersUnreachable is returned when every configured server failed within one attempt
var ErrAllServersUnreachable = errors.New("all servers unreachable")

// ErrInvalidServerList is returned when synchronizer is created without servers
var ErrInvalidServerList = errors.New("invalid server list")

// ErrNoUsableDate is returned when http servers do not give usable Date header
var ErrNoUsableDate = errors.New("no usable date")

// ErrInvalidResponse signals that exchange got answer that must not be used
var ErrInvalidResponse = errors.New("invalid time response")
