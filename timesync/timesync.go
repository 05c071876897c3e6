/*
Timesync library for getting corrected wall clock time from external sources like NTP

Every Synchronizer call is a complete and independent measurement. Returned
value is milliseconds since unix epoch, valid at the moment Sync returns.
*/
package timesync

import (
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("truetime/timesync")

// Synchronizer produces one corrected time sample
type Synchronizer interface {
	//Sync returns corrected unix epoch milliseconds
	Sync() (int64, error)
}

// SynchronizerFunc adapts plain function to Synchronizer
type SynchronizerFunc func() (int64, error)

func (f SynchronizerFunc) Sync() (int64, error) {
	return f()
}

// ElapsedFunc reads monotonic milliseconds. Must not jump when wall clock is changed
type ElapsedFunc func() int64

// Exchange is result of one network round trip
type Exchange struct {
	NtpMillis     int64 //Network time in unix epoch milliseconds
	ElapsedMillis int64 //Monotonic reading when NtpMillis was valid
}

// Exchanger does one round trip against one host
type Exchanger interface {
	Exchange(host string, timeout time.Duration) (Exchange, error)
}

// ExchangerFunc adapts plain function to Exchanger. Handy on tests
type ExchangerFunc func(host string, timeout time.Duration) (Exchange, error)

func (f ExchangerFunc) Exchange(host string, timeout time.Duration) (Exchange, error) {
	return f(host, timeout)
}
