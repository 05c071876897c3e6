//go:build !linux

package truetime

import "fmt"

type BootClock struct{}

func NewBootClock() (*BootClock, error) {
	return nil, fmt.Errorf("boot clock not supported on this platform")
}

func (p *BootClock) ElapsedMillis() MsElapsed {
	return 0
}
