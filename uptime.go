/*
Monotonic clocks.

Anchor needs clock that keeps running at steady pace and is not affected when somebody sets
wall clock. Elapsed time since boot is best, it keeps counting also on suspend.

UptimeClock is based on fact that golang time.Time includes "hidden" monotonic clock that is
used when doing time operations like diff.
https://pkg.go.dev/time#hdr-Monotonic_Clocks
/proc/uptime is read only once at creation (it has 0.01s granularity)
*/
package truetime

import (
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
)

// MonotonicClock gives milliseconds from some fixed point. Never jumps with wall clock
type MonotonicClock interface {
	ElapsedMillis() MsElapsed
}

// ClockFunc adapts function as MonotonicClock
type ClockFunc func() MsElapsed

func (f ClockFunc) ElapsedMillis() MsElapsed {
	return f()
}

type UptimeClock struct {
	createdUptime MsElapsed
	createdTime   time.Time //Get duration, it uses monotonic clock
}

//ElapsedMillis is uptime now
func (p *UptimeClock) ElapsedMillis() MsElapsed {
	return p.createdUptime + MsElapsed(time.Since(p.createdTime).Milliseconds())
}

//UptimeAt resolves what is uptime on specific timestamp. t must carry monotonic reading
func (p *UptimeClock) UptimeAt(t time.Time) (MsElapsed, error) {
	if p.createdUptime == 0 { //It can not be 0
		return 0, fmt.Errorf("uptime clock not initialized properly")
	}
	result := p.createdUptime + MsElapsed(t.Sub(p.createdTime).Milliseconds())
	if result < 0 {
		return result, fmt.Errorf("time %v is before boot", t)
	}
	return result, nil
}

func parseUptimeFile(content []byte) (MsElapsed, error) {
	a := strings.Fields(string(content))
	if len(a) != 2 {
		return 0, fmt.Errorf("invalid uptime format %s", content)
	}
	f, errParse := strconv.ParseFloat(a[0], 64)
	if errParse != nil {
		return 0, fmt.Errorf("invalid uptime format %s  (err %v)", content, errParse.Error())
	}
	return MsElapsed(f * 1000), nil
}

//Replace this global variable at tests
var procFS = os.DirFS("/proc")

//CreateUptimeClock reads uptime and sets creation time
func CreateUptimeClock() (*UptimeClock, error) {
	result := UptimeClock{}
	//Average of readings before and after
	rawUptime0, errRawUptime0 := fs.ReadFile(procFS, "uptime")
	result.createdTime = time.Now()
	rawUptime1, errRawUptime1 := fs.ReadFile(procFS, "uptime")

	if errRawUptime0 != nil {
		return nil, errRawUptime0
	}
	if errRawUptime1 != nil {
		return nil, errRawUptime1
	}

	ut0, utErr0 := parseUptimeFile(rawUptime0)
	if utErr0 != nil {
		return nil, utErr0
	}
	ut1, utErr1 := parseUptimeFile(rawUptime1)
	if utErr1 != nil {
		return nil, utErr1
	}

	result.createdUptime = (ut0 + ut1) / 2
	if result.createdUptime == 0 {
		result.createdUptime = 1
	}
	return &result, nil
}

// ProcessClock counts from its creation. Works everywhere, does not count suspend on all platforms
type ProcessClock struct {
	start time.Time
}

func NewProcessClock() *ProcessClock {
	return &ProcessClock{start: time.Now()}
}

func (p *ProcessClock) ElapsedMillis() MsElapsed {
	return MsElapsed(time.Since(p.start).Milliseconds())
}

//DefaultClock picks best available: boot clock, uptime clock, process clock
func DefaultClock() MonotonicClock {
	if c, err := NewBootClock(); err == nil {
		return c
	}
	if c, err := CreateUptimeClock(); err == nil {
		return c
	}
	log.Debug("no boot clock available, using process clock")
	return NewProcessClock()
}
