/*
System watcher.

Polls for changes that should re-anchor corrected time:
  - wall clock moved differently than monotonic clock (somebody set the time)
  - local date changed
  - timezone file or TZ changed
  - usable network interfaces changed. Bursts are collapsed until quiet for ConnectivityDebounce
*/
package truetime

import (
	"context"
	"fmt"
	"os"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
)

const (
	DEFAULTWATCHINTERVAL        = time.Second
	DEFAULTJUMPTHRESHOLD        = 2 * time.Second
	DEFAULTCONNECTIVITYDEBOUNCE = 400 * time.Millisecond
	DEFAULTLOCALTIMEPATH        = "/etc/localtime"
)

type WatcherConfig struct {
	PollInterval         time.Duration
	JumpThreshold        time.Duration
	ConnectivityDebounce time.Duration
	LocaltimePath        string
}

func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval:         DEFAULTWATCHINTERVAL,
		JumpThreshold:        DEFAULTJUMPTHRESHOLD,
		ConnectivityDebounce: DEFAULTCONNECTIVITYDEBOUNCE,
		LocaltimePath:        DEFAULTLOCALTIMEPATH,
	}
}

type SystemWatcher struct {
	conf       WatcherConfig
	clock      MonotonicClock
	wall       func() time.Time
	interfaces func() (psnet.InterfaceStatList, error)

	started   bool
	lastWall  time.Time
	lastMono  MsElapsed
	lastDate  string
	lastZone  string
	lastNet   string
	netMoved  bool
	netMovedT MsElapsed
}

func NewSystemWatcher(conf WatcherConfig, clock MonotonicClock) (*SystemWatcher, error) {
	if clock == nil {
		return nil, fmt.Errorf("nil monotonic clock")
	}
	def := DefaultWatcherConfig()
	if conf.PollInterval <= 0 {
		conf.PollInterval = def.PollInterval
	}
	if conf.JumpThreshold <= 0 {
		conf.JumpThreshold = def.JumpThreshold
	}
	if conf.ConnectivityDebounce < 0 {
		conf.ConnectivityDebounce = def.ConnectivityDebounce
	}
	if conf.LocaltimePath == "" {
		conf.LocaltimePath = def.LocaltimePath
	}
	return &SystemWatcher{
		conf:       conf,
		clock:      clock,
		wall:       time.Now,
		interfaces: listInterfaces,
	}, nil
}

//Run polls until context is done. Channel is closed after that
func (p *SystemWatcher) Run(ctx context.Context) <-chan SystemEvent {
	ch := make(chan SystemEvent, 8)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(p.conf.PollInterval)
		defer ticker.Stop()
		p.step()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			for _, ev := range p.step() {
				select {
				case ch <- ev:
				default:
					log.Trace("system event dropped, consumer busy", "event", ev.String())
				}
			}
		}
	}()
	return ch
}

//step takes one sample and returns events since previous one. First call only records state
func (p *SystemWatcher) step() []SystemEvent {
	wall := p.wall().Round(0) //Strip monotonic reading, wall clock is compared here
	mono := p.clock.ElapsedMillis()
	date := wall.Local().Format("2006-01-02")
	zone := localZoneStamp(p.conf.LocaltimePath)
	netSig, netErr := p.connectivity()

	if !p.started {
		p.started = true
		p.lastWall, p.lastMono, p.lastDate, p.lastZone = wall, mono, date, zone
		if netErr == nil {
			p.lastNet = netSig
		}
		return nil
	}

	result := []SystemEvent{}

	wallDelta := wall.Sub(p.lastWall)
	monoDelta := time.Duration(mono-p.lastMono) * time.Millisecond
	jump := wallDelta - monoDelta
	if jump < 0 {
		jump = -jump
	}
	if p.conf.JumpThreshold < jump {
		log.Debug("wall clock jump detected", "jump", jump.String())
		result = append(result, ClockChanged)
	}
	if date != p.lastDate {
		result = append(result, DateChanged)
	}
	if zone != p.lastZone {
		result = append(result, TimezoneChanged)
	}

	if netErr != nil {
		log.Trace("interface listing failed", "err", netErr)
	} else if netSig != p.lastNet {
		p.lastNet = netSig
		p.netMoved = true
		p.netMovedT = mono
	}
	if p.netMoved && time.Duration(mono-p.netMovedT)*time.Millisecond >= p.conf.ConnectivityDebounce {
		p.netMoved = false
		result = append(result, ConnectivityChanged)
	}

	p.lastWall, p.lastMono, p.lastDate, p.lastZone = wall, mono, date, zone
	return result
}

func (p *SystemWatcher) connectivity() (string, error) {
	ifaces, err := p.interfaces()
	if err != nil {
		return "", err
	}
	return connectivitySignature(ifaces), nil
}

//localZoneStamp changes when timezone configuration changes
func localZoneStamp(path string) string {
	tz := os.Getenv("TZ")
	if target, err := os.Readlink(path); err == nil {
		return "link:" + target + "|" + tz
	}
	fi, err := os.Stat(path)
	if err != nil {
		return "none|" + tz
	}
	return fmt.Sprintf("file:%d:%d|%s", fi.ModTime().UnixNano(), fi.Size(), tz)
}
