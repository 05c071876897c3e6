package truetime

import (
	"context"
	"fmt"
)

type SystemEvent int

const (
	ClockChanged SystemEvent = iota
	DateChanged
	TimezoneChanged
	ConnectivityChanged
)

func (e SystemEvent) String() string {
	switch e {
	case ClockChanged:
		return "clock-changed"
	case DateChanged:
		return "date-changed"
	case TimezoneChanged:
		return "timezone-changed"
	case ConnectivityChanged:
		return "connectivity-changed"
	}
	return fmt.Sprintf("unknown(%d)", int(e))
}

// SystemEventHandler is implemented by TrueTime
type SystemEventHandler interface {
	OnSystemEvent()
}

// ConnectivityFunc tells is network available now
type ConnectivityFunc func() (bool, error)

/*
TimeChangeReactor feeds system events to TrueTime when network is available.
Events can come in bursts and repeat, each one is handled separately. Nothing raised while
reacting gets out, errors are only logged
*/
type TimeChangeReactor struct {
	target SystemEventHandler
	online ConnectivityFunc
}

func NewTimeChangeReactor(target SystemEventHandler, online ConnectivityFunc) (*TimeChangeReactor, error) {
	if target == nil {
		return nil, fmt.Errorf("nil event target")
	}
	if online == nil {
		online = NetworkConnected
	}
	return &TimeChangeReactor{target: target, online: online}, nil
}

//React handles one event
func (r *TimeChangeReactor) React(ev SystemEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Warn("reacting to system event failed", "event", ev.String(), "panic", fmt.Sprintf("%v", rec))
		}
	}()

	switch ev {
	case ClockChanged, DateChanged, TimezoneChanged, ConnectivityChanged:
	default:
		log.Debug("unknown system event ignored", "event", ev.String())
		return
	}
	log.Debug("system event", "event", ev.String())

	online, err := r.online()
	if err != nil {
		log.Warn("connectivity check failed", "event", ev.String(), "err", err)
		return
	}
	if !online {
		log.Debug("network not available, event ignored", "event", ev.String())
		return
	}
	r.target.OnSystemEvent()
}

//Run reacts to events until context is done or channel closed
func (r *TimeChangeReactor) Run(ctx context.Context, events <-chan SystemEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			r.React(ev)
		}
	}
}
