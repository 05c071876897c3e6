package timesync

import (
	"fmt"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/beevik/nts"
)

// NtsSession is part of nts.Session used here
type NtsSession interface {
	Query() (*ntp.Response, error)
}

/*
NtsExchange is authenticated alternative for SntpExchange. Key exchange is done once per host
and session is reused while it keeps answering.

Library does not take timeout so each attempt runs on own goroutine. Timed out goroutine is
left to finish by itself. It keeps its session checked out so later attempts do key exchange
of their own and never share it
*/
type NtsExchange struct {
	elapsed    ElapsedFunc
	now        func() time.Time
	newSession func(host string) (NtsSession, error)

	mu       sync.Mutex
	sessions map[string]NtsSession
}

func NewNtsExchange(elapsed ElapsedFunc) (*NtsExchange, error) {
	if elapsed == nil {
		return nil, fmt.Errorf("nil elapsed clock")
	}
	return &NtsExchange{
		elapsed: elapsed,
		now:     time.Now,
		newSession: func(host string) (NtsSession, error) {
			return nts.NewSession(host)
		},
		sessions: make(map[string]NtsSession),
	}, nil
}

//checkout takes cached session out of cache or does new key exchange without holding lock
func (p *NtsExchange) checkout(host string) (NtsSession, error) {
	p.mu.Lock()
	s, haveSession := p.sessions[host]
	delete(p.sessions, host)
	p.mu.Unlock()
	if haveSession {
		return s, nil
	}

	s, err := p.newSession(host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NTS server at %s: %w", host, err)
	}
	log.Debug("nts session created", "host", host)
	return s, nil
}

//checkin returns working session to cache. Only one query runs on a session at time
func (p *NtsExchange) checkin(host string, s NtsSession) {
	p.mu.Lock()
	if _, haveSession := p.sessions[host]; !haveSession {
		p.sessions[host] = s
	}
	p.mu.Unlock()
}

type ntsResult struct {
	ex  Exchange
	err error
}

func (p *NtsExchange) Exchange(host string, timeout time.Duration) (Exchange, error) {
	ch := make(chan ntsResult, 1)
	go func() {
		ex, err := p.exchange(host)
		ch <- ntsResult{ex: ex, err: err}
	}()

	select {
	case r := <-ch:
		return r.ex, r.err
	case <-time.After(timeout):
		return Exchange{}, fmt.Errorf("nts query %s timed out after %v", host, timeout)
	}
}

func (p *NtsExchange) exchange(host string) (Exchange, error) {
	s, err := p.checkout(host)
	if err != nil {
		return Exchange{}, err
	}
	resp, err := s.Query()
	if err != nil {
		//Cookies might be spent or server restarted. Session is not returned, new key exchange next time
		return Exchange{}, fmt.Errorf("failed to query time from NTS server: %w", err)
	}
	wall := p.now()
	el := p.elapsed()
	p.checkin(host, s)
	if errValid := resp.Validate(); errValid != nil {
		return Exchange{}, fmt.Errorf("%w: %v", ErrInvalidResponse, errValid)
	}
	return Exchange{
		NtpMillis:     wall.Add(resp.ClockOffset).UnixMilli(),
		ElapsedMillis: el,
	}, nil
}
