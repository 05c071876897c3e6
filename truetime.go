/*
TrueTime

Corrected wall clock time for process. One network measurement is turned into anchor and
current time is projected from monotonic clock, so it stays correct even if somebody changes
system clock later.

Create one TrueTime per process with New or CreateDefaultTrueTime before subscribing to
system events and pass it to users.
*/
package truetime

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hjkoskel/truetime/timesync"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("truetime")

type synchronizerRef struct {
	s timesync.Synchronizer
}

type TrueTime struct {
	anchor ClockAnchor
	clock  MonotonicClock
	wall   func() time.Time

	syncMu sync.Mutex //Held from synchronizer call to state reset

	stateMu  sync.Mutex
	pending  uint32
	inFlight bool
	worker   sync.WaitGroup

	synchronizer atomic.Pointer[synchronizerRef]
	onFailure    atomic.Pointer[func(error)]

	callbacks     CallbackRegistry
	dispatcher    Dispatcher
	ownDispatcher *SerialDispatcher

	history       *SyncLog
	metrics       *Metrics
	resyncOnEvent bool
}

type Option func(*TrueTime)

//WithDispatcher delivers callbacks on given execution context instead of own goroutine
func WithDispatcher(d Dispatcher) Option {
	return func(p *TrueTime) {
		p.dispatcher = d
	}
}

//WithSyncLog records every anchor set by synchronization
func WithSyncLog(l *SyncLog) Option {
	return func(p *TrueTime) {
		p.history = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *TrueTime) {
		p.metrics = m
	}
}

//WithWallClock replaces time.Now as local system clock. For tests
func WithWallClock(fn func() time.Time) Option {
	return func(p *TrueTime) {
		p.wall = fn
	}
}

//WithResyncOnSystemEvent makes synced instance probe network on system events instead of rebasing anchor
func WithResyncOnSystemEvent(resync bool) Option {
	return func(p *TrueTime) {
		p.resyncOnEvent = resync
	}
}

//New creates TrueTime. Not synced until first successful Sync or SyncAsync
func New(clock MonotonicClock, s timesync.Synchronizer, opts ...Option) (*TrueTime, error) {
	if clock == nil {
		return nil, fmt.Errorf("nil monotonic clock")
	}
	if s == nil {
		return nil, fmt.Errorf("nil synchronizer")
	}
	result := &TrueTime{
		clock: clock,
		wall:  time.Now,
	}
	result.synchronizer.Store(&synchronizerRef{s: s})
	for _, opt := range opts {
		opt(result)
	}
	if result.dispatcher == nil {
		result.ownDispatcher = NewSerialDispatcher()
		result.dispatcher = result.ownDispatcher
	}
	return result, nil
}

//IsSynced true after first successful sync, stays true
func (p *TrueTime) IsSynced() bool {
	return p.anchor.IsSynced()
}

//IsSyncing true while asynchronous sync is running or requests are pending
func (p *TrueTime) IsSyncing() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.inFlight || 0 < p.pending
}

//PendingCount is number of asynchronous requests waiting for running sync
func (p *TrueTime) PendingCount() uint32 {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.pending
}

//Anchor returns current anchor, false if not synced
func (p *TrueTime) Anchor() (Anchor, bool) {
	return p.anchor.Get()
}

//Synchronizer currently active
func (p *TrueTime) Synchronizer() timesync.Synchronizer {
	return p.synchronizer.Load().s
}

//SetSynchronizer swaps synchronizer. Running sync finishes with the one it started with
func (p *TrueTime) SetSynchronizer(s timesync.Synchronizer) {
	if s == nil {
		log.Warn("nil synchronizer ignored")
		return
	}
	p.synchronizer.Store(&synchronizerRef{s: s})
}

func (p *TrueTime) AddCallback(cb Callback) {
	p.callbacks.Add(cb)
}

func (p *TrueTime) RemoveCallback(cb Callback) {
	p.callbacks.Remove(cb)
}

//SetFailureHandler is called on dispatcher when asynchronous sync fails. nil removes
func (p *TrueTime) SetFailureHandler(fn func(err error)) {
	if fn == nil {
		p.onFailure.Store(nil)
		return
	}
	p.onFailure.Store(&fn)
}

//History returns sync log given at creation, might be nil
func (p *TrueTime) History() *SyncLog {
	return p.history
}

//Sync measures now on caller goroutine. Failed sync keeps previous anchor
func (p *TrueTime) Sync() (int64, error) {
	return p.syncLocked("blocking", func() {
		p.stateMu.Lock()
		p.pending = 0
		p.stateMu.Unlock()
	})
}

/*
SyncAsync starts background sync. If one is already running this request joins it and sees
result through callbacks. Failures are only logged (and given to failure handler if set)
*/
func (p *TrueTime) SyncAsync() {
	p.stateMu.Lock()
	p.pending++
	if p.inFlight {
		pending := p.pending
		p.stateMu.Unlock()
		p.metrics.coalescedRequest()
		log.Trace("sync already running, request joined", "pending", pending)
		return
	}
	p.inFlight = true
	p.worker.Add(1)
	p.stateMu.Unlock()

	go p.asyncWorker()
}

func (p *TrueTime) asyncWorker() {
	defer p.worker.Done()

	_, err := p.syncLocked("async", func() {
		p.stateMu.Lock()
		p.pending = 0
		p.inFlight = false
		p.stateMu.Unlock()
	})
	if err != nil {
		log.Warn("async time sync failed", "synced", p.IsSynced(), "err", err)
		if h := p.onFailure.Load(); h != nil {
			fn := *h
			p.dispatcher.Dispatch(func() { fn(err) })
		}
		return
	}
	p.callbacks.NotifyAll(p.dispatcher, p.CurrentTimeMillisOrDefault())
}

func (p *TrueTime) syncLocked(mode string, finish func()) (int64, error) {
	p.syncMu.Lock()
	defer p.syncMu.Unlock()
	defer finish()

	s := p.Synchronizer()
	measured, err := callSynchronizer(s)
	if err == nil {
		err = p.setAnchor(MsEpoch(measured))
	}
	p.metrics.syncDone(mode, err)
	if err != nil {
		return 0, err
	}
	return measured, nil
}

func callSynchronizer(s timesync.Synchronizer) (result int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("synchronizer panicked: %v", r)
		}
	}()
	return s.Sync()
}

func (p *TrueTime) setAnchor(measured MsEpoch) error {
	now := p.clock.ElapsedMillis()
	if err := p.anchor.Set(measured, now); err != nil {
		return fmt.Errorf("synchronizer gave unusable time: %w", err)
	}
	a := Anchor{Epoch: measured, Elapsed: now}
	offset := int64(measured) - p.wall().UnixMilli()
	log.Debug("anchor set", "epoch", a.Epoch, "elapsed", a.Elapsed, "offsetMs", offset)
	p.metrics.anchorSet(offset)
	if errLog := p.history.Insert(a); errLog != nil {
		log.Debug("anchor not logged", "err", errLog)
	}
	return nil
}

/*
OnSystemEvent is called when system clock, date, timezone or connectivity changes.

When synced the anchor is rebased to now without network probe; corrected time does not
change. When not synced, asynchronous sync is started or joined
*/
func (p *TrueTime) OnSystemEvent() {
	if p.IsSynced() {
		if p.resyncOnEvent {
			p.SyncAsync()
			return
		}
		if !p.anchor.Rebase(p.clock.ElapsedMillis()) {
			log.Debug("anchor replaced during rebase, newer kept")
		}
		return
	}
	if p.IsSyncing() {
		log.Debug("system event while syncing, waiting")
	}
	p.SyncAsync()
}

//CurrentTimeMillis corrected unix epoch milliseconds
func (p *TrueTime) CurrentTimeMillis() (int64, error) {
	a, synced := p.anchor.Get()
	if !synced {
		return 0, ErrNotSynced
	}
	return int64(a.Project(p.clock.ElapsedMillis())), nil
}

//CurrentTimeMillisOrDefault falls back to system clock when not synced
func (p *TrueTime) CurrentTimeMillisOrDefault() int64 {
	result, err := p.CurrentTimeMillis()
	if err != nil {
		return p.wall().UnixMilli()
	}
	return result
}

//Now is CurrentTimeMillis as time.Time
func (p *TrueTime) Now() (time.Time, error) {
	ms, err := p.CurrentTimeMillis()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

//SetDeviceTime writes corrected time to system clock. Needs privileges
func (p *TrueTime) SetDeviceTime() error {
	ms, err := p.CurrentTimeMillis()
	if err != nil {
		return err
	}
	return setSystemClock(ms)
}

//Close waits running background sync up to timeout and stops own callback dispatcher
func (p *TrueTime) Close(timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		p.worker.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn("background sync still running at close")
	}
	if p.ownDispatcher != nil {
		p.ownDispatcher.Close()
	}
}
