package truetime

import (
	"fmt"
	"sync"
)

// Callback is notified after completed asynchronous sync
type Callback interface {
	OnTimeSynced(millis int64)
}

// FuncCallback wraps function. Use the returned pointer for RemoveCallback
type FuncCallback struct {
	fn func(millis int64)
}

func NewCallback(fn func(millis int64)) *FuncCallback {
	return &FuncCallback{fn: fn}
}

func (p *FuncCallback) OnTimeSynced(millis int64) {
	p.fn(millis)
}

/*
CallbackRegistry keeps observers in registration order. Same observer can be added many times,
Remove takes away first one. Observers are compared by identity so they must be comparable
(pointers are)
*/
type CallbackRegistry struct {
	mu        sync.Mutex
	callbacks []Callback
}

func (p *CallbackRegistry) Add(cb Callback) {
	if cb == nil {
		return
	}
	p.mu.Lock()
	p.callbacks = append(p.callbacks, cb)
	p.mu.Unlock()
}

//Remove returns false if callback was not registered
func (p *CallbackRegistry) Remove(cb Callback) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.callbacks {
		if c == cb {
			p.callbacks = append(p.callbacks[:i], p.callbacks[i+1:]...)
			return true
		}
	}
	return false
}

func (p *CallbackRegistry) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.callbacks)
}

func (p *CallbackRegistry) snapshot() []Callback {
	p.mu.Lock()
	defer p.mu.Unlock()
	result := make([]Callback, len(p.callbacks))
	copy(result, p.callbacks)
	return result
}

//NotifyAll delivers to observers registered at call time, in order, as one task on dispatcher
func (p *CallbackRegistry) NotifyAll(d Dispatcher, millis int64) {
	lst := p.snapshot()
	if len(lst) == 0 {
		return
	}
	d.Dispatch(func() {
		for _, cb := range lst {
			notifyOne(cb, millis)
		}
	})
}

func notifyOne(cb Callback, millis int64) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("time synced callback panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	cb.OnTimeSynced(millis)
}

// Dispatcher runs tasks one at a time on designated execution context
type Dispatcher interface {
	Dispatch(task func())
}

/*
SerialDispatcher runs tasks in order on single goroutine, started at first Dispatch.
Dispatch never blocks. Close must not be called from a task
*/
type SerialDispatcher struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	started bool
	closed  bool
}

func NewSerialDispatcher() *SerialDispatcher {
	return &SerialDispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (p *SerialDispatcher) Dispatch(task func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		log.Debug("dispatcher closed, task dropped")
		return
	}
	p.queue = append(p.queue, task)
	if !p.started {
		p.started = true
		go p.loop()
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *SerialDispatcher) loop() {
	defer close(p.done)
	for {
		p.mu.Lock()
		if len(p.queue) == 0 {
			closed := p.closed
			p.mu.Unlock()
			if closed {
				return
			}
			<-p.wake
			continue
		}
		task := p.queue[0]
		p.queue[0] = nil
		p.queue = p.queue[1:]
		p.mu.Unlock()

		runTask(task)
	}
}

func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("dispatched task panicked", "panic", fmt.Sprintf("%v", r))
		}
	}()
	task()
}

//Close runs already queued tasks and stops
func (p *SerialDispatcher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	if !started {
		return
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
	<-p.done
}
