/*
Default initialization

Helper that builds TrueTime from configuration in right order. Good enough for many use cases
and acts also as example use. Subscribe to system events only after this returns
*/
package truetime

import (
	"context"
	"fmt"
	"time"

	"github.com/hjkoskel/truetime/timesync"
	"github.com/prometheus/client_golang/prometheus"
)

//CreateSynchronizer builds synchronizer selected by cfg.Sync.Source
func CreateSynchronizer(cfg Config, clock MonotonicClock, metrics *Metrics) (timesync.Synchronizer, error) {
	elapsed := func() int64 { return int64(clock.ElapsedMillis()) }
	timeout := time.Duration(cfg.NTP.TimeoutMs) * time.Millisecond

	var exchanger timesync.Exchanger
	switch cfg.Sync.Source {
	case SOURCE_HTTP:
		url := cfg.Sync.HttpURL
		if url == "" {
			url = timesync.DEFAULTHTTPDATEURL
		}
		h, err := timesync.NewHttpDateSync(url, timeout)
		if err != nil {
			return nil, err
		}
		return h, nil
	case SOURCE_NTS:
		ex, err := timesync.NewNtsExchange(elapsed)
		if err != nil {
			return nil, err
		}
		exchanger = ex
	case SOURCE_NTP:
		ex, err := timesync.NewSntpExchange(elapsed)
		if err != nil {
			return nil, err
		}
		exchanger = ex
	default:
		return nil, fmt.Errorf("unknown sync source %q", cfg.Sync.Source)
	}

	var result *timesync.NtpSync
	var err error
	if len(cfg.NTP.Servers) == 0 {
		result, err = timesync.NewDefaultNtpSync(exchanger, elapsed)
	} else {
		result, err = timesync.NewNtpSync(cfg.NTP.Servers, timeout, exchanger, elapsed)
	}
	if err != nil {
		return nil, err
	}
	if 0 < cfg.NTP.MaxRequests {
		result.SetMaxRequests(cfg.NTP.MaxRequests)
	}
	if metrics != nil {
		result.ServerFailed = metrics.ServerFailed
	}
	return result, nil
}

/*
CreateDefaultTrueTime creates clock, synchronizer, sync log and metrics from cfg.
reg can be nil if metrics are not needed
*/
func CreateDefaultTrueTime(cfg Config, reg prometheus.Registerer, opts ...Option) (*TrueTime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := DefaultClock()

	var metrics *Metrics
	if reg != nil {
		var errMetrics error
		metrics, errMetrics = NewMetrics(reg)
		if errMetrics != nil {
			return nil, fmt.Errorf("metrics init error %v", errMetrics)
		}
	}

	s, errSync := CreateSynchronizer(cfg, clock, metrics)
	if errSync != nil {
		return nil, fmt.Errorf("synchronizer create error: %w", errSync)
	}

	var history *SyncLog
	var errHistory error
	if cfg.Sync.HistoryDir != "" {
		history, errHistory = NewFileSyncLog(cfg.Sync.HistoryDir)
	} else {
		history, errHistory = NewMemSyncLog()
	}
	if errHistory != nil {
		return nil, fmt.Errorf("sync log create error %v", errHistory)
	}

	allOpts := []Option{
		WithSyncLog(history),
		WithMetrics(metrics),
		WithResyncOnSystemEvent(cfg.Sync.ResyncOnSystemEvent),
	}
	return New(clock, s, append(allOpts, opts...)...)
}

/*
WatchSystem starts watcher and reactor feeding system events to tt. Both stop when ctx is done
*/
func WatchSystem(ctx context.Context, tt *TrueTime, cfg Config) error {
	w, errWatcher := NewSystemWatcher(cfg.WatcherConfig(), tt.clock)
	if errWatcher != nil {
		return errWatcher
	}
	r, errReactor := NewTimeChangeReactor(tt, nil)
	if errReactor != nil {
		return errReactor
	}
	go r.Run(ctx, w.Run(ctx))
	return nil
}
