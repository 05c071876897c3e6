package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hjkoskel/truetime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const HISTORYSTATUSCOUNT = 8

// TimeFacade is part of TrueTime used by api
type TimeFacade interface {
	CurrentTimeMillis() (int64, error)
	IsSynced() bool
	IsSyncing() bool
	PendingCount() uint32
	Anchor() (truetime.Anchor, bool)
	Sync() (int64, error)
	SyncAsync()
	History() *truetime.SyncLog
}

func newServer(addr string, tt TimeFacade, gatherer prometheus.Gatherer) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           newRouter(tt, gatherer),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func newRouter(tt TimeFacade, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/time", func(c *gin.Context) { getTime(c, tt) })
	router.GET("/status", func(c *gin.Context) { getStatus(c, tt) })
	router.POST("/sync", func(c *gin.Context) { postSync(c, tt) })
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	return router
}

// getTime returns corrected time or 503 when not synced yet
func getTime(c *gin.Context, tt TimeFacade) {
	ms, err := tt.CurrentTimeMillis()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"millis": ms,
		"time":   time.UnixMilli(ms).UTC().Format(time.RFC3339Nano),
	})
}

func getStatus(c *gin.Context, tt TimeFacade) {
	status := gin.H{
		"synced":  tt.IsSynced(),
		"syncing": tt.IsSyncing(),
		"pending": tt.PendingCount(),
	}
	if a, ok := tt.Anchor(); ok {
		status["anchor"] = gin.H{"epoch": int64(a.Epoch), "elapsed": int64(a.Elapsed)}
	}
	kernelSynced, errKernel := truetime.KernelClockSynced()
	if errKernel == nil {
		status["kernelClockSynced"] = kernelSynced
	}

	latest := tt.History().Latest(HISTORYSTATUSCOUNT)
	drift := []float64{}
	for _, d := range latest.Drift() {
		drift = append(drift, d.Seconds())
	}
	status["history"] = gin.H{"count": latest.Len(), "driftSeconds": drift}

	c.JSON(http.StatusOK, status)
}

// postSync starts background sync. With ?wait=true sync is done before responding
func postSync(c *gin.Context, tt TimeFacade) {
	if c.Query("wait") != "true" {
		tt.SyncAsync()
		c.JSON(http.StatusAccepted, gin.H{"pending": tt.PendingCount()})
		return
	}
	ms, err := tt.Sync()
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"millis": ms})
}
