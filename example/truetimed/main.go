/*
Example use of truetime

Keeps corrected time in sync and serves it over http. Reacts to clock, date, timezone and
network changes while running
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hjkoskel/truetime"
	logger "github.com/multiversx/mx-chain-logger-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
)

var log = logger.GetOrCreate("truetimed")

var (
	configFile = cli.StringFlag{
		Name:  "config",
		Usage: "Toml configuration file. Defaults are used when not given",
		Value: "",
	}
	logLevel = cli.StringFlag{
		Name:  "log-level",
		Usage: "Logger level(s) like *:DEBUG or truetime:TRACE,*:INFO. Overrides config",
		Value: "",
	}
	address = cli.StringFlag{
		Name:  "address",
		Usage: "Listen address of http api. Overrides config",
		Value: "",
	}
	setDevice = cli.BoolFlag{
		Name:  "set-device-time",
		Usage: "Write corrected time to system clock after each sync. Needs privileges",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "truetimed"
	app.Version = "v0.1.0"
	app.Usage = "Corrected time service"
	app.Flags = []cli.Flag{configFile, logLevel, address, setDevice}
	app.Action = func(c *cli.Context) error {
		return run(c)
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (truetime.Config, error) {
	cfg := truetime.DefaultConfig()
	if fname := c.GlobalString(configFile.Name); fname != "" {
		var err error
		cfg, err = truetime.LoadConfig(fname)
		if err != nil {
			return cfg, err
		}
	}
	if lvl := c.GlobalString(logLevel.Name); lvl != "" {
		cfg.API.LogLevel = lvl
	}
	if addr := c.GlobalString(address.Name); addr != "" {
		cfg.API.Address = addr
	}
	return cfg, nil
}

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	err = logger.SetLogLevel(cfg.API.LogLevel)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	tt, err := truetime.CreateDefaultTrueTime(cfg, reg)
	if err != nil {
		return err
	}
	defer tt.Close(5 * time.Second)

	tt.SetFailureHandler(func(errSync error) {
		log.Warn("time sync failed", "err", errSync)
	})
	if c.GlobalBool(setDevice.Name) {
		tt.AddCallback(truetime.NewCallback(func(millis int64) {
			if errSet := tt.SetDeviceTime(); errSet != nil {
				log.Error("setting device time failed", "err", errSet)
				return
			}
			log.Info("device time set", "time", time.UnixMilli(millis).UTC().Format(time.RFC3339Nano))
		}))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = truetime.WatchSystem(ctx, tt, cfg)
	if err != nil {
		return err
	}
	tt.SyncAsync()

	srv := newServer(cfg.API.Address, tt, reg)
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		if errShutdown := srv.Shutdown(shutdownCtx); errShutdown != nil {
			log.Warn("http shutdown", "err", errShutdown)
		}
	}()

	log.Info("serving corrected time", "address", cfg.API.Address, "source", cfg.Sync.Source)
	return ignoreClosed(srv.ListenAndServe())
}
