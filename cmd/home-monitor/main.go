// Command home-monitor samples light, temperature and motion sensors, drives
// the Home/Away indicator outputs, serves status over HTTP and publishes
// state changes to MQTT.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"

	"github.com/sweeney/home-monitor/internal/adc"
	"github.com/sweeney/home-monitor/internal/config"
	"github.com/sweeney/home-monitor/internal/gpio"
	"github.com/sweeney/home-monitor/internal/monitor"
	"github.com/sweeney/home-monitor/internal/mqtt"
	"github.com/sweeney/home-monitor/internal/status"
	"github.com/sweeney/home-monitor/internal/web"
)

const shutdownTimeout = 5 * time.Second

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(flagExitCode(err))
	}

	slog.SetDefault(newLogger(os.Stderr, opts.debug))

	cfg, err := loadConfig(opts)
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, opts); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

// options holds parsed command-line flags. Config values are applied only
// for flags named in set.
type options struct {
	configPath string
	debug      bool
	printState bool

	poll      time.Duration
	httpAddr  string
	broker    string
	heartbeat time.Duration

	set map[string]bool
}

func parseFlags(args []string) (options, error) {
	def := config.Default()
	o := options{set: map[string]bool{}}

	fs := flag.NewFlagSet("home-monitor", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "TOML or YAML config file (built-in defaults if empty)")
	fs.DurationVar(&o.poll, "poll", def.Poll, "Sensor polling interval")
	fs.StringVar(&o.httpAddr, "http", def.HTTPAddr, "HTTP status address (empty to disable)")
	fs.StringVar(&o.broker, "broker", def.Broker, "MQTT broker address")
	fs.DurationVar(&o.heartbeat, "heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.BoolVar(&o.debug, "debug", false, "Log every tick")
	fs.BoolVar(&o.printState, "print-state", false, "Print raw sensor readings and exit")

	if err := fs.Parse(args); err != nil {
		return o, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

// flagExitCode maps a parseFlags error to a process exit status: 0 after
// -h/-help, 2 for bad usage.
func flagExitCode(err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	return 2
}

// loadConfig reads the config file if one was given, applies explicitly set
// flags on top and validates the result.
func loadConfig(o options) (config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return cfg, err
		}
	}

	if o.set["poll"] {
		cfg.Poll = o.poll
	}
	if o.set["http"] {
		cfg.HTTPAddr = o.httpAddr
	}
	if o.set["broker"] {
		cfg.Broker = o.broker
	}
	if o.set["heartbeat"] {
		cfg.Heartbeat = o.heartbeat
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		if fi, err := f.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
			noColor = false
		}
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05.000",
		NoColor:    noColor,
	}))
}

func run(cfg config.Config, o options) error {
	reader, err := adc.NewRealReader(cfg.ADC.ChipSelect, cfg.ADC.SpeedHz, adc.Inputs{
		adc.Light:       cfg.ADC.Light,
		adc.Temperature: cfg.ADC.Temperature,
		adc.Motion:      cfg.ADC.Motion,
	})
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer reader.Close()

	if o.printState {
		return printState(os.Stdout, reader)
	}

	out, err := gpio.NewRealWriter(cfg.Pins.Chip, cfg.Pins.Home, cfg.Pins.Away)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer out.Close()

	bootID := uuid.NewString()
	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:   cfg.Broker,
		ClientID: cfg.ClientID,
		BootID:   bootID,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	startTime := time.Now()
	store := status.NewStore(startTime, bootID, statusConfig(cfg))
	node := monitor.NewNode(cfg, reader, out, store, startTime)
	node.SetLink(publisher)

	net := readNetworkInfo()
	node.SetNetwork(net)

	snap := store.Read()
	snap.Network = net
	snap.MQTTConnected = publisher.IsConnected()
	startup := mqtt.SystemEvent{
		Timestamp:  startTime,
		Event:      mqtt.EventStartup,
		BootID:     bootID,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		slog.Warn("mqtt: publish startup", "error", err)
	}

	serverErr := make(chan error, 1)
	if cfg.HTTPAddr != "" {
		var accessLog io.Writer
		if o.debug {
			accessLog = os.Stderr
		}
		srv := web.New(cfg.HTTPAddr, store, web.Options{LiveInterval: cfg.LiveInterval, AccessLog: accessLog})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serverErr <- err
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("http: shutdown", "error", err)
			}
		}()
		slog.Info("http: listening", "addr", cfg.HTTPAddr)
	}

	slog.Info("started",
		"boot_id", bootID,
		"poll", cfg.Poll,
		"broker", cfg.Broker,
		"heartbeat", cfg.Heartbeat,
		"light_target", cfg.Light.Target,
		"temp_target", cfg.Temperature.Target,
		"motion_threshold", cfg.Motion.Threshold)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(node, store, publisher, cfg.Heartbeat, cfg.RestartDelay, time.Now, ticker.C, sigCh, serverErr)
}

// runLoop ticks the node until a signal arrives or the HTTP server fails.
// A server failure is fatal: the process exits after restartDelay and the
// service manager starts it again with fresh calibration.
func runLoop(node *monitor.Node, store *status.Store, publisher mqtt.Publisher, heartbeat, restartDelay time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal, serverErr <-chan error) error {
	for {
		select {
		case s := <-sig:
			reason := signalName(s)
			slog.Info("shutting down", "signal", reason)
			publishShutdown(store, publisher, now(), reason)
			return nil

		case err := <-serverErr:
			slog.Error("http: server failed, restarting", "error", err, "delay", restartDelay)
			publishShutdown(store, publisher, now(), "HTTP_FAULT")
			time.Sleep(restartDelay)
			return fmt.Errorf("http server: %w", err)

		case <-tick:
			t := now()
			for _, event := range node.Tick(t) {
				slog.Info("event", "type", event.Type, "system", event.System, "light", event.Light)
				if err := publisher.Publish(event); err != nil {
					slog.Warn("mqtt: publish event", "type", event.Type, "error", err)
				}
			}

			hb := node.CheckHeartbeat(t, heartbeat)
			if hb == nil {
				continue
			}
			slog.Info("heartbeat",
				"uptime", hb.Uptime.Truncate(time.Second),
				"motion", hb.Counts.Motion,
				"activations", hb.Counts.Activations,
				"read_errors", hb.Counts.ReadErrors)

			net := readNetworkInfo()
			node.SetNetwork(net)
			snap := store.Read()
			snap.Network = net
			event := mqtt.SystemEvent{
				Timestamp:  hb.Timestamp,
				Event:      mqtt.EventHeartbeat,
				BootID:     snap.BootID,
				RawPayload: status.FormatStatusEvent(snap, mqtt.EventHeartbeat, ""),
			}
			if err := publisher.PublishSystem(event); err != nil {
				slog.Warn("mqtt: publish heartbeat", "error", err)
			}
		}
	}
}

func publishShutdown(store *status.Store, publisher mqtt.Publisher, t time.Time, reason string) {
	snap := store.Read()
	event := mqtt.SystemEvent{
		Timestamp:  t,
		Event:      mqtt.EventShutdown,
		Reason:     reason,
		BootID:     snap.BootID,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventShutdown, reason),
	}
	if err := publisher.PublishSystem(event); err != nil {
		slog.Warn("mqtt: publish shutdown", "error", err)
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// printState reads every channel once and prints the raw values.
func printState(w io.Writer, reader adc.Reader) error {
	for _, ch := range adc.Channels {
		v, err := reader.Read(ch)
		if err != nil {
			return fmt.Errorf("read %s: %w", ch, err)
		}
		fmt.Fprintf(w, "%s: %d\n", ch, v)
	}
	return nil
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		PollMs:          cfg.Poll.Milliseconds(),
		HeartbeatMs:     cfg.Heartbeat.Milliseconds(),
		Broker:          cfg.Broker,
		HTTPAddr:        cfg.HTTPAddr,
		LightTarget:     cfg.Light.Target,
		TempTarget:      cfg.Temperature.Target,
		TempTolerance:   cfg.Temperature.Tolerance,
		MotionThreshold: cfg.Motion.Threshold,
		HoldMs:          cfg.Motion.Hold.Milliseconds(),
		DelayMs:         cfg.Activation.Delay.Milliseconds(),
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
