// Package main is the entry point for the unlock remote.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/unlock-remote/device/internal/api"
	"github.com/unlock-remote/device/internal/battery"
	"github.com/unlock-remote/device/internal/config"
	"github.com/unlock-remote/device/internal/display"
	"github.com/unlock-remote/device/internal/input"
	"github.com/unlock-remote/device/internal/metrics"
	"github.com/unlock-remote/device/internal/monitor"
	"github.com/unlock-remote/device/internal/network"
	"github.com/unlock-remote/device/internal/relay"
	"github.com/unlock-remote/device/internal/remote"
	"github.com/unlock-remote/device/internal/storage"
	"github.com/unlock-remote/device/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	addr := flag.String("addr", "127.0.0.1:8099", "Local control API address, empty to disable")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Printf("Starting unlock remote (version: %s)...", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	db, err := storage.NewDB(storage.MemoryDSN)
	if err != nil {
		log.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	attempts := storage.NewAttemptRepository(db)

	hub := websocket.NewHub()
	go hub.Run(ctx)
	events := websocket.NewEventBroadcaster(hub)

	wifi := network.NewManager(
		newLink(cfg),
		network.Credentials{SSID: cfg.WiFiSSID, Passphrase: cfg.WiFiPassword},
		cfg.PollInterval,
		network.WithTimeout(cfg.ConnectTimeout),
		network.WithMetrics(m),
	)
	wifi.OnStateChange(func(previous, current network.State) {
		log.Printf("Network %s -> %s", previous, current)
		events.BroadcastNetworkState(previous.String(), current.String())
	})

	sensor := newSensor(cfg)
	screen := display.NewTerminal(os.Stdout)

	controller := remote.NewController(
		remote.Config{
			Endpoint: cfg.RelayURL,
			History:  cfg.HistoryLabel,
			APIKey:   cfg.APIKey,
			QRCode:   cfg.QRCode,
			Dwell:    cfg.Dwell,
		},
		wifi,
		relay.NewRequester(cfg.HTTPTimeout, m),
		screen,
		sensor,
		remote.WithJournal(attempts),
		remote.WithNotifier(events),
		remote.WithMetrics(m),
	)

	dispatcher := input.NewDispatcher(cfg.Debounce, m)
	keyboard := input.NewKeyboard(os.Stdin, dispatcher)
	go func() {
		if err := keyboard.Run(ctx); err != nil {
			log.Printf("Keyboard input stopped: %v", err)
		}
	}()

	sched := monitor.NewScheduler(sensor, wifi, events, m)
	if err := sched.Start(); err != nil {
		log.Printf("Warning: Failed to start monitor: %v", err)
	}

	var server *http.Server
	if *addr != "" {
		server = &http.Server{
			Addr: *addr,
			Handler: api.NewRouter(api.Services{
				DB:         db,
				Attempts:   attempts,
				Hub:        hub,
				Controller: controller,
				Network:    wifi,
				Sensor:     sensor,
				Buttons:    dispatcher,
				Metrics:    metrics.Handler(m.Registry()),
			}),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Printf("Control API listening on %s", *addr)
			if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Server error: %v", err)
			}
		}()
	}

	if err := controller.Boot(ctx); err != nil {
		log.Printf("Boot interrupted: %v", err)
	}
	controller.Run(ctx, dispatcher.Events())

	log.Println("Shutting down...")
	sched.Stop()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}

	log.Println("Stopped")
}

func newLink(cfg config.Config) network.Link {
	if cfg.Link == config.LinkNmcli {
		return network.NewNmcliLink(nil)
	}
	return network.NewProbeLink(cfg.RelayURL)
}

func newSensor(cfg config.Config) battery.Sensor {
	if cfg.Battery == config.BatteryFixed {
		return battery.FixedSensor{Reading: battery.Reading{Voltage: battery.MaxVoltage}}
	}
	return battery.NewSysfsSensor(battery.DefaultSysfsRoot, cfg.Battery)
}

// runHealthCheck performs a health check against the running remote.
func runHealthCheck(addr string) error {
	if addr == "" {
		return errors.New("control API is disabled")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + addr + "/api/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
