// Package monitor samples the battery and the network link in the background.
package monitor

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/unlock-remote/device/internal/battery"
	"github.com/unlock-remote/device/internal/metrics"
	"github.com/unlock-remote/device/internal/network"
)

// Default job schedules.
const (
	DefaultBatterySchedule = "@every 1m"
	DefaultLinkSchedule    = "@every 30s"
)

// LinkRefresher is the part of network.Manager the monitor needs.
type LinkRefresher interface {
	Refresh(ctx context.Context) network.State
}

// BatteryPublisher receives battery samples.
type BatteryPublisher interface {
	BroadcastBattery(r battery.Reading)
}

// Scheduler runs the periodic sampling jobs. It never touches the display.
type Scheduler struct {
	cron      *cron.Cron
	sensor    battery.Sensor
	link      LinkRefresher
	publisher BatteryPublisher
	metrics   *metrics.Metrics

	batterySchedule string
	linkSchedule    string
}

// NewScheduler creates a monitor. publisher and m may be nil.
func NewScheduler(sensor battery.Sensor, link LinkRefresher, publisher BatteryPublisher, m *metrics.Metrics) *Scheduler {
	return &Scheduler{
		cron:            cron.New(),
		sensor:          sensor,
		link:            link,
		publisher:       publisher,
		metrics:         m,
		batterySchedule: DefaultBatterySchedule,
		linkSchedule:    DefaultLinkSchedule,
	}
}

// Start registers the jobs and starts the cron runner.
func (s *Scheduler) Start() error {
	log.Println("Starting monitor...")

	if _, err := s.cron.AddFunc(s.batterySchedule, s.SampleBattery); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.linkSchedule, s.RefreshLink); err != nil {
		return err
	}

	s.SampleBattery()
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Monitor stopped")
}

// SampleBattery reads the battery once and publishes the reading.
func (s *Scheduler) SampleBattery() {
	r, err := s.sensor.Read()
	if err != nil {
		log.Printf("Failed to sample battery: %v", err)
		return
	}

	s.metrics.Battery(r.Percentage(), r.Voltage)
	if s.publisher != nil {
		s.publisher.BroadcastBattery(r)
	}
}

// RefreshLink polls the network link once.
func (s *Scheduler) RefreshLink() {
	if s.link == nil {
		return
	}
	s.link.Refresh(context.Background())
}
