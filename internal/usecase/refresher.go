package usecase

import (
	"context"

	"newsassist/internal/ports"
)

// BackgroundRefresher wires the interval driver with the cache preload.
type BackgroundRefresher struct {
	driver    ports.Scheduler
	refresher ports.Refresher
}

// NewBackgroundRefresher returns a helper to start/stop recurring refreshes.
func NewBackgroundRefresher(driver ports.Scheduler, refresher ports.Refresher) *BackgroundRefresher {
	return &BackgroundRefresher{driver: driver, refresher: refresher}
}

// Start registers the preload job with the provided scheduler.
func (b *BackgroundRefresher) Start(ctx context.Context) error {
	if b.driver == nil || b.refresher == nil {
		return nil
	}

	job := func() {
		b.refresher.PreloadAll(ctx)
	}

	return b.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (b *BackgroundRefresher) Stop(ctx context.Context) error {
	if b.driver == nil {
		return nil
	}

	return b.driver.Stop(ctx)
}
