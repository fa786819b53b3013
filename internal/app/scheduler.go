package app

import (
	"context"
	"time"

	"github.com/deskbot-io/deskbot/internal/service"
	"go.uber.org/zap"
)

// Scheduler runs the background tasks: the notification dispatch tick and
// the periodic session refresh. Both tasks are idempotent, so the actual
// cadence only affects latency.
type Scheduler struct {
	notifier        *service.Notifier
	notifyInterval  time.Duration
	refreshInterval time.Duration
	logger          *zap.Logger
	stopChan        chan struct{}
}

func NewScheduler(notifier *service.Notifier, notifyInterval, refreshInterval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		notifier:        notifier,
		notifyInterval:  notifyInterval,
		refreshInterval: refreshInterval,
		logger:          logger,
		stopChan:        make(chan struct{}),
	}
}

// Start launches the background tasks.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("notify_interval", s.notifyInterval),
		zap.Duration("refresh_interval", s.refreshInterval),
	)

	go s.runNotificationTask(ctx)
	go s.runSessionRefreshTask(ctx)
}

// Stop halts the background tasks.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

func (s *Scheduler) runNotificationTask(ctx context.Context) {
	ticker := time.NewTicker(s.notifyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.notifier.Dispatch(ctx); err != nil {
				s.logger.Error("Notification dispatch failed", zap.Error(err))
			}
		case <-s.stopChan:
			s.logger.Info("Notification task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Notification task cancelled")
			return
		}
	}
}

func (s *Scheduler) runSessionRefreshTask(ctx context.Context) {
	// First pass right at startup, then on the ticker.
	if err := s.notifier.RefreshSessions(ctx); err != nil {
		s.logger.Error("Session refresh pass failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.notifier.RefreshSessions(ctx); err != nil {
				s.logger.Error("Session refresh pass failed", zap.Error(err))
			}
		case <-s.stopChan:
			s.logger.Info("Session refresh task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session refresh task cancelled")
			return
		}
	}
}
