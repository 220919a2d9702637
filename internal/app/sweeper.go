package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically finalizes abandoned attempts via SweepExpired.
type Sweeper struct {
	service  *AttemptService
	interval time.Duration
	cron     *cron.Cron
}

func NewSweeper(service *AttemptService, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Start schedules the sweep and returns immediately.
func (s *Sweeper) Start() error {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		swept, err := s.service.SweepExpired(ctx)
		if err != nil {
			log.Printf("sweep expired attempts: %v", err)
			return
		}
		if swept > 0 {
			log.Printf("swept %d expired attempts", swept)
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	return nil
}

// Stop halts scheduling; a sweep already running finishes on its own.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}
