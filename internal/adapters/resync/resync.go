// Package resync corre pases periódicos de Reschedule. Cubre los casos
// que ningún evento dispara: cruce de medianoche (los slots de "hoy"
// cambian) y permisos de wake-up recuperados.
package resync

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"suppletrack/internal/platform/logger"
	"suppletrack/internal/reminder"
)

type Job struct {
	sched *reminder.Scheduler
	log   logger.Logger
	every time.Duration
	cron  *cron.Cron
}

func New(sched *reminder.Scheduler, every time.Duration, log logger.Logger) *Job {
	if log == nil {
		log = logger.Nop{}
	}
	if every <= 0 {
		every = 15 * time.Minute
	}
	return &Job{
		sched: sched,
		log:   log,
		every: every,
		cron:  cron.New(),
	}
}

func (j *Job) Start() error {
	// Pase periódico + uno fijo a medianoche para el cambio de día.
	if _, err := j.cron.AddFunc("@every "+j.every.String(), j.run); err != nil {
		return err
	}
	if _, err := j.cron.AddFunc("@daily", j.run); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("resync job started", map[string]any{"every": j.every.String()})
	return nil
}

// Stop detiene el cron y espera a que termine el pase en curso.
func (j *Job) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Job) run() {
	res, err := j.sched.Reschedule(context.Background())
	if err != nil {
		j.log.Error("resync pass failed", map[string]any{"err": err.Error()})
		return
	}
	j.log.Debug("resync pass", map[string]any{
		"registered": res.Registered,
		"refused":    len(res.Refused),
	})
}
