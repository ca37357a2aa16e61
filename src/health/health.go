/*
This file is part of the AtomBPMN (R) project.
Copyright (c) 2025 Matreska Market LLC (ООО «Matreska Market»).
Authors: Matreska Team.

This project is dual-licensed under AGPL-3.0 and AtomBPMN Commercial License.
*/

// Package health is the ambient liveness/readiness/metrics HTTP surface:
// a small gin.Engine exposing /healthz, /readyz and /metrics, distinct
// from (and never exposing) the BPMN domain API surface itself.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bpmflow/src/core/logger"
)

// ReadinessCheck reports whether a collaborator the engine depends on is
// ready to serve traffic.
type ReadinessCheck func() (ready bool, detail string)

// Server is the health/metrics HTTP surface.
// Сервер проверки состояния
type Server struct {
	router *gin.Engine
	http   *http.Server
	checks map[string]ReadinessCheck

	instancesCreated prometheus.Counter
	instancesFailed  prometheus.Counter
	stepsExecuted    prometheus.Counter
	timersFired      prometheus.Counter
}

// NewServer builds the health server bound to addr (e.g. ":9090"),
// registering readiness checks keyed by collaborator name.
func NewServer(addr string, checks map[string]ReadinessCheck) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router: router,
		checks: checks,
		http:   &http.Server{Addr: addr, Handler: router},

		instancesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bpmflow_instances_created_total",
			Help: "Process instances created.",
		}),
		instancesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bpmflow_instances_failed_total",
			Help: "Process instances that transitioned to ERROR.",
		}),
		stepsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bpmflow_executor_steps_total",
			Help: "ElementExecutor steps run by the Process Executor.",
		}),
		timersFired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bpmflow_timers_fired_total",
			Help: "Timer records the Timer Scheduler has fired.",
		}),
	}

	router.GET("/healthz", s.liveness)
	router.GET("/readyz", s.readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return s
}

// InstanceCreated, InstanceFailed, StepExecuted and TimerFired are the
// counters the rest of the engine increments; exported as methods rather
// than raw prometheus.Counter fields so callers never need the
// prometheus import themselves.
func (s *Server) InstanceCreated() { s.instancesCreated.Inc() }
func (s *Server) InstanceFailed()  { s.instancesFailed.Inc() }
func (s *Server) StepExecuted()    { s.stepsExecuted.Inc() }
func (s *Server) TimerFired()      { s.timersFired.Inc() }

func (s *Server) liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) readiness(c *gin.Context) {
	checks := make(gin.H, len(s.checks))
	allReady := true
	for name, check := range s.checks {
		ready, detail := check()
		checks[name] = gin.H{"ready": ready, "detail": detail}
		if !ready {
			allReady = false
		}
	}
	status := http.StatusOK
	if !allReady {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"ready": allReady, "checks": checks})
}

// Start runs the HTTP server in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server exited", logger.Any("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.http.Shutdown(shutdownCtx)
	}()
}
