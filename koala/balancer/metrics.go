/*
 * Copyright (c) The Kowabunga Project
 * Apache License, Version 2.0 (see LICENSE or https://www.apache.org/licenses/LICENSE-2.0.txt)
 * SPDX-License-Identifier: Apache-2.0
 */

package balancer

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kowabunga-cloud/koala/koala/common/klog"
	"github.com/kowabunga-cloud/koala/koala/helper"
)

const (
	PrometheusNamespace = "koala"

	MetricsPath = "/metrics"
	HealthPath  = "/healthz"

	resultSuccess = "success"
	resultFailure = "failure"
)

type Exporter struct {
	registry *prometheus.Registry

	reconciliations *prometheus.CounterVec
	reloads         *prometheus.CounterVec
	configUpdates   prometheus.Counter
	routesAdded     prometheus.Counter
	routesRemoved   prometheus.Counter
	lastSuccess     prometheus.Gauge
	backendServers  *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		// Use our own registry and not the default one,
		// because we don't want all the go stats
		registry: prometheus.NewRegistry(),
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: PrometheusNamespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation passes, by result.",
		}, []string{"result"}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: PrometheusNamespace,
			Name:      "haproxy_reloads_total",
			Help:      "HAProxy unit reloads (or restarts), by result.",
		}, []string{"result"}),
		configUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: PrometheusNamespace,
			Name:      "config_updates_total",
			Help:      "Rendered HAProxy configurations which replaced the live one.",
		}),
		routesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: PrometheusNamespace,
			Name:      "routes_added_total",
			Help:      "Backend servers which appeared between passes.",
		}),
		routesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: PrometheusNamespace,
			Name:      "routes_removed_total",
			Help:      "Backend servers which vanished between passes.",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: PrometheusNamespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Time of the last successful reconciliation pass.",
		}),
		backendServers: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: PrometheusNamespace,
			Name:      "backend_servers",
			Help:      "Servers rendered per HAProxy backend.",
		}, []string{"backend"}),
	}

	e.registry.MustRegister(
		e.reconciliations,
		e.reloads,
		e.configUpdates,
		e.routesAdded,
		e.routesRemoved,
		e.lastSuccess,
		e.backendServers,
	)

	return e
}

func resultLabel(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}

func (e *Exporter) ObserveReconciliation(err error) {
	e.reconciliations.WithLabelValues(resultLabel(err)).Inc()
	if err == nil {
		e.lastSuccess.Set(float64(time.Now().Unix()))
	}
}

func (e *Exporter) ObserveReload(err error) {
	e.reloads.WithLabelValues(resultLabel(err)).Inc()
}

func (e *Exporter) ObserveConfigUpdate() {
	e.configUpdates.Inc()
}

func (e *Exporter) ObserveRoutes(added, removed []string) {
	e.routesAdded.Add(float64(len(added)))
	e.routesRemoved.Add(float64(len(removed)))
}

func (e *Exporter) SetBackends(backends []helper.Backend) {
	e.backendServers.Reset()
	for _, b := range backends {
		e.backendServers.WithLabelValues(b.Name).Set(float64(len(b.Servers)))
	}
}

func (e *Exporter) HttpHandler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

func (e *Exporter) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle(MetricsPath, e.HttpHandler()).Methods(http.MethodGet)
	r.HandleFunc(HealthPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	return r
}

// serveMetrics exposes the exporter until the returned server is shut down.
func (e *Exporter) serveMetrics(cfg KoalaMetricsConfig) *http.Server {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:           e.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		klog.Infof("Exposing Prometheus metrics on http://%s%s", srv.Addr, MetricsPath)
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			klog.Errorf("Metrics server failure: %v", err)
		}
	}()

	return srv
}
