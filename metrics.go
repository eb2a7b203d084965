/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamebox_connections",
		Help: "Live socket connections.",
	})

	roomsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gamebox_rooms",
		Help: "Rooms with at least one member.",
	})

	eventsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gamebox_events_total",
		Help: "Inbound events handled, by event name.",
	}, []string{"event"})

	deliveriesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamebox_deliveries_dropped_total",
		Help: "Outbound messages dropped because the recipient was gone or its queue was full.",
	})

	adminRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamebox_admin_repairs_total",
		Help: "Joins that found the room admin slot inconsistent and fixed it.",
	})

	malformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gamebox_malformed_frames_total",
		Help: "Inbound frames dropped as malformed.",
	})
)

func registerMetricsHandler(cfg *Config, mux *httprouter.Router) {
	mux.Handler(http.MethodGet, cfg.prefix+"/metrics", promhttp.Handler())
}
