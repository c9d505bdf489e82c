package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency          = metric.NewHistogram("1m1s")
	SpfRuns                  = metric.NewCounter("10s1s")
	AdvertisementsOriginated = metric.NewCounter("10s1s")
	AdvertisementsSent       = metric.NewCounter("10s1s")
	AdvertisementsAccepted   = metric.NewCounter("10s1s")
	AdvertisementsRefreshed  = metric.NewCounter("10s1s")
	AdvertisementsSuppressed = metric.NewCounter("10s1s")
	MalformedPayloads        = metric.NewCounter("10s1s")
	TracesForwarded          = metric.NewCounter("10s1s")
	TracesDropped            = metric.NewCounter("10s1s")
	PacketsLost              = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("lsr:DispatchLatency (µs)", DispatchLatency)
	expvar.Publish("lsr:SpfRuns/s", SpfRuns)
	expvar.Publish("lsr:AdvOriginated/s", AdvertisementsOriginated)
	expvar.Publish("lsr:AdvSent/s", AdvertisementsSent)
	expvar.Publish("lsr:AdvAccepted/s", AdvertisementsAccepted)
	expvar.Publish("lsr:AdvRefreshed/s", AdvertisementsRefreshed)
	expvar.Publish("lsr:AdvSuppressed/s", AdvertisementsSuppressed)
	expvar.Publish("lsr:MalformedPayloads/s", MalformedPayloads)
	expvar.Publish("lsr:TracesForwarded/s", TracesForwarded)
	expvar.Publish("lsr:TracesDropped/s", TracesDropped)
	expvar.Publish("lsr:PacketsLost/s", PacketsLost)
}
