package aggregate

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Node-level gauges derived by the pollers. The raw counters stay with the
// collectors; these are the reduced views a scheduler actually consumes.
var (
	nodeCPUPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgetrace_node_cpu_percent",
		Help: "Node CPU usage over the last poll interval, clamped at 95.",
	})
	nodeMemUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgetrace_node_mem_used_percent",
		Help: "Node memory saturation from /proc/meminfo.",
	})
	nodeMemStallPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edgetrace_node_mem_stall_percent",
		Help: "Share of wall time spent stalled in direct reclaim over the last poll interval.",
	})
)
