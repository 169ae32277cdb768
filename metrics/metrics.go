/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics exposes the relay's and SQL driver's counters as
// prometheus collectors on a dedicated registry.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/valve/relay/service"
)

// Registry is a dedicated prometheus registry rather than the global
// default one, so embedding this module twice in a process (tests) never
// panics on duplicate registration.
var Registry = prometheus.NewRegistry()

var (
	connectionsOpen = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "valve",
		Subsystem: "relay",
		Name:      "connections_open",
		Help:      "Currently open relayed connections, by port class.",
	}, []string{"class"})

	connectionsAccepted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valve",
		Subsystem: "relay",
		Name:      "connections_accepted_total",
		Help:      "Connections accepted, by port class.",
	}, []string{"class"})

	connectionsRefused = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valve",
		Subsystem: "relay",
		Name:      "connections_refused_total",
		Help:      "Connections refused at admission, by port class.",
	}, []string{"class"})

	connectionsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valve",
		Subsystem: "relay",
		Name:      "connections_failed_total",
		Help:      "Connections that failed to reach the upstream, by port class.",
	}, []string{"class"})

	controlTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "valve",
		Subsystem: "relay",
		Name:      "control_transitions_total",
		Help:      "Control-channel resume/pause transitions.",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(connectionsOpen, connectionsAccepted, connectionsRefused, connectionsFailed, controlTransitions)
}

// Observe updates every gauge/counter from a Service stats snapshot. It
// is safe to call repeatedly (e.g. on a ticker); counters are driven from
// the service's own lifetime totals, so repeated calls just re-set the
// same monotonic value rather than double-counting.
func Observe(st service.Stats) {
	connectionsOpen.WithLabelValues("direct").Set(float64(st.DirectOpen))
	connectionsOpen.WithLabelValues("controlled").Set(float64(st.ControlledOpen))

	setCounter("accepted:direct", connectionsAccepted.WithLabelValues("direct"), float64(st.DirectCounters.Accepted))
	setCounter("accepted:controlled", connectionsAccepted.WithLabelValues("controlled"), float64(st.ControlCounters.Accepted))
	setCounter("refused:direct", connectionsRefused.WithLabelValues("direct"), float64(st.DirectCounters.Refused))
	setCounter("refused:controlled", connectionsRefused.WithLabelValues("controlled"), float64(st.ControlCounters.Refused))
	setCounter("failed:direct", connectionsFailed.WithLabelValues("direct"), float64(st.DirectCounters.Failed))
	setCounter("failed:controlled", connectionsFailed.WithLabelValues("controlled"), float64(st.ControlCounters.Failed))

	setCounter("resume", controlTransitions.WithLabelValues("resume"), float64(st.Resumes))
	setCounter("pause", controlTransitions.WithLabelValues("pause"), float64(st.Pauses))
}

var (
	lastMu    sync.Mutex
	lastValue = map[string]float64{}
)

// setCounter forces a prometheus Counter towards an absolute value.
// Counters only expose Add/Inc, so Observe tracks the last value it set
// per series (keyed by name, since prometheus.Counter itself exposes no
// read path) and adds the positive delta since the last call; a series
// observed for the first time starts its baseline at zero.
func setCounter(key string, c prometheus.Counter, value float64) {
	lastMu.Lock()
	defer lastMu.Unlock()
	if delta := value - lastValue[key]; delta > 0 {
		c.Add(delta)
		lastValue[key] = value
	}
}
