// Package metrics provides a small Prometheus-compatible counter registry.
// It writes text/plain in Prometheus exposition format without pulling in
// the client_golang dependency.
package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Add increments the counter by n.
func (c *Counter) Add(n int64) { c.value.Add(n) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

type series struct {
	name    string
	help    string
	labels  string // preformatted, e.g. `reason="no_lot"`
	counter *Counter
}

// Registry holds named counter series.
type Registry struct {
	mu        sync.Mutex
	series    map[string]*series // name + "{" + labels + "}"
	startTime time.Time
	namespace string
}

// New returns an empty registry. namespace prefixes the built-in uptime
// gauge, e.g. "lotbot" exposes lotbot_uptime_seconds.
func New(namespace string) *Registry {
	return &Registry{
		series:    make(map[string]*series),
		startTime: time.Now(),
		namespace: namespace,
	}
}

// Counter returns the counter registered under name and optional label
// pairs, creating it on first use. Labels are passed as alternating
// key/value strings.
func (r *Registry) Counter(name, help string, labelPairs ...string) *Counter {
	labels := formatLabels(labelPairs)
	key := name + "{" + labels + "}"

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.series[key]; ok {
		return s.counter
	}
	s := &series{name: name, help: help, labels: labels, counter: &Counter{}}
	r.series[key] = s
	return s.counter
}

// Handler serves the registry in Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprint(w, r.Render())
	})
}

// Render produces the exposition text.
func (r *Registry) Render() string {
	r.mu.Lock()
	all := make([]*series, 0, len(r.series))
	for _, s := range r.series {
		all = append(all, s)
	}
	uptime := time.Since(r.startTime).Seconds()
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].name != all[j].name {
			return all[i].name < all[j].name
		}
		return all[i].labels < all[j].labels
	})

	var b strings.Builder
	seen := make(map[string]bool)
	for _, s := range all {
		if !seen[s.name] {
			seen[s.name] = true
			if s.help != "" {
				fmt.Fprintf(&b, "# HELP %s %s\n", s.name, s.help)
			}
			fmt.Fprintf(&b, "# TYPE %s counter\n", s.name)
		}
		if s.labels == "" {
			fmt.Fprintf(&b, "%s %d\n", s.name, s.counter.Value())
		} else {
			fmt.Fprintf(&b, "%s{%s} %d\n", s.name, s.labels, s.counter.Value())
		}
	}
	uptimeName := r.namespace + "_uptime_seconds"
	fmt.Fprintf(&b, "# TYPE %s gauge\n", uptimeName)
	fmt.Fprintf(&b, "%s %.0f\n", uptimeName, uptime)
	return b.String()
}

func formatLabels(pairs []string) string {
	if len(pairs) == 0 {
		return ""
	}
	var parts []string
	for i := 0; i+1 < len(pairs); i += 2 {
		parts = append(parts, fmt.Sprintf("%s=%q", pairs[i], pairs[i+1]))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
