// Package health runs named dependency checks concurrently and aggregates
// them into one report. The all-pairs CLI uses it for its preflight mode,
// probing inputs and export backends before committing to a long run.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

type Status string

const (
	StatusUp   Status = "up"
	StatusDown Status = "down"
)

// Check probes one dependency. A nil error means it is usable.
type Check func(ctx context.Context) error

// Result is the outcome of a single check.
type Result struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency"`
}

// Report aggregates every check. Status is down when any check is down.
type Report struct {
	Status     Status            `json:"status"`
	Components map[string]Result `json:"components"`
	Timestamp  string            `json:"timestamp"`
}

// Healthy reports whether every check passed.
func (r Report) Healthy() bool { return r.Status == StatusUp }

// Failed lists the names of the failing checks in order.
func (r Report) Failed() []string {
	var names []string
	for name, res := range r.Components {
		if res.Status != StatusUp {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// WriteJSON writes the report as indented JSON.
func (r Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

type named struct {
	name  string
	check Check
}

// Checker holds registered checks. It is not safe to Register concurrently
// with Run.
type Checker struct {
	checks  []named
	timeout time.Duration
}

// NewChecker creates a Checker that gives each check at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	return &Checker{timeout: timeout}
}

// Register adds a named check. A later registration under the same name
// replaces the earlier one.
func (c *Checker) Register(name string, check Check) {
	for i := range c.checks {
		if c.checks[i].name == name {
			c.checks[i].check = check
			return
		}
	}
	c.checks = append(c.checks, named{name, check})
}

// Run executes all checks concurrently and waits for every one of them.
func (c *Checker) Run(ctx context.Context) Report {
	report := Report{
		Status:     StatusUp,
		Components: make(map[string]Result, len(c.checks)),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, n := range c.checks {
		wg.Go(func() {
			res := c.runOne(ctx, n.check)
			mu.Lock()
			report.Components[n.name] = res
			mu.Unlock()
		})
	}
	wg.Wait()
	for _, res := range report.Components {
		if res.Status == StatusDown {
			report.Status = StatusDown
			break
		}
	}
	return report
}

func (c *Checker) runOne(ctx context.Context, check Check) Result {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	start := time.Now()
	err := check(ctx)
	res := Result{Status: StatusUp, Latency: time.Since(start).Round(time.Millisecond).String()}
	if err != nil {
		res.Status = StatusDown
		res.Message = err.Error()
	}
	return res
}

// Readable checks that path names a regular file that can be opened.
func Readable(path string) Check {
	return func(context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return fmt.Errorf("%s is not a regular file", path)
		}
		return nil
	}
}
