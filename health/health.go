// Package health tracks the service's connection state and probes its
// dependencies.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	StatusStarting     = "STARTING"
	StatusOK           = "OK"
	StatusReconnecting = "RECONNECTING"
	StatusError        = "ERROR"
)

// Pinger is anything with a liveness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Report is the JSON shape of the health endpoint.
type Report struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Store   string `json:"store"`
	Since   string `json:"since"`
}

// Healthy reports whether the gateway is up and the store answers.
func (r Report) Healthy() bool {
	return r.Status == StatusOK && r.Store == StatusOK
}

// Checker holds the gateway state reported by event handlers.
type Checker struct {
	store Pinger

	mu      sync.RWMutex
	status  string
	message string
	since   time.Time
	now     func() time.Time
}

func NewChecker(store Pinger) *Checker {
	c := &Checker{store: store, now: time.Now}
	c.Set(StatusStarting, "Service is starting")
	return c
}

// Set records the gateway status.
func (c *Checker) Set(status, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if status != c.status {
		c.since = c.now()
	}
	c.status = status
	c.message = message
}

// Status returns the current gateway status and its message.
func (c *Checker) Status() (string, string) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status, c.message
}

// Check probes the store and combines it with the gateway status.
func (c *Checker) Check(ctx context.Context) Report {
	c.mu.RLock()
	r := Report{Status: c.status, Message: c.message, Since: c.since.UTC().Format(time.RFC3339)}
	c.mu.RUnlock()
	r.Store = StoreStatus(ctx, c.store)
	return r
}

// StoreStatus pings the store with a short deadline.
func StoreStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "NOT CONFIGURED"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Ping(ctx); err != nil {
		return fmt.Sprintf("%s: %v", StatusError, err)
	}
	return StatusOK
}

// Format renders a status value for a Discord message.
func Format(status string) string {
	if status == StatusOK {
		return "**OK**"
	}
	return fmt.Sprintf("**ERROR**: `%s`", status)
}
