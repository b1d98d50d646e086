package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/easychat/component"
	"github.com/kbukum/easychat/logger"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component runs a Hub under the component lifecycle.
type Component struct {
	hub     *Hub
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewComponent creates a component with a fresh Hub.
func NewComponent(log *logger.Logger) *Component {
	return &Component{hub: NewHub(log)}
}

// Hub returns the hub for publishing and stream handlers.
func (c *Component) Hub() *Hub { return c.hub }

// Name returns the component name.
func (c *Component) Name() string { return "notify" }

// Start launches the hub loop in a background goroutine.
func (c *Component) Start(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	c.running = true

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.hub.Run()
	}()
	return nil
}

// Stop shuts the hub down and waits for its loop to return.
func (c *Component) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hub.Stop()
	c.wg.Wait()
	c.running = false
	return nil
}

// Health reports the number of open streams.
func (c *Component) Health(_ context.Context) component.Health {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if !running {
		return component.Health{
			Name:    c.Name(),
			Status:  component.StatusUnhealthy,
			Message: "hub not running",
		}
	}
	return component.Health{
		Name:    c.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d streams, %d users", c.hub.ClientCount(), c.hub.UserCount()),
	}
}

// Describe returns summary info for the startup log.
func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Notify Hub",
		Type:    "notify",
		Details: fmt.Sprintf("path=/api/events buffer=%d", ClientBuffer),
	}
}
