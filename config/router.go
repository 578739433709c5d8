package config

import (
	"encoding/json"
	"os"
)

// QueueSizes holds the router's per-priority transmit queue depths.
type QueueSizes struct {
	Control         int `json:"control"`
	RealTime        int `json:"real_time"`
	InteractiveHigh int `json:"interactive_high"`
	InteractiveLow  int `json:"interactive_low"`
	DataHigh        int `json:"data_high"`
	Data            int `json:"data"`
	DataLow         int `json:"data_low"`
	Background      int `json:"background"`
}

// SharedMemory configures the router's shared-memory transport
// optimization for large same-host payloads.
type SharedMemory struct {
	Enabled              bool   `json:"enabled"`
	Mode                 string `json:"mode"`
	PoolSize             int    `json:"pool_size"`
	MessageSizeThreshold int    `json:"message_size_threshold"`
}

// Timestamping configures router-side message timestamping.
type Timestamping struct {
	Enabled             bool `json:"enabled"`
	DropFutureTimestamp bool `json:"drop_future_timestamp"`
}

// RouterConfig is the configuration document the broker daemon consumes.
// Build one with NewRouterConfig and the chainable setters, then render it
// with JSON or write it to the path the supervisor expects.
type RouterConfig struct {
	Mode         string       `json:"mode"`
	Listen       []string     `json:"listen,omitempty"`
	Connect      []string     `json:"connect,omitempty"`
	Queues       QueueSizes   `json:"queues"`
	SharedMem    SharedMemory `json:"shared_memory"`
	Timestamping Timestamping `json:"timestamping"`
}

// NewRouterConfig returns a peer-mode config with the stock defaults.
func NewRouterConfig() *RouterConfig {
	return &RouterConfig{
		Mode: "peer",
		Queues: QueueSizes{
			Control:         2,
			RealTime:        4,
			InteractiveHigh: 4,
			InteractiveLow:  4,
			DataHigh:        8,
			Data:            8,
			DataLow:         4,
			Background:      2,
		},
		SharedMem: SharedMemory{
			Enabled:              true,
			Mode:                 "lazy",
			PoolSize:             16 * 1024 * 1024,
			MessageSizeThreshold: 3072,
		},
		Timestamping: Timestamping{Enabled: true},
	}
}

// SetMode selects peer, client or router operation.
func (c *RouterConfig) SetMode(mode string) *RouterConfig {
	c.Mode = mode
	return c
}

// SetListenEndpoints sets the endpoints the router accepts sessions on.
func (c *RouterConfig) SetListenEndpoints(endpoints ...string) *RouterConfig {
	c.Listen = endpoints
	return c
}

// SetConnectEndpoints sets the endpoints the router dials out to.
func (c *RouterConfig) SetConnectEndpoints(endpoints ...string) *RouterConfig {
	c.Connect = endpoints
	return c
}

// SetSharedMemory resizes the shared-memory pool; a size of 0 disables it.
func (c *RouterConfig) SetSharedMemory(poolSize int) *RouterConfig {
	if poolSize <= 0 {
		c.SharedMem.Enabled = false
		return c
	}
	c.SharedMem.Enabled = true
	c.SharedMem.PoolSize = poolSize
	return c
}

// SetQueueSizes replaces the per-priority queue depths.
func (c *RouterConfig) SetQueueSizes(q QueueSizes) *RouterConfig {
	c.Queues = q
	return c
}

// JSON renders the document.
func (c *RouterConfig) JSON() ([]byte, error) {
	return json.MarshalIndent(c, "", "  ")
}

// WriteFile renders the document to the path the supervisor launches the
// broker with.
func (c *RouterConfig) WriteFile(path string) error {
	data, err := c.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
