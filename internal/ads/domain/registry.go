package domain

import (
	outcomedomain "github.com/allisson/conversions/internal/outcome/domain"
)

// Registry resolves write and read ports by platform. It is assembled once at
// startup and read-only afterwards; a platform without a registered writer is
// a deployment misconfiguration surfaced by the publisher, not an error here.
type Registry struct {
	writers map[outcomedomain.Platform]AdsWritePort
	readers map[outcomedomain.Platform]AdsReadPort
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		writers: make(map[outcomedomain.Platform]AdsWritePort),
		readers: make(map[outcomedomain.Platform]AdsReadPort),
	}
}

// RegisterWriter registers a write port under its own platform.
func (r *Registry) RegisterWriter(port AdsWritePort) {
	r.writers[port.Platform()] = port
}

// RegisterReader registers a read port under its own platform.
func (r *Registry) RegisterReader(port AdsReadPort) {
	r.readers[port.Platform()] = port
}

// Writer returns the write port for the platform, or nil if none is registered.
func (r *Registry) Writer(platform outcomedomain.Platform) AdsWritePort {
	return r.writers[platform]
}

// Reader returns the read port for the platform, or nil if none is registered.
func (r *Registry) Reader(platform outcomedomain.Platform) AdsReadPort {
	return r.readers[platform]
}
