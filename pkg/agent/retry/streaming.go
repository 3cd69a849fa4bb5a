package retry

import (
	"fmt"

	"github.com/entrhq/tabpilot/pkg/llm"
	"github.com/gobwas/glob"
)

// DefaultIncompatibleClients are client identifiers known to break
// server-sent event streaming.
var DefaultIncompatibleClients = []string{"*MSIE *", "*Trident/*"}

// StreamingPolicy decides whether a provider call may stream.
type StreamingPolicy struct {
	incompatible []glob.Glob
}

// NewStreamingPolicy compiles the incompatible client patterns.
func NewStreamingPolicy(patterns []string) (*StreamingPolicy, error) {
	p := &StreamingPolicy{}
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid client pattern %q: %w", pattern, err)
		}
		p.incompatible = append(p.incompatible, g)
	}
	return p, nil
}

var defaultPolicy, _ = NewStreamingPolicy(DefaultIncompatibleClients)

// Supported is false when provider cannot push chunks (does not implement
// llm.Streamer) or clientID matches an incompatible pattern.
func (p *StreamingPolicy) Supported(provider any, clientID string) bool {
	if _, ok := provider.(llm.Streamer); !ok {
		return false
	}
	if p == nil {
		return true
	}
	for _, g := range p.incompatible {
		if g.Match(clientID) {
			return false
		}
	}
	return true
}

// IsStreamingSupported applies the default policy.
func IsStreamingSupported(provider any, clientID string) bool {
	return defaultPolicy.Supported(provider, clientID)
}
