package api

import (
	"context"

	"github.com/spf13/cobra"
)

// Registry holds all registered endpoints.
type Registry struct {
	endpoints []Endpoint
}

// NewRegistry creates a new endpoint registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds an endpoint to the registry.
func (r *Registry) Register(ep Endpoint) {
	r.endpoints = append(r.endpoints, ep)
}

// BuildCommands returns a command for every registered endpoint, in
// registration order. Endpoints sharing a Parent are grouped under one
// parent command.
// getFetcher is called at runtime to get the API client.
func (r *Registry) BuildCommands(getFetcher func(ctx context.Context) (Fetcher, error)) []*cobra.Command {
	var cmds []*cobra.Command
	parents := make(map[string]*cobra.Command)

	for _, ep := range r.endpoints {
		cmd := ep.Command(getFetcher)
		if ep.Parent == "" {
			cmds = append(cmds, cmd)
			continue
		}
		parent, ok := parents[ep.Parent]
		if !ok {
			parent = &cobra.Command{
				Use:   ep.Parent,
				Short: "Commands for " + ep.Parent,
			}
			parents[ep.Parent] = parent
			cmds = append(cmds, parent)
		}
		parent.AddCommand(cmd)
	}

	return cmds
}

// Endpoints returns all registered endpoints.
func (r *Registry) Endpoints() []Endpoint {
	return r.endpoints
}
