// Package elastomer exposes the search server client builder.
package elastomer

import (
	"fmt"

	"github.com/iRoxx/elastomer-client/client"
)

// EnvPrefix is the environment variable prefix read by [NewClientFromEnv].
const EnvPrefix = "ELASTOMER"

// NewClient instantiates a new *client.Client with the provided options.
// If not specified, it talks to http://localhost:9200 with the net/http adapter.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewClientFromEnv builds a client from ELASTOMER_* environment variables.
// opts are applied on top of the environment configuration.
func NewClientFromEnv(opts ...client.Option) (*client.Client, error) {
	cfg, err := client.ConfigFromEnv(EnvPrefix)
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	return client.Build(append([]client.Option{client.WithConfig(cfg)}, opts...)...)
}
