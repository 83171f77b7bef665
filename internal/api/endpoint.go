package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/tradetariff/uktt/internal/tariff"
)

// ErrRequiresV2 is returned for resources only served by API version v2.
var ErrRequiresV2 = errors.New("requires API version v2")

// Fetcher retrieves Trade Tariff resources in the configured output format.
type Fetcher interface {
	Retrieve(ctx context.Context, resource string) (*tariff.Response, error)
	APIVersion() string
}

// Call is the input an Endpoint resolves into a resource path.
type Call struct {
	Args       []string
	Flags      *pflag.FlagSet
	APIVersion string
}

// Bool returns the value of a boolean flag, false if it is not defined.
func (c Call) Bool(name string) bool {
	if c.Flags == nil {
		return false
	}
	v, _ := c.Flags.GetBool(name)
	return v
}

// Endpoint defines a read-only API resource and its CLI command.
type Endpoint struct {
	// Parent groups the command under another, e.g. "quotas" for
	// "quotas search". Empty places it at the top level.
	Parent  string
	Use     string
	Short   string
	Example string
	Args    cobra.PositionalArgs

	// Flags adds endpoint-specific flags.
	Flags func(fs *pflag.FlagSet)

	// Path resolves the resource path relative to /api/{version}/.
	Path func(call Call) (string, error)
}

// Command returns a cobra command that fetches the endpoint and writes the
// response to stdout. getFetcher is called at runtime (deferred evaluation).
func (ep Endpoint) Command(getFetcher func(ctx context.Context) (Fetcher, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:     ep.Use,
		Short:   ep.Short,
		Example: ep.Example,
		Args:    ep.Args,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := getFetcher(cmd.Context())
			if err != nil {
				return err
			}
			path, err := ep.Path(Call{Args: args, Flags: cmd.Flags(), APIVersion: f.APIVersion()})
			if err != nil {
				return err
			}
			resp, err := f.Retrieve(cmd.Context(), path)
			if err != nil {
				return fmt.Errorf("failed to retrieve %s: %w", path, err)
			}
			return WriteResponse(cmd.OutOrStdout(), GetOutputFormat(), resp)
		},
	}
	if ep.Flags != nil {
		ep.Flags(cmd.Flags())
	}
	return cmd
}
