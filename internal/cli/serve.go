package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/export"
	"github.com/maplab/flatland/pkg/server"
	"github.com/maplab/flatland/pkg/store"
)

// serveCommand creates the serve command for the preview HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		bundles []string
		mongo   string
		mongoDB string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve published bundles over HTTP",
		Long: `Serve published bundles over HTTP.

Without flags the server reads from the MongoDB store configured in
~/.config/flatland/flatland.toml. With --bundle flags it serves the given
bundle files from memory instead, which is handy for previewing an export
before publishing it.

Endpoints:
  GET /healthz
  GET /api/v1/bundles
  GET /api/v1/bundles/{id}
  GET /api/v1/maps/{name}
  GET /api/v1/maps/{name}/stats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, bundles, mongo, mongoDB)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", c.Config.serverAddr(), "listen address")
	cmd.Flags().StringArrayVar(&bundles, "bundle", nil, "bundle file to serve from memory (repeatable)")
	cmd.Flags().StringVar(&mongo, "mongo-uri", c.Config.Store.URI, "MongoDB connection URI")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", c.Config.Store.Database, "MongoDB database name")

	return cmd
}

// runServe builds the store and runs the server until ctx is cancelled.
func (c *CLI) runServe(ctx context.Context, addr string, bundles []string, mongoURI, mongoDB string) error {
	st, err := c.openStore(ctx, bundles, mongoURI, mongoDB)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	printInfo("Listening on %s", addr)
	srv := server.New(st, server.Options{Addr: addr, Logger: c.Logger})
	return srv.ListenAndServe(ctx)
}

// openStore picks the store backend: in-memory from bundle files when given,
// MongoDB otherwise.
func (c *CLI) openStore(ctx context.Context, bundles []string, mongoURI, mongoDB string) (store.Store, error) {
	if len(bundles) > 0 {
		mem := store.NewMemoryStore()
		for _, path := range bundles {
			b, err := loadBundleFile(path)
			if err != nil {
				return nil, fmt.Errorf("load bundle %s: %w", path, err)
			}
			if err := mem.Publish(ctx, b); err != nil {
				return nil, fmt.Errorf("load bundle %s: %w", path, err)
			}
			printDetail("loaded %s (%s)", path, b.MapName)
		}
		return mem, nil
	}

	if mongoURI == "" {
		return nil, fmt.Errorf("no bundle files given and no MongoDB store configured (set --mongo-uri or [store] in the config file)")
	}
	if err := errors.ValidateURL(mongoURI, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	if mongoDB == "" {
		mongoDB = appName
	}
	return store.NewMongoStore(ctx, mongoURI, mongoDB)
}

// loadBundleFile reads a bundle JSON file from disk.
func loadBundleFile(path string) (*export.Bundle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b export.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}
