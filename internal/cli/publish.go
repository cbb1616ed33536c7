package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/maplab/flatland/pkg/errors"
	"github.com/maplab/flatland/pkg/store"
)

// publishCommand creates the publish command for pushing bundles to the store.
func (c *CLI) publishCommand() *cobra.Command {
	var (
		mongo   string
		mongoDB string
	)

	cmd := &cobra.Command{
		Use:   "publish <bundle.json>",
		Short: "Publish a bundle to the MongoDB store",
		Long: `Publish a bundle to the MongoDB store.

Publishing upserts by map name: re-publishing a map replaces its previous
bundle. The store connection comes from --mongo-uri or the [store] section
of ~/.config/flatland/flatland.toml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPublish(cmd.Context(), args[0], mongo, mongoDB)
		},
	}

	cmd.Flags().StringVar(&mongo, "mongo-uri", c.Config.Store.URI, "MongoDB connection URI")
	cmd.Flags().StringVar(&mongoDB, "mongo-db", c.Config.Store.Database, "MongoDB database name")

	return cmd
}

// runPublish reads the bundle and upserts it into the store.
func (c *CLI) runPublish(ctx context.Context, input, mongoURI, mongoDB string) error {
	b, err := loadBundleFile(input)
	if err != nil {
		return fmt.Errorf("load bundle %s: %w", input, err)
	}

	if mongoURI == "" {
		return fmt.Errorf("no MongoDB store configured (set --mongo-uri or [store] in the config file)")
	}
	if err := errors.ValidateURL(mongoURI, "mongodb", "mongodb+srv"); err != nil {
		return err
	}
	if mongoDB == "" {
		mongoDB = appName
	}

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Publishing %s...", b.MapName))
	spinner.Start()

	st, err := store.NewMongoStore(ctx, mongoURI, mongoDB)
	if err != nil {
		spinner.StopWithError("Store connection failed")
		return err
	}
	defer st.Close(context.Background())

	if err := st.Publish(ctx, b); err != nil {
		spinner.StopWithError("Publish failed")
		return fmt.Errorf("publish: %w", err)
	}
	spinner.StopWithSuccess(fmt.Sprintf("Published %s", b.MapName))

	printDetail("id: %s", b.ID)
	printDetail("domains: %d", len(b.Domains))
	return nil
}
