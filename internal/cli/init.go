package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askai/askai/internal/config"
	"github.com/askai/askai/internal/db"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration and create the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				p, err := config.GlobalConfigPath()
				if err != nil {
					return err
				}
				path = p
			}

			cfg := config.DefaultGlobal()
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Printf("Config already exists at %s (use --force to overwrite)\n", path)
				loaded, err := config.LoadFile(path)
				if err != nil {
					return err
				}
				cfg = loaded
			} else {
				if err := config.SaveFile(path, cfg); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
			}

			if _, err := cfg.Catalog(); err != nil {
				return err
			}

			dbPath, err := cfg.DBPath()
			if err != nil {
				return err
			}
			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer database.Close()
			fmt.Printf("Database ready at %s\n", dbPath)

			if cfg.Keys.OpenAI == "" {
				fmt.Fprintln(os.Stderr, "  Warning: no OpenAI key set. Moderation needs one: set OPENAI_API_KEY or [keys] openai.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}
