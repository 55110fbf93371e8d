package commands

import (
	"fmt"
	"log/slog"

	"moltbook-scraper/lib/poststore"
	"moltbook-scraper/lib/poststore/db"
	"moltbook-scraper/lib/sqliteutil"

	"github.com/spf13/cobra"
)

var (
	exportDb     *string
	exportFormat *string
	exportOut    *string
)

func init() {
	exportDb = exportCmd.Flags().String("db", "moltbook.db", "The database to read from.")
	exportFormat = exportCmd.Flags().String("format", "json", "Export format, either json or csv.")
	exportOut = exportCmd.Flags().String("out", "exports", "Directory to write the export files into.")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export [--format json|csv] [--out <dir>]",
	Short: "Exports the scraped posts to timestamped json or csv files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := sqliteutil.OpenDB(db.Schema, *exportDb)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer database.Close()
		store := poststore.NewStore(database)

		switch *exportFormat {
		case "json":
			path, err := store.ExportJSON(cmd.Context(), *exportOut)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			slog.Info("exported posts", "path", path)
		case "csv":
			postsPath, commentsPath, err := store.ExportCSV(cmd.Context(), *exportOut)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			slog.Info("exported posts", "posts", postsPath, "comments", commentsPath)
		default:
			return fmt.Errorf("unknown export format %q, want json or csv", *exportFormat)
		}
		return nil
	},
}
