package commands

import (
	"fmt"
	"os"

	"moltbook-scraper/lib/poststore"
	"moltbook-scraper/lib/poststore/db"
	"moltbook-scraper/lib/sqliteutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var statsDb *string

func init() {
	statsDb = statsCmd.Flags().String("db", "moltbook.db", "The database to read from.")
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats [--db <path/to/output.db>]",
	Short: "Prints aggregate statistics over the scraped posts.",
	RunE: func(cmd *cobra.Command, args []string) error {
		database, err := sqliteutil.OpenDB(db.Schema, *statsDb)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer database.Close()

		stats, err := poststore.NewStore(database).Stats(cmd.Context())
		if err != nil {
			return fmt.Errorf("read stats: %w", err)
		}
		printStats(stats)
		return nil
	},
}

func printStats(stats poststore.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Posts", stats.Posts},
		{"Comments", stats.Comments},
		{"Avg likes", fmt.Sprintf("%.2f", stats.AvgLikes)},
		{"Avg comments per post", fmt.Sprintf("%.2f", stats.AvgCommentCount)},
	})
	t.Render()

	if len(stats.TypeCounts) > 0 {
		types := table.NewWriter()
		types.SetOutputMirror(os.Stdout)
		types.AppendHeader(table.Row{"Post type", "Count"})
		for _, tc := range stats.TypeCounts {
			types.AppendRow(table.Row{string(tc.Type), tc.Count})
		}
		types.Render()
	}

	if len(stats.TopAuthors) > 0 {
		authors := table.NewWriter()
		authors.SetOutputMirror(os.Stdout)
		authors.AppendHeader(table.Row{"Author", "Posts"})
		for _, ac := range stats.TopAuthors {
			authors.AppendRow(table.Row{ac.Author, ac.Count})
		}
		authors.Render()
	}
}
