package poststore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"moltbook-scraper/lib/scrapers/moltbook"
)

// ExportJSON writes every persisted post, comments included, to a
// timestamped file under dir and returns the path.
func (s Store) ExportJSON(ctx context.Context, dir string) (string, error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, exportFilename("posts", "json", time.Now()))

	encoded, err := json.MarshalIndent(posts, "", "  ")
	if err != nil {
		return "", err
	}
	err = os.WriteFile(path, encoded, 0644)
	if err != nil {
		return "", err
	}
	return path, nil
}

// ExportCSV writes two sibling files sharing one timestamp: one row per
// post, and one row per comment keyed by post id.
func (s Store) ExportCSV(ctx context.Context, dir string) (postsPath, commentsPath string, err error) {
	posts, err := s.Posts(ctx)
	if err != nil {
		return "", "", err
	}

	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return "", "", err
	}
	stamp := time.Now()
	postsPath = filepath.Join(dir, exportFilename("posts", "csv", stamp))
	commentsPath = filepath.Join(dir, exportFilename("comments", "csv", stamp))

	err = writeCSV(postsPath, postHeader, postRows(posts))
	if err != nil {
		return "", "", err
	}
	err = writeCSV(commentsPath, commentHeader, commentRows(posts))
	if err != nil {
		return "", "", err
	}
	return postsPath, commentsPath, nil
}

var postHeader = []string{
	"id", "author", "community", "title", "content",
	"timestamp", "timestamp_raw", "likes",
	"comment_count", "total_comment_count",
	"type", "url", "hashtags", "mentions",
}

func postRows(posts []moltbook.Post) [][]string {
	var rows [][]string
	for _, p := range posts {
		rows = append(rows, []string{
			p.ID,
			p.Author,
			p.Community,
			p.Title,
			p.Content,
			formatTimestamp(p.Timestamp),
			p.TimestampRaw,
			strconv.FormatInt(p.Likes, 10),
			strconv.FormatInt(p.CommentCount, 10),
			strconv.FormatInt(p.TotalCommentCount, 10),
			string(p.Type),
			p.URL,
			strings.Join(p.Hashtags, " "),
			strings.Join(p.Mentions, " "),
		})
	}
	return rows
}

var commentHeader = []string{
	"id", "post_id", "position", "author", "content",
	"timestamp", "timestamp_raw", "likes",
}

func commentRows(posts []moltbook.Post) [][]string {
	var rows [][]string
	for _, p := range posts {
		for i, c := range p.Comments {
			rows = append(rows, []string{
				c.ID,
				p.ID,
				strconv.Itoa(i + 1),
				c.Author,
				c.Content,
				formatTimestamp(c.Timestamp),
				c.TimestampRaw,
				strconv.FormatInt(c.Likes, 10),
			})
		}
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	err = w.Write(header)
	if err != nil {
		return err
	}
	for _, row := range rows {
		err := w.Write(row)
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func exportFilename(kind, ext string, stamp time.Time) string {
	return fmt.Sprintf("moltbook_%s_%s.%s", kind, stamp.UTC().Format("20060102_150405"), ext)
}
