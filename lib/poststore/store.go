// Package poststore persists scraped posts and their comments to
// sqlite. Writes are idempotent on post identity, so re-crawling the
// same feed only refreshes rows instead of duplicating them.
package poststore

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"moltbook-scraper/lib/poststore/db"
	"moltbook-scraper/lib/reltime"
	"moltbook-scraper/lib/scrapers/moltbook"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Has reports whether a post with this identity was persisted before.
func (s Store) Has(ctx context.Context, id string) (bool, error) {
	count, err := s.qry.HasPost(ctx, id)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PutPosts writes a batch of posts and their comments in one
// transaction. Existing rows with the same identity are replaced, and a
// post's comments are rewritten wholesale so stale ones don't linger.
func (s Store) PutPosts(ctx context.Context, posts []moltbook.Post) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	for _, post := range posts {
		err := txqry.UpsertPost(ctx, encodePost(post))
		if err != nil {
			return err
		}
		err = txqry.DeletePostComments(ctx, post.ID)
		if err != nil {
			return err
		}
		for i, comment := range post.Comments {
			err := txqry.UpsertComment(ctx, encodeComment(post.ID, int64(i+1), comment))
			if err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// PutComments replaces the stored comment thread of one post. PutPosts
// already does this for the batch it writes, this is for refreshing a
// thread without touching the post row.
func (s Store) PutComments(ctx context.Context, postID string, comments []moltbook.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeletePostComments(ctx, postID)
	if err != nil {
		return err
	}
	for i, comment := range comments {
		err := txqry.UpsertComment(ctx, encodeComment(postID, int64(i+1), comment))
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Posts returns every persisted post with its comments attached.
func (s Store) Posts(ctx context.Context) ([]moltbook.Post, error) {
	rows, err := s.qry.ListPosts(ctx)
	if err != nil {
		return nil, err
	}

	var posts []moltbook.Post
	for _, row := range rows {
		commentRows, err := s.qry.ListComments(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		posts = append(posts, decodePost(ctx, row, commentRows))
	}
	return posts, nil
}

type TypeCount struct {
	Type  moltbook.PostType
	Count int64
}

type AuthorCount struct {
	Author string
	Count  int64
}

type Stats struct {
	Posts           int64
	Comments        int64
	AvgLikes        float64
	AvgCommentCount float64
	TypeCounts      []TypeCount
	TopAuthors      []AuthorCount
}

func (s Store) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	var err error

	stats.Posts, err = s.qry.CountPosts(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.Comments, err = s.qry.CountComments(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.AvgLikes, err = s.qry.AvgPostLikes(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats.AvgCommentCount, err = s.qry.AvgCommentCount(ctx)
	if err != nil {
		return Stats{}, err
	}

	typeRows, err := s.qry.PostTypeCounts(ctx)
	if err != nil {
		return Stats{}, err
	}
	for _, r := range typeRows {
		stats.TypeCounts = append(stats.TypeCounts, TypeCount{
			Type:  moltbook.PostType(r.PostType),
			Count: r.Count,
		})
	}

	authorRows, err := s.qry.TopAuthors(ctx, 10)
	if err != nil {
		return Stats{}, err
	}
	for _, r := range authorRows {
		stats.TopAuthors = append(stats.TopAuthors, AuthorCount{
			Author: r.Author,
			Count:  r.Count,
		})
	}
	return stats, nil
}

func encodePost(p moltbook.Post) db.Post {
	return db.Post{
		ID:                 p.ID,
		Author:             p.Author,
		Community:          p.Community,
		Title:              p.Title,
		Content:            p.Content,
		Timestamp:          encodeTimestamp(p.Timestamp),
		TimestampPrecision: string(p.TimestampPrecision),
		TimestampRaw:       p.TimestampRaw,
		Likes:              p.Likes,
		CommentCount:       p.CommentCount,
		TotalCommentCount:  p.TotalCommentCount,
		PostType:           string(p.Type),
		MediaUrls:          encodeStrings(p.MediaURLs),
		Hashtags:           encodeStrings(p.Hashtags),
		Mentions:           encodeStrings(p.Mentions),
		Url:                p.URL,
		ScrapedAt:          p.ScrapedAt.Unix(),
	}
}

func encodeComment(postID string, position int64, c moltbook.Comment) db.Comment {
	return db.Comment{
		ID:                 c.ID,
		PostID:             postID,
		Position:           position,
		Author:             c.Author,
		Content:            c.Content,
		Timestamp:          encodeTimestamp(c.Timestamp),
		TimestampPrecision: string(c.TimestampPrecision),
		TimestampRaw:       c.TimestampRaw,
		Likes:              c.Likes,
	}
}

func decodePost(ctx context.Context, row db.Post, commentRows []db.Comment) moltbook.Post {
	post := moltbook.Post{
		ID:                 row.ID,
		Author:             row.Author,
		Community:          row.Community,
		Title:              row.Title,
		Content:            row.Content,
		Timestamp:          decodeTimestamp(row.Timestamp),
		TimestampPrecision: reltime.Precision(row.TimestampPrecision),
		TimestampRaw:       row.TimestampRaw,
		Likes:              row.Likes,
		CommentCount:       row.CommentCount,
		TotalCommentCount:  row.TotalCommentCount,
		Type:               moltbook.PostType(row.PostType),
		MediaURLs:          decodeStrings(ctx, row.MediaUrls),
		Hashtags:           decodeStrings(ctx, row.Hashtags),
		Mentions:           decodeStrings(ctx, row.Mentions),
		URL:                row.Url,
		ScrapedAt:          time.Unix(row.ScrapedAt, 0).UTC(),
	}
	for _, c := range commentRows {
		post.Comments = append(post.Comments, moltbook.Comment{
			ID:                 c.ID,
			Author:             c.Author,
			Content:            c.Content,
			Timestamp:          decodeTimestamp(c.Timestamp),
			TimestampPrecision: reltime.Precision(c.TimestampPrecision),
			TimestampRaw:       c.TimestampRaw,
			Likes:              c.Likes,
		})
	}
	return post
}

func encodeTimestamp(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func decodeTimestamp(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func encodeStrings(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	encoded, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}

func decodeStrings(ctx context.Context, encoded string) []string {
	var values []string
	err := json.Unmarshal([]byte(encoded), &values)
	if err != nil {
		slog.WarnContext(ctx, "failed to unmarshal db string list", "err", err)
		return nil
	}
	if len(values) == 0 {
		return nil
	}
	return values
}
