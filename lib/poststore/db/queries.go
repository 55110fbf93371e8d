package db

import (
	"context"
)

const upsertPost = `
INSERT OR REPLACE INTO posts (
    id, author, community, title, content,
    timestamp, timestamp_precision, timestamp_raw,
    likes, comment_count, total_comment_count,
    post_type, media_urls, hashtags, mentions, url, scraped_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type UpsertPostParams = Post

func (q *Queries) UpsertPost(ctx context.Context, arg UpsertPostParams) error {
	_, err := q.db.ExecContext(ctx, upsertPost,
		arg.ID,
		arg.Author,
		arg.Community,
		arg.Title,
		arg.Content,
		arg.Timestamp,
		arg.TimestampPrecision,
		arg.TimestampRaw,
		arg.Likes,
		arg.CommentCount,
		arg.TotalCommentCount,
		arg.PostType,
		arg.MediaUrls,
		arg.Hashtags,
		arg.Mentions,
		arg.Url,
		arg.ScrapedAt,
	)
	return err
}

const upsertComment = `
INSERT OR REPLACE INTO comments (
    id, post_id, position, author, content,
    timestamp, timestamp_precision, timestamp_raw, likes
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

type UpsertCommentParams = Comment

func (q *Queries) UpsertComment(ctx context.Context, arg UpsertCommentParams) error {
	_, err := q.db.ExecContext(ctx, upsertComment,
		arg.ID,
		arg.PostID,
		arg.Position,
		arg.Author,
		arg.Content,
		arg.Timestamp,
		arg.TimestampPrecision,
		arg.TimestampRaw,
		arg.Likes,
	)
	return err
}

const deletePostComments = `
DELETE FROM comments WHERE post_id = ?
`

func (q *Queries) DeletePostComments(ctx context.Context, postID string) error {
	_, err := q.db.ExecContext(ctx, deletePostComments, postID)
	return err
}

const hasPost = `
SELECT COUNT(*) FROM posts WHERE id = ?
`

func (q *Queries) HasPost(ctx context.Context, id string) (int64, error) {
	row := q.db.QueryRowContext(ctx, hasPost, id)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listPosts = `
SELECT id, author, community, title, content,
       timestamp, timestamp_precision, timestamp_raw,
       likes, comment_count, total_comment_count,
       post_type, media_urls, hashtags, mentions, url, scraped_at
FROM posts
ORDER BY scraped_at, id
`

func (q *Queries) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := q.db.QueryContext(ctx, listPosts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Post
	for rows.Next() {
		var i Post
		err := rows.Scan(
			&i.ID,
			&i.Author,
			&i.Community,
			&i.Title,
			&i.Content,
			&i.Timestamp,
			&i.TimestampPrecision,
			&i.TimestampRaw,
			&i.Likes,
			&i.CommentCount,
			&i.TotalCommentCount,
			&i.PostType,
			&i.MediaUrls,
			&i.Hashtags,
			&i.Mentions,
			&i.Url,
			&i.ScrapedAt,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listComments = `
SELECT id, post_id, position, author, content,
       timestamp, timestamp_precision, timestamp_raw, likes
FROM comments
WHERE post_id = ?
ORDER BY position
`

func (q *Queries) ListComments(ctx context.Context, postID string) ([]Comment, error) {
	rows, err := q.db.QueryContext(ctx, listComments, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Comment
	for rows.Next() {
		var i Comment
		err := rows.Scan(
			&i.ID,
			&i.PostID,
			&i.Position,
			&i.Author,
			&i.Content,
			&i.Timestamp,
			&i.TimestampPrecision,
			&i.TimestampRaw,
			&i.Likes,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const countPosts = `
SELECT COUNT(*) FROM posts
`

func (q *Queries) CountPosts(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPosts)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countComments = `
SELECT COUNT(*) FROM comments
`

func (q *Queries) CountComments(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countComments)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const avgPostLikes = `
SELECT COALESCE(AVG(likes), 0) FROM posts WHERE likes >= 0
`

func (q *Queries) AvgPostLikes(ctx context.Context) (float64, error) {
	row := q.db.QueryRowContext(ctx, avgPostLikes)
	var avg float64
	err := row.Scan(&avg)
	return avg, err
}

const avgCommentCount = `
SELECT COALESCE(AVG(comment_count), 0) FROM posts
`

func (q *Queries) AvgCommentCount(ctx context.Context) (float64, error) {
	row := q.db.QueryRowContext(ctx, avgCommentCount)
	var avg float64
	err := row.Scan(&avg)
	return avg, err
}

const postTypeCounts = `
SELECT post_type, COUNT(*) FROM posts GROUP BY post_type ORDER BY COUNT(*) DESC
`

type PostTypeCountsRow struct {
	PostType string
	Count    int64
}

func (q *Queries) PostTypeCounts(ctx context.Context) ([]PostTypeCountsRow, error) {
	rows, err := q.db.QueryContext(ctx, postTypeCounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PostTypeCountsRow
	for rows.Next() {
		var i PostTypeCountsRow
		err := rows.Scan(&i.PostType, &i.Count)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const topAuthors = `
SELECT author, COUNT(*) FROM posts GROUP BY author ORDER BY COUNT(*) DESC, author LIMIT ?
`

type TopAuthorsRow struct {
	Author string
	Count  int64
}

func (q *Queries) TopAuthors(ctx context.Context, limit int64) ([]TopAuthorsRow, error) {
	rows, err := q.db.QueryContext(ctx, topAuthors, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopAuthorsRow
	for rows.Next() {
		var i TopAuthorsRow
		err := rows.Scan(&i.Author, &i.Count)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}
