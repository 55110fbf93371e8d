package db

import "database/sql"

type Post struct {
	ID                 string
	Author             string
	Community          string
	Title              string
	Content            string
	Timestamp          sql.NullInt64
	TimestampPrecision string
	TimestampRaw       string
	Likes              int64
	CommentCount       int64
	TotalCommentCount  int64
	PostType           string
	MediaUrls          string
	Hashtags           string
	Mentions           string
	Url                string
	ScrapedAt          int64
}

type Comment struct {
	ID                 string
	PostID             string
	Position           int64
	Author             string
	Content            string
	Timestamp          sql.NullInt64
	TimestampPrecision string
	TimestampRaw       string
	Likes              int64
}
