package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/varunSalat/Blog-backed/types"
)

const postColumns = `id, title, url, summary, cat, img, body, likes, dislikes, is_most_viewed, author_id, created_at, updated_at`

const postOrder = ` ORDER BY created_at DESC, id DESC`

// Vote counters that can be incremented atomically.
const (
	counterLikes    = "likes"
	counterDislikes = "dislikes"
)

// PostRepository handles persistence for posts.
type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// List returns one page of posts matching filter, newest first, along with
// the total number of matching posts.
func (r *PostRepository) List(ctx context.Context, filter types.PostFilter, offset, limit int) ([]types.Post, int, error) {
	if offset < 0 {
		return nil, 0, fmt.Errorf("negative offset %d", offset)
	}
	if limit < 1 {
		limit = 10
	}

	where, args := buildPostFilter(filter)

	countQuery := `SELECT COUNT(1) FROM posts` + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + postColumns + ` FROM posts` + where + postOrder +
		fmt.Sprintf(` OFFSET $%d LIMIT $%d`, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts, err := scanPosts(rows, limit)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// MostViewed returns up to limit posts flagged for the curated listing.
func (r *PostRepository) MostViewed(ctx context.Context, limit int) ([]types.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE is_most_viewed` + postOrder + ` LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPosts(rows, limit)
}

func (r *PostRepository) GetByURL(ctx context.Context, url string) (types.Post, error) {
	const query = `SELECT ` + postColumns + ` FROM posts WHERE url = $1`
	return scanPost(r.db.QueryRowContext(ctx, query, url))
}

func (r *PostRepository) Create(ctx context.Context, post types.Post) (types.Post, error) {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now

	const query = `INSERT INTO posts (title, url, summary, cat, img, body, likes, dislikes, is_most_viewed, author_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		post.Title,
		post.URL,
		post.Summary,
		post.Category,
		post.Img,
		post.Body,
		post.Likes,
		post.Dislikes,
		post.IsMostViewed,
		post.AuthorID,
		post.CreatedAt,
		post.UpdatedAt,
	).Scan(&post.ID); err != nil {
		return types.Post{}, translateError(err)
	}

	return post, nil
}

// UpdateByURL replaces the editable fields of the post addressed by
// edit.URL. The slug and the author are left untouched, as are the flag and
// counters the edit leaves nil.
func (r *PostRepository) UpdateByURL(ctx context.Context, edit types.PostEdit) (types.Post, error) {
	const query = `UPDATE posts SET title = $1, summary = $2, cat = $3, img = $4, body = $5, is_most_viewed = COALESCE($6, is_most_viewed), likes = COALESCE($7, likes), dislikes = COALESCE($8, dislikes), updated_at = $9 WHERE url = $10 RETURNING ` + postColumns
	return scanPost(r.db.QueryRowContext(
		ctx,
		query,
		edit.Title,
		edit.Summary,
		edit.Category,
		edit.Img,
		edit.Body,
		edit.IsMostViewed,
		edit.Likes,
		edit.Dislikes,
		time.Now().UTC(),
		edit.URL,
	))
}

func (r *PostRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM posts WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementLikes adds one like in a single statement and returns the post
// with its new counters.
func (r *PostRepository) IncrementLikes(ctx context.Context, id int) (types.Post, error) {
	return r.incrementCounter(ctx, id, counterLikes)
}

// IncrementDislikes adds one dislike in a single statement.
func (r *PostRepository) IncrementDislikes(ctx context.Context, id int) (types.Post, error) {
	return r.incrementCounter(ctx, id, counterDislikes)
}

func (r *PostRepository) incrementCounter(ctx context.Context, id int, column string) (types.Post, error) {
	if column != counterLikes && column != counterDislikes {
		return types.Post{}, fmt.Errorf("unknown counter %q", column)
	}
	query := `UPDATE posts SET ` + column + ` = ` + column + ` + 1, updated_at = $1 WHERE id = $2 RETURNING ` + postColumns
	return scanPost(r.db.QueryRowContext(ctx, query, time.Now().UTC(), id))
}

// buildPostFilter renders the WHERE clause for a listing. Both matches are
// case-insensitive substring matches and are AND-combined.
func buildPostFilter(filter types.PostFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+escapeLike(search)+"%")
		conditions = append(conditions, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		args = append(args, "%"+escapeLike(category)+"%")
		conditions = append(conditions, fmt.Sprintf("cat ILIKE $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPostRow(row rowScanner) (types.Post, error) {
	var post types.Post
	err := row.Scan(
		&post.ID,
		&post.Title,
		&post.URL,
		&post.Summary,
		&post.Category,
		&post.Img,
		&post.Body,
		&post.Likes,
		&post.Dislikes,
		&post.IsMostViewed,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	return post, err
}

func scanPost(row *sql.Row) (types.Post, error) {
	post, err := scanPostRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Post{}, ErrNotFound
		}
		return types.Post{}, translateError(err)
	}
	return post, nil
}

func scanPosts(rows *sql.Rows, capacity int) ([]types.Post, error) {
	posts := make([]types.Post, 0, capacity)
	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}
