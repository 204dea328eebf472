package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog/internal/db"
	"blog/internal/models"
)

// PostInput carries post fields from a request. Image follows the same rules
// as ProfileInput.Image.
type PostInput struct {
	Title       *string
	Description *string
	Image       *string
}

func (in *PostInput) validate(partial bool) error {
	v := ValidationError{}
	requiredText(v, "title", in.Title, !partial)
	maxLength(v, "title", in.Title, 200)
	requiredText(v, "description", in.Description, !partial)
	return v.Err()
}

// PostStore persists posts. Image files are released through Hooks after a
// write commits: the old file on replacement, the file of a deleted row.
type PostStore struct {
	DB    *sql.DB
	Hooks ImageHooks
}

const postSelect = `SELECT p.id, p.title, p.description, p.image, p.created_at, p.author_id, u.username
	FROM posts p JOIN users u ON u.id = p.author_id`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	p := &models.Post{}
	var image sql.NullString
	err := row.Scan(&p.ID, &p.Title, &p.Description, &image, &p.CreatedAt, &p.AuthorID, &p.AuthorUsername)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Image = image.String
	return p, nil
}

func (s *PostStore) list(ctx context.Context, where string, args ...any) ([]*models.Post, error) {
	rows, err := s.DB.QueryContext(ctx, postSelect+where+` ORDER BY p.created_at DESC, p.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []*models.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// List returns every post, newest first.
func (s *PostStore) List(ctx context.Context) ([]*models.Post, error) {
	return s.list(ctx, "")
}

func (s *PostStore) ListByAuthor(ctx context.Context, authorID int64) ([]*models.Post, error) {
	return s.list(ctx, ` WHERE p.author_id = ?`, authorID)
}

func (s *PostStore) Get(ctx context.Context, id int64) (*models.Post, error) {
	return getPost(ctx, s.DB, id)
}

func getPost(ctx context.Context, q db.Querier, id int64) (*models.Post, error) {
	return scanPost(q.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id))
}

// Create inserts a post owned by authorID. The author never comes from input.
func (s *PostStore) Create(ctx context.Context, authorID int64, in PostInput) (*models.Post, error) {
	if err := in.validate(false); err != nil {
		return nil, err
	}
	var p *models.Post
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO posts(author_id,title,description,image,created_at) VALUES(?,?,?,?,?)`,
			authorID, *in.Title, *in.Description, nullable(deref(in.Image)), time.Now())
		if err != nil {
			return fmt.Errorf("insert post: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		p, err = getPost(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Update rewrites the fields present in in. The stored row is re-read inside
// the transaction and handed to guard before any change; a row that no longer
// exists yields ErrNotFound and no image is touched. created_at and the
// author are never changed.
func (s *PostStore) Update(ctx context.Context, id int64, in PostInput, partial bool, guard Guard) (*models.Post, error) {
	var prior, next *models.Post
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if prior, err = getPost(ctx, tx, id); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(prior); err != nil {
				return err
			}
		}
		if err := in.validate(partial); err != nil {
			return err
		}

		cp := *prior
		next = &cp
		if in.Title != nil {
			next.Title = *in.Title
		}
		if in.Description != nil {
			next.Description = *in.Description
		}
		if in.Image != nil {
			next.Image = *in.Image
		}
		_, err = tx.ExecContext(ctx, `UPDATE posts SET title=?, description=?, image=? WHERE id=?`,
			next.Title, next.Description, nullable(next.Image), id)
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hooksOrNop(s.Hooks).ImageReplaced(ctx, prior.Image, next.Image)
	return next, nil
}

// Delete removes the post after guard accepted it and then releases its image.
func (s *PostStore) Delete(ctx context.Context, id int64, guard Guard) error {
	var prior *models.Post
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if prior, err = getPost(ctx, tx, id); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(prior); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	hooksOrNop(s.Hooks).ImageOrphaned(ctx, prior.Image)
	return nil
}
