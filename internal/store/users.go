package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"blog/internal/auth"
	"blog/internal/db"
	"blog/internal/models"
)

// UserInput carries user fields from a request. Nil fields were not sent.
type UserInput struct {
	Username  *string
	Email     *string
	Password  *string
	FirstName *string
	LastName  *string
}

func (in *UserInput) validate(v ValidationError, creating, partial bool) {
	requiredText(v, "username", in.Username, !partial)
	maxLength(v, "username", in.Username, 150)
	validUsername(v, in.Username)
	validEmail(v, in.Email)
	optionalText(in.FirstName)
	maxLength(v, "first_name", in.FirstName, 150)
	optionalText(in.LastName)
	maxLength(v, "last_name", in.LastName, 150)

	switch {
	case in.Password == nil && creating:
		v.Add("password", msgRequired)
	case in.Password != nil && *in.Password == "":
		v.Add("password", msgBlank)
	}
}

type UserStore struct {
	DB     *sql.DB
	Tokens *auth.Manager
	Hooks  ImageHooks
}

const userColumns = `id, username, email, password_hash, first_name, last_name, created_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserStore) Get(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// Register creates a user together with its empty profile and its token in a
// single transaction.
func (s *UserStore) Register(ctx context.Context, in UserInput) (*models.User, string, error) {
	v := ValidationError{}
	in.validate(v, true, false)
	if err := v.Err(); err != nil {
		return nil, "", err
	}

	hash, err := auth.HashPassword(*in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &models.User{
		Username:     *in.Username,
		Email:        deref(in.Email),
		PasswordHash: hash,
		FirstName:    deref(in.FirstName),
		LastName:     deref(in.LastName),
		CreatedAt:    time.Now(),
	}
	var token string

	err = db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		if err := usernameFree(ctx, tx, u.Username, 0); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO users(username,email,password_hash,first_name,last_name,created_at) VALUES(?,?,?,?,?,?)`,
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if u.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO profiles(user_id) VALUES(?)`, u.ID); err != nil {
			return fmt.Errorf("insert profile: %w", err)
		}
		token, err = s.Tokens.Issue(ctx, tx, u.ID)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Update changes the fields present in in. With partial unset the username
// must be supplied.
func (s *UserStore) Update(ctx context.Context, id int64, in UserInput, partial bool) (*models.User, error) {
	v := ValidationError{}
	in.validate(v, false, partial)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var hash string
	if in.Password != nil {
		var err error
		if hash, err = auth.HashPassword(*in.Password); err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	var u *models.User
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
		if err != nil {
			return err
		}
		if in.Username != nil && *in.Username != u.Username {
			if err := usernameFree(ctx, tx, *in.Username, id); err != nil {
				return err
			}
			u.Username = *in.Username
		}
		if in.Email != nil {
			u.Email = *in.Email
		}
		if in.FirstName != nil {
			u.FirstName = *in.FirstName
		}
		if in.LastName != nil {
			u.LastName = *in.LastName
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET username=?, email=?, password_hash=?, first_name=?, last_name=? WHERE id=?`,
			u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, id)
		if err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes the user; the schema cascades to the profile, the token and
// the posts. Image files of the removed rows are released after commit.
func (s *UserStore) Delete(ctx context.Context, id int64) error {
	var images []string
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT image FROM posts WHERE author_id = ? AND image IS NOT NULL AND image <> ''
			UNION ALL SELECT image FROM profiles WHERE user_id = ? AND image IS NOT NULL AND image <> ''`, id, id)
		if err != nil {
			return fmt.Errorf("collect images: %w", err)
		}
		for rows.Next() {
			var img string
			if err := rows.Scan(&img); err != nil {
				rows.Close()
				return err
			}
			images = append(images, img)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	hooks := hooksOrNop(s.Hooks)
	for _, img := range images {
		hooks.ImageOrphaned(ctx, img)
	}
	return nil
}

func usernameFree(ctx context.Context, q db.Querier, username string, exceptID int64) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username = ? AND id <> ?`, username, exceptID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return ValidationError{"username": {"A user with that username already exists."}}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
