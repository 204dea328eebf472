package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"blog/internal/db"
	"blog/internal/models"
)

// ProfileInput carries profile fields from a request. A nil PhoneNumber keeps
// the stored value and "" stores a blank number; ClearPhoneNumber stores NULL.
// For Image, nil keeps the stored value, "" clears it and anything else is a
// media path to store.
type ProfileInput struct {
	PhoneNumber      *string
	ClearPhoneNumber bool
	Image            *string
}

type ProfileStore struct {
	DB    *sql.DB
	Hooks ImageHooks
}

func loadProfile(ctx context.Context, q db.Querier, userID int64) (*models.Profile, error) {
	p := &models.Profile{User: &models.User{}}
	var image sql.NullString
	err := q.QueryRowContext(ctx, `SELECT p.id, p.user_id, p.phone_number, p.image,
		u.id, u.username, u.email, u.first_name, u.last_name, u.created_at
		FROM profiles p JOIN users u ON u.id = p.user_id WHERE p.user_id = ?`, userID).
		Scan(&p.ID, &p.UserID, &p.PhoneNumber, &image,
			&p.User.ID, &p.User.Username, &p.User.Email, &p.User.FirstName, &p.User.LastName, &p.User.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.Image = image.String
	return p, nil
}

// Get returns the user's profile, creating the empty one when a user was
// inserted without it.
func (s *ProfileStore) Get(ctx context.Context, userID int64) (*models.Profile, error) {
	p, err := loadProfile(ctx, s.DB, userID)
	if !errors.Is(err, ErrNotFound) {
		return p, err
	}
	if _, err := s.DB.ExecContext(ctx,
		`INSERT INTO profiles(user_id) SELECT id FROM users WHERE id = ? ON CONFLICT(user_id) DO NOTHING`, userID); err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return loadProfile(ctx, s.DB, userID)
}

func (s *ProfileStore) Update(ctx context.Context, userID int64, in ProfileInput) (*models.Profile, error) {
	v := ValidationError{}
	optionalText(in.PhoneNumber)
	maxLength(v, "phone_number", in.PhoneNumber, 15)
	if err := v.Err(); err != nil {
		return nil, err
	}

	var prior, next *models.Profile
	err := db.WithTx(ctx, s.DB, func(tx *sql.Tx) error {
		var err error
		if prior, err = loadProfile(ctx, tx, userID); err != nil {
			return err
		}
		cp := *prior
		next = &cp
		switch {
		case in.ClearPhoneNumber:
			next.PhoneNumber = nil
		case in.PhoneNumber != nil:
			phone := *in.PhoneNumber
			next.PhoneNumber = &phone
		}
		if in.Image != nil {
			next.Image = *in.Image
		}
		_, err = tx.ExecContext(ctx, `UPDATE profiles SET phone_number=?, image=? WHERE id=?`,
			next.PhoneNumber, nullable(next.Image), next.ID)
		if err != nil {
			return fmt.Errorf("update profile: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hooksOrNop(s.Hooks).ImageReplaced(ctx, prior.Image, next.Image)
	return next, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
