package store

import (
	"bytes"
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog/internal/auth"
	"blog/internal/db"
	"blog/internal/media"
	"blog/internal/models"
)

type recordedHooks struct {
	mu       sync.Mutex
	replaced [][2]string
	orphaned []string
}

func (h *recordedHooks) ImageReplaced(_ context.Context, prior, next string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.replaced = append(h.replaced, [2]string{prior, next})
}

func (h *recordedHooks) ImageOrphaned(_ context.Context, path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orphaned = append(h.orphaned, path)
}

type fixture struct {
	db       *sql.DB
	tokens   *auth.Manager
	users    *UserStore
	profiles *ProfileStore
	posts    *PostStore
	hooks    *recordedHooks
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dbc, err := db.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbc.Close() })
	require.NoError(t, db.Migrate(context.Background(), dbc))

	hooks := &recordedHooks{}
	tokens := auth.NewManager(dbc)
	return &fixture{
		db:       dbc,
		tokens:   tokens,
		users:    &UserStore{DB: dbc, Tokens: tokens, Hooks: hooks},
		profiles: &ProfileStore{DB: dbc, Hooks: hooks},
		posts:    &PostStore{DB: dbc, Hooks: hooks},
		hooks:    hooks,
	}
}

func str(s string) *string { return &s }

func (f *fixture) register(t *testing.T, username string) (*models.User, string) {
	t.Helper()
	u, token, err := f.users.Register(context.Background(), UserInput{
		Username: str(username),
		Email:    str(username + "@example.com"),
		Password: str("pw-" + username),
	})
	require.NoError(t, err)
	return u, token
}

func owner(u *models.User, action auth.Action) Guard {
	return func(p *models.Post) error { return auth.Authorize(u, p.AuthorID, action) }
}

func TestRegisterCreatesProfileAndToken(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	u, token, err := f.users.Register(ctx, UserInput{
		Username:  str("  ann "),
		Email:     str("ann@example.com"),
		Password:  str("secret"),
		FirstName: str("Ann"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)
	assert.NotEqual(t, "secret", u.PasswordHash)
	assert.True(t, auth.CheckPassword("secret", u.PasswordHash))

	var profiles int
	require.NoError(t, f.db.QueryRow(`SELECT count(*) FROM profiles WHERE user_id = ?`, u.ID).Scan(&profiles))
	assert.Equal(t, 1, profiles)

	caller, err := f.tokens.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, caller.ID)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, err := f.users.Register(ctx, UserInput{Email: str("not-an-email"), Password: str("")})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{msgRequired}, verr["username"])
	assert.Equal(t, []string{msgBlank}, verr["password"])
	assert.Contains(t, verr, "email")

	_, _, err = f.users.Register(ctx, UserInput{Username: str("bad name!"), Password: str("x")})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "username")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	f := setup(t)
	f.register(t, "ann")

	_, _, err := f.users.Register(context.Background(), UserInput{Username: str("ann"), Password: str("x")})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"A user with that username already exists."}, verr["username"])

	var users int
	require.NoError(t, f.db.QueryRow(`SELECT count(*) FROM users`).Scan(&users))
	assert.Equal(t, 1, users)
}

func TestUserUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")
	f.register(t, "bob")

	u, err := f.users.Update(ctx, ann.ID, UserInput{LastName: str("Lee"), Password: str("new")}, true)
	require.NoError(t, err)
	assert.Equal(t, "ann", u.Username)
	assert.Equal(t, "Lee", u.LastName)
	assert.True(t, auth.CheckPassword("new", u.PasswordHash))

	_, err = f.users.Update(ctx, ann.ID, UserInput{Username: str("bob")}, true)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = f.users.Update(ctx, ann.ID, UserInput{LastName: str("x")}, false)
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "username")

	_, err = f.users.Update(ctx, 999, UserInput{}, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProfileUpdateReplacesImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")

	p, err := f.profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, "ann", p.User.Username)
	assert.Empty(t, p.Image)

	assert.Nil(t, p.PhoneNumber)

	p, err = f.profiles.Update(ctx, ann.ID, ProfileInput{PhoneNumber: str("555-0100"), Image: str("profile_images/a.png")})
	require.NoError(t, err)
	assert.Equal(t, str("555-0100"), p.PhoneNumber)

	p, err = f.profiles.Update(ctx, ann.ID, ProfileInput{Image: str("profile_images/b.png")})
	require.NoError(t, err)
	assert.Equal(t, str("555-0100"), p.PhoneNumber)
	assert.Equal(t, "profile_images/b.png", p.Image)
	assert.Equal(t, [2]string{"profile_images/a.png", "profile_images/b.png"}, f.hooks.replaced[len(f.hooks.replaced)-1])

	_, err = f.profiles.Update(ctx, ann.ID, ProfileInput{PhoneNumber: str("1234567890123456")})
	var verr ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestProfileBlankAndClearedPhoneNumber(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")

	_, err := f.profiles.Update(ctx, ann.ID, ProfileInput{PhoneNumber: str("  ")})
	require.NoError(t, err)
	p, err := f.profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	require.NotNil(t, p.PhoneNumber)
	assert.Equal(t, "", *p.PhoneNumber)

	_, err = f.profiles.Update(ctx, ann.ID, ProfileInput{ClearPhoneNumber: true})
	require.NoError(t, err)
	p, err = f.profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Nil(t, p.PhoneNumber)
}

func TestProfileGetCreatesMissingProfile(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")
	_, err := f.db.Exec(`DELETE FROM profiles`)
	require.NoError(t, err)

	p, err := f.profiles.Get(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, ann.ID, p.UserID)

	_, err = f.profiles.Get(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostCreateForcesAuthor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")

	p, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("Hello"), Description: str("World")})
	require.NoError(t, err)
	assert.Equal(t, ann.ID, p.AuthorID)
	assert.Equal(t, "ann", p.AuthorUsername)
	assert.Empty(t, p.Image)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = f.posts.Create(ctx, ann.ID, PostInput{Title: str(string(bytes.Repeat([]byte("x"), 201)))})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "title")
	assert.Equal(t, []string{msgRequired}, verr["description"])
}

func TestPostListAndListByAuthor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")
	bob, _ := f.register(t, "bob")

	for _, u := range []*models.User{ann, bob, ann} {
		_, err := f.posts.Create(ctx, u.ID, PostInput{Title: str("t"), Description: str("d")})
		require.NoError(t, err)
	}

	all, err := f.posts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Greater(t, all[0].ID, all[2].ID, "newest first")

	mine, err := f.posts.ListByAuthor(ctx, ann.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, p := range mine {
		assert.Equal(t, ann.ID, p.AuthorID)
	}

	none, err := f.posts.ListByAuthor(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestPostUpdateReplacesImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")

	p, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d"), Image: str("post_images/old.png")})
	require.NoError(t, err)

	updated, err := f.posts.Update(ctx, p.ID, PostInput{Image: str("post_images/new.png")}, true, owner(ann, auth.Update))
	require.NoError(t, err)
	assert.Equal(t, "post_images/new.png", updated.Image)
	assert.Equal(t, "t", updated.Title)
	assert.Equal(t, p.CreatedAt.Unix(), updated.CreatedAt.Unix())
	assert.Equal(t, [][2]string{{"post_images/old.png", "post_images/new.png"}}, f.hooks.replaced)

	// untouched image is reported unchanged
	_, err = f.posts.Update(ctx, p.ID, PostInput{Title: str("t2")}, true, nil)
	require.NoError(t, err)
	assert.Equal(t, [2]string{"post_images/new.png", "post_images/new.png"}, f.hooks.replaced[1])
}

func TestPostUpdateGuardAndMissingRow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")
	bob, _ := f.register(t, "bob")

	p, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d"), Image: str("post_images/a.png")})
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, p.ID, PostInput{Title: str("hijack")}, true, owner(bob, auth.Update))
	assert.ErrorIs(t, err, auth.ErrForbidden)

	got, err := f.posts.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)

	_, err = f.posts.Update(ctx, 999, PostInput{Image: str("post_images/b.png")}, true, nil)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.hooks.replaced)

	_, err = f.posts.Update(ctx, p.ID, PostInput{Title: str("x")}, false, nil)
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr, "description")
}

func TestPostDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, _ := f.register(t, "ann")
	bob, _ := f.register(t, "bob")

	withImage, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d"), Image: str("post_images/a.png")})
	require.NoError(t, err)
	plain, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d")})
	require.NoError(t, err)

	assert.ErrorIs(t, f.posts.Delete(ctx, withImage.ID, owner(bob, auth.Delete)), auth.ErrForbidden)
	assert.Empty(t, f.hooks.orphaned)

	require.NoError(t, f.posts.Delete(ctx, withImage.ID, owner(ann, auth.Delete)))
	require.NoError(t, f.posts.Delete(ctx, plain.ID, owner(ann, auth.Delete)))
	assert.Equal(t, []string{"post_images/a.png", ""}, f.hooks.orphaned)

	_, err = f.posts.Get(ctx, withImage.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.posts.Delete(ctx, withImage.ID, nil), ErrNotFound)
}

func TestUserDeleteCascadesAndReleasesImages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	ann, token := f.register(t, "ann")
	bob, _ := f.register(t, "bob")

	_, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d"), Image: str("post_images/a.png")})
	require.NoError(t, err)
	_, err = f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d")})
	require.NoError(t, err)
	_, err = f.posts.Create(ctx, bob.ID, PostInput{Title: str("t"), Description: str("d"), Image: str("post_images/b.png")})
	require.NoError(t, err)
	_, err = f.profiles.Update(ctx, ann.ID, ProfileInput{Image: str("profile_images/a.png")})
	require.NoError(t, err)

	require.NoError(t, f.users.Delete(ctx, ann.ID))

	assert.ElementsMatch(t, []string{"post_images/a.png", "profile_images/a.png"}, f.hooks.orphaned)

	posts, err := f.posts.List(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, bob.ID, posts[0].AuthorID)

	_, err = f.tokens.Authenticate(ctx, token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	assert.ErrorIs(t, f.users.Delete(ctx, ann.ID), ErrNotFound)
}

func TestImageFilesFollowPostLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	storage, err := media.NewStorage(filepath.Join(t.TempDir(), "media"), "/media/")
	require.NoError(t, err)
	f.posts.Hooks = &media.Janitor{Storage: storage}
	ann, _ := f.register(t, "ann")

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	first, err := storage.Save(media.PostImagesDir, "a.png", bytes.NewReader(png))
	require.NoError(t, err)
	second, err := storage.Save(media.PostImagesDir, "b.png", bytes.NewReader(png))
	require.NoError(t, err)

	p, err := f.posts.Create(ctx, ann.ID, PostInput{Title: str("t"), Description: str("d"), Image: &first})
	require.NoError(t, err)

	_, err = f.posts.Update(ctx, p.ID, PostInput{Image: &second}, true, nil)
	require.NoError(t, err)
	assert.False(t, storage.Exists(first))
	assert.True(t, storage.Exists(second))

	require.NoError(t, f.posts.Delete(ctx, p.ID, nil))
	assert.False(t, storage.Exists(second))
}
