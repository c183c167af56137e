package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/auth"
	"github.com/dmitrijs2005/mediashare/internal/server/config"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/models"
	"github.com/dmitrijs2005/mediashare/internal/server/services"
	"github.com/gofiber/fiber/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	goodAccess  = "good-access"
	goodRefresh = "good-refresh"
	accountIDOK = "id-1"
)

var testProfile = &models.Profile{
	ID:        accountIDOK,
	Username:  "ada",
	Email:     "ada@x.com",
	FullName:  "Ada L",
	AvatarURL: "http://cdn/media/avatars/a.png",
}

// sourceSnapshot is what a handler passed on for one uploaded file.
type sourceSnapshot struct {
	Name        string
	ContentType string
	Body        string
	Path        string
}

func snapshot(t *testing.T, src *media.Source) *sourceSnapshot {
	t.Helper()
	if src == nil {
		return nil
	}
	r, err := src.Open()
	require.NoError(t, err)
	defer r.Close()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	snap := &sourceSnapshot{Name: src.Name, ContentType: src.ContentType, Body: string(b)}
	if f, ok := r.(*os.File); ok {
		snap.Path = f.Name()
	}
	return snap
}

type fakeRegistrar struct {
	t      *testing.T
	in     services.RegisterInput
	avatar *sourceSnapshot
	cover  *sourceSnapshot
	err    error
}

func (f *fakeRegistrar) Register(ctx context.Context, in services.RegisterInput, avatar, cover *media.Source) (*models.Profile, error) {
	f.in = in
	f.avatar = snapshot(f.t, avatar)
	f.cover = snapshot(f.t, cover)
	if f.err != nil {
		return nil, f.err
	}
	if avatar == nil {
		return nil, common.NewError(common.ErrMissingAsset, "avatar file is required")
	}
	return testProfile, nil
}

type fakeSessions struct {
	loginIn   services.LoginInput
	loginErr  error
	refreshed string
	refresh   error
	loggedOut []string
}

func (f *fakeSessions) Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
	f.loginIn = in
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &services.LoginResult{
		Account: testProfile,
		Tokens:  &auth.TokenPair{AccessToken: goodAccess, RefreshToken: goodRefresh},
	}, nil
}

func (f *fakeSessions) Refresh(ctx context.Context, presented string) (*auth.TokenPair, error) {
	f.refreshed = presented
	if f.refresh != nil {
		return nil, f.refresh
	}
	if presented == "" {
		return nil, common.NewError(common.ErrValidation, "refresh token is required")
	}
	if presented != goodRefresh {
		return nil, common.NewError(common.ErrInvalidToken, "refresh token is expired or used")
	}
	return &auth.TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh"}, nil
}

func (f *fakeSessions) Logout(ctx context.Context, accountID string) error {
	f.loggedOut = append(f.loggedOut, accountID)
	return nil
}

func (f *fakeSessions) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	switch accessToken {
	case "":
		return nil, common.NewError(common.ErrUnauthorized, "unauthorized request")
	case goodAccess:
		return &auth.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: accountIDOK}, Kind: auth.AccessToken}, nil
	default:
		return nil, common.NewError(common.ErrInvalidToken, "invalid or expired token")
	}
}

type fakeAccounts struct {
	t *testing.T

	gotID       string
	oldPassword string
	newPassword string
	fullName    string
	email       string
	image       *sourceSnapshot
	err         error
}

func (f *fakeAccounts) CurrentAccount(ctx context.Context, id string) (*models.Profile, error) {
	f.gotID = id
	return testProfile, f.err
}

func (f *fakeAccounts) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	f.gotID, f.oldPassword, f.newPassword = id, oldPassword, newPassword
	return f.err
}

func (f *fakeAccounts) UpdateDetails(ctx context.Context, id, fullName, email string) (*models.Profile, error) {
	f.gotID, f.fullName, f.email = id, fullName, email
	if f.err != nil {
		return nil, f.err
	}
	p := *testProfile
	p.FullName, p.Email = fullName, email
	return &p, nil
}

func (f *fakeAccounts) UpdateAvatar(ctx context.Context, id string, src *media.Source) (*models.Profile, error) {
	f.gotID = id
	f.image = snapshot(f.t, src)
	if src == nil {
		return nil, common.NewError(common.ErrMissingAsset, "avatar file is missing")
	}
	return testProfile, f.err
}

func (f *fakeAccounts) UpdateCoverImage(ctx context.Context, id string, src *media.Source) (*models.Profile, error) {
	f.gotID = id
	f.image = snapshot(f.t, src)
	if src == nil {
		return nil, common.NewError(common.ErrMissingAsset, "cover image file is missing")
	}
	return testProfile, f.err
}

type testEnv struct {
	cfg       *config.Config
	srv       *HTTPServer
	registrar *fakeRegistrar
	sessions  *fakeSessions
	accounts  *fakeAccounts
	uploadDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		registrar: &fakeRegistrar{t: t},
		sessions:  &fakeSessions{},
		accounts:  &fakeAccounts{t: t},
		uploadDir: t.TempDir(),
	}
	cfg := &config.Config{
		EndpointAddrHTTP:             ":0",
		UploadDir:                    env.uploadDir,
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 24 * time.Hour,
		SecureCookies:                true,
	}
	srv, err := NewHTTPServer(cfg, logging.NewNop(), env.registrar, env.sessions, env.accounts)
	require.NoError(t, err)
	env.cfg, env.srv = cfg, srv
	return env
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := e.srv.app.Test(req, fiber.TestConfig{Timeout: 5 * time.Second, FailOnTimeout: true})
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var body map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func jsonRequest(t *testing.T, method, target string, v any) *http.Request {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(b))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return req
}

type formFile struct {
	field, name, contentType, body string
}

func multipartRequest(t *testing.T, method, target string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+f.field+`"; filename="`+f.name+`"`)
		h.Set("Content-Type", f.contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return req
}

func cookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
