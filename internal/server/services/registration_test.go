package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/dmitrijs2005/mediashare/internal/common"
	"github.com/dmitrijs2005/mediashare/internal/logging"
	"github.com/dmitrijs2005/mediashare/internal/server/media"
	"github.com/dmitrijs2005/mediashare/internal/server/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistration() (*RegistrationService, *memAccounts, *fakeGateway) {
	repo := newMemAccounts()
	gw := newFakeGateway()
	return NewRegistrationService(nil, &fakeRepoManager{accounts: repo}, gw, logging.NewNop()), repo, gw
}

func adaInput() RegisterInput {
	return RegisterInput{FullName: "Ada L", Username: "AdaL", Email: "Ada@x.com", Password: "s3cret"}
}

func TestRegister_Success(t *testing.T) {
	s, repo, gw := newRegistration()

	p, err := s.Register(context.Background(), adaInput(), avatarSource(), nil)
	require.NoError(t, err)

	assert.Equal(t, "adal", p.Username)
	assert.Equal(t, "ada@x.com", p.Email)
	assert.Equal(t, "Ada L", p.FullName)
	assert.NotEmpty(t, p.AvatarURL)
	assert.Empty(t, p.CoverImageURL)
	assert.Equal(t, []string{"avatar.png"}, gw.uploads)
	assert.Empty(t, gw.deletes)

	stored := repo.get(p.ID)
	require.NotNil(t, stored)
	assert.Equal(t, "hashed:s3cret", stored.PasswordHash)

	b, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "hashed")
	assert.NotContains(t, string(b), "password")
	assert.NotContains(t, string(b), "refresh")

	_, err = s.Register(context.Background(),
		RegisterInput{FullName: "Other", Username: "adal", Email: "other@x.com", Password: "pw"},
		avatarSource(), nil)
	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Len(t, gw.uploads, 1, "no upload after a failed pre-check")
}

func TestRegister_WithCover(t *testing.T) {
	s, _, gw := newRegistration()

	p, err := s.Register(context.Background(), adaInput(), avatarSource(), coverSource())
	require.NoError(t, err)

	assert.NotEmpty(t, p.CoverImageURL)
	assert.NotEqual(t, p.AvatarURL, p.CoverImageURL)
	assert.Equal(t, []string{"avatar.png", "cover.png"}, gw.uploads)
}

func TestRegister_SameOriginCoverIsSkipped(t *testing.T) {
	s, _, gw := newRegistration()

	same := media.BytesSource("copy.png", "image/png", []byte("avatar-bytes"))
	p, err := s.Register(context.Background(), adaInput(), avatarSource(), same)
	require.NoError(t, err)

	assert.Empty(t, p.CoverImageURL)
	assert.Equal(t, []string{"avatar.png"}, gw.uploads)
}

func TestRegister_Validation(t *testing.T) {
	cases := []struct {
		name string
		in   RegisterInput
	}{
		{"no full name", RegisterInput{FullName: "  ", Username: "a", Email: "a@x", Password: "p"}},
		{"no username", RegisterInput{FullName: "A", Username: "", Email: "a@x", Password: "p"}},
		{"no email", RegisterInput{FullName: "A", Username: "a", Email: " ", Password: "p"}},
		{"no password", RegisterInput{FullName: "A", Username: "a", Email: "a@x", Password: "   "}},
		{"username with at sign", RegisterInput{FullName: "A", Username: "a@x", Email: "b@x", Password: "p"}},
		{"email without at sign", RegisterInput{FullName: "A", Username: "a", Email: "ax", Password: "p"}},
		{"email without domain", RegisterInput{FullName: "A", Username: "a", Email: "a@", Password: "p"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, repo, gw := newRegistration()
			_, err := s.Register(context.Background(), tc.in, avatarSource(), nil)
			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, gw.uploads)
			assert.Zero(t, repo.count())
		})
	}
}

func TestRegister_UsernameCannotTakeAnotherEmail(t *testing.T) {
	s, repo, gw := newRegistration()
	_, err := s.Register(context.Background(), adaInput(), avatarSource(), nil)
	require.NoError(t, err)

	in := RegisterInput{FullName: "Eve", Username: "ada@x.com", Email: "evil@x.com", Password: "pw"}
	_, err = s.Register(context.Background(), in, avatarSource(), nil)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, "username must not contain @", common.MessageOf(err))
	assert.Equal(t, 1, repo.count())
	assert.Len(t, gw.uploads, 1)
}

func TestRegister_PasswordTooLong(t *testing.T) {
	s, _, gw := newRegistration()
	in := adaInput()
	in.Password = strings.Repeat("x", 73)

	_, err := s.Register(context.Background(), in, avatarSource(), nil)
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Empty(t, gw.uploads)
}

func TestRegister_MissingAvatar(t *testing.T) {
	s, _, gw := newRegistration()

	_, err := s.Register(context.Background(), adaInput(), nil, coverSource())
	assert.ErrorIs(t, err, common.ErrMissingAsset)
	assert.Empty(t, gw.uploads)
}

func TestRegister_PreCheckStoreFailure(t *testing.T) {
	s, repo, gw := newRegistration()
	repo.findErr = errors.New("db error: connection refused")

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), nil)
	assert.Equal(t, common.ErrInternal, common.KindOf(err))
	assert.Empty(t, gw.uploads)
}

func TestRegister_AvatarUploadFails(t *testing.T) {
	s, repo, gw := newRegistration()
	gw.failUpload["avatar.png"] = true

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), coverSource())
	require.Error(t, err)
	assert.Equal(t, common.ErrUpstream, common.KindOf(err))
	assert.Equal(t, "avatar upload failed", common.MessageOf(err))
	assert.Empty(t, gw.deletes)
	assert.Zero(t, repo.count())
}

func TestRegister_CoverUploadFailsDeletesAvatar(t *testing.T) {
	s, repo, gw := newRegistration()
	gw.failUpload["cover.png"] = true

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), coverSource())
	require.Error(t, err)
	assert.Equal(t, common.ErrUpstream, common.KindOf(err))
	assert.Equal(t, "cover upload failed; images were removed", common.MessageOf(err))

	assert.Len(t, gw.deletes, 1)
	assert.Empty(t, gw.storedKeys())
	assert.Zero(t, repo.count())
}

func TestRegister_CreateFailsDeletesBothAssets(t *testing.T) {
	s, repo, gw := newRegistration()
	repo.createErr = errors.New("db error: disk full")
	compensated := metrics.RegistrationsTotal.WithLabelValues(metrics.OutcomeCompensated)
	before := testutil.ToFloat64(compensated)

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), coverSource())
	assert.Equal(t, before+1, testutil.ToFloat64(compensated))
	require.Error(t, err)
	assert.Equal(t, common.ErrInternal, common.KindOf(err))
	assert.Equal(t, "something went wrong while registering the user; images were removed", common.MessageOf(err))

	assert.Len(t, gw.deletes, 2)
	assert.Empty(t, gw.storedKeys())
}

func TestRegister_StoreConflictDeletesAssets(t *testing.T) {
	s, repo, gw := newRegistration()
	repo.createErr = common.NewError(common.ErrConflict, "email already exists")

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), nil)
	require.Error(t, err)
	assert.Equal(t, common.ErrConflict, common.KindOf(err))
	assert.Equal(t, "email already exists; images were removed", common.MessageOf(err))
	assert.Empty(t, gw.storedKeys())
}

func TestRegister_CleanupFailureKeepsOriginalError(t *testing.T) {
	s, repo, gw := newRegistration()
	repo.createErr = errors.New("db error: timeout")
	gw.deleteErr = errors.New("store unavailable")

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), nil)
	require.Error(t, err)
	assert.Equal(t, common.ErrInternal, common.KindOf(err))
	assert.Equal(t, "something went wrong while registering the user; image cleanup failed", common.MessageOf(err))
	assert.NotErrorIs(t, err, gw.deleteErr)
}

func TestRegister_ReReadFailureKeepsAssets(t *testing.T) {
	s, repo, gw := newRegistration()
	repo.profileErr = errors.New("db error: conn reset")

	_, err := s.Register(context.Background(), adaInput(), avatarSource(), nil)
	assert.Equal(t, common.ErrInternal, common.KindOf(err))
	assert.Empty(t, gw.deletes)
	assert.Equal(t, 1, repo.count())
}

func TestRegister_ConcurrentDuplicatesHaveOneWinner(t *testing.T) {
	s, repo, gw := newRegistration()

	// Let every caller pass the pre-check before anyone creates.
	const n = 6
	var ready sync.WaitGroup
	ready.Add(n)
	release := make(chan struct{})
	repo.beforeCreate = func() {
		ready.Done()
		<-release
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			in := adaInput()
			if i%2 == 1 {
				in.Username = "ADAL"
			}
			_, errs[i] = s.Register(context.Background(), in, avatarSource(), coverSource())
		}()
	}
	ready.Wait()
	close(release)
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, common.ErrConflict, common.KindOf(err))
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, repo.count())

	// Only the winner's avatar and cover remain stored.
	assert.Len(t, gw.storedKeys(), 2)
}
