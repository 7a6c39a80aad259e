package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhorman9/elevideo/internal/api"
	"github.com/jhorman9/elevideo/internal/credential"
	"github.com/jhorman9/elevideo/internal/media"
	"github.com/jhorman9/elevideo/internal/models"
	"github.com/jhorman9/elevideo/internal/ports/portstest"
	"github.com/jhorman9/elevideo/internal/testsupport/fakeapi"
)

type fixture struct {
	srv    *fakeapi.Server
	store  *credential.MemoryStore
	client *api.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	srv := fakeapi.New()
	t.Cleanup(srv.Close)
	store := credential.NewMemoryStore(fakeapi.DefaultToken)
	return &fixture{srv: srv, store: store, client: api.New(srv.URL, store)}
}

func TestListOptions_Query(t *testing.T) {
	assert.Equal(t, "page=0&size=20&sortBy=createdAt&sortDirection=DESC", ListOptions{}.query())
	assert.Equal(t, "page=2&size=5&sortBy=name&sortDirection=ASC",
		ListOptions{Page: 2, Size: 5, SortBy: "name", SortDirection: "ASC"}.query())
}

func TestProjects_CRUD(t *testing.T) {
	f := newFixture(t)
	g := NewProjects(f.client)
	ctx := context.Background()

	created, err := g.Create(ctx, models.ProjectInput{Name: "P", Description: "D"})
	require.NoError(t, err)
	assert.Equal(t, "P", created.Name)
	assert.NotEmpty(t, created.CreatedAt)

	got, err := g.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	updated, err := g.Update(ctx, created.ID, models.ProjectInput{Name: "P2", Description: ""})
	require.NoError(t, err)
	assert.Equal(t, "P2", updated.Name)
	assert.Equal(t, "", updated.Description)

	page, err := g.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, 1, page.TotalPages)

	require.NoError(t, g.Delete(ctx, created.ID))
	_, err = g.Get(ctx, created.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
}

func TestProjects_ListRequestShape(t *testing.T) {
	f := newFixture(t)
	_, err := NewProjects(f.client).List(context.Background(), ListOptions{Page: 0, Size: 20})
	require.NoError(t, err)

	reqs := f.srv.RequestsTo(http.MethodGet, "/projects")
	require.Len(t, reqs, 1)
	assert.Equal(t, "page=0&size=20&sortBy=createdAt&sortDirection=DESC", reqs[0].RawQuery)
	assert.Equal(t, "Bearer T", reqs[0].Header.Get("Authorization"))
}

func TestProjects_ErrorsPassThrough(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodPost, "/projects", http.StatusConflict, `{"message":"name taken"}`)

	_, err := NewProjects(f.client).Create(context.Background(), models.ProjectInput{Name: "P"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "name taken", apiErr.Message)
}

func TestVideos_ListReturnsEnvelope(t *testing.T) {
	f := newFixture(t)
	p := f.srv.AddProject("P", "")
	f.srv.AddVideo(p.ID, "a", "mp4", models.VideoUploaded)
	f.srv.AddVideo(p.ID, "b", "mov", models.VideoProcessing)

	page, err := NewVideos(f.client).List(context.Background(), VideoListOptions{ProjectID: p.ID})
	require.NoError(t, err)
	assert.True(t, page.Success)
	assert.Equal(t, "videos retrieved", page.Message)
	assert.Len(t, page.Data.Content, 2)
	assert.Equal(t, int64(2), page.Data.TotalElements)

	path := "/api/v1/projects/" + strconv.FormatInt(p.ID, 10) + "/videos"
	reqs := f.srv.RequestsTo(http.MethodGet, path)
	require.Len(t, reqs, 1)
	assert.Equal(t, "page=0&size=20&sortBy=createdAt&sortDirection=DESC", reqs[0].RawQuery)
}

func TestVideos_GetUpdateDelete(t *testing.T) {
	f := newFixture(t)
	p := f.srv.AddProject("P", "")
	v := f.srv.AddVideo(p.ID, "a", "mp4", models.VideoUploaded)
	g := NewVideos(f.client)
	ctx := context.Background()

	got, err := g.Get(ctx, p.ID, v.ID)
	require.NoError(t, err)
	assert.Equal(t, v, got)

	renamed, err := g.Update(ctx, p.ID, v.ID, models.VideoInput{Title: "renamed"})
	require.NoError(t, err)
	assert.Equal(t, "renamed", renamed.Title)

	require.NoError(t, g.Delete(ctx, p.ID, v.ID))
	assert.Empty(t, f.srv.Videos(p.ID))
}

func TestVideos_Upload(t *testing.T) {
	for _, bare := range []bool{false, true} {
		t.Run("bare="+strconv.FormatBool(bare), func(t *testing.T) {
			f := newFixture(t)
			f.srv.BareUploadReply = bare
			p := f.srv.AddProject("P", "")
			file := &media.Memory{FileName: "clip.mp4", FileType: "video/mp4", Data: []byte(strings.Repeat("v", 2048))}

			success := uploadsTotal.WithLabelValues("success")
			before := testutil.ToFloat64(success)

			v, err := NewVideos(f.client).Upload(context.Background(), p.ID, UploadInput{File: file, Title: "clip"})
			require.NoError(t, err)
			assert.Equal(t, "clip", v.Title)
			assert.Equal(t, int64(2048), v.SizeInBytes)
			assert.Equal(t, before+1, testutil.ToFloat64(success))

			rec := f.srv.RequestsTo(http.MethodPost, "/api/v1/projects/"+strconv.FormatInt(p.ID, 10)+"/videos")
			require.Len(t, rec, 1)
			assert.Equal(t, "clip", rec[0].Title)
			assert.Equal(t, int64(2048), rec[0].FileSize)
		})
	}
}

func TestVideos_UploadRefinesErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"400 joins field errors in order", 400, `{"message":"bad","fieldErrors":{"title":"too short","video":"missing"}}`, "title: too short, video: missing"},
		{"400 falls back to message", 400, `{"message":"bad input"}`, "bad input"},
		{"400 default", 400, ``, "validation error"},
		{"403 body message", 403, `{"message":"not yours"}`, "not yours"},
		{"403 default", 403, `{}`, "you do not have permission to upload videos to this project"},
		{"404 default", 404, ``, "project not found with id: 7"},
		{"500 default", 500, ``, "upload failed (500)"},
		{"502 body message", 502, `{"message":"storage offline"}`, "storage offline"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.srv.Fail(http.MethodPost, "/api/v1/projects/7/videos", tt.status, tt.body)
			file := &media.Memory{FileName: "clip.mp4", FileType: "video/mp4", Data: []byte("x")}

			_, err := NewVideos(f.client).Upload(context.Background(), 7, UploadInput{File: file, Title: "clip"})
			var apiErr *api.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.message, apiErr.Message)
		})
	}
}

func TestVideos_UploadKeepsFieldErrors(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodPost, "/api/v1/projects/7/videos", 400, `{"fieldErrors":{"title":"too short","video":"missing"}}`)
	file := &media.Memory{FileName: "clip.mp4", Data: []byte("x")}

	_, err := NewVideos(f.client).Upload(context.Background(), 7, UploadInput{File: file, Title: "c"})
	var apiErr *api.Error
	require.ErrorAs(t, err, &apiErr)
	msg, ok := apiErr.FieldErrors.Get("video")
	assert.True(t, ok)
	assert.Equal(t, "missing", msg)
	assert.ErrorIs(t, err, api.ErrValidation)
}

func TestVideos_Upload401(t *testing.T) {
	f := newFixture(t)
	f.srv.SetToken("other")
	p := f.srv.AddProject("P", "")
	file := &media.Memory{FileName: "clip.mp4", Data: []byte("x")}

	_, err := NewVideos(f.client).Upload(context.Background(), p.ID, UploadInput{File: file, Title: "clip"})
	assert.True(t, api.IsSessionExpired(err))
	assert.Equal(t, api.SessionExpiredMessage, err.Error())
	tok, _ := f.store.Get(context.Background())
	assert.Empty(t, tok)
}

func TestVideos_Download(t *testing.T) {
	rec := &portstest.Recorder{}
	g := NewVideos(api.New("http://unused", nil), WithDownloader(rec))
	v := models.Video{Title: "clip", Format: "mp4", SecureURL: "https://cdn.example/v/1"}

	link, err := g.Download(context.Background(), v)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", link.Filename)
	require.Len(t, rec.Downloads(), 1)
	assert.Equal(t, "https://cdn.example/v/1", rec.Downloads()[0].URL)

	_, err = NewVideos(api.New("http://unused", nil)).Download(context.Background(), v)
	assert.ErrorIs(t, err, ErrNoDownloader)

	rec.DownloadErr = errors.New("disk full")
	_, err = g.Download(context.Background(), v)
	assert.EqualError(t, err, "disk full")
}

func TestAuth_Login(t *testing.T) {
	f := newFixture(t)
	store := credential.NewMemoryStore("")
	g := NewAuth(api.New(f.srv.URL, store), store)

	sess, err := g.Login(context.Background(), " "+fakeapi.DefaultEmail, fakeapi.DefaultPassword)
	require.NoError(t, err)
	assert.Equal(t, fakeapi.DefaultToken, sess.Token)
	tok, _ := store.Get(context.Background())
	assert.Equal(t, fakeapi.DefaultToken, tok)

	reqs := f.srv.RequestsTo(http.MethodPost, "/api/v1/auth/login")
	require.Len(t, reqs, 1)
	assert.Empty(t, reqs[0].Header.Get("Authorization"))
	assert.JSONEq(t, `{"email":"ana@example.com","password":"secret1"}`, string(reqs[0].Body))
}

func TestAuth_LoginWrongPassword(t *testing.T) {
	f := newFixture(t)
	store := credential.NewMemoryStore("old")
	g := NewAuth(api.New(f.srv.URL, store), store)

	_, err := g.Login(context.Background(), fakeapi.DefaultEmail, "nope")
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.Error())
	assert.False(t, api.IsSessionExpired(err))
	tok, _ := store.Get(context.Background())
	assert.Equal(t, "old", tok)
}

func TestAuth_LoginWithoutToken(t *testing.T) {
	f := newFixture(t)
	f.srv.Fail(http.MethodPost, "/api/v1/auth/login", http.StatusOK, `{"success":true,"data":{}}`)
	g := NewAuth(f.client, f.store)

	_, err := g.Login(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNoSessionToken)
}

func TestAuth_AccountFlows(t *testing.T) {
	f := newFixture(t)
	g := NewAuth(f.client, f.store)
	ctx := context.Background()

	msg, err := g.Register(ctx, models.RegisterRequest{FirstName: "B", LastName: "C", Email: "b@example.com", Password: "pw1234"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg)

	_, err = g.Register(ctx, models.RegisterRequest{Email: "b@example.com", Password: "pw1234"})
	assert.Equal(t, http.StatusConflict, api.StatusOf(err))

	_, err = g.ForgotPassword(ctx, "b@example.com")
	require.NoError(t, err)

	_, err = g.ResetPassword(ctx, fakeapi.ResetToken, "12345")
	assert.ErrorIs(t, err, ErrPasswordTooShort)
	_, err = g.ResetPassword(ctx, "", "123456")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = g.ResetPassword(ctx, fakeapi.ResetToken, "123456")
	require.NoError(t, err)
	_, err = g.ResetPassword(ctx, "stale", "123456")
	assert.ErrorIs(t, err, api.ErrValidation)

	_, err = g.VerifyEmail(ctx, "  ")
	assert.ErrorIs(t, err, ErrMissingToken)
	msg, err = g.VerifyEmail(ctx, fakeapi.VerifyToken)
	require.NoError(t, err)
	assert.Equal(t, "email verified", msg)

	// local rejections never reach the server
	assert.Len(t, f.srv.RequestsTo(http.MethodPost, "/api/v1/auth/reset-password"), 2)
	assert.Len(t, f.srv.RequestsTo(http.MethodPost, "/api/v1/auth/verify-email"), 1)
}

func TestAuth_Logout(t *testing.T) {
	store := credential.NewMemoryStore("T")
	g := NewAuth(api.New("http://unused", store), store)
	require.NoError(t, g.Logout(context.Background()))
	tok, _ := store.Get(context.Background())
	assert.Empty(t, tok)
}
