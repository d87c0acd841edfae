package handler

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniaccess/campus-assist/internal/model"
	"github.com/uniaccess/campus-assist/internal/storage"
)

// fakeBackend records calls so tests can assert that rejected uploads
// never reach storage.
type fakeBackend struct {
	storeCalls  int
	deleteCalls int
	lastKind    string
	lastBytes   []byte
}

func (f *fakeBackend) Store(_ context.Context, userID uint64, kind, filename string, content io.Reader, contentType string) (string, error) {
	f.storeCalls++
	f.lastKind = kind
	f.lastBytes, _ = io.ReadAll(content)
	return "fake/key", nil
}

func (f *fakeBackend) Retrieve(context.Context, string) (io.ReadCloser, error) {
	return nil, nil
}

func (f *fakeBackend) Delete(context.Context, string) error {
	f.deleteCalls++
	return nil
}

func (f *fakeBackend) URL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://example.test/" + key, nil
}

func (f *fakeBackend) Metadata(context.Context, string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{}, nil
}

func multipartUpload(t *testing.T, kind, filename, contentType string, data []byte) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.WriteField("kind", kind))

	hdr := make(map[string][]string)
	hdr["Content-Disposition"] = []string{`form-data; name="file"; filename="` + filename + `"`}
	hdr["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req, httptest.NewRecorder()
}

func uploadContext(req *http.Request, rec *httptest.ResponseRecorder, role string) echo.Context {
	e := echo.New()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint64(7))
	c.Set("role", role)
	return c
}

func smallPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestUploadCreateRejectsBadKind(t *testing.T) {
	fake := &fakeBackend{}
	h := NewUploadHandler(nil, fake)

	req, rec := multipartUpload(t, "PASSPORT", "p.png", "image/png", smallPNG(t, 10, 10))
	require.NoError(t, h.Create(uploadContext(req, rec, model.RoleStudent)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.storeCalls)
}

func TestUploadCreateRejectsOversize(t *testing.T) {
	fake := &fakeBackend{}
	h := NewUploadHandler(nil, fake)

	big := make([]byte, maxLetterBytes+1)
	copy(big, "%PDF-1.7")
	req, rec := multipartUpload(t, model.UploadLetter, "letter.pdf", "application/pdf", big)
	require.NoError(t, h.Create(uploadContext(req, rec, model.RoleHelper)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.storeCalls, "oversized file must not reach storage")
}

func TestUploadCreateRejectsWrongContentType(t *testing.T) {
	fake := &fakeBackend{}
	h := NewUploadHandler(nil, fake)

	req, rec := multipartUpload(t, model.UploadProfileImage, "p.gif", "image/gif", []byte("GIF89a"))
	require.NoError(t, h.Create(uploadContext(req, rec, model.RoleStudent)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.storeCalls)
}

func TestUploadCreateRejectsUndecodableImage(t *testing.T) {
	fake := &fakeBackend{}
	h := NewUploadHandler(nil, fake)

	req, rec := multipartUpload(t, model.UploadProfileImage, "p.png", "image/png", []byte("not a png at all"))
	require.NoError(t, h.Create(uploadContext(req, rec, model.RoleStudent)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.storeCalls)
}

func TestUploadCreateRejectsOversizedDimensions(t *testing.T) {
	fake := &fakeBackend{}
	h := NewUploadHandler(nil, fake)

	req, rec := multipartUpload(t, model.UploadProfileImage, "wide.png", "image/png", smallPNG(t, maxImageDim+1, 10))
	require.NoError(t, h.Create(uploadContext(req, rec, model.RoleStudent)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.storeCalls)
}

func TestUploadCreateRejectsLetterWithoutPDFMagic(t *testing.T) {
	fake := &fakeBackend{}
	h := NewUploadHandler(nil, fake)

	req, rec := multipartUpload(t, model.UploadLetter, "letter.pdf", "application/pdf", []byte("plain text"))
	require.NoError(t, h.Create(uploadContext(req, rec, model.RoleHelper)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, fake.storeCalls)
}

func TestUploadCreateRejectsKindForWrongRole(t *testing.T) {
	cases := []struct {
		name        string
		role        string
		kind        string
		contentType string
		data        []byte
	}{
		{"student cannot upload a letter", model.RoleStudent, model.UploadLetter, "application/pdf", []byte("%PDF-1.4 x")},
		{"driver cannot upload a letter", model.RoleDriver, model.UploadLetter, "application/pdf", []byte("%PDF-1.4 x")},
		{"helper cannot upload a video", model.RoleHelper, model.UploadVideo, "video/mp4", []byte{0, 0, 0, 24}},
		{"driver cannot upload a video", model.RoleDriver, model.UploadVideo, "video/mp4", []byte{0, 0, 0, 24}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeBackend{}
			h := NewUploadHandler(nil, fake)

			req, rec := multipartUpload(t, tc.kind, "f", tc.contentType, tc.data)
			require.NoError(t, h.Create(uploadContext(req, rec, tc.role)))

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Zero(t, fake.storeCalls, "role-gated upload must not reach the storage backend")
		})
	}
}

func TestKindAllowedFor(t *testing.T) {
	assert.True(t, kindAllowedFor(model.RoleHelper, model.UploadLetter))
	assert.True(t, kindAllowedFor(model.RoleStudent, model.UploadVideo))
	assert.False(t, kindAllowedFor(model.RoleStudent, model.UploadLetter))
	assert.False(t, kindAllowedFor(model.RoleHelper, model.UploadVideo))
	assert.False(t, kindAllowedFor(model.RoleDriver, model.UploadLetter))
	assert.False(t, kindAllowedFor(model.RoleAdmin, model.UploadVideo))

	// Profile images are open to every role.
	for _, role := range []string{model.RoleStudent, model.RoleHelper, model.RoleDriver, model.RoleAdmin} {
		assert.True(t, kindAllowedFor(role, model.UploadProfileImage))
	}
}

func TestCheckContentAcceptsValidPayloads(t *testing.T) {
	assert.NoError(t, checkContent(model.UploadProfileImage, "image/png", smallPNG(t, 512, 512)))
	assert.NoError(t, checkContent(model.UploadLetter, "application/pdf", []byte("%PDF-1.4 ...")))
	assert.NoError(t, checkContent(model.UploadVideo, "video/mp4", []byte{0, 0, 0, 24}))
}

func TestUploadViewReflectsStoredRow(t *testing.T) {
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	v := uploadToView(model.Upload{
		ID:          3,
		Kind:        model.UploadProfileImage,
		ContentType: "image/png",
		SizeBytes:   12,
		CreatedAt:   ts,
	})
	assert.Equal(t, "2026-02-03T04:05:06Z", v.CreatedAt)
}

func TestLimitFor(t *testing.T) {
	assert.Equal(t, int64(maxImageBytes), limitFor(model.UploadProfileImage))
	assert.Equal(t, int64(maxLetterBytes), limitFor(model.UploadLetter))
	assert.Equal(t, int64(maxVideoBytes), limitFor(model.UploadVideo))
}
