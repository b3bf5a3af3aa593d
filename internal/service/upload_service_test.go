package service

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	url      string
	publicID string
	err      error

	gotSubfolder string
	gotName      string
	gotBytes     []byte
}

func (f *fakeStorage) Upload(_ context.Context, subfolder, name string, reader io.Reader) (string, string, error) {
	f.gotSubfolder = subfolder
	f.gotName = name
	data, _ := io.ReadAll(reader)
	f.gotBytes = data
	if f.err != nil {
		return "", "", f.err
	}
	return f.url, f.publicID, nil
}

// pngBytes is a minimal payload that sniffs as image/png.
func pngBytes(extra int) []byte {
	header := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	return append(header, make([]byte, extra)...)
}

func makeFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))

	return req.MultipartForm.File["file"][0]
}

func TestUploadRejectsMissingFile(t *testing.T) {
	svc := NewUploadService(&fakeStorage{}, 10, testLogger())

	_, err := svc.Upload(context.Background(), nil, "avatars")
	require.ErrorIs(t, err, ErrUploadMissing)
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc := NewUploadService(&fakeStorage{}, 1, testLogger())

	file := makeFileHeader(t, "big.png", pngBytes(2*1024*1024))
	_, err := svc.Upload(context.Background(), file, "lessons")
	require.ErrorIs(t, err, ErrUploadTooLarge)
}

func TestUploadRejectsDisallowedType(t *testing.T) {
	storage := &fakeStorage{}
	svc := NewUploadService(storage, 10, testLogger())

	file := makeFileHeader(t, "notes.txt", []byte("plain text, not media"))
	_, err := svc.Upload(context.Background(), file, "lessons")
	require.ErrorIs(t, err, ErrUploadTypeNotAllowed)
	require.Empty(t, storage.gotName)
}

func TestUploadStoresAllowedFile(t *testing.T) {
	storage := &fakeStorage{url: "https://cdn.example.com/regod/avatar.png", publicID: "regod/avatar"}
	svc := NewUploadService(storage, 10, testLogger())

	payload := pngBytes(64)
	file := makeFileHeader(t, "avatar.png", payload)

	resp, err := svc.Upload(context.Background(), file, "avatars")
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/regod/avatar.png", resp.URL)
	require.Equal(t, "regod/avatar", resp.PublicID)
	require.Equal(t, "image/png", resp.MimeType)
	require.Equal(t, int64(len(payload)), resp.Size)

	require.Equal(t, "avatars", storage.gotSubfolder)
	require.Equal(t, "avatar.png", storage.gotName)
	require.Equal(t, payload, storage.gotBytes)
}

func TestUploadPropagatesStorageFailure(t *testing.T) {
	storage := &fakeStorage{err: io.ErrUnexpectedEOF}
	svc := NewUploadService(storage, 10, testLogger())

	file := makeFileHeader(t, "avatar.png", pngBytes(16))
	_, err := svc.Upload(context.Background(), file, "avatars")
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}
