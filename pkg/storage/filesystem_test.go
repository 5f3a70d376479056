package storage

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadHeader(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field][0]
}

func TestSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewUploadStorage(dir, []string{".jpg", ".jpeg", ".png"}, 1<<20)
	require.NoError(t, err)

	header := uploadHeader(t, "avatar", "me.png", "fake image bytes")
	rel, err := store.Save("avatar", header)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(rel, "avatar/"))

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))

	require.NoError(t, store.Delete(rel))
	_, err = os.Stat(filepath.Join(dir, filepath.FromSlash(rel)))
	assert.True(t, os.IsNotExist(err))
}

func TestValidateRejectsExtension(t *testing.T) {
	store, err := NewUploadStorage(t.TempDir(), []string{".jpg", ".jpeg", ".png"}, 1<<20)
	require.NoError(t, err)

	header := uploadHeader(t, "avatar", "malware.exe", "nope")
	assert.Error(t, store.Validate(header))
}

func TestValidateRejectsOversizedFile(t *testing.T) {
	store, err := NewUploadStorage(t.TempDir(), []string{".png"}, 4)
	require.NoError(t, err)

	header := uploadHeader(t, "avatar", "big.png", "more than four bytes")
	assert.Error(t, store.Validate(header))
}

func TestDeleteMissingFileIsNoop(t *testing.T) {
	store, err := NewUploadStorage(t.TempDir(), nil, 0)
	require.NoError(t, err)
	assert.NoError(t, store.Delete("avatar/ghost.png"))
}
