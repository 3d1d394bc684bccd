package filemgr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func upload(t *testing.T, name, mime string, data []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	h := &multipart.FileHeader{Filename: name, Header: textproto.MIMEHeader{}, Size: int64(len(data))}
	h.Header.Set("Content-Type", mime)
	return memFile{bytes.NewReader(data)}, h
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestSaveProfilePictureWritesMainAndThumb(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir)

	f, h := upload(t, "me.png", "image/png", pngBytes(t, 1600, 800))
	saved, err := s.SaveProfilePicture(f, h)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(saved.Path, "/uploads/profile/"))
	assert.True(t, strings.HasPrefix(saved.Thumb, "/uploads/thumb/"))

	main, err := imaging.Open(filepath.Join(dir, "profile", filepath.Base(saved.Path)))
	require.NoError(t, err)
	assert.Equal(t, 1024, main.Bounds().Dx())
	assert.Equal(t, 512, main.Bounds().Dy())

	thumb, err := imaging.Open(filepath.Join(dir, "thumb", filepath.Base(saved.Thumb)))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, ThumbSize, ThumbSize), thumb.Bounds())

	s.Remove(*saved)
	_, err = os.Stat(filepath.Join(dir, "profile", filepath.Base(saved.Path)))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveProfilePictureRejects(t *testing.T) {
	s := NewStore(t.TempDir())

	f, h := upload(t, "me.exe", "image/png", pngBytes(t, 10, 10))
	_, err := s.SaveProfilePicture(f, h)
	assert.ErrorIs(t, err, ErrInvalidExtension)

	f, h = upload(t, "me.png", "application/pdf", pngBytes(t, 10, 10))
	_, err = s.SaveProfilePicture(f, h)
	assert.ErrorIs(t, err, ErrInvalidMIME)

	f, h = upload(t, "me.png", "image/png", []byte("not an image"))
	_, err = s.SaveProfilePicture(f, h)
	assert.ErrorIs(t, err, ErrNotAnImage)

	s.MaxSize = 16
	f, h = upload(t, "me.png", "image/png", pngBytes(t, 50, 50))
	_, err = s.SaveProfilePicture(f, h)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestPair(t *testing.T) {
	s := NewStore(t.TempDir())
	assert.Equal(t, Saved{Path: "/uploads/profile/a.jpg", Thumb: "/uploads/thumb/a.jpg"}, s.Pair("/uploads/profile/a.jpg"))
	assert.Equal(t, Saved{}, s.Pair("https://cdn.example.com/a.jpg"))
}
