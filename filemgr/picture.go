package filemgr

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// Saved describes a stored picture by its public URL paths.
type Saved struct {
	Path  string `json:"path"`
	Thumb string `json:"thumb"`
}

// Store writes profile pictures below Dir and serves them under URLPrefix.
type Store struct {
	Dir       string
	URLPrefix string
	MaxSize   int64
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir, URLPrefix: "/uploads", MaxSize: DefaultMaxSize}
}

// SaveProfilePicture validates the upload, re-encodes it as JPEG (which drops
// EXIF) bounded to MaxDimension, and writes a square ThumbSize thumbnail.
func (s *Store) SaveProfilePicture(file multipart.File, header *multipart.FileHeader) (*Saved, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !slices.Contains(AllowedExtensions, ext) {
		return nil, ErrInvalidExtension
	}
	if mime := header.Header.Get("Content-Type"); mime != "" && !slices.Contains(AllowedMIMEs, mime) {
		return nil, ErrInvalidMIME
	}

	data, err := io.ReadAll(io.LimitReader(file, s.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxSize {
		return nil, ErrFileTooLarge
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, ErrNotAnImage
	}
	b := img.Bounds()
	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		img = imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	}
	thumb := imaging.Fill(img, ThumbSize, ThumbSize, imaging.Center, imaging.Lanczos)

	name := uuid.NewString() + ".jpg"
	mainPath, err := s.write(PicProfile, name, img)
	if err != nil {
		return nil, err
	}
	thumbPath, err := s.write(PicThumb, name, thumb)
	if err != nil {
		_ = os.Remove(filepath.Join(s.Dir, PictureSubfolders[PicProfile], name))
		return nil, err
	}
	return &Saved{Path: mainPath, Thumb: thumbPath}, nil
}

func (s *Store) write(kind PictureType, name string, img image.Image) (string, error) {
	sub := PictureSubfolders[kind]
	dir := filepath.Join(s.Dir, sub)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	if err := imaging.Save(img, filepath.Join(dir, name), imaging.JPEGQuality(85)); err != nil {
		return "", fmt.Errorf("save %s: %w", kind, err)
	}
	return path.Join(s.URLPrefix, sub, name), nil
}

// Remove deletes a picture previously returned by SaveProfilePicture.
// Paths outside the store are ignored.
func (s *Store) Remove(saved Saved) {
	for _, p := range []string{saved.Path, saved.Thumb} {
		rel, ok := strings.CutPrefix(p, s.URLPrefix+"/")
		if !ok || strings.Contains(rel, "..") {
			continue
		}
		_ = os.Remove(filepath.Join(s.Dir, filepath.FromSlash(rel)))
	}
}

// Pair rebuilds the Saved record for a stored picture path.
func (s *Store) Pair(picture string) Saved {
	prefix := path.Join(s.URLPrefix, PictureSubfolders[PicProfile]) + "/"
	name, ok := strings.CutPrefix(picture, prefix)
	if !ok {
		return Saved{}
	}
	return Saved{Path: picture, Thumb: path.Join(s.URLPrefix, PictureSubfolders[PicThumb], name)}
}
