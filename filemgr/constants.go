package filemgr

import "errors"

type PictureType string

const (
	PicProfile PictureType = "profile"
	PicThumb   PictureType = "thumb"
)

const (
	DefaultMaxSize = 5 << 20
	MaxDimension   = 1024
	ThumbSize      = 256
)

var (
	AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tif", ".tiff"}

	AllowedMIMEs = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff"}

	PictureSubfolders = map[PictureType]string{
		PicProfile: "profile",
		PicThumb:   "thumb",
	}

	ErrInvalidExtension = errors.New("invalid file extension")
	ErrInvalidMIME      = errors.New("invalid MIME type")
	ErrFileTooLarge     = errors.New("file size exceeds limit")
	ErrNotAnImage       = errors.New("file is not a decodable image")
)
