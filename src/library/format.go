package library

import (
	"path/filepath"
	"strings"
)

// supportedFormats are the file extensions which are read into the library.
var supportedFormats = []string{
	".mp3",
	".flac",
	".ogg",
	".oga",
	".m4a",
}

func (lib *LocalLibrary) isSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}

	return false
}

func mediaFormatFromFileName(path string) string {
	format := strings.TrimLeft(filepath.Ext(path), ".")
	if format == "" {
		format = "mp3"
	}
	return strings.ToLower(format)
}
