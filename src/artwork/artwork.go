// Package artwork extracts the cover art embedded in media files and
// prepares the thumbnails for it.
package artwork

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	// The following are all image formats supported for thumbnailing.
	_ "image/gif"
	_ "image/png"

	// Additional image formats from the x repository.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/dhowden/tag"
	"golang.org/x/image/draw"
)

// ErrNoArtwork is returned when a media file has no embedded picture.
var ErrNoArtwork = errors.New("no embedded artwork found")

// FromFile returns the bytes of the picture embedded in the media file at
// path. The format of the returned bytes is whatever was embedded, most
// often JPEG or PNG.
func FromFile(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening media file: %w", err)
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("reading media tags: %w", err)
	}

	picture := metadata.Picture()
	if picture == nil || len(picture.Data) == 0 {
		return nil, ErrNoArtwork
	}

	return picture.Data, nil
}

// Thumbnail scales the image in imgData to toWidth pixels while preserving
// its aspect ratio and returns it encoded as JPEG.
func Thumbnail(imgData []byte, toWidth int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	imgRect := img.Bounds()
	imgw := imgRect.Max.X - imgRect.Min.X
	imgh := imgRect.Max.Y - imgRect.Min.Y

	if imgw <= toWidth {
		// Scaling up would only waste space.
		return imgData, nil
	}

	toHeight := toWidth
	if imgw != imgh {
		toHeight = int((float32(imgh) / float32(imgw)) * float32(toWidth))
	}

	dst := image.NewRGBA(image.Rect(0, 0, toWidth, toHeight))

	draw.CatmullRom.Scale(
		dst,
		dst.Bounds(),
		img,
		img.Bounds(),
		draw.Over,
		nil,
	)

	var dstJPEG bytes.Buffer
	if err := jpeg.Encode(&dstJPEG, dst, nil); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	return dstJPEG.Bytes(), nil
}
