package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/healthscope/symptom-checker/backend/services"
)

// MaxImageBytes caps uploaded image size at 10 MB.
const MaxImageBytes = 10 << 20

// ImageInfo describes a validated upload.
type ImageInfo struct {
	Format string `json:"format"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Bytes  int    `json:"bytes"`
}

// ValidateImage checks that data is a decodable JPEG, PNG or GIF within the
// size limit and returns its dimensions.
func ValidateImage(data []byte) (*ImageInfo, error) {
	if len(data) == 0 {
		return nil, services.ErrInvalidImage
	}
	if len(data) > MaxImageBytes {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("image exceeds %d bytes", MaxImageBytes), nil)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, services.WrapError(services.ErrorTypeValidation, "file is not a decodable image", err)
	}

	return &ImageInfo{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
		Bytes:  len(data),
	}, nil
}

// EncodeBase64 returns the standard base64 encoding of the image, the form
// multimodal model APIs accept inline.
func EncodeBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Describe renders a short textual note about the image for inclusion in an
// analysis prompt when no multimodal model is available.
func Describe(filename string, info *ImageInfo) string {
	return fmt.Sprintf("An image was attached (%s, %s %dx%d). Consider visible symptoms such as rashes, swelling or discoloration when relevant.",
		filename, info.Format, info.Width, info.Height)
}
