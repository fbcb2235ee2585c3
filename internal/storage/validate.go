package storage

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"regexp"

	"go-jobwatch/internal/models"
)

var (
	digestRegex = regexp.MustCompile(`^[a-f0-9]{64}$`)
	base64Regex = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)
)

// minImageSlotLen rejects slots too short to hold any real screenshot
const minImageSlotLen = 100

// ValidateDigest checks a stored text fingerprint. Anything that is not a
// 64-char lowercase hex digest is reported as models.ErrCorruptSlot.
func ValidateDigest(data []byte) (string, error) {
	digest := string(bytes.TrimSpace(data))
	if !digestRegex.MatchString(digest) {
		return "", fmt.Errorf("%w: digest has unexpected shape (len %d)", models.ErrCorruptSlot, len(digest))
	}
	return digest, nil
}

// EncodeImageSlot stores screenshot bytes as base64 text
func EncodeImageSlot(img []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(img)))
	base64.StdEncoding.Encode(out, img)
	return out
}

// DecodeImageSlot validates and decodes a stored screenshot
func DecodeImageSlot(data []byte) ([]byte, error) {
	text := bytes.TrimSpace(data)
	if len(text) <= minImageSlotLen {
		return nil, fmt.Errorf("%w: image slot too short (%d bytes)", models.ErrCorruptSlot, len(text))
	}
	if !base64Regex.Match(text) {
		return nil, fmt.Errorf("%w: image slot is not base64", models.ErrCorruptSlot)
	}
	img, err := base64.StdEncoding.DecodeString(string(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCorruptSlot, err)
	}
	return img, nil
}
