package dataset

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	imageMagic = 0x00000803
	labelMagic = 0x00000801

	imageHeaderSize = 16
	labelHeaderSize = 8
)

var (
	ErrBadMagic  = errors.New("bad idx magic")
	ErrTruncated = errors.New("truncated idx payload")
	ErrBadShape  = errors.New("bad idx image shape")
)

// maxImageSide bounds rows and cols so rows*cols cannot overflow.
const maxImageSide = 1 << 15

// ParseImages decodes an uncompressed IDX3 image file. Pixels are returned
// raw (0-255), row-major, one image after another.
func ParseImages(data []byte) (count, rows, cols int, pixels []byte, err error) {
	if len(data) < imageHeaderSize {
		return 0, 0, 0, nil, fmt.Errorf("images header: %w", ErrTruncated)
	}
	if magic := binary.BigEndian.Uint32(data[0:4]); magic != imageMagic {
		return 0, 0, 0, nil, fmt.Errorf("images: %w 0x%08x", ErrBadMagic, magic)
	}
	count = int(binary.BigEndian.Uint32(data[4:8]))
	rows = int(binary.BigEndian.Uint32(data[8:12]))
	cols = int(binary.BigEndian.Uint32(data[12:16]))
	if rows == 0 || cols == 0 || rows > maxImageSide || cols > maxImageSide {
		return 0, 0, 0, nil, fmt.Errorf("images: %w: %dx%d", ErrBadShape, rows, cols)
	}
	body := data[imageHeaderSize:]
	size := rows * cols
	if count > len(body)/size {
		return 0, 0, 0, nil, fmt.Errorf("images: %w: have %d bytes, want %d images of %d", ErrTruncated, len(body), count, size)
	}
	return count, rows, cols, body[:count*size], nil
}

// ParseLabels decodes an uncompressed IDX1 label file.
func ParseLabels(data []byte) ([]byte, error) {
	if len(data) < labelHeaderSize {
		return nil, fmt.Errorf("labels header: %w", ErrTruncated)
	}
	if magic := binary.BigEndian.Uint32(data[0:4]); magic != labelMagic {
		return nil, fmt.Errorf("labels: %w 0x%08x", ErrBadMagic, magic)
	}
	count := int(binary.BigEndian.Uint32(data[4:8]))
	body := data[labelHeaderSize:]
	if len(body) < count {
		return nil, fmt.Errorf("labels: %w: have %d bytes, want %d", ErrTruncated, len(body), count)
	}
	return body[:count], nil
}

// EncodeImages writes pixels as an IDX3 file. It is the inverse of
// ParseImages and is used to build fixtures.
func EncodeImages(count, rows, cols int, pixels []byte) []byte {
	out := make([]byte, imageHeaderSize, imageHeaderSize+len(pixels))
	binary.BigEndian.PutUint32(out[0:4], imageMagic)
	binary.BigEndian.PutUint32(out[4:8], uint32(count))
	binary.BigEndian.PutUint32(out[8:12], uint32(rows))
	binary.BigEndian.PutUint32(out[12:16], uint32(cols))
	return append(out, pixels...)
}

// EncodeLabels writes labels as an IDX1 file.
func EncodeLabels(labels []byte) []byte {
	out := make([]byte, labelHeaderSize, labelHeaderSize+len(labels))
	binary.BigEndian.PutUint32(out[0:4], labelMagic)
	binary.BigEndian.PutUint32(out[4:8], uint32(len(labels)))
	return append(out, labels...)
}
