package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

var ErrInvalidDataURI = errors.New("invalid base64 image")

// DecodeImage accepts either a data URI ("data:image/png;base64,...") or bare
// base64 and returns the bytes with their content type.
func DecodeImage(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, "", ErrInvalidDataURI
	}

	var contentType, payload string
	if strings.HasPrefix(s, "data:") {
		meta, data, ok := strings.Cut(s, ",")
		if !ok {
			return nil, "", ErrInvalidDataURI
		}
		mediaType := strings.TrimPrefix(meta, "data:")   // "image/jpeg;base64"
		contentType, _, _ = strings.Cut(mediaType, ";") // "image/jpeg"
		payload = data
	} else {
		payload = s
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}

// ExtensionFor maps a content type to a file extension, preferring ".jpg" for JPEG.
func ExtensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	}
	if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
		return exts[0]
	}
	if _, sub, ok := strings.Cut(contentType, "/"); ok {
		return "." + sub
	}
	return ""
}
