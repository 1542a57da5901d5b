package utils

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestDecodeImageDataURI(t *testing.T) {
	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpegbytes"))
	data, ct, err := DecodeImage(uri)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpegbytes"), data)
	assert.Equal(t, "image/jpeg", ct)
}

func TestDecodeImageBareBase64Sniffs(t *testing.T) {
	data, ct, err := DecodeImage(base64.StdEncoding.EncodeToString(pngHeader))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
	assert.Equal(t, "image/png", ct)
}

func TestDecodeImageInvalid(t *testing.T) {
	_, _, err := DecodeImage("")
	assert.ErrorIs(t, err, ErrInvalidDataURI)

	_, _, err = DecodeImage("data:image/png;base64")
	assert.ErrorIs(t, err, ErrInvalidDataURI)

	_, _, err = DecodeImage("data:image/png;base64,@@@")
	assert.Error(t, err)
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".jpg", ExtensionFor("image/jpeg"))
	assert.Equal(t, ".png", ExtensionFor("image/png"))
	assert.Equal(t, ".x-custom", ExtensionFor("image/x-custom"))
}
