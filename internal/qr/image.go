package qr

import (
	qrcode "github.com/skip2/go-qrcode"
)

// EncodePNG renders a payload string as a PNG image of the given pixel size.
func EncodePNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 300
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
