package cipher

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrDeobscure is returned when obscured display content is not base64.
var ErrDeobscure = errors.New("cipher: deobscure failed")

// ObscureForDisplay base64 encodes content. It is an indirection before
// content enters the render tree, not a confidentiality layer.
func ObscureForDisplay(content string) string {
	return base64.StdEncoding.EncodeToString([]byte(content))
}

// DeobscureForDisplay reverses ObscureForDisplay. Unpadded input is accepted
// and ASCII whitespace is ignored, as browsers' atob does.
func DeobscureForDisplay(obscured string) (string, error) {
	obscured = strings.Map(dropASCIISpace, obscured)
	data, err := base64.StdEncoding.DecodeString(obscured)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(obscured)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrDeobscure, err)
		}
	}
	return string(data), nil
}

func dropASCIISpace(r rune) rune {
	switch r {
	case ' ', '\t', '\n', '\f', '\r':
		return -1
	}
	return r
}
