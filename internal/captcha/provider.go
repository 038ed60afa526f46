// Package captcha renders the image challenges guarding the anonymous
// support flow.
package captcha

import (
	"bytes"
	"fmt"

	"github.com/dchest/captcha"
	"participa/internal/domain/services"
)

const (
	digitCount = 6
	width      = captcha.StdWidth
	height     = captcha.StdHeight
)

// Provider implements services.CaptchaProvider with rendered digit images.
// No challenge state is kept here; the caller fingerprints the answer.
type Provider struct{}

// NewProvider creates a captcha provider.
func NewProvider() services.CaptchaProvider {
	return Provider{}
}

// Issue renders a fresh challenge and returns the PNG bytes plus the digit
// answer.
func (Provider) Issue() ([]byte, string, error) {
	digits := captcha.RandomDigits(digitCount)

	var buf bytes.Buffer
	img := captcha.NewImage("", digits, width, height)
	if _, err := img.WriteTo(&buf); err != nil {
		return nil, "", fmt.Errorf("render captcha image: %w", err)
	}

	answer := make([]byte, len(digits))
	for i, d := range digits {
		answer[i] = '0' + d
	}
	return buf.Bytes(), string(answer), nil
}
