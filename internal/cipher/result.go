package cipher

import (
	"errors"
	"log/slog"
)

// Placeholder texts shown in place of content that failed to open.
const (
	DecryptSentinel = "Error decrypting content"
	DisplaySentinel = "Error displaying content"
)

// Result pairs an operation's text with its failure, if any.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Display returns the text to render: the value on success, otherwise the
// placeholder matching the failure.
func (r Result) Display() string {
	switch {
	case r.Err == nil:
		return r.Text
	case errors.Is(r.Err, ErrDeobscure):
		return DisplaySentinel
	case errors.Is(r.Err, ErrDecrypt):
		return DecryptSentinel
	default:
		return ""
	}
}

// Open decrypts ciphertext into a Result.
func (s *Service) Open(ciphertext string) Result {
	text, err := s.Decrypt(ciphertext)
	return Result{Text: text, Err: err}
}

// Reveal deobscures display content into a Result.
func Reveal(obscured string) Result {
	text, err := DeobscureForDisplay(obscured)
	if err != nil {
		slog.Error("error deobscuring content", slog.String("error", err.Error()))
	}
	return Result{Text: text, Err: err}
}

// EncryptText returns the ciphertext, or "" if encryption failed.
func (s *Service) EncryptText(plaintext string) string {
	out, err := s.Encrypt(plaintext)
	if err != nil {
		return ""
	}
	return out
}

// DecryptText returns the plaintext, or DecryptSentinel if decryption failed.
func (s *Service) DecryptText(ciphertext string) string {
	return s.Open(ciphertext).Display()
}

// DeobscureText returns the decoded content, or DisplaySentinel.
func DeobscureText(obscured string) string {
	return Reveal(obscured).Display()
}
