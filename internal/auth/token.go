package auth

import (
	"fmt"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// ExtractAuthenticityToken pulls the hidden authenticity token out of the
// login page markup.
func ExtractAuthenticityToken(page io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return "", fmt.Errorf("parse login page: %w", err)
	}

	token, ok := doc.Find(`input[name="authenticity_token"]`).First().Attr("value")
	if !ok || token == "" {
		// Some renderings carry the token in a meta tag instead.
		token, ok = doc.Find(`meta[name="csrf-token"]`).First().Attr("content")
	}
	if !ok || token == "" {
		return "", fmt.Errorf("%w: authenticity token not found in login page", ErrAuthentication)
	}

	return token, nil
}
