package session

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"tweet-digest/internal/browser"
)

// exportedCookie is one record of a browser cookie export.
type exportedCookie struct {
	Name           string   `json:"name"`
	Value          string   `json:"value"`
	Domain         string   `json:"domain"`
	Path           string   `json:"path"`
	Secure         bool     `json:"secure"`
	HTTPOnly       bool     `json:"httpOnly"`
	SameSite       string   `json:"sameSite"`
	ExpirationDate *float64 `json:"expirationDate"`
}

var validSameSite = map[string]bool{"Strict": true, "Lax": true, "None": true}

// LoadCookies reads a JSON cookie export. sameSite values other than
// Strict, Lax or None are dropped and expirationDate becomes the expiry.
func LoadCookies(path string) ([]browser.Cookie, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var recs []exportedCookie
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode cookies %s: %w", path, err)
	}
	out := make([]browser.Cookie, 0, len(recs))
	for _, r := range recs {
		c := browser.Cookie{
			Name:     r.Name,
			Value:    r.Value,
			Domain:   r.Domain,
			Path:     r.Path,
			Secure:   r.Secure,
			HTTPOnly: r.HTTPOnly,
		}
		if validSameSite[r.SameSite] {
			c.SameSite = r.SameSite
		}
		if r.ExpirationDate != nil {
			sec, frac := math.Modf(*r.ExpirationDate)
			c.Expires = time.Unix(int64(sec), int64(frac*1e9)).UTC()
		}
		out = append(out, c)
	}
	return out, nil
}
