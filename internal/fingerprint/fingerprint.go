package fingerprint

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/reno-apps/ordermerge/internal/domain/model"
)

// Generator derives salted, non-reversible fingerprints from identifying
// order attributes. The per-shop salt is computed once and cached for the
// process lifetime; salts are immutable, so no invalidation exists.
type Generator struct {
	master string
	salts  sync.Map // shop -> []byte
}

// NewGenerator builds a Generator keyed by the given master salt.
func NewGenerator(masterSalt string) *Generator {
	return &Generator{master: masterSalt}
}

func (g *Generator) salt(shop string) []byte {
	if cached, ok := g.salts.Load(shop); ok {
		return cached.([]byte)
	}
	sum := sha256.Sum256([]byte(g.master + shop))
	salt := []byte(hex.EncodeToString(sum[:]))
	actual, _ := g.salts.LoadOrStore(shop, salt)
	return actual.([]byte)
}

// Address fingerprints a shipping address. Identical real-world addresses
// under the same shop always fingerprint identically; the same address under
// different shops never collides.
func (g *Generator) Address(shop string, addr model.Address) string {
	return g.digest(shop, normalizeAddress(addr))
}

// Email fingerprints an email address, case and whitespace insensitive.
// An absent email yields no fingerprint.
func (g *Generator) Email(shop, email string) (string, bool) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return "", false
	}
	return g.digest(shop, email), true
}

func (g *Generator) digest(shop, payload string) string {
	mac := hmac.New(sha256.New, g.salt(shop))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// normalizeAddress joins the cleaned structured sub-fields with a fixed
// separator. Street lines are concatenated before cleaning.
func normalizeAddress(addr model.Address) string {
	return strings.Join([]string{
		clean(addr.Name),
		clean(addr.Address1 + addr.Address2),
		clean(addr.City),
		clean(addr.Province),
		clean(addr.Zip),
		clean(addr.Country),
	}, "|")
}

// clean lower-cases, strips diacritics and drops every non-alphanumeric rune.
func clean(s string) string {
	s = strings.ToLower(s)
	strip := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	if out, _, err := transform.String(strip, s); err == nil {
		s = out
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
