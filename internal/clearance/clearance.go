package clearance

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"go.uber.org/zap"
)

const (
	DefaultTTL = 5 * time.Minute

	issuer   = "pairlink"
	audience = "signal"
)

var ErrInvalid = errors.New("invalid clearance")

// Issuer mints and checks clearances: short lived PASETO v4 tokens proving
// that the holder recently passed a CAPTCHA from a given address.
type Issuer struct {
	key paseto.V4AsymmetricSecretKey
	ttl time.Duration
	now func() time.Time
}

// New loads the signing key from a base64 encoded secret. An empty or broken
// secret falls back to a random key, so clearances do not survive a restart.
func New(secret string, ttl time.Duration) *Issuer {
	key, err := loadPrivateKey(secret)
	if err != nil {
		zap.L().Warn("failed to decode clearance private key, using random key", zap.Error(err))
		key = paseto.NewV4AsymmetricSecretKey()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{key: key, ttl: ttl, now: time.Now}
}

// Issue returns a clearance for subject and when it stops being accepted.
func (i *Issuer) Issue(subject string) (string, time.Time) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	token := newToken()
	token.SetIssuer(issuer)
	token.SetAudience(audience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)
	token.SetSubject(subject)

	return token.V4Sign(i.key, nil), expiresAt
}

// Verify checks that raw was issued here for subject and is still valid.
func (i *Issuer) Verify(raw, subject string) error {
	parser := paseto.MakeParser([]paseto.Rule{
		paseto.IssuedBy(issuer),
		paseto.ForAudience(audience),
		paseto.Subject(subject),
		paseto.ValidAt(i.now()),
	})

	if _, err := parser.ParseV4Public(i.key.Public(), raw, nil); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func loadPrivateKey(secret string) (key paseto.V4AsymmetricSecretKey, err error) {
	var decoded []byte
	if decoded, err = base64.StdEncoding.DecodeString(secret); err != nil {
		return
	}

	return paseto.NewV4AsymmetricSecretKeyFromBytes(decoded)
}

// XXX: paseto.NewToken returns a value but every setter wants a pointer
func newToken() *paseto.Token {
	t := paseto.NewToken()
	return &t
}
