// Package session signs and parses the bearer token that carries a patient's
// session identity between requests.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hackgods/practice-booking/internal/identity"
)

const DefaultTTL = time.Hour

var ErrInvalidToken = errors.New("invalid session token")

type Config struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Claims is the JWT payload. Subject holds the patient id.
type Claims struct {
	jwt.RegisteredClaims
	LastName  string `json:"last_name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	Email     string `json:"email"`
	Verified  bool   `json:"verified"`
}

type Issuer struct {
	config Config
	now    func() time.Time
}

func NewIssuer(config Config) *Issuer {
	if config.TTL == 0 {
		config.TTL = DefaultTTL
	}
	return &Issuer{config: config, now: time.Now}
}

func (i *Issuer) TTL() time.Duration {
	return i.config.TTL
}

// Issue signs s into an HS256 token and reports when it expires.
func (i *Issuer) Issue(s identity.Session) (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.config.TTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.PatientID,
			Issuer:    i.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		LastName:  s.LastName,
		FirstName: s.FirstName,
		Email:     s.Email,
		Verified:  s.Verified,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.config.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Parse validates signature, issuer and expiry and returns the session.
func (i *Issuer) Parse(tokenString string) (identity.Session, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	}
	if i.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(i.config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return i.config.Secret, nil
	}, opts...)
	if err != nil {
		return identity.Session{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return identity.Session{}, ErrInvalidToken
	}

	return identity.Session{
		PatientID: claims.Subject,
		LastName:  claims.LastName,
		FirstName: claims.FirstName,
		Email:     claims.Email,
		Verified:  claims.Verified,
	}, nil
}
