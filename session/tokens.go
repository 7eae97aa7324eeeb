package session

import (
	"os"
	"time"

	"buildtrack/bizerror"

	"github.com/fundwit/go-commons/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

const (
	AccessTokenExpiration  = 2 * time.Hour
	RefreshTokenExpiration = 7 * 24 * time.Hour

	TokenKindAccess  = "access"
	TokenKindRefresh = "refresh"
)

// RevokedTokens holds token ids invalidated by logout until they expire on their own.
var RevokedTokens = cache.New(RefreshTokenExpiration, 10*time.Minute)

var signingKey = func() []byte {
	key := os.Getenv("JWT_SIGNING_KEY")
	if key == "" {
		key = "buildtrack-dev-signing-key"
	}
	return []byte(key)
}()

type Claims struct {
	Name        string `json:"name"`
	Nickname    string `json:"nickname"`
	IsSuperuser bool   `json:"superuser"`
	TokenKind   string `json:"kind"`

	jwt.RegisteredClaims
}

func SignToken(identity Identity, kind string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:        identity.Name,
		Nickname:    identity.Nickname,
		IsSuperuser: identity.IsSuperuser,
		TokenKind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID.String(),
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

func ParseToken(token, kind string) (*Claims, error) {
	claims := Claims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, bizerror.ErrUnauthenticated
		}
		return signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, bizerror.ErrUnauthenticated
	}
	if claims.TokenKind != kind {
		return nil, bizerror.ErrUnauthenticated
	}
	if _, revoked := RevokedTokens.Get(claims.ID); revoked {
		return nil, bizerror.ErrUnauthenticated
	}
	return &claims, nil
}

func (c *Claims) BuildIdentity() (Identity, error) {
	uid, err := types.ParseID(c.Subject)
	if err != nil {
		return Identity{}, bizerror.ErrUnauthenticated
	}
	return Identity{ID: uid, Name: c.Name, Nickname: c.Nickname, IsSuperuser: c.IsSuperuser}, nil
}

// RevokeToken remembers a token id as invalid for the remaining lifetime of the token.
func RevokeToken(claims *Claims) {
	ttl := RefreshTokenExpiration
	if claims.ExpiresAt != nil {
		ttl = time.Until(claims.ExpiresAt.Time)
	}
	if ttl <= 0 {
		return
	}
	RevokedTokens.Set(claims.ID, true, ttl)
}
