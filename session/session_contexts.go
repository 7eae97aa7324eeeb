package session

import (
	"strings"

	"buildtrack/bizerror"

	"github.com/gin-gonic/gin"
)

const KeySecCtx = "SecCtx"
const KeyAuthorizationHeader = "Authorization"
const bearerPrefix = "Bearer "

func ExtractSessionFromGinContext(ctx *gin.Context) *Session {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return &Session{Context: ctx.Request.Context()}
	}
	s0, ok := value.(*Session)
	if !ok || s0.Token == "" {
		return &Session{Context: ctx.Request.Context()}
	}
	s := s0.Clone()
	s.Context = ctx.Request.Context() // trace context
	return &s
}

// JwtAuthFilter rejects requests without a valid bearer access token.
func JwtAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader(KeyAuthorizationHeader)
		if !strings.HasPrefix(header, bearerPrefix) {
			panic(bizerror.ErrUnauthenticated)
		}
		token := strings.TrimPrefix(header, bearerPrefix)
		claims, err := ParseToken(token, TokenKindAccess)
		if err != nil {
			panic(bizerror.ErrUnauthenticated)
		}
		identity, err := claims.BuildIdentity()
		if err != nil {
			panic(bizerror.ErrUnauthenticated)
		}
		InjectSessionIntoGinContext(ctx, &Session{Token: token, Identity: identity, SigningTime: claims.IssuedAt.Time})
		ctx.Next()
	}
}

func InjectSessionIntoGinContext(ctx *gin.Context, secCtx *Session) {
	if secCtx != nil && secCtx.Token != "" {
		ctx.Set(KeySecCtx, secCtx)
	}
}
