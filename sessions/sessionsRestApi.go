package sessions

import (
	"net/http"
	"time"

	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/jinzhu/gorm"
	"golang.org/x/time/rate"
)

// loginLimiter throttles credential guessing across the instance.
var loginLimiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 10)

type TokenPair struct {
	Token        string           `json:"token"`
	RefreshToken string           `json:"refreshToken"`
	Identity     session.Identity `json:"identity"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

func RegisterSessionsHandler(r *gin.Engine) {
	g := r.Group("/v1/sessions")
	g.POST("", SimpleLoginHandler)
	g.PUT("", RefreshTokenHandler)
	g.DELETE("", SimpleLogoutHandler)
}

func SimpleLoginHandler(c *gin.Context) {
	if !loginLimiter.Allow() {
		c.JSON(http.StatusTooManyRequests, &misc.ErrorBody{Code: "security.too_many_requests", Message: "too many login attempts"})
		return
	}

	login := session.LoginRequest{}
	if err := c.ShouldBindBodyWith(&login, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: err.Error()})
		return
	}

	user := account.User{}
	db := persistence.ActiveDataSourceManager.GormDB(c.Request.Context())
	if err := db.Model(&account.User{}).
		Where(&account.User{Name: login.Name, Secret: account.HashSha256(login.Password)}).
		Scan(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			panic(bizerror.ErrUnauthenticated)
		}
		c.JSON(http.StatusInternalServerError, &misc.ErrorBody{Code: "common.internal_server_error", Message: err.Error()})
		return
	}
	if !user.IsActive {
		panic(bizerror.ErrUnauthenticated)
	}

	pair, err := issueTokenPair(user)
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, pair)
}

func RefreshTokenHandler(c *gin.Context) {
	request := RefreshRequest{}
	if err := c.ShouldBindBodyWith(&request, binding.JSON); err != nil {
		c.JSON(http.StatusBadRequest, &misc.ErrorBody{Code: "common.bad_param", Message: err.Error()})
		return
	}

	claims, err := session.ParseToken(request.RefreshToken, session.TokenKindRefresh)
	if err != nil {
		panic(bizerror.ErrUnauthenticated)
	}
	identity, err := claims.BuildIdentity()
	if err != nil {
		panic(bizerror.ErrUnauthenticated)
	}

	// the account state is re-read so that deactivation and superuser
	// changes take effect on the next refresh
	user := account.User{ID: identity.ID}
	db := persistence.ActiveDataSourceManager.GormDB(c.Request.Context())
	if err := db.Where(&user).First(&user).Error; err != nil {
		panic(bizerror.ErrUnauthenticated)
	}
	if !user.IsActive {
		panic(bizerror.ErrUnauthenticated)
	}

	pair, err := issueTokenPair(user)
	if err != nil {
		panic(err)
	}
	pair.RefreshToken = request.RefreshToken
	c.JSON(http.StatusOK, pair)
}

func SimpleLogoutHandler(c *gin.Context) {
	header := c.GetHeader(session.KeyAuthorizationHeader)
	if len(header) > len("Bearer ") {
		if claims, err := session.ParseToken(header[len("Bearer "):], session.TokenKindAccess); err == nil {
			session.RevokeToken(claims)
		}
	}
	request := RefreshRequest{}
	if err := c.ShouldBindBodyWith(&request, binding.JSON); err == nil {
		if claims, err := session.ParseToken(request.RefreshToken, session.TokenKindRefresh); err == nil {
			session.RevokeToken(claims)
		}
	}
	c.AbortWithStatus(http.StatusNoContent)
}

func issueTokenPair(user account.User) (*TokenPair, error) {
	identity := session.Identity{ID: user.ID, Name: user.Name, Nickname: user.Nickname, IsSuperuser: user.IsSuperuser}
	access, err := session.SignToken(identity, session.TokenKindAccess, session.AccessTokenExpiration)
	if err != nil {
		return nil, err
	}
	refresh, err := session.SignToken(identity, session.TokenKindRefresh, session.RefreshTokenExpiration)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Token: access, RefreshToken: refresh, Identity: identity}, nil
}
