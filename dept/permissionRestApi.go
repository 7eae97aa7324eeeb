package dept

import (
	"net/http"

	"buildtrack/bizerror"
	"buildtrack/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathUserPermissions = "/v1/user-permissions"
	PathPagePermissions = "/v1/page-permissions"
)

func RegisterPermissionsHandler(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	r.Group(PathUserPermissions, middleWares...).GET("", handleQueryUserPermissions)

	g := r.Group(PathPagePermissions, middleWares...)
	g.GET("", handleQueryPermissionMatrix)
	g.POST("", handleSetPagePermissions)
}

func handleQueryUserPermissions(c *gin.Context) {
	pages, err := PagesVisibleToFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &VisiblePages{Pages: pages})
}

func handleQueryPermissionMatrix(c *gin.Context) {
	matrix, err := PermissionMatrixFunc(session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, matrix)
}

func handleSetPagePermissions(c *gin.Context) {
	updating := PermissionUpdating{}
	if err := c.ShouldBindBodyWith(&updating, binding.JSON); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	applied, err := SetPagePermissionsFunc(&updating, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, gin.H{"applied": applied})
}
