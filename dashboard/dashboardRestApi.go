package dashboard

import (
	"net/http"

	"buildtrack/bizerror"
	"buildtrack/session"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathDashboard = "/v1/dashboard"
)

func RegisterDashboardRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathDashboard, middleWares...)
	g.GET("", handleQueryDashboardData)
}

func handleQueryDashboardData(c *gin.Context) {
	query := DashboardQuery{}
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	data, err := QueryDashboardDataFunc(query, session.ExtractSessionFromGinContext(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, data)
}
