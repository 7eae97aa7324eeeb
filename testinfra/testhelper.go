package testinfra

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// BuildSecCtx builds an authenticated session for tests. The token value is
// synthetic, it only has to be non-empty for the permission evaluator to
// treat the session as authenticated.
func BuildSecCtx(uid types.ID) *session.Session {
	return &session.Session{
		Token:    "test-token-" + uid.String(),
		Identity: session.Identity{ID: uid, Name: "user-" + uid.String()},
		Context:  context.Background(),
	}
}

// BuildSuperuserSecCtx builds a session carrying the superuser flag.
func BuildSuperuserSecCtx(uid types.ID) *session.Session {
	s := BuildSecCtx(uid)
	s.Identity.IsSuperuser = true
	return s
}

// ExecuteRequest runs a request through the engine and returns the response
// status, body and headers.
func ExecuteRequest(req *http.Request, engine *gin.Engine) (int, string, http.Header) {
	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	resp := recorder.Result()
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body), resp.Header
}
