package sessions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/persistence"
	"buildtrack/session"
	"buildtrack/sessions"
	"buildtrack/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("SessionsRestApi", func() {
	var (
		router       *gin.Engine
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		sessions.RegisterSessionsHandler(router)

		testDatabase = testinfra.StartMysqlTestDatabase("buildtrack")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(&account.User{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	createUser := func(name, password string, active bool) {
		Expect(testDatabase.DS.GormDB(context.TODO()).Save(&account.User{
			ID: 1, Name: name, Secret: account.HashSha256(password), IsActive: active,
		}).Error).To(BeNil())
	}
	login := func(body string) (int, sessions.TokenPair) {
		req := httptest.NewRequest(http.MethodPost, "/v1/sessions", bytes.NewReader([]byte(body)))
		status, respBody, _ := testinfra.ExecuteRequest(req, router)
		pair := sessions.TokenPair{}
		if status == http.StatusOK {
			Expect(json.Unmarshal([]byte(respBody), &pair)).To(BeNil())
		}
		return status, pair
	}

	Describe("SimpleLoginHandler", func() {
		It("should issue a token pair on valid credentials", func() {
			createUser("ann", "123456", true)

			status, pair := login(`{"name":"ann","password":"123456"}`)
			Expect(status).To(Equal(http.StatusOK))
			Expect(pair.Token).ToNot(BeEmpty())
			Expect(pair.RefreshToken).ToNot(BeEmpty())
			Expect(pair.Identity.Name).To(Equal("ann"))

			claims, err := session.ParseToken(pair.Token, session.TokenKindAccess)
			Expect(err).To(BeNil())
			Expect(claims.Name).To(Equal("ann"))
			_, err = session.ParseToken(pair.RefreshToken, session.TokenKindRefresh)
			Expect(err).To(BeNil())
		})

		It("should reject bad credentials", func() {
			createUser("ann", "123456", true)

			status, _ := login(`{"name":"ann","password":"wrong"}`)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})

		It("should reject deactivated accounts", func() {
			createUser("ann", "123456", false)

			status, _ := login(`{"name":"ann","password":"123456"}`)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("RefreshTokenHandler", func() {
		It("should issue a fresh access token from a refresh token", func() {
			createUser("ann", "123456", true)
			status, pair := login(`{"name":"ann","password":"123456"}`)
			Expect(status).To(Equal(http.StatusOK))

			req := httptest.NewRequest(http.MethodPut, "/v1/sessions", bytes.NewReader([]byte(
				`{"refreshToken":"`+pair.RefreshToken+`"}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))

			refreshed := sessions.TokenPair{}
			Expect(json.Unmarshal([]byte(body), &refreshed)).To(BeNil())
			Expect(refreshed.RefreshToken).To(Equal(pair.RefreshToken))
			_, err := session.ParseToken(refreshed.Token, session.TokenKindAccess)
			Expect(err).To(BeNil())
		})

		It("should reject a refresh after the account is deactivated", func() {
			createUser("ann", "123456", true)
			status, pair := login(`{"name":"ann","password":"123456"}`)
			Expect(status).To(Equal(http.StatusOK))

			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{}).
				Where("id = ?", 1).Update("is_active", false).Error).To(BeNil())

			req := httptest.NewRequest(http.MethodPut, "/v1/sessions", bytes.NewReader([]byte(
				`{"refreshToken":"`+pair.RefreshToken+`"}`)))
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})

		It("should reject an access token used as refresh token", func() {
			createUser("ann", "123456", true)
			status, pair := login(`{"name":"ann","password":"123456"}`)
			Expect(status).To(Equal(http.StatusOK))

			req := httptest.NewRequest(http.MethodPut, "/v1/sessions", bytes.NewReader([]byte(
				`{"refreshToken":"`+pair.Token+`"}`)))
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("SimpleLogoutHandler", func() {
		It("should revoke both tokens", func() {
			createUser("ann", "123456", true)
			status, pair := login(`{"name":"ann","password":"123456"}`)
			Expect(status).To(Equal(http.StatusOK))

			req := httptest.NewRequest(http.MethodDelete, "/v1/sessions", bytes.NewReader([]byte(
				`{"refreshToken":"`+pair.RefreshToken+`"}`)))
			req.Header.Set(session.KeyAuthorizationHeader, "Bearer "+pair.Token)
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusNoContent))

			_, err := session.ParseToken(pair.Token, session.TokenKindAccess)
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
			_, err = session.ParseToken(pair.RefreshToken, session.TokenKindRefresh)
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
		})
	})
})
