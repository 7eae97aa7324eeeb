package dept_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"

	"buildtrack/bizerror"
	"buildtrack/dept"
	"buildtrack/session"
	"buildtrack/testinfra"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("PermissionRestApi", func() {
	var (
		router *gin.Engine
	)
	BeforeEach(func() {
		router = gin.Default()
		router.Use(bizerror.ErrorHandling())
		dept.RegisterPermissionsHandler(router)
	})
	AfterEach(func() {
		dept.PagesVisibleToFunc = dept.PagesVisibleTo
		dept.SetPagePermissionsFunc = dept.SetPagePermissions
		dept.PermissionMatrixFunc = dept.PermissionMatrix
	})

	Describe("handleQueryUserPermissions", func() {
		It("should return the visible pages", func() {
			dept.PagesVisibleToFunc = func(s *session.Session) ([]dept.Page, error) {
				return []dept.Page{dept.PageHome, dept.PageTasks}, nil
			}

			req := httptest.NewRequest(http.MethodGet, dept.PathUserPermissions, nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"pages":["home","tasks"]}`))
		})

		It("should return 401 when evaluation says unauthenticated", func() {
			dept.PagesVisibleToFunc = func(s *session.Session) ([]dept.Page, error) {
				return nil, bizerror.ErrUnauthenticated
			}

			req := httptest.NewRequest(http.MethodGet, dept.PathUserPermissions, nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusUnauthorized))
			Expect(body).To(MatchJSON(`{"code":"common.unauthenticated","message":"unauthenticated","data":null}`))
		})
	})

	Describe("handleSetPagePermissions", func() {
		It("should pass the batch through and report the applied count", func() {
			var payload *dept.PermissionUpdating
			dept.SetPagePermissionsFunc = func(u *dept.PermissionUpdating, s *session.Session) (int, error) {
				payload = u
				return 2, nil
			}

			req := httptest.NewRequest(http.MethodPost, dept.PathPagePermissions, bytes.NewReader([]byte(
				`{"entries":[{"page":"tasks","departmentId":"100","hasAccess":true},`+
					`{"page":"projects","departmentId":"100","hasAccess":false}]}`)))
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"applied":2}`))
			Expect(payload).ToNot(BeNil())
			Expect(len(payload.Entries)).To(Equal(2))
			Expect(payload.Entries[0].Page).To(Equal(dept.PageTasks))
			Expect(payload.Entries[0].HasAccess).To(BeTrue())
		})

		It("should return 400 on a body without entries", func() {
			req := httptest.NewRequest(http.MethodPost, dept.PathPagePermissions, bytes.NewReader([]byte(`{}`)))
			status, _, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("should return 403 when the service refuses", func() {
			dept.SetPagePermissionsFunc = func(u *dept.PermissionUpdating, s *session.Session) (int, error) {
				return 0, bizerror.ErrForbidden
			}

			req := httptest.NewRequest(http.MethodPost, dept.PathPagePermissions, bytes.NewReader([]byte(
				`{"entries":[{"page":"tasks","departmentId":"100","hasAccess":true}]}`)))
			status, _, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusForbidden))
		})
	})

	Describe("handleQueryPermissionMatrix", func() {
		It("should return the matrix", func() {
			dept.PermissionMatrixFunc = func(s *session.Session) (*dept.PermissionMatrixView, error) {
				return &dept.PermissionMatrixView{
					Pages: []dept.Page{dept.PageHome},
					Departments: []dept.DepartmentPermissions{
						{Department: dept.Department{ID: 100, Name: "engineering", Color: "#000000"},
							Pages: map[dept.Page]bool{dept.PageHome: true}},
					},
				}, nil
			}

			req := httptest.NewRequest(http.MethodGet, dept.PathPagePermissions, nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"pages":["home"],"departments":[` +
				`{"department":{"id":"100","name":"engineering","description":"","color":"#000000"},` +
				`"pages":{"home":true}}]}`))
		})
	})
})
