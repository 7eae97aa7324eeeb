package dept_test

import (
	"context"

	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/dept"
	"buildtrack/event"
	"buildtrack/persistence"
	"buildtrack/session"
	"buildtrack/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("pagePermissions", func() {
	var (
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("buildtrack")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(
			&account.User{}, &account.UserProfile{},
			&dept.Department{}, &dept.PagePermission{},
			&event.EventRecord{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	assignDepartment := func(uid, departmentId types.ID) {
		Expect(testDatabase.DS.GormDB(context.TODO()).Save(
			&account.UserProfile{ID: uid, UserID: uid, DepartmentID: departmentId}).Error).To(BeNil())
	}
	createDepartment := func(id types.ID, name string) {
		Expect(testDatabase.DS.GormDB(context.TODO()).Save(
			&dept.Department{ID: id, Name: name, Color: "#000000"}).Error).To(BeNil())
	}
	grant := func(id, departmentId types.ID, page dept.Page, hasAccess bool) {
		Expect(testDatabase.DS.GormDB(context.TODO()).Save(
			&dept.PagePermission{ID: id, Page: page, DepartmentID: departmentId, HasAccess: hasAccess}).Error).To(BeNil())
	}

	Describe("PagesVisibleTo", func() {
		It("should reject unauthenticated callers", func() {
			_, err := dept.PagesVisibleTo(nil)
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))

			_, err = dept.PagesVisibleTo(&session.Session{Context: context.TODO()})
			Expect(err).To(Equal(bizerror.ErrUnauthenticated))
		})

		It("should return every page for a superuser without any permission rows", func() {
			pages, err := dept.PagesVisibleTo(testinfra.BuildSuperuserSecCtx(10))
			Expect(err).To(BeNil())
			Expect(pages).To(Equal(dept.AllPages))
		})

		It("should return only home for a user without a department", func() {
			pages, err := dept.PagesVisibleTo(testinfra.BuildSecCtx(10))
			Expect(err).To(BeNil())
			Expect(pages).To(Equal([]dept.Page{dept.PageHome}))

			assignDepartment(11, 0)
			pages, err = dept.PagesVisibleTo(testinfra.BuildSecCtx(11))
			Expect(err).To(BeNil())
			Expect(pages).To(Equal([]dept.Page{dept.PageHome}))
		})

		It("should return home plus granted pages in page order", func() {
			createDepartment(100, "engineering")
			assignDepartment(10, 100)
			grant(1, 100, dept.PageSettings, true)
			grant(2, 100, dept.PageTasks, true)
			grant(3, 100, dept.PageProjects, false)

			pages, err := dept.PagesVisibleTo(testinfra.BuildSecCtx(10))
			Expect(err).To(BeNil())
			Expect(pages).To(Equal([]dept.Page{dept.PageHome, dept.PageTasks, dept.PageSettings}))
		})
	})

	Describe("HasPageAccess", func() {
		It("should deny without a row", func() {
			createDepartment(100, "engineering")
			assignDepartment(10, 100)

			granted, err := dept.HasPageAccess(testinfra.BuildSecCtx(10), dept.PageTasks)
			Expect(err).To(BeNil())
			Expect(granted).To(BeFalse())
		})

		It("should always grant home to authenticated users", func() {
			granted, err := dept.HasPageAccess(testinfra.BuildSecCtx(10), dept.PageHome)
			Expect(err).To(BeNil())
			Expect(granted).To(BeTrue())
		})

		It("should grant everything to superusers", func() {
			for _, page := range dept.AllPages {
				granted, err := dept.HasPageAccess(testinfra.BuildSuperuserSecCtx(10), page)
				Expect(err).To(BeNil())
				Expect(granted).To(BeTrue())
			}
		})

		It("should deny unauthenticated callers without error", func() {
			granted, err := dept.HasPageAccess(nil, dept.PageHome)
			Expect(err).To(BeNil())
			Expect(granted).To(BeFalse())
		})

		It("should deny departmentless users on non-home pages", func() {
			granted, err := dept.HasPageAccess(testinfra.BuildSecCtx(10), dept.PageTasks)
			Expect(err).To(BeNil())
			Expect(granted).To(BeFalse())
		})

		It("should honor an explicit false row", func() {
			createDepartment(100, "engineering")
			assignDepartment(10, 100)
			grant(1, 100, dept.PageTasks, false)

			granted, err := dept.HasPageAccess(testinfra.BuildSecCtx(10), dept.PageTasks)
			Expect(err).To(BeNil())
			Expect(granted).To(BeFalse())
		})
	})

	Describe("SetPagePermissions", func() {
		It("should reject callers without settings access", func() {
			createDepartment(100, "engineering")
			assignDepartment(10, 100)

			_, err := dept.SetPagePermissions(&dept.PermissionUpdating{Entries: []dept.PermissionEntry{
				{Page: dept.PageTasks, DepartmentID: 100, HasAccess: true},
			}}, testinfra.BuildSecCtx(10))
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})

		It("should apply valid entries and skip bad ones", func() {
			createDepartment(100, "engineering")

			applied, err := dept.SetPagePermissions(&dept.PermissionUpdating{Entries: []dept.PermissionEntry{
				{Page: dept.PageTasks, DepartmentID: 100, HasAccess: true},
				{Page: dept.Page("reports"), DepartmentID: 100, HasAccess: true},
				{Page: dept.PageProjects, DepartmentID: 999, HasAccess: true},
				{Page: dept.PageSettings, DepartmentID: 0, HasAccess: true},
			}}, testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())
			Expect(applied).To(Equal(1))

			rows := []dept.PagePermission{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&dept.PagePermission{}).Scan(&rows).Error).To(BeNil())
			Expect(len(rows)).To(Equal(1))
			Expect(rows[0].Page).To(Equal(dept.PageTasks))
			Expect(rows[0].HasAccess).To(BeTrue())
		})

		It("should upsert instead of duplicating rows", func() {
			createDepartment(100, "engineering")

			updating := &dept.PermissionUpdating{Entries: []dept.PermissionEntry{
				{Page: dept.PageTasks, DepartmentID: 100, HasAccess: true},
			}}
			applied, err := dept.SetPagePermissions(updating, testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())
			Expect(applied).To(Equal(1))

			updating.Entries[0].HasAccess = false
			applied, err = dept.SetPagePermissions(updating, testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())
			Expect(applied).To(Equal(1))

			rows := []dept.PagePermission{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&dept.PagePermission{}).Scan(&rows).Error).To(BeNil())
			Expect(len(rows)).To(Equal(1))
			Expect(rows[0].HasAccess).To(BeFalse())
		})

		It("should round trip a grant and a revoke", func() {
			createDepartment(100, "engineering")
			assignDepartment(10, 100)
			viewer := testinfra.BuildSecCtx(10)

			granted, err := dept.HasPageAccess(viewer, dept.PageTasks)
			Expect(err).To(BeNil())
			Expect(granted).To(BeFalse())

			_, err = dept.SetPagePermissions(&dept.PermissionUpdating{Entries: []dept.PermissionEntry{
				{Page: dept.PageTasks, DepartmentID: 100, HasAccess: true},
			}}, testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())

			granted, err = dept.HasPageAccess(viewer, dept.PageTasks)
			Expect(err).To(BeNil())
			Expect(granted).To(BeTrue())

			_, err = dept.SetPagePermissions(&dept.PermissionUpdating{Entries: []dept.PermissionEntry{
				{Page: dept.PageTasks, DepartmentID: 100, HasAccess: false},
			}}, testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())

			granted, err = dept.HasPageAccess(viewer, dept.PageTasks)
			Expect(err).To(BeNil())
			Expect(granted).To(BeFalse())
		})
	})

	Describe("PermissionMatrix", func() {
		It("should reject callers without settings access", func() {
			_, err := dept.PermissionMatrix(testinfra.BuildSecCtx(10))
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})

		It("should be dense over pages and departments", func() {
			createDepartment(100, "engineering")
			createDepartment(101, "finance")
			grant(1, 100, dept.PageTasks, true)

			view, err := dept.PermissionMatrix(testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())
			Expect(view.Pages).To(Equal(dept.AllPages))
			Expect(len(view.Departments)).To(Equal(2))
			for _, departmentView := range view.Departments {
				Expect(len(departmentView.Pages)).To(Equal(len(dept.AllPages)))
			}

			Expect(view.Departments[0].Department.Name).To(Equal("engineering"))
			Expect(view.Departments[0].Pages[dept.PageTasks]).To(BeTrue())
			Expect(view.Departments[0].Pages[dept.PageProjects]).To(BeFalse())
			Expect(view.Departments[1].Pages[dept.PageTasks]).To(BeFalse())
		})
	})

	Describe("DeleteDepartment", func() {
		It("should remove permission rows and unassign members", func() {
			createDepartment(100, "engineering")
			assignDepartment(10, 100)
			grant(1, 100, dept.PageTasks, true)

			Expect(dept.DeleteDepartment(100, testinfra.BuildSuperuserSecCtx(1))).To(BeNil())

			rows := []dept.PagePermission{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&dept.PagePermission{}).Scan(&rows).Error).To(BeNil())
			Expect(rows).To(BeEmpty())

			departmentId, err := account.DepartmentOf(10, testinfra.BuildSecCtx(10))
			Expect(err).To(BeNil())
			Expect(departmentId).To(BeZero())
		})
	})
})
