package account_test

import (
	"context"

	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/persistence"
	"buildtrack/session"
	"buildtrack/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("userManage", func() {
	var (
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("buildtrack")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(
			&account.User{}, &account.UserProfile{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	Describe("DisplayName", func() {
		It("should prefer the nickname", func() {
			Expect(account.User{Name: "test", Nickname: "Test"}.DisplayName()).To(Equal("Test"))
			Expect(account.User{Name: "test"}.DisplayName()).To(Equal("test"))
			Expect(account.UserInfo{Name: "test", Nickname: "Test"}.DisplayName()).To(Equal("Test"))
			Expect(account.UserInfo{Name: "test"}.DisplayName()).To(Equal("test"))
		})
	})

	Describe("CreateUser", func() {
		It("should be forbidden to non superusers", func() {
			_, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "123456"},
				testinfra.BuildSecCtx(1))
			Expect(err).To(Equal(bizerror.ErrForbidden))
		})

		It("should create the user together with its profile", func() {
			info, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "123456"},
				testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())
			Expect(info.Name).To(Equal("ann"))
			Expect(info.IsActive).To(BeTrue())

			profiles := []account.UserProfile{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.UserProfile{}).
				Where("user_id = ?", info.ID).Scan(&profiles).Error).To(BeNil())
			Expect(profiles).To(HaveLen(1))
			Expect(profiles[0].DepartmentID).To(BeZero())
		})

		It("should reject duplicated names", func() {
			_, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "123456"},
				testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())

			_, err = account.CreateUser(&account.UserCreation{Name: "ann", Secret: "654321"},
				testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(Equal(bizerror.ErrNameConflict))
		})
	})

	Describe("DeleteUser", func() {
		It("should refuse to delete the calling account", func() {
			Expect(account.DeleteUser(1, testinfra.BuildSuperuserSecCtx(1))).To(Equal(bizerror.ErrSelfDeletion))
		})

		It("should remove the user and its profile", func() {
			info, err := account.CreateUser(&account.UserCreation{Name: "ann", Secret: "123456"},
				testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())

			Expect(account.DeleteUser(info.ID, testinfra.BuildSuperuserSecCtx(1))).To(BeNil())

			users := []account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{}).Scan(&users).Error).To(BeNil())
			Expect(users).To(BeEmpty())
			profiles := []account.UserProfile{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.UserProfile{}).Scan(&profiles).Error).To(BeNil())
			Expect(profiles).To(BeEmpty())
		})
	})

	Describe("UpdateBasicAuthSecret", func() {
		It("should be able to update basic auth secret correctly", func() {
			sec := session.Session{Identity: session.Identity{ID: 1}, Context: context.TODO()}
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(
				&account.User{ID: 1, Name: "aaa", Secret: account.HashSha256("123456")}).Error).To(BeNil())
			Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{OriginalSecret: "234567", NewSecret: "654321"}, &sec)).
				To(Equal(bizerror.ErrInvalidPassword))
			Expect(account.UpdateBasicAuthSecret(&account.BasicAuthUpdating{OriginalSecret: "123456", NewSecret: "654321"}, &sec)).To(BeNil())

			user := account.User{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&account.User{}).
				Where(&account.User{ID: sec.Identity.ID}).First(&user).Error).To(BeNil())
			Expect(user.Secret).To(Equal(account.HashSha256("654321")))
		})
	})

	Describe("DepartmentOf", func() {
		It("should be zero without a profile or assignment", func() {
			departmentId, err := account.DepartmentOf(10, testinfra.BuildSecCtx(10))
			Expect(err).To(BeNil())
			Expect(departmentId).To(BeZero())
		})

		It("should report the assigned department", func() {
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(
				&account.UserProfile{ID: 10, UserID: 10, DepartmentID: 100}).Error).To(BeNil())

			departmentId, err := account.DepartmentOf(10, testinfra.BuildSecCtx(10))
			Expect(err).To(BeNil())
			Expect(departmentId).To(Equal(types.ID(100)))
		})

		It("should batch lookup only assigned users", func() {
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(
				&account.UserProfile{ID: 10, UserID: 10, DepartmentID: 100}).Error).To(BeNil())
			Expect(testDatabase.DS.GormDB(context.TODO()).Save(
				&account.UserProfile{ID: 11, UserID: 11, DepartmentID: 0}).Error).To(BeNil())

			departments, err := account.DepartmentsOf([]types.ID{10, 11, 12}, testinfra.BuildSecCtx(1))
			Expect(err).To(BeNil())
			Expect(departments).To(Equal(map[types.ID]types.ID{10: types.ID(100)}))
		})
	})
})
