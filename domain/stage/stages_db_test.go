package stage_test

import (
	"context"
	"time"

	"buildtrack/account"
	"buildtrack/domain/project"
	"buildtrack/domain/stage"
	"buildtrack/persistence"
	"buildtrack/testinfra"

	"github.com/fundwit/go-commons/types"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("stageManage", func() {
	var (
		testDatabase *testinfra.TestDatabase
	)
	BeforeEach(func() {
		testDatabase = testinfra.StartMysqlTestDatabase("buildtrack")
		persistence.ActiveDataSourceManager = testDatabase.DS
		Expect(testDatabase.DS.GormDB(context.TODO()).AutoMigrate(
			&stage.ProjectStage{}, &stage.StageResponsible{},
			&account.UserProfile{}, &project.Project{}).Error).To(BeNil())
	})
	AfterEach(func() {
		testinfra.StopMysqlTestDatabase(testDatabase)
	})

	assignDepartment := func(uid, departmentId types.ID) {
		Expect(testDatabase.DS.GormDB(context.TODO()).Save(
			&account.UserProfile{ID: uid, UserID: uid, DepartmentID: departmentId}).Error).To(BeNil())
	}
	at := func(day int) types.Timestamp {
		return types.Timestamp(time.Date(2020, 1, day, 0, 0, 0, 0, time.UTC))
	}

	Describe("CreateStage", func() {
		It("should record the author and the responsible set", func() {
			detail, err := stage.CreateStage(&stage.StageCreation{
				ProjectID: 10, Datetime: at(1), Description: "concrete pour",
				ResponsibleUserIDs: []types.ID{20, 21},
			}, testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())
			Expect(detail.AuthorID).To(Equal(types.ID(5)))
			Expect(detail.ResponsibleUserIDs).To(Equal([]types.ID{20, 21}))
		})
	})

	Describe("QueryStages", func() {
		It("should show a department only its own involvement, newest first", func() {
			// author 5 and responsible 20 are both in department 100,
			// author 6 works alone in department 101
			assignDepartment(5, 100)
			assignDepartment(20, 100)
			assignDepartment(6, 101)
			assignDepartment(30, 100)

			first, err := stage.CreateStage(&stage.StageCreation{
				ProjectID: 10, Datetime: at(1), ResponsibleUserIDs: []types.ID{20},
			}, testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())
			second, err := stage.CreateStage(&stage.StageCreation{
				ProjectID: 10, Datetime: at(2),
			}, testinfra.BuildSecCtx(6))
			Expect(err).To(BeNil())

			// user 30 shares department 100 with the first stage's people
			visible, err := stage.QueryStages(stage.StageQuery{}, testinfra.BuildSecCtx(30))
			Expect(err).To(BeNil())
			Expect(visible).To(HaveLen(1))
			Expect(visible[0].ID).To(Equal(first.ID))

			// user 6 authored the second stage only
			visible, err = stage.QueryStages(stage.StageQuery{}, testinfra.BuildSecCtx(6))
			Expect(err).To(BeNil())
			Expect(visible).To(HaveLen(1))
			Expect(visible[0].ID).To(Equal(second.ID))

			// a superuser sees everything, newest first
			visible, err = stage.QueryStages(stage.StageQuery{}, testinfra.BuildSuperuserSecCtx(1))
			Expect(err).To(BeNil())
			Expect(visible).To(HaveLen(2))
			Expect(visible[0].ID).To(Equal(second.ID))
			Expect(visible[1].ID).To(Equal(first.ID))
		})

		It("should apply project filter after visibility", func() {
			assignDepartment(5, 100)

			mine, err := stage.CreateStage(&stage.StageCreation{ProjectID: 10, Datetime: at(1)},
				testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())
			_, err = stage.CreateStage(&stage.StageCreation{ProjectID: 11, Datetime: at(2)},
				testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())

			visible, err := stage.QueryStages(stage.StageQuery{ProjectID: 10}, testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())
			Expect(visible).To(HaveLen(1))
			Expect(visible[0].ID).To(Equal(mine.ID))
		})
	})

	Describe("UpdateStage", func() {
		It("should replace the responsible set when one is supplied", func() {
			detail, err := stage.CreateStage(&stage.StageCreation{
				ProjectID: 10, Datetime: at(1), ResponsibleUserIDs: []types.ID{20},
			}, testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())

			responsibles := []types.ID{21, 22}
			Expect(stage.UpdateStage(detail.ID, &stage.StageUpdating{
				Datetime: at(3), ResponsibleUserIDs: &responsibles,
			}, testinfra.BuildSecCtx(5))).To(BeNil())

			rows := []stage.StageResponsible{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&stage.StageResponsible{}).
				Where("stage_id = ?", detail.ID).Order("user_id ASC").Scan(&rows).Error).To(BeNil())
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].UserID).To(Equal(types.ID(21)))
			Expect(rows[1].UserID).To(Equal(types.ID(22)))
		})
	})

	Describe("DeleteStage", func() {
		It("should remove the stage together with its responsible rows", func() {
			detail, err := stage.CreateStage(&stage.StageCreation{
				ProjectID: 10, Datetime: at(1), ResponsibleUserIDs: []types.ID{20},
			}, testinfra.BuildSecCtx(5))
			Expect(err).To(BeNil())

			Expect(stage.DeleteStage(detail.ID, testinfra.BuildSecCtx(5))).To(BeNil())

			rows := []stage.StageResponsible{}
			Expect(testDatabase.DS.GormDB(context.TODO()).Model(&stage.StageResponsible{}).Scan(&rows).Error).To(BeNil())
			Expect(rows).To(BeEmpty())
		})
	})
})
