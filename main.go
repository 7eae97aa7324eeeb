package main

import (
	"net/http"

	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/client/s3"
	"buildtrack/dashboard"
	"buildtrack/dept"
	"buildtrack/domain/note"
	"buildtrack/domain/project"
	"buildtrack/domain/sheet"
	"buildtrack/domain/site"
	"buildtrack/domain/stage"
	"buildtrack/domain/status"
	"buildtrack/event"
	"buildtrack/infra/tracing"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"
	"buildtrack/sessions"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	logrus.Infoln("service start")

	tracingCloser := tracing.Bootstrap(misc.GetServiceName())
	defer tracingCloser.Close()

	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		logrus.Fatalf("parse database config failed %v\n", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			logrus.Fatalf("failed to prepare database %v\n", err)
		}
	}

	// connect database
	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		logrus.Fatalf("database conneciton failed %v\n", err)
	}
	defer ds.Stop()
	persistence.ActiveDataSourceManager = ds

	// database migration (race condition)
	err = ds.GormDB(nil).AutoMigrate(
		&account.User{}, &account.UserProfile{},
		&dept.Department{}, &dept.PagePermission{},
		&status.Status{},
		&site.ConstructionSite{},
		&project.Project{},
		&sheet.ProjectSheet{}, &sheet.SheetExecutor{},
		&stage.ProjectStage{}, &stage.StageResponsible{},
		&note.SheetNote{},
		&event.EventRecord{},
	).Error
	if err != nil {
		logrus.Fatalf("database migration failed %v\n", err)
	}

	if err := account.DefaultSecurityConfiguration(); err != nil {
		logrus.Fatalf("failed to prepare default security configuration %v\n", err)
	}

	s3.Bootstrap()

	engine := gin.Default()
	engine.Use(tracing.TracingIngress(), bizerror.ErrorHandling())
	engine.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, misc.GetServiceName())
	})

	sessions.RegisterSessionsHandler(engine)

	authFilter := session.JwtAuthFilter()
	account.RegisterUsersHandler(engine, authFilter)
	dept.RegisterDepartmentsHandler(engine, authFilter)
	dept.RegisterPermissionsHandler(engine, authFilter)
	status.RegisterStatusesRestAPI(engine, authFilter)
	site.RegisterSitesRestAPI(engine, authFilter)
	project.RegisterProjectsRestAPI(engine, authFilter)
	sheet.RegisterSheetsRestAPI(engine, authFilter)
	stage.RegisterStagesRestAPI(engine, authFilter)
	note.RegisterNotesRestAPI(engine, authFilter)
	dashboard.RegisterDashboardRestAPI(engine, authFilter)

	err = engine.Run(":80")
	if err != nil {
		panic(err)
	}
}
