package project

import (
	"math"

	"buildtrack/bizerror"
	"buildtrack/dept"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type Project struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description" sql:"type:TEXT"`
	Code        string `json:"code" gorm:"unique_index:uni_code_cipher"`
	Cipher      string `json:"cipher" gorm:"unique_index:uni_code_cipher"`

	ConstructionSiteID types.ID `json:"constructionSiteId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ProjectDetail struct {
	Project
	CompletionPercentage float64 `json:"completionPercentage"`
}

type ProjectCreation struct {
	Name               string   `json:"name" binding:"required,lte=200"`
	Description        string   `json:"description"`
	Code               string   `json:"code" binding:"required,lte=50"`
	Cipher             string   `json:"cipher" binding:"required,lte=50"`
	ConstructionSiteID types.ID `json:"constructionSiteId" binding:"required"`
}

type ProjectUpdating struct {
	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description"`
}

type ProjectQuery struct {
	ConstructionSiteID types.ID `json:"constructionSiteId" form:"constructionSiteId"`
}

type SheetCompletion struct {
	Total     int
	Completed int
}

var (
	projectIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	// SheetCompletionsFunc reports per-project sheet counts. The sheet
	// package installs the real implementation, the indirection keeps the
	// project package free of a dependency on sheets.
	SheetCompletionsFunc func(projectIds []types.ID, s *session.Session) (map[types.ID]SheetCompletion, error)

	QueryProjectsFunc = QueryProjects
	CreateProjectFunc = CreateProject
	UpdateProjectFunc = UpdateProject
	DeleteProjectFunc = DeleteProject
)

func (c SheetCompletion) Percentage() float64 {
	if c.Total == 0 {
		return 0
	}
	return math.Round(float64(c.Completed)/float64(c.Total)*100*100) / 100
}

func QueryProjects(q ProjectQuery, s *session.Session) ([]ProjectDetail, error) {
	projects := []Project{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&Project{}).Order("id ASC")
	if q.ConstructionSiteID != 0 {
		query = query.Where("construction_site_id = ?", q.ConstructionSiteID)
	}
	if err := query.Scan(&projects).Error; err != nil {
		return nil, err
	}

	ids := make([]types.ID, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	completions := map[types.ID]SheetCompletion{}
	if SheetCompletionsFunc != nil {
		var err error
		completions, err = SheetCompletionsFunc(ids, s)
		if err != nil {
			return nil, err
		}
	}

	details := make([]ProjectDetail, 0, len(projects))
	for _, p := range projects {
		details = append(details, ProjectDetail{Project: p, CompletionPercentage: completions[p.ID].Percentage()})
	}
	return details, nil
}

// ProjectIDsBySite resolves the projects belonging to a construction site,
// used by record filters that scope by site.
func ProjectIDsBySite(siteId types.ID, s *session.Session) ([]types.ID, error) {
	var ids []types.ID
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&Project{}).Where("construction_site_id = ?", siteId).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func CreateProject(c *ProjectCreation, s *session.Session) (*Project, error) {
	granted, err := dept.HasPageAccess(s, dept.PageProjects)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := Project{ID: misc.NextId(projectIdWorker), Name: c.Name, Description: c.Description,
		Code: c.Code, Cipher: c.Cipher, ConstructionSiteID: c.ConstructionSiteID,
		CreateTime: now, UpdateTime: now}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateProject(id types.ID, c *ProjectUpdating, s *session.Session) error {
	granted, err := dept.HasPageAccess(s, dept.PageProjects)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := Project{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		return tx.Model(&record).Update(map[string]interface{}{
			"name": c.Name, "description": c.Description, "update_time": types.CurrentTimestamp(),
		}).Error
	})
}

func DeleteProject(id types.ID, s *session.Session) error {
	granted, err := dept.HasPageAccess(s, dept.PageProjects)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Delete(Project{}, "id = ?", id).Error
}
