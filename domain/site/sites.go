package site

import (
	"math"

	"buildtrack/bizerror"
	"buildtrack/dept"
	"buildtrack/domain/project"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

type ConstructionSite struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name        string   `json:"name" binding:"required,lte=200"`
	Description string   `json:"description" sql:"type:TEXT"`
	ManagerID   types.ID `json:"managerId"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

type ConstructionSiteDetail struct {
	ConstructionSite
	CompletionPercentage float64 `json:"completionPercentage"`
}

type SiteCreation struct {
	Name        string   `json:"name" binding:"required,lte=200"`
	Description string   `json:"description"`
	ManagerID   types.ID `json:"managerId"`
}

type SiteUpdating struct {
	Name        string   `json:"name" binding:"required,lte=200"`
	Description string   `json:"description"`
	ManagerID   types.ID `json:"managerId"`
}

var (
	siteIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QuerySitesFunc = QuerySites
	CreateSiteFunc = CreateSite
	UpdateSiteFunc = UpdateSite
	DeleteSiteFunc = DeleteSite
)

// QuerySites lists construction sites with their completion percentage, the
// mean of the member projects' percentages.
func QuerySites(s *session.Session) ([]ConstructionSiteDetail, error) {
	sites := []ConstructionSite{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&ConstructionSite{}).Order("id ASC").Scan(&sites).Error; err != nil {
		return nil, err
	}

	projects, err := project.QueryProjects(project.ProjectQuery{}, s)
	if err != nil {
		return nil, err
	}
	totals := map[types.ID]float64{}
	counts := map[types.ID]int{}
	for _, p := range projects {
		totals[p.ConstructionSiteID] += p.CompletionPercentage
		counts[p.ConstructionSiteID]++
	}

	details := make([]ConstructionSiteDetail, 0, len(sites))
	for _, record := range sites {
		percentage := 0.0
		if counts[record.ID] > 0 {
			percentage = math.Round(totals[record.ID]/float64(counts[record.ID])*100) / 100
		}
		details = append(details, ConstructionSiteDetail{ConstructionSite: record, CompletionPercentage: percentage})
	}
	return details, nil
}

func CreateSite(c *SiteCreation, s *session.Session) (*ConstructionSite, error) {
	granted, err := dept.HasPageAccess(s, dept.PageConstructionSites)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, bizerror.ErrForbidden
	}

	now := types.CurrentTimestamp()
	record := ConstructionSite{ID: misc.NextId(siteIdWorker), Name: c.Name, Description: c.Description,
		ManagerID: c.ManagerID, CreateTime: now, UpdateTime: now}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateSite(id types.ID, c *SiteUpdating, s *session.Session) error {
	granted, err := dept.HasPageAccess(s, dept.PageConstructionSites)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := ConstructionSite{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		return tx.Model(&record).Update(map[string]interface{}{
			"name": c.Name, "description": c.Description, "manager_id": c.ManagerID,
			"update_time": types.CurrentTimestamp(),
		}).Error
	})
}

func DeleteSite(id types.ID, s *session.Session) error {
	granted, err := dept.HasPageAccess(s, dept.PageConstructionSites)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Delete(ConstructionSite{}, "id = ?", id).Error
}
