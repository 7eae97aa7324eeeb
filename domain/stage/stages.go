package stage

import (
	"sort"

	"buildtrack/account"
	"buildtrack/domain/project"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	stageIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryStagesFunc = QueryStages
	CreateStageFunc = CreateStage
	UpdateStageFunc = UpdateStage
	DeleteStageFunc = DeleteStage
)

// FilterVisibleStages keeps the stages the viewer is entitled to see: the
// viewer is the author, the viewer is among the responsible users, or the
// viewer shares a department with any author or responsible user of the
// stage. departments maps involved user ids onto their current department,
// omitting departmentless users. A stage nobody is involved in stays hidden
// from everybody.
func FilterVisibleStages(viewerId, viewerDepartment types.ID, candidates []StageDetail,
	departments map[types.ID]types.ID) []StageDetail {

	result := []StageDetail{}
	for _, record := range candidates {
		involved := record.ResponsibleUserIDs
		if record.AuthorID != 0 {
			involved = append([]types.ID{record.AuthorID}, involved...)
		}

		visible := false
		for _, uid := range involved {
			if uid == viewerId {
				visible = true
				break
			}
			if viewerDepartment != 0 && departments[uid] == viewerDepartment {
				visible = true
				break
			}
		}
		if visible {
			result = append(result, record)
		}
	}
	return result
}

// QueryStages lists stages the caller may see, newest first. The visibility
// predicate is evaluated before the project and construction-site filters,
// so a query filter can never widen what the caller is entitled to.
func QueryStages(q StageQuery, s *session.Session) ([]StageDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	stages := []ProjectStage{}
	if err := db.Model(&ProjectStage{}).Scan(&stages).Error; err != nil {
		return nil, err
	}
	responsibles, err := queryResponsibles(db, stages)
	if err != nil {
		return nil, err
	}

	details := make([]StageDetail, 0, len(stages))
	for _, record := range stages {
		ids := responsibles[record.ID]
		if ids == nil {
			ids = []types.ID{}
		}
		details = append(details, StageDetail{ProjectStage: record, ResponsibleUserIDs: ids})
	}

	if !s.Identity.IsSuperuser {
		involved := map[types.ID]bool{}
		for _, record := range details {
			if record.AuthorID != 0 {
				involved[record.AuthorID] = true
			}
			for _, uid := range record.ResponsibleUserIDs {
				involved[uid] = true
			}
		}
		uids := make([]types.ID, 0, len(involved))
		for uid := range involved {
			uids = append(uids, uid)
		}
		departments, err := account.DepartmentsOf(uids, s)
		if err != nil {
			return nil, err
		}
		viewerDepartment, err := account.DepartmentOf(s.Identity.ID, s)
		if err != nil {
			return nil, err
		}
		details = FilterVisibleStages(s.Identity.ID, viewerDepartment, details, departments)
	}

	if q.ProjectID != 0 {
		details = filterByProjects(details, []types.ID{q.ProjectID})
	}
	if q.ConstructionSiteID != 0 {
		projectIds, err := project.ProjectIDsBySite(q.ConstructionSiteID, s)
		if err != nil {
			return nil, err
		}
		details = filterByProjects(details, projectIds)
	}

	sort.SliceStable(details, func(i, j int) bool {
		a, b := details[i], details[j]
		if !a.Datetime.Time().Equal(b.Datetime.Time()) {
			return a.Datetime.Time().After(b.Datetime.Time())
		}
		return a.ID < b.ID
	})
	return details, nil
}

func filterByProjects(stages []StageDetail, projectIds []types.ID) []StageDetail {
	allowed := map[types.ID]bool{}
	for _, id := range projectIds {
		allowed[id] = true
	}
	result := []StageDetail{}
	for _, record := range stages {
		if allowed[record.ProjectID] {
			result = append(result, record)
		}
	}
	return result
}

func queryResponsibles(db *gorm.DB, stages []ProjectStage) (map[types.ID][]types.ID, error) {
	result := map[types.ID][]types.ID{}
	if len(stages) == 0 {
		return result, nil
	}
	ids := make([]types.ID, 0, len(stages))
	for _, record := range stages {
		ids = append(ids, record.ID)
	}
	var rows []StageResponsible
	if err := db.Model(&StageResponsible{}).Where("stage_id IN (?)", ids).
		Order("user_id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.StageID] = append(result[row.StageID], row.UserID)
	}
	return result, nil
}

func CreateStage(c *StageCreation, s *session.Session) (*StageDetail, error) {
	record := ProjectStage{ID: misc.NextId(stageIdWorker), ProjectID: c.ProjectID, StatusID: c.StatusID,
		Datetime: c.Datetime, AuthorID: s.Identity.ID, Description: c.Description,
		CreateTime: types.CurrentTimestamp()}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, uid := range c.ResponsibleUserIDs {
			if err := tx.Create(&StageResponsible{ID: misc.NextId(stageIdWorker), StageID: record.ID, UserID: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := c.ResponsibleUserIDs
	if ids == nil {
		ids = []types.ID{}
	}
	return &StageDetail{ProjectStage: record, ResponsibleUserIDs: ids}, nil
}

func UpdateStage(id types.ID, c *StageUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := ProjectStage{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		if err := tx.Model(&record).Update(map[string]interface{}{
			"status_id": c.StatusID, "datetime": c.Datetime, "description": c.Description,
		}).Error; err != nil {
			return err
		}
		if c.ResponsibleUserIDs != nil {
			if err := tx.Delete(StageResponsible{}, "stage_id = ?", id).Error; err != nil {
				return err
			}
			for _, uid := range *c.ResponsibleUserIDs {
				if err := tx.Create(&StageResponsible{ID: misc.NextId(stageIdWorker), StageID: id, UserID: uid}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func DeleteStage(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(ProjectStage{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(StageResponsible{}, "stage_id = ?", id).Error
	})
}
