package sheet

import (
	"sort"

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

var (
	sheetIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QuerySheetsFunc = QuerySheets
	CreateSheetFunc = CreateSheet
	UpdateSheetFunc = UpdateSheet
	DeleteSheetFunc = DeleteSheet
)

func init() {
	project.SheetCompletionsFunc = SheetCompletions

	dept.DepartmentCleanupFuncs = append(dept.DepartmentCleanupFuncs,
		func(departmentId types.ID, tx *gorm.DB) error {
			return tx.Model(&ProjectSheet{}).Where("responsible_department_id = ?", departmentId).
				Update("responsible_department_id", 0).Error
		})
}

// FilterSheets narrows candidates by responsible department, project,
// project set (site scope) and completion flag. A zero filter value means
// no constraint on that axis.
func FilterSheets(candidates []ProjectSheet, f SheetFilter) []ProjectSheet {
	allowedProjects := map[types.ID]bool{}
	for _, id := range f.ProjectIDs {
		allowedProjects[id] = true
	}

	result := []ProjectSheet{}
	for _, record := range candidates {
		if f.DepartmentID != 0 && record.ResponsibleDepartmentID != f.DepartmentID {
			continue
		}
		if f.ProjectID != 0 && record.ProjectID != f.ProjectID {
			continue
		}
		if f.ProjectIDs != nil && !allowedProjects[record.ProjectID] {
			continue
		}
		if f.IsCompleted != nil && record.IsCompleted != *f.IsCompleted {
			continue
		}
		result = append(result, record)
	}
	return result
}

// SortSheets establishes the user-facing list order: incomplete sheets
// first, then by responsible-department name, then by sheet name, ties
// broken by record id so the order is deterministic.
func SortSheets(sheets []ProjectSheet, departmentNames map[types.ID]string) {
	sort.SliceStable(sheets, func(i, j int) bool {
		a, b := sheets[i], sheets[j]
		if a.IsCompleted != b.IsCompleted {
			return !a.IsCompleted
		}
		an, bn := departmentNames[a.ResponsibleDepartmentID], departmentNames[b.ResponsibleDepartmentID]
		if an != bn {
			return an < bn
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
}

func QuerySheets(q SheetQuery, s *session.Session) ([]SheetDetail, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	candidates := []ProjectSheet{}
	if err := db.Model(&ProjectSheet{}).Scan(&candidates).Error; err != nil {
		return nil, err
	}

	filter := SheetFilter{DepartmentID: q.DepartmentID, ProjectID: q.ProjectID, IsCompleted: q.IsCompleted}
	if q.ConstructionSiteID != 0 {
		projectIds, err := project.ProjectIDsBySite(q.ConstructionSiteID, s)
		if err != nil {
			return nil, err
		}
		if projectIds == nil {
			projectIds = []types.ID{}
		}
		filter.ProjectIDs = projectIds
	}
	records := FilterSheets(candidates, filter)

	departments, err := dept.QueryDepartments(s)
	if err != nil {
		return nil, err
	}
	departmentNames := map[types.ID]string{}
	for _, d := range departments {
		departmentNames[d.ID] = d.Name
	}
	SortSheets(records, departmentNames)

	executors, err := queryExecutors(db, records)
	if err != nil {
		return nil, err
	}

	details := make([]SheetDetail, 0, len(records))
	for _, record := range records {
		ids := executors[record.ID]
		if ids == nil {
			ids = []types.ID{}
		}
		details = append(details, SheetDetail{ProjectSheet: record,
			ExecutorIDs: ids, ResponsibleDepartmentName: departmentNames[record.ResponsibleDepartmentID]})
	}
	return details, nil
}

func queryExecutors(db *gorm.DB, sheets []ProjectSheet) (map[types.ID][]types.ID, error) {
	result := map[types.ID][]types.ID{}
	if len(sheets) == 0 {
		return result, nil
	}
	ids := make([]types.ID, 0, len(sheets))
	for _, record := range sheets {
		ids = append(ids, record.ID)
	}
	var rows []SheetExecutor
	if err := db.Model(&SheetExecutor{}).Where("sheet_id IN (?)", ids).
		Order("user_id ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.SheetID] = append(result[row.SheetID], row.UserID)
	}
	return result, nil
}

func CreateSheet(c *SheetCreation, s *session.Session) (*SheetDetail, error) {
	now := types.CurrentTimestamp()
	record := ProjectSheet{ID: misc.NextId(sheetIdWorker), Name: c.Name, Description: c.Description,
		ProjectID: c.ProjectID, StatusID: c.StatusID, ResponsibleDepartmentID: c.ResponsibleDepartmentID,
		CreatedBy: s.Identity.ID, CreateTime: now, UpdateTime: now}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		for _, uid := range c.ExecutorIDs {
			if err := tx.Create(&SheetExecutor{ID: misc.NextId(sheetIdWorker), SheetID: record.ID, UserID: uid}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := c.ExecutorIDs
	if ids == nil {
		ids = []types.ID{}
	}
	return &SheetDetail{ProjectSheet: record, ExecutorIDs: ids}, nil
}

func UpdateSheet(id types.ID, c *SheetUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := ProjectSheet{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}

		changes := map[string]interface{}{
			"name": c.Name, "description": c.Description, "status_id": c.StatusID,
			"responsible_department_id": c.ResponsibleDepartmentID,
			"update_time":               types.CurrentTimestamp(),
		}
		if c.IsCompleted != nil && *c.IsCompleted != record.IsCompleted {
			// only the sheet's initiator may flip the completion flag
			if record.CreatedBy != 0 && record.CreatedBy != s.Identity.ID && !s.Identity.IsSuperuser {
				return bizerror.ErrForbidden
			}
			changes["is_completed"] = *c.IsCompleted
			if *c.IsCompleted {
				changes["completed_at"] = types.CurrentTimestamp()
			} else {
				changes["completed_at"] = nil
			}
		}
		if err := tx.Model(&record).Update(changes).Error; err != nil {
			return err
		}

		if c.ExecutorIDs != nil {
			if err := tx.Delete(SheetExecutor{}, "sheet_id = ?", id).Error; err != nil {
				return err
			}
			for _, uid := range *c.ExecutorIDs {
				if err := tx.Create(&SheetExecutor{ID: misc.NextId(sheetIdWorker), SheetID: id, UserID: uid}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func DeleteSheet(id types.ID, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(ProjectSheet{}, "id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(SheetExecutor{}, "sheet_id = ?", id).Error
	})
}

// SheetCompletions reports per-project sheet totals for completion
// percentage computation.
func SheetCompletions(projectIds []types.ID, s *session.Session) (map[types.ID]project.SheetCompletion, error) {
	result := map[types.ID]project.SheetCompletion{}
	if len(projectIds) == 0 {
		return result, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var rows []ProjectSheet
	if err := db.Model(&ProjectSheet{}).Where("project_id IN (?)", projectIds).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		c := result[row.ProjectID]
		c.Total++
		if row.IsCompleted {
			c.Completed++
		}
		result[row.ProjectID] = c
	}
	return result, nil
}
