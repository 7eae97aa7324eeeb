package dept

import (
	"buildtrack/account"
	"buildtrack/bizerror"
	"buildtrack/event"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const defaultDepartmentColor = "#000000"

var (
	deptIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	// DepartmentCleanupFuncs null out department references held by domain
	// records when the department is removed. Record-owning packages append
	// their own cleanup here.
	DepartmentCleanupFuncs []func(departmentId types.ID, tx *gorm.DB) error

	QueryDepartmentsFunc = QueryDepartments
	CreateDepartmentFunc = CreateDepartment
	UpdateDepartmentFunc = UpdateDepartment
	DeleteDepartmentFunc = DeleteDepartment
)

func QueryDepartments(s *session.Session) ([]Department, error) {
	departments := []Department{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&Department{}).Order("name ASC").Scan(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

func CreateDepartment(c *DepartmentCreation, s *session.Session) (*Department, error) {
	granted, err := HasPageAccess(s, PageDepartmentsList)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, bizerror.ErrForbidden
	}

	color := c.Color
	if color == "" {
		color = defaultDepartmentColor
	}
	record := Department{ID: misc.NextId(deptIdWorker), Name: c.Name, Description: c.Description, Color: color}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		return event.CreateEvent("department", record.ID, record.Name,
			event.EventCategoryCreated, nil, &s.Identity, tx)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func UpdateDepartment(id types.ID, c *DepartmentUpdating, s *session.Session) error {
	granted, err := HasPageAccess(s, PageDepartmentsList)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := Department{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"name": c.Name, "description": c.Description}
		if c.Color != "" {
			changes["color"] = c.Color
		}
		if err := tx.Model(&record).Update(changes).Error; err != nil {
			return err
		}
		return event.CreateEvent("department", id, c.Name, event.EventCategoryPropertyUpdated,
			[]event.UpdatedProperty{{PropertyName: "name", OldValue: record.Name, NewValue: c.Name}},
			&s.Identity, tx)
	})
}

// DeleteDepartment removes the department and everything configured for it:
// its permission rows go first, then member assignments and domain record
// references are turned back to unassigned. Users and records themselves are
// never deleted.
func DeleteDepartment(id types.ID, s *session.Session) error {
	granted, err := HasPageAccess(s, PageDepartmentsList)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := Department{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		if err := tx.Delete(PagePermission{}, "department_id = ?", id).Error; err != nil {
			return err
		}
		if err := account.UnassignDepartment(tx, id); err != nil {
			return err
		}
		for _, cleanup := range DepartmentCleanupFuncs {
			if err := cleanup(id, tx); err != nil {
				return err
			}
		}
		if err := tx.Delete(Department{}, "id = ?", id).Error; err != nil {
			return err
		}
		return event.CreateEvent("department", id, record.Name,
			event.EventCategoryDeleted, nil, &s.Identity, tx)
	})
}
