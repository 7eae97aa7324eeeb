package status

import (
	"buildtrack/bizerror"
	"buildtrack/dept"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

const (
	StatusTypeSheet = "sheet"
	StatusTypeStage = "stage"
)

// Status is a configurable state tag for project sheets and project stages,
// scoped by status type so the two kinds keep separate name spaces.
type Status struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name       string `json:"name" gorm:"unique_index:uni_status_name_type"`
	Color      string `json:"color"`
	StatusType string `json:"statusType" gorm:"unique_index:uni_status_name_type"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type StatusCreation struct {
	Name       string `json:"name" binding:"required,lte=100"`
	Color      string `json:"color" binding:"omitempty,startswith=#,len=7"`
	StatusType string `json:"statusType" binding:"required,oneof=sheet stage"`
}

type StatusQuery struct {
	StatusType string `json:"statusType" form:"statusType" binding:"omitempty,oneof=sheet stage"`
}

var (
	statusIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryStatusesFunc = QueryStatuses
	CreateStatusFunc  = CreateStatus
	DeleteStatusFunc  = DeleteStatus
)

func QueryStatuses(q StatusQuery, s *session.Session) ([]Status, error) {
	statuses := []Status{}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	query := db.Model(&Status{}).Order("create_time ASC")
	if q.StatusType != "" {
		query = query.Where("status_type = ?", q.StatusType)
	}
	if err := query.Scan(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

func CreateStatus(c StatusCreation, s *session.Session) (*Status, error) {
	granted, err := dept.HasPageAccess(s, dept.PageStatusesList)
	if err != nil {
		return nil, err
	}
	if !granted {
		return nil, bizerror.ErrForbidden
	}

	color := c.Color
	if color == "" {
		color = "#000000"
	}
	record := Status{ID: misc.NextId(statusIdWorker), Name: c.Name, Color: color,
		StatusType: c.StatusType, CreateTime: types.CurrentTimestamp()}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func DeleteStatus(id types.ID, s *session.Session) error {
	granted, err := dept.HasPageAccess(s, dept.PageStatusesList)
	if err != nil {
		return err
	}
	if !granted {
		return bizerror.ErrForbidden
	}

	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	return db.Transaction(func(tx *gorm.DB) error {
		record := Status{ID: id}
		if err := tx.Where(&record).First(&record).Error; err != nil {
			return err
		}
		return tx.Delete(Status{}, "id = ?", id).Error
	})
}
