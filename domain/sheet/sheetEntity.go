package sheet

import "github.com/fundwit/go-commons/types"

type ProjectSheet struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name        string   `json:"name"`
	Description string   `json:"description" sql:"type:TEXT"`
	ProjectID   types.ID `json:"projectId"`
	StatusID    types.ID `json:"statusId"`

	IsCompleted bool            `json:"isCompleted"`
	CompletedAt types.Timestamp `json:"completedAt" sql:"type:DATETIME(6) NULL"`

	FileKey  string `json:"-"`
	FileName string `json:"fileName"`

	ResponsibleDepartmentID types.ID `json:"responsibleDepartmentId"`
	CreatedBy               types.ID `json:"createdBy"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

// SheetExecutor is a membership row of the sheet's executor set.
type SheetExecutor struct {
	ID      types.ID `json:"id" gorm:"primary_key"`
	SheetID types.ID `json:"sheetId" gorm:"unique_index:uni_sheet_executor"`
	UserID  types.ID `json:"userId" gorm:"unique_index:uni_sheet_executor"`
}

type SheetDetail struct {
	ProjectSheet

	ExecutorIDs               []types.ID `json:"executorIds"`
	ResponsibleDepartmentName string     `json:"responsibleDepartmentName"`
}

type SheetCreation struct {
	Name                    string     `json:"name" binding:"required,lte=200"`
	Description             string     `json:"description"`
	ProjectID               types.ID   `json:"projectId" binding:"required"`
	StatusID                types.ID   `json:"statusId"`
	ResponsibleDepartmentID types.ID   `json:"responsibleDepartmentId"`
	ExecutorIDs             []types.ID `json:"executorIds"`
}

type SheetUpdating struct {
	Name                    string      `json:"name" binding:"required,lte=200"`
	Description             string      `json:"description"`
	StatusID                types.ID    `json:"statusId"`
	ResponsibleDepartmentID types.ID    `json:"responsibleDepartmentId"`
	IsCompleted             *bool       `json:"isCompleted"`
	ExecutorIDs             *[]types.ID `json:"executorIds"`
}

type SheetQuery struct {
	ProjectID          types.ID `json:"projectId" form:"projectId"`
	ConstructionSiteID types.ID `json:"constructionSiteId" form:"constructionSiteId"`
	DepartmentID       types.ID `json:"departmentId" form:"departmentId"`
	IsCompleted        *bool    `json:"isCompleted" form:"isCompleted"`
}

// SheetFilter is the resolved form of SheetQuery: the construction-site
// scope is already expanded to the site's project ids.
type SheetFilter struct {
	DepartmentID types.ID
	ProjectID    types.ID
	ProjectIDs   []types.ID
	IsCompleted  *bool
}
