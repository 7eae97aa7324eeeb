package stage

import "github.com/fundwit/go-commons/types"

type ProjectStage struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	ProjectID types.ID `json:"projectId"`
	StatusID  types.ID `json:"statusId"`

	Datetime    types.Timestamp `json:"datetime" sql:"type:DATETIME(6) NOT NULL"`
	AuthorID    types.ID        `json:"authorId"`
	Description string          `json:"description" sql:"type:TEXT"`

	FileKey  string `json:"-"`
	FileName string `json:"fileName"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

// StageResponsible is a membership row of the stage's responsible-user set.
type StageResponsible struct {
	ID      types.ID `json:"id" gorm:"primary_key"`
	StageID types.ID `json:"stageId" gorm:"unique_index:uni_stage_responsible"`
	UserID  types.ID `json:"userId" gorm:"unique_index:uni_stage_responsible"`
}

type StageDetail struct {
	ProjectStage

	ResponsibleUserIDs []types.ID `json:"responsibleUserIds"`
}

type StageCreation struct {
	ProjectID          types.ID        `json:"projectId" binding:"required"`
	StatusID           types.ID        `json:"statusId"`
	Datetime           types.Timestamp `json:"datetime" binding:"required"`
	Description        string          `json:"description"`
	ResponsibleUserIDs []types.ID      `json:"responsibleUserIds"`
}

type StageUpdating struct {
	StatusID           types.ID        `json:"statusId"`
	Datetime           types.Timestamp `json:"datetime" binding:"required"`
	Description        string          `json:"description"`
	ResponsibleUserIDs *[]types.ID     `json:"responsibleUserIds"`
}

type StageQuery struct {
	ProjectID          types.ID `json:"projectId" form:"projectId"`
	ConstructionSiteID types.ID `json:"constructionSiteId" form:"constructionSiteId"`
}
