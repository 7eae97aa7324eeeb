package note

import (
	"github.com/fundwit/go-commons/types"
)

type SheetNote struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name     string   `json:"name"`
	Note     string   `json:"note" gorm:"type:TEXT"`
	SheetID  types.ID `json:"sheetId"`
	AuthorID types.ID `json:"authorId"`

	FileKey  string `json:"-"`
	FileName string `json:"fileName"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
	UpdateTime types.Timestamp `json:"updateTime" sql:"type:DATETIME(6) NOT NULL"`
}

func (r *SheetNote) TableName() string {
	return "sheet_notes"
}

type NoteCreation struct {
	Name    string   `json:"name" binding:"required"`
	Note    string   `json:"note" binding:"required"`
	SheetID types.ID `json:"sheetId" binding:"required"`
}

type NoteUpdating struct {
	Name string `json:"name" binding:"required"`
	Note string `json:"note" binding:"required"`
}

type NoteQuery struct {
	SheetID types.ID `form:"sheetId"`
}
