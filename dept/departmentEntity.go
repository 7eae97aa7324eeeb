package dept

import "github.com/fundwit/go-commons/types"

type Department struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description" sql:"type:TEXT"`
	Color       string `json:"color"`
}

type DepartmentCreation struct {
	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description"`
	Color       string `json:"color" binding:"omitempty,startswith=#,len=7"`
}

type DepartmentUpdating struct {
	Name        string `json:"name" binding:"required,lte=200"`
	Description string `json:"description"`
	Color       string `json:"color" binding:"omitempty,startswith=#,len=7"`
}

// PagePermission grants a page to a department. At most one row exists per
// (page, department) pair, absence of a row means no access.
type PagePermission struct {
	ID types.ID `json:"id" gorm:"primary_key"`

	Page         Page     `json:"page" gorm:"unique_index:uni_page_department"`
	DepartmentID types.ID `json:"departmentId" gorm:"unique_index:uni_page_department"`
	HasAccess    bool     `json:"hasAccess"`
}

type PermissionEntry struct {
	Page         Page     `json:"page"`
	DepartmentID types.ID `json:"departmentId"`
	HasAccess    bool     `json:"hasAccess"`
}

type PermissionUpdating struct {
	Entries []PermissionEntry `json:"entries" binding:"required"`
}

type DepartmentPermissions struct {
	Department Department    `json:"department"`
	Pages      map[Page]bool `json:"pages"`
}

type PermissionMatrixView struct {
	Pages       []Page                  `json:"pages"`
	Departments []DepartmentPermissions `json:"departments"`
}

type VisiblePages struct {
	Pages []Page `json:"pages"`
}
