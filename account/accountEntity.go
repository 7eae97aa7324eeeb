package account

import "github.com/fundwit/go-commons/types"

type User struct {
	ID     types.ID `json:"id" gorm:"primary_key"`
	Name   string   `json:"name" gorm:"unique_index:uni_user_name"`
	Secret string   `json:"-"`

	Nickname    string `json:"nickname"`
	IsSuperuser bool   `json:"superuser"`
	IsActive    bool   `json:"active"`

	CreateTime types.Timestamp `json:"createTime" sql:"type:DATETIME(6) NOT NULL"`
}

type UserInfo struct {
	ID          types.ID        `json:"id"`
	Name        string          `json:"name"`
	Nickname    string          `json:"nickname"`
	IsSuperuser bool            `json:"superuser"`
	IsActive    bool            `json:"active"`
	CreateTime  types.Timestamp `json:"createTime"`
}

// UserProfile links a user to at most one department. Each user owns exactly
// one row, created together with the user. DepartmentID zero means the user
// is not assigned to any department.
type UserProfile struct {
	ID           types.ID `json:"id" gorm:"primary_key"`
	UserID       types.ID `json:"userId" gorm:"unique_index:uni_profile_user"`
	DepartmentID types.ID `json:"departmentId"`
}

type UserCreation struct {
	Name        string `json:"name" binding:"required,lte=32"`
	Secret      string `json:"secret" binding:"required,gte=6,lte=32"`
	Nickname    string `json:"nickname" binding:"omitempty,gte=1,lte=32"`
	IsSuperuser bool   `json:"superuser"`
}

type UserUpdation struct {
	Nickname string `json:"nickname" binding:"required,lte=32"`
	IsActive *bool  `json:"active"`
}

type BasicAuthUpdating struct {
	OriginalSecret string `json:"originalSecret"`
	NewSecret      string `json:"newSecret" binding:"required,gte=6,lte=32"`
}

type SecretUpdating struct {
	NewSecret string `json:"newSecret" binding:"required,gte=6,lte=32"`
}

type UserDepartmentUpdating struct {
	DepartmentID types.ID `json:"departmentId"`
}

func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}

func (u UserInfo) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Name
}
