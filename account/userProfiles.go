package account

import (
	"buildtrack/bizerror"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	QueryUserProfilesFunc    = QueryUserProfiles
	UpdateUserDepartmentFunc = UpdateUserDepartment
)

func QueryUserProfiles(s *session.Session) (*[]UserProfile, error) {
	var profiles []UserProfile
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&UserProfile{}).Order("user_id ASC").Scan(&profiles).Error; err != nil {
		return nil, err
	}
	return &profiles, nil
}

// UpdateUserDepartment is the only path for changing a user's department
// assignment. The change is effective for the next permission evaluation,
// department membership is never cached.
func UpdateUserDepartment(userId types.ID, c *UserDepartmentUpdating, s *session.Session) error {
	if !s.Identity.IsSuperuser {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		profile := UserProfile{}
		if err := tx.Where("user_id = ?", userId).First(&profile).Error; err != nil {
			return err
		}
		return tx.Model(&UserProfile{}).Where("user_id = ?", userId).
			Update("department_id", c.DepartmentID).Error
	})
}

// DepartmentOf reads the user's current department id, zero when unassigned
// or when the user has no profile row at all.
func DepartmentOf(uid types.ID, s *session.Session) (types.ID, error) {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	profile := UserProfile{}
	if err := db.Where("user_id = ?", uid).First(&profile).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return profile.DepartmentID, nil
}

func DepartmentsOf(uids []types.ID, s *session.Session) (map[types.ID]types.ID, error) {
	result := map[types.ID]types.ID{}
	if len(uids) == 0 {
		return result, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var profiles []UserProfile
	if err := db.Model(&UserProfile{}).Where("user_id IN (?)", uids).Scan(&profiles).Error; err != nil {
		return nil, err
	}
	for _, p := range profiles {
		if p.DepartmentID != 0 {
			result[p.UserID] = p.DepartmentID
		}
	}
	return result, nil
}

// UnassignDepartment turns members of the given department back into
// departmentless users. Called when the department itself is removed.
func UnassignDepartment(tx *gorm.DB, departmentId types.ID) error {
	return tx.Model(&UserProfile{}).Where("department_id = ?", departmentId).
		Update("department_id", 0).Error
}
