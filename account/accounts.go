package account

import (
	"crypto/sha256"
	"encoding/hex"

	"buildtrack/bizerror"
	"buildtrack/misc"
	"buildtrack/persistence"
	"buildtrack/session"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sony/sonyflake"
)

var (
	userIdWorker = sonyflake.NewSonyflake(sonyflake.Settings{})

	QueryUsersFunc            = QueryUsers
	CreateUserFunc            = CreateUser
	UpdateUserFunc            = UpdateUser
	DeleteUserFunc            = DeleteUser
	UpdateUserSecretFunc      = UpdateUserSecret
	UpdateBasicAuthSecretFunc = UpdateBasicAuthSecret
)

func HashSha256(raw string) string {
	h := sha256.New()
	h.Write([]byte(raw))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)
}

func QueryUsers(s *session.Session) (*[]UserInfo, error) {
	var users []UserInfo
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	if err := db.Model(&User{}).Order("id ASC").Scan(&users).Error; err != nil {
		return nil, err
	}
	return &users, nil
}

// CreateUser provisions a user together with its profile row, so that every
// user carries exactly one department assignment record from the start.
func CreateUser(c *UserCreation, s *session.Session) (*UserInfo, error) {
	if !s.Identity.IsSuperuser {
		return nil, bizerror.ErrForbidden
	}

	user := User{ID: misc.NextId(userIdWorker), Name: c.Name, Nickname: c.Nickname,
		Secret: HashSha256(c.Secret), IsSuperuser: c.IsSuperuser, IsActive: true,
		CreateTime: types.CurrentTimestamp()}

	err := persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		existed := User{}
		err := tx.Model(&User{}).Where(&User{Name: c.Name}).First(&existed).Error
		if err == nil {
			return bizerror.ErrNameConflict
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return tx.Create(&UserProfile{ID: misc.NextId(userIdWorker), UserID: user.ID}).Error
	})
	if err != nil {
		return nil, err
	}
	return &UserInfo{ID: user.ID, Name: user.Name, Nickname: user.Nickname,
		IsSuperuser: user.IsSuperuser, IsActive: user.IsActive, CreateTime: user.CreateTime}, nil
}

func UpdateUser(userId types.ID, c *UserUpdation, s *session.Session) error {
	if !s.Identity.IsSuperuser && userId != s.Identity.ID {
		return bizerror.ErrForbidden
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		user := User{ID: userId}
		if err := tx.Where(&user).First(&user).Error; err != nil {
			return err
		}
		changes := map[string]interface{}{"nickname": c.Nickname}
		if c.IsActive != nil {
			if !s.Identity.IsSuperuser {
				return bizerror.ErrForbidden
			}
			changes["is_active"] = *c.IsActive
		}
		return tx.Model(&user).Update(changes).Error
	})
}

func DeleteUser(userId types.ID, s *session.Session) error {
	if !s.Identity.IsSuperuser {
		return bizerror.ErrForbidden
	}
	if userId == s.Identity.ID {
		return bizerror.ErrSelfDeletion
	}

	return persistence.ActiveDataSourceManager.GormDB(s.Context).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(User{}, "id = ?", userId).Error; err != nil {
			return err
		}
		return tx.Delete(UserProfile{}, "user_id = ?", userId).Error
	})
}

func UpdateUserSecret(userId types.ID, u *SecretUpdating, s *session.Session) error {
	if !s.Identity.IsSuperuser && userId != s.Identity.ID {
		return bizerror.ErrForbidden
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	user := User{ID: userId}
	if err := db.Where(&user).First(&user).Error; err != nil {
		return err
	}
	return db.Model(&user).Update(&User{Secret: HashSha256(u.NewSecret)}).Error
}

func UpdateBasicAuthSecret(u *BasicAuthUpdating, s *session.Session) error {
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	user := User{}
	if err := db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Scan(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return bizerror.ErrInvalidPassword
		}
		return err
	}

	return db.Model(&User{}).Where(&User{ID: s.Identity.ID, Secret: HashSha256(u.OriginalSecret)}).
		Update(&User{Secret: HashSha256(u.NewSecret)}).Error
}

func QueryAccountNames(ids []types.ID, s *session.Session) (map[types.ID]string, error) {
	if len(ids) == 0 {
		return map[types.ID]string{}, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(s.Context)
	var records []UserInfo
	if err := db.Model(&User{}).Where("id IN (?)", ids).Scan(&records).Error; err != nil {
		return nil, err
	}
	result := map[types.ID]string{}
	for _, r := range records {
		result[r.ID] = r.DisplayName()
	}
	return result, nil
}
