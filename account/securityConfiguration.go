package account

import (
	"context"
	"errors"
	"os"

	"buildtrack/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// DefaultSecurityConfiguration seeds the initial superuser account so that a
// fresh deployment is administrable before any other user exists.
func DefaultSecurityConfiguration() error {
	db := persistence.ActiveDataSourceManager.GormDB(context.Background())
	return db.Transaction(func(tx *gorm.DB) error {
		admin := User{}
		err := tx.Model(&User{}).Where(&User{ID: 1}).First(&admin).Error
		if err != nil && errors.Is(err, gorm.ErrRecordNotFound) {
			initialAdminPassword := os.ExpandEnv("${INITIAL_ADMIN_PASSWORD}")
			if initialAdminPassword == "" {
				initialAdminPassword = "admin123"
			}
			if err := tx.Save(&User{ID: 1, Name: "admin", Secret: HashSha256(initialAdminPassword),
				IsSuperuser: true, IsActive: true, CreateTime: types.CurrentTimestamp()}).Error; err != nil {
				return err
			}
			return tx.Save(&UserProfile{ID: 1, UserID: 1}).Error
		}
		return err
	})
}
