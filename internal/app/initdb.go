package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/pkg/common"
)

func (a *Application) checkSuper() {
	const superEmail = "admin@shop.local"
	const defaultPassword = "backoffice"

	hashed, err := bcrypt.GenerateFromPassword([]byte(defaultPassword), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Error("failed to hash default admin password", zap.Error(err))
		return
	}

	var admin domain.SysAdmin
	err = a.gormDB.Where("email = ?", superEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.SysAdmin{
			ID:        common.UUIDint64(),
			Name:      "administrator",
			Email:     superEmail,
			Password:  string(hashed),
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	if strings.TrimSpace(admin.Password) == "" {
		if err := a.gormDB.Model(&domain.SysAdmin{}).Where("id = ?", admin.ID).Updates(map[string]interface{}{
			"password":   string(hashed),
			"updated_at": time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to repair super admin account", zap.Error(err))
			return
		}
		zap.L().Warn("repaired default super admin password", zap.String("email", superEmail))
	}
}

// checkCategories seeds the default catalog categories by name
func (a *Application) checkCategories() {
	defaultCategories := []string{
		"Electronics",
		"Clothing",
		"Books",
		"Home & Garden",
		"Sports",
		"Toys & Games",
		"Mobile Phones",
	}

	for _, name := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", name).Count(&count)
		if count == 0 {
			if err := a.gormDB.Create(&domain.Category{Name: name}).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("name", name), zap.Error(err))
			} else {
				zap.L().Info("initialized default category", zap.String("name", name))
			}
		}
	}
}
