package adminapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anchorshop/backoffice/internal/domain"
	"github.com/anchorshop/backoffice/internal/webserver"
	"github.com/anchorshop/backoffice/pkg/common"
)

// TokenTTL is the lifetime of an issued bearer token.
const TokenTTL = 24 * time.Hour

type loginPayload struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func registerAuthRoutes() {
	webserver.PubPOST("/login", login)
	webserver.ApiGET("/me", me)
	webserver.ApiPOST("/logout", logout)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login parameters", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	db := GetDB(c)

	var admin domain.SysAdmin
	if err := db.Where("email = ?", payload.Email).First(&admin).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusBadRequest, "AUTH_FAILED", "Email not found. Please try again.", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query admin", err.Error())
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(payload.Password)) != nil {
		return fail(c, http.StatusBadRequest, "AUTH_FAILED", "Invalid email or password.", nil)
	}

	raw := common.GenerateToken()
	now := time.Now()
	err := db.Transaction(func(tx *gorm.DB) error {
		// at most one active token per admin
		if err := tx.Where("admin_id = ?", admin.ID).Delete(&domain.AdminToken{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&domain.AdminToken{
			ID:        common.UUIDint64(),
			AdminID:   admin.ID,
			TokenHash: common.HashToken(raw),
			ExpireAt:  now.Add(TokenTTL),
			CreatedAt: now,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.SysAdmin{}).Where("id = ?", admin.ID).Update("last_login", now).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to issue token", err.Error())
	}

	admin.LastLogin = now
	admin.BearerToken = raw
	writeOprLog(c, admin.Name, "login", "admin logged in")
	return ok(c, echo.Map{"user": admin})
}

func me(c echo.Context) error {
	admin := GetAdmin(c)
	admin.BearerToken, _ = c.Get(webserver.ContextTokenKey).(string)
	return ok(c, echo.Map{"user": admin})
}

func logout(c echo.Context) error {
	admin := GetAdmin(c)
	if err := GetDB(c).Where("admin_id = ?", admin.ID).Delete(&domain.AdminToken{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to revoke token", err.Error())
	}
	writeOprLog(c, admin.Name, "logout", "admin logged out")
	return ok(c, echo.Map{"message": "Logged out success"})
}
