package domain

import "time"

// SysAdmin is the back-office operator account. Password holds a bcrypt hash
// and never leaves the server.
type SysAdmin struct {
	ID        int64     `json:"id,string" form:"id"`
	Name      string    `json:"name" form:"name"`
	Email     string    `gorm:"uniqueIndex;size:191" json:"email" form:"email"`
	Password  string    `json:"-" form:"-"`
	LastLogin time.Time `json:"last_login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// BearerToken is only populated on login and me responses.
	BearerToken string `gorm:"-" json:"bearerToken,omitempty"`
}

// TableName Specify table name
func (SysAdmin) TableName() string {
	return "sys_admin"
}

// AdminToken is the persisted form of an issued bearer credential. Only the
// sha256 digest of the opaque token is stored. An admin holds at most one
// active token: login replaces prior rows, logout removes them.
type AdminToken struct {
	ID        int64     `json:"id,string"`
	AdminID   int64     `gorm:"index" json:"admin_id,string"`
	TokenHash string    `gorm:"uniqueIndex;size:64" json:"-"`
	ExpireAt  time.Time `json:"expire_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName Specify table name
func (AdminToken) TableName() string {
	return "sys_admin_token"
}
