package users

import "time"

const (
	RoleEmployee = "employee"
	RoleAdmin    = "admin"
)

type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"type:varchar(120);not null" json:"name"`
	Email      string    `gorm:"type:varchar(191);not null;uniqueIndex:ux_users_email" json:"email"`
	Role       string    `gorm:"type:varchar(16);not null;default:'employee'" json:"role"`
	Department *string   `gorm:"type:varchar(120)" json:"department,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
