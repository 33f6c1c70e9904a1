package models

import (
	"errors"

	"gorm.io/gorm"
)

const (
	ADMIN_USER_ROLE = "admin"
	BASIC_USER_ROLE = "basic"
)

type Role struct {
	BaseModel
	Name  string `json:"name"`
	Users []User `json:"users,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
}

func (role *Role) IsAdmin() bool {
	return role.Name == ADMIN_USER_ROLE
}

// seedRoles inserts the built-in roles on first boot. Every user defaults
// to 'basic'; only the bootstrap account gets 'admin'.
func seedRoles() {
	if err := db.First(&Role{}).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		logg.Info("Inserting seed data into 'Role'")
		db.Create(&[]Role{{Name: ADMIN_USER_ROLE}, {Name: BASIC_USER_ROLE}})
	}
}
