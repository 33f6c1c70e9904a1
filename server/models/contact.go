package models

import (
	"errors"

	"gorm.io/gorm"
)

var ErrNoPrimaryContact = errors.New("user has no primary contact")

type Contact struct {
	BaseModel
	Name         string `json:"name" validate:"required"`
	PhoneNumber  string `json:"phone_number" validate:"required,e164" gorm:"not null"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"is_primary"`
	UserID       uint   `json:"user_id" gorm:"not null"`
}

// CreateContact adds a contact to the user's set, keeping the invariant that
// a non-empty contact set has exactly one primary: the first contact added
// becomes primary, and marking a new contact primary demotes the old one.
func CreateContact(userID uint, contact *Contact) error {
	contact.UserID = userID

	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&Contact{}).Where("user_id = ?", userID).Count(&count).Error
		if err != nil {
			return err
		}

		if count == 0 {
			contact.IsPrimary = true
		} else if contact.IsPrimary {
			err = tx.Model(&Contact{}).Where("user_id = ?", userID).Update("is_primary", false).Error
			if err != nil {
				return err
			}
		}

		return tx.Create(contact).Error
	})
}

// DeleteContact removes a contact. When the primary contact is removed and
// others remain, the oldest remaining contact is promoted to primary.
func DeleteContact(userID uint, contactID interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		contact := Contact{}
		err := tx.Where("user_id = ?", userID).First(&contact, "id = ?", contactID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		err = tx.Delete(&contact).Error
		if err != nil {
			return err
		}

		if !contact.IsPrimary {
			return nil
		}

		next := Contact{}
		err = tx.Where("user_id = ?", userID).Order("id asc").First(&next).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		return tx.Model(&next).Update("is_primary", true).Error
	})
}

// SetPrimaryContact marks the given contact primary and demotes every other
// contact of the user.
func SetPrimaryContact(userID uint, contactID interface{}) error {
	return db.Transaction(func(tx *gorm.DB) error {
		contact := Contact{}
		err := tx.Where("user_id = ?", userID).First(&contact, "id = ?", contactID).Error
		if err != nil {
			return err
		}

		err = tx.Model(&Contact{}).Where("user_id = ? AND id != ?", userID, contact.ID).
			Update("is_primary", false).Error
		if err != nil {
			return err
		}

		return tx.Model(&contact).Update("is_primary", true).Error
	})
}

func UpdateContact(userID uint, contactID interface{}, data map[string]interface{}) error {
	return db.Table("contacts").Where("id = ? AND user_id = ?", contactID, userID).Updates(data).Error
}

func FetchContacts(userID uint) ([]Contact, error) {
	contacts := []Contact{}
	err := db.Order("id asc").Limit(500).Find(&contacts, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

func PrimaryContact(userID uint) (*Contact, error) {
	contact := Contact{}

	err := db.Where("user_id = ? AND is_primary = true", userID).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoPrimaryContact
	}
	if err != nil {
		return nil, err
	}

	return &contact, nil
}
