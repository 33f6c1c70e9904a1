package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	PASSWORD_RESET_OTP = "password_reset"
	VERIFICATION_OTP   = "verification"
)

var ErrInvalidOtp = errors.New("invalid or expired OTP")

type Otp struct {
	BaseModel
	PhoneNumber string    `json:"phone_number" gorm:"not null"`
	Code        string    `json:"-" gorm:"not null"`
	Typ         string    `json:"type" gorm:"column:typ"`
	ExpiresAt   time.Time `json:"expires_at"`
	Used        bool      `json:"used" gorm:"default:false"`
}

// CreateOtp records a fresh code for the phone number, invalidating any
// pending code of the same type so only the latest one can be redeemed.
func CreateOtp(otp *Otp) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&Otp{}).
			Where("phone_number = ? AND typ = ? AND used = false", otp.PhoneNumber, otp.Typ).
			Update("used", true).Error
		if err != nil {
			return err
		}

		return tx.Create(otp).Error
	})
}

// RedeemOtp verifies a code and marks it used, so it can't be replayed.
func RedeemOtp(phoneNumber, code, typ string) error {
	otp := Otp{}

	err := db.Where(
		"phone_number = ? AND code = ? AND typ = ? AND used = false",
		phoneNumber, code, typ,
	).Last(&otp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidOtp
	}
	if err != nil {
		return err
	}

	if time.Now().After(otp.ExpiresAt) {
		return ErrInvalidOtp
	}

	return db.Model(&otp).Update("used", true).Error
}

// PurgeExpiredOtps deletes codes past their expiry. Run periodically.
func PurgeExpiredOtps() error {
	return db.Where("expires_at < ?", time.Now()).Delete(&Otp{}).Error
}
