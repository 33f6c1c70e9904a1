package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

const (
	ARMED_SESSION         = "armed"
	COUNTING_DOWN_SESSION = "countingDown"
	ACTIVE_SESSION        = "active"
	RESOLVED_SESSION      = "resolved"
	CANCELLED_SESSION     = "cancelled"
)

const (
	UPLOAD_PENDING   = "pending"
	UPLOAD_SUCCEEDED = "succeeded"
	UPLOAD_FAILED    = "failed"
)

// EmergencySession is the archived record of one emergency workflow run.
// The live lifecycle is owned by the emergency manager; rows here are the
// durable trail the dashboard and contacts screens read.
type EmergencySession struct {
	BaseModel
	UserID        uint       `json:"user_id" gorm:"not null"`
	TriggerSource string     `json:"trigger_source"`
	State         string     `json:"state"`
	ArmedAt       time.Time  `json:"armed_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
	EvidenceURL   string     `json:"evidence_url"`
	UploadResult  string     `json:"upload_result" gorm:"default:pending"`
	SmsCount      int        `json:"sms_count"`
	CallsCount    int        `json:"calls_count"`
}

func (session *EmergencySession) Save() error {
	return db.Save(session).Error
}

func (session *EmergencySession) Update(data map[string]interface{}) error {
	return db.Model(session).Updates(data).Error
}

func CreateEmergencySession(session *EmergencySession) error {
	return db.Create(session).Error
}

func LastEmergencySession(userID uint) (*EmergencySession, error) {
	session := EmergencySession{}
	err := db.Where("user_id = ?", userID).Last(&session).Error
	if err != nil {
		return nil, err
	}

	return &session, nil
}

func FetchEmergencySessions(userID uint, page int) ([]EmergencySession, *Paging, error) {
	var total int64
	sessions := []EmergencySession{}

	err := db.Model(&EmergencySession{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	err = db.Scopes(paginate(page, DEFAULT_PAGE_SIZE)).
		Order("emergency_sessions.id desc").
		Find(&sessions, "user_id = ?", userID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, err
	}

	return sessions, newPaging(int64(page), DEFAULT_PAGE_SIZE, total), nil
}
