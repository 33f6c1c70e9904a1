package emergency

import (
	"github.com/HARINII2415/femina360/server/models"
)

// GormStore persists sessions through the models package.
type GormStore struct{}

func NewGormStore() *GormStore {
	return &GormStore{}
}

func (s *GormStore) Create(session *models.EmergencySession) error {
	return models.CreateEmergencySession(session)
}

func (s *GormStore) Update(id uint, data map[string]interface{}) error {
	session := &models.EmergencySession{BaseModel: models.BaseModel{ID: id}}
	return session.Update(data)
}
