package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/HARINII2415/femina360/server/capture"
	"github.com/HARINII2415/femina360/server/dispatch"
	"github.com/HARINII2415/femina360/server/emergency"
	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/sensor"
	"github.com/HARINII2415/femina360/server/trigger"
	"github.com/HARINII2415/femina360/shared"
	"github.com/HARINII2415/femina360/utils"
)

// guardian wires one user's personal-safety pipeline together: sensor hub
// feeding the trigger evaluator, which fires into the emergency manager.
type guardian struct {
	hub       *sensor.Hub
	evaluator *trigger.Evaluator
	manager   *emergency.Manager
}

func newGuardian(user *models.User) *guardian {
	g := &guardian{}
	guardianConfig := appConfig.Femina360.Guardian

	countdown := time.Duration(guardianConfig.CountdownSeconds) * time.Second
	captureDuration := time.Duration(guardianConfig.CaptureSeconds) * time.Second

	spoolDir := guardianConfig.EvidenceSpoolDir
	if spoolDir == "" {
		spoolDir = filepath.Join(os.TempDir(), "femina360-evidence")
	}
	if err := utils.CreateDirIfNotExist(spoolDir); err != nil {
		logg.Errorf("unable to create evidence spool dir %v: %v", spoolDir, err)
	}

	var uploader dispatch.Uploader
	if gStorage != nil && appConfig.Google.Storage.EvidenceBucket != "" {
		uploader = dispatch.NewGStorageUploader(gStorage, appConfig.Google.Storage.EvidenceBucket, appConfig.Google.Storage.Prefix)
	}

	var alerts dispatch.AlertClient = alertService
	if guardianConfig.AlertEndpoint != "" {
		alerts = dispatch.NewHTTPAlertClient(guardianConfig.AlertEndpoint)
	}

	g.manager = emergency.NewManager(emergency.Params{
		UserID:     user.ID,
		UserName:   user.FullName(),
		Config:     emergency.Config{Countdown: countdown},
		Recorder:   capture.NewRecorder(spoolDir, captureDuration),
		Dispatcher: dispatch.NewDispatcher(uploader, alerts),
		Store:      emergency.NewGormStore(),
		Contacts:   func() ([]shared.AlertContact, error) { return alertContacts(user.ID) },
		OnReset:    func() { g.evaluator.Reset() },
	})

	g.evaluator = trigger.NewEvaluator(trigger.DefaultConfig(), func(source trigger.Source) {
		g.manager.Trigger(source)
	})

	g.hub = sensor.NewHub(func(sample sensor.Sample) {
		if fix, ok := sample.(sensor.LocationSample); ok {
			g.manager.SetLocation(shared.Location{Lat: fix.Lat, Lng: fix.Lng})
		}
		g.evaluator.HandleSample(sample)
	})

	return g
}

func alertContacts(userID uint) ([]shared.AlertContact, error) {
	contacts, err := models.FetchContacts(userID)
	if err != nil {
		return nil, err
	}

	alertContacts := make([]shared.AlertContact, 0, len(contacts))
	for _, contact := range contacts {
		alertContacts = append(alertContacts, shared.AlertContact{
			ID:           fmt.Sprintf("%d", contact.ID),
			Name:         contact.Name,
			Phone:        contact.PhoneNumber,
			Relationship: contact.Relationship,
			IsPrimary:    contact.IsPrimary,
		})
	}

	return alertContacts, nil
}

// guardianRegistry hands out one guardian per user, created lazily the
// first time a client touches a guardian route.
type guardianRegistry struct {
	mu        sync.Mutex
	guardians map[uint]*guardian
}

func newGuardianRegistry() *guardianRegistry {
	return &guardianRegistry{guardians: map[uint]*guardian{}}
}

func (r *guardianRegistry) For(user *models.User) *guardian {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g, ok := r.guardians[user.ID]; ok {
		return g
	}

	g := newGuardian(user)
	r.guardians[user.ID] = g
	return g
}

// Shutdown deactivates every live guardian so in-flight captures finalize.
func (r *guardianRegistry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.guardians {
		g.manager.Deactivate()
	}
}
