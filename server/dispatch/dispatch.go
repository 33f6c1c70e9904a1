package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/HARINII2415/femina360/server/capture"
	"github.com/HARINII2415/femina360/server/gstorage"
	"github.com/HARINII2415/femina360/server/logger"
	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/notifier"
	"github.com/HARINII2415/femina360/shared"
	"github.com/pkg/errors"
)

var logg = logger.NewLogger()

// Uploader sends a finalized evidence artifact to the storage backend and
// returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, artifact *capture.Artifact) (string, error)
}

// AlertClient delivers an alert payload to the notification backend.
type AlertClient interface {
	Notify(ctx context.Context, payload shared.AlertPayload) (shared.AlertReceipt, error)
}

// Result is the settled outcome of one dispatch run.
type Result struct {
	EvidenceURL  string
	UploadResult string
	Receipt      shared.AlertReceipt
	FellBack     bool
	NoContacts   bool
}

// Dispatcher runs the upload -> notify pipeline for an activated emergency.
// Every stage degrades instead of aborting: a missing artifact skips the
// upload, a failed upload falls back to notification without evidence,
// and per-contact notify failures are absorbed by the backend. An alert is
// never silently dropped.
type Dispatcher struct {
	uploader Uploader
	alerts   AlertClient
}

func NewDispatcher(uploader Uploader, alerts AlertClient) *Dispatcher {
	return &Dispatcher{uploader: uploader, alerts: alerts}
}

// Dispatch uploads the artifact (when there is one) and notifies contacts.
// The payload's EvidenceURL is filled in from the upload stage.
func (d *Dispatcher) Dispatch(ctx context.Context, payload shared.AlertPayload, artifact *capture.Artifact) Result {
	result := Result{UploadResult: models.UPLOAD_PENDING}

	if artifact == nil {
		logg.Warnf("no evidence artifact for %v - notifying without evidence", payload.UserID)
		d.notify(ctx, payload, &result)
		result.FellBack = true
		return result
	}

	if d.uploader == nil {
		logg.Warnf("no evidence storage configured - notifying without evidence")
		result.UploadResult = models.UPLOAD_FAILED
		result.FellBack = true
		d.notify(ctx, payload, &result)
		return result
	}

	url, err := d.uploader.Upload(ctx, artifact)
	if err != nil {
		logg.Errorf("evidence upload failed for %v: %v - falling back to direct notification", payload.UserID, err)
		result.UploadResult = models.UPLOAD_FAILED
		result.FellBack = true
		d.notify(ctx, payload, &result)
		return result
	}

	result.UploadResult = models.UPLOAD_SUCCEEDED
	result.EvidenceURL = url
	payload.EvidenceURL = url
	d.notify(ctx, payload, &result)

	return result
}

func (d *Dispatcher) notify(ctx context.Context, payload shared.AlertPayload, result *Result) {
	receipt, err := d.alerts.Notify(ctx, payload)
	if errors.Is(err, notifier.ErrNoContacts) {
		result.NoContacts = true
		return
	}
	if err != nil {
		// The backend itself absorbs per-contact failures; an error here
		// means the alert request didn't get through at all.
		logg.Errorf("emergency alert request failed for %v: %v", payload.UserID, err)
		return
	}

	result.Receipt = receipt
}

// GStorageUploader uploads artifacts to a Google Cloud Storage bucket.
type GStorageUploader struct {
	storage *gstorage.GStorage
	bucket  string
	prefix  string
}

func NewGStorageUploader(storage *gstorage.GStorage, bucket, prefix string) *GStorageUploader {
	return &GStorageUploader{storage: storage, bucket: bucket, prefix: prefix}
}

func (u *GStorageUploader) Upload(ctx context.Context, artifact *capture.Artifact) (string, error) {
	f, err := os.Open(artifact.Path)
	if err != nil {
		return "", fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	object := filepath.Base(artifact.Path)
	if u.prefix != "" {
		object = u.prefix + "/" + object
	}

	return u.storage.UploadObject(ctx, u.bucket, object, f)
}
