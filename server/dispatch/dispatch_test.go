package dispatch

import (
	"context"
	"testing"

	"github.com/HARINII2415/femina360/server/capture"
	"github.com/HARINII2415/femina360/server/models"
	"github.com/HARINII2415/femina360/server/notifier"
	"github.com/HARINII2415/femina360/shared"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeUploader struct {
	url   string
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, artifact *capture.Artifact) (string, error) {
	f.calls++
	return f.url, f.err
}

type fakeAlertClient struct {
	payloads []shared.AlertPayload
	receipt  shared.AlertReceipt
	err      error
}

func (f *fakeAlertClient) Notify(ctx context.Context, payload shared.AlertPayload) (shared.AlertReceipt, error) {
	f.payloads = append(f.payloads, payload)
	return f.receipt, f.err
}

func testPayload() shared.AlertPayload {
	return shared.AlertPayload{
		UserID:   "7",
		UserName: "natasha romanoff",
		Contacts: []shared.AlertContact{
			{ID: "1", Name: "clint barton", Phone: "+12345678900", IsPrimary: true},
		},
	}
}

func TestDispatchUploadsThenNotifies(t *testing.T) {
	uploader := &fakeUploader{url: "https://storage.googleapis.com/evidence/emergency_1.webm"}
	alerts := &fakeAlertClient{receipt: shared.AlertReceipt{SmsCount: 1, CallsInitiated: 1}}
	dispatcher := NewDispatcher(uploader, alerts)

	result := dispatcher.Dispatch(context.Background(), testPayload(), &capture.Artifact{Path: "/tmp/x.webm"})

	assert.Equal(t, models.UPLOAD_SUCCEEDED, result.UploadResult)
	assert.Equal(t, uploader.url, result.EvidenceURL)
	assert.False(t, result.FellBack)
	assert.Equal(t, 1, result.Receipt.SmsCount)
	assert.Equal(t, 1, result.Receipt.CallsInitiated)

	// The notification carries the uploaded URL.
	assert.Len(t, alerts.payloads, 1)
	assert.Equal(t, uploader.url, alerts.payloads[0].EvidenceURL)
}

func TestDispatchUploadFailureFallsBackExactlyOnce(t *testing.T) {
	uploader := &fakeUploader{err: errors.New("bucket unreachable")}
	alerts := &fakeAlertClient{receipt: shared.AlertReceipt{SmsCount: 1}}
	dispatcher := NewDispatcher(uploader, alerts)

	result := dispatcher.Dispatch(context.Background(), testPayload(), &capture.Artifact{Path: "/tmp/x.webm"})

	assert.Equal(t, models.UPLOAD_FAILED, result.UploadResult)
	assert.True(t, result.FellBack)
	assert.Empty(t, result.EvidenceURL)

	// The alert is never dropped and never duplicated.
	assert.Len(t, alerts.payloads, 1)
	assert.Empty(t, alerts.payloads[0].EvidenceURL)
	assert.Equal(t, 1, uploader.calls)
}

func TestDispatchMissingArtifactSkipsUpload(t *testing.T) {
	uploader := &fakeUploader{url: "unused"}
	alerts := &fakeAlertClient{}
	dispatcher := NewDispatcher(uploader, alerts)

	result := dispatcher.Dispatch(context.Background(), testPayload(), nil)

	assert.Equal(t, models.UPLOAD_PENDING, result.UploadResult)
	assert.True(t, result.FellBack)
	assert.Equal(t, 0, uploader.calls)
	assert.Len(t, alerts.payloads, 1)
	assert.Empty(t, alerts.payloads[0].EvidenceURL)
}

func TestDispatchWithoutUploaderFallsBack(t *testing.T) {
	alerts := &fakeAlertClient{}
	dispatcher := NewDispatcher(nil, alerts)

	result := dispatcher.Dispatch(context.Background(), testPayload(), &capture.Artifact{Path: "/tmp/x.webm"})

	assert.Equal(t, models.UPLOAD_FAILED, result.UploadResult)
	assert.True(t, result.FellBack)
	assert.Len(t, alerts.payloads, 1)
}

func TestDispatchReportsNoContacts(t *testing.T) {
	alerts := &fakeAlertClient{err: notifier.ErrNoContacts}
	dispatcher := NewDispatcher(&fakeUploader{url: "https://example.com/e.webm"}, alerts)

	result := dispatcher.Dispatch(context.Background(), testPayload(), &capture.Artifact{Path: "/tmp/x.webm"})

	assert.True(t, result.NoContacts)
	assert.Equal(t, shared.AlertReceipt{}, result.Receipt)
}
