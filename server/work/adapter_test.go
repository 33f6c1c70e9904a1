package work

import (
	"sync"
	"testing"
	"time"

	"github.com/HARINII2415/femina360/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformRunsEnqueuedJob(t *testing.T) {
	models.InitializeTestDb()

	var mu sync.Mutex
	processed := []string{}

	adapter := NewWorkerAdapter("UTC", true)
	adapter.Register("sendReminder", func(args map[string]interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		processed = append(processed, args["to"].(string))
		return nil
	})

	err := adapter.Perform(JobParams{
		Name:    "sendReminder",
		Handler: "sendReminder",
		Args:    map[string]interface{}{"to": "+12345678900"},
	})
	require.NoError(t, err)

	adapter.Start()
	defer adapter.Stop()

	time.Sleep(3 * time.Second)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"+12345678900"}, processed)

	jobs, _, err := models.FetchJobsByStatus(models.SUCCESSFUL_JOB, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestUniqueJobIsNotDoubleEnqueued(t *testing.T) {
	models.InitializeTestDb()

	adapter := NewWorkerAdapter("UTC", true)
	adapter.Register("backup", func(map[string]interface{}) error { return nil })

	job := JobParams{Name: "backup", Handler: "backup", Unique: true, Args: map[string]interface{}{}}

	require.NoError(t, adapter.Perform(job))
	// Duplicate is absorbed with a warning, not an error.
	require.NoError(t, adapter.Perform(job))

	jobs, _, err := models.FetchJobsByStatus(models.ENQUEUED_JOB, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestPerformInSchedulesForLater(t *testing.T) {
	models.InitializeTestDb()

	adapter := NewWorkerAdapter("UTC", true)
	adapter.Register("lateJob", func(map[string]interface{}) error { return nil })

	require.NoError(t, adapter.PerformIn(3600, JobParams{
		Name:    "lateJob",
		Handler: "lateJob",
		Args:    map[string]interface{}{},
	}))

	jobs, _, err := models.FetchJobsByStatus(models.SCHEDULED_JOB, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	// Still scheduled; the requeuer won't move it onto the queue until
	// its enqueue time passes.
	assert.Equal(t, "lateJob", jobs[0].Name)
}

func TestFailingJobIsRetriedThenMarkedDead(t *testing.T) {
	models.InitializeTestDb()

	var mu sync.Mutex
	attempts := 0

	adapter := NewWorkerAdapter("UTC", true)
	adapter.Register("alwaysFails", func(map[string]interface{}) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		return assert.AnError
	})

	require.NoError(t, adapter.Perform(JobParams{
		Name:    "alwaysFails",
		Handler: "alwaysFails",
		Args:    map[string]interface{}{},
	}))

	adapter.Start()
	defer adapter.Stop()

	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		jobs, _, err := models.FetchJobsByStatus(models.DEAD_JOB, 0)
		require.NoError(t, err)
		if len(jobs) == 1 {
			mu.Lock()
			assert.Equal(t, MAX_FAILS, attempts)
			mu.Unlock()
			return
		}
		time.Sleep(200 * time.Millisecond)
	}

	t.Fatal("job was never marked dead")
}
