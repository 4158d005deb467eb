package jobs

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs jobs on cron schedules. A job never overlaps itself: a tick
// that fires while the previous run is still going is skipped.
type TaskExecutor struct {
	cron            *cron.Cron
	jobs            []Job
	cronJobs        []CronJob
	runningJobs     mapset.Set[Job]
	runningCronJobs mapset.Set[Job]
	muJobs          sync.Mutex
	muCronJobs      sync.Mutex
}

func NewTaskExecutor(jobs []Job, cronJobs []CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:            cron.New(),
		jobs:            jobs,
		cronJobs:        cronJobs,
		runningCronJobs: mapset.NewSet[Job](),
		runningJobs:     mapset.NewSet[Job](),
	}
}

// Run schedules every job and starts the cron in its own goroutine.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		err := t.cron.AddFunc(job.Schedule(), func() {
			runExclusive(&t.muCronJobs, t.runningCronJobs, job)
		})
		if err != nil {
			logrus.Errorf("failed to add task to cron: %v", err)
			return err
		}
	}

	for _, job := range t.jobs {
		err := t.cron.AddFunc("@every 1s", func() {
			runExclusive(&t.muJobs, t.runningJobs, job)
		})
		if err != nil {
			return err
		}
	}

	t.cron.Start()

	return nil
}

func (t *TaskExecutor) Stop() {
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}

func runExclusive(mu *sync.Mutex, running mapset.Set[Job], job Job) {
	mu.Lock()
	if running.Contains(job) {
		mu.Unlock()
		logrus.Warn("task is already running")
		return
	}
	running.Add(job)
	mu.Unlock()

	defer func() {
		mu.Lock()
		defer mu.Unlock()
		running.Remove(job)
	}()

	job.Run()
}
