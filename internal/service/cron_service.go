// Package service contains the service layer for the Tagbin API
package service

import (
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/tagbin/tagbinapi/internal/config"
	"github.com/tagbin/tagbinapi/pkg/utils/zaplogger"
	"gorm.io/gorm"
)

// CronService is the service for the background jobs
type CronService struct {
	cfg            *config.Config
	db             *gorm.DB
	redisClient    *redis.Client
	c              *cron.Cron
	sessionService *SessionService
}

// NewCronService creates a new CronService
func NewCronService(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) *CronService {
	return &CronService{
		cfg:            cfg,
		db:             db,
		redisClient:    redisClient,
		c:              cron.New(),
		sessionService: NewSessionService(db, redisClient),
	}
}

// Start starts the cron service
func (cs *CronService) Start() {
	zaplogger.Info("Initializing CronService")

	// ------------------------------------------------------------
	// Add your SCHEDULED jobs here
	// ------------------------------------------------------------
	// The sweep complements lazy expiry on lookup; neither path is
	// load-bearing on its own.
	cs.addScheduledJob("Session SWEEP Job", cs.sessionSweepJob, "@every 60s")

	// ------------------------------------------------------------
	// Add your STARTUP jobs here
	// ------------------------------------------------------------
	cs.addStartupJob("Session SWEEP Job", cs.sessionSweepJob, 1*time.Second)

	cs.c.Start()
}

// Stop stops the scheduled jobs
func (cs *CronService) Stop() {
	cs.c.Stop()
}

// addStartupJob adds a startup job to the cron service
func (cs *CronService) addStartupJob(name string, job func(), delay time.Duration) {
	go func() {
		time.Sleep(delay)
		zaplogger.Info("STARTED STARTUP job", zaplogger.Fields{
			"job": name,
		})
		job()
		zaplogger.Info("COMPLETED STARTUP job", zaplogger.Fields{
			"job": name,
		})
	}()
	zaplogger.Info("QUEUED STARTUP job", zaplogger.Fields{
		"job": name,
	})
}

func (cs *CronService) addScheduledJob(name string, job func(), schedule string) {
	_, err := cs.c.AddFunc(schedule, job)
	if err != nil {
		zaplogger.Error("FAILED TO QUEUE SCHEDULED JOB", zaplogger.Fields{
			"job":   name,
			"error": err.Error(),
		})
		return
	}
	zaplogger.Info("QUEUED SCHEDULED job", zaplogger.Fields{
		"job": name,
	})
}

// sessionSweepJob deletes sessions whose expiry has passed
func (cs *CronService) sessionSweepJob() {
	jobName := "Session SWEEP Job"

	removed, err := cs.sessionService.SweepExpired()
	if err != nil {
		zaplogger.Error(jobName, zaplogger.Fields{
			"error": err.Error(),
		})
		return
	}
	if removed > 0 {
		zaplogger.Info(jobName, zaplogger.Fields{
			"sessions_removed": strconv.FormatInt(removed, 10),
		})
	}
}
