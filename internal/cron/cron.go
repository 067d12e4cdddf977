package cron

import (
	"context"
	"sync"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/oneboxhq/onebox/config"
	"github.com/oneboxhq/onebox/internal/enum"
	"github.com/oneboxhq/onebox/internal/logger"
	"github.com/oneboxhq/onebox/internal/tracing"
	"github.com/oneboxhq/onebox/services/imap"
)

// LOCK MANAGEMENT
var reconnectLock sync.Mutex

// CronManager owns the background schedules. Its only job today is
// reconnecting accounts parked in error or disconnected state, which is the
// one recovery path the IMAP sessions rely on.
type CronManager struct {
	cfg         *config.CronConfig
	log         logger.Logger
	cron        *cronv3.Cron
	imapService *imap.IMAPService
	jobIDs      map[string]cronv3.EntryID
}

func NewCronManager(cfg *config.CronConfig, log logger.Logger, imapService *imap.IMAPService) *CronManager {
	return &CronManager{
		cfg:         cfg,
		log:         log,
		imapService: imapService,
		jobIDs:      make(map[string]cronv3.EntryID),
	}
}

// Start initializes and starts the cron scheduler.
func (cm *CronManager) Start() {
	cm.log.Info("Starting cron manager")

	cronOptions := []cronv3.Option{
		cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronv3.DefaultLogger),
			cronv3.Recover(cronv3.DefaultLogger),
		),
	}
	c := cronv3.New(cronOptions...)
	cm.registerJobs(c)
	c.Start()
	cm.cron = c
}

// Stop gracefully stops the cron manager and waits for running jobs.
func (cm *CronManager) Stop() {
	if cm.cron != nil {
		cm.log.Info("Stopping cron manager")
		ctx := cm.cron.Stop()
		<-ctx.Done()
	}
}

func (cm *CronManager) registerJobs(c *cronv3.Cron) {
	if cm.cfg.CronScheduleReconnectAccounts != "" {
		id, err := c.AddFunc(cm.cfg.CronScheduleReconnectAccounts, func() {
			defer tracing.RecoverAndLogToJaeger(cm.log)
			reconnectLock.Lock()
			defer reconnectLock.Unlock()
			cm.reconnectAccounts()
		})
		if err != nil {
			cm.log.Fatalf("Could not add reconnect accounts cron job: %v", err)
		}
		cm.jobIDs["reconnect_accounts"] = id
		cm.log.Infof("Registered reconnect accounts job with schedule: %s", cm.cfg.CronScheduleReconnectAccounts)
	}
}

func (cm *CronManager) reconnectAccounts() {
	ctx := context.Background()

	span, ctx := tracing.StartTracerSpan(ctx, "CronManager.reconnectAccounts")
	defer span.Finish()
	tracing.TagComponentCronJob(span)

	reconnected := 0
	for id, snapshot := range cm.imapService.Status() {
		if snapshot.Status != enum.ConnectionError && snapshot.Status != enum.ConnectionDisconnected {
			continue
		}

		cm.log.Infof("Reconnecting account %s (status: %s, last error: %s)", id, snapshot.Status, snapshot.LastError)
		if err := cm.imapService.Reconnect(ctx, id); err != nil {
			tracing.TraceErr(span, err)
			cm.log.Errorf("Failed to reconnect account %s: %v", id, err)
			continue
		}
		reconnected++
	}

	if reconnected > 0 {
		cm.log.Infof("Reconnect cycle triggered %d account(s)", reconnected)
	}
}
