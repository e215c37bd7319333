package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"strconv"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/darshanam/internal/adapters/postgres"
	"github.com/samirrijal/darshanam/internal/adapters/sunapi"
	"github.com/samirrijal/darshanam/internal/adapters/telegram"
	"github.com/samirrijal/darshanam/internal/adapters/valkey"
	"github.com/samirrijal/darshanam/internal/core/ports"
	"github.com/samirrijal/darshanam/internal/core/usecases"
	"github.com/samirrijal/darshanam/internal/pkg/config"
	"github.com/samirrijal/darshanam/internal/pkg/logging"
	"github.com/samirrijal/darshanam/internal/workflows"
)

const workflowID = "darshanam-sun-reminders"

func main() {
	start := flag.Bool("start", false, "start the sun reminder workflow and exit")
	reminders := flag.Int("reminders", 0, "with -start: number of reminders to send, 0 runs forever")
	flag.Parse()

	cfg, err := config.Load("darshanam-notifier")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("darshanam-notifier", cfg.Log.Level, cfg.Log.Format)

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	if *start {
		startWorkflow(c, cfg, *reminders)
		return
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer vc.Close()
		cache = vc
	}

	acts := &workflows.SunReminderActivities{
		Guide: usecases.NewGuideService(postgres.NewGuideLocationRepo(db), cache, nil,
			time.Duration(cfg.Guide.StaleAfterMinutes)*time.Minute),
		SunTimes: usecases.NewSunTimesService(
			sunapi.New(cfg.Sun.BaseURL, time.Duration(cfg.Sun.TimeoutSeconds)*time.Second),
			usecases.NewSunTimesCache(),
			cache,
		),
	}
	if cfg.Telegram.Enabled() {
		acts.Notifier = telegram.New(cfg.Telegram.BotToken, cfg.Telegram.BaseURL, nil)
	} else {
		slog.Warn("telegram not configured, reminders are only logged")
	}

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.SunReminderWorkflow)
	w.RegisterActivity(acts)

	slog.Info("notifier worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func startWorkflow(c client.Client, cfg *config.Config, reminders int) {
	if cfg.Telegram.ChatID == 0 {
		log.Fatal("telegram.chat_id is required to start reminders")
	}
	run, err := c.ExecuteWorkflow(context.Background(), client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.SunReminderWorkflow, workflows.SunReminderInput{
		Recipient:   strconv.FormatInt(cfg.Telegram.ChatID, 10),
		LeadMinutes: cfg.Temporal.ReminderLeadMinutes,
		Reminders:   reminders,
	})
	if err != nil {
		log.Fatalf("start workflow: %v", err)
	}
	slog.Info("sun reminder workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())
}
