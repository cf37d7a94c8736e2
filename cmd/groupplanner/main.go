package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"group-planner/internal/bot"
	"group-planner/internal/config"
	"group-planner/internal/i18n"
	"group-planner/internal/repository"
	"group-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	catalog, err := i18n.Load()
	if err != nil {
		log.Fatalf("i18n: %v", err)
	}

	api, err := bot.NewAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatalf("bot: %v", err)
	}
	relay := bot.NewChatRelay(api)

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	locker := service.NewTaskLocker()
	ledger := service.NewNotificationLedger(time.Now)
	updater := service.NewUserUpdater(userRepo, locker)
	chatSvc := service.NewChatService(messageRepo, relay, time.Now)
	linker := service.NewAssignmentLinker(taskRepo, groupRepo, service.NewTaskSyncer(taskRepo), chatSvc, updater, ledger, locker, catalog)
	approval := service.NewApprovalWorkflow(taskRepo, groupRepo, userRepo, updater, ledger, locker, catalog, time.Now)
	groupTaskSvc := service.NewGroupTaskService(taskRepo, groupRepo, userRepo, linker, approval)
	reminderSvc := service.NewReminderService(taskRepo, groupRepo, userRepo, relay, catalog, cfg.DefaultLanguage)

	telegramBot := bot.New(api, userRepo, groupTaskSvc, catalog)

	digests, err := service.NewDigestScheduler(reminderSvc, service.DigestSchedule{
		Every:    cfg.ReminderInterval,
		DailyAt:  cfg.ReminderAt,
		Location: cfg.Location,
	})
	if err != nil {
		log.Fatalf("schedule digests: %v", err)
	}
	digestsDone := make(chan struct{})
	go func() {
		defer close(digestsDone)
		if err := digests.Run(ctx); err != nil {
			log.Printf("digests: %v", err)
		}
	}()
	defer func() {
		stop()
		<-digestsDone
	}()

	log.Println("Group planner bot started.")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("bot stopped with error: %v", err)
	}
	log.Println("Shutdown complete.")
}
