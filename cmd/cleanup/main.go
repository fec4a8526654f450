package main

import (
	"flag"
	"log"
	"os"
	"strings"
	"time"

	"github.com/planhub/planhub_go_server/config"
	"github.com/planhub/planhub_go_server/internal/database"
	"github.com/planhub/planhub_go_server/internal/model"
	"github.com/planhub/planhub_go_server/internal/repository"
	"github.com/planhub/planhub_go_server/internal/service"
)

var (
	dryRun      = flag.Bool("dry-run", true, "Dry run mode, don't actually write changes")
	sweepSubs   = flag.Bool("sweep-subscriptions", true, "Expire active subscriptions past their period end")
	sweepTrials = flag.Bool("sweep-trials", true, "Expire trial subscriptions past their trial end")
	purgeEvents = flag.Bool("purge-events", true, "Permanently delete soft-deleted events")
	purgeDays   = flag.Int("purge-days", 30, "Days to keep soft-deleted events before purging")
)

func main() {
	flag.Parse()

	log.Println("Starting maintenance task...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	subRepo := repository.NewSubscriptionRepository(db)
	eventRepo := repository.NewEventRepository(db)
	billingService := service.NewBillingService(subRepo, cfg, nil)

	sweptCount := 0
	purgedCount := int64(0)

	// 1. 过期订阅落库
	if *sweepSubs {
		log.Println("\nSweeping lapsed active subscriptions...")
		if *dryRun {
			lapsed, err := subRepo.ListLapsedActive(time.Now(), 500)
			if err != nil {
				log.Printf("Failed to list lapsed subscriptions: %v", err)
			} else {
				for _, sub := range lapsed {
					log.Printf("  - user %d: period ended %s", sub.UserID, sub.CurrentPeriodEnd.Format("2006-01-02 15:04"))
				}
				sweptCount = len(lapsed)
			}
		} else {
			sweptCount, err = billingService.SweepLapsedActive()
			if err != nil {
				log.Printf("Failed to sweep subscriptions: %v", err)
			}
		}
		log.Printf("Lapsed subscriptions: %d", sweptCount)
	}

	// 2. 试用期已过的 trial 订阅落库为 expired
	// 派生层对这些用户本就判定受限，这里只是收敛存储状态
	trialCount := 0
	if *sweepTrials {
		log.Println("\nSweeping lapsed trial subscriptions...")
		lapsed, err := subRepo.ListLapsedTrials(time.Now(), 500)
		if err != nil {
			log.Printf("Failed to list lapsed trials: %v", err)
		} else {
			for _, sub := range lapsed {
				log.Printf("  - user %d: trial ended %s", sub.UserID, sub.TrialEndAt.Format("2006-01-02 15:04"))
				if *dryRun {
					trialCount++
					continue
				}
				if err := subRepo.ExpireSubscription(sub.ID); err != nil {
					log.Printf("    Failed to expire subscription %d: %v", sub.ID, err)
					continue
				}
				trialCount++
			}
		}
		log.Printf("Lapsed trials: %d", trialCount)
	}

	// 3. 物理删除过期的软删除日程
	if *purgeEvents {
		before := time.Now().AddDate(0, 0, -*purgeDays)
		log.Printf("\nPurging events soft-deleted before %s...", before.Format("2006-01-02"))
		if *dryRun {
			err = db.Unscoped().Model(&model.Event{}).
				Where("deleted_at IS NOT NULL AND deleted_at < ?", before).
				Count(&purgedCount).Error
			if err != nil {
				log.Printf("Failed to count purgeable events: %v", err)
			}
		} else {
			purgedCount, err = eventRepo.PurgeDeletedBefore(before)
			if err != nil {
				log.Printf("Failed to purge events: %v", err)
			}
		}
		log.Printf("Purgeable events: %d", purgedCount)
	}

	// 输出统计
	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("Maintenance Summary")
	log.Println(strings.Repeat("=", 60))
	log.Printf("Swept subscriptions: %d", sweptCount)
	log.Printf("Expired trials: %d", trialCount)
	log.Printf("Purged events: %d", purgedCount)
	if *dryRun {
		log.Println("\nDRY RUN MODE - No changes were written")
		log.Println("Run with -dry-run=false to apply changes")
	} else {
		log.Println("\nMaintenance completed!")
	}
	log.Println(strings.Repeat("=", 60))
}
