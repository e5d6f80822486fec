package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"trueque-market/internal/config"
	"trueque-market/internal/models"
	"trueque-market/internal/realtime"
	"trueque-market/internal/repository"
	"trueque-market/internal/services"
)

func setupSweeperTest(t *testing.T) (*gorm.DB, *services.TradeService, *services.NotificationService) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&models.User{},
		&models.Garment{},
		&models.TradeProposal{},
		&models.TradeMessage{},
		&models.Notification{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	repo := repository.NewRepository(db)
	hub := realtime.NewHub()
	notifier := services.NewNotificationService(repo, hub)
	ledger := services.NewGarmentLedger(repo)
	cfg := config.TradeConfig{
		MaxPendingPerGarment: 3,
		ProposalTTL:          time.Hour,
		SweepInterval:        time.Minute,
		ExpiryWarningWindow:  30 * time.Minute,
	}
	trades := services.NewTradeService(repo, ledger, notifier, hub, cfg)

	return db, trades, notifier
}

func seedPendingTrade(t *testing.T, db *gorm.DB, trades *services.TradeService, age time.Duration) *models.TradeProposal {
	t.Helper()
	ctx := context.Background()

	suffix := fmt.Sprintf("%d", time.Now().UnixNano())
	proposer := &models.User{Email: "p" + suffix + "@example.com", Nickname: "p" + suffix, PasswordHash: "x$y"}
	receiver := &models.User{Email: "r" + suffix + "@example.com", Nickname: "r" + suffix, PasswordHash: "x$y"}
	for _, user := range []*models.User{proposer, receiver} {
		if err := db.Create(user).Error; err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}
	offered := &models.Garment{OwnerID: proposer.ID, Title: "offered", Category: "misc", BindingState: models.GarmentAvailable}
	requested := &models.Garment{OwnerID: receiver.ID, Title: "requested", Category: "misc", BindingState: models.GarmentAvailable}
	for _, garment := range []*models.Garment{offered, requested} {
		if err := db.Create(garment).Error; err != nil {
			t.Fatalf("failed to seed garment: %v", err)
		}
	}

	trade, err := trades.CreateTrade(ctx, proposer.ID, &models.CreateTradeRequest{
		OfferedGarmentID:   offered.ID,
		RequestedGarmentID: requested.ID,
	})
	if err != nil {
		t.Fatalf("CreateTrade failed: %v", err)
	}

	// Backdate the proposal so the sweeper sees it as aged.
	err = db.Model(&models.TradeProposal{}).
		Where("id = ?", trade.ID).
		Update("created_at", time.Now().Add(-age)).Error
	if err != nil {
		t.Fatalf("failed to backdate trade: %v", err)
	}

	return trade
}

func TestSweepExpiresOverdueProposals(t *testing.T) {
	db, trades, notifier := setupSweeperTest(t)
	sweeper := NewExpirationSweeper(trades, notifier, time.Minute)

	overdue := seedPendingTrade(t, db, trades, 2*time.Hour)
	fresh := seedPendingTrade(t, db, trades, time.Minute)

	sweeper.Sweep(context.Background())

	var got models.TradeProposal
	if err := db.First(&got, "id = ?", overdue.ID).Error; err != nil {
		t.Fatalf("failed to load trade: %v", err)
	}
	if got.Status != models.TradeStatusExpired {
		t.Errorf("expected overdue proposal EXPIRED, got %s", got.Status)
	}

	// Fresh struct: reusing got would carry the first trade's primary key
	// into the query conditions.
	var untouched models.TradeProposal
	if err := db.First(&untouched, "id = ?", fresh.ID).Error; err != nil {
		t.Fatalf("failed to load trade: %v", err)
	}
	if untouched.Status != models.TradeStatusPending {
		t.Errorf("expected fresh proposal untouched, got %s", untouched.Status)
	}
}

func TestSweepWarnsExpiringOnce(t *testing.T) {
	db, trades, notifier := setupSweeperTest(t)
	sweeper := NewExpirationSweeper(trades, notifier, time.Minute)

	// Inside the warning window: TTL 1h, window 30m, aged 45m.
	trade := seedPendingTrade(t, db, trades, 45*time.Minute)

	countWarnings := func() int64 {
		var count int64
		err := db.Model(&models.Notification{}).
			Where("type = ? AND reference_id = ?", models.NotificationTradeExpiring, trade.ID).
			Count(&count).Error
		if err != nil {
			t.Fatalf("failed to count notifications: %v", err)
		}
		return count
	}

	sweeper.Sweep(context.Background())

	if got := countWarnings(); got != 2 {
		t.Errorf("expected 2 warning notifications (both parties), got %d", got)
	}

	var got models.TradeProposal
	if err := db.First(&got, "id = ?", trade.ID).Error; err != nil {
		t.Fatalf("failed to load trade: %v", err)
	}
	if got.Status != models.TradeStatusPending {
		t.Errorf("warning must not change status, got %s", got.Status)
	}
	if got.LastWarnedAt == nil {
		t.Error("expected last_warned_at to be stamped")
	}

	// A second sweep does not warn again.
	sweeper.Sweep(context.Background())
	if got := countWarnings(); got != 2 {
		t.Errorf("expected warnings to stay at 2, got %d", got)
	}
}
