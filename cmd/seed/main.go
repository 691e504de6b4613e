// Seeds a development database with fake users, conversations and messages.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"lilypad/internal/config"
	"lilypad/internal/database"
	"lilypad/internal/models"
	"lilypad/internal/service"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/lmittmann/tint"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	userCount := flag.Int("users", 20, "number of users to create")
	convCount := flag.Int("conversations", 15, "number of conversations to create")
	messagesPer := flag.Int("messages", 10, "max messages per conversation")
	flag.Parse()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen}))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	db, err := database.NewPostgresDB(cfg.Database.URI)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	ctx := context.Background()
	defer db.Close(ctx)

	if err := db.InitializeTables(ctx); err != nil {
		logger.Error("failed to initialize tables", "error", err)
		os.Exit(1)
	}

	users, err := seedUsers(ctx, db, *userCount, logger)
	if err != nil {
		logger.Error("failed to seed users", "error", err)
		os.Exit(1)
	}
	logger.Info("seeded users", "count", len(users))

	conversations := service.NewConversationService(db, db, db, db, db)
	messages := service.NewMessageService(db, db, nil, logger)

	seeded := 0
	for i := 0; i < *convCount; i++ {
		creator := users[rand.Intn(len(users))]

		// Roughly half two-party threads, half small groups.
		size := 2
		if rand.Intn(2) == 0 {
			size = 3 + rand.Intn(3)
		}
		others := pickOthers(users, creator.ID, size-1)

		conv, err := conversations.Create(ctx, creator.ID, others, service.CreateConversationInput{})
		if err != nil {
			logger.Warn("skipping conversation", "error", err)
			continue
		}
		seeded++

		members := append([]int64{creator.ID}, others...)
		for m := 0; m < 1+rand.Intn(*messagesPer); m++ {
			sender := members[rand.Intn(len(members))]
			if _, err := messages.Send(ctx, sender, conv.ID, gofakeit.Sentence(4+rand.Intn(10))); err != nil {
				logger.Warn("failed to send seed message", "error", err)
			}
		}
	}

	logger.Info("seed complete", "users", len(users), "conversations", seeded)
}

func seedUsers(ctx context.Context, db *database.PostgresDB, count int, logger *slog.Logger) ([]*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		avatar := gofakeit.ImageURL(150, 150)
		user := &models.User{
			Username:       fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:          gofakeit.Email(),
			HashedPassword: string(hash),
			FullName:       gofakeit.Name(),
			AvatarURL:      &avatar,
		}
		if err := db.SaveUser(ctx, user); err != nil {
			logger.Warn("skipping user", "username", user.Username, "error", err)
			continue
		}
		users = append(users, user)
	}
	if len(users) < 2 {
		return nil, fmt.Errorf("not enough users seeded: %d", len(users))
	}
	return users, nil
}

// pickOthers selects n distinct user IDs, excluding the creator
func pickOthers(users []*models.User, excludeID int64, n int) []int64 {
	perm := rand.Perm(len(users))
	picked := make([]int64, 0, n)
	for _, idx := range perm {
		if users[idx].ID == excludeID {
			continue
		}
		picked = append(picked, users[idx].ID)
		if len(picked) == n {
			break
		}
	}
	return picked
}
