// Command seed provisions the initial admin account and a starter catalog.
// Safe to run repeatedly: existing rows are left untouched.
package main

import (
	"context"
	"errors"
	"flag"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"fitness-coaching-platform/internal/config"
	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
	"fitness-coaching-platform/internal/infra/db/postgres"
	"fitness-coaching-platform/internal/infra/logging"
)

func main() {
	var (
		configPath    = flag.String("config", "config.yaml", "path to the YAML config file")
		adminEmail    = flag.String("admin-email", "admin@example.com", "initial admin email")
		adminPassword = flag.String("admin-password", "", "initial admin password (required on first run)")
	)
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, true)
	if err != nil {
		panic(err)
	}
	log := logging.New(cfg.Log, true)

	ctx := context.Background()
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 2)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	userRepo := postgres.NewUserRepo(pool)
	packageRepo := postgres.NewPackageRepo(pool)

	// admin account
	if _, err := userRepo.FindByEmail(ctx, nil, *adminEmail); errors.Is(err, domain.ErrNotFound) {
		if *adminPassword == "" {
			log.Fatal().Msg("admin account missing and -admin-password not given")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*adminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Fatal().Err(err).Msg("bcrypt failed")
		}
		admin, err := model.NewUser(uuid.NewString(), *adminEmail, string(hash), "Admin", model.RoleAdmin)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid admin account")
		}
		if err := userRepo.Save(ctx, nil, admin); err != nil {
			log.Fatal().Err(err).Msg("failed to save admin account")
		}
		log.Info().Str("email", *adminEmail).Msg("admin account created")
	} else if err != nil {
		log.Fatal().Err(err).Msg("failed to check admin account")
	} else {
		log.Info().Str("email", *adminEmail).Msg("admin account already present")
	}

	// starter catalog
	existing, err := packageRepo.List(ctx, nil, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list packages")
	}
	if len(existing) > 0 {
		log.Info().Int("count", len(existing)).Msg("catalog already seeded")
		return
	}

	starters := []struct {
		name     string
		price    int64
		days     int
		features []string
		excluded []string
	}{
		{
			name: "Başlangıç", price: 399, days: 30,
			features: []string{"Kişisel antrenman programı", "Aylık program güncellemesi"},
			excluded: []string{"Beslenme programı", "WhatsApp desteği"},
		},
		{
			name: "Premium", price: 599, days: 30,
			features: []string{"Kişisel antrenman programı", "Beslenme programı", "Haftalık takip"},
			excluded: []string{"Birebir görüntülü görüşme"},
		},
		{
			name: "VIP", price: 1299, days: 30,
			features: []string{"Kişisel antrenman programı", "Beslenme programı", "WhatsApp desteği", "Birebir görüntülü görüşme"},
		},
	}
	for _, s := range starters {
		pkg, err := model.NewPackage(uuid.NewString(), s.name, s.price, "TRY", s.days, s.features, s.excluded)
		if err != nil {
			log.Fatal().Err(err).Str("name", s.name).Msg("invalid starter package")
		}
		if err := packageRepo.Save(ctx, nil, pkg); err != nil {
			log.Fatal().Err(err).Str("name", s.name).Msg("failed to save starter package")
		}
		log.Info().Str("name", s.name).Int64("price", s.price).Msg("package seeded")
	}
}
