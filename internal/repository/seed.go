package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otcheredev/lab-report-portal/internal/auth"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/rs/zerolog/log"
)

// SeedUsers writes the catalog's seed users into the store. Users that
// already exist are left untouched. Entities outside the master list are
// dropped with a warning.
func SeedUsers(ctx context.Context, store UserStore, catalog *policy.Catalog) (int, error) {
	created := 0
	for _, seed := range catalog.Users {
		user, err := userFromSeed(seed, catalog)
		if err != nil {
			return created, err
		}
		err = store.Create(ctx, user)
		if errors.Is(err, ErrUserExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed user %s: %w", seed.Username, err)
		}
		created++
	}
	if created > 0 {
		log.Info().Int("users", created).Msg("Seeded users from catalog")
	}
	return created, nil
}

func userFromSeed(seed policy.SeedUser, catalog *policy.Catalog) (*models.User, error) {
	hash := seed.PasswordHash
	if hash == "" && seed.Password != "" {
		var err error
		if hash, err = auth.HashPassword(seed.Password); err != nil {
			return nil, err
		}
	}

	entities := make([]string, 0, len(seed.Entities))
	for _, entity := range seed.Entities {
		if !catalog.HasEntity(entity) {
			log.Warn().Str("username", seed.Username).Str("entity", entity).Msg("Dropping unknown entity from seed user")
			continue
		}
		entities = append(entities, entity)
	}

	return &models.User{
		Username:     seed.Username,
		Role:         models.Role(seed.Role),
		PasswordHash: hash,
		Email:        strings.TrimSpace(seed.Email),
		FullName:     seed.FullName,
		LastName:     seed.LastName,
		DateOfBirth:  seed.DateOfBirth,
		SSNLast4:     seed.SSNLast4,
		PatientID:    seed.PatientID,
		Entities:     entities,
	}, nil
}
