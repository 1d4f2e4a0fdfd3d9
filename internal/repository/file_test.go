package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const seedYAML = `
heroImages:
  - image: /img/hero-1.jpg
    title: Friday Night Fights
    sortOrder: 1
    isActive: true
stadiums:
  - stadiumId: lumpinee
    scheduleDays: [2, 5, 6]
  - stadiumId: rajadamnern
regularTickets:
  - stadiumId: lumpinee
    name: Ringside
    price: 2500
upcomingFightsBackground:
  image: /img/upcoming.jpg
stadiumPaymentImages:
  - stadiumId: lumpinee
    image: /img/pay-weekend.png
    days: [0, 6]
`

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestFileRepository_GetSeed(t *testing.T) {
	repo := NewFileRepository(zerolog.Nop())

	seed, err := repo.GetSeed(context.Background(), writeFile(t, "content.yaml", seedYAML))
	require.NoError(t, err)

	require.Len(t, seed.HeroImages, 1)
	assert.True(t, seed.HeroImages[0].IsActive)
	assert.Equal(t, 1, seed.HeroImages[0].SortOrder)

	require.Len(t, seed.Stadiums, 2)
	assert.Equal(t, domain.Weekdays{2, 5, 6}, seed.Stadiums[0].ScheduleDays)
	assert.Nil(t, seed.Stadiums[1].ScheduleDays)

	require.NotNil(t, seed.UpcomingFightsBackground)
	assert.Equal(t, "/img/upcoming.jpg", seed.UpcomingFightsBackground.Image)
	assert.Equal(t, domain.Weekdays{0, 6}, seed.StadiumPaymentImages[0].Days)
}

func TestFileRepository_GetSeedErrors(t *testing.T) {
	repo := NewFileRepository(zerolog.Nop())
	ctx := context.Background()

	_, err := repo.GetSeed(ctx, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "does not exist")

	_, err = repo.GetSeed(ctx, t.TempDir())
	assert.ErrorContains(t, err, "directory")

	_, err = repo.GetSeed(ctx, writeFile(t, "typo.yaml", "heroImage:\n  - image: a.jpg\n"))
	assert.ErrorContains(t, err, "heroImage")

	_, err = repo.GetSeed(ctx, writeFile(t, "days.yaml", "stadiumPaymentImages:\n  - stadiumId: lumpinee\n    image: a.png\n    days: [7]\n"))
	assert.ErrorContains(t, err, "out of range")
}

func TestFileRepository_EmptySeed(t *testing.T) {
	repo := NewFileRepository(zerolog.Nop())

	seed, err := repo.GetSeed(context.Background(), writeFile(t, "empty.yaml", ""))
	require.NoError(t, err)
	assert.Empty(t, seed.Stadiums)
}

func TestFileRepository_StoreSeed(t *testing.T) {
	repo := NewFileRepository(zerolog.Nop())
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "nested", "content.yaml")
	want := &domain.ContentSeed{
		PromptPayQR: []domain.PromptPayQR{{Image: "/img/qr.png", AccountName: "Muay Thai Tickets"}},
		StadiumPaymentImages: []domain.StadiumPaymentImage{
			{StadiumID: "rajadamnern", Image: "/img/pay.png", Days: domain.Weekdays{1, 2, 3}},
		},
	}
	require.NoError(t, repo.StoreSeed(ctx, path, want))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "accountName: Muay Thai Tickets")

	got, err := repo.GetSeed(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, want.PromptPayQR, got.PromptPayQR)
	assert.Equal(t, want.StadiumPaymentImages, got.StadiumPaymentImages)
}
