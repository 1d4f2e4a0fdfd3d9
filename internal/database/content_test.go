package database

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

func testSeed() *domain.ContentSeed {
	return &domain.ContentSeed{
		HeroImages: []domain.HeroImage{
			{Image: "hero-2.jpg", SortOrder: 2, IsActive: true},
			{Image: "hero-1.jpg", Title: "Fight night", SortOrder: 1, IsActive: true},
			{Image: "hidden.jpg", IsActive: false},
		},
		Highlights: []domain.Highlight{
			{Title: "Knockout", VideoURL: "https://example.com/ko.mp4"},
		},
		RegularTickets: []domain.RegularTicket{
			{StadiumID: "rajadamnern", Name: "Ringside", Price: 2500, Seats: 40},
			{StadiumID: "lumpinee", Name: "Standard", Price: 1500, Seats: 200},
		},
		SpecialTickets: []domain.SpecialTicket{
			{StadiumID: "rajadamnern", Name: "Title fight", Price: 5000, Date: "2024-02-01"},
		},
		Stadiums: []domain.StadiumExtended{
			{StadiumID: "rajadamnern", ScheduleDays: domain.Weekdays{1, 3, 4, 0}},
			{StadiumID: "lumpinee"},
		},
		SpecialMatches: []domain.SpecialMatch{
			{StadiumID: "lumpinee", Title: "Anniversary", Date: "2024-02-10"},
		},
		UpcomingFightsBackground: &domain.UpcomingFightsBackground{Image: "bg.jpg"},
		PromptPayQR: []domain.PromptPayQR{
			{StadiumID: "rajadamnern", Image: "qr.png", AccountName: "Rajadamnern Co."},
		},
		StadiumPaymentImages: []domain.StadiumPaymentImage{
			{StadiumID: "lumpinee", Image: "pay.png", Days: domain.Weekdays{6}},
		},
	}
}

func TestContentRepo_Seed(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewContentRepo(zerolog.Nop(), db)

	require.NoError(t, repo.Seed(ctx, testSeed()))

	heroes, err := repo.ListHeroImages(ctx)
	require.NoError(t, err)
	require.Len(t, heroes, 2)
	assert.Equal(t, "hero-1.jpg", heroes[0].Image)
	assert.Equal(t, "Fight night", heroes[0].Title)

	highlights, err := repo.ListHighlights(ctx)
	require.NoError(t, err)
	require.Len(t, highlights, 1)
	assert.Equal(t, "https://example.com/ko.mp4", highlights[0].VideoURL)

	regular, err := repo.ListRegularTickets(ctx, "lumpinee")
	require.NoError(t, err)
	require.Len(t, regular, 1)
	assert.Equal(t, "Standard", regular[0].Name)

	all, err := repo.ListRegularTickets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	special, err := repo.ListSpecialTickets(ctx, "")
	require.NoError(t, err)
	require.Len(t, special, 1)
	assert.Equal(t, "2024-02-01", special[0].Date)

	stadiums, err := repo.ListStadiums(ctx)
	require.NoError(t, err)
	require.Len(t, stadiums, 2)
	assert.Equal(t, "lumpinee", stadiums[0].StadiumID)
	assert.Equal(t, domain.AllWeekdays(), stadiums[0].ScheduleDays)
	assert.Equal(t, domain.Weekdays{1, 3, 4, 0}, stadiums[1].ScheduleDays)

	matches, err := repo.ListSpecialMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	bg, err := repo.GetUpcomingFightsBackground(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bg.jpg", bg.Image)

	qr, err := repo.ListPromptPayQR(ctx)
	require.NoError(t, err)
	require.Len(t, qr, 1)
	assert.Equal(t, "Rajadamnern Co.", qr[0].AccountName)

	img, err := NewStadiumPaymentImageRepo(zerolog.Nop(), db).ForDate(ctx, "lumpinee", time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "pay.png", img.Image)

	// Stadium rows are upserted on a second seed.
	require.NoError(t, repo.Seed(ctx, &domain.ContentSeed{
		Stadiums: []domain.StadiumExtended{{StadiumID: "lumpinee", ScheduleDays: domain.Weekdays{2}}},
	}))
	stadiums, err = repo.ListStadiums(ctx)
	require.NoError(t, err)
	require.Len(t, stadiums, 2)
	assert.Equal(t, domain.Weekdays{2}, stadiums[0].ScheduleDays)
}

func TestContentRepo_SeedIsAtomic(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewContentRepo(zerolog.Nop(), db)

	seed := testSeed()
	seed.StadiumPaymentImages[0].Days = domain.Weekdays{9}

	assert.Error(t, repo.Seed(ctx, seed))

	heroes, err := repo.ListHeroImages(ctx)
	require.NoError(t, err)
	assert.Empty(t, heroes)

	_, err = repo.GetUpcomingFightsBackground(ctx)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContentRepo_ListStadiumsToleratesBadDays(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	repo := NewContentRepo(zerolog.Nop(), db)

	require.NoError(t, execAll(ctx, db.handler,
		`INSERT INTO stadiums_extended (stadium_id, schedule_days) VALUES ('omnoi', 'garbage')`))

	stadiums, err := repo.ListStadiums(ctx)
	require.NoError(t, err)
	require.Len(t, stadiums, 1)
	assert.Equal(t, domain.AllWeekdays(), stadiums[0].ScheduleDays)
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)
	payments := NewPaymentRepo(zerolog.Nop(), db)

	for _, ref := range []string{"PAY1", "PAY2", "PAY3", "PAY4", "PAY5", "PAY6"} {
		require.NoError(t, payments.Create(ctx, testPayment(ref, time.Now())))
	}

	report := db.Inspect(ctx, 5)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 5, report.UserVersion)
	require.Len(t, report.Tables, len(InspectedTables()))

	for _, table := range report.Tables {
		assert.True(t, table.Exists, table.Name)
		assert.NotEmpty(t, table.Columns, table.Name)
		if table.Name == "payments" {
			assert.Equal(t, int64(6), table.RowCount)
		}
	}

	require.Len(t, report.RecentPayments, 5)
	assert.Equal(t, "PAY6", report.RecentPayments[0].ReferenceNo)
	assert.Equal(t, "PAY2", report.RecentPayments[4].ReferenceNo)
}

func TestInspect_EmptyDatabase(t *testing.T) {
	db := newTestDB(t)

	report := db.Inspect(context.Background(), 5)
	assert.Empty(t, report.Errors)
	assert.Equal(t, 0, report.UserVersion)
	for _, table := range report.Tables {
		assert.False(t, table.Exists, table.Name)
	}
	assert.Empty(t, report.RecentPayments)
}
