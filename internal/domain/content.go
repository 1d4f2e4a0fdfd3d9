package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
)

// Weekdays is a set of weekday numbers, Sunday = 0 through Saturday = 6.
// It is stored as a JSON array in TEXT columns.
type Weekdays []int

// AllWeekdays is the day-set used when a stadium has no schedule configured.
func AllWeekdays() Weekdays {
	return Weekdays{0, 1, 2, 3, 4, 5, 6}
}

// ParseWeekdays decodes a JSON array of weekday numbers and rejects values outside 0-6.
func ParseWeekdays(raw string) (Weekdays, error) {
	var days Weekdays
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, errors.Wrapf(err, "invalid weekday list %q", raw)
	}
	if err := days.Validate(); err != nil {
		return nil, err
	}
	return days, nil
}

func (w Weekdays) Validate() error {
	for _, d := range w {
		if d < 0 || d > 6 {
			return errors.Errorf("weekday %d out of range 0-6", d)
		}
	}
	return nil
}

func (w Weekdays) Contains(day time.Weekday) bool {
	for _, d := range w {
		if d == int(day) {
			return true
		}
	}
	return false
}

// String encodes the set as the JSON text stored in the database.
func (w Weekdays) String() string {
	if w == nil {
		return "[]"
	}
	b, _ := json.Marshal([]int(w))
	return string(b)
}

type HeroImage struct {
	ID        int64  `json:"id" yaml:"-"`
	Image     string `json:"image" yaml:"image"`
	Title     string `json:"title,omitempty" yaml:"title"`
	Subtitle  string `json:"subtitle,omitempty" yaml:"subtitle"`
	SortOrder int    `json:"sort_order" yaml:"sortOrder"`
	IsActive  bool   `json:"is_active" yaml:"isActive"`
}

type Highlight struct {
	ID          int64  `json:"id" yaml:"-"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description,omitempty" yaml:"description"`
	Image       string `json:"image,omitempty" yaml:"image"`
	VideoURL    string `json:"video_url,omitempty" yaml:"videoUrl"`
	SortOrder   int    `json:"sort_order" yaml:"sortOrder"`
}

type RegularTicket struct {
	ID        int64   `json:"id" yaml:"-"`
	StadiumID string  `json:"stadium_id" yaml:"stadiumId"`
	Name      string  `json:"name" yaml:"name"`
	Zone      string  `json:"zone,omitempty" yaml:"zone"`
	Price     float64 `json:"price" yaml:"price"`
	Seats     int     `json:"seats" yaml:"seats"`
}

type SpecialTicket struct {
	ID        int64   `json:"id" yaml:"-"`
	StadiumID string  `json:"stadium_id" yaml:"stadiumId"`
	Name      string  `json:"name" yaml:"name"`
	Zone      string  `json:"zone,omitempty" yaml:"zone"`
	Price     float64 `json:"price" yaml:"price"`
	Date      string  `json:"date,omitempty" yaml:"date"`
	Seats     int     `json:"seats" yaml:"seats"`
}

// StadiumExtended carries per-stadium attributes that the legacy stadiums table lacks.
type StadiumExtended struct {
	ID           int64    `json:"id" yaml:"-"`
	StadiumID    string   `json:"stadium_id" yaml:"stadiumId"`
	ScheduleDays Weekdays `json:"schedule_days" yaml:"scheduleDays"`
	Description  string   `json:"description,omitempty" yaml:"description"`
	MapURL       string   `json:"map_url,omitempty" yaml:"mapUrl"`
}

type SpecialMatch struct {
	ID        int64  `json:"id" yaml:"-"`
	StadiumID string `json:"stadium_id" yaml:"stadiumId"`
	Title     string `json:"title" yaml:"title"`
	Date      string `json:"date,omitempty" yaml:"date"`
	Image     string `json:"image,omitempty" yaml:"image"`
}

type UpcomingFightsBackground struct {
	ID    int64  `json:"id" yaml:"-"`
	Image string `json:"image" yaml:"image"`
}

type PromptPayQR struct {
	ID          int64  `json:"id" yaml:"-"`
	StadiumID   string `json:"stadium_id,omitempty" yaml:"stadiumId"`
	Image       string `json:"image" yaml:"image"`
	AccountName string `json:"account_name,omitempty" yaml:"accountName"`
}

// StadiumPaymentImage is the payment image shown for a stadium on the given days.
// A stadium may have several rows, one per day-set.
type StadiumPaymentImage struct {
	ID        int64     `json:"id" yaml:"-"`
	StadiumID string    `json:"stadium_id" yaml:"stadiumId"`
	Image     string    `json:"image" yaml:"image"`
	Days      Weekdays  `json:"days" yaml:"days"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// StadiumSchedule is the schedule projection of StadiumExtended.
type StadiumSchedule struct {
	StadiumID    string   `json:"stadium_id"`
	ScheduleDays Weekdays `json:"schedule_days"`
}

// ContentSeed is the editable site content loaded by the seed command.
type ContentSeed struct {
	HeroImages               []HeroImage               `yaml:"heroImages"`
	Highlights               []Highlight               `yaml:"highlights"`
	RegularTickets           []RegularTicket           `yaml:"regularTickets"`
	SpecialTickets           []SpecialTicket           `yaml:"specialTickets"`
	Stadiums                 []StadiumExtended         `yaml:"stadiums"`
	SpecialMatches           []SpecialMatch            `yaml:"specialMatches"`
	UpcomingFightsBackground *UpcomingFightsBackground `yaml:"upcomingFightsBackground"`
	PromptPayQR              []PromptPayQR             `yaml:"promptpayQR"`
	StadiumPaymentImages     []StadiumPaymentImage     `yaml:"stadiumPaymentImages"`
}

type ContentRepo interface {
	ListHeroImages(ctx context.Context) ([]HeroImage, error)
	ListHighlights(ctx context.Context) ([]Highlight, error)
	ListRegularTickets(ctx context.Context, stadiumID string) ([]RegularTicket, error)
	ListSpecialTickets(ctx context.Context, stadiumID string) ([]SpecialTicket, error)
	ListStadiums(ctx context.Context) ([]StadiumExtended, error)
	ListSpecialMatches(ctx context.Context) ([]SpecialMatch, error)
	GetUpcomingFightsBackground(ctx context.Context) (*UpcomingFightsBackground, error)
	ListPromptPayQR(ctx context.Context) ([]PromptPayQR, error)
	Seed(ctx context.Context, seed *ContentSeed) error
}

type StadiumPaymentImageRepo interface {
	Create(ctx context.Context, img *StadiumPaymentImage) error
	List(ctx context.Context, stadiumID string) ([]StadiumPaymentImage, error)
	ForDate(ctx context.Context, stadiumID string, date time.Time) (*StadiumPaymentImage, error)
}

// ContentSeedRepository loads content seed documents.
type ContentSeedRepository interface {
	GetSeed(ctx context.Context, path string) (*ContentSeed, error)
	StoreSeed(ctx context.Context, path string, seed *ContentSeed) error
}
