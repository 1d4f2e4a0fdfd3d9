package siteclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/varoOP/muaythaitickets/internal/booking"
	"github.com/varoOP/muaythaitickets/internal/contentcache"
	"github.com/varoOP/muaythaitickets/internal/domain"
)

const DefaultTimeout = 15 * time.Second

// Resources lists the read endpoints the client knows by name.
var Resources = []string{
	"hero",
	"highlights",
	"stadiums",
	"stadiumSchedules",
	"specialMatches",
	"dailyImages",
	"upcomingFightsBackground",
	"regularTickets",
	"specialTickets",
	"promptpayQR",
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// Client reads site content from the ticket API through an in-memory cache.
type Client struct {
	log     zerolog.Logger
	baseURL string
	cache   *contentcache.Cache
	fetcher contentcache.Fetcher
}

func New(log zerolog.Logger, baseURL string, cache *contentcache.Cache, fetcher contentcache.Fetcher) *Client {
	if fetcher == nil {
		fetcher = contentcache.NewHTTPFetcher(DefaultTimeout)
	}
	return &Client{
		log:     log.With().Str("module", "siteclient").Logger(),
		baseURL: strings.TrimRight(baseURL, "/"),
		cache:   cache,
		fetcher: fetcher,
	}
}

func (c *Client) url(resource string, query url.Values) string {
	u := c.baseURL + "/api/" + strings.TrimLeft(resource, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Get fetches resource and returns the envelope's data field.
func (c *Client) Get(ctx context.Context, resource string, query url.Values) (json.RawMessage, contentcache.Source, error) {
	u := c.url(resource, query)

	resp, err := c.cache.CachedRequest(ctx, c.fetcher, u, contentcache.RequestConfig{})
	if err != nil {
		return nil, "", apiError(err)
	}

	data, err := decode(resp.Body)
	if err != nil {
		return nil, "", errors.Wrapf(err, "GET %s", u)
	}

	c.log.Debug().Str("url", u).Str("source", string(resp.Source)).Msg("fetched")
	return data, resp.Source, nil
}

func (c *Client) getInto(ctx context.Context, resource string, query url.Values, out any) error {
	data, _, err := c.Get(ctx, resource, query)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "could not decode %s", resource)
	}
	return nil
}

func (c *Client) Hero(ctx context.Context) ([]domain.HeroImage, error) {
	var out []domain.HeroImage
	return out, c.getInto(ctx, "hero", nil, &out)
}

func (c *Client) Highlights(ctx context.Context) ([]domain.Highlight, error) {
	var out []domain.Highlight
	return out, c.getInto(ctx, "highlights", nil, &out)
}

func (c *Client) Stadiums(ctx context.Context) ([]domain.StadiumExtended, error) {
	var out []domain.StadiumExtended
	return out, c.getInto(ctx, "stadiums", nil, &out)
}

func (c *Client) StadiumSchedules(ctx context.Context) ([]domain.StadiumSchedule, error) {
	var out []domain.StadiumSchedule
	return out, c.getInto(ctx, "stadiumSchedules", nil, &out)
}

func (c *Client) SpecialMatches(ctx context.Context) ([]domain.SpecialMatch, error) {
	var out []domain.SpecialMatch
	return out, c.getInto(ctx, "specialMatches", nil, &out)
}

// DailyImages returns the payment images that apply on date. A zero date
// lets the server pick today.
func (c *Client) DailyImages(ctx context.Context, date time.Time) ([]domain.StadiumPaymentImage, error) {
	var query url.Values
	if !date.IsZero() {
		query = url.Values{"date": {date.Format("2006-01-02")}}
	}

	var out []domain.StadiumPaymentImage
	return out, c.getInto(ctx, "dailyImages", query, &out)
}

func (c *Client) UpcomingFightsBackground(ctx context.Context) (*domain.UpcomingFightsBackground, error) {
	var out domain.UpcomingFightsBackground
	if err := c.getInto(ctx, "upcomingFightsBackground", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RegularTickets(ctx context.Context, stadiumID string) ([]domain.RegularTicket, error) {
	var out []domain.RegularTicket
	return out, c.getInto(ctx, "regularTickets", stadiumQuery(stadiumID), &out)
}

func (c *Client) SpecialTickets(ctx context.Context, stadiumID string) ([]domain.SpecialTicket, error) {
	var out []domain.SpecialTicket
	return out, c.getInto(ctx, "specialTickets", stadiumQuery(stadiumID), &out)
}

func (c *Client) PromptPayQR(ctx context.Context) ([]domain.PromptPayQR, error) {
	var out []domain.PromptPayQR
	return out, c.getInto(ctx, "promptpayQR", nil, &out)
}

// CreateBooking posts a booking and returns its id. Cached booking reads are
// dropped afterwards.
func (c *Client) CreateBooking(ctx context.Context, req booking.CreateRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", errors.Wrap(err, "could not encode booking")
	}

	resp, err := c.cache.CachedRequest(ctx, c.fetcher, c.url("bookings", nil), contentcache.RequestConfig{
		Method: http.MethodPost,
		Body:   body,
	})
	if err != nil {
		return "", apiError(err)
	}

	data, err := decode(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "POST bookings")
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil {
		return "", errors.Wrap(err, "could not decode booking id")
	}

	if n := c.cache.Clear("bookings"); n > 0 {
		c.log.Debug().Int("removed", n).Msg("cleared cached bookings")
	}

	return created.ID, nil
}

// PreloadHeroImages warms the cache with the active hero images.
func (c *Client) PreloadHeroImages(ctx context.Context) (contentcache.PreloadResult, error) {
	images, err := c.Hero(ctx)
	if err != nil {
		return contentcache.PreloadResult{}, err
	}

	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, c.resolve(img.Image))
	}

	return c.cache.PreloadImages(ctx, c.fetcher, urls, contentcache.DefaultPreloadConcurrency), nil
}

// resolve makes site-relative image paths absolute against the API host.
func (c *Client) resolve(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	return c.baseURL + "/" + strings.TrimLeft(ref, "/")
}

func stadiumQuery(stadiumID string) url.Values {
	if stadiumID == "" {
		return nil
	}
	return url.Values{"stadium_id": {stadiumID}}
}

func decode(body []byte) (json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "malformed response")
	}
	if !env.Success {
		return nil, errors.Errorf("request failed: %s", env.Error)
	}
	return env.Data, nil
}

// apiError surfaces the envelope error of a non-2xx response.
func apiError(err error) error {
	var se *contentcache.StatusError
	if !errors.As(err, &se) {
		return err
	}

	var env envelope
	if json.Unmarshal(se.Body, &env) == nil && env.Error != "" {
		return errors.Wrapf(err, "%s", env.Error)
	}
	return err
}
