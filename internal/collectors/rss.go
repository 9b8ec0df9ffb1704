package collectors

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketcore/internal/domain"
	"github.com/aristath/marketcore/internal/publisher"
	coreerrors "github.com/aristath/marketcore/internal/corepipeline/errors"
)

// rssFeed is the minimal subset of RSS 2.0 this collector understands,
// grounded on original_source's generic feed parser.
type rssFeed struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	GUID        string `xml:"guid"`
	PubDate     string `xml:"pubDate"`
	Author      string `xml:"author"`
}

// RSSCollector is an event-based collector polling one or more RSS feed
// URLs and emitting a RawEvent per item, with symbols extracted from the
// item's title and description.
type RSSCollector struct {
	Base
	feedURLs    []string
	rateLimiter *RateLimiter
}

// NewRSSCollector constructs an RSS collector for the given feed URLs.
func NewRSSCollector(feedURLs []string, requestsPerMinute int, pub *publisher.Publisher, log zerolog.Logger) *RSSCollector {
	return &RSSCollector{
		Base:        NewBase("rss", domain.SourceRSS, pub, log),
		feedURLs:    feedURLs,
		rateLimiter: NewRateLimiter(requestsPerMinute),
	}
}

// Collect fetches every configured feed URL (or just the one named by
// params["url"] if set) and publishes one RawEvent per item.
func (c *RSSCollector) Collect(ctx context.Context, params map[string]string) (int, error) {
	urls := c.feedURLs
	if u, ok := params["url"]; ok && u != "" {
		urls = []string{u}
	}
	if len(urls) == 0 {
		return 0, nil
	}

	var events []*domain.RawEvent
	now := time.Now().UTC()
	for _, feedURL := range urls {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return 0, err
		}
		items, err := c.fetchFeed(ctx, feedURL)
		if err != nil {
			c.Log().Warn().Err(err).Str("feed_url", feedURL).Msg("rss feed fetch failed")
			continue
		}
		for _, item := range items {
			event, err := c.itemToEvent(item, now)
			if err != nil {
				c.Log().Warn().Err(err).Msg("skipping malformed rss item")
				continue
			}
			events = append(events, event)
		}
	}
	if len(events) == 0 {
		return 0, nil
	}

	report, err := c.PublishEvents(ctx, events)
	return report.Succeeded, err
}

func (c *RSSCollector) fetchFeed(ctx context.Context, feedURL string) ([]rssItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTPClient().Do(req)
	if err != nil {
		return nil, &coreerrors.ExternalServiceError{Service: "rss", Details: feedURL, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &coreerrors.ExternalServiceError{Service: "rss", StatusCode: resp.StatusCode, Details: feedURL}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("rss: parse %s: %w", feedURL, err)
	}
	return feed.Channel.Items, nil
}

func (c *RSSCollector) itemToEvent(item rssItem, now time.Time) (*domain.RawEvent, error) {
	content := item.Title
	if item.Description != "" {
		content = fmt.Sprintf("%s - %s", item.Title, item.Description)
	}
	symbols := domain.ExtractSymbols(content)
	metadata := domain.Metadata{"link": item.Link}

	sourceID := item.GUID
	if sourceID == "" {
		sourceID = item.Link
	}
	event, err := domain.NewRawEvent(domain.SourceRSS, sourceID, content, metadata, symbols, now)
	if err != nil {
		return nil, err
	}
	if item.Title != "" {
		title := item.Title
		event.Title = &title
	}
	if item.Link != "" {
		url := item.Link
		event.URL = &url
	}
	if item.Author != "" {
		author := item.Author
		event.Author = &author
	}
	if published, err := parseRSSTime(item.PubDate); err == nil {
		event.PublishedAt = &published
	}
	return event, nil
}

func parseRSSTime(value string) (time.Time, error) {
	layouts := []string{time.RFC1123Z, time.RFC1123, time.RFC3339}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}
