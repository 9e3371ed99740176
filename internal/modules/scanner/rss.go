package scanner

import (
	"context"
	"encoding/xml"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/content-machine/core/internal/config"
	"github.com/content-machine/core/internal/modules/pipeline"
)

const (
	rssEntriesPerFeed = 5
	rssMaxAge         = 24 * time.Hour
	rssSummaryLimit   = 500
)

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
}

var rssDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

func parseRSSDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range rssDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RSSFeeds fetches the configured feeds in priority order (lower number
// first) and keeps entries fresher than 24 hours.
func (s *Service) RSSFeeds(ctx context.Context, limit int) []Item {
	feeds := make([]config.FeedConfig, len(s.cfg.Feeds))
	copy(feeds, s.cfg.Feeds)
	sort.SliceStable(feeds, func(i, j int) bool { return feeds[i].Priority < feeds[j].Priority })

	var items []Item
	for _, feed := range feeds {
		items = append(items, s.fetchFeed(ctx, feed)...)
	}

	unique := dedupeBy(items, func(item Item) string { return item.Topic })
	if len(unique) > limit {
		unique = unique[:limit]
	}
	s.log.Info("rss articles fetched", zap.Int("count", len(unique)))
	return unique
}

// fetchFeed tries the primary URL, then the fallback. The first URL that
// yields articles wins.
func (s *Service) fetchFeed(ctx context.Context, feed config.FeedConfig) []Item {
	urls := []string{feed.URL}
	if feed.Fallback != "" {
		urls = append(urls, feed.Fallback)
	}

	for _, feedURL := range urls {
		body, err := s.requestWithRetry(ctx, feedURL, nil, "rss")
		if err != nil {
			s.log.Warn("rss fetch failed",
				zap.String("feed", feed.Name),
				zap.String("url", feedURL),
				zap.Error(err))
			continue
		}

		var doc rssDocument
		if err := xml.Unmarshal(body, &doc); err != nil {
			s.log.Warn("rss parse failed",
				zap.String("feed", feed.Name),
				zap.Error(err))
			continue
		}

		entries := doc.Channel.Items
		if len(entries) > rssEntriesPerFeed {
			entries = entries[:rssEntriesPerFeed]
		}

		cutoff := s.now().Add(-rssMaxAge)
		var items []Item
		for _, entry := range entries {
			if published, ok := parseRSSDate(entry.PubDate); ok && published.Before(cutoff) {
				continue
			}

			title := strings.TrimSpace(entry.Title)
			if len(title) <= 10 {
				continue
			}

			summary := entry.Description
			if runes := []rune(summary); len(runes) > rssSummaryLimit {
				summary = string(runes[:rssSummaryLimit])
			}

			items = append(items, Item{TopicData: pipeline.TopicData{
				Type:    "news",
				Source:  feed.Name,
				Topic:   title,
				Details: map[string]any{"description": summary},
				URL:     entry.Link,
			}})
		}

		if len(items) > 0 {
			return items
		}
	}
	return nil
}
