package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"MarketDigest/internal/domain"
	"MarketDigest/internal/ports"
	"MarketDigest/pkg/logger"
)

// NewsArticle is the persisted shape of a merged article. The link is the
// permanent deduplication key: an article seen in an earlier run is silently
// skipped on insert.
type NewsArticle struct {
	ID                uint   `gorm:"primaryKey"`
	Link              string `gorm:"uniqueIndex"`
	Title             string
	TranslatedTitle   string
	Summary           string
	TranslatedSummary string
	PubDate           string
	Category          string
	SourceName        string
	SourceLink        string
	CreatedAt         time.Time
}

// TableName pins the historical table name.
func (NewsArticle) TableName() string { return "news_articles" }

// NewsStore archives distinct articles into its own sqlite file.
type NewsStore struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ ports.NewsArchive = (*NewsStore)(nil)

// OpenNewsStore opens (creating if needed) the news archive and migrates
// its single table.
func OpenNewsStore(path string, log *slog.Logger) (*NewsStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.New(logger.New("gorm"), gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Warn,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open news db: %w", err)
	}
	if err := db.AutoMigrate(&NewsArticle{}); err != nil {
		return nil, fmt.Errorf("migrate news db: %w", err)
	}
	return &NewsStore{db: db, logger: log}, nil
}

// SaveArticles inserts merged articles, ignoring links already archived.
// A failed insert is logged and does not abort the rest of the batch.
// Returns how many articles were actually new.
func (s *NewsStore) SaveArticles(ctx context.Context, articles []domain.Article) (int, error) {
	saved := 0
	for _, art := range articles {
		row := NewsArticle{
			Link:              art.Link,
			Title:             art.Title,
			TranslatedTitle:   art.TranslatedTitle,
			Summary:           art.Summary,
			TranslatedSummary: art.TranslatedSummary,
			Category:          art.Category,
		}
		if art.Category == "" {
			row.Category = "Others"
		}
		if art.PublishedAt != nil {
			row.PubDate = art.PublishedAt.UTC().Format(time.RFC3339)
		}
		if len(art.Sources) > 0 {
			row.SourceName = art.Sources[0].Name
			row.SourceLink = art.Sources[0].Link
		} else {
			row.SourceName = art.SourceName
			row.SourceLink = art.Link
		}

		res := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row)
		if res.Error != nil {
			s.warn("archive article failed", "link", art.Link, "error", res.Error)
			continue
		}
		if res.RowsAffected > 0 {
			saved++
		}
	}

	if saved > 0 {
		s.debug("archived new articles", "count", saved)
	}
	return saved, nil
}

// Close releases the underlying connection.
func (s *NewsStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

func (s *NewsStore) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *NewsStore) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
