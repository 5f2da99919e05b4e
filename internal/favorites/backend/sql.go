package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/csheth/recipescout/internal/favorites"
)

// Favorite is the row stored per owner and link.
type Favorite struct {
	ID        uint   `gorm:"primaryKey"`
	Owner     string `gorm:"not null;uniqueIndex:idx_favorites_owner_link"`
	Link      string `gorm:"not null;uniqueIndex:idx_favorites_owner_link"`
	Name      string `gorm:"not null"`
	ImageURL  string `gorm:"not null"`
	CreatedAt time.Time
}

func (Favorite) TableName() string {
	return "favorites"
}

// OpenSQL opens a postgres or sqlite database and migrates the favorites table.
func OpenSQL(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite", "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if dialector.Name() == "sqlite" {
		// Each connection to :memory: is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Favorite{}); err != nil {
		return nil, fmt.Errorf("migrate favorites: %w", err)
	}
	return db, nil
}

// SQL stores favorites in a relational database through gorm.
type SQL struct {
	db *gorm.DB
}

func NewSQL(db *gorm.DB) *SQL {
	return &SQL{db: db}
}

func (s *SQL) List(ctx context.Context, owner string) ([]favorites.Entry, error) {
	var rows []Favorite
	if err := s.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("created_at, id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sql list favorites: %w", err)
	}
	out := make([]favorites.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, favorites.Entry{Name: row.Name, URL: row.ImageURL, Link: row.Link})
	}
	return out, nil
}

func (s *SQL) Insert(ctx context.Context, owner string, e favorites.Entry) error {
	db := s.db.WithContext(ctx)
	var n int64
	if err := db.Model(&Favorite{}).Where("owner = ? AND link = ?", owner, e.Link).Count(&n).Error; err != nil {
		return fmt.Errorf("sql add favorite: %w", err)
	}
	if n > 0 {
		return ErrDuplicate
	}
	row := Favorite{Owner: owner, Link: e.Link, Name: e.Name, ImageURL: e.URL}
	err := db.Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("sql add favorite: %w", err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, owner, link string) error {
	res := s.db.WithContext(ctx).
		Where("owner = ? AND link = ?", owner, link).
		Delete(&Favorite{})
	if res.Error != nil {
		return fmt.Errorf("sql remove favorite: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return favorites.ErrNotFound
	}
	return nil
}
