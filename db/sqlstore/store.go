// Package sqlstore provides a SQL implementation of the catalog store
// backed by gorm. SQLite and PostgreSQL are supported.
package sqlstore

import (
	"context"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"datanorm-pricing/decision/catalog"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ArticleRow is the persisted form of catalog.Article
type ArticleRow struct {
	ArticleNo     string              `gorm:"column:article_no;primaryKey"`
	Name          string              `gorm:"column:name;not null;default:''"`
	Unit          *string             `gorm:"column:unit"`
	ListPrice     decimal.NullDecimal `gorm:"column:list_price;type:numeric"`
	PurchasePrice decimal.NullDecimal `gorm:"column:purchase_price;type:numeric"`
	RawLine       string              `gorm:"column:raw_line;not null"`
}

func (ArticleRow) TableName() string { return "articles" }

// PriceStepRow is the persisted form of catalog.PriceStep
type PriceStepRow struct {
	ArticleNo     string              `gorm:"column:article_no;primaryKey"`
	StepCode      string              `gorm:"column:step_code;primaryKey"`
	Description   string              `gorm:"column:description"`
	PriceKind     *int                `gorm:"column:price_kind"`
	Sign          *string             `gorm:"column:sign"`
	BasePriceType *int                `gorm:"column:base_price_type"`
	Value         decimal.NullDecimal `gorm:"column:value;type:numeric"`
	MinQuantity   decimal.NullDecimal `gorm:"column:min_quantity;type:numeric"`
	MaxQuantity   decimal.NullDecimal `gorm:"column:max_quantity;type:numeric"`
	RawLine       string              `gorm:"column:raw_line;not null"`
}

func (PriceStepRow) TableName() string { return "price_steps" }

// Store implements catalog.Store on a SQL database
type Store struct {
	db           *gorm.DB
	articleOrder string
}

var _ catalog.Store = (*Store)(nil)

// Open connects to the database and migrates the catalog schema
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		// database/sql connections come from lib/pq, registered as "postgres".
		dialector = postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        dsn,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return New(db)
}

// New wraps an open connection and migrates the catalog schema
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ArticleRow{}, &PriceStepRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	return &Store{db: db, articleOrder: articleOrder(db.Dialector.Name())}, nil
}

// articleOrder sorts article numbers bytewise on every backend.
func articleOrder(dialect string) string {
	if dialect == DriverPostgres {
		return `article_no COLLATE "C"`
	}
	return "article_no"
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UpsertArticle merges the article into the stored row inside a transaction
func (s *Store) UpsertArticle(ctx context.Context, article catalog.Article) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []ArticleRow
		if err := tx.Where("article_no = ?", article.ArticleNo).Limit(1).Find(&existing).Error; err != nil {
			return fmt.Errorf("failed to read article %s: %w", article.ArticleNo, err)
		}

		merged := article
		if len(existing) > 0 {
			merged = catalog.MergeArticle(existing[0].toArticle(), article)
		}

		row := articleRowFrom(merged)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_no"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "unit", "list_price", "purchase_price", "raw_line"}),
		}).Create(&row).Error
	})
}

// UpsertPriceStep inserts the step or overwrites every column of the stored one
func (s *Store) UpsertPriceStep(ctx context.Context, step catalog.PriceStep) error {
	row := priceStepRowFrom(step)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "article_no"}, {Name: "step_code"}},
		UpdateAll: true,
	}).Create(&row).Error
}

// LookupArticle returns the article and its ordered steps, or nil
func (s *Store) LookupArticle(ctx context.Context, articleNo string) (*catalog.ArticleView, error) {
	var rows []ArticleRow
	if err := s.db.WithContext(ctx).Where("article_no = ?", articleNo).Limit(1).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to lookup article %s: %w", articleNo, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	steps, err := s.PriceSteps(ctx, []string{articleNo})
	if err != nil {
		return nil, err
	}
	view := &catalog.ArticleView{
		Article:    rows[0].toArticle(),
		PriceSteps: steps[articleNo],
	}
	if view.PriceSteps == nil {
		view.PriceSteps = []catalog.PriceStep{}
	}
	return view, nil
}

// FirstArticleNo returns the smallest article number
func (s *Store) FirstArticleNo(ctx context.Context) (string, bool, error) {
	var nos []string
	err := s.db.WithContext(ctx).Model(&ArticleRow{}).
		Order(s.articleOrder).
		Limit(1).
		Pluck("article_no", &nos).Error
	if err != nil {
		return "", false, fmt.Errorf("failed to read first article: %w", err)
	}
	if len(nos) == 0 {
		return "", false, nil
	}
	return nos[0], true, nil
}

// ListArticles returns articles ordered by article number
func (s *Store) ListArticles(ctx context.Context, filter catalog.ListFilter) ([]catalog.Article, error) {
	query := s.db.WithContext(ctx).Order(s.articleOrder)
	if filter.ArticleNo != "" {
		query = query.Where("article_no = ?", filter.ArticleNo)
	} else if filter.Limit != nil && *filter.Limit >= 0 {
		query = query.Limit(*filter.Limit)
	}

	var rows []ArticleRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}

	articles := make([]catalog.Article, 0, len(rows))
	for _, row := range rows {
		articles = append(articles, row.toArticle())
	}
	return articles, nil
}

// PriceSteps returns the ordered steps of every requested article that has any
func (s *Store) PriceSteps(ctx context.Context, articleNos []string) (map[string][]catalog.PriceStep, error) {
	result := make(map[string][]catalog.PriceStep, len(articleNos))
	if len(articleNos) == 0 {
		return result, nil
	}

	var rows []PriceStepRow
	if err := s.db.WithContext(ctx).Where("article_no IN ?", articleNos).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load price steps: %w", err)
	}

	for _, row := range rows {
		result[row.ArticleNo] = append(result[row.ArticleNo], row.toPriceStep())
	}
	for _, steps := range result {
		catalog.SortSteps(steps)
	}
	return result, nil
}

// Counts returns the number of stored articles and price steps
func (s *Store) Counts(ctx context.Context) (articles, steps int64, err error) {
	db := s.db.WithContext(ctx)
	if err = db.Model(&ArticleRow{}).Count(&articles).Error; err != nil {
		return 0, 0, err
	}
	if err = db.Model(&PriceStepRow{}).Count(&steps).Error; err != nil {
		return 0, 0, err
	}
	return articles, steps, nil
}

func articleRowFrom(a catalog.Article) ArticleRow {
	return ArticleRow{
		ArticleNo:     a.ArticleNo,
		Name:          a.Name,
		Unit:          a.Unit,
		ListPrice:     a.ListPrice,
		PurchasePrice: a.PurchasePrice,
		RawLine:       a.RawLine,
	}
}

func (r ArticleRow) toArticle() catalog.Article {
	return catalog.Article{
		ArticleNo:     r.ArticleNo,
		Name:          r.Name,
		Unit:          r.Unit,
		ListPrice:     r.ListPrice,
		PurchasePrice: r.PurchasePrice,
		RawLine:       r.RawLine,
	}
}

func priceStepRowFrom(p catalog.PriceStep) PriceStepRow {
	return PriceStepRow{
		ArticleNo:     p.ArticleNo,
		StepCode:      p.StepCode,
		Description:   p.Description,
		PriceKind:     p.PriceKind,
		Sign:          p.Sign,
		BasePriceType: p.BasePriceType,
		Value:         p.Value,
		MinQuantity:   p.MinQuantity,
		MaxQuantity:   p.MaxQuantity,
		RawLine:       p.RawLine,
	}
}

func (r PriceStepRow) toPriceStep() catalog.PriceStep {
	return catalog.PriceStep{
		ArticleNo:     r.ArticleNo,
		StepCode:      r.StepCode,
		Description:   r.Description,
		PriceKind:     r.PriceKind,
		Sign:          r.Sign,
		BasePriceType: r.BasePriceType,
		Value:         r.Value,
		MinQuantity:   r.MinQuantity,
		MaxQuantity:   r.MaxQuantity,
		RawLine:       r.RawLine,
	}
}
