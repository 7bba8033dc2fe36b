package visitor

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository defines persistence operations for crawler visits.
type Repository interface {
	Record(ctx context.Context, visit *Visit) error
	CountVisits(ctx context.Context) (int64, error)
	TopClients(ctx context.Context, limit int) ([]ClientCount, error)
	RecentVisits(ctx context.Context, limit int) ([]Visit, error)
}

// ClientCount aggregates hits per client address.
type ClientCount struct {
	ClientIP string
	Hits     int64
}

const defaultListLimit = 10

// GormRepository persists visits using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewRepository constructs a Gorm-backed repository implementation.
func NewRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// Record stores one crawler hit.
func (r *GormRepository) Record(ctx context.Context, visit *Visit) error {
	if visit == nil {
		return eris.New("visit is nil")
	}

	if strings.TrimSpace(visit.Path) == "" {
		return eris.New("visit path is required")
	}

	if strings.TrimSpace(visit.ClientIP) == "" {
		visit.ClientIP = "unknown"
	}

	if err := r.db.WithContext(ctx).Create(visit).Error; err != nil {
		r.logError(logrus.Fields{"path": visit.Path}, err, "recording visit")
		return eris.Wrapf(err, "recording visit: %s", visit.Path)
	}

	return nil
}

// CountVisits returns the total number of recorded hits.
func (r *GormRepository) CountVisits(ctx context.Context) (int64, error) {
	var count int64

	if err := r.db.WithContext(ctx).Model(&Visit{}).Count(&count).Error; err != nil {
		r.logError(nil, err, "counting visits")
		return 0, eris.Wrap(err, "counting visits")
	}

	return count, nil
}

// TopClients returns the clients with the most recorded hits, busiest first.
func (r *GormRepository) TopClients(ctx context.Context, limit int) ([]ClientCount, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var results []ClientCount
	err := r.db.WithContext(ctx).
		Model(&Visit{}).
		Select("client_ip, COUNT(*) AS hits").
		Group("client_ip").
		Order("hits DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		r.logError(nil, err, "aggregating top clients")
		return nil, eris.Wrap(err, "aggregating top clients")
	}

	return results, nil
}

// RecentVisits returns the latest recorded hits, newest first.
func (r *GormRepository) RecentVisits(ctx context.Context, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	var visits []Visit
	err := r.db.WithContext(ctx).
		Order("id DESC").
		Limit(limit).
		Find(&visits).Error
	if err != nil {
		r.logError(nil, err, "listing recent visits")
		return nil, eris.Wrap(err, "listing recent visits")
	}

	return visits, nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
