package visitor

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migrate applies the visit schema using Gorm's AutoMigrate and logs progress.
func Migrate(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "visitor.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying visit schema")
	}

	if err := db.WithContext(ctx).AutoMigrate(&Visit{}); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("visit schema migration failed")
		}
		return eris.Wrap(err, "auto migrating visit schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("visit schema migration complete")
	}

	return nil
}
