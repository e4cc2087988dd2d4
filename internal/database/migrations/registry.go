package migrations

import (
	"gorm.io/gorm"

	"github.com/jmylchreest/calcprobe/internal/models"
)

// AllMigrations returns every migration in version order.
//   - 001: runs and check_results tables
//   - 002: index for per-deployment history lookups
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
		migration002FrontendIndex(),
	}
}

func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create runs and check_results tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&models.Run{}, &models.CheckResult{})
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable("check_results", "runs")
		},
	}
}

const frontendIndex = "idx_runs_frontend_started"

func migration002FrontendIndex() Migration {
	return Migration{
		Version:     "002",
		Description: "Index runs by frontend URL and start time",
		Up: func(tx *gorm.DB) error {
			if tx.Migrator().HasIndex("runs", frontendIndex) {
				return nil
			}
			return tx.Exec("CREATE INDEX " + frontendIndex + " ON runs (frontend_url, started_at)").Error
		},
		Down: func(tx *gorm.DB) error {
			return tx.Migrator().DropIndex("runs", frontendIndex)
		},
	}
}
