package migrations

import (
	"github.com/jmylchreest/amm-core/internal/models"
	"gorm.io/gorm"
)

// AllMigrations returns all registered migrations in order, grounded on
// the teacher's consolidated-migration pattern (a single AutoMigrate pass
// plus follow-on data/shape fixups) rather than one migration per
// historical schema change, since this is a new schema with no migration
// history to preserve.
func AllMigrations() []Migration {
	return []Migration{
		migration001Schema(),
	}
}

// migration001Schema creates all database tables using GORM AutoMigrate.
func migration001Schema() Migration {
	return Migration{
		Version:     "001",
		Description: "Create all database tables",
		Up: func(tx *gorm.DB) error {
			return tx.AutoMigrate(
				&models.File{},
				&models.Track{},
				&models.Album{},
				&models.Person{},
				&models.Label{},
				&models.Picture{},
				&models.Queue{},
				&models.TaskRun{},
			)
		},
		Down: func(tx *gorm.DB) error {
			tables := []string{
				"task_runs",
				"queues",
				"pictures",
				"labels",
				"persons",
				"albums",
				"tracks",
				"files",
			}
			for _, table := range tables {
				if tx.Migrator().HasTable(table) {
					if err := tx.Migrator().DropTable(table); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
}
