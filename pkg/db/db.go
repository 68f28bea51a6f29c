package db

import "gorm.io/gorm"

// Database is what the models depend on. Production wires *Mysql,
// tests substitute an in-memory sqlite handle.
type Database interface {
	Db() (*gorm.DB, error)
}
