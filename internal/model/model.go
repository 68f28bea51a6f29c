package model

import (
	"github.com/thep200/github-ranker/cfg"
	"github.com/thep200/github-ranker/pkg/db"
	"github.com/thep200/github-ranker/pkg/log"
)

type Model struct {
	Config *cfg.Config `gorm:"-"`
	Logger log.Logger  `gorm:"-"`
	Db     db.Database `gorm:"-"`
}
