package fiberlog

import "github.com/sirupsen/logrus"

// Config набор полей, которые пишутся в лог по каждому запросу.
// Без Logger используется стандартный логгер logrus.
type Config struct {
	Logger *logrus.Logger
	Tags   []string
}

var ConfigDefault = Config{
	Tags: []string{
		TagStatus,
		TagLatency,
		TagMethod,
		TagPath,
		TagUserID,
	},
}
