// Package logrus adapts a *logrus.Entry to cache.Logger.
package logrus

import (
	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/sirupsen/logrus"
)

type LogrusLogger struct{ E *logrus.Entry }

var _ cache.Logger = LogrusLogger{}

func (l LogrusLogger) Debug(msg string, f cache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Debug(msg)
}
func (l LogrusLogger) Info(msg string, f cache.Fields) { l.E.WithFields(logrus.Fields(f)).Info(msg) }
func (l LogrusLogger) Warn(msg string, f cache.Fields) { l.E.WithFields(logrus.Fields(f)).Warn(msg) }
func (l LogrusLogger) Error(msg string, f cache.Fields) {
	l.E.WithFields(logrus.Fields(f)).Error(msg)
}
