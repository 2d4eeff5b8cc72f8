package logrus

import (
	"testing"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestLogrusLogger_Fields(t *testing.T) {
	t.Parallel()

	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := LogrusLogger{E: logrus.NewEntry(base)}

	l.Info("refreshed", cache.Fields{"cache": "row", "entries": 4})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.InfoLevel || e.Message != "refreshed" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Data["cache"] != "row" || e.Data["entries"] != 4 {
		t.Fatalf("fields not forwarded: %v", e.Data)
	}
}
