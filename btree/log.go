package btree

import "github.com/sirupsen/logrus"

// defaultLogger backs every Handle that does not supply WithLogger.
// Unlike the teacher pack's global logger singletons, it is only ever
// read through a Handle's own field, so tests can swap it per-Handle
// without racing other tests.
var defaultLogger = newDefaultLogger()

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: false})
	return l
}

func parseLogLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}
