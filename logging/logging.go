package logging

import (
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

// Init настраивает уровень логирования из конфига
func Init(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
}

// L возвращает общий логгер приложения
func L() *logrus.Logger {
	return logger
}
