package testutil

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

// DiscardLogger логгер, молча глотающий вывод в тестах.
func DiscardLogger() *logging.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logging.Logger{Entry: logrus.NewEntry(l)}
}
