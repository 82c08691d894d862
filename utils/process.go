package utils

import (
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/sirupsen/logrus"
)

// WaitForCtrlC blocks until the process receives an interrupt or terminate signal
func WaitForCtrlC() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	signal.Stop(c)
}

// HandleSubroutinePanic logs a recovered panic of a background goroutine.
// It must be deferred directly.
func HandleSubroutinePanic(identifier string) {
	if err := recover(); err != nil {
		logrus.WithField("routine", identifier).Errorf("uncaught panic in %v subroutine: %v, stack: %v", identifier, fmt.Sprint(err), string(debug.Stack()))
	}
}
