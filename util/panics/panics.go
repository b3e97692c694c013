// Package panics provides goroutine wrappers that recover panics, log
// them through the chain core's logger, and perform a clean shutdown.
package panics

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/ledgerforge/chaincore/logger"
)

const shutdownTimeout = 5 * time.Second

// HandlePanic recovers a panic, logs it at critical level along with the
// given goroutine's original stack trace, then exits the process.
// Intended to be deferred at the top of any goroutine the daemon spawns.
func HandlePanic(log *logger.Logger, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		log.Criticalf("Fatal error: %+v", err)
		if goroutineStackTrace != nil {
			log.Criticalf("Goroutine stack trace: %s", goroutineStackTrace)
		}
		log.Criticalf("Stack trace: %s", debug.Stack())
		close(done)
	}()

	select {
	case <-time.After(shutdownTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't handle a fatal error. Exiting...")
	case <-done:
	}
	log.Criticalf("Exiting")
	os.Exit(1)
}

// GoroutineWrapperFunc returns a function that launches its argument in a
// new goroutine, recovering and logging any panic it raises.
func GoroutineWrapperFunc(log *logger.Logger) func(func()) {
	return func(f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, stackTrace)
			f()
		}()
	}
}

// AfterFuncWrapperFunc returns a time.AfterFunc wrapper that recovers and
// logs any panic raised by the scheduled function.
func AfterFuncWrapperFunc(log *logger.Logger) func(d time.Duration, f func()) *time.Timer {
	return func(d time.Duration, f func()) *time.Timer {
		stackTrace := debug.Stack()
		return time.AfterFunc(d, func() {
			defer HandlePanic(log, stackTrace)
			f()
		})
	}
}

// Exit logs reason at critical level and exits the process, giving the
// logger a bounded window to flush before forcing a shutdown.
func Exit(log *logger.Logger, reason string) {
	done := make(chan struct{})
	go func() {
		log.Criticalf("Exiting: %s", reason)
		close(done)
	}()

	select {
	case <-time.After(shutdownTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't exit gracefully.")
	case <-done:
	}
	os.Exit(1)
}
