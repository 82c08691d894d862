package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// LogFatal logs a fatal error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogFatal is called.
func LogFatal(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Fatal(errorMsg)
}

// LogError logs an error with callstack info that skips callerSkip many levels with arbitrarily many additional infos.
// callerSkip equal to 0 gives you info directly where LogError is called.
func LogError(err error, errorMsg interface{}, callerSkip int, additionalInfos ...map[string]interface{}) {
	logErrorInfo(err, callerSkip, additionalInfos...).Error(errorMsg)
}

func logErrorInfo(err error, callerSkip int, additionalInfos ...map[string]interface{}) *logger.Entry {
	logFields := logger.NewEntry(logger.New())

	pc, fullFilePath, line, ok := runtime.Caller(callerSkip + 2)
	if ok {
		logFields = logFields.WithFields(logger.Fields{
			"_file":     filepath.Base(fullFilePath),
			"_function": runtime.FuncForPC(pc).Name(),
			"_line":     line,
		})
	} else {
		logFields = logFields.WithField("runtime", "Callstack cannot be read")
	}

	errColl := []string{}
	for {
		errColl = append(errColl, fmt.Sprint(err))
		nextErr := errors.Unwrap(err)
		if nextErr != nil {
			err = nextErr
		} else {
			break
		}
	}

	errMarkSign := "~"
	for idx := 0; idx < (len(errColl) - 1); idx++ {
		errInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx, errMarkSign)
		nextErrInfoText := fmt.Sprintf("%serrInfo_%v%s", errMarkSign, idx+1, errMarkSign)
		if idx == (len(errColl) - 2) {
			nextErrInfoText = fmt.Sprintf("%serror%s", errMarkSign, errMarkSign)
		}

		// Replace the last occurrence of the next error in the current error
		lastIdx := strings.LastIndex(errColl[idx], errColl[idx+1])
		if lastIdx != -1 {
			errColl[idx] = errColl[idx][:lastIdx] + nextErrInfoText + errColl[idx][lastIdx+len(errColl[idx+1]):]
		}

		errInfoText = strings.ReplaceAll(errInfoText, errMarkSign, "")
		logFields = logFields.WithField(errInfoText, errColl[idx])
	}

	if err != nil {
		logFields = logFields.WithField("errType", fmt.Sprintf("%T", err)).WithError(err)
	}

	for _, infoMap := range additionalInfos {
		for name, info := range infoMap {
			logFields = logFields.WithField(name, info)
		}
	}

	return logFields
}

// LogWriter keeps track of the optional log file so it can be closed on shutdown.
type LogWriter struct {
	logFile *os.File
}

// InitLogger configures the standard logrus logger from the logging config section.
// Entries are written to stdout (or stderr) with OutputLevel, and additionally to
// FilePath with FileLevel when a log file is configured.
func InitLogger() (*LogWriter, *logger.Logger) {
	log := logger.StandardLogger()
	writer := &LogWriter{}

	outputLevel := parseLogLevel(Config.Logging.OutputLevel, logger.InfoLevel)
	if Config.Logging.OutputStderr {
		log.SetOutput(os.Stderr)
	} else {
		log.SetOutput(os.Stdout)
	}

	if Config.Logging.FilePath == "" {
		log.SetLevel(outputLevel)
		return writer, log
	}

	logFile, err := os.OpenFile(Config.Logging.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.SetLevel(outputLevel)
		log.WithError(err).Errorf("error opening log file %v", Config.Logging.FilePath)
		return writer, log
	}
	writer.logFile = logFile

	fileLevel := parseLogLevel(Config.Logging.FileLevel, outputLevel)
	console := log.Out
	log.SetOutput(io.Discard)
	log.SetLevel(maxLogLevel(outputLevel, fileLevel))
	log.AddHook(&levelWriterHook{writer: console, level: outputLevel, formatter: &logger.TextFormatter{}})
	log.AddHook(&levelWriterHook{writer: logFile, level: fileLevel, formatter: &logger.JSONFormatter{}})

	return writer, log
}

// Dispose closes the log file if one was opened.
func (w *LogWriter) Dispose() {
	if w.logFile != nil {
		w.logFile.Close()
		w.logFile = nil
	}
}

func parseLogLevel(level string, fallback logger.Level) logger.Level {
	if level == "" {
		return fallback
	}
	lvl, err := logger.ParseLevel(level)
	if err != nil {
		return fallback
	}
	return lvl
}

func maxLogLevel(a, b logger.Level) logger.Level {
	if a > b {
		return a
	}
	return b
}

type levelWriterHook struct {
	writer    io.Writer
	level     logger.Level
	formatter logger.Formatter
}

func (hook *levelWriterHook) Levels() []logger.Level {
	return logger.AllLevels[:hook.level+1]
}

func (hook *levelWriterHook) Fire(entry *logger.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = hook.writer.Write(line)
	return err
}
