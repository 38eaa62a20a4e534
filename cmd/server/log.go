package main

import (
	"io"
	"log"
	"os"

	jww "github.com/spf13/jwalterweatherman"
)

// initLog sets the jww thresholds from verbosity (0 info, 1 debug, 2+ trace)
// and redirects output to logPath when it is set.
func initLog(verbosity uint, logPath string) error {
	if logPath != "" && logPath != "-" {
		jww.SetStdoutOutput(io.Discard)
		logOutput, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return err
		}
		jww.SetLogOutput(logOutput)
	}

	switch {
	case verbosity > 1:
		jww.SetStdoutThreshold(jww.LevelTrace)
		jww.SetLogThreshold(jww.LevelTrace)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
		jww.INFO.Printf("log level set to: TRACE")
	case verbosity == 1:
		jww.SetStdoutThreshold(jww.LevelDebug)
		jww.SetLogThreshold(jww.LevelDebug)
		jww.SetFlags(log.LstdFlags | log.Lmicroseconds)
		jww.INFO.Printf("log level set to: DEBUG")
	default:
		jww.SetStdoutThreshold(jww.LevelInfo)
		jww.SetLogThreshold(jww.LevelInfo)
		jww.INFO.Printf("log level set to: INFO")
	}
	return nil
}
