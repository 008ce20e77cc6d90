// Package cliutil parses flag values shared by the command-line tools.
package cliutil

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-loop/loop"
	"github.com/sirupsen/logrus"
)

// ParseWorkers accepts "auto" (returned as 0) or an integer >= 1.
func ParseWorkers(raw string) (int, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if v == "" {
		return 0, fmt.Errorf("empty value (use integer >= 1 or 'auto')")
	}
	if v == "auto" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%q (use integer >= 1 or 'auto')", raw)
	}
	if n < 1 {
		return 0, fmt.Errorf("%d (must be >= 1 or 'auto')", n)
	}
	return n, nil
}

// ParseKey accepts a pitch class, or "" / "random" for none.
func ParseKey(raw string) (loop.Key, bool, error) {
	v := strings.TrimSpace(raw)
	if v == "" || strings.EqualFold(v, "random") {
		return "", false, nil
	}
	k := loop.ParseKey(v)
	if k == loop.KeyUndetermined {
		return "", false, fmt.Errorf("%q is not a pitch class (C, C#, ... B)", raw)
	}
	return k, true, nil
}

// ConfigureLogger sets the level and formatter of log from a level name.
func ConfigureLogger(log *logrus.Logger, level string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}
