package logsvc

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/comedor/core"
	"github.com/trezcool/comedor/core/user"
)

// RollbarLogger writes every entry to a std logger and reports it to Rollbar when enabled.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable switches Rollbar reporting; local output is always written.
func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// splitArgs separates the staff member acting (first user.User found) from what Rollbar receives:
// the message, then errors and extras maps as given.
func splitArgs(msg string, args []interface{}) (report []interface{}, staff *user.User) {
	report = make([]interface{}, 0, len(args)+1)
	report = append(report, msg)
	for _, arg := range args {
		if usr, ok := arg.(user.User); ok {
			if staff == nil {
				staff = &usr
			}
			continue
		}
		report = append(report, arg)
	}
	return report, staff
}

// formatArg renders extras as sorted key=value pairs so lines like
// "promotion applied batch=2024-06-21 promoted=12" stay greppable.
func formatArg(arg interface{}) string {
	extras, ok := arg.(map[string]interface{})
	if !ok {
		return fmt.Sprintf("%+v", arg)
	}
	keys := make([]string, 0, len(extras))
	for k := range extras {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%v", k, extras[k])
	}
	return strings.Join(pairs, " ")
}

func (l RollbarLogger) log(level string, send func(...interface{}), msg string, args []interface{}) {
	report, staff := splitArgs(msg, args)
	if staff != nil && staff.ID != "" {
		rollbar.SetPerson(staff.ID, staff.Username, staff.Email)
	} else {
		rollbar.ClearPerson()
	}
	send(report...)

	line := level + " " + msg
	for _, arg := range report[1:] {
		line += " " + formatArg(arg)
	}
	if staff != nil && staff.Username != "" {
		line += " user=" + staff.Username
	}
	l.std.Println(line)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log("DEBUG", rollbar.Debug, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log("INFO", rollbar.Info, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log("WARN", rollbar.Warning, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log("ERROR", rollbar.Error, msg, args)
}

// Fatal reports, waits for Rollbar to deliver and exits.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log("FATAL", rollbar.Critical, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}

// Flush blocks until every queued item has been sent to Rollbar.
func (l RollbarLogger) Flush() {
	rollbar.Wait()
}
