package logger

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// configuration :
// Provides a way to configure the way logs are displayed both in terms of
// level and in terms of the machine executing the logger.
// This logger uses a display to the standard output as a logging strategy
// with some coloring based on the severity of the logs to display. The
// logger is initialized with a default name for the application and with a
// local configuration but information are retrieved from the environment
// to modify it.
//
// The `AppName` describes a string for the name of the application using
// the logger.
// The default value is "coreserver".
//
// The `Environment` allows to specify which configuration is used by the
// application executing the logger. Typical values include `production`
// and all other settings such as `development`, etc.
// The default value is "development".
//
// The `ForceLocal` allows to make sure that the instance ID assigned to
// this logger will be "local" no matter what the value provided by the
// runtime is.
// The default value is `false`.
//
// The `Level` is a string representing the minimum level of a log message
// in order for it to be displayed.
// The default value is "info".
//
// The `Buffer` allows to specify the size of the buffer to handle log
// messages so that the simulation thread is never blocked waiting on the
// standard output.
// The default value is 500.
type configuration struct {
	AppName     string
	Environment string
	ForceLocal  bool
	Level       string
	Buffer      int
}

// traceMessage :
// Describes a message to be enqueued by the logger. It contains all the
// needed information to be displayed: its severity, the module that
// produced it and its content.
//
// The `level` value represents the actual importance of the log message.
//
// The `module` identifies which part of the server produced the message
// (e.g. `"scheduler"`, `"bridge"`, `"market"`) so that log lines from the
// simulation thread, the persistence bridge and the event sink remain easy
// to tell apart once interleaved on a single output stream.
//
// The `content` represents the content of the message and is dumped as is
// during the logging process.
type traceMessage struct {
	level   Severity
	module  string
	content string
}

// StdLogger :
// Describes the logger structure used to perform logging.
// This logger forwards log messages received as Go structures to the
// standard output and handles a buffer mechanism so that no caller is ever
// blocked while the underlying display is performed -- this matters most
// for the simulation thread, which must never be made to wait on I/O.
//
// The `config` allows to retrieve information about the settings and
// changes to apply to input log messages before dumping them.
//
// The `instanceID` represents the name of the instance of the application
// running the logger. Updated each time the application restarts, which
// allows detecting crashes on a single machine or multiple running apps.
//
// The `publicIP` represents the public IP of the machine as a string.
// Defaults to "localhost" when none can be determined.
//
// The `logChannel` receives trace messages from every goroutine before
// they reach the logging device. Sized from the configuration so bursts
// of log messages can be absorbed without latency.
//
// The `endChannel` allows to terminate the active loop which forwards
// messages from `logChannel` to the logging device.
//
// The `closed` value indicates whether the logger has been terminated.
// Guarded by `locker` to determine whether it is safe to post a message.
//
// The `locker` protects the `closed` boolean from concurrent access.
//
// The `waiter` allows `Release` to wait for the logging goroutine to drain
// every remaining buffered message before returning.
type StdLogger struct {
	config     configuration
	instanceID string
	publicIP   string
	logChannel chan traceMessage
	endChannel chan bool
	closed     bool
	locker     sync.Mutex
	waiter     sync.WaitGroup
}

// parseConfiguration :
// Used to retrieve the parameters to apply to the logger from the
// environment. A default configuration is provided to work in most cases
// but any of these can be overridden at runtime.
//
// Returns the parsed configuration with defaults applied where unset.
func parseConfiguration() configuration {
	config := configuration{
		AppName:     "coreserver",
		Environment: "development",
		ForceLocal:  false,
		Level:       "info",
		Buffer:      500,
	}

	if viper.IsSet("Logger.Name") {
		config.AppName = viper.GetString("Logger.Name")
	}
	if viper.IsSet("Logger.Environment") {
		config.Environment = viper.GetString("Logger.Environment")
	}
	if viper.IsSet("Logger.ForceLocal") {
		config.ForceLocal = viper.GetBool("Logger.ForceLocal")
	}
	if viper.IsSet("Logger.Level") {
		config.Level = viper.GetString("Logger.Level")
	}
	if viper.IsSet("Logger.Buffer") {
		config.Buffer = viper.GetInt("Logger.Buffer")
	}

	return config
}

// NewStdLogger :
// Used to create a new logger with the specified instance name and public
// IP. The created logger parses its configuration from the environment
// and adapts its behavior right away.
//
// The `instanceID` string might be equal to "local" if no instance ID is
// provided by the runtime. Otherwise it corresponds to a unique identifier
// of the machine running the logger.
//
// The `publicIP` provides the IP to target the machine executing the
// logger; defaults to "localhost" when empty.
//
// Returns the produced logger.
func NewStdLogger(instanceID string, publicIP string) Logger {
	config := parseConfiguration()

	log := &StdLogger{
		config:     config,
		instanceID: instanceID,
		publicIP:   publicIP,
		logChannel: make(chan traceMessage, config.Buffer),
		endChannel: make(chan bool),
	}

	if len(log.instanceID) == 0 || config.ForceLocal {
		log.instanceID = "local"
	}
	if len(log.publicIP) == 0 {
		log.publicIP = "localhost"
	}

	log.waiter.Add(1)
	go log.performLogging()

	return log
}

// Release :
// Used to perform the stopping of the active loop meant to handle logging
// to the underlying device. It will block until the method actually
// returns to make sure the last logs posted are dumped -- this is called
// once from `main` as part of the final persistence snapshot / graceful
// shutdown sequence, never from the simulation thread itself.
func (log *StdLogger) Release() {
	log.endChannel <- false

	log.locker.Lock()
	log.closed = true
	close(log.logChannel)
	log.locker.Unlock()

	log.waiter.Wait()
}

// Trace :
// Used to perform the log of the input message with the specified level
// and module tag. The message is not directly dumped to the logging
// device but placed in the internal buffer so the active logger goroutine
// can process it; this call never blocks a caller unless the buffer is
// completely full, which keeps it safe to invoke from the simulation
// thread between ticks.
//
// The `level` describes the severity of the message to log.
//
// The `module` identifies the part of the server emitting the message.
//
// The `message` describes the content of the message to log.
func (log *StdLogger) Trace(level Severity, module string, message string) {
	trace := traceMessage{
		level:   level,
		module:  module,
		content: message,
	}

	log.locker.Lock()
	defer log.locker.Unlock()
	if !log.closed {
		log.logChannel <- trace
	}
}

// performLogging :
// Used to perform logging. This method is meant to be launched as a
// goroutine and regularly drains the internal trace channel.
func (log *StdLogger) performLogging() {
	keepConnection := true

	for keepConnection {
		select {
		case keepConnection = <-log.endChannel:
		case trace := <-log.logChannel:
			log.performSingleLog(trace)
		}
	}

	for trace := range log.logChannel {
		log.performSingleLog(trace)
	}

	log.waiter.Done()
}

// performSingleLog :
// Used to perform a single log for the input trace. Called exclusively
// from the active logging goroutine.
//
// The `trace` describes the message to log.
func (log *StdLogger) performSingleLog(trace traceMessage) {
	for s := trace.level + 1; s <= Fatal; s++ {
		if s.String() == log.config.Level {
			return
		}
	}

	out := FormatWithBrackets(log.config.AppName, Magenta)
	out += " " + FormatWithBrackets(log.instanceID, Magenta)
	out += " " + FormatWithNoBrackets(time.Now().Format("2006-01-02 15:04:05"), Magenta)
	out += " " + FormatWithBrackets(trace.module, Cyan)
	out += " " + FormatWithNoBrackets(trace.level.String(), trace.level.Color())

	out += " " + trace.content

	fmt.Println(out)
}
