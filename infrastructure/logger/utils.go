package logger

import (
	"time"
)

// LogAndMeasureExecutionTime logs the start of the named operation and
// returns a function that logs its end along with the elapsed time. The
// start is logged at trace level and the end at debug level.
func LogAndMeasureExecutionTime(log *Logger, functionName string) (onEnd func()) {
	start := time.Now()
	log.Tracef("%s start", functionName)
	return func() {
		log.Debugf("%s end. Took: %s", functionName,
			time.Since(start).Truncate(time.Microsecond))
	}
}
