package indexa

import (
	"sync/atomic"

	"github.com/UndeffinedDev/Indexa/lib/logger"
)

// debugEnabled is the process-wide debug switch. It gates the lifecycle
// trace events of every Database instance.
var debugEnabled atomic.Bool

// SetDebug toggles lifecycle trace logging for the whole process. Traces go
// to the "indexa" logger at debug level.
func SetDebug(on bool) {
	debugEnabled.Store(on)
	if on {
		logger.GetLogger("indexa").SetLevel(logger.DEBUG)
	}
}

// trace emits one lifecycle trace event when the debug switch is on.
func trace(format string, args ...interface{}) {
	if debugEnabled.Load() {
		logger.GetLogger("indexa").Debugf(format, args...)
	}
}
