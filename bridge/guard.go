package bridge

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wippyai/glide-ffi/errors"
	"github.com/wippyai/glide-ffi/logging"
)

// Callback receives the outcome of an async command. value is an encoded
// Value the callee must release with FreeValue; it may be 0 if not even the
// error text could be encoded.
type Callback func(success bool, value uint64)

// guard invokes caller code. A panic is logged once and swallowed.
func guard(log *zap.Logger, id uuid.UUID, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("callback panicked",
				zap.Stringer("command_id", id),
				zap.Error(errors.Panic(errors.PhaseCallback, r)))
		}
	}()
	logging.Trace(log, "calling command callback", zap.Stringer("command_id", id))
	fn()
	logging.Trace(log, "called command callback", zap.Stringer("command_id", id))
}
