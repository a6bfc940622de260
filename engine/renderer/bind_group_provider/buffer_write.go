package bind_group_provider

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/gpu"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderer/shader"
)

// BufferWrite describes a single GPU buffer write operation targeting the buffer bound to a role
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Role     shader.AnnotationArg
	Offset   uint64
	Data     []byte
}

// WriteBuffers uploads every write. Writes to roles without a buffer are reported, the rest still run.
//
// Parameters:
//   - b: the backend owning the buffers
//   - writes: the writes to perform in order
//
// Returns:
//   - error: the joined failures
func WriteBuffers(b gpu.Backend, writes []BufferWrite) error {
	var errs []error
	for _, w := range writes {
		buf := w.Provider.Buffer(w.Role)
		if !buf.Valid() {
			errs = append(errs, fmt.Errorf("bind group provider %q: no buffer bound as %q", w.Provider.Label(), w.Role))
			continue
		}
		if err := b.WriteBuffer(buf, w.Offset, w.Data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
