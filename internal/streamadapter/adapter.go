package streamadapter

import "context"

// AckHandle is an opaque token identifying one source-stream message for the
// purpose of storeOffset. Equality/ordering semantics are owned by the
// concrete transport.
type AckHandle any

// Handler receives raw framed messages one at a time, in source-stream
// order. It must not block longer than necessary: a slow handler causes the
// adapter's transport buffer to fill, which is the mechanism natural
// backpressure rides on.
type Handler func(ctx context.Context, raw []byte, handle AckHandle) error

// Adapter receives framed messages from the source stream and invokes a
// registered Handler for each. It never auto-commits: callers decide when a
// message's offset may be considered processed by calling StoreOffset.
type Adapter interface {
	// Run resumes from the last stored offset and delivers messages to fn
	// until ctx is cancelled or an unrecoverable transport error occurs.
	Run(ctx context.Context, fn Handler) error

	// StoreOffset durably records that handle's offset has been processed.
	// It is the only commit path; it must be called only after the message
	// has survived a committed persistence transaction.
	StoreOffset(ctx context.Context, handle AckHandle) error

	// Pause is an advisory hint used by backpressure. If the transport has
	// no server-side pause primitive, implementations may no-op and rely on
	// not draining the transport buffer to create natural backpressure.
	Pause()

	// Resume reverses Pause.
	Resume()

	Close() error
}
