package btree

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Option configures a Handle at Open time.
type Option[K, V any] func(*handleOptions[K, V])

type handleOptions[K, V any] struct {
	config *Config
	logger *logrus.Logger
}

// WithConfig overrides the branching factor, log level, and file
// suffixes Open would otherwise take from DefaultConfig.
func WithConfig[K, V any](cfg *Config) Option[K, V] {
	return func(o *handleOptions[K, V]) { o.config = cfg }
}

// WithLogger attaches a caller-supplied logger instead of the
// package's shared default.
func WithLogger[K, V any](l *logrus.Logger) Option[K, V] {
	return func(o *handleOptions[K, V]) { o.logger = l }
}

// Handle is the public entry point to one on-disk index: a pair of
// files at <path>.tree / <path>.data (suffixes configurable), keyed
// by K and holding values of type V, ordered by an injected LessFunc.
type Handle[K, V any] struct {
	core   *treeCore[K, V]
	closed bool
}

// Open creates or reopens the index rooted at path (without
// extension). keyCodec/valCodec handle the on-disk representation of
// K and V; less orders keys. Options tune branching factor, log
// level, and logger.
func Open[K, V any](path string, keyCodec Codec[K], valCodec Codec[V], less LessFunc[K], opts ...Option[K, V]) (*Handle[K, V], error) {
	o := &handleOptions[K, V]{config: DefaultConfig(), logger: defaultLogger}
	for _, opt := range opts {
		opt(o)
	}

	l := o.logger
	if o.config.LogLevel != "" {
		l.SetLevel(parseLogLevel(o.config.LogLevel))
	}

	p, err := openPager[K, V](path, o.config.T, o.config.TreeFileSuffix, o.config.DataFileSuffix, keyCodec, valCodec, l)
	if err != nil {
		return nil, errors.Wrapf(err, "open handle at %q", path)
	}

	return &Handle[K, V]{core: &treeCore[K, V]{pager: p, less: less}}, nil
}

func (h *Handle[K, V]) guard() error {
	if h.closed {
		return ErrClosed
	}
	return nil
}

// At performs a point lookup. ok is false when key is absent.
func (h *Handle[K, V]) At(key K) (V, bool, error) {
	var zero V
	if err := h.guard(); err != nil {
		return zero, false, err
	}
	return h.core.at(key)
}

// Insert adds (key, value) if key is absent. inserted is false,
// without error, if key was already present.
func (h *Handle[K, V]) Insert(key K, value V) (bool, error) {
	if err := h.guard(); err != nil {
		return false, err
	}
	return h.core.insert(Entry[K, V]{Key: key, Value: value})
}

// Update overwrites the value stored for an existing key. updated is
// false, without error, if key is absent.
func (h *Handle[K, V]) Update(key K, value V) (bool, error) {
	if err := h.guard(); err != nil {
		return false, err
	}
	return h.core.update(Entry[K, V]{Key: key, Value: value})
}

// Erase removes key if present. erased is false, without error, if
// key was already absent.
func (h *Handle[K, V]) Erase(key K) (bool, error) {
	if err := h.guard(); err != nil {
		return false, err
	}
	return h.core.erase(key)
}

// Begin returns an iterator positioned at the smallest key.
func (h *Handle[K, V]) Begin() (*Iterator[K, V], error) {
	if err := h.guard(); err != nil {
		return nil, err
	}
	it := newIterator(h.core.pager, h.core.pager.rootSlot)
	return it, it.err
}

// End returns an iterator with no current entry, the sentinel every
// forward scan eventually reaches.
func (h *Handle[K, V]) End() *Iterator[K, V] {
	return &Iterator[K, V]{pager: h.core.pager}
}

// Range returns an iterator over [lo, hi), with independent
// inclusivity flags for each bound: loInclusive/hiInclusive true means
// lo/hi itself is included in the scan.
func (h *Handle[K, V]) Range(lo, hi K, loInclusive, hiInclusive bool) (*Iterator[K, V], error) {
	if err := h.guard(); err != nil {
		return nil, err
	}
	it := newIteratorAt(h.core.pager, h.core.less, lo)
	if it.err != nil {
		return it, it.err
	}
	it.less = h.core.less
	it.hasUpper = true
	it.upper = hi
	it.upperIncl = hiInclusive

	if it.valid && !loInclusive && !h.core.less(lo, it.key) && !h.core.less(it.key, lo) {
		it.Next()
		return it, it.Err()
	}
	if it.valid && it.pastUpper(it.key) {
		it.stack = nil
		it.valid = false
	}
	return it, it.Err()
}

// Validate walks the whole tree checking every balance and ordering
// invariant, returning the first violation found.
func (h *Handle[K, V]) Validate() error {
	if err := h.guard(); err != nil {
		return err
	}
	return validateTree(h.core)
}

// Close releases the underlying file descriptors. Further calls on h
// that report errors return ErrClosed; a second Close returns nil.
func (h *Handle[K, V]) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	return h.core.pager.close()
}
