package memo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/IsaacDSC/cachefn/pkg/ctxlogger"
	"github.com/IsaacDSC/cachefn/pkg/logs"
)

const DefaultTTL = 1.1

// Func is an entry of the function table. Hosts usually build it with one
// of the MethodN adapters.
type Func func(ctx context.Context, args ...any) (any, error)

// TTLTable maps an underlying function name to its TTL in TTL units.
type TTLTable map[string]float64

// Cacheable is implemented by hosts that expose cached dispatch.
type Cacheable interface {
	Invoke(ctx context.Context, method string, args ...any) (any, error)
}

type entry struct {
	fn     Func
	result reflect.Type
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

func (e entry) decode(b []byte) (any, error) {
	ptr := reflect.New(e.result)
	if err := json.Unmarshal(b, ptr.Interface()); err != nil {
		return nil, err
	}
	return ptr.Elem().Interface(), nil
}

// Dispatcher routes cacheable method names to a registered function table,
// reading and populating an external Store. Hosts embed *Dispatcher.
type Dispatcher struct {
	tag        string
	convention Convention
	enabled    func() bool
	ttlTable   TTLTable
	defaultTTL float64
	ttlUnit    time.Duration
	observer   Observer
	logger     *logs.Logger

	fmu   sync.RWMutex
	funcs map[string]entry

	smu       sync.Mutex
	store     Store
	storeFunc func() (Store, error)
}

var _ Cacheable = (*Dispatcher)(nil)

type Option func(*Dispatcher)

// WithStore uses s instead of resolving the process default.
func WithStore(s Store) Option {
	return func(d *Dispatcher) {
		d.storeFunc = func() (Store, error) { return s, nil }
	}
}

// WithStoreFunc sets how the store handle is resolved on first use.
func WithStoreFunc(fn func() (Store, error)) Option {
	return func(d *Dispatcher) {
		d.storeFunc = fn
	}
}

func WithEnabled(fn func() bool) Option {
	return func(d *Dispatcher) {
		d.enabled = fn
	}
}

func WithConvention(c Convention) Option {
	return func(d *Dispatcher) {
		d.convention = c
	}
}

func WithTTLTable(t TTLTable) Option {
	return func(d *Dispatcher) {
		d.ttlTable = t
	}
}

func WithDefaultTTL(ttl float64) Option {
	return func(d *Dispatcher) {
		d.defaultTTL = ttl
	}
}

// WithTTLUnit sets the duration of one TTL unit. Defaults to a minute.
func WithTTLUnit(unit time.Duration) Option {
	return func(d *Dispatcher) {
		d.ttlUnit = unit
	}
}

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observer = o
	}
}

func WithLogger(l *logs.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// New creates a Dispatcher for the host identified by tag. The tag takes
// the place of the receiver type name in every cache key.
func New(tag string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tag:        tag,
		convention: DefaultConvention,
		enabled:    func() bool { return true },
		defaultTTL: DefaultTTL,
		ttlUnit:    time.Minute,
		funcs:      make(map[string]entry),
		storeFunc:  DefaultStore,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

func (d *Dispatcher) Tag() string {
	return d.tag
}

// Register adds fn to the function table under its underlying name.
// Cache hits for fn decode into untyped JSON values; use RegisterFunc to
// keep the Go result type.
func (d *Dispatcher) Register(name string, fn Func) {
	d.register(name, entry{fn: fn, result: anyType})
}

// RegisterFunc adds a typed function to d's table. Cached results are
// decoded back into T.
func RegisterFunc[T any](d *Dispatcher, name string, fn func(ctx context.Context, args ...any) (T, error)) {
	d.register(name, entry{
		fn: func(ctx context.Context, args ...any) (any, error) {
			return fn(ctx, args...)
		},
		result: reflect.TypeOf((*T)(nil)).Elem(),
	})
}

func (d *Dispatcher) register(name string, e entry) {
	d.fmu.Lock()
	d.funcs[name] = e
	d.fmu.Unlock()
}

func (d *Dispatcher) lookup(name string) (entry, bool) {
	d.fmu.RLock()
	defer d.fmu.RUnlock()
	e, ok := d.funcs[name]
	if !ok {
		return entry{result: anyType}, false
	}
	return e, true
}

// TTL returns the duration a result of the underlying function name is
// cached for.
func (d *Dispatcher) TTL(name string) time.Duration {
	ttl, ok := d.ttlTable[name]
	if !ok {
		ttl = d.defaultTTL
	}
	return time.Duration(ttl * float64(d.ttlUnit))
}

// CacheStore returns the store handle, resolving it on first use.
func (d *Dispatcher) CacheStore() (Store, error) {
	d.smu.Lock()
	defer d.smu.Unlock()

	if d.store != nil {
		return d.store, nil
	}

	s, err := d.storeFunc()
	if err != nil {
		return nil, &BackendError{Op: "resolve", Err: err}
	}
	if s == nil {
		return nil, &BackendError{Op: "resolve", Err: ErrNoStore}
	}

	d.store = s
	return s, nil
}

// Invoke serves method from the cache, calling the underlying function on a
// miss and storing non-empty results.
func (d *Dispatcher) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	if !d.enabled() || !d.convention.Cacheable(method) {
		return nil, &MethodNotFoundError{Method: method}
	}

	l := d.log(ctx).With("tag", d.tag, "method", method)

	key, err := NewKey(d.tag, method, args...)
	if err != nil {
		l.Error("failed to derive cache key", "error", err)
		return nil, err
	}

	store, err := d.CacheStore()
	if err != nil {
		l.Error("failed to resolve cache store", "error", err)
		return nil, err
	}

	name := d.convention.Underlying(method)
	e, registered := d.lookup(name)

	exists, err := store.Has(ctx, key)
	if err != nil {
		return nil, d.backendErr(l, "has", key, err)
	}

	if exists {
		b, err := store.Get(ctx, key)
		switch {
		case err == nil:
			value, err := e.decode(b)
			if err != nil {
				l.Error("failed to decode cached value", "key", key, "error", err)
				return nil, &SerializationError{Method: method, Err: err}
			}
			l.Debug("cache hit", "key", key)
			d.observe(ctx, l, Event{Tag: d.tag, Method: method, Key: key, Outcome: OutcomeHit})
			return value, nil
		case errors.Is(err, ErrCacheMiss):
			l.Debug("cache entry gone before read", "key", key)
		default:
			return nil, d.backendErr(l, "get", key, err)
		}
	}

	if !registered {
		return nil, &MethodNotFoundError{Method: name}
	}

	started := time.Now()
	result, err := e.fn(ctx, args...)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(started)

	if IsEmpty(result) {
		l.Debug("empty result, not cached", "key", key)
		d.observe(ctx, l, Event{Tag: d.tag, Method: method, Key: key, Outcome: OutcomeSkipped, Duration: elapsed})
		return result, nil
	}

	b, err := json.Marshal(result)
	if err != nil {
		l.Error("failed to encode result", "key", key, "error", err)
		return nil, &SerializationError{Method: method, Err: err}
	}

	ttl := d.TTL(name)
	if err := store.Put(ctx, key, b, ttl); err != nil {
		return nil, d.backendErr(l, "put", key, err)
	}

	l.Debug("cache stored", "key", key, "ttl", ttl)
	d.observe(ctx, l, Event{Tag: d.tag, Method: method, Key: key, Outcome: OutcomeStored, TTL: ttl, Duration: elapsed})

	return result, nil
}

func (d *Dispatcher) backendErr(l *logs.Logger, op string, key Key, err error) error {
	l.Error("cache backend failure", "op", op, "key", key, "error", err)
	return &BackendError{Op: op, Key: key, Err: err}
}

func (d *Dispatcher) observe(ctx context.Context, l *logs.Logger, event Event) {
	if d.observer == nil {
		return
	}

	event.At = time.Now().UTC()
	if err := d.observer.Observe(ctx, event); err != nil {
		l.Warn("failed to record dispatch event", "outcome", event.Outcome, "error", err)
	}
}

func (d *Dispatcher) log(ctx context.Context) *logs.Logger {
	if d.logger != nil {
		return d.logger
	}
	return ctxlogger.GetLogger(ctx)
}

// Call invokes method on c and asserts the result to T. An empty result
// that is nil yields the zero T.
func Call[T any](ctx context.Context, c Cacheable, method string, args ...any) (T, error) {
	var zero T

	v, err := c.Invoke(ctx, method, args...)
	if err != nil {
		return zero, err
	}

	if v == nil {
		return zero, nil
	}

	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s returned %T", ErrResultType, method, v)
	}

	return t, nil
}
