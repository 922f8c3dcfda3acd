package locker

import (
	"fmt"
	"sync"

	"github.com/spf13/viper"

	"github.com/stellarforge/coreserver/pkg/logger"
)

// ConcurrentLocker :
// Used to provide a concurrent lock mechanism allowing to share the
// access to a named resource and let multiple callers wait on it while
// still handing out individual locks for unrelated resources.
// Originally designed to guard per-row update actions in a relational
// table, this object is repurposed here for the single global trylock
// that serializes persistence snapshot runs (spec: "a single global lock
// guards save invocation"). The per-planet write throttle of the
// persistence bridge does not use it.
// We don't want one mutex per planet to live forever, and we don't want
// a single mutex for the whole store either: this structure hands out a
// bounded pool of locks and associates each with a resource name on
// demand, blocking only once every lock in the pool is already in use.
//
// The `locker` is the top level mutex that allows to use this object
// concurrently without losing thread safety. It protects `registered`
// and the bookkeeping fields of each `Lock`.
//
// The `locks` defines a slice of locks that can be handed out to
// resources. There are only a finite number of them and once all of
// them are used a call to `Acquire` becomes blocking.
//
// The `availableLocks` is used internally to determine which of the
// locks are free. A call to `Acquire` pulls an id from this channel
// when no lock is already registered for the requested resource.
//
// The `registered` maps a resource name to the index of the lock
// currently serving it. Entries are erased on `Release` once the last
// user gives up the lock.
//
// The `cout` allows to notify errors and information to the user about
// the process going on internally within this element.
type ConcurrentLocker struct {
	locker         sync.Mutex
	locks          []*Lock
	availableLocks chan int
	registered     map[string]int
	cout           logger.Logger
}

// Lock :
// Allows to protect the access to a single resource by providing a way
// for concurrent clients to wait on it.
//
// The `id` defines the index of this lock in the internal channel of
// the `ConcurrentLocker`. Negative when the lock is not in use.
//
// The `res` defines the resource name currently assigned to this lock.
//
// The `use` defines how many concurrent users are currently relying on
// this lock, used to decide when it can be released back to the pool.
//
// The `waiter` is used by `Lock`/`Release` to make sure a single client
// holds the resource secured by this lock at any time.
type Lock struct {
	id     int
	res    string
	use    int
	waiter chan struct{}
}

// configuration :
// Used internally to regroup the variables that can be used to
// customize the number of locks that can be served in parallel.
//
// The `LockCount` defines the number of locks that can be distributed
// amongst clients before a call to `Acquire` becomes blocking.
// The default value is `16`.
type configuration struct {
	LockCount int
}

// parseConfiguration :
// Used to parse the environment variables provided when executing this
// server to get the values of the `ConcurrentLocker` properties.
//
// Returns the parsed configuration where all non-set properties have
// their default values.
func parseConfiguration() configuration {
	config := configuration{
		LockCount: 16,
	}

	if viper.IsSet("Concurrent.LockCount") {
		config.LockCount = viper.GetInt("Concurrent.LockCount")
	}

	return config
}

// NewConcurrentLocker :
// Performs the creation of a new `ConcurrentLocker` with configuration
// values retrieved from the environment provided to the server.
//
// The `log` will be assigned as the internal logging mean for this
// locker.
//
// Returns the created concurrent locker.
func NewConcurrentLocker(log logger.Logger) *ConcurrentLocker {
	config := parseConfiguration()

	allLocks := make([]*Lock, config.LockCount)
	ids := make(chan int, config.LockCount)

	for id := range allLocks {
		allLocks[id] = &Lock{
			id:     -1,
			res:    "",
			use:    0,
			waiter: make(chan struct{}, 1),
		}
		allLocks[id].waiter <- struct{}{}

		ids <- id
	}

	return &ConcurrentLocker{
		locker:         sync.Mutex{},
		locks:          allLocks,
		availableLocks: ids,
		registered:     make(map[string]int),
		cout:           log,
	}
}

// Acquire :
// Used to try to acquire a locker for the specified resource. Queries
// the internal lockers and sees whether one instance is already serving
// this resource, in which case it is returned with its use count bumped.
// Otherwise blocks until a lock from the pool becomes available.
//
// The `resource` defines the name of the resource for which a locker
// should be acquired (e.g. `"snapshot"`, the name the persistence
// bridge uses for its save lock).
//
// Returns the locker acquired for this resource.
func (cl *ConcurrentLocker) Acquire(resource string) *Lock {
	var l *Lock

	func() {
		cl.locker.Lock()
		defer cl.locker.Unlock()

		id, ok := cl.registered[resource]
		if ok {
			l = cl.locks[id]
			l.use++

			cl.cout.Trace(logger.Debug, "locker", fmt.Sprintf("adding user to resource %q (id: %d, usage: %d, available: %d)", l.res, l.id, l.use, len(cl.availableLocks)))
		}
	}()

	if l != nil {
		return l
	}

	id := <-cl.availableLocks

	func() {
		cl.locker.Lock()
		defer cl.locker.Unlock()

		cl.registered[resource] = id

		l = cl.locks[id]
		l.id = id
		l.res = resource
		l.use++

		cl.cout.Trace(logger.Debug, "locker", fmt.Sprintf("creating locker on %q (id: %d, available: %d)", l.res, l.id, len(cl.availableLocks)))
	}()

	return l
}

// Release :
// Used to perform the release of the lock provided in input and handle
// the necessary verifications to see whether it can be put back in the
// pool of available locks. This can only happen once no other user is
// still relying on it.
//
// The `lock` defines the locker to release. Nothing happens if `nil`.
func (cl *ConcurrentLocker) Release(lock *Lock) {
	if lock == nil {
		return
	}

	cl.locker.Lock()
	defer cl.locker.Unlock()

	lock.use--

	if lock.use > 0 {
		return
	}

	res := lock.res
	id := lock.id

	delete(cl.registered, lock.res)
	cl.availableLocks <- lock.id

	lock.id = -1
	lock.res = ""

	cl.cout.Trace(logger.Debug, "locker", fmt.Sprintf("releasing locker on %q at index %d (available: %d)", res, id, len(cl.availableLocks)))
}

// Lock :
// Used to wait to obtain the lock so as to make sure that the calling
// goroutine is the only one able to access the resource secured by this
// object. Blocks until the current holder releases it.
func (l *Lock) Lock() {
	<-l.waiter
}

// TryLock :
// Non-blocking variant of `Lock` used by the persistence bridge's save
// runner: it must never queue up a second save behind a slow one, so a
// failed attempt should be treated as "a save is already in flight" and
// skipped rather than waited on.
//
// Returns true if the lock was acquired.
func (l *Lock) TryLock() bool {
	select {
	case <-l.waiter:
		return true
	default:
		return false
	}
}

// Release :
// Used to release this locker object so that other clients can access
// the resource protected by it. Succeeds only if no other `Release` has
// been made since the last `Lock`/`TryLock`.
//
// Returns an error in case the lock cannot be released (e.g. it was
// never acquired, or already released).
func (l *Lock) Release() error {
	if len(l.waiter) > 0 {
		return fmt.Errorf("cannot release locker on resource %q, seems already released", l.res)
	}

	l.waiter <- struct{}{}

	return nil
}
