package camera

import (
	"errors"
	"sync"
)

// Vendor SDKs expose a process-global Library.init()/exit() pair that
// must not be called twice concurrently.  The reference counting here
// lets every consumer Acquire/Release without caring who was first.

var (
	// ErrLibraryNotAcquired is generated when Release is called more
	// times than Acquire
	ErrLibraryNotAcquired = errors.New("camera: library released without acquire")

	libMu   sync.Mutex
	libRefs int

	libInit = func() error { return nil }
	libExit = func() error { return nil }
)

// SetLibraryHooks installs the vendor init and exit calls.  Pass nil to
// leave a hook unchanged.  Must be called before the first Acquire.
func SetLibraryHooks(init, exit func() error) {
	libMu.Lock()
	defer libMu.Unlock()
	if init != nil {
		libInit = init
	}
	if exit != nil {
		libExit = exit
	}
}

// AcquireLibrary initializes the vendor library on the first call and
// bumps the refcount on every call.
func AcquireLibrary() error {
	libMu.Lock()
	defer libMu.Unlock()
	if libRefs == 0 {
		if err := libInit(); err != nil {
			return err
		}
	}
	libRefs++
	return nil
}

// ReleaseLibrary drops one reference, tearing the vendor library down
// when the last consumer releases.
func ReleaseLibrary() error {
	libMu.Lock()
	defer libMu.Unlock()
	if libRefs == 0 {
		return ErrLibraryNotAcquired
	}
	libRefs--
	if libRefs == 0 {
		return libExit()
	}
	return nil
}

// LibraryRefs reports the current reference count, for tests.
func LibraryRefs() int {
	libMu.Lock()
	defer libMu.Unlock()
	return libRefs
}
