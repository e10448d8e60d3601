//go:build windows && (amd64 || arm64)

// ABOUTME: COM vtable calls and the apartment goroutine for WASAPI
// ABOUTME: COM creation and teardown run on one OS-thread-locked goroutine
package endpoint

import (
	"errors"
	"fmt"
	"runtime"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// sFalse is returned by CoInitializeEx when COM is already initialized
const sFalse = 0x00000001

// comCall invokes a COM vtable method at the given index.
// obj is a pointer to a COM interface (pointer to pointer to vtable).
func comCall(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(vtableIdx)*unsafe.Sizeof(uintptr(0))))
	allArgs := make([]uintptr, 0, 1+len(args))
	allArgs = append(allArgs, obj)
	allArgs = append(allArgs, args...)
	ret, _, _ := syscall.SyscallN(fnPtr, allArgs...)
	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// comRelease calls IUnknown::Release (vtable index 2).
func comRelease(obj uintptr) {
	if obj != 0 {
		vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
		fnPtr := *(*uintptr)(unsafe.Pointer(vtablePtr + 2*unsafe.Sizeof(uintptr(0))))
		syscall.SyscallN(fnPtr, obj)
	}
}

// apartment owns a locked OS thread with COM initialized (MTA). Objects
// created on it stay usable from other threads through the implicit MTA
// for as long as the apartment lives.
type apartment struct {
	calls chan func()
	done  chan struct{}
}

func startApartment() (*apartment, error) {
	a := &apartment{
		calls: make(chan func()),
		done:  make(chan struct{}),
	}
	ready := make(chan error, 1)

	go func() {
		defer close(a.done)

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
			var oleErr *ole.OleError
			if !errors.As(err, &oleErr) || oleErr.Code() != sFalse {
				ready <- fmt.Errorf("CoInitializeEx failed: %w", err)
				return
			}
		}
		defer ole.CoUninitialize()

		ready <- nil
		for f := range a.calls {
			f()
		}
	}()

	if err := <-ready; err != nil {
		return nil, err
	}
	return a, nil
}

// do runs f on the apartment thread and returns its error
func (a *apartment) do(f func() error) error {
	errc := make(chan error, 1)
	a.calls <- func() { errc <- f() }
	return <-errc
}

// shutdown uninitializes COM and ends the apartment goroutine
func (a *apartment) shutdown() {
	close(a.calls)
	<-a.done
}
