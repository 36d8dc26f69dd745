//go:build darwin || linux

package grammar

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/ebitengine/purego"
)

// openLanguage opens a shared-library grammar and calls its constructor.
// The library handle is never closed: the returned language points into it
// for the rest of the process.
func openLanguage(path, symbol string) (unsafe.Pointer, error) {
	handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_LOCAL)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	if _, err := purego.Dlsym(handle, symbol); err != nil {
		_ = purego.Dlclose(handle)
		return nil, fmt.Errorf("looking up %s: %w", symbol, err)
	}

	var constructor func() uintptr
	purego.RegisterLibFunc(&constructor, handle, symbol)
	ptr := constructor()
	if ptr == 0 {
		return nil, errors.New(symbol + " returned a nil language")
	}
	return *(*unsafe.Pointer)(unsafe.Pointer(&ptr)), nil
}
