//go:build !(darwin || linux)

package grammar

import (
	"fmt"
	"runtime"
	"unsafe"
)

func openLanguage(path, symbol string) (unsafe.Pointer, error) {
	return nil, fmt.Errorf("shared-library grammars are not supported on %s", runtime.GOOS)
}
