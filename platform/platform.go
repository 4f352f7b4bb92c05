package platform

import (
	"runtime"
	"strconv"
	"unsafe"
)

// Config describes the native target a registry is built for.
// It is computed once and passed around by value.
type Config struct {
	OS          string
	PointerBits int
}

// Host returns the configuration of the running process.
func Host() Config {
	return Config{
		OS:          runtime.GOOS,
		PointerBits: int(unsafe.Sizeof(uintptr(0))) * 8,
	}
}

// Wasm32 returns the configuration of a 32-bit WebAssembly guest.
func Wasm32() Config {
	return Config{OS: "wasip1", PointerBits: 32}
}

// PointerSize returns the pointer width in bytes.
func (c Config) PointerSize() uint64 {
	return uint64(c.PointerBits / 8)
}

// Windows reports whether the target uses the LLP64 data model.
func (c Config) Windows() bool {
	return c.OS == "windows"
}

// LongBits returns the width of C long on the target.
func (c Config) LongBits() int {
	if c.PointerBits == 32 || c.Windows() {
		return 32
	}
	return 64
}

// Validate reports whether the configuration names a supported target.
func (c Config) Validate() error {
	if c.PointerBits != 32 && c.PointerBits != 64 {
		return &ConfigError{Field: "PointerBits", Value: strconv.Itoa(c.PointerBits)}
	}
	if c.OS == "" {
		return &ConfigError{Field: "OS", Value: ""}
	}
	return nil
}

func (c Config) String() string {
	return c.OS + "/" + strconv.Itoa(c.PointerBits)
}

// ConfigError reports an unsupported platform configuration
type ConfigError struct {
	Field string
	Value string
}

func (e *ConfigError) Error() string {
	return "platform: unsupported " + e.Field + " " + strconv.Quote(e.Value)
}
