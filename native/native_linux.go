package native

var runtimeLibraries = []string{"libc.so.6", "libm.so.6"}

const errnoSymbol = "__errno_location"
