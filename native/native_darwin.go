package native

var runtimeLibraries = []string{"/usr/lib/libSystem.B.dylib"}

const errnoSymbol = "__error"
