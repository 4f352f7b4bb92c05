package transform

// Carrier is the machine representation a native value travels in.
type Carrier uint8

const (
	CarrierI16 Carrier = iota
	CarrierI32
	CarrierI64
	CarrierF32
	CarrierF64
	CarrierBool
	CarrierAddr
)

var carrierNames = [...]string{
	CarrierI16:  "i16",
	CarrierI32:  "i32",
	CarrierI64:  "i64",
	CarrierF32:  "f32",
	CarrierF64:  "f64",
	CarrierBool: "bool",
	CarrierAddr: "addr",
}

func (c Carrier) String() string {
	if int(c) < len(carrierNames) {
		return carrierNames[c]
	}
	return "unknown"
}

// Layout is the native value layout of one argument or result.
type Layout struct {
	Name    string
	Size    uint64
	Align   uint64
	Carrier Carrier
}

func (l Layout) String() string {
	return l.Name
}

var (
	layoutShort    = Layout{Name: "short", Size: 2, Align: 2, Carrier: CarrierI16}
	layoutInt      = Layout{Name: "int", Size: 4, Align: 4, Carrier: CarrierI32}
	layoutLongLong = Layout{Name: "long long", Size: 8, Align: 8, Carrier: CarrierI64}
	layoutFloat    = Layout{Name: "float", Size: 4, Align: 4, Carrier: CarrierF32}
	layoutDouble   = Layout{Name: "double", Size: 8, Align: 8, Carrier: CarrierF64}
	layoutBool     = Layout{Name: "bool", Size: 1, Align: 1, Carrier: CarrierBool}
)

// AddressLayout returns the pointer layout for a pointer width in bytes.
func AddressLayout(size uint64) Layout {
	return Layout{Name: "pointer", Size: size, Align: size, Carrier: CarrierAddr}
}
