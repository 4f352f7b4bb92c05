// Package abi defines the contract between the call-site compiler and a
// native backend: the native Signature of a site, the Options it is bound
// with, and the Entry the backend returns.
//
// Every native value crosses the contract as a uint64 carrier. Integer
// carriers hold the rule's value sign- or zero-extended to 64 bits, float
// carriers hold IEEE bits, addresses are plain integers. Backends narrow the
// carrier to the layout's machine type on the way in and widen on the way
// out.
package abi
