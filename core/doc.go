// Package core provides core types used throughout EmbedDB.
//
// The package defines the Value variant type that represents column
// values at the engine boundary, the Row type, and the Identity type
// used to attribute snapshots and server sessions.
//
// # Values
//
// Engines return dynamically-typed column values; Value makes the type
// explicit:
//
//	v := core.Integer(42)
//	v.Type      // core.IntegerType
//	v.String()  // "42"
//
// Values scanned from a result set are built with FromNative, and
// Native converts back to the representation the driver binds.
//
// # Identity
//
// Identity identifies the author of snapshots (and authenticated server
// sessions):
//
//	identity := core.Identity{
//	    Name:  "John Doe",
//	    Email: "john@example.com",
//	}
package core
