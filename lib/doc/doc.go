// Package doc defines the data model of the store: schema-less documents made of
// tagged-union values.
//
// A Value holds exactly one of null, bool, number, string, list or map. Accessors
// such as AsString or Document.GetNumber return an explicit presence flag instead
// of a nil, so callers always distinguish "absent" from "zero".
//
// Numbers are float64. JSON and YAML integers therefore compare equal to their
// float form (2 == 2.0).
package doc
