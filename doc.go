// Package fhirseed provisions users into a FHIR server's user-management API
// and exercises the client-credentials flow against a protected FHIR
// endpoint. Service wires both flows from one Config; Facade exposes them as
// go-command commands and queries.
package fhirseed
