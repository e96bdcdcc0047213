// Package fhir reads protected FHIR resources with a bearer token.
package fhir
