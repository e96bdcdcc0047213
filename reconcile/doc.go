// Package reconcile provisions user records against a user-management API.
//
// Each record is created with a POST. A 400 response reporting that the
// username already exists is treated as a collision and turns into a PUT
// against the record's known pid. Every other failure stops the batch.
package reconcile
