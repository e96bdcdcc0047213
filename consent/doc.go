// Package consent evaluates the study permissions stored in a user's notes
// field. A permissions document grants an action either on every study
// ({"all": {"read": true}}) or per study
// ({"studies": {"SD-1": {"read": true, "write": false}}}).
package consent
