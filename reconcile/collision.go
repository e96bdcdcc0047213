package reconcile

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-fhir-seed/core"
	"github.com/tidwall/gjson"
)

const collisionMarker = "already exists"

// CollisionDetector decides whether a failed creation means the username is
// already taken.
type CollisionDetector interface {
	IsCollision(res core.TransportResponse) bool
}

type CollisionDetectorFunc func(res core.TransportResponse) bool

func (f CollisionDetectorFunc) IsCollision(res core.TransportResponse) bool {
	return f(res)
}

// DefaultCollisionDetector accepts a 400 whose body is an OperationOutcome
// with a "duplicate" issue, or whose text mentions "already exists".
func DefaultCollisionDetector() CollisionDetector {
	return CollisionDetectorFunc(func(res core.TransportResponse) bool {
		if res.StatusCode != http.StatusBadRequest {
			return false
		}
		if hasDuplicateIssue(res.Body) {
			return true
		}
		return strings.Contains(string(res.Body), collisionMarker)
	})
}

func hasDuplicateIssue(body []byte) bool {
	if !gjson.ValidBytes(body) {
		return false
	}
	return gjson.GetBytes(body, `issue.#(code=="duplicate")`).Exists()
}
