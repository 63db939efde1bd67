package scenario

import (
	"bytes"
	"fmt"
	"time"

	"github.com/valyala/fastjson"

	"github.com/cicdpoc/loadharness/pkg/client"
)

// ExpectedGreeting must appear in the backend greeting body.
const ExpectedGreeting = "Hello from Backend"

// Check is one named assertion against a response.
type Check struct {
	Name string
	Fn   func(*client.Response) bool
}

// StatusIs passes when the response has the given status code.
func StatusIs(name string, code int) Check {
	return Check{Name: name, Fn: func(r *client.Response) bool {
		return r.Err == nil && r.Status == code
	}}
}

// FasterThan passes when the response arrived within budget. The check name
// carries the budget in milliseconds.
func FasterThan(prefix string, budget time.Duration) Check {
	return Check{
		Name: fmt.Sprintf("%s response time < %dms", prefix, budget.Milliseconds()),
		Fn: func(r *client.Response) bool {
			return r.Err == nil && r.Duration < budget
		},
	}
}

// ValidJSON passes when the body parses as JSON.
func ValidJSON(name string) Check {
	return Check{Name: name, Fn: func(r *client.Response) bool {
		return r.Err == nil && fastjson.ValidateBytes(r.Body) == nil
	}}
}

// BodyContains passes when the body contains substr.
func BodyContains(name, substr string) Check {
	return Check{Name: name, Fn: func(r *client.Response) bool {
		return r.Err == nil && bytes.Contains(r.Body, []byte(substr))
	}}
}
