package versionmanager

// Item records one version a batch operation acted on, or declined to.
type Item struct {
	Name   string
	Reason string
}

// Failure records one version whose action failed. The batch continues past
// failures; they are reported here instead of raised.
type Failure struct {
	Name string
	Err  error
}

// Result accumulates the outcome of one batch operation for one project.
type Result struct {
	Project   string
	Succeeded []Item
	Skipped   []Item
	Failed    []Failure
}

func (r *Result) succeed(name, reason string) {
	r.Succeeded = append(r.Succeeded, Item{Name: name, Reason: reason})
}

func (r *Result) skip(name, reason string) {
	r.Skipped = append(r.Skipped, Item{Name: name, Reason: reason})
}

func (r *Result) fail(name string, err error) {
	r.Failed = append(r.Failed, Failure{Name: name, Err: err})
}
