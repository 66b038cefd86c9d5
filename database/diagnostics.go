package database

import "context"

// Status is the outcome of a connectivity check.
type Status int

const (
	NotConfigured Status = iota
	Connected
	ConnectionFailed
	QueryFailed
)

func (s Status) String() string {
	switch s {
	case Connected:
		return "connected"
	case ConnectionFailed:
		return "connection_failed"
	case QueryFailed:
		return "query_failed"
	default:
		return "not_configured"
	}
}

// MaxDiagnosticCollections caps the collection names reported by Diagnose.
const MaxDiagnosticCollections = 10

// Diagnosis describes what Diagnose found.
type Diagnosis struct {
	Status Status
	// Reason is set for ConnectionFailed and QueryFailed.
	Reason string
	// Name is the database name; empty unless a store is attached.
	Name        string
	Collections []string
}

// Diagnose pings the store and lists up to MaxDiagnosticCollections
// collections. It never returns an error; failures are folded into the result.
func (c *Client) Diagnose(ctx context.Context) Diagnosis {
	if c.store == nil {
		return Diagnosis{Status: NotConfigured, Collections: []string{}}
	}
	d := Diagnosis{Name: c.store.Name(), Collections: []string{}}

	if err := c.store.Ping(ctx); err != nil {
		d.Status = ConnectionFailed
		d.Reason = err.Error()
		return d
	}
	names, err := c.store.ListCollections(ctx)
	if err != nil {
		d.Status = QueryFailed
		d.Reason = err.Error()
		return d
	}
	if len(names) > MaxDiagnosticCollections {
		names = names[:MaxDiagnosticCollections]
	}
	if names != nil {
		d.Collections = names
	}
	d.Status = Connected
	return d
}
