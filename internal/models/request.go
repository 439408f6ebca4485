package models

import (
	"errors"
	"maps"
	"strings"
)

// WorkflowRequest is the immutable input of one workflow run.
type WorkflowRequest struct {
	Subject string            `json:"subject" yaml:"subject"`                     // Subject entity, e.g. a molecule name
	Query   string            `json:"query" yaml:"query"`                         // Free-form research question
	Context map[string]string `json:"context,omitempty" yaml:"context,omitempty"` // Optional structured hints
}

// NewWorkflowRequest builds a request, copying ctx so later caller mutations
// are not observed.
func NewWorkflowRequest(subject, query string, ctx map[string]string) WorkflowRequest {
	req := WorkflowRequest{
		Subject: strings.TrimSpace(subject),
		Query:   strings.TrimSpace(query),
	}
	if len(ctx) > 0 {
		req.Context = maps.Clone(ctx)
	}
	return req
}

// Validate checks the request has a subject.
func (r WorkflowRequest) Validate() error {
	if strings.TrimSpace(r.Subject) == "" {
		return errors.New("subject is required")
	}
	return nil
}

// Get returns the context value for key, or "" when absent.
func (r WorkflowRequest) Get(key string) string {
	if r.Context == nil {
		return ""
	}
	return r.Context[key]
}

// Has reports whether key is present in the context (even if empty).
func (r WorkflowRequest) Has(key string) bool {
	if r.Context == nil {
		return false
	}
	_, ok := r.Context[key]
	return ok
}

// Clone returns a deep copy of the request.
func (r WorkflowRequest) Clone() WorkflowRequest {
	out := r
	if r.Context != nil {
		out.Context = maps.Clone(r.Context)
	}
	return out
}
