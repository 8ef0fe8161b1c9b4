package auth

import (
	"context"
	"fmt"
	"strings"
)

// Authorizer determines if an identity is allowed to perform an action.
type Authorizer interface {
	// Authorize checks if the request is permitted.
	// Returns nil if authorized, or an error (typically *AuthzError) if denied.
	Authorize(ctx context.Context, req *AuthzRequest) error

	// Name returns a unique identifier for this authorizer.
	Name() string
}

// AuthzRequest contains the information needed for authorization.
type AuthzRequest struct {
	// Subject is the identity making the request.
	Subject *Identity

	// Schema is the database schema the request targets.
	Schema string

	// Action is the requested action (e.g., "read", "reload").
	Action string
}

// AuthzError represents an authorization failure.
type AuthzError struct {
	// Subject is the identity that was denied.
	Subject string

	// Schema is the schema that was denied access to.
	Schema string

	// Action is the action that was denied.
	Action string

	// Reason explains why access was denied.
	Reason string

	// Cause is the underlying error if any.
	Cause error
}

// Error returns the error message.
func (e *AuthzError) Error() string {
	return fmt.Sprintf("authorization denied: subject=%q schema=%q action=%q reason=%q",
		e.Subject, e.Schema, e.Action, e.Reason)
}

// Unwrap returns the cause error for errors.Is/As support.
func (e *AuthzError) Unwrap() error {
	return e.Cause
}

// Is reports whether this error matches the target.
func (e *AuthzError) Is(target error) bool {
	return target == ErrForbidden
}

// SchemaAuthorizer confines each identity to its resolved tenant schema.
// Identities without a resolved schema are unconfined, and the admin role
// bypasses confinement entirely. Schema comparison is case-insensitive to
// match catalog semantics.
type SchemaAuthorizer struct {
	adminRole string
}

// NewSchemaAuthorizer creates a schema-scope authorizer. An empty adminRole
// disables the bypass.
func NewSchemaAuthorizer(adminRole string) *SchemaAuthorizer {
	return &SchemaAuthorizer{adminRole: adminRole}
}

// Authorize permits the request when the target schema matches the subject's
// resolved schema.
func (a *SchemaAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	sub := req.Subject
	if sub == nil || sub.Schema == "" {
		return nil
	}
	if a.adminRole != "" && sub.HasRole(a.adminRole) {
		return nil
	}
	if strings.EqualFold(req.Schema, sub.Schema) {
		return nil
	}
	return &AuthzError{
		Subject: sub.Principal,
		Schema:  req.Schema,
		Action:  req.Action,
		Reason:  "schema outside tenant scope",
	}
}

// Name returns "schema_scope".
func (a *SchemaAuthorizer) Name() string {
	return "schema_scope"
}

// RoleAuthorizer requires a role for access. An empty required role admits
// everyone; the admin role always passes.
type RoleAuthorizer struct {
	required  string
	adminRole string
}

// NewRoleAuthorizer creates a role-gate authorizer.
func NewRoleAuthorizer(required, adminRole string) *RoleAuthorizer {
	return &RoleAuthorizer{required: required, adminRole: adminRole}
}

// Authorize permits the request when the subject holds the required role.
func (a *RoleAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if a.required == "" {
		return nil
	}
	sub := req.Subject
	if sub == nil {
		return &AuthzError{
			Schema: req.Schema,
			Action: req.Action,
			Reason: fmt.Sprintf("role %q required", a.required),
		}
	}
	if sub.HasRole(a.required) {
		return nil
	}
	if a.adminRole != "" && sub.HasRole(a.adminRole) {
		return nil
	}
	return &AuthzError{
		Subject: sub.Principal,
		Schema:  req.Schema,
		Action:  req.Action,
		Reason:  fmt.Sprintf("missing role %q", a.required),
	}
}

// Name returns "role".
func (a *RoleAuthorizer) Name() string {
	return "role"
}

// ChainAuthorizer runs authorizers in order; the first denial wins.
type ChainAuthorizer struct {
	chain []Authorizer
}

// NewChainAuthorizer combines authorizers into one.
func NewChainAuthorizer(authorizers ...Authorizer) *ChainAuthorizer {
	return &ChainAuthorizer{chain: authorizers}
}

// Authorize checks each authorizer in order.
func (c *ChainAuthorizer) Authorize(ctx context.Context, req *AuthzRequest) error {
	for _, a := range c.chain {
		if err := a.Authorize(ctx, req); err != nil {
			return err
		}
	}
	return nil
}

// Name returns "chain".
func (c *ChainAuthorizer) Name() string {
	return "chain"
}

// AllowAllAuthorizer permits all requests.
type AllowAllAuthorizer struct{}

// Authorize always returns nil (permitted).
func (a AllowAllAuthorizer) Authorize(_ context.Context, _ *AuthzRequest) error {
	return nil
}

// Name returns "allow_all".
func (a AllowAllAuthorizer) Name() string {
	return "allow_all"
}

// DenyAllAuthorizer denies all requests.
type DenyAllAuthorizer struct{}

// Authorize always returns an error (denied).
func (a DenyAllAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	subject := ""
	if req.Subject != nil {
		subject = req.Subject.Principal
	}
	return &AuthzError{
		Subject: subject,
		Schema:  req.Schema,
		Action:  req.Action,
		Reason:  "all requests denied",
	}
}

// Name returns "deny_all".
func (a DenyAllAuthorizer) Name() string {
	return "deny_all"
}

// AuthorizerFunc is an adapter to allow use of ordinary functions as Authorizers.
type AuthorizerFunc func(ctx context.Context, req *AuthzRequest) error

// Authorize calls the function.
func (f AuthorizerFunc) Authorize(ctx context.Context, req *AuthzRequest) error {
	return f(ctx, req)
}

// Name returns "func" for function-based authorizers.
func (f AuthorizerFunc) Name() string {
	return "func"
}

var (
	_ Authorizer = (*SchemaAuthorizer)(nil)
	_ Authorizer = (*RoleAuthorizer)(nil)
	_ Authorizer = (*ChainAuthorizer)(nil)
)
