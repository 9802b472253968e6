package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
)

const decisionQuery = "data.envmonitor.routes.decision"

// routePolicy mirrors Decide.
const routePolicy = `package envmonitor.routes

default allow := false

default redirect := ""

is_admin if upper(input.role) == "ADMIN"

admin_path if input.path == "/admin"

admin_path if startswith(input.path, "/admin/")

user_path if input.path == "/user"

user_path if startswith(input.path, "/user/")

guest_path if input.path == "/auth/login"

guest_path if input.path == "/auth/register"

login_redirect := concat("", ["/auth/login?returnUrl=", urlquery.encode(input.path)])

landing := "/admin/dashboard" if is_admin

landing := "/auth/waiting-approval" if {
	not is_admin
	input.enabled == false
}

landing := "/user/dashboard" if {
	not is_admin
	input.enabled != false
}

allow if {
	admin_path
	input.authenticated
	is_admin
}

allow if {
	user_path
	input.authenticated
}

allow if {
	guest_path
	not input.authenticated
}

allow if {
	not admin_path
	not user_path
	not guest_path
}

redirect := login_redirect if {
	admin_path
	not input.authenticated
}

redirect := "/unauthorized" if {
	admin_path
	input.authenticated
	not is_admin
}

redirect := login_redirect if {
	user_path
	not input.authenticated
}

redirect := landing if {
	guest_path
	input.authenticated
}

decision := {"allow": allow, "redirect": redirect}
`

// OPAEvaluator evaluates route guards with an in-process Rego query. The query is compiled once
// on first use; any compile or evaluation failure falls back to Decide.
type OPAEvaluator struct {
	modules map[string]string

	once     sync.Once
	prepared rego.PreparedEvalQuery
	initErr  error
}

// NewOPAEvaluator returns a route guard backed by the built-in policy.
func NewOPAEvaluator() *OPAEvaluator {
	return &OPAEvaluator{modules: map[string]string{"routes.rego": routePolicy}}
}

func (e *OPAEvaluator) prepare(ctx context.Context) (rego.PreparedEvalQuery, error) {
	e.once.Do(func() {
		compiler, err := ast.CompileModules(e.modules)
		if err != nil {
			e.initErr = fmt.Errorf("compile route policy: %w", err)
			return
		}
		e.prepared, e.initErr = rego.New(
			rego.Query(decisionQuery),
			rego.Compiler(compiler),
		).PrepareForEval(ctx)
		if e.initErr != nil {
			e.initErr = fmt.Errorf("prepare route policy: %w", e.initErr)
		}
	})
	return e.prepared, e.initErr
}

// HealthCheck compiles the policy and evaluates one request. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.evaluate(ctx, Input{Path: RouteAdminDashboard})
	return err
}

// EvaluateRoute implements Evaluator.
func (e *OPAEvaluator) EvaluateRoute(ctx context.Context, in Input) Decision {
	d, err := e.evaluate(ctx, in)
	if err != nil {
		log.Printf("policy: route evaluation failed: %v, using built-in rules", err)
		return Decide(in)
	}
	return d
}

func (e *OPAEvaluator) evaluate(ctx context.Context, in Input) (Decision, error) {
	pq, err := e.prepare(ctx)
	if err != nil {
		return Decision{}, err
	}
	input := map[string]interface{}{
		"path":          in.Path,
		"authenticated": in.Authenticated,
		"role":          in.Role,
		"enabled":       in.Enabled,
	}
	rs, err := pq.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("eval route policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, fmt.Errorf("route policy returned no result")
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("route policy returned %T", rs[0].Expressions[0].Value)
	}
	var d Decision
	d.Allow, _ = obj["allow"].(bool)
	d.Redirect, _ = obj["redirect"].(string)
	return d, nil
}
