// Package policy decides whether a session may act on friend requests. Rules
// live in friends.rego and are evaluated with OPA; each rule yields the
// reasons an action is denied.
package policy

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/Jeffail/gabs/v2"
	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/ast"
	"github.com/open-policy-agent/opa/rego"
	"github.com/vedran77/huddle/internal/domain"
)

//go:embed friends.rego
var friendsModule string

const (
	ReasonSelf           = "self"
	ReasonAlreadyFriends = "already_friends"
	ReasonNotRecipient   = "not_recipient"
	ReasonNotSender      = "not_sender"
	ReasonNotPending     = "not_pending"
)

// Decision lists the reasons an action was denied. No reasons means allowed.
type Decision struct {
	Reasons []string
}

func (d Decision) Allowed() bool {
	return len(d.Reasons) == 0
}

func (d Decision) Has(reason string) bool {
	for _, r := range d.Reasons {
		if r == reason {
			return true
		}
	}
	return false
}

type Engine struct {
	send    rego.PreparedEvalQuery
	resolve rego.PreparedEvalQuery
	cancel  rego.PreparedEvalQuery
}

func New(ctx context.Context) (*Engine, error) {
	compiler, err := ast.CompileModules(map[string]string{"friends.rego": friendsModule})
	if err != nil {
		return nil, fmt.Errorf("compiling friends policy: %w", err)
	}

	prepare := func(rule string) (rego.PreparedEvalQuery, error) {
		return rego.New(
			rego.Compiler(compiler),
			rego.Query("data.huddle.friends."+rule),
		).PrepareForEval(ctx)
	}

	e := &Engine{}
	if e.send, err = prepare("deny_send"); err != nil {
		return nil, fmt.Errorf("preparing deny_send: %w", err)
	}
	if e.resolve, err = prepare("deny_resolve"); err != nil {
		return nil, fmt.Errorf("preparing deny_resolve: %w", err)
	}
	if e.cancel, err = prepare("deny_cancel"); err != nil {
		return nil, fmt.Errorf("preparing deny_cancel: %w", err)
	}
	return e, nil
}

// Send decides whether actor may send a request to target.
func (e *Engine) Send(ctx context.Context, actor, target uuid.UUID, actorFriends []uuid.UUID) (Decision, error) {
	friends := make([]string, 0, len(actorFriends))
	for _, f := range actorFriends {
		friends = append(friends, f.String())
	}
	return evaluate(ctx, e.send, map[string]any{
		"actor":         actor.String(),
		"target":        target.String(),
		"actor_friends": friends,
	})
}

// Resolve decides whether actor may accept or decline req.
func (e *Engine) Resolve(ctx context.Context, actor uuid.UUID, req *domain.FriendRequest) (Decision, error) {
	return evaluate(ctx, e.resolve, requestInput(actor, req))
}

// Cancel decides whether actor may withdraw req.
func (e *Engine) Cancel(ctx context.Context, actor uuid.UUID, req *domain.FriendRequest) (Decision, error) {
	return evaluate(ctx, e.cancel, requestInput(actor, req))
}

func requestInput(actor uuid.UUID, req *domain.FriendRequest) map[string]any {
	return map[string]any{
		"actor": actor.String(),
		"request": map[string]any{
			"sender_id":    req.SenderID.String(),
			"recipient_id": req.RecipientID.String(),
			"status":       string(req.Status),
		},
	}
}

func evaluate(ctx context.Context, query rego.PreparedEvalQuery, input map[string]any) (Decision, error) {
	rs, err := query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("evaluating policy: %w", err)
	}
	if len(rs) == 0 {
		return Decision{}, nil
	}

	data, err := json.Marshal(rs)
	if err != nil {
		return Decision{}, fmt.Errorf("encoding policy result: %w", err)
	}
	result, err := gabs.ParseJSON(data)
	if err != nil {
		return Decision{}, fmt.Errorf("parsing policy result: %w", err)
	}

	var d Decision
	for _, child := range result.Path("0.expressions.0.value").Children() {
		if reason, ok := child.Data().(string); ok {
			d.Reasons = append(d.Reasons, reason)
		}
	}
	sort.Strings(d.Reasons)
	return d, nil
}
