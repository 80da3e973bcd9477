package rule

import (
	"regexp"
	"strings"

	"github.com/sinKettu/cruster-audit/internal/audit/actionkind"
	"github.com/sinKettu/cruster-audit/internal/audit/auderr"
	"github.com/sinKettu/cruster-audit/internal/audit/expr"
	"github.com/sinKettu/cruster-audit/internal/audit/runctx"
)

// RawExpr is the on-disk form of one ExecutableExpression: a name that
// later expressions in the same find.exec can reference as a Variable,
// an operation name, and its raw arguments.
type RawExpr struct {
	Name          string
	OperationName string
	Args          []expr.RawArg

	opCache      expr.Op
	patternCache *regexp.Regexp // set only when Args[1] is a literal string pattern for ReMatch
}

// Find evaluates a list of expressions in declaration order against
// values borrowed from the execution context, binding each one's
// output under its Name so later expressions can reference it as a
// Variable.
type Find struct {
	ID      string
	LookFor string // "any" or "all"
	Exec    []RawExpr

	lookForCache actionkind.LookFor
}

// CheckUp resolves LookFor and, for each expression, resolves its
// operation name, checks up every argument (which also resolves any
// reference it carries), and validates arity/types via CheckArgs. A
// ReMatch expression whose pattern argument is a literal string gets
// its regexp compiled here rather than on every evaluation.
func (f *Find) CheckUp(sendIDs map[string]int, sendActionsCount int) error {
	switch strings.ToLower(f.LookFor) {
	case "any":
		f.lookForCache = actionkind.LookAny
	case "all":
		f.lookForCache = actionkind.LookAll
	default:
		return auderr.New("find %q: unsupported look_for %q", f.ID, f.LookFor)
	}

	if len(f.Exec) == 0 {
		return auderr.New("find %q: exec must declare at least one expression", f.ID)
	}

	priorOps := make(map[string]expr.Kind, len(f.Exec))
	seenNames := make(map[string]bool, len(f.Exec))

	for i := range f.Exec {
		op := &f.Exec[i]
		if seenNames[op.Name] {
			return auderr.New("find %q: expression name %q is declared more than once", f.ID, op.Name)
		}
		seenNames[op.Name] = true

		resolved, ok := expr.ResolveOp(op.OperationName)
		if !ok {
			return auderr.New("find %q: unknown operation %q at expression %q", f.ID, op.OperationName, op.Name)
		}
		op.opCache = resolved

		for argIndex := range op.Args {
			if err := op.Args[argIndex].CheckUp(sendIDs, sendActionsCount, priorOps); err != nil {
				return auderr.Wrap("expression "+op.Name, err)
			}
		}

		if err := expr.CheckArgs(resolved, op.Args); err != nil {
			return auderr.Wrap("expression "+op.Name, err)
		}

		if resolved == expr.OpReMatch {
			pattern := op.Args[1].Cached()
			if pattern.Kind == expr.KindString {
				re, err := regexp.Compile(pattern.Str)
				if err != nil {
					return auderr.New("find %q: expression %q has invalid regex pattern %q: %s", f.ID, op.Name, pattern.Str, err)
				}
				op.patternCache = re
			}
		}

		priorOps[op.Name] = outputKind(resolved)
	}

	return nil
}

// outputKind reports the Kind an operation's result carries, used so a
// later Variable argument knows what type it inherits.
func outputKind(op expr.Op) expr.Kind {
	if op == expr.OpLen {
		return expr.KindInteger
	}
	return expr.KindBoolean
}

// Deref is the minimal view Find needs of the execution context to
// resolve Reference arguments: dereferencing against accumulated send
// results.
type Deref interface {
	Deref(expr.Reference) (expr.Value, error)
}

// Exec evaluates every expression in declaration order, binding each
// result under its name, and pushes the reduced Boolean verdict of the
// last expression into the context.
func (f *Find) Exec(ctx runctx.WithFindAction, deref Deref) error {
	executed := make(map[string]expr.Value, len(f.Exec))
	var lastName string

	for _, op := range f.Exec {
		args := make([]expr.Value, len(op.Args))
		for i := range op.Args {
			cached := op.Args[i].Cached()
			switch cached.Kind {
			case expr.KindReference:
				v, err := deref.Deref(cached.Ref)
				if err != nil {
					return auderr.Wrap("expression "+op.Name, err)
				}
				args[i] = v
			case expr.KindVariable:
				v, ok := executed[cached.VarName]
				if !ok {
					return auderr.New("expression %q: variable %q has not executed yet", op.Name, cached.VarName)
				}
				args[i] = v
			default:
				args[i] = cached
			}
		}

		result, err := expr.Exec(op.opCache, args, op.patternCache)
		if err != nil {
			return auderr.Wrap("expression "+op.Name, err)
		}

		executed[op.Name] = result
		lastName = op.Name
	}

	last := executed[lastName]
	switch last.Kind {
	case expr.KindBoolean:
		ctx.AddFindResult(last.Bln)
	case expr.KindSeveral:
		ctx.AddFindResult(reduce(f.lookForCache, last.Several))
	default:
		return auderr.New("find %q: last expression %q produced %s, expected bool", f.ID, lastName, last.Kind)
	}

	return nil
}

func reduce(mode actionkind.LookFor, vals []expr.Value) bool {
	if mode == actionkind.LookAll {
		for _, v := range vals {
			if !v.AsBool() {
				return false
			}
		}
		return true
	}
	for _, v := range vals {
		if v.AsBool() {
			return true
		}
	}
	return false
}
