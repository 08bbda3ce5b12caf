package goheap

import "errors"

// Errors
var (
	ErrBadID              = errors.New("bad or unknown heap element ID")
	ErrWrongKind          = errors.New("heap element is not of the expected kind")
	ErrRankMismatch       = errors.New("nonterminal rank does not match tentacle or external node count")
	ErrDuplicateSelector  = errors.New("node already has a selector with that label")
	ErrMissingSelector    = errors.New("node has no selector with that label")
	ErrNotIsolated        = errors.New("node still has incident edges")
	ErrAlreadyExternal    = errors.New("node is already external")
	ErrNotExternal        = errors.New("node is not external")
	ErrDuplicateVariable  = errors.New("variable name already in use")
	ErrBuilderInvalid     = errors.New("builder was already built")
	ErrBuilderActive      = errors.New("heap configuration has an active builder")
	ErrWrongResponseType  = errors.New("grammar response is not of the kind the applier expects")
	ErrBadEncoding        = errors.New("bad heap configuration encoding")
	ErrBadExpr            = errors.New("bad heap expression")
	ErrBadCatalogParam    = errors.New("bad catalog param")
	ErrUndeclaredNode     = errors.New("node name was not declared")
	ErrUnknownNonterminal = errors.New("nonterminal label was not declared")
	ErrNonShrinkingRule   = errors.New("folding the rule's right-hand side would not shrink a heap")
)
