package executor

import "rollup.dev/kernel/transaction"

// Result wraps a value produced by a fallible executor step alongside the
// cycle cost of producing it. No function in this repo returns or consumes
// a Result; txoutput.Extract takes an *ExecutedTransaction directly.
type Result[T any] struct {
	Value      T
	CyclesUsed uint64
}

// ExecutedTransaction is everything one transaction's execution produced:
// the inputs it ran against, the advice payload built for it, and the
// session state (delta, fee, foreign accounts) HandleEvent accumulated.
// txoutput's extraction stage turns this into a TransactionOutputs.
type ExecutedTransaction struct {
	Inputs  *transaction.Inputs
	Advice  transaction.AdviceInputs
	Session *Session
}

// NewExecutedTransaction bundles the three pieces a completed execution
// leaves behind.
func NewExecutedTransaction(in *transaction.Inputs, advice transaction.AdviceInputs, sess *Session) *ExecutedTransaction {
	return &ExecutedTransaction{Inputs: in, Advice: advice, Session: sess}
}
