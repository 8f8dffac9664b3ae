// Package optim implements update rules for param.Parameter. An
// Optimizer holds a list of Parameter references plus opaque
// hyperparameters; it does not own the Parameters and does not
// participate in building a graph.Graph.
package optim

import "github.com/born-ml/autograd/param"

// Optimizer updates a fixed set of Parameters from their accumulated
// gradients, per spec.md §4.7 and §6's "Optimizer interface".
type Optimizer interface {
	// AddParameter registers p for future ResetGradients/Update calls.
	AddParameter(p *param.Parameter)
	// ResetGradients zeroes every registered Parameter's gradient.
	ResetGradients() error
	// Update reads every registered Parameter's gradient and applies
	// the optimizer's rule to its value.
	Update() error
}
