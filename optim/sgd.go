package optim

import (
	"github.com/born-ml/autograd/param"
	"github.com/born-ml/autograd/tensor"
)

// SGDConfig configures SGD. Momentum of 0 disables the velocity
// buffer entirely, matching the teacher's SGDConfig.
type SGDConfig struct {
	LR       float32
	Momentum float32
}

const sgdVelocityKey = "optim.sgd.velocity"

// SGD implements gradient descent with optional momentum:
//
//	without momentum: value -= lr * grad
//	with momentum:     velocity = momentum*velocity + grad
//	                    value -= lr * velocity
//
// The velocity buffer, when used, lives in each Parameter's Aux map
// under sgdVelocityKey so it is freed along with the Parameter.
type SGD struct {
	cfg    SGDConfig
	params []*param.Parameter
}

var _ Optimizer = (*SGD)(nil)

// NewSGD creates an SGD optimizer. A zero LR defaults to 0.01,
// matching the teacher's NewSGD.
func NewSGD(cfg SGDConfig) *SGD {
	if cfg.LR == 0 {
		cfg.LR = 0.01
	}
	return &SGD{cfg: cfg}
}

// AddParameter registers p with the optimizer.
func (s *SGD) AddParameter(p *param.Parameter) {
	s.params = append(s.params, p)
}

// ResetGradients zeroes every registered Parameter's gradient.
func (s *SGD) ResetGradients() error {
	for _, p := range s.params {
		if err := p.ResetGradient(); err != nil {
			return err
		}
	}
	return nil
}

// Update applies the SGD rule to every registered Parameter.
func (s *SGD) Update() error {
	for _, p := range s.params {
		if s.cfg.Momentum == 0 {
			if err := s.stepPlain(p); err != nil {
				return err
			}
			continue
		}
		if err := s.stepMomentum(p); err != nil {
			return err
		}
	}
	return nil
}

func (s *SGD) stepPlain(p *param.Parameter) error {
	dev := p.Value().Device()
	scaled, err := dev.MulK(p.Grad(), s.cfg.LR)
	if err != nil {
		return err
	}
	defer scaled.Free()
	return subInPlace(p.Value(), scaled)
}

func (s *SGD) stepMomentum(p *param.Parameter) error {
	dev := p.Value().Device()
	velocity, ok := p.Aux()[sgdVelocityKey]
	if !ok {
		v, err := dev.NewTensor(p.Grad().Shape())
		if err != nil {
			return err
		}
		if err := v.SetValues(0); err != nil {
			v.Free()
			return err
		}
		p.Aux()[sgdVelocityKey] = v
		velocity = v
	}

	scaled, err := dev.MulK(velocity, s.cfg.Momentum)
	if err != nil {
		return err
	}
	newVelocity, err := dev.Add(scaled, p.Grad())
	scaled.Free()
	if err != nil {
		return err
	}
	err = overwriteInPlace(velocity, newVelocity)
	newVelocity.Free()
	if err != nil {
		return err
	}

	update, err := dev.MulK(velocity, s.cfg.LR)
	if err != nil {
		return err
	}
	defer update.Free()
	return subInPlace(p.Value(), update)
}

// subInPlace subtracts delta from dst's current values, writing the
// result back into dst via ToVector/SetValuesSlice, the only mutation
// path tensor.Tensor exposes besides AddGradient.
func subInPlace(dst, delta tensor.Tensor) error {
	diff, err := dst.Device().Sub(dst, delta)
	if err != nil {
		return err
	}
	defer diff.Free()
	return overwriteInPlace(dst, diff)
}

func overwriteInPlace(dst, src tensor.Tensor) error {
	vals, err := src.ToVector()
	if err != nil {
		return err
	}
	return dst.SetValuesSlice(vals)
}
