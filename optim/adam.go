package optim

import (
	"math"

	"github.com/born-ml/autograd/param"
	"github.com/born-ml/autograd/tensor"
)

// AdamConfig configures Adam. Zero fields fall back to the usual
// defaults (LR 0.001, Betas [0.9, 0.999], Eps 1e-8), matching the
// teacher's AdamConfig.
type AdamConfig struct {
	LR    float32
	Beta1 float32
	Beta2 float32
	Eps   float32
}

const (
	adamMKey = "optim.adam.m"
	adamVKey = "optim.adam.v"
)

// Adam implements Adaptive Moment Estimation (Kingma & Ba, 2014),
// keeping the first and second moment buffers in each Parameter's Aux
// map under adamMKey/adamVKey.
type Adam struct {
	cfg    AdamConfig
	params []*param.Parameter
	t      int
}

var _ Optimizer = (*Adam)(nil)

// NewAdam creates an Adam optimizer, filling in defaults for any zero
// field of cfg.
func NewAdam(cfg AdamConfig) *Adam {
	if cfg.LR == 0 {
		cfg.LR = 0.001
	}
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Eps == 0 {
		cfg.Eps = 1e-8
	}
	return &Adam{cfg: cfg}
}

// AddParameter registers p with the optimizer.
func (a *Adam) AddParameter(p *param.Parameter) {
	a.params = append(a.params, p)
}

// ResetGradients zeroes every registered Parameter's gradient.
func (a *Adam) ResetGradients() error {
	for _, p := range a.params {
		if err := p.ResetGradient(); err != nil {
			return err
		}
	}
	return nil
}

// Update applies one Adam step to every registered Parameter.
func (a *Adam) Update() error {
	a.t++
	bc1 := float32(1 - math.Pow(float64(a.cfg.Beta1), float64(a.t)))
	bc2 := float32(1 - math.Pow(float64(a.cfg.Beta2), float64(a.t)))
	for _, p := range a.params {
		if err := a.step(p, bc1, bc2); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adam) step(p *param.Parameter, bc1, bc2 float32) error {
	m, err := a.momentBuffer(p, adamMKey)
	if err != nil {
		return err
	}
	v, err := a.momentBuffer(p, adamVKey)
	if err != nil {
		return err
	}

	gradVals, err := p.Grad().ToVector()
	if err != nil {
		return err
	}
	mVals, err := m.ToVector()
	if err != nil {
		return err
	}
	vVals, err := v.ToVector()
	if err != nil {
		return err
	}
	paramVals, err := p.Value().ToVector()
	if err != nil {
		return err
	}

	for i, g := range gradVals {
		mVals[i] = a.cfg.Beta1*mVals[i] + (1-a.cfg.Beta1)*g
		vVals[i] = a.cfg.Beta2*vVals[i] + (1-a.cfg.Beta2)*g*g
		mHat := mVals[i] / bc1
		vHat := vVals[i] / bc2
		paramVals[i] -= a.cfg.LR * mHat / (float32(math.Sqrt(float64(vHat))) + a.cfg.Eps)
	}

	if err := m.SetValuesSlice(mVals); err != nil {
		return err
	}
	if err := v.SetValuesSlice(vVals); err != nil {
		return err
	}
	return p.Value().SetValuesSlice(paramVals)
}

func (a *Adam) momentBuffer(p *param.Parameter, key string) (tensor.Tensor, error) {
	if t, ok := p.Aux()[key]; ok {
		return t, nil
	}
	t, err := p.Value().Device().NewTensor(p.Grad().Shape())
	if err != nil {
		return tensor.Tensor{}, err
	}
	if err := t.SetValues(0); err != nil {
		t.Free()
		return tensor.Tensor{}, err
	}
	p.Aux()[key] = t
	return t, nil
}
