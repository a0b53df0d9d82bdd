package wavelet

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"

	"gowave/domain/core"

	"gonum.org/v1/gonum/integrate/quad"
)

// Family names a mother wavelet.
type Family string

const (
	FamilyMorlet Family = "morlet"
	FamilyPaul   Family = "paul"
	FamilyDOG    Family = "dog"
)

// ParseFamily accepts the family names used in configuration, including "mexicanhat".
func ParseFamily(s string) (Family, int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "morlet":
		return FamilyMorlet, 0, nil
	case "paul":
		return FamilyPaul, 0, nil
	case "dog":
		return FamilyDOG, 0, nil
	case "mexicanhat", "mexican_hat":
		return FamilyDOG, 2, nil
	default:
		return "", 0, core.NewInvalidWaveletParameterError("unknown wavelet family %q", s)
	}
}

// MinMorletW0 is the smallest central frequency for which the Morlet wavelet
// is treated as zero-mean.
const MinMorletW0 = 5.0

// Basis is a mother wavelet chosen at configuration time. The CWT engine only
// talks to it through FourierHat and the constants below, so adding a family
// means adding a constructor.
type Basis struct {
	family Family
	param  float64

	hat func(u float64) complex128   // ψ̂0 at scaled angular frequency u = s·ω
	psi func(eta float64) complex128 // ψ0 at non-dimensional time η = t/s

	fourierFactor float64 // period / scale
	coiFactor     float64 // e-folding time / scale
	complexValued bool
	gamma         float64 // time decorrelation factor
	dj0           float64 // scale decorrelation length, octaves

	psi0   float64
	cdelta float64
}

// NewMorlet builds the complex Morlet wavelet with central angular frequency w0.
func NewMorlet(w0 float64) (*Basis, error) {
	if math.IsNaN(w0) || w0 < MinMorletW0 {
		return nil, core.NewInvalidWaveletParameterError("morlet w0=%v below admissible minimum %v", w0, MinMorletW0)
	}
	norm := math.Pow(math.Pi, -0.25)
	b := &Basis{
		family: FamilyMorlet,
		param:  w0,
		hat: func(u float64) complex128 {
			if u <= 0 {
				return 0
			}
			d := u - w0
			return complex(norm*math.Exp(-d*d/2), 0)
		},
		psi: func(eta float64) complex128 {
			return complex(norm*math.Exp(-eta*eta/2), 0) * cmplx.Exp(complex(0, w0*eta))
		},
		fourierFactor: 4 * math.Pi / (w0 + math.Sqrt(2+w0*w0)),
		coiFactor:     math.Sqrt2,
		complexValued: true,
		gamma:         2.32,
		dj0:           0.60,
	}
	return b.finish()
}

// NewPaul builds the Paul wavelet of even order m (m=4 is customary).
func NewPaul(m int) (*Basis, error) {
	if m < 2 || m%2 != 0 || m > 20 {
		return nil, core.NewInvalidWaveletParameterError("paul order must be even in [2,20], got %d", m)
	}
	fm := float64(m)
	hatNorm := math.Pow(2, fm) / math.Sqrt(fm*math.Gamma(2*fm))
	sign := evenPowerOfI(m)
	psiNorm := complex(sign*math.Pow(2, fm)*math.Gamma(fm+1)/math.Sqrt(math.Pi*math.Gamma(2*fm+1)), 0)
	b := &Basis{
		family: FamilyPaul,
		param:  fm,
		hat: func(u float64) complex128 {
			if u <= 0 {
				return 0
			}
			return complex(sign*hatNorm*math.Pow(u, fm)*math.Exp(-u), 0)
		},
		psi: func(eta float64) complex128 {
			return psiNorm * cmplx.Pow(complex(1, -eta), complex(-(fm+1), 0))
		},
		fourierFactor: 4 * math.Pi / (2*fm + 1),
		coiFactor:     1 / math.Sqrt2,
		complexValued: true,
		gamma:         1.17,
		dj0:           1.5,
	}
	return b.finish()
}

// NewDOG builds the derivative-of-Gaussian wavelet of even order m; m=2 is the Mexican hat.
func NewDOG(m int) (*Basis, error) {
	if m < 2 || m%2 != 0 || m > 20 {
		return nil, core.NewInvalidWaveletParameterError("dog order must be even in [2,20], got %d", m)
	}
	fm := float64(m)
	norm := 1 / math.Sqrt(math.Gamma(fm+0.5))
	sign := evenPowerOfI(m)
	gamma, dj0 := 1.43, 1.4
	if m >= 6 {
		gamma, dj0 = 1.37, 0.97
	}
	b := &Basis{
		family: FamilyDOG,
		param:  fm,
		hat: func(u float64) complex128 {
			return complex(-sign*norm*math.Pow(u, fm)*math.Exp(-u*u/2), 0)
		},
		psi: func(eta float64) complex128 {
			return complex(-norm*hermite(m, eta)*math.Exp(-eta*eta/2), 0)
		},
		fourierFactor: 2 * math.Pi / math.Sqrt(fm+0.5),
		coiFactor:     math.Sqrt2,
		complexValued: false,
		gamma:         gamma,
		dj0:           dj0,
	}
	return b.finish()
}

// NewBasis dispatches on family. param is w0 for Morlet and the order for Paul/DOG;
// zero selects the customary default.
func NewBasis(family Family, param float64) (*Basis, error) {
	switch family {
	case FamilyMorlet, "":
		if param == 0 {
			param = 6
		}
		return NewMorlet(param)
	case FamilyPaul:
		if param == 0 {
			param = 4
		}
		return NewPaul(int(param))
	case FamilyDOG:
		if param == 0 {
			param = 2
		}
		return NewDOG(int(param))
	default:
		return nil, core.NewInvalidWaveletParameterError("unknown wavelet family %q", family)
	}
}

func (b *Basis) finish() (*Basis, error) {
	b.psi0 = real(b.psi(0))
	if b.psi0 == 0 {
		return nil, core.NewInvalidWaveletParameterError("%s: ψ0(0) vanishes, reconstruction undefined", b.Name())
	}
	// Cδ = √(2π)·∫ Re ψ̂0(u)/|u| du / (2·ψ0(0)·ln 2); the integral is taken in log-frequency.
	pos := logIntegral(func(u float64) float64 { return real(b.hat(u)) })
	neg := logIntegral(func(u float64) float64 { return real(b.hat(-u)) })
	b.cdelta = math.Sqrt(2*math.Pi) * (pos + neg) / (2 * b.psi0 * math.Ln2)
	if b.cdelta <= 0 || math.IsNaN(b.cdelta) {
		return nil, core.NewInvalidWaveletParameterError("%s: non-positive reconstruction constant %v", b.Name(), b.cdelta)
	}
	return b, nil
}

// Name is the family plus its parameter, e.g. "morlet(6)".
func (b *Basis) Name() string {
	return fmt.Sprintf("%s(%g)", b.family, b.param)
}

func (b *Basis) Family() Family { return b.family }

// Param is w0 for Morlet, the order otherwise.
func (b *Basis) Param() float64 { return b.param }

// FourierHat is the normalised Fourier transform ψ̂0(s·ω).
func (b *Basis) FourierHat(omega, scale float64) complex128 {
	return b.hat(scale * omega)
}

// Psi is the energy-normalised daughter wavelet √(dt/s)·ψ0(t·dt/s) at time index t.
func (b *Basis) Psi(t int, scale, dt float64) complex128 {
	return complex(math.Sqrt(dt/scale), 0) * b.psi(float64(t)*dt/scale)
}

// FourierPeriod converts a scale to its equivalent Fourier period.
func (b *Basis) FourierPeriod(scale float64) float64 { return b.fourierFactor * scale }

// ScaleForPeriod is the inverse of FourierPeriod.
func (b *Basis) ScaleForPeriod(period float64) float64 { return period / b.fourierFactor }

// FourierFactor is the period/scale ratio.
func (b *Basis) FourierFactor() float64 { return b.fourierFactor }

// EFolding is the time over which an edge discontinuity decays by e² in power.
func (b *Basis) EFolding(scale float64) float64 { return b.coiFactor * scale }

// IsComplex reports whether the wavelet separates amplitude and phase.
func (b *Basis) IsComplex() bool { return b.complexValued }

// DOF is the chi-squared degrees of freedom of unsmoothed wavelet power.
func (b *Basis) DOF() float64 {
	if b.complexValued {
		return 2
	}
	return 1
}

// DecorrelationTime is γ, the time-averaging decorrelation factor.
func (b *Basis) DecorrelationTime() float64 { return b.gamma }

// DecorrelationScale is δj0 in octaves.
func (b *Basis) DecorrelationScale() float64 { return b.dj0 }

// Psi0 is ψ0(0), used by reconstruction.
func (b *Basis) Psi0() float64 { return b.psi0 }

// Cdelta is the reconstruction (admissibility) constant.
func (b *Basis) Cdelta() float64 { return b.cdelta }

// logIntegral computes ∫_0^∞ f(u)/u du as ∫ f(e^y) dy over y in [-20, 7].
func logIntegral(f func(u float64) float64) float64 {
	const (
		lo, hi = -20.0, 7.0
		panels = 54
		nodes  = 24
	)
	width := (hi - lo) / panels
	g := func(y float64) float64 { return f(math.Exp(y)) }
	sum := 0.0
	for p := 0; p < panels; p++ {
		a := lo + float64(p)*width
		sum += quad.Fixed(g, a, a+width, nodes, quad.Legendre{}, 0)
	}
	return sum
}

// evenPowerOfI returns i^m for even m.
func evenPowerOfI(m int) float64 {
	if (m/2)%2 == 1 {
		return -1
	}
	return 1
}

// hermite evaluates the probabilists' Hermite polynomial He_m.
func hermite(m int, x float64) float64 {
	if m == 0 {
		return 1
	}
	prev, cur := 1.0, x
	for k := 1; k < m; k++ {
		prev, cur = cur, x*cur-float64(k)*prev
	}
	return cur
}
