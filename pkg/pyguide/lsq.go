package pyguide

import "math"

// fitModel evaluates a parametric model at x; fitGradient fills grad with the
// partial derivatives with respect to the parameters at x.
type fitModel func(p []float64, x float64) float64
type fitGradient func(p []float64, x float64, grad []float64)

// curveFit minimizes the weighted sum of squared residuals of model against
// (xs, ys) using Levenberg-Marquardt with damped gauss-newton steps.
// Parameters are clamped to [lower, upper] after each step; scale sets the
// relative damping per parameter. Returns the fitted parameters and the
// final weighted chi squared, or ok=false if the normal equations stay
// singular at every damping level.
func curveFit(
	model fitModel, gradient fitGradient,
	xs, ys, weights []float64,
	x0, lower, upper, scale []float64,
	tolerance float64, maxIter int,
) (params []float64, cost float64, ok bool) {
	n := len(x0)
	m := len(xs)

	sqrtW := make([]float64, m)
	for k, w := range weights {
		sqrtW[k] = math.Sqrt(w)
	}

	x := make([]float64, n)
	copy(x, x0)
	for j := 0; j < n; j++ {
		x[j] = clampFit(x[j], lower[j], upper[j])
	}

	fi := make([]float64, m)
	jac := make([][]float64, m)
	for i := range jac {
		jac[i] = make([]float64, n)
	}
	grad := make([]float64, n)

	evalResiduals := func(p, out []float64) {
		for k := 0; k < m; k++ {
			out[k] = (model(p, xs[k]) - ys[k]) * sqrtW[k]
		}
	}
	evalJacobian := func(p []float64) {
		for k := 0; k < m; k++ {
			gradient(p, xs[k], grad)
			for j := 0; j < n; j++ {
				jac[k][j] = grad[j] * sqrtW[k]
			}
		}
	}

	evalResiduals(x, fi)
	evalJacobian(x)
	cost = sumSquares(fi)

	lambda := 1e-3
	nu := 2.0

	JtJ := make([][]float64, n)
	A := make([][]float64, n)
	for i := 0; i < n; i++ {
		JtJ[i] = make([]float64, n)
		A[i] = make([]float64, n)
	}
	Jtf := make([]float64, n)
	rhs := make([]float64, n)
	dx := make([]float64, n)
	xNew := make([]float64, n)
	fiNew := make([]float64, m)

	solvedOnce := false
	for iter := 0; iter < maxIter; iter++ {
		for i := 0; i < n; i++ {
			Jtf[i] = 0
			for j := 0; j < n; j++ {
				JtJ[i][j] = 0
			}
		}
		for k := 0; k < m; k++ {
			for i := 0; i < n; i++ {
				ji := jac[k][i]
				Jtf[i] += ji * fi[k]
				for j := i; j < n; j++ {
					JtJ[i][j] += ji * jac[k][j]
				}
			}
		}
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				JtJ[i][j] = JtJ[j][i]
			}
		}

		gradNorm := 0.0
		for i := 0; i < n; i++ {
			gradNorm += Jtf[i] * Jtf[i]
		}
		if math.Sqrt(gradNorm) < tolerance*cost {
			break
		}

		for tries := 0; tries < 20; tries++ {
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					A[i][j] = JtJ[i][j]
				}
				A[i][i] += lambda * (scale[i] * scale[i])
				rhs[i] = -Jtf[i]
			}

			if !solveNormal(A, rhs, dx, n) {
				lambda *= nu
				continue
			}
			solvedOnce = true

			for j := 0; j < n; j++ {
				xNew[j] = clampFit(x[j]+dx[j], lower[j], upper[j])
			}

			evalResiduals(xNew, fiNew)
			costNew := sumSquares(fiNew)

			if costNew < cost {
				improvement := (cost - costNew) / cost
				copy(x, xNew)
				copy(fi, fiNew)
				cost = costNew
				lambda = math.Max(lambda/3.0, 1e-15)
				nu = 2.0

				evalJacobian(x)

				if improvement < tolerance {
					return x, cost, true
				}
				break
			}
			lambda *= nu
			nu *= 2.0
			if lambda > 1e16 {
				return x, cost, true
			}
		}
	}
	return x, cost, solvedOnce || cost == 0
}

func sumSquares(fi []float64) float64 {
	s := 0.0
	for _, v := range fi {
		s += v * v
	}
	return s
}

func clampFit(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// solveNormal solves A x = b by gaussian elimination with partial pivoting.
// A and b are preserved.
func solveNormal(A [][]float64, b, x []float64, n int) bool {
	a := make([][]float64, n)
	for i := range a {
		a[i] = make([]float64, n)
		copy(a[i], A[i])
	}
	rhs := make([]float64, n)
	copy(rhs, b)

	for col := 0; col < n; col++ {
		maxRow := col
		maxVal := math.Abs(a[col][col])
		for row := col + 1; row < n; row++ {
			if av := math.Abs(a[row][col]); av > maxVal {
				maxVal = av
				maxRow = row
			}
		}
		if maxVal < 1e-30 {
			return false
		}
		if maxRow != col {
			a[col], a[maxRow] = a[maxRow], a[col]
			rhs[col], rhs[maxRow] = rhs[maxRow], rhs[col]
		}
		pivot := a[col][col]
		for row := col + 1; row < n; row++ {
			factor := a[row][col] / pivot
			for j := col; j < n; j++ {
				a[row][j] -= factor * a[col][j]
			}
			rhs[row] -= factor * rhs[col]
		}
	}

	for row := n - 1; row >= 0; row-- {
		sum := rhs[row]
		for j := row + 1; j < n; j++ {
			sum -= a[row][j] * x[j]
		}
		x[row] = sum / a[row][row]
	}
	return true
}
