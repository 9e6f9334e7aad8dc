package finance

import (
	"math"

	"github.com/wyfcoding/quant/xerrors"
	"gonum.org/v1/gonum/stat/distuv"
)

// blackScholesD 计算 d1, d2.
func blackScholesD(spot, strike, expiry, rate, vol float64) (d1, d2 float64, err error) {
	if !(spot > 0) || !(strike > 0) || !(expiry > 0) || !(vol > 0) || math.IsNaN(rate) {
		return 0, 0, xerrors.ErrInvalidParams.WithDetail(
			"black-scholes needs positive spot, strike, expiry and vol (spot=%v strike=%v expiry=%v vol=%v)",
			spot, strike, expiry, vol)
	}
	sqrtT := math.Sqrt(expiry)
	d1 = (math.Log(spot/strike) + (rate+0.5*vol*vol)*expiry) / (vol * sqrtT)
	d2 = d1 - vol*sqrtT
	return d1, d2, nil
}

// BlackScholesCall 欧式看涨期权的 Black-Scholes 价格.
func BlackScholesCall(spot, strike, expiry, rate, vol float64) (float64, error) {
	d1, d2, err := blackScholesD(spot, strike, expiry, rate, vol)
	if err != nil {
		return 0, err
	}
	return spot*distuv.UnitNormal.CDF(d1) - strike*math.Exp(-rate*expiry)*distuv.UnitNormal.CDF(d2), nil
}

// BlackScholesPut 欧式看跌期权的 Black-Scholes 价格.
func BlackScholesPut(spot, strike, expiry, rate, vol float64) (float64, error) {
	d1, d2, err := blackScholesD(spot, strike, expiry, rate, vol)
	if err != nil {
		return 0, err
	}
	return strike*math.Exp(-rate*expiry)*distuv.UnitNormal.CDF(-d2) - spot*distuv.UnitNormal.CDF(-d1), nil
}

// ImpliedVolatility 求隐含波动率. 价格关于波动率单调递增，先在 [1e-4, 5] 上确认有解，
// 再做牛顿迭代并维护二分区间; 牛顿步越出区间或 vega 过小时改用二分.
func ImpliedVolatility(call bool, spot, strike, expiry, rate, price float64) (float64, error) {
	const (
		tolerance     = 1e-10
		maxIterations = 200
	)
	pricer := BlackScholesPut
	if call {
		pricer = BlackScholesCall
	}

	lo, hi := 1e-4, 5.0
	pLo, err := pricer(spot, strike, expiry, rate, lo)
	if err != nil {
		return 0, err
	}
	pHi, err := pricer(spot, strike, expiry, rate, hi)
	if err != nil {
		return 0, err
	}
	if !(price >= pLo && price <= pHi) {
		return 0, xerrors.ErrInvalidParams.WithDetail("price %v outside attainable range [%v, %v]", price, pLo, pHi)
	}

	sigma := 0.3
	for range maxIterations {
		p, err := pricer(spot, strike, expiry, rate, sigma)
		if err != nil {
			return 0, err
		}
		diff := p - price
		if math.Abs(diff) < tolerance {
			return sigma, nil
		}
		if diff > 0 {
			hi = sigma
		} else {
			lo = sigma
		}
		if hi-lo < 1e-12 {
			return sigma, nil
		}

		next := 0.5 * (lo + hi)
		d1, _, _ := blackScholesD(spot, strike, expiry, rate, sigma)
		if vega := spot * distuv.UnitNormal.Prob(d1) * math.Sqrt(expiry); vega > 1e-12 {
			if n := sigma - diff/vega; n > lo && n < hi {
				next = n
			}
		}
		sigma = next
	}
	return 0, xerrors.ErrNotConverged.WithDetail("implied volatility for price %v", price)
}

// VasicekBondPrice Vasicek 模型下零息债券的闭式价格. kappa 为 0 时退化为常数漂移的布朗利率.
func VasicekBondPrice(principal, r0, kappa, theta, sigma, maturity float64) (float64, error) {
	if kappa < 0 || sigma < 0 || !(maturity > 0) {
		return 0, xerrors.ErrInvalidParams.WithDetail("vasicek needs kappa >= 0, sigma >= 0, maturity > 0")
	}
	if kappa == 0 {
		return principal * math.Exp(-r0*maturity+sigma*sigma*maturity*maturity*maturity/6), nil
	}

	b := -math.Expm1(-kappa*maturity) / kappa
	lnA := (theta-sigma*sigma/(2*kappa*kappa))*(b-maturity) - sigma*sigma*b*b/(4*kappa)
	return principal * math.Exp(lnA-b*r0), nil
}

// ZeroCouponBondPresentValue 离散复利下零息债券在 current 期的现值.
func ZeroCouponBondPresentValue(face float64, maturity int, marketRate float64, current int) (float64, error) {
	if current < 0 || current > maturity || marketRate <= -1 {
		return 0, xerrors.ErrInvalidParams.WithDetail("zero coupon bond: current=%d maturity=%d rate=%v", current, maturity, marketRate)
	}
	return face / math.Pow(1+marketRate, float64(maturity-current)), nil
}

// CouponBondPresentValue 按年付息债券在 current 期的现值，couponRate 与 marketRate 为小数.
func CouponBondPresentValue(principal, couponRate float64, maturity int, marketRate float64, current int) (float64, error) {
	if current < 0 || current > maturity || marketRate <= -1 {
		return 0, xerrors.ErrInvalidParams.WithDetail("coupon bond: current=%d maturity=%d rate=%v", current, maturity, marketRate)
	}

	discount := 1 / (1 + marketRate)
	coupon := principal * couponRate
	var pv float64
	for i := current + 1; i <= maturity; i++ {
		pv += coupon * math.Pow(discount, float64(i-current))
	}
	return pv + principal*math.Pow(discount, float64(maturity-current)), nil
}

// ParametricVaR 正态假设下的 VaR: position * (z_c * sigma * sqrt(days) - mu * days).
func ParametricVaR(position, mu, sigma, confidence float64, days int) (float64, error) {
	if !(confidence > 0 && confidence < 1) {
		return 0, xerrors.ErrInvalidConfidence.WithDetail("confidence must be in (0, 1), got %v", confidence)
	}
	if sigma < 0 || days < 1 {
		return 0, xerrors.ErrInvalidParams.WithDetail("parametric var needs sigma >= 0 and days >= 1")
	}
	n := float64(days)
	z := distuv.UnitNormal.Quantile(confidence)
	return position * (z*sigma*math.Sqrt(n) - mu*n), nil
}

// Greeks 期权价格及其希腊字母. Vega 与 Rho 按 1% 变动计, Theta 按日计.
type Greeks struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Vega  float64 `json:"vega"`
	Theta float64 `json:"theta"`
	Rho   float64 `json:"rho"`
}

// BlackScholesGreeks 一次性计算价格与全部希腊字母.
func BlackScholesGreeks(call bool, spot, strike, expiry, rate, vol float64) (Greeks, error) {
	d1, d2, err := blackScholesD(spot, strike, expiry, rate, vol)
	if err != nil {
		return Greeks{}, err
	}

	n := distuv.UnitNormal
	sqrtT := math.Sqrt(expiry)
	disc := math.Exp(-rate * expiry)
	phi := n.Prob(d1)

	g := Greeks{
		Gamma: phi / (spot * vol * sqrtT),
		Vega:  spot * phi * sqrtT / 100,
	}
	decay := -spot * phi * vol / (2 * sqrtT)
	if call {
		g.Price = spot*n.CDF(d1) - strike*disc*n.CDF(d2)
		g.Delta = n.CDF(d1)
		g.Theta = (decay - rate*strike*disc*n.CDF(d2)) / 365
		g.Rho = strike * expiry * disc * n.CDF(d2) / 100
	} else {
		g.Price = strike*disc*n.CDF(-d2) - spot*n.CDF(-d1)
		g.Delta = n.CDF(d1) - 1
		g.Theta = (decay + rate*strike*disc*n.CDF(-d2)) / 365
		g.Rho = -strike * expiry * disc * n.CDF(-d2) / 100
	}
	return g, nil
}
