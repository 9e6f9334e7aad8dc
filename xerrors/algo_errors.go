package xerrors

var (
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "input data must not be empty", nil)
	// ErrInvalidParams 过程或计算参数非法。
	ErrInvalidParams = New(ErrInvalidArg, 400002, "invalid parameters", "check the process or estimator parameters", nil)
	// ErrZeroVariance 方差为零。
	ErrZeroVariance = New(ErrNumerical, 422003, "zero variance", "volatility is zero, ratio is undefined", nil)
	// ErrInvalidOptionType 无效的期权类型。
	ErrInvalidOptionType = New(ErrInvalidArg, 400004, "invalid option type", "supported types: call, put", nil)
	// ErrInvalidConfidence 置信度不在 (0, 1) 内。
	ErrInvalidConfidence = New(ErrInvalidArg, 400005, "invalid confidence level", "confidence must be in (0, 1)", nil)
	// ErrInvalidPayoff 收益表达式无法编译或求值。
	ErrInvalidPayoff = New(ErrInvalidArg, 400006, "invalid payoff expression", "payoff must evaluate to a number", nil)
	// ErrDimMismatch 维度不匹配.
	ErrDimMismatch = New(ErrInvalidArg, 400007, "dimension mismatch", "matrix or vector dimensions do not match", nil)
	// ErrNotPositiveDefinite 不是正定矩阵.
	ErrNotPositiveDefinite = New(ErrNumerical, 422009, "matrix is not positive definite", "covariance matrix must be positive definite", nil)
	// ErrDataNotFound 数据文件或资产不存在.
	ErrDataNotFound = New(ErrNotFound, 404011, "data not found", "check the file path or ticker", nil)
	// ErrBusy 并发计算已达上限.
	ErrBusy = New(ErrUnavailable, 503012, "server busy", "too many concurrent computations, retry later", nil)
	// ErrNotConverged 优化器未收敛。
	ErrNotConverged = New(ErrNumerical, 422010, "optimizer did not converge", "iteration limit reached before tolerance", nil)
)
