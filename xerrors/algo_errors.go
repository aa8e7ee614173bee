package xerrors

var (
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "input data must not be empty", nil)
	// ErrInvalidInput 输入参数越界。
	ErrInvalidInput = New(ErrInvalidArg, 400002, "invalid input", "check your input parameters", nil)
	// ErrInvalidOptionType 无效的期权类型。
	ErrInvalidOptionType = New(ErrInvalidArg, 400004, "invalid option type", "supported types: call, put", nil)
	// ErrInvalidSteps 时间步数必须为正。
	ErrInvalidSteps = New(ErrInvalidArg, 400019, "invalid steps", "steps must be a positive integer", nil)
	// ErrInvalidPaths 路径数必须为正。
	ErrInvalidPaths = New(ErrInvalidArg, 400020, "invalid paths", "number of paths must be a positive integer", nil)
	// ErrSimulationCanceled 模拟被取消。
	ErrSimulationCanceled = New(ErrInternal, 500008, "simulation canceled", "context canceled before all paths finished", nil)
)

// InvalidInput 基于 ErrInvalidInput 生成带字段信息的副本。
func InvalidInput(field string, value any) *Error {
	return ErrInvalidInput.Clone().
		WithDetail("%s out of domain: %v", field, value).
		WithContext("field", field).
		WithContext("value", value)
}

// ErrTooManyPaths 请求的路径数超过服务端上限。
var ErrTooManyPaths = New(ErrInvalidArg, 400021, "too many paths", "requested paths exceed the configured maximum", nil)

// ErrTooManySteps 请求的时间步数超过服务端上限。
var ErrTooManySteps = New(ErrInvalidArg, 400022, "too many steps", "requested steps exceed the configured maximum", nil)

// ErrSimulationTooLarge 路径数 × (步数 + 1) 超过单次模拟的数据点预算。
var ErrSimulationTooLarge = New(ErrInvalidArg, 400023, "simulation too large", "paths x (steps + 1) exceeds the allowed number of points", nil)
