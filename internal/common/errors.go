package common

type ErrorCode string
type ErrorMessage string

const (
	ErrCodeConfigLoadFailed      ErrorCode = "CONFIG_LOAD_FAILED"
	ErrCodeHelperFetchFailed     ErrorCode = "HELPER_FETCH_FAILED"
	ErrCodeHistoryDownloadFailed ErrorCode = "HISTORY_DOWNLOAD_FAILED"
	ErrCodeArchiveReadFailed     ErrorCode = "ARCHIVE_READ_FAILED"
	ErrCodeCacheLoadFailed       ErrorCode = "CACHE_LOAD_FAILED"
	ErrCodeCleanFailed           ErrorCode = "CLEAN_FAILED"
	ErrCodeTransformFailed       ErrorCode = "TRANSFORM_FAILED"
	ErrCodeScaleFailed           ErrorCode = "SCALE_FAILED"
	ErrCodeConfirmFailed         ErrorCode = "CONFIRM_FAILED"
	ErrCodeReportFailed          ErrorCode = "REPORT_FAILED"
	ErrCodeChartRenderFailed     ErrorCode = "CHART_RENDER_FAILED"
	ErrCodeChartShowFailed       ErrorCode = "CHART_SHOW_FAILED"
	ErrCodeScalingLeakage        ErrorCode = "SCALING_LEAKAGE"
)

const (
	ErrMsgConfigLoadFailed      ErrorMessage = "Failed to load configuration"
	ErrMsgHelperFetchFailed     ErrorMessage = "Failed to download helper file"
	ErrMsgHistoryDownloadFailed ErrorMessage = "Failed to download historical klines"
	ErrMsgArchiveReadFailed     ErrorMessage = "Failed to read kline archive"
	ErrMsgCacheLoadFailed       ErrorMessage = "Failed to load candle cache"
	ErrMsgCleanFailed           ErrorMessage = "Failed to clean candle table"
	ErrMsgTransformFailed       ErrorMessage = "Failed to derive mid prices"
	ErrMsgScaleFailed           ErrorMessage = "Failed to scale partitions"
	ErrMsgConfirmFailed         ErrorMessage = "Failed to read confirmation"
	ErrMsgReportFailed          ErrorMessage = "Failed to print table"
	ErrMsgChartRenderFailed     ErrorMessage = "Failed to render chart"
	ErrMsgChartShowFailed       ErrorMessage = "Failed to open chart viewer"
	ErrMsgScalingLeakage        ErrorMessage = "test partition scaled on its own min/max, not on training data"
)

func (e ErrorCode) String() string {
	return string(e)
}

func (m ErrorMessage) String() string {
	return string(m)
}
