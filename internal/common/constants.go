package common

const (
	DefaultConfigPath = "./configs/config.yml"

	DefaultSymbol     = "ATOMUSDT"
	DefaultTimeframe  = "15m"
	DefaultMarketType = MarketSpot
	DefaultBulkSize   = BulkMonthly
	DefaultStartDate  = "2017-01-01"
	DefaultHelperURL  = "https://raw.githubusercontent.com/danywayGit/DownloadBinanceHistorycalData/main/GetBinanceHistoricalData.py"
	DefaultArchiveURL = "https://data.binance.vision"

	MarketSpot = "spot"
	MarketUM   = "um"
	MarketCM   = "cm"

	BulkMonthly = "monthly"
	BulkDaily   = "daily"

	ScalingIndependent = "independent"
	ScalingTrain       = "train"

	DateLayout = "2006-01-02"

	DefaultChartWidth    = 1800
	DefaultChartHeight   = 900
	DefaultTickStride    = 2500
	DefaultTickRotation  = 60
	DefaultFontSize      = 18
	DefaultHeadRows      = 5
	ConfirmPrompt        = "Press Enter to continue..."
	CacheFileExt         = ".csv"
	ArchiveFileExt       = ".zip"
	MaxArchiveEntryBytes = 512 << 20 // 512MB
)
