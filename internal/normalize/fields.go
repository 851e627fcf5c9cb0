package normalize

import "github.com/wonny/breadthcore/internal/contracts"

// dateKeys are the accepted date column names, in priority order.
var dateKeys = []string{"date", "Date", "DATE", "trade_date", "tradeDate"}

// fieldPriority maps each canonical core field to its accepted source names,
// in priority order: the canonical snake_case name first, then the camelCase
// API spelling, then every legacy CSV header era by era. The first present,
// non-null, coercible value wins.
var fieldPriority = map[string][]string{
	contracts.FieldStocksUp4PctDaily: {
		"stocks_up_4pct_daily", "stocks_up_4pct", "stocksUp4Pct",
		"up_4pct", "up4pct_daily",
		"Number of stocks up 4% plus today",
		"Number of stocks  up 4% plus today",
		"4% plus daily",
	},
	contracts.FieldStocksDown4PctDaily: {
		"stocks_down_4pct_daily", "stocks_down_4pct", "stocksDown4Pct",
		"down_4pct", "down4pct_daily",
		"Number of stocks down 4% plus today",
		"Number of stocks  down 4% plus today",
		"4% down daily",
	},
	contracts.FieldRatio5Day: {
		"ratio_5day", "ratio5Day", "5 day ratio",
		"5 day breadth ratio of 4% up/4% down",
	},
	contracts.FieldRatio10Day: {
		"ratio_10day", "ratio10Day", "10 day ratio", "10 day  ratio",
		"10 day breadth ratio of 4% up/4% down",
	},
	contracts.FieldStocksUp25PctQuarterly: {
		"stocks_up_25pct_quarterly", "stocksUp25PctQuarterly", "up_25pct_quarterly",
		"Number of stocks up 25% plus in a quarter",
		"Number of stocks up 25% plus in a  quarter",
		"25% plus quarter",
	},
	contracts.FieldStocksDown25PctQuarterly: {
		"stocks_down_25pct_quarterly", "stocksDown25PctQuarterly", "down_25pct_quarterly",
		"Number of stocks down 25% + in a quarter",
		"Number of stocks 25% down plus in a quarter",
		"25% down quarter",
	},
	contracts.FieldStocksUp25PctMonthly: {
		"stocks_up_25pct_monthly", "stocksUp25PctMonthly", "up_25pct_monthly",
		"Number of stocks up 25% + in a month",
		"Number of stocks  up 25% + in a month",
		"25% month",
	},
	contracts.FieldStocksDown25PctMonthly: {
		"stocks_down_25pct_monthly", "stocksDown25PctMonthly", "down_25pct_monthly",
		"Number of stocks down 25% + in a month",
		"25 down month",
	},
	contracts.FieldStocksUp50PctMonthly: {
		"stocks_up_50pct_monthly", "stocksUp50PctMonthly", "up_50pct_monthly",
		"Number of stocks up 50% + in a month",
		"50% up",
	},
	contracts.FieldStocksDown50PctMonthly: {
		"stocks_down_50pct_monthly", "stocksDown50PctMonthly", "down_50pct_monthly",
		"Number of stocks down 50% + in a month",
		"50% down",
	},
	contracts.FieldStocksUp13Pct34Days: {
		"stocks_up_13pct_34days", "stocksUp13Pct34Days", "up_13pct_34days",
		"Number of stocks up 13% + in 34 days",
	},
	contracts.FieldStocksDown13Pct34Days: {
		"stocks_down_13pct_34days", "stocksDown13Pct34Days", "down_13pct_34days",
		"Number of stocks down 13% + in 34 days",
	},
	contracts.FieldT2108: {
		"t2108", "T2108", "T2108 ",
		"T2108 (% of stocks above 40 day MA)",
		"worden_t2108",
	},
	contracts.FieldWordenCommonStocks: {
		"worden_common_stocks", "wordenUniverse", "worden_universe",
		"Worden Common stock universe",
		" Worden Common stock universe",
		"Number of stocks in Worden Common stock universe",
	},
	contracts.FieldSPReference: {
		"sp_reference", "spReference", "sp500", "S&P", "SP500", "S&P 500",
	},
}

// sectorPriority maps the 11 canonical sector keys to their source names.
var sectorPriority = map[string][]string{
	"basic_materials":        {"basic_materials", "basicMaterialsSector", "Basic Materials"},
	"communication_services": {"communication_services", "communicationServicesSector", "Communication Services"},
	"consumer_cyclical":      {"consumer_cyclical", "consumerCyclicalSector", "Consumer Cyclical"},
	"consumer_defensive":     {"consumer_defensive", "consumerDefensiveSector", "Consumer Defensive"},
	"energy":                 {"energy", "energySector", "Energy"},
	"financial_services":     {"financial_services", "financialServicesSector", "Financial Services"},
	"healthcare":             {"healthcare", "healthcareSector", "Healthcare"},
	"industrials":            {"industrials", "industrialsSector", "Industrials"},
	"real_estate":            {"real_estate", "realEstateSector", "Real Estate"},
	"technology":             {"technology", "technologySector", "Technology"},
	"utilities":              {"utilities", "utilitiesSector", "Utilities"},
}
