// Package broadcast implements the exchange broadcast ingestion pipeline:
// UDP multicast receivers, packet framing, LZO1Z decompression and the
// transaction-code demultiplexer that feeds the price and index stores.
package broadcast

import "strconv"

// NSE broadcast transaction codes (TRIMM protocol, chapter 9).
const (
	CodeMBOMBPUpdate        uint16 = 7200 // touchline + 5-level depth
	CodeMWRoundRobin        uint16 = 7201 // market watch (3 market types)
	CodeTickerAndMktIndex   uint16 = 7202 // ticker with OI (17 records)
	CodeIndustryIndexUpdate uint16 = 7203
	CodeSystemInformation   uint16 = 7206
	CodeIndices             uint16 = 7207 // major indices
	CodeOnlyMBP             uint16 = 7208 // market by price (2 records)
	CodeSecurityStatusPre   uint16 = 7210
	CodeSpdMBPDelta         uint16 = 7211
	CodeLimitPriceRange     uint16 = 7220 // price protection range

	CodeUpdateLocalDBData   uint16 = 7304
	CodeSecurityMasterChg   uint16 = 7305
	CodePartMasterChg       uint16 = 7306
	CodeUpdateLocalDBHdr    uint16 = 7307
	CodeUpdateLocalDBTrl    uint16 = 7308
	CodeSpdMasterChg        uint16 = 7309
	CodeSecurityStatusChg   uint16 = 7320
	CodePartialSysInfo      uint16 = 7321
	CodeInstrMasterChg      uint16 = 7324
	CodeIndexMasterChg      uint16 = 7325
	CodeIndexMapTable       uint16 = 7326
	CodeSecMasterChgPeriodic uint16 = 7340
	CodeSpdMasterChgPeriodic uint16 = 7341

	CodeMarketOpen          uint16 = 6511
	CodeMarketClose         uint16 = 6521
	CodeMarketPostClose     uint16 = 6522
	CodePreOrPostDay        uint16 = 6531
	CodeCircuitCheck        uint16 = 6541
	CodePreopenEnded        uint16 = 6571
	CodeJournalVCT          uint16 = 6501
	CodeControlToTrader     uint16 = 5295
	CodeSecurityOpenPrice   uint16 = 6013
	CodeTurnoverExceeded    uint16 = 9010
	CodeBrokerReactivated   uint16 = 9011

	CodeMktMvmtCMOI         uint16 = 7130
	CodeEnhMktMvmtCMOI      uint16 = 17130
	CodeEnhMWRoundRobin     uint16 = 17201 // 64-bit OI market watch
	CodeEnhTickerAndIndex   uint16 = 17202 // 64-bit OI ticker
	CodeMarketStats         uint16 = 1833
	CodeEnhMarketStats      uint16 = 11833
	CodeSpdJournalVCT       uint16 = 1862
	CodeGlobalIndices       uint16 = 7732
	CodeCMTicker            uint16 = 18703
)

// BSE broadcast message types (Direct NFCAST protocol).
const (
	CodeBSETimeBroadcast   uint16 = 2001
	CodeBSEProductState    uint16 = 2002
	CodeBSEAuctionSession  uint16 = 2003
	CodeBSENewsHeadline    uint16 = 2004
	CodeBSEIndexSimple     uint16 = 2011
	CodeBSEIndexChange     uint16 = 2012
	CodeBSEClosePrice      uint16 = 2014
	CodeBSEOpenInterest    uint16 = 2015
	CodeBSEVarPercentage   uint16 = 2016
	CodeBSEAuctionPicture  uint16 = 2017
	CodeBSEMarketPicture   uint16 = 2020
	CodeBSEMarketPicture64 uint16 = 2021
	CodeBSERBIRefRate      uint16 = 2022
	CodeBSEOddLotPicture   uint16 = 2027
	CodeBSEImpliedVol      uint16 = 2028
	CodeBSEKeepAlive       uint16 = 2030
	CodeBSEDebtPicture     uint16 = 2033
	CodeBSELimitProtection uint16 = 2034
	CodeBSEAuctionCancel   uint16 = 2035
)

// IsCompressed reports whether a transaction code carries an LZO1Z body.
// The set is closed and authoritative: codes outside it are always treated
// as uncompressed, never inferred from payload bytes.
func IsCompressed(code uint16) bool {
	switch code {
	case CodeMBOMBPUpdate,
		CodeMWRoundRobin,
		CodeTickerAndMktIndex,
		CodeOnlyMBP,
		CodeLimitPriceRange,
		CodeEnhMWRoundRobin,
		CodeEnhTickerAndIndex:
		return true
	default:
		return false
	}
}

// CodeName returns the protocol name of a transaction code, for logging.
func CodeName(code uint16) string {
	switch code {
	case CodeMBOMBPUpdate:
		return "BCAST_MBO_MBP_UPDATE"
	case CodeMWRoundRobin:
		return "BCAST_MW_ROUND_ROBIN"
	case CodeTickerAndMktIndex:
		return "BCAST_TICKER_AND_MKT_INDEX"
	case CodeIndustryIndexUpdate:
		return "BCAST_INDUSTRY_INDEX_UPDATE"
	case CodeSystemInformation:
		return "BCAST_SYSTEM_INFORMATION_OUT"
	case CodeIndices:
		return "BCAST_INDICES"
	case CodeOnlyMBP:
		return "BCAST_ONLY_MBP"
	case CodeSecurityStatusPre:
		return "BCAST_SECURITY_STATUS_CHG_PREOPEN"
	case CodeSpdMBPDelta:
		return "BCAST_SPD_MBP_DELTA"
	case CodeLimitPriceRange:
		return "BCAST_LIMIT_PRICE_PROTECTION_RANGE"
	case CodeUpdateLocalDBData:
		return "UPDATE_LOCALDB_DATA"
	case CodeSecurityMasterChg:
		return "BCAST_SECURITY_MSTR_CHG"
	case CodePartMasterChg:
		return "BCAST_PART_MSTR_CHG"
	case CodeUpdateLocalDBHdr:
		return "UPDATE_LOCALDB_HEADER"
	case CodeUpdateLocalDBTrl:
		return "UPDATE_LOCALDB_TRAILER"
	case CodeSpdMasterChg:
		return "BCAST_SPD_MSTR_CHG"
	case CodeSecurityStatusChg:
		return "BCAST_SECURITY_STATUS_CHG"
	case CodePartialSysInfo:
		return "PARTIAL_SYSTEM_INFORMATION"
	case CodeInstrMasterChg:
		return "BCAST_INSTR_MSTR_CHG"
	case CodeIndexMasterChg:
		return "BCAST_INDEX_MSTR_CHG"
	case CodeIndexMapTable:
		return "BCAST_INDEX_MAP_TABLE"
	case CodeSecMasterChgPeriodic:
		return "BCAST_SEC_MSTR_CHNG_PERIODIC"
	case CodeSpdMasterChgPeriodic:
		return "BCAST_SPD_MSTR_CHG_PERIODIC"
	case CodeMarketOpen:
		return "BC_OPEN_MSG"
	case CodeMarketClose:
		return "BC_CLOSE_MSG"
	case CodeMarketPostClose:
		return "BC_POSTCLOSE_MSG"
	case CodePreOrPostDay:
		return "BC_PRE_OR_POST_DAY_MSG"
	case CodeCircuitCheck:
		return "BC_CIRCUIT_CHECK"
	case CodePreopenEnded:
		return "BC_NORMAL_MKT_PREOPEN_ENDED"
	case CodeJournalVCT:
		return "BCAST_JRNL_VCT_MSG"
	case CodeControlToTrader:
		return "CTRL_MSG_TO_TRADER"
	case CodeSecurityOpenPrice:
		return "SECURITY_OPEN_PRICE"
	case CodeTurnoverExceeded:
		return "BCAST_TURNOVER_EXCEEDED"
	case CodeBrokerReactivated:
		return "BROADCAST_BROKER_REACTIVATED"
	case CodeMktMvmtCMOI:
		return "MKT_MVMT_CM_OI_IN"
	case CodeEnhMktMvmtCMOI:
		return "ENHNCD_MKT_MVMT_CM_OI_IN"
	case CodeEnhMWRoundRobin:
		return "BCAST_ENHNCD_MW_ROUND_ROBIN"
	case CodeEnhTickerAndIndex:
		return "BCAST_ENHNCD_TICKER_AND_MKT_INDEX"
	case CodeMarketStats:
		return "RPRT_MARKET_STATS_OUT_RPT"
	case CodeEnhMarketStats:
		return "ENHNCD_RPRT_MARKET_STATS_OUT_RPT"
	case CodeSpdJournalVCT:
		return "SPD_BC_JRNL_VCT_MSG"
	case CodeGlobalIndices:
		return "GI_INDICES_ASSETS"
	case CodeCMTicker:
		return "CM_TICKER"
	case CodeBSETimeBroadcast:
		return "BSE_TIME_BROADCAST"
	case CodeBSEProductState:
		return "BSE_PRODUCT_STATE_CHANGE"
	case CodeBSEAuctionSession:
		return "BSE_AUCTION_SESSION_CHANGE"
	case CodeBSENewsHeadline:
		return "BSE_NEWS_HEADLINE"
	case CodeBSEIndexSimple:
		return "BSE_INDEX_CHANGE_SIMPLE"
	case CodeBSEIndexChange:
		return "BSE_INDEX_CHANGE"
	case CodeBSEClosePrice:
		return "BSE_CLOSE_PRICE"
	case CodeBSEOpenInterest:
		return "BSE_OPEN_INTEREST"
	case CodeBSEVarPercentage:
		return "BSE_VAR_PERCENTAGE"
	case CodeBSEAuctionPicture:
		return "BSE_AUCTION_MARKET_PICTURE"
	case CodeBSEMarketPicture:
		return "BSE_MARKET_PICTURE"
	case CodeBSEMarketPicture64:
		return "BSE_MARKET_PICTURE_COMPLEX"
	case CodeBSERBIRefRate:
		return "BSE_RBI_REFERENCE_RATE"
	case CodeBSEOddLotPicture:
		return "BSE_ODD_LOT_MARKET_PICTURE"
	case CodeBSEImpliedVol:
		return "BSE_IMPLIED_VOLATILITY"
	case CodeBSEKeepAlive:
		return "BSE_AUCTION_KEEP_ALIVE"
	case CodeBSEDebtPicture:
		return "BSE_DEBT_MARKET_PICTURE"
	case CodeBSELimitProtection:
		return "BSE_LIMIT_PRICE_PROTECTION"
	case CodeBSEAuctionCancel:
		return "BSE_CALL_AUCTION_CANCELLED_QTY"
	default:
		return "UNKNOWN_" + strconv.Itoa(int(code))
	}
}
