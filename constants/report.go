package constants

// Report types stored on reconciliation report snapshots.
const (
	ReportAISync   = "ai_sync"
	ReportXeroSync = "xero_sync"
	ReportZohoSync = "zoho_sync"
	ReportManual   = "manual"
)
