package constants

// Accounting provider identifiers used in the sync queue and token store.
const (
	ProviderXero = "xero"
	ProviderZoho = "zoho"
)
