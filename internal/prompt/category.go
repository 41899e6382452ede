package prompt

import "github.com/reconcileai/reconcileai/constants"

// categoryProfile holds the per-category instruction blocks. Extraction
// carries a literal JSON example because models track examples far better
// than schema prose.
type categoryProfile struct {
	extraction    string
	matchingFocus string
	matchingRules string
}

var categoryProfiles = map[constants.Category]categoryProfile{
	constants.CategorySales: {
		extraction: `Extract all sales transactions. For each sale, return:
- Date (YYYY-MM-DD format)
- Description (product, customer, or sales note)
- Amount (total sale amount as positive number)
- Type should be "credit" (incoming money)

Return as JSON array:
[
  {
    "date": "2024-05-15",
    "description": "Product sale to Customer Name",
    "amount": 150.00,
    "type": "credit"
  }
]`,
		matchingFocus: "Match sales transactions (credits) with corresponding bank deposits",
		matchingRules: `- Match sales amounts to bank credits on same or next day
- Account for payment processing delays
- Look for batch deposits that sum multiple sales`,
	},

	constants.CategoryExpense: {
		extraction: `Extract all expense records. For each expense, return:
- Date (YYYY-MM-DD format)
- Description (vendor name or expense description)
- Amount (expense amount as positive number)
- Type should be "debit" (outgoing money)

Return as JSON array:
[
  {
    "date": "2024-05-15",
    "description": "Office supplies from Vendor",
    "amount": 75.50,
    "type": "debit"
  }
]`,
		matchingFocus: "Match expense transactions (debits) with corresponding bank withdrawals",
		matchingRules: `- Match expense amounts to bank debits
- Check for exact amount matches first
- Consider payment method differences (check vs card)`,
	},

	constants.CategoryDelivery: {
		extraction: `This is a delivery platform account statement. Extract the revenue
line items that get deposited to the merchant's bank account.

Rules:
- Look for a table with columns like Date | Invoice | Description | Debit | Credit | Balance
- Revenue rows carry descriptions such as "Restaurant Credit Card Sales",
  "Restaurant Debit Card Sales", or "Cash Sales"
- Amounts in the Credit column may appear negative (e.g. -2,678.650);
  convert them to positive numbers
- Convert dates to YYYY-MM-DD
- Prefix each description with the platform name

Return as JSON array:
[
  {
    "date": "2024-12-31",
    "description": "Talabat - Restaurant Credit Card Sales",
    "amount": 2678.65,
    "type": "credit"
  }
]`,
		matchingFocus: "Match delivery platform payouts with net bank deposits after commission deductions",
		matchingRules: `- Match net payout amounts (after platform commission)
- Account for weekly/daily payout schedules
- Consider platform-specific fee structures`,
	},

	constants.CategoryPOS: {
		extraction: `Extract daily POS sales totals. For each day, return:
- Date (YYYY-MM-DD format)
- Description (daily sales summary with payment types if available)
- Amount (total collected amount)
- Type should be "credit" (money collected)

Return as JSON array:
[
  {
    "date": "2024-05-15",
    "description": "Daily POS sales (Cash: $200, Card: $150)",
    "amount": 350.00,
    "type": "credit"
  }
]`,
		matchingFocus: "Match daily POS totals with corresponding bank deposits",
		matchingRules: `- Match daily POS totals to bank deposits
- Account for cash vs card processing delays
- Consider end-of-day deposit timing`,
	},

	constants.CategoryAccounting: {
		extraction: `Extract accounting transactions from this export. For each entry, return:
- Date (YYYY-MM-DD format)
- Description (account name, invoice number, or journal entry description)
- Amount (absolute amount value)
- Type ("debit" or "credit" based on the entry type)

Return as JSON array:
[
  {
    "date": "2024-05-15",
    "description": "Invoice #INV-001 - Customer Payment",
    "amount": 500.00,
    "type": "credit"
  }
]`,
		matchingFocus: "Match accounting entries with bank transactions based on invoice numbers and amounts",
		matchingRules: `- Match based on invoice numbers and amounts
- Consider payment terms and timing
- Look for journal entry references`,
	},

	constants.CategoryGeneral: {
		extraction: `Analyze the document and extract all transaction-like entries. For each entry, return:
- Date (YYYY-MM-DD format, estimate if not clear)
- Description (clear description of the transaction)
- Amount (positive number)
- Type ("credit" for incoming money, "debit" for outgoing money)

Return as JSON array:
[
  {
    "date": "2024-05-15",
    "description": "Transaction description",
    "amount": 100.00,
    "type": "credit"
  }
]`,
		matchingFocus: "Match transactions using general correlation rules",
		matchingRules: `- Use general matching rules based on amount and date proximity
- Consider description similarities
- Account for processing delays`,
	},
}

func profileFor(category constants.Category) categoryProfile {
	if p, ok := categoryProfiles[category]; ok {
		return p
	}
	return categoryProfiles[constants.CategoryGeneral]
}
