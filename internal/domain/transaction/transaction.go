package transaction

import (
	"database/sql"
	"strings"
	"time"
)

// AccountCategory classifies the account a transaction belongs to.
type AccountCategory string

const (
	AccountBusiness AccountCategory = "business"
	AccountPersonal AccountCategory = "personal"
)

// Category is the closed set of ledger categories. Values match the keys the
// ledger-import process writes.
type Category string

const (
	CategoryIncomeWages        Category = "income_wages"
	CategoryIncomeBusiness     Category = "income_business"
	CategoryIncomeInvestments  Category = "income_investments"
	CategoryIncomeOther        Category = "income_other"
	CategoryTransfer           Category = "transfer"
	CategoryLoanPayments       Category = "loan_payments"
	CategoryAdvertising        Category = "advertising"
	CategorySubscriptions      Category = "subscriptions"
	CategoryBankFees           Category = "bank_fees"
	CategoryBusinessEquipment  Category = "business_equipment"
	CategoryEducation          Category = "education"
	CategoryInsurance          Category = "insurance"
	CategoryFoodAndDrink       Category = "food_and_drink"
	CategoryProfessionalFees   Category = "professional_fees"
	CategoryRentAndUtilities   Category = "rent_and_utilities"
	CategoryRepairs            Category = "repairs"
	CategorySupplies           Category = "supplies"
	CategoryTravel             Category = "travel"
	CategoryTransportation     Category = "transportation"
	CategoryUtilities          Category = "utilities"
	CategoryShopping           Category = "shopping"
	CategoryHome               Category = "home"
	CategoryMedical            Category = "medical"
	CategoryPersonalCare       Category = "personal_care"
	CategoryPersonalBrand      Category = "personal_brand"
	CategoryEntertainment      Category = "entertainment"
	CategoryGovernment         Category = "government"
	CategoryNonProfit          Category = "non_profit"
	CategoryOwnerContributions Category = "owner_contributions"
	CategoryEmployeeContractor Category = "employee_contractor"
)

// ShoppingCategories are the purchase categories subject to the marketplace
// receipt rule.
var ShoppingCategories = []Category{
	CategoryShopping,
	CategorySupplies,
	CategoryBusinessEquipment,
}

// TravelCategories always require a receipt on business accounts.
var TravelCategories = []Category{
	CategoryTravel,
	CategoryTransportation,
}

// EventCategories require a receipt above the amount threshold.
var EventCategories = []Category{
	CategoryEntertainment,
	CategoryEducation,
}

// MarketplaceMerchants is the allow-list of merchants flagged as likely
// personal-marketplace purchases. Matching is case-insensitive.
var MarketplaceMerchants = []string{"Amazon", "Walmart", "Etsy", "eBay", "Target"}

// Transaction is a single expense/income record imported from the ledger.
// This service only reads transactions; receipts and notes are attached by a
// human out-of-band.
type Transaction struct {
	ID              string
	UserID          string
	Amount          float64
	Category        Category
	MerchantName    string
	Description     sql.NullString
	ReceiptURL      sql.NullString
	AccountCategory AccountCategory
	Date            time.Time
	CreatedAt       time.Time
}

// MissingReceipt reports whether no receipt reference is attached.
func (t *Transaction) MissingReceipt() bool {
	return !t.ReceiptURL.Valid || t.ReceiptURL.String == ""
}

// MissingDescription treats a null and an empty-string description identically.
func (t *Transaction) MissingDescription() bool {
	return !t.Description.Valid || t.Description.String == ""
}

// IsMarketplaceMerchant matches the merchant name against the marketplace
// allow-list, ignoring case.
func (t *Transaction) IsMarketplaceMerchant() bool {
	for _, m := range MarketplaceMerchants {
		if strings.EqualFold(t.MerchantName, m) {
			return true
		}
	}
	return false
}

// CategoryIn reports whether the transaction category is in the given set.
// Category comparison is exact; only merchant matching is case-insensitive.
func (t *Transaction) CategoryIn(set ...[]Category) bool {
	for _, categories := range set {
		for _, c := range categories {
			if t.Category == c {
				return true
			}
		}
	}
	return false
}
