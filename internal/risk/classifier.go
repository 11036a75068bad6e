package risk

import (
	"sort"
	"strings"

	"github.com/xela07ax/sentinel-server/internal/domain"
)

// Категории риска для страницы Reason.
const (
	CategoryCredentials = "credential_exposure"  // токены, ключи, приватные ключи
	CategoryFinancial   = "financial_exposure"   // карты, счета, PIN
	CategoryPublicID    = "public_id_exposure"   // РРН, паспорт, права
	CategoryCrypto      = "crypto_exposure"      // сид-фразы, кошельки
	CategoryIdentity    = "identity_exposure"    // связка ФИО/телефон/адрес
	CategoryNetwork     = "network_disclosure"   // IP/MAC/IMEI
	CategoryUnknown     = "unknown"
)

var labelCategory = map[string]string{
	"JWT": CategoryCredentials, "API_KEY": CategoryCredentials,
	"GITHUB_PAT": CategoryCredentials, "PRIVATE_KEY": CategoryCredentials,
	"PASSWORD": CategoryCredentials,

	"CARD_NUMBER": CategoryFinancial, "CARD_EXPIRY": CategoryFinancial,
	"BANK_ACCOUNT": CategoryFinancial, "CARD_CVV": CategoryFinancial,
	"PAYMENT_PIN": CategoryFinancial, "MOBILE_PAYMENT_PIN": CategoryFinancial,

	"RESIDENT_ID": CategoryPublicID, "PASSPORT": CategoryPublicID,
	"DRIVER_LICENSE": CategoryPublicID, "FOREIGNER_ID": CategoryPublicID,
	"HEALTH_INSURANCE_ID": CategoryPublicID, "BUSINESS_ID": CategoryPublicID,
	"MILITARY_ID": CategoryPublicID, "PERSONAL_CUSTOMS_ID": CategoryPublicID,

	"MNEMONIC": CategoryCrypto, "CRYPTO_PRIVATE_KEY": CategoryCrypto,
	"HD_WALLET": CategoryCrypto, "PAYMENT_URI_QR": CategoryCrypto,

	"NAME": CategoryIdentity, "PHONE": CategoryIdentity, "EMAIL": CategoryIdentity,
	"ADDRESS": CategoryIdentity, "POSTAL_CODE": CategoryIdentity,

	"IPV4": CategoryNetwork, "IPV6": CategoryNetwork,
	"MAC_ADDRESS": CategoryNetwork, "IMEI": CategoryNetwork,
}

// Приоритет категорий при смешанных находках: утечка секрета опаснее
// одиночного IP-адреса в том же промпте.
var categoryRank = map[string]int{
	CategoryCredentials: 6,
	CategoryFinancial:   5,
	CategoryPublicID:    4,
	CategoryCrypto:      3,
	CategoryIdentity:    2,
	CategoryNetwork:     1,
}

// Info — результат классификации набора сущностей.
type Info struct {
	Category    string // наивысшая по приоритету категория
	Pattern     string // "NAME + PHONE + ADDRESS"
	Description string
}

// Classify определяет категорию и паттерн риска по меткам найденных сущностей.
func Classify(entities []domain.Entity) Info {
	if len(entities) == 0 {
		return Info{Category: CategoryUnknown}
	}

	seen := map[string]struct{}{}
	best := CategoryUnknown
	bestRank := 0

	for _, e := range entities {
		label := strings.ToUpper(e.Label)
		seen[label] = struct{}{}

		cat, ok := labelCategory[label]
		if !ok {
			continue
		}
		if r := categoryRank[cat]; r > bestRank {
			best, bestRank = cat, r
		}
	}

	labels := make([]string, 0, len(seen))
	for l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	return Info{
		Category:    best,
		Pattern:     strings.Join(labels, " + "),
		Description: describe(best, len(labels)),
	}
}

func describe(category string, distinct int) string {
	switch category {
	case CategoryCredentials:
		return "authentication secrets present in prompt"
	case CategoryFinancial:
		return "payment or bank data present in prompt"
	case CategoryPublicID:
		return "government-issued identifiers present in prompt"
	case CategoryCrypto:
		return "cryptocurrency key material present in prompt"
	case CategoryIdentity:
		if distinct >= 3 {
			return "combined identity profile (re-identification risk)"
		}
		return "personal identity fragments present in prompt"
	case CategoryNetwork:
		return "internal network identifiers present in prompt"
	default:
		return ""
	}
}
