package detect

import "regexp"

// Метки чувствительных сущностей. Единый whitelist для regex-слоя и
// LLM-сайдкара: ответы модели с метками вне списка отбрасываются.
const (
	LabelName        = "NAME"
	LabelPhone       = "PHONE"
	LabelEmail       = "EMAIL"
	LabelAddress     = "ADDRESS"
	LabelPostalCode  = "POSTAL_CODE"
	LabelResidentID  = "RESIDENT_ID"
	LabelPassport    = "PASSPORT"
	LabelDriverLic   = "DRIVER_LICENSE"
	LabelBusinessID  = "BUSINESS_ID"
	LabelJWT         = "JWT"
	LabelAPIKey      = "API_KEY"
	LabelGithubPAT   = "GITHUB_PAT"
	LabelPrivateKey  = "PRIVATE_KEY"
	LabelCardNumber  = "CARD_NUMBER"
	LabelCardExpiry  = "CARD_EXPIRY"
	LabelBankAccount = "BANK_ACCOUNT"
	LabelMnemonic    = "MNEMONIC"
	LabelIPv4        = "IPV4"
	LabelIPv6        = "IPV6"
	LabelMAC         = "MAC_ADDRESS"
	LabelIMEI        = "IMEI"
)

// AllowedLabels — полный whitelist, включая метки, которые находит только
// LLM (NAME, ADDRESS, MNEMONIC и прочие контекстные: надежного regex для
// них нет, сид-фраза — просто цепочка словарных слов).
var AllowedLabels = map[string]struct{}{
	LabelName: {}, LabelPhone: {}, LabelEmail: {}, LabelAddress: {}, LabelPostalCode: {},
	"PERSONAL_CUSTOMS_ID": {}, LabelResidentID: {}, LabelPassport: {}, LabelDriverLic: {},
	"FOREIGNER_ID": {}, "HEALTH_INSURANCE_ID": {}, LabelBusinessID: {}, "MILITARY_ID": {},
	LabelJWT: {}, LabelAPIKey: {}, LabelGithubPAT: {}, LabelPrivateKey: {},
	LabelCardNumber: {}, LabelCardExpiry: {}, LabelBankAccount: {}, "CARD_CVV": {},
	"PAYMENT_PIN": {}, "MOBILE_PAYMENT_PIN": {},
	LabelMnemonic: {}, "CRYPTO_PRIVATE_KEY": {}, "HD_WALLET": {}, "PAYMENT_URI_QR": {},
	LabelIPv4: {}, LabelIPv6: {}, LabelMAC: {}, LabelIMEI: {},
}

// Patterns — метка -> скомпилированный шаблон.
// Порядок обхода не важен: пересечения разруливаются выбором длинного спана.
var Patterns = map[string]*regexp.Regexp{
	LabelEmail: regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),

	// Корейские мобильные/городские номера: 010-1234-5678, 02-123-4567, +82-10-...
	LabelPhone: regexp.MustCompile(`(\+82[- ]?|0)(1[016789]|2|[3-6][1-5])[- ]?\d{3,4}[- ]?\d{4}`),

	// Карта: 13-19 цифр с разделителями; дополнительно валидируется Луном
	LabelCardNumber: regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`),

	LabelCardExpiry: regexp.MustCompile(`\b(0[1-9]|1[0-2])\s?/\s?(\d{2})\b`),

	// Корейский РРН: 6 цифр даты + 7 цифр (первая 1-4)
	LabelResidentID: regexp.MustCompile(`\b\d{6}[- ]?[1-4]\d{6}\b`),

	LabelPassport: regexp.MustCompile(`\b[MSRODmsrod]\d{8}\b`),

	// Водительское: 12-34-567890-12
	LabelDriverLic: regexp.MustCompile(`\b\d{2}-\d{2}-\d{6}-\d{2}\b`),

	// Номер юрлица: 123-45-67890
	LabelBusinessID: regexp.MustCompile(`\b\d{3}-\d{2}-\d{5}\b`),

	LabelJWT: regexp.MustCompile(`eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{8,}`),

	// Типовые секреты облачных API
	LabelAPIKey: regexp.MustCompile(`\b(sk-[A-Za-z0-9]{20,}|AKIA[0-9A-Z]{16}|AIza[0-9A-Za-z_-]{35})\b`),

	LabelGithubPAT: regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{36,}\b`),

	LabelPrivateKey: regexp.MustCompile(`-----BEGIN (?:RSA |EC |OPENSSH |DSA )?PRIVATE KEY-----`),

	// Банковский счет: 10-14 цифр с дефисами (консервативно, только с дефисами)
	LabelBankAccount: regexp.MustCompile(`\b\d{3,6}-\d{2,6}-\d{4,8}\b`),

	LabelIPv4: regexp.MustCompile(`\b(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)(\.(25[0-5]|2[0-4]\d|1\d\d|[1-9]?\d)){3}\b`),

	LabelIPv6: regexp.MustCompile(`\b([0-9A-Fa-f]{1,4}:){7}[0-9A-Fa-f]{1,4}\b`),

	LabelMAC: regexp.MustCompile(`\b[0-9A-Fa-f]{2}(:[0-9A-Fa-f]{2}){5}\b`),

	// 15 цифр подряд; дополнительно валидируется Луном
	LabelIMEI: regexp.MustCompile(`\b\d{15}\b`),
}
