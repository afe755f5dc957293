package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const DefaultPhoneRegion = "US"

// NormalizePhone formats a phone number as E.164. Numbers without a country prefix are parsed
// against region. Unparseable or invalid numbers normalize to "".
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	if region == "" {
		region = DefaultPhoneRegion
	}

	parsed, err := phonenumbers.Parse(phone, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return ""
	}
	return phonenumbers.Format(parsed, phonenumbers.E164)
}
