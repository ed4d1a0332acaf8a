package checkout

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/solelace/storefront/domain"
)

var (
	nonDigits     = regexp.MustCompile(`\D`)
	expiryPattern = regexp.MustCompile(`^(\d{1,2})[/-](\d{2})$`)
)

// cardNumberLength is the only accepted length after stripping
// formatting characters.
const cardNumberLength = 16

// expiryYearCutoff bounds the accepted two-digit year: "00" to "39"
// pass, "40" to "99" are rejected. Years 2040 and later are not handled.
const expiryYearCutoff = 40

// validatePaymentFields checks the payment form the way the checkout
// screen does: presence first, then card number shape, then expiry.
// Any failure here counts against the payment attempt guard.
func validatePaymentFields(card domain.PaymentCard) error {
	if card.CardNumber == "" || card.Expiry == "" || card.CVC == "" {
		return domain.Invalid("checkout.validate", "Please enter all payment information.")
	}

	digits := nonDigits.ReplaceAllString(card.CardNumber, "")
	if len(digits) != cardNumberLength {
		return domain.Invalid("checkout.validate", "Card number must be 16 digits.")
	}

	match := expiryPattern.FindStringSubmatch(strings.TrimSpace(card.Expiry))
	if match == nil {
		return domain.Invalid("checkout.validate", "Expiry must be in MM/YY format.")
	}

	month, _ := strconv.Atoi(match[1])
	if month < 1 || month > 12 {
		return domain.Invalid("checkout.validate", "Expiry month must be between 01 and 12.")
	}

	year, _ := strconv.Atoi(match[2])
	if year >= expiryYearCutoff {
		return domain.Invalid("checkout.validate", "Expiry year is not valid.")
	}

	return nil
}

// registrationMessages maps validator tags to user-facing messages.
var registrationMessages = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"min":      "Password must be at least 8 characters.",
	"eqfield":  "Passwords do not match.",
}

// validateRegistration checks the inline guest registration form.
// Failures here are not payment failures and never penalize the guard.
func validateRegistration(validate *validator.Validate, reg *domain.GuestRegistration) error {
	if reg == nil {
		return domain.Invalid("checkout.register", "Please create an account to check out.")
	}

	err := validate.Struct(reg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return domain.WrapError(err, domain.EINVALID, "checkout.register", "Invalid registration details")
	}

	var out error
	for _, fe := range fieldErrs {
		message, ok := registrationMessages[fe.Tag()]
		if !ok {
			message = "Invalid value."
		}
		out = domain.AddFieldError(out, fe.Field(), message)
	}
	return out
}
